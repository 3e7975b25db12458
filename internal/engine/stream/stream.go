package stream

import (
	"log"

	"FloodSentry/internal/config"
	"FloodSentry/internal/engine/manager"
	"FloodSentry/internal/model"
	"FloodSentry/internal/probe"
)

// Engine consumes flow events from NATS and feeds them to the detection
// manager. It is the run mode of fs-engine; pcap-replay drives the manager
// directly instead.
type Engine struct {
	sub      *probe.Subscriber
	manager  *manager.Manager
	input    chan<- *model.FlowEvent
	probeCfg config.ProbeConfig
}

// NewEngine creates the detection manager and prepares the NATS bridge.
func NewEngine(cfg *config.Config) (*Engine, error) {
	mgr, err := manager.NewManager(cfg)
	if err != nil {
		return nil, err
	}

	return &Engine{
		manager:  mgr,
		input:    mgr.Input(),
		probeCfg: cfg.Probe,
	}, nil
}

// Manager exposes the underlying manager for the status endpoint.
func (e *Engine) Manager() *manager.Manager {
	return e.manager
}

// Start starts the manager, connects to NATS and begins feeding events.
func (e *Engine) Start() {
	e.manager.Start()

	sub, err := probe.NewSubscriber(e.probeCfg)
	if err != nil {
		log.Fatalf("Engine failed to connect to NATS: %v", err)
	}
	e.sub = sub

	if err := e.sub.Start(func(ev *model.FlowEvent) {
		e.input <- ev
	}); err != nil {
		log.Fatalf("Engine failed to subscribe: %v", err)
	}
}

// Stop closes the NATS side first so no more events arrive, then shuts the
// manager down.
func (e *Engine) Stop() {
	log.Println("Stream engine stopping...")
	if e.sub != nil {
		e.sub.Close()
	}
	e.manager.Stop()
	log.Println("Stream engine stopped.")
}
