package probe

import (
	"bytes"
	"encoding/gob"
	"log"

	"FloodSentry/internal/config"
	"FloodSentry/internal/model"

	"github.com/nats-io/nats.go"
)

// FlowHandler processes one received flow event.
type FlowHandler func(ev *model.FlowEvent)

// Subscriber receives gob-encoded event batches from NATS and hands the
// events to a handler one by one.
type Subscriber struct {
	nc      *nats.Conn
	sub     *nats.Subscription
	subject string
}

// NewSubscriber creates a new NATS subscriber for the configured subject.
func NewSubscriber(cfg config.ProbeConfig) (*Subscriber, error) {
	nc, err := nats.Connect(cfg.NATSURL)
	if err != nil {
		return nil, err
	}
	log.Printf("Connected to NATS server at %s", cfg.NATSURL)
	return &Subscriber{nc: nc, subject: cfg.Subject}, nil
}

// Start subscribes and begins decoding batches. Decode errors are logged and
// the message is skipped.
func (s *Subscriber) Start(handler FlowHandler) error {
	sub, err := s.nc.Subscribe(s.subject, func(msg *nats.Msg) {
		var events []model.FlowEvent
		if err := gob.NewDecoder(bytes.NewReader(msg.Data)).Decode(&events); err != nil {
			log.Printf("Error decoding event batch: %v", err)
			return
		}
		for i := range events {
			handler(&events[i])
		}
	})
	if err != nil {
		return err
	}
	s.sub = sub
	log.Printf("Subscribed to '%s'. Waiting for events...", s.subject)
	return nil
}

// Close unsubscribes and closes the NATS connection.
func (s *Subscriber) Close() {
	if s.sub != nil {
		s.sub.Unsubscribe()
	}
	if s.nc != nil {
		s.nc.Close()
		log.Println("NATS connection closed.")
	}
}
