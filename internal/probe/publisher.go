package probe

import (
	"bytes"
	"encoding/gob"
	"log"
	"time"

	"FloodSentry/internal/config"
	"FloodSentry/internal/model"

	"github.com/nats-io/nats.go"
)

const (
	// Events are shipped in batches so the NATS message rate stays far below
	// the packet rate during a flood.
	batchSize  = 256
	batchDelay = 10 * time.Millisecond
)

// Publisher ships flow events to NATS as gob-encoded batches. It is owned by
// the capture loop and is not safe for concurrent use.
type Publisher struct {
	nc       *nats.Conn
	subject  string
	batch    []model.FlowEvent
	buf      bytes.Buffer
	lastSend time.Time
}

// NewPublisher creates a new NATS publisher for the configured subject.
func NewPublisher(cfg config.ProbeConfig) (*Publisher, error) {
	nc, err := nats.Connect(cfg.NATSURL)
	if err != nil {
		return nil, err
	}
	log.Printf("Connected to NATS server at %s", cfg.NATSURL)
	return &Publisher{
		nc:       nc,
		subject:  cfg.Subject,
		batch:    make([]model.FlowEvent, 0, batchSize),
		lastSend: time.Now(),
	}, nil
}

// Publish queues one flow event. The pending batch is sent once it is full or
// once the batch delay has passed.
func (p *Publisher) Publish(ev *model.FlowEvent) error {
	p.batch = append(p.batch, *ev)
	if len(p.batch) >= batchSize || time.Since(p.lastSend) >= batchDelay {
		return p.Flush()
	}
	return nil
}

// Flush encodes and publishes the pending batch.
func (p *Publisher) Flush() error {
	if len(p.batch) == 0 {
		return nil
	}
	p.buf.Reset()
	if err := gob.NewEncoder(&p.buf).Encode(p.batch); err != nil {
		return err
	}
	err := p.nc.Publish(p.subject, p.buf.Bytes())
	p.batch = p.batch[:0]
	p.lastSend = time.Now()
	return err
}

// Close publishes what is still pending, then drains and closes the NATS
// connection.
func (p *Publisher) Close() {
	if err := p.Flush(); err != nil {
		log.Printf("Failed to publish final batch: %v", err)
	}
	if p.nc != nil {
		p.nc.Drain()
		log.Println("NATS connection drained and closed.")
	}
}
