package model

import "time"

// Writer defines a generic interface for persisting detection output. A
// writer receives *Alert payloads as alerts fire and *WindowSnapshot
// payloads on the window sampling interval.
type Writer interface {
	// Write takes a data payload and persists it.
	// The implementation is expected to know how to handle the payload type it receives.
	Write(payload interface{}, timestamp string) error

	// GetInterval returns the window sampling interval for this writer.
	GetInterval() time.Duration
}
