package model

// Engine defines the common interface for a detection engine, allowing the
// event source (NATS subscriber, pcap replay, tests) to be wired to it
// without knowing the implementation.
type Engine interface {
	// Start launches the engine's workers and the window coordinator.
	Start()

	// Stop gracefully shuts down the engine, evaluating a final window and
	// flushing all writers.
	Stop()

	// Input returns the channel to which flow events should be sent.
	Input() chan<- *FlowEvent
}
