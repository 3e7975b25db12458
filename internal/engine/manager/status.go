package manager

import (
	"time"

	"FloodSentry/internal/engine/worker"
	"FloodSentry/internal/model"
)

// Latency is the JSON rendering of the detection latency statistics.
type Latency struct {
	Count   uint64    `json:"count"`
	MinMS   float64   `json:"min_ms"`
	MaxMS   float64   `json:"max_ms"`
	MeanMS  float64   `json:"mean_ms"`
	Buckets [5]uint64 `json:"buckets"` // <20ms, 20-30ms, 30-40ms, 40-50ms, >=50ms
}

// Status is the live engine view served by the /status endpoint.
type Status struct {
	Uptime             string                `json:"uptime,omitempty"`
	Workers            int                   `json:"workers"`
	MLEnabled          bool                  `json:"ml_enabled"`
	AlertLevel         string                `json:"alert_level"`
	AlertReason        string                `json:"alert_reason,omitempty"`
	ConsecutiveWindows int                   `json:"consecutive_windows"`
	FirstAttack        string                `json:"first_attack,omitempty"`
	FirstDetection     string                `json:"first_detection,omitempty"`
	LastDetection      string                `json:"last_detection,omitempty"`
	Latency            Latency               `json:"latency"`
	TotalPackets       uint64                `json:"total_packets"`
	TotalBytes         uint64                `json:"total_bytes"`
	DroppedEvents      uint64                `json:"dropped_events"`
	LastWindow         *model.WindowSnapshot `json:"last_window,omitempty"`
}

// Status reports the current detection state, the cumulative totals, and the
// last evaluated window. Safe to call from any goroutine.
func (m *Manager) Status() Status {
	state := m.detector.State()

	m.mu.RLock()
	last := m.lastWindow
	started := m.startedAt
	m.mu.RUnlock()

	var total worker.Counters
	for _, w := range m.workers {
		total.Add(w.Counters())
	}

	s := Status{
		Workers:            len(m.workers),
		MLEnabled:          m.detector.MLEnabled(),
		AlertLevel:         state.Level.String(),
		AlertReason:        state.Reason,
		ConsecutiveWindows: state.ConsecutiveWindows,
		Latency: Latency{
			Count:   state.Latency.Count,
			MinMS:   ms(state.Latency.Min),
			MaxMS:   ms(state.Latency.Max),
			MeanMS:  ms(state.Latency.Mean),
			Buckets: state.Latency.Buckets,
		},
		TotalPackets:  total.TotalPackets,
		TotalBytes:    total.TotalBytes,
		DroppedEvents: m.dropped.Load(),
		LastWindow:    last,
	}

	if !started.IsZero() {
		s.Uptime = time.Since(started).Round(time.Second).String()
	}
	if !state.FirstAttack.IsZero() {
		s.FirstAttack = state.FirstAttack.Format(time.RFC3339Nano)
	}
	if !state.FirstDetection.IsZero() {
		s.FirstDetection = state.FirstDetection.Format(time.RFC3339Nano)
	}
	if !state.LastDetection.IsZero() {
		s.LastDetection = state.LastDetection.Format(time.RFC3339Nano)
	}

	return s
}

func ms(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000
}
