package model

import "time"

// Severity is the alert level ladder. Rules raise it monotonically within a
// window; fusion with the ML verdict decides the final level. Anomaly is the
// ML-only verdict, reported when the classifier flags a window no threshold
// rule fired on.
type Severity int

const (
	SeverityNone Severity = iota
	SeverityLow
	SeverityMedium
	SeverityHigh
	SeverityCritical
	SeverityAnomaly
)

func (s Severity) String() string {
	switch s {
	case SeverityLow:
		return "LOW"
	case SeverityMedium:
		return "MEDIUM"
	case SeverityHigh:
		return "HIGH"
	case SeverityCritical:
		return "CRITICAL"
	case SeverityAnomaly:
		return "ANOMALY"
	default:
		return "NONE"
	}
}

// Alert is one detection outcome for a window. ThresholdLevel is the rule
// engine's verdict on its own; FinalLevel is the fused verdict after the ML
// classifier has voted.
type Alert struct {
	Timestamp      time.Time
	ThresholdLevel Severity
	FinalLevel     Severity
	Rules          []string // names of the rules that fired
	Reasons        []string
	MLLabel        string // empty when the classifier did not vote
	MLConfidence   float64
	Latency        time.Duration // first-detection latency or inter-detection gap
	Snapshot       *WindowSnapshot
}

// Reason joins the individual rule reasons the way they are reported.
func (a *Alert) Reason() string {
	if len(a.Reasons) == 0 {
		return ""
	}
	s := a.Reasons[0]
	for _, r := range a.Reasons[1:] {
		s += " | " + r
	}
	return s
}

// LatencyStats summarizes detection latency over the run: the time from the
// first attack packet to the first alert, then the gaps between consecutive
// alerts.
type LatencyStats struct {
	Count   uint64
	Min     time.Duration
	Max     time.Duration
	Mean    time.Duration
	Buckets [5]uint64 // <20ms, 20-30ms, 30-40ms, 40-50ms, >=50ms
}
