package fusion

import (
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"FloodSentry/internal/engine/rules"
	"FloodSentry/internal/metrics"
	"FloodSentry/internal/ml"
	"FloodSentry/internal/model"
)

const benignLabel = "benign"

// State is the externally visible detection state, read by the status
// endpoint and the shutdown report.
type State struct {
	Level              model.Severity
	Reason             string
	ConsecutiveWindows int
	FirstAttack        time.Time
	FirstDetection     time.Time
	LastDetection      time.Time
	Latency            model.LatencyStats
}

// Detector fuses the rule table's verdict with the ML classifier's vote and
// keeps the detection state across windows. Only the coordinator calls
// Evaluate; State may be read concurrently.
type Detector struct {
	table      *rules.Table
	classifier ml.Classifier
	confidence float64

	firstAttack *atomic.Int64 // unix nanos, CAS'd by the workers

	mu             sync.Mutex
	firstDetection time.Time
	lastDetection  time.Time
	consecutive    int
	lastLevel      model.Severity
	lastReason     string
	latency        LatencyTracker
}

// NewDetector wires the rule table and an optional classifier. A nil
// classifier means threshold-only operation.
func NewDetector(table *rules.Table, classifier ml.Classifier, confidence float64, firstAttack *atomic.Int64) *Detector {
	if confidence == 0 {
		confidence = 0.75
	}
	return &Detector{
		table:       table,
		classifier:  classifier,
		confidence:  confidence,
		firstAttack: firstAttack,
	}
}

// fuse maps the two boolean verdicts to the final severity. The lookup is
// exact: the graded threshold level is reported separately and does not
// change the outcome.
func fuse(thresholdFired, mlAttack bool) model.Severity {
	switch {
	case thresholdFired && mlAttack:
		return model.SeverityCritical
	case thresholdFired:
		return model.SeverityHigh
	case mlAttack:
		return model.SeverityAnomaly
	default:
		return model.SeverityNone
	}
}

// Evaluate runs detection over one window snapshot. It returns nil when the
// window is clean; otherwise the alert with both verdicts and the latency
// sample recorded for it.
func (d *Detector) Evaluate(now time.Time, snap *model.WindowSnapshot) *model.Alert {
	verdict := d.table.Evaluate(snap)

	mlAttack := false
	mlLabel := ""
	mlConf := 0.0
	if d.classifier != nil {
		pred, err := d.classifier.Predict(ml.Features(snap))
		if err != nil {
			// No ML vote for this window; detection continues threshold-only.
			log.Printf("ML inference failed, continuing threshold-only for this window: %v", err)
		} else {
			metrics.MLInference.Observe(pred.InferenceTime.Seconds())
			mlLabel = pred.Label
			mlConf = pred.Confidence
			mlAttack = pred.Label != benignLabel && pred.Confidence >= d.confidence
		}
	}

	final := fuse(verdict.Fired(), mlAttack)

	d.mu.Lock()
	defer d.mu.Unlock()

	if final == model.SeverityNone {
		d.consecutive = 0
		d.lastLevel = model.SeverityNone
		d.lastReason = ""
		return nil
	}

	reasons := make([]string, 0, len(verdict.Reasons)+1)
	reasons = append(reasons, verdict.Reasons...)
	if mlAttack {
		if verdict.Fired() {
			reasons = append(reasons, fmt.Sprintf("ML confirms: %s (%.2f)", mlLabel, mlConf))
		} else {
			reasons = append(reasons, fmt.Sprintf("ML anomaly: %s (%.2f)", mlLabel, mlConf))
		}
	}

	var latency time.Duration
	if d.lastDetection.IsZero() {
		d.firstDetection = now
		if first := d.firstAttack.Load(); first > 0 {
			latency = now.Sub(time.Unix(0, first))
			d.latency.Observe(latency)
		}
	} else {
		latency = now.Sub(d.lastDetection)
		d.latency.Observe(latency)
	}
	d.lastDetection = now
	d.consecutive++
	d.lastLevel = final

	alert := &model.Alert{
		Timestamp:      now,
		ThresholdLevel: verdict.Level,
		FinalLevel:     final,
		Rules:          verdict.Rules,
		Reasons:        reasons,
		MLLabel:        mlLabel,
		MLConfidence:   mlConf,
		Latency:        latency,
		Snapshot:       snap,
	}
	d.lastReason = alert.Reason()
	return alert
}

// State returns a copy of the current detection state.
func (d *Detector) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()

	s := State{
		Level:              d.lastLevel,
		Reason:             d.lastReason,
		ConsecutiveWindows: d.consecutive,
		FirstDetection:     d.firstDetection,
		LastDetection:      d.lastDetection,
		Latency:            d.latency.Stats(),
	}
	if first := d.firstAttack.Load(); first > 0 {
		s.FirstAttack = time.Unix(0, first)
	}
	return s
}

// MLEnabled reports whether a classifier is wired in.
func (d *Detector) MLEnabled() bool {
	return d.classifier != nil
}
