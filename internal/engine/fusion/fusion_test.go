package fusion

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"FloodSentry/internal/config"
	"FloodSentry/internal/engine/rules"
	"FloodSentry/internal/ml"
	"FloodSentry/internal/model"
)

// stubClassifier returns a canned prediction so the fusion table can be
// driven through every combination.
type stubClassifier struct {
	pred ml.Prediction
	err  error
}

func (s *stubClassifier) Load(string) error { return nil }
func (s *stubClassifier) Close()            {}

func (s *stubClassifier) Predict([]float64) (ml.Prediction, error) {
	return s.pred, s.err
}

// floodSnapshot fires the SYN flood rule at critical severity.
func floodSnapshot() *model.WindowSnapshot {
	pps := 200000.0
	return &model.WindowSnapshot{
		WindowSec:     0.05,
		Packets:       10000,
		PPS:           pps,
		TCPPPS:        pps * 0.9,
		SYNPPS:        pps * 0.9 * 0.85,
		TCPRatio:      0.9,
		SYNRatio:      0.85,
		AvgPacketSize: 600,
	}
}

// calmSnapshot clears every rule while staying above the packet gate.
func calmSnapshot() *model.WindowSnapshot {
	return &model.WindowSnapshot{
		WindowSec:     0.05,
		Packets:       5000,
		PPS:           800,
		TCPPPS:        600,
		TCPRatio:      0.75,
		SYNRatio:      0.1,
		AvgPacketSize: 900,
	}
}

func TestFusionTable(t *testing.T) {
	cases := []struct {
		name      string
		snap      *model.WindowSnapshot
		pred      ml.Prediction
		wantLevel model.Severity
	}{
		{
			name:      "both agree on attack",
			snap:      floodSnapshot(),
			pred:      ml.Prediction{Label: "syn_flood", Confidence: 0.95},
			wantLevel: model.SeverityCritical,
		},
		{
			name:      "threshold only",
			snap:      floodSnapshot(),
			pred:      ml.Prediction{Label: "benign", Confidence: 0.99},
			wantLevel: model.SeverityHigh,
		},
		{
			name:      "ml only",
			snap:      calmSnapshot(),
			pred:      ml.Prediction{Label: "udp_flood", Confidence: 0.90},
			wantLevel: model.SeverityAnomaly,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var first atomic.Int64
			d := NewDetector(rules.NewTable(config.RulesConfig{}), &stubClassifier{pred: tc.pred}, 0.75, &first)

			alert := d.Evaluate(time.Now(), tc.snap)
			if alert == nil {
				t.Fatalf("Expected an alert, but got nil")
			}
			if alert.FinalLevel != tc.wantLevel {
				t.Errorf("Expected final level %v, but got %v", tc.wantLevel, alert.FinalLevel)
			}
		})
	}

	// Both quiet must produce no alert at all.
	t.Run("both quiet", func(t *testing.T) {
		var first atomic.Int64
		d := NewDetector(rules.NewTable(config.RulesConfig{}), &stubClassifier{pred: ml.Prediction{Label: "benign", Confidence: 0.99}}, 0.75, &first)
		if alert := d.Evaluate(time.Now(), calmSnapshot()); alert != nil {
			t.Errorf("Expected no alert for a clean window, but got %v", alert.FinalLevel)
		}
	})
}

func TestFusionReportsBothVerdicts(t *testing.T) {
	var first atomic.Int64
	d := NewDetector(rules.NewTable(config.RulesConfig{}), &stubClassifier{pred: ml.Prediction{Label: "benign", Confidence: 0.99}}, 0.75, &first)

	// The threshold engine grades this window critical, but without ML
	// agreement the fused level is capped at high. Both must be reported.
	alert := d.Evaluate(time.Now(), floodSnapshot())
	if alert == nil {
		t.Fatalf("Expected an alert, but got nil")
	}
	if alert.ThresholdLevel != model.SeverityCritical {
		t.Errorf("Expected threshold level CRITICAL, but got %v", alert.ThresholdLevel)
	}
	if alert.FinalLevel != model.SeverityHigh {
		t.Errorf("Expected final level HIGH, but got %v", alert.FinalLevel)
	}
	if len(alert.Rules) == 0 || alert.Rules[0] != "syn_flood" {
		t.Errorf("Expected syn_flood in fired rules, but got %v", alert.Rules)
	}
}

func TestFusionAnomalyReason(t *testing.T) {
	var first atomic.Int64
	d := NewDetector(rules.NewTable(config.RulesConfig{}), &stubClassifier{pred: ml.Prediction{Label: "udp_flood", Confidence: 0.90}}, 0.75, &first)

	alert := d.Evaluate(time.Now(), calmSnapshot())
	if alert == nil {
		t.Fatalf("Expected an anomaly alert, but got nil")
	}
	if alert.ThresholdLevel != model.SeverityNone {
		t.Errorf("Expected threshold level NONE, but got %v", alert.ThresholdLevel)
	}
	if len(alert.Rules) != 0 {
		t.Errorf("Expected no fired rules, but got %v", alert.Rules)
	}
	if len(alert.Reasons) != 1 || alert.Reasons[0] != "ML anomaly: udp_flood (0.90)" {
		t.Errorf("Unexpected reasons: %v", alert.Reasons)
	}
	if alert.MLLabel != "udp_flood" || alert.MLConfidence != 0.90 {
		t.Errorf("Expected ML verdict udp_flood/0.90, but got %s/%.2f", alert.MLLabel, alert.MLConfidence)
	}
}

func TestLowConfidencePredictionDoesNotEscalate(t *testing.T) {
	var first atomic.Int64
	d := NewDetector(rules.NewTable(config.RulesConfig{}), &stubClassifier{pred: ml.Prediction{Label: "syn_flood", Confidence: 0.50}}, 0.75, &first)

	// Below the confidence floor the attack label carries no vote, but the
	// raw prediction is still attached for the report.
	alert := d.Evaluate(time.Now(), floodSnapshot())
	if alert == nil {
		t.Fatalf("Expected an alert, but got nil")
	}
	if alert.FinalLevel != model.SeverityHigh {
		t.Errorf("Expected final level HIGH, but got %v", alert.FinalLevel)
	}
	if alert.MLLabel != "syn_flood" || alert.MLConfidence != 0.50 {
		t.Errorf("Expected recorded prediction syn_flood/0.50, but got %s/%.2f", alert.MLLabel, alert.MLConfidence)
	}
}

func TestInferenceErrorFallsBackToThresholds(t *testing.T) {
	var first atomic.Int64
	d := NewDetector(rules.NewTable(config.RulesConfig{}), &stubClassifier{err: errors.New("model unavailable")}, 0.75, &first)

	alert := d.Evaluate(time.Now(), floodSnapshot())
	if alert == nil {
		t.Fatalf("Expected a threshold alert despite the inference error, but got nil")
	}
	if alert.FinalLevel != model.SeverityHigh {
		t.Errorf("Expected final level HIGH, but got %v", alert.FinalLevel)
	}
	if alert.MLLabel != "" {
		t.Errorf("Expected no ML label after an inference error, but got %q", alert.MLLabel)
	}
}

func TestDetectorWithoutClassifier(t *testing.T) {
	var first atomic.Int64
	d := NewDetector(rules.NewTable(config.RulesConfig{}), nil, 0, &first)

	if d.MLEnabled() {
		t.Fatalf("Expected MLEnabled to be false without a classifier")
	}
	alert := d.Evaluate(time.Now(), floodSnapshot())
	if alert == nil {
		t.Fatalf("Expected a threshold alert, but got nil")
	}
	if alert.FinalLevel != model.SeverityHigh {
		t.Errorf("Expected final level HIGH, but got %v", alert.FinalLevel)
	}
	if alert := d.Evaluate(time.Now(), calmSnapshot()); alert != nil {
		t.Errorf("Expected no alert for a clean window, but got %v", alert.FinalLevel)
	}
}

func TestDetectionLatencyTracking(t *testing.T) {
	t0 := time.Unix(1700000000, 0)

	// 1. Record the first attack packet at t0.
	var first atomic.Int64
	first.Store(t0.UnixNano())
	d := NewDetector(rules.NewTable(config.RulesConfig{}), nil, 0, &first)

	// 2. First detection 12ms after the attack began.
	alert := d.Evaluate(t0.Add(12*time.Millisecond), floodSnapshot())
	if alert == nil {
		t.Fatalf("Expected an alert, but got nil")
	}
	if alert.Latency != 12*time.Millisecond {
		t.Errorf("Expected first detection latency 12ms, but got %v", alert.Latency)
	}
	stats := d.State().Latency
	if stats.Count != 1 || stats.Buckets[0] != 1 {
		t.Errorf("Expected one sample in the <20ms bucket, but got count=%d buckets=%v", stats.Count, stats.Buckets)
	}

	// 3. Second detection 25ms after the first.
	alert = d.Evaluate(t0.Add(37*time.Millisecond), floodSnapshot())
	if alert == nil {
		t.Fatalf("Expected an alert, but got nil")
	}
	if alert.Latency != 25*time.Millisecond {
		t.Errorf("Expected inter-detection latency 25ms, but got %v", alert.Latency)
	}

	stats = d.State().Latency
	if stats.Count != 2 {
		t.Errorf("Expected 2 samples, but got %d", stats.Count)
	}
	if stats.Min != 12*time.Millisecond || stats.Max != 25*time.Millisecond {
		t.Errorf("Expected min/max 12ms/25ms, but got %v/%v", stats.Min, stats.Max)
	}
	if want := 18500 * time.Microsecond; stats.Mean != want {
		t.Errorf("Expected mean %v, but got %v", want, stats.Mean)
	}
	if want := [5]uint64{1, 1, 0, 0, 0}; stats.Buckets != want {
		t.Errorf("Expected buckets %v, but got %v", want, stats.Buckets)
	}
}

func TestFirstDetectionWithoutAttackTimestamp(t *testing.T) {
	t0 := time.Unix(1700000000, 0)

	// Rate-only floods never set the first-attack timestamp, so the first
	// detection has no latency sample and later ones measure the gap.
	var first atomic.Int64
	d := NewDetector(rules.NewTable(config.RulesConfig{}), nil, 0, &first)

	alert := d.Evaluate(t0, floodSnapshot())
	if alert == nil {
		t.Fatalf("Expected an alert, but got nil")
	}
	if alert.Latency != 0 {
		t.Errorf("Expected zero latency without an attack timestamp, but got %v", alert.Latency)
	}
	if got := d.State().Latency.Count; got != 0 {
		t.Errorf("Expected no latency samples yet, but got %d", got)
	}

	alert = d.Evaluate(t0.Add(30*time.Millisecond), floodSnapshot())
	if alert == nil {
		t.Fatalf("Expected an alert, but got nil")
	}
	if alert.Latency != 30*time.Millisecond {
		t.Errorf("Expected 30ms between detections, but got %v", alert.Latency)
	}
	if got := d.State().Latency.Count; got != 1 {
		t.Errorf("Expected 1 latency sample, but got %d", got)
	}
}

func TestQuietWindowResetsDetectionState(t *testing.T) {
	t0 := time.Unix(1700000000, 0)
	var first atomic.Int64
	d := NewDetector(rules.NewTable(config.RulesConfig{}), nil, 0, &first)

	// 1. Two attack windows in a row.
	d.Evaluate(t0, floodSnapshot())
	d.Evaluate(t0.Add(50*time.Millisecond), floodSnapshot())
	if s := d.State(); s.ConsecutiveWindows != 2 || s.Level != model.SeverityHigh {
		t.Fatalf("Expected 2 consecutive HIGH windows, but got %d at %v", s.ConsecutiveWindows, s.Level)
	}

	// 2. A clean window clears the current level and the streak.
	if alert := d.Evaluate(t0.Add(100*time.Millisecond), calmSnapshot()); alert != nil {
		t.Fatalf("Expected no alert for a clean window, but got %v", alert.FinalLevel)
	}
	if s := d.State(); s.ConsecutiveWindows != 0 || s.Level != model.SeverityNone {
		t.Errorf("Expected state reset after a clean window, but got %d at %v", s.ConsecutiveWindows, s.Level)
	}

	// 3. Latency history survives the reset and the next detection measures
	// the gap from the previous one.
	alert := d.Evaluate(t0.Add(150*time.Millisecond), floodSnapshot())
	if alert == nil {
		t.Fatalf("Expected an alert, but got nil")
	}
	if alert.Latency != 100*time.Millisecond {
		t.Errorf("Expected 100ms since the previous detection, but got %v", alert.Latency)
	}
	if s := d.State(); s.ConsecutiveWindows != 1 {
		t.Errorf("Expected streak restart at 1, but got %d", s.ConsecutiveWindows)
	}
}

func TestLatencyBucketBoundaries(t *testing.T) {
	var lt LatencyTracker
	for _, d := range []time.Duration{
		19 * time.Millisecond,
		20 * time.Millisecond,
		30 * time.Millisecond,
		40 * time.Millisecond,
		50 * time.Millisecond,
		120 * time.Millisecond,
	} {
		lt.Observe(d)
	}

	stats := lt.Stats()
	if want := [5]uint64{1, 1, 1, 1, 2}; stats.Buckets != want {
		t.Errorf("Expected buckets %v, but got %v", want, stats.Buckets)
	}
}
