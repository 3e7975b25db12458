package ml

import (
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"testing"

	"FloodSentry/internal/model"
)

func leaf(v float64) *node {
	return &node{Feature: -1, Value: v}
}

func split(feature int, threshold float64, left, right *node) *node {
	return &node{Feature: feature, Threshold: threshold, Left: left, Right: right}
}

// testModel is a small hand-built forest: one indicator tree per class over
// the standard feature layout.
func testModel() modelFile {
	return modelFile{
		NumClasses:  5,
		NumFeatures: len(FeatureNames),
		LabelMapping: map[string]string{
			"0": "benign",
			"1": "udp_flood",
			"2": "syn_flood",
			"3": "icmp_flood",
			"4": "mixed_attack",
		},
		FeatureNames: FeatureNames,
		Trees: []tree{
			{Class: 0, Root: split(8, 100, leaf(3.0), leaf(-3.0))},     // attack_packets
			{Class: 1, Root: split(9, 5.0, leaf(-2.0), leaf(4.0))},     // udp_tcp_ratio
			{Class: 2, Root: split(10, 0.5, leaf(-2.0), leaf(4.0))},    // syn_total_ratio
			{Class: 3, Root: split(4, 10000, leaf(-2.0), leaf(4.0))},   // icmp_packets
			{Class: 4, Root: leaf(-1.0)},
		},
	}
}

func writeModel(t *testing.T, m modelFile) string {
	t.Helper()
	data, err := json.Marshal(m)
	if err != nil {
		t.Fatalf("Failed to marshal test model: %v", err)
	}
	path := filepath.Join(t.TempDir(), "model.json")
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("Failed to write test model: %v", err)
	}
	return path
}

func TestGBDTPredict(t *testing.T) {
	g := NewGBDT()
	if err := g.Load(writeModel(t, testModel())); err != nil {
		t.Fatalf("Failed to load model: %v", err)
	}
	defer g.Close()

	// 1. A UDP flood shaped vector.
	udpFlood := Features(&model.WindowSnapshot{
		Packets:       100000,
		Bytes:         12800000,
		UDPPackets:    90000,
		TCPPackets:    8000,
		AttackPackets: 90000,
		AvgPacketSize: 128,
	})
	p, err := g.Predict(udpFlood)
	if err != nil {
		t.Fatalf("Predict failed: %v", err)
	}
	if p.Label != "udp_flood" {
		t.Errorf("Expected udp_flood, but got %s (%v)", p.Label, p.Probabilities)
	}
	if p.Confidence < 0.75 {
		t.Errorf("Expected confidence above 0.75, but got %f", p.Confidence)
	}

	// 2. Probabilities form a distribution.
	sum := 0.0
	for _, v := range p.Probabilities {
		sum += v
	}
	if math.Abs(sum-1.0) > 1e-9 {
		t.Errorf("Probabilities sum to %f, expected 1", sum)
	}
	if len(p.Probabilities) != 5 {
		t.Errorf("Expected 5 class probabilities, but got %d", len(p.Probabilities))
	}

	// 3. A quiet window classifies as benign.
	benign := Features(&model.WindowSnapshot{
		Packets:         5000,
		Bytes:           3000000,
		TCPPackets:      4000,
		UDPPackets:      800,
		SYNPackets:      200,
		BaselinePackets: 5000,
		AvgPacketSize:   600,
	})
	p, err = g.Predict(benign)
	if err != nil {
		t.Fatalf("Predict failed: %v", err)
	}
	if p.Label != "benign" {
		t.Errorf("Expected benign, but got %s (%v)", p.Label, p.Probabilities)
	}
}

func TestGBDTLoadErrors(t *testing.T) {
	g := NewGBDT()

	// 1. Missing file is an error, not a crash.
	if err := g.Load(filepath.Join(t.TempDir(), "absent.json")); err == nil {
		t.Fatal("Expected an error for a missing model file, but got nil")
	}

	// 2. Predict without a model reports it.
	if _, err := g.Predict(make([]float64, len(FeatureNames))); err == nil {
		t.Fatal("Expected an error predicting with no model loaded, but got nil")
	}

	// 3. Corrupt JSON.
	path := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}
	if err := g.Load(path); err == nil {
		t.Fatal("Expected an error for corrupt JSON, but got nil")
	}

	// 4. A tree referencing an unknown feature is rejected.
	m := testModel()
	m.Trees[1].Root = split(99, 1.0, leaf(0), leaf(1))
	if err := g.Load(writeModel(t, m)); err == nil {
		t.Fatal("Expected an error for an out-of-range feature, but got nil")
	}

	// 5. An incomplete label mapping is rejected.
	m = testModel()
	delete(m.LabelMapping, "3")
	if err := g.Load(writeModel(t, m)); err == nil {
		t.Fatal("Expected an error for a missing label, but got nil")
	}
}

func TestGBDTFeatureCountMismatch(t *testing.T) {
	g := NewGBDT()
	if err := g.Load(writeModel(t, testModel())); err != nil {
		t.Fatalf("Failed to load model: %v", err)
	}
	if _, err := g.Predict([]float64{1, 2, 3}); err == nil {
		t.Fatal("Expected an error for a short feature vector, but got nil")
	}
}

func TestFeatures(t *testing.T) {
	snap := &model.WindowSnapshot{
		Packets:         1000,
		Bytes:           64000,
		UDPPackets:      600,
		TCPPackets:      300,
		ICMPPackets:     100,
		SYNPackets:      150,
		HTTPRequests:    20,
		BaselinePackets: 400,
		AttackPackets:   500,
		AvgPacketSize:   64,
	}
	f := Features(snap)
	if len(f) != len(FeatureNames) {
		t.Fatalf("Expected %d features, but got %d", len(FeatureNames), len(f))
	}
	if f[9] != 2.0 {
		t.Errorf("Expected udp_tcp_ratio 2.0, but got %f", f[9])
	}
	if f[10] != 0.15 {
		t.Errorf("Expected syn_total_ratio 0.15, but got %f", f[10])
	}
	if f[11] != 0.8 {
		t.Errorf("Expected baseline_attack_ratio 0.8, but got %f", f[11])
	}

	// Zero denominators stay zero instead of dividing by zero.
	f = Features(&model.WindowSnapshot{})
	for i, v := range f {
		if v != 0 {
			t.Errorf("Expected zero feature %s on an empty snapshot, but got %f", FeatureNames[i], v)
		}
	}
}
