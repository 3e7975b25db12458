package classify

import (
	"FloodSentry/internal/config"
	"FloodSentry/internal/model"
	"testing"
)

func TestClassify(t *testing.T) {
	cls, err := NewClassifier(config.ClassifierConfig{
		BaselineNetworks: []string{"10.10.1.0/24"},
		AttackNetworks:   []string{"10.10.2.0/24", "192.168.100.0/30"},
	})
	if err != nil {
		t.Fatalf("Failed to create classifier: %v", err)
	}

	cases := []struct {
		ip   uint32
		want model.Class
	}{
		{0x0a0a0105, model.ClassBaseline}, // 10.10.1.5
		{0x0a0a02ff, model.ClassAttack},   // 10.10.2.255
		{0xc0a86402, model.ClassAttack},   // 192.168.100.2
		{0xc0a86404, model.ClassUnknown},  // 192.168.100.4, outside the /30
		{0x08080808, model.ClassUnknown},  // 8.8.8.8
	}
	for _, tc := range cases {
		if got := cls.Classify(tc.ip); got != tc.want {
			t.Errorf("Classify(%#x) = %v, want %v", tc.ip, got, tc.want)
		}
	}
}

func TestClassifierRejectsBadCIDR(t *testing.T) {
	_, err := NewClassifier(config.ClassifierConfig{AttackNetworks: []string{"not-a-cidr"}})
	if err == nil {
		t.Fatal("Expected an error for a malformed CIDR, but got nil")
	}

	_, err = NewClassifier(config.ClassifierConfig{BaselineNetworks: []string{"2001:db8::/32"}})
	if err == nil {
		t.Fatal("Expected an error for an IPv6 network, but got nil")
	}
}

func TestClassifierEmpty(t *testing.T) {
	cls, err := NewClassifier(config.ClassifierConfig{})
	if err != nil {
		t.Fatalf("Failed to create empty classifier: %v", err)
	}
	if !cls.Empty() {
		t.Error("Expected Empty() for a classifier with no networks")
	}
	if got := cls.Classify(0x0a0a0101); got != model.ClassUnknown {
		t.Errorf("Expected unknown from an empty classifier, but got %v", got)
	}
}
