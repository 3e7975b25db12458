package query

import (
	"sort"
	"testing"
)

func TestLevelsAtOrAbove(t *testing.T) {
	levels, err := levelsAtOrAbove("high")
	if err != nil {
		t.Fatalf("Failed to expand level: %v", err)
	}
	sort.Strings(levels)
	if len(levels) != 2 || levels[0] != "CRITICAL" || levels[1] != "HIGH" {
		t.Errorf("Expected [CRITICAL HIGH], but got %v", levels)
	}

	// ANOMALY ranks with LOW, so a LOW minimum matches everything.
	levels, err = levelsAtOrAbove("LOW")
	if err != nil {
		t.Fatalf("Failed to expand level: %v", err)
	}
	if len(levels) != 5 {
		t.Errorf("Expected all 5 levels, but got %v", levels)
	}

	if _, err := levelsAtOrAbove("bogus"); err == nil {
		t.Errorf("Expected an error for an unknown level")
	}
}
