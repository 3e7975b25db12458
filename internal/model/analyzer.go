package model

import (
	"context"
)

// Analyzer defines the standard interface for an AI analyzer.
type Analyzer interface {
	// AnalyzeAlert receives an alert summary and returns the analysis
	// result from the AI model.
	AnalyzeAlert(ctx context.Context, input string) (string, error)
}
