package ai

import (
	"context"
	"errors"
	"fmt"

	"github.com/sashabaranov/go-openai"

	"FloodSentry/internal/config"
)

// AlertAnalyzer implements the Analyzer interface using an OpenAI-compatible API.
type AlertAnalyzer struct {
	cfg    *config.AIConfig
	client *openai.Client
}

// NewAlertAnalyzer creates a new instance of AlertAnalyzer.
func NewAlertAnalyzer(cfg *config.AIConfig) (*AlertAnalyzer, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("AI API key is not configured")
	}

	// Create a default OpenAI configuration
	clientConfig := openai.DefaultConfig(cfg.APIKey)

	// If a custom BaseURL is defined, override the default one
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	// Create the client using the final configuration
	client := openai.NewClientWithConfig(clientConfig)

	return &AlertAnalyzer{
		cfg:    cfg,
		client: client,
	}, nil
}

// AnalyzeAlert analyzes a DDoS alert report and returns mitigation advice.
func (a *AlertAnalyzer) AnalyzeAlert(ctx context.Context, input string) (string, error) {
	// Craft the prompt for the AI model
	prompt := fmt.Sprintf(
		"You are a senior DDoS mitigation engineer. "+
			"Please analyze the following detection report from the FloodSentry monitoring system. "+
			"Identify the most likely attack type, assess whether the triggered rules are consistent "+
			"with the traffic shape, and recommend concrete mitigation steps (rate limits, SYN cookies, "+
			"upstream filtering) in order of priority. The output should be clear and actionable.\n\n"+
			"--- Detection Report ---\n%s\n--- End of Report ---", input,
	)

	resp, err := a.client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{
			Model: a.cfg.Model,
			Messages: []openai.ChatCompletionMessage{
				{
					Role:    openai.ChatMessageRoleUser,
					Content: prompt,
				},
			},
		},
	)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", fmt.Errorf("AI request timeout: %w", err)
		}
		if errors.Is(err, context.Canceled) {
			return "", fmt.Errorf("AI request canceled by client: %w", err)
		}
		return "", fmt.Errorf("OpenAI API error: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("OpenAI API returned no choices")
	}

	return resp.Choices[0].Message.Content, nil
}
