package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"strings"

	"FloodSentry/internal/ai"
	"FloodSentry/internal/config"
)

// Streams an ad-hoc prompt through the configured AI backend, for testing
// the alerter's analysis credentials and model without staging an attack.
func main() {
	// 1. Parse command-line flags
	configPath := flag.String("config", "configs/config.yaml", "Path to the configuration file")
	prompt := flag.String("prompt", "", "The prompt to send to the AI model")
	flag.Parse()

	// 2. If prompt is empty, read it from non-flag arguments
	if *prompt == "" {
		if flag.NArg() > 0 {
			*prompt = strings.Join(flag.Args(), " ")
		} else {
			log.Fatalf("Error: A prompt is required. Use -prompt or provide it as an argument.")
		}
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 3. Build the analyzer from the alerter's AI settings
	analyzer, err := ai.NewStreamAnalyzer(&cfg.Alerter.AI)
	if err != nil {
		log.Fatalf("Failed to create analyzer: %v", err)
	}

	// 4. Stream the response chunks to standard output
	log.Println("Sending prompt to AI... (waiting for stream)")
	err = analyzer.AnalyzeStream(context.Background(), *prompt, func(chunk string) error {
		fmt.Print(chunk)
		return nil
	})
	if err != nil {
		log.Fatalf("Error streaming analysis: %v", err)
	}
	fmt.Println() // Add a newline for clean terminal output
}
