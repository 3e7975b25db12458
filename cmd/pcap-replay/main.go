package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"FloodSentry/internal/config"
	"FloodSentry/internal/engine/classify"
	"FloodSentry/internal/engine/manager"
	"FloodSentry/internal/model"
	"FloodSentry/internal/probe"
	"FloodSentry/pkg/pcap"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "Path to the configuration file")
	direct := flag.Bool("direct", false, "Feed the capture into an in-process engine and print the detection report, instead of publishing to NATS")
	flag.Parse()

	// 1. Get capture file path from command-line arguments
	if flag.NArg() < 1 {
		fmt.Println("Usage: pcap-replay [-config path] [-direct] <path_to_pcap_file>")
		os.Exit(1)
	}
	pcapFilePath := flag.Arg(0)

	// 2. Load configuration
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	log.Println("Configuration loaded successfully.")

	// 3. Open the capture
	reader, err := pcap.NewReader(pcapFilePath)
	if err != nil {
		log.Fatalf("Failed to open pcap file: %v", err)
	}
	defer reader.Close()
	log.Printf("Reading packets from '%s'...", pcapFilePath)

	if *direct {
		runDirect(cfg, reader)
	} else {
		runPublish(cfg, reader)
	}
}

// runDirect feeds the capture straight into an in-process engine at full
// speed and prints the detection report once the file is exhausted. The
// engine's own classifier tags the events, as there is no probe in front.
func runDirect(cfg *config.Config, reader *pcap.Reader) {
	// 4. Initialize modules
	managerImpl, err := manager.NewManager(cfg)
	if err != nil {
		log.Fatalf("Failed to create manager: %v", err)
	}
	log.Println("Manager initialized.")

	// 5. Start the processing pipeline
	managerImpl.Start()
	log.Println("Manager started.")

	// 6. Feed events to the engine. Timestamps are rebased to arrival time so
	// the latency histogram measures processing delay, not capture age.
	in := managerImpl.Input()
	err = reader.ForEach(func(ev *model.FlowEvent) error {
		ev.Timestamp = time.Now()
		in <- ev
		return nil
	})
	if err != nil {
		log.Fatalf("Failed to read capture: %v", err)
	}
	log.Println("Finished reading all packets from capture file.")

	// 7. Graceful shutdown, forcing a final window evaluation
	managerImpl.Stop()

	// 8. Print the detection report
	report, err := json.MarshalIndent(managerImpl.Status(), "", "  ")
	if err != nil {
		log.Fatalf("Failed to marshal report: %v", err)
	}
	fmt.Println(string(report))
}

// runPublish pushes the capture to NATS at full speed, for load-testing a
// running pipeline.
func runPublish(cfg *config.Config, reader *pcap.Reader) {
	classifier, err := classify.NewClassifier(cfg.Probe.Classifier)
	if err != nil {
		log.Fatalf("Invalid classifier networks: %v", err)
	}

	pub, err := probe.NewPublisher(cfg.Probe)
	if err != nil {
		log.Fatalf("Failed to connect to NATS: %v", err)
	}
	defer pub.Close()

	start := time.Now()
	sent := 0
	err = reader.ForEach(func(ev *model.FlowEvent) error {
		ev.Timestamp = time.Now()
		if !classifier.Empty() {
			ev.Class = classifier.Classify(ev.SrcIP)
		}
		sent++
		return pub.Publish(ev)
	})
	if err != nil {
		log.Fatalf("Failed to publish capture: %v", err)
	}
	log.Printf("Published %d events in %s.", sent, time.Since(start).Round(time.Millisecond))
}
