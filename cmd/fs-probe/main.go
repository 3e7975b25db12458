package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"FloodSentry/internal/config"
	"FloodSentry/internal/engine/classify"
	"FloodSentry/internal/engine/protocol"
	"FloodSentry/internal/model"
	"FloodSentry/internal/probe"
	"FloodSentry/internal/probe/persistent"
	fspcap "FloodSentry/pkg/pcap"

	"github.com/google/gopacket"
	"github.com/google/gopacket/pcap"
)

const (
	snapshotLen int32 = 65536
	promiscuous       = true
	timeout           = pcap.BlockForever
)

func main() {
	mode := flag.String("mode", "pub", "Operating mode: 'pub' captures and publishes, 'sub' subscribes and prints, 'replay' replays a capture file.")
	configPath := flag.String("config", "configs/config.yaml", "Path to the configuration file")
	iface := flag.String("iface", "", "Capture interface, overrides the config (pub mode)")
	file := flag.String("file", "", "Capture file to replay (replay mode)")
	rate := flag.Int("rate", 0, "Replay rate in packets per second, 0 keeps the file timing")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	switch *mode {
	case "pub":
		runCapture(cfg, *iface)
	case "sub":
		runSubscriber(cfg)
	case "replay":
		runReplay(cfg, *file, *rate)
	default:
		fmt.Fprintf(os.Stderr, "Invalid mode: %s\n", *mode)
		flag.Usage()
		os.Exit(1)
	}
}

// runCapture captures packets on an interface, tags them and publishes them
// to NATS, optionally recording the capture to disk.
func runCapture(cfg *config.Config, ifaceOverride string) {
	iface := ifaceOverride
	if iface == "" {
		iface = cfg.Probe.Interface
	}
	if iface == "" {
		log.Println("Error: no capture interface configured, use -iface or probe.iface.")
		flag.Usage()
		os.Exit(1)
	}
	log.Printf("Starting fs-probe in capture mode on interface: %s", iface)

	classifier, err := classify.NewClassifier(cfg.Probe.Classifier)
	if err != nil {
		log.Fatalf("Invalid classifier networks: %v", err)
	}

	pub, err := probe.NewPublisher(cfg.Probe)
	if err != nil {
		log.Fatalf("Failed to connect to NATS: %v", err)
	}
	defer pub.Close()

	handle, err := pcap.OpenLive(iface, snapshotLen, promiscuous, timeout)
	if err != nil {
		log.Fatalf("Error opening device %s: %v", iface, err)
	}
	defer handle.Close()

	if cfg.Probe.BPF != "" {
		if err := handle.SetBPFFilter(cfg.Probe.BPF); err != nil {
			log.Fatalf("Failed to set BPF filter '%s': %v", cfg.Probe.BPF, err)
		}
		log.Printf("BPF filter applied: %s", cfg.Probe.BPF)
	}

	var recorder *persistent.Recorder
	if cfg.Probe.Record.Enabled {
		recorder, err = persistent.NewRecorder(cfg.Probe.Record, handle.LinkType())
		if err != nil {
			log.Fatalf("Failed to start recorder: %v", err)
		}
	}

	log.Println("Capture started successfully. Publishing events to NATS...")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		packetSource := gopacket.NewPacketSource(handle, handle.LinkType())
		published := 0
		for packet := range packetSource.Packets() {
			ev, err := protocol.ParseFlowEvent(packet)
			if err != nil {
				continue
			}
			if !classifier.Empty() {
				ev.Class = classifier.Classify(ev.SrcIP)
			}
			if err := pub.Publish(ev); err != nil {
				log.Printf("Failed to publish event: %v", err)
			}
			if recorder != nil {
				recorder.Enqueue(&persistent.PacketRecord{Raw: packet, Event: ev})
			}
			published++
			if published%100000 == 0 {
				log.Printf("%d events published...", published)
			}
		}
	}()

	<-sigChan
	log.Println("Shutdown signal received, cleaning up...")
	if recorder != nil {
		recorder.Stop()
	}
}

// runSubscriber prints the event stream, for checking what the engine will
// see.
func runSubscriber(cfg *config.Config) {
	log.Println("Starting fs-probe in subscriber mode...")

	sub, err := probe.NewSubscriber(cfg.Probe)
	if err != nil {
		log.Fatalf("Failed to create subscriber: %v", err)
	}
	defer sub.Close()

	handler := func(ev *model.FlowEvent) {
		log.Printf("Received: %s %s -> :%d len=%d class=%s",
			ev.Protocol, model.FormatIP(ev.SrcIP), ev.DstPort, ev.Length, ev.Class)
	}

	if err := sub.Start(handler); err != nil {
		log.Fatalf("Subscriber failed to start: %v", err)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan
	log.Println("Shutdown signal received, cleaning up...")
}

// runReplay publishes a capture file to NATS, paced to the file timing or to
// a fixed rate. Events are restamped on publish so the engine's latency math
// sees live arrival times.
func runReplay(cfg *config.Config, file string, rate int) {
	if file == "" {
		log.Println("Error: -file is required for replay mode.")
		flag.Usage()
		os.Exit(1)
	}
	log.Printf("Replaying %s to NATS...", file)

	classifier, err := classify.NewClassifier(cfg.Probe.Classifier)
	if err != nil {
		log.Fatalf("Invalid classifier networks: %v", err)
	}

	pub, err := probe.NewPublisher(cfg.Probe)
	if err != nil {
		log.Fatalf("Failed to connect to NATS: %v", err)
	}
	defer pub.Close()

	reader, err := fspcap.NewReader(file)
	if err != nil {
		log.Fatalf("Failed to open capture file: %v", err)
	}
	defer reader.Close()

	start := time.Now()
	var fileStart time.Time
	sent := 0
	err = reader.ForEach(func(ev *model.FlowEvent) error {
		if rate > 0 {
			next := start.Add(time.Duration(sent) * (time.Second / time.Duration(rate)))
			time.Sleep(time.Until(next))
		} else {
			if fileStart.IsZero() {
				fileStart = ev.Timestamp
			}
			time.Sleep(time.Until(start.Add(ev.Timestamp.Sub(fileStart))))
		}

		ev.Timestamp = time.Now()
		if !classifier.Empty() {
			ev.Class = classifier.Classify(ev.SrcIP)
		}
		sent++
		return pub.Publish(ev)
	})
	if err != nil {
		log.Fatalf("Replay failed: %v", err)
	}
	log.Printf("Replayed %d events in %s.", sent, time.Since(start).Round(time.Millisecond))
}
