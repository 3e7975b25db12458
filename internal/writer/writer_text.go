package writer

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"FloodSentry/internal/config"
	"FloodSentry/internal/factory"
	"FloodSentry/internal/model"
)

const (
	defaultFlushInterval = 30 * time.Second
	defaultRootPath      = "data/detections"
)

func init() {
	factory.RegisterWriter("text", func(def config.WriterDef) (model.Writer, error) {
		interval, err := flushInterval(def)
		if err != nil {
			return nil, err
		}
		root := def.RootPath
		if root == "" {
			root = defaultRootPath
		}
		return NewTextWriter(root, interval), nil
	})
}

func flushInterval(def config.WriterDef) (time.Duration, error) {
	if def.FlushInterval == "" {
		return defaultFlushInterval, nil
	}
	interval, err := time.ParseDuration(def.FlushInterval)
	if err != nil {
		return 0, fmt.Errorf("invalid flush_interval for %s writer: %w", def.Type, err)
	}
	return interval, nil
}

// TextWriter persists window snapshots and alerts as plain text files, one
// directory per flush.
type TextWriter struct {
	rootPath string
	interval time.Duration
}

// NewTextWriter creates a new text writer.
func NewTextWriter(rootPath string, interval time.Duration) model.Writer {
	return &TextWriter{rootPath: rootPath, interval: interval}
}

func (w *TextWriter) GetInterval() time.Duration {
	return w.interval
}

func (w *TextWriter) Write(payload interface{}, timestamp string) error {
	switch batch := payload.(type) {
	case []*model.WindowSnapshot:
		return w.writeWindows(batch, timestamp)
	case []*model.Alert:
		return w.writeAlerts(batch, timestamp)
	default:
		return fmt.Errorf("invalid payload type for TextWriter: got %T", payload)
	}
}

func (w *TextWriter) writeWindows(windows []*model.WindowSnapshot, timestamp string) error {
	file, err := w.create(timestamp, "windows.txt")
	if err != nil {
		return err
	}
	defer file.Close()

	for _, snap := range windows {
		line := fmt.Sprintf("%s window=%.0fms pps=%.0f mbps=%.2f tcp=%.2f udp=%.2f icmp=%.2f syn=%.2f frag=%.2f avg_size=%.0f attack_pps=%.0f sources=%.0f hh=%d dropped=%d\n",
			snap.Timestamp.Format("2006-01-02 15:04:05.000"),
			snap.WindowSec*1000, snap.PPS, snap.Mbps,
			snap.TCPRatio, snap.UDPRatio, snap.ICMPRatio, snap.SYNRatio, snap.FragRatio,
			snap.AvgPacketSize, snap.AttackPPS, snap.UniqueAttackSources,
			snap.HeavyHitterCount, snap.DroppedEvents)
		if _, err := file.WriteString(line); err != nil {
			return fmt.Errorf("failed to write window snapshot to file: %w", err)
		}
	}

	log.Printf("Successfully wrote %d window snapshots to %s\n", len(windows), file.Name())
	return nil
}

func (w *TextWriter) writeAlerts(alerts []*model.Alert, timestamp string) error {
	file, err := w.create(timestamp, "alerts.txt")
	if err != nil {
		return err
	}
	defer file.Close()

	for _, alert := range alerts {
		line := fmt.Sprintf("%s [%s] threshold=%s latency=%s %s",
			alert.Timestamp.Format("2006-01-02 15:04:05.000"),
			alert.FinalLevel, alert.ThresholdLevel, alert.Latency, alert.Reason())
		if alert.MLLabel != "" {
			line += fmt.Sprintf(" ml=%s(%.2f)", alert.MLLabel, alert.MLConfidence)
		}
		if _, err := file.WriteString(line + "\n"); err != nil {
			return fmt.Errorf("failed to write alert to file: %w", err)
		}
	}

	log.Printf("Successfully wrote %d alerts to %s\n", len(alerts), file.Name())
	return nil
}

func (w *TextWriter) create(timestamp, name string) (*os.File, error) {
	dir := filepath.Join(w.rootPath, timestamp)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	filePath := filepath.Join(dir, name)
	file, err := os.Create(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to create output file '%s': %w", filePath, err)
	}
	return file, nil
}
