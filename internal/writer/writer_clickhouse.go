package writer

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"FloodSentry/internal/config"
	"FloodSentry/internal/factory"
	"FloodSentry/internal/model"
)

const createWindowsTableStatement = `
CREATE TABLE IF NOT EXISTS fs_windows (
    Timestamp     DateTime64(3),
    WindowMS      Float64,
    Packets       UInt64,
    Bytes         UInt64,
    PPS           Float64,
    Mbps          Float64,
    TCPRatio      Float64,
    UDPRatio      Float64,
    ICMPRatio     Float64,
    SYNRatio      Float64,
    FragRatio     Float64,
    AvgPacketSize Float64,
    AttackPPS     Float64,
    AttackSources Float64,
    HeavyHitters  UInt32,
    Dropped       UInt64
) ENGINE = MergeTree()
PARTITION BY toYYYYMM(Timestamp)
ORDER BY Timestamp;
`

const createAlertsTableStatement = `
CREATE TABLE IF NOT EXISTS fs_alerts (
    Timestamp      DateTime64(3),
    Level          String,
    ThresholdLevel String,
    Rules          Array(String),
    Reason         String,
    MLLabel        String,
    MLConfidence   Float64,
    LatencyMS      Float64,
    PPS            Float64,
    AttackPPS      Float64,
    AttackSources  Float64
) ENGINE = MergeTree()
PARTITION BY toYYYYMM(Timestamp)
ORDER BY Timestamp;
`

func init() {
	factory.RegisterWriter("clickhouse", func(def config.WriterDef) (model.Writer, error) {
		interval, err := flushInterval(def)
		if err != nil {
			return nil, err
		}
		return NewClickHouseWriter(def.ClickHouse, interval)
	})
}

// ClickHouseWriter implements the model.Writer interface for ClickHouse.
type ClickHouseWriter struct {
	conn     driver.Conn
	interval time.Duration
}

// NewClickHouseWriter connects to ClickHouse and ensures the detection tables
// exist.
func NewClickHouseWriter(cfg config.ClickHouseConfig, interval time.Duration) (model.Writer, error) {
	conn, err := connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to clickhouse: %w", err)
	}

	if err := conn.Exec(context.Background(), createWindowsTableStatement); err != nil {
		return nil, fmt.Errorf("failed to create fs_windows table: %w", err)
	}
	if err := conn.Exec(context.Background(), createAlertsTableStatement); err != nil {
		return nil, fmt.Errorf("failed to create fs_alerts table: %w", err)
	}
	log.Println("Successfully connected to ClickHouse and ensured detection tables exist.")

	return &ClickHouseWriter{conn: conn, interval: interval}, nil
}

func (w *ClickHouseWriter) GetInterval() time.Duration {
	return w.interval
}

func connect(cfg config.ClickHouseConfig) (driver.Conn, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{cfg.Addr},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
	})

	if err != nil {
		return nil, err
	}

	if err := conn.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to ping clickhouse: %w", err)
	}

	return conn, nil
}

func (w *ClickHouseWriter) Write(payload interface{}, timestamp string) error {
	switch batch := payload.(type) {
	case []*model.WindowSnapshot:
		return w.writeWindows(batch)
	case []*model.Alert:
		return w.writeAlerts(batch)
	default:
		return fmt.Errorf("invalid payload type for ClickHouse writer: got %T", payload)
	}
}

func (w *ClickHouseWriter) writeWindows(windows []*model.WindowSnapshot) error {
	batch, err := w.conn.PrepareBatch(context.Background(), "INSERT INTO fs_windows")
	if err != nil {
		return fmt.Errorf("failed to prepare batch: %w", err)
	}

	for _, snap := range windows {
		err = batch.Append(
			snap.Timestamp,
			snap.WindowSec*1000,
			snap.Packets,
			snap.Bytes,
			snap.PPS,
			snap.Mbps,
			snap.TCPRatio,
			snap.UDPRatio,
			snap.ICMPRatio,
			snap.SYNRatio,
			snap.FragRatio,
			snap.AvgPacketSize,
			snap.AttackPPS,
			snap.UniqueAttackSources,
			uint32(snap.HeavyHitterCount),
			snap.DroppedEvents,
		)
		if err != nil {
			return fmt.Errorf("failed to append window snapshot to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("failed to send batch: %w", err)
	}

	log.Printf("Wrote %d window snapshots to ClickHouse", len(windows))
	return nil
}

func (w *ClickHouseWriter) writeAlerts(alerts []*model.Alert) error {
	batch, err := w.conn.PrepareBatch(context.Background(), "INSERT INTO fs_alerts")
	if err != nil {
		return fmt.Errorf("failed to prepare batch: %w", err)
	}

	for _, alert := range alerts {
		var pps, attackPPS, sources float64
		if snap := alert.Snapshot; snap != nil {
			pps = snap.PPS
			attackPPS = snap.AttackPPS
			sources = snap.UniqueAttackSources
		}
		err = batch.Append(
			alert.Timestamp,
			alert.FinalLevel.String(),
			alert.ThresholdLevel.String(),
			alert.Rules,
			alert.Reason(),
			alert.MLLabel,
			alert.MLConfidence,
			float64(alert.Latency.Microseconds())/1000,
			pps,
			attackPPS,
			sources,
		)
		if err != nil {
			return fmt.Errorf("failed to append alert to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("failed to send batch: %w", err)
	}

	log.Printf("Wrote %d alerts to ClickHouse", len(alerts))
	return nil
}
