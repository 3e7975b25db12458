package query

import (
	"context"
	"fmt"
	"strings"
	"time"

	"FloodSentry/internal/config"

	"github.com/ClickHouse/clickhouse-go/v2"
)

const (
	defaultLimit = 100
	maxLimit     = 1000
)

// AlertQuery filters the alert history. Zero values mean "no constraint".
type AlertQuery struct {
	From     time.Time `json:"from"`
	To       time.Time `json:"to"`
	MinLevel string    `json:"min_level"` // LOW, MEDIUM, HIGH, CRITICAL or ANOMALY
	Rule     string    `json:"rule"`      // only alerts where this rule fired
	Limit    int       `json:"limit"`
}

// AlertRecord is one row of the alert history, as served by fs-api.
type AlertRecord struct {
	Timestamp      time.Time `json:"timestamp"`
	Level          string    `json:"level"`
	ThresholdLevel string    `json:"threshold_level"`
	Rules          []string  `json:"rules"`
	Reason         string    `json:"reason"`
	MLLabel        string    `json:"ml_label,omitempty"`
	MLConfidence   float64   `json:"ml_confidence,omitempty"`
	LatencyMS      float64   `json:"latency_ms"`
	PPS            float64   `json:"pps"`
	AttackPPS      float64   `json:"attack_pps"`
	AttackSources  float64   `json:"attack_sources"`
}

// Querier defines the read side of the alert store.
type Querier interface {
	QueryAlerts(ctx context.Context, q AlertQuery) ([]AlertRecord, error)
	RecentAlerts(ctx context.Context, limit int) ([]AlertRecord, error)
}

// clickhouseQuerier implements the Querier interface for ClickHouse.
type clickhouseQuerier struct {
	conn clickhouse.Conn
}

// NewClickHouseQuerier creates a new querier for ClickHouse.
func NewClickHouseQuerier(cfg config.ClickHouseConfig) (Querier, error) {
	conn, err := connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to clickhouse: %w", err)
	}
	return &clickhouseQuerier{conn: conn}, nil
}

func connect(cfg config.ClickHouseConfig) (clickhouse.Conn, error) {
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

// QueryAlerts builds and executes a filtered select over the alert history,
// newest first.
func (q *clickhouseQuerier) QueryAlerts(ctx context.Context, query AlertQuery) ([]AlertRecord, error) {
	var b strings.Builder
	b.WriteString(`
		SELECT
			Timestamp, Level, ThresholdLevel, Rules, Reason,
			MLLabel, MLConfidence, LatencyMS, PPS, AttackPPS, AttackSources
		FROM fs_alerts
	`)

	var whereClauses []string
	args := []interface{}{}

	if !query.From.IsZero() {
		whereClauses = append(whereClauses, "Timestamp >= ?")
		args = append(args, query.From)
	}
	if !query.To.IsZero() {
		whereClauses = append(whereClauses, "Timestamp <= ?")
		args = append(args, query.To)
	}
	if query.MinLevel != "" {
		levels, err := levelsAtOrAbove(query.MinLevel)
		if err != nil {
			return nil, err
		}
		placeholders := strings.TrimRight(strings.Repeat("?,", len(levels)), ",")
		whereClauses = append(whereClauses, fmt.Sprintf("Level IN (%s)", placeholders))
		for _, l := range levels {
			args = append(args, l)
		}
	}
	if query.Rule != "" {
		whereClauses = append(whereClauses, "has(Rules, ?)")
		args = append(args, query.Rule)
	}

	if len(whereClauses) > 0 {
		b.WriteString(" WHERE " + strings.Join(whereClauses, " AND "))
	}

	limit := query.Limit
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	b.WriteString(" ORDER BY Timestamp DESC LIMIT ?")
	args = append(args, limit)

	rows, err := q.conn.Query(ctx, b.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer rows.Close()

	var records []AlertRecord
	for rows.Next() {
		var rec AlertRecord
		if err := rows.Scan(
			&rec.Timestamp, &rec.Level, &rec.ThresholdLevel, &rec.Rules, &rec.Reason,
			&rec.MLLabel, &rec.MLConfidence, &rec.LatencyMS, &rec.PPS, &rec.AttackPPS, &rec.AttackSources,
		); err != nil {
			return nil, fmt.Errorf("failed to scan alert row: %w", err)
		}
		records = append(records, rec)
	}

	return records, nil
}

// RecentAlerts returns the latest alerts without any filter.
func (q *clickhouseQuerier) RecentAlerts(ctx context.Context, limit int) ([]AlertRecord, error) {
	return q.QueryAlerts(ctx, AlertQuery{Limit: limit})
}

// levelsAtOrAbove expands a minimum level into the set of level names to
// match. ANOMALY ranks with LOW: an ML-only verdict on a window no rule
// fired on.
func levelsAtOrAbove(min string) ([]string, error) {
	ranks := map[string]int{
		"LOW":      1,
		"ANOMALY":  1,
		"MEDIUM":   2,
		"HIGH":     3,
		"CRITICAL": 4,
	}
	minRank, ok := ranks[strings.ToUpper(min)]
	if !ok {
		return nil, fmt.Errorf("unknown alert level: '%s'", min)
	}
	var levels []string
	for name, rank := range ranks {
		if rank >= minRank {
			levels = append(levels, name)
		}
	}
	return levels, nil
}
