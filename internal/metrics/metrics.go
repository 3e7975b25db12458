// Package metrics declares the Prometheus collectors shared by the engine
// components. Collectors are registered on the default registry; the engine
// binary exposes them through promhttp.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	EventsProcessed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "floodsentry_events_processed_total",
			Help: "Total number of flow events processed by the worker pool.",
		},
	)
	EventsDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "floodsentry_events_dropped_total",
			Help: "Total number of flow events dropped because a worker queue was full.",
		},
	)
	WindowsEvaluated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "floodsentry_windows_evaluated_total",
			Help: "Total number of detection windows evaluated.",
		},
	)
	WindowsSkipped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "floodsentry_windows_skipped_total",
			Help: "Total number of window ticks skipped because the elapsed time was below the minimum.",
		},
	)
	SketchCollections = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "floodsentry_sketch_collections_total",
			Help: "Total number of worker sketch sets collected and merged by the coordinator.",
		},
	)
	AlertsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "floodsentry_alerts_total",
			Help: "Total number of alerts raised, by final severity.",
		},
		[]string{"severity"},
	)

	PacketRate = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "floodsentry_window_packets_per_second",
			Help: "Packet rate observed in the last evaluated window.",
		},
	)
	BitRate = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "floodsentry_window_megabits_per_second",
			Help: "Bit rate observed in the last evaluated window.",
		},
	)
	AttackPacketRate = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "floodsentry_window_attack_packets_per_second",
			Help: "Attack-classified packet rate observed in the last evaluated window.",
		},
	)
	AttackSources = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "floodsentry_attack_sources_estimate",
			Help: "Estimated number of distinct attack sources in the current sketch cycle.",
		},
	)
	AlertLevel = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "floodsentry_alert_level",
			Help: "Current alert level (0=NONE 1=LOW 2=MEDIUM 3=HIGH 4=CRITICAL 5=ANOMALY).",
		},
	)

	DetectionLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "floodsentry_detection_latency_seconds",
			Help:    "Latency from attack start (or previous detection) to detection.",
			Buckets: []float64{0.02, 0.03, 0.04, 0.05},
		},
	)
	MLInference = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "floodsentry_ml_inference_seconds",
			Help:    "Duration of one ML classifier inference.",
			Buckets: prometheus.ExponentialBuckets(0.00001, 4, 8),
		},
	)
)
