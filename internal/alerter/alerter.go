package alerter

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/gomarkdown/markdown"
	"github.com/nats-io/nats.go"

	"FloodSentry/internal/config"
	"FloodSentry/internal/model"
)

const (
	defaultCooldown = 10 * time.Second
	queueSize       = 64
	aiTimeout       = 60 * time.Second
)

// Alerter consumes alerts raised by the detection engine and delivers them:
// every alert is published to the NATS alert subject, and notifications go
// out through the configured notifier under a cooldown so a sustained attack
// does not flood the recipients.
type Alerter struct {
	cooldown time.Duration
	notifier model.Notifier
	analyzer model.Analyzer

	nc      *nats.Conn
	subject string

	alerts chan *model.Alert
	wg     sync.WaitGroup

	// Notification suppression state, touched only by the run goroutine.
	lastSent  time.Time
	lastLevel model.Severity
}

// NewAlerter creates a new Alerter instance. Notifier and analyzer may be nil;
// the NATS connection is made only when the alert bus is enabled.
func NewAlerter(cfg *config.AlerterConfig, notifier model.Notifier, analyzer model.Analyzer) (*Alerter, error) {
	cooldown := defaultCooldown
	if cfg.Cooldown != "" {
		var err error
		cooldown, err = time.ParseDuration(cfg.Cooldown)
		if err != nil {
			return nil, fmt.Errorf("invalid cooldown for alerter: %w", err)
		}
	}

	a := &Alerter{
		cooldown: cooldown,
		notifier: notifier,
		analyzer: analyzer,
		alerts:   make(chan *model.Alert, queueSize),
	}

	if cfg.NATS.Enabled {
		nc, err := nats.Connect(cfg.NATS.URL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to NATS for alert publishing: %w", err)
		}
		log.Printf("Alerter connected to NATS server at %s", cfg.NATS.URL)
		a.nc = nc
		a.subject = cfg.NATS.Subject
	}

	return a, nil
}

// Start begins consuming alerts.
func (a *Alerter) Start() {
	a.wg.Add(1)
	go a.run()
	log.Println("Alerter started")
}

// Stop drains the alert queue and closes the NATS connection.
func (a *Alerter) Stop() {
	log.Println("Stopping Alerter...")
	close(a.alerts)
	a.wg.Wait()
	if a.nc != nil {
		a.nc.Drain()
	}
	log.Println("Alerter stopped.")
}

// Deliver hands an alert to the alerter without blocking the detection loop.
func (a *Alerter) Deliver(alert *model.Alert) {
	select {
	case a.alerts <- alert:
	default:
		log.Printf("Alerter queue full, dropping %s alert", alert.FinalLevel)
	}
}

func (a *Alerter) run() {
	defer a.wg.Done()
	for alert := range a.alerts {
		a.handle(alert)
	}
}

func (a *Alerter) handle(alert *model.Alert) {
	if err := a.publish(alert); err != nil {
		log.Printf("Failed to publish alert to NATS: %v", err)
	}

	if a.notifier == nil {
		return
	}

	// An escalation goes out immediately; everything else waits out the
	// cooldown since the last notification.
	escalated := notifyRank(alert.FinalLevel) > notifyRank(a.lastLevel)
	if !escalated && time.Since(a.lastSent) < a.cooldown {
		return
	}

	body := renderHTML(alert)
	if analysis := a.analysis(alert); analysis != "" {
		body += analysis
	}

	if err := a.notifier.Send(subjectLine(alert), body); err != nil {
		log.Printf("ERROR: Failed to send alert notification: %v", err)
		return
	}
	log.Printf("Alert notification sent (%s)", alert.FinalLevel)
	a.lastSent = time.Now()
	a.lastLevel = alert.FinalLevel
}

// notifyRank orders severities for escalation decisions. An ML-only anomaly
// has no threshold corroboration, so it ranks with LOW rather than above
// CRITICAL where its enum value would put it.
func notifyRank(s model.Severity) int {
	switch s {
	case model.SeverityLow, model.SeverityAnomaly:
		return 1
	case model.SeverityMedium:
		return 2
	case model.SeverityHigh:
		return 3
	case model.SeverityCritical:
		return 4
	default:
		return 0
	}
}

// alertMessage is the JSON shape published on the alert subject.
type alertMessage struct {
	Time           time.Time   `json:"time"`
	Level          string      `json:"level"`
	ThresholdLevel string      `json:"threshold_level"`
	Rules          []string    `json:"rules,omitempty"`
	Reason         string      `json:"reason"`
	MLLabel        string      `json:"ml_label,omitempty"`
	MLConfidence   float64     `json:"ml_confidence,omitempty"`
	LatencyMS      float64     `json:"latency_ms"`
	PPS            float64     `json:"pps"`
	Mbps           float64     `json:"mbps"`
	AttackPPS      float64     `json:"attack_pps"`
	AttackSources  float64     `json:"attack_sources"`
	TopSources     []topSource `json:"top_sources,omitempty"`
}

type topSource struct {
	IP      string `json:"ip"`
	Packets uint64 `json:"packets"`
}

func (a *Alerter) publish(alert *model.Alert) error {
	if a.nc == nil {
		return nil
	}

	msg := alertMessage{
		Time:           alert.Timestamp,
		Level:          alert.FinalLevel.String(),
		ThresholdLevel: alert.ThresholdLevel.String(),
		Rules:          alert.Rules,
		Reason:         alert.Reason(),
		MLLabel:        alert.MLLabel,
		MLConfidence:   alert.MLConfidence,
		LatencyMS:      float64(alert.Latency.Microseconds()) / 1000,
	}
	if snap := alert.Snapshot; snap != nil {
		msg.PPS = snap.PPS
		msg.Mbps = snap.Mbps
		msg.AttackPPS = snap.AttackPPS
		msg.AttackSources = snap.UniqueAttackSources
		for _, s := range snap.TopSources {
			msg.TopSources = append(msg.TopSources, topSource{IP: model.FormatIP(s.Source), Packets: s.Count})
		}
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return a.nc.Publish(a.subject, data)
}

// analysis asks the AI analyzer for an assessment of the alert and renders
// its markdown answer as an HTML section.
func (a *Alerter) analysis(alert *model.Alert) string {
	if a.analyzer == nil {
		return ""
	}

	ctx, cancel := context.WithTimeout(context.Background(), aiTimeout)
	defer cancel()

	out, err := a.analyzer.AnalyzeAlert(ctx, reportText(alert))
	if err != nil {
		log.Printf("Failed to get AI analysis: %v", err)
		return ""
	}
	html := markdown.ToHTML([]byte(out), nil, nil)
	return "<hr><h2>AI-Powered Analysis</h2>" + string(html)
}

func subjectLine(alert *model.Alert) string {
	if len(alert.Rules) > 0 {
		return fmt.Sprintf("FloodSentry %s: %s", alert.FinalLevel, alert.Rules[0])
	}
	if alert.MLLabel != "" {
		return fmt.Sprintf("FloodSentry %s: %s", alert.FinalLevel, alert.MLLabel)
	}
	return fmt.Sprintf("FloodSentry %s alert", alert.FinalLevel)
}

func renderHTML(alert *model.Alert) string {
	var b strings.Builder
	b.WriteString("<h1>FloodSentry Detection Report</h1>")
	fmt.Fprintf(&b, "<p><b>Time:</b> %s<br>", alert.Timestamp.Format("2006-01-02 15:04:05.000"))
	fmt.Fprintf(&b, "<b>Severity:</b> %s (threshold engine: %s)<br>", alert.FinalLevel, alert.ThresholdLevel)
	if alert.MLLabel != "" {
		fmt.Fprintf(&b, "<b>Classifier:</b> %s (confidence %.2f)<br>", alert.MLLabel, alert.MLConfidence)
	}
	fmt.Fprintf(&b, "<b>Detection latency:</b> %s</p>", alert.Latency)

	if len(alert.Reasons) > 0 {
		b.WriteString("<h2>Triggered Rules</h2><ul>")
		for _, r := range alert.Reasons {
			fmt.Fprintf(&b, "<li>%s</li>", r)
		}
		b.WriteString("</ul>")
	}

	if snap := alert.Snapshot; snap != nil {
		b.WriteString("<h2>Traffic Window</h2>")
		fmt.Fprintf(&b, "<p>%.0f pps / %.2f Mbps over %.0f ms<br>", snap.PPS, snap.Mbps, snap.WindowSec*1000)
		fmt.Fprintf(&b, "TCP %.0f%% (SYN %.0f%% of TCP) / UDP %.0f%% / ICMP %.0f%%<br>",
			snap.TCPRatio*100, snap.SYNRatio*100, snap.UDPRatio*100, snap.ICMPRatio*100)
		fmt.Fprintf(&b, "Attack traffic: %.0f pps from about %.0f distinct sources</p>",
			snap.AttackPPS, snap.UniqueAttackSources)
		if len(snap.TopSources) > 0 {
			b.WriteString("<h2>Top Attack Sources</h2><ul>")
			for _, s := range snap.TopSources {
				fmt.Fprintf(&b, "<li>%s: %d packets</li>", model.FormatIP(s.Source), s.Count)
			}
			b.WriteString("</ul>")
		}
	}

	return b.String()
}

// reportText is the plain-text rendering fed to the AI analyzer.
func reportText(alert *model.Alert) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Severity: %s (threshold engine: %s)\n", alert.FinalLevel, alert.ThresholdLevel)
	if alert.MLLabel != "" {
		fmt.Fprintf(&b, "Classifier verdict: %s (confidence %.2f)\n", alert.MLLabel, alert.MLConfidence)
	}
	fmt.Fprintf(&b, "Detection latency: %s\n", alert.Latency)
	for _, r := range alert.Reasons {
		fmt.Fprintf(&b, "Rule: %s\n", r)
	}
	if snap := alert.Snapshot; snap != nil {
		fmt.Fprintf(&b, "Traffic: %.0f pps, %.2f Mbps, TCP ratio %.2f, UDP ratio %.2f, ICMP ratio %.2f, SYN ratio %.2f\n",
			snap.PPS, snap.Mbps, snap.TCPRatio, snap.UDPRatio, snap.ICMPRatio, snap.SYNRatio)
		fmt.Fprintf(&b, "Attack traffic: %.0f pps from about %.0f sources, %d heavy hitters\n",
			snap.AttackPPS, snap.UniqueAttackSources, snap.HeavyHitterCount)
		for _, s := range snap.TopSources {
			fmt.Fprintf(&b, "Top source %s: %d packets\n", model.FormatIP(s.Source), s.Count)
		}
	}
	return b.String()
}
