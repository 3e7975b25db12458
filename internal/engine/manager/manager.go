package manager

import (
	"fmt"
	"log"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"FloodSentry/internal/ai"
	"FloodSentry/internal/alerter"
	"FloodSentry/internal/config"
	"FloodSentry/internal/engine/classify"
	"FloodSentry/internal/engine/fusion"
	"FloodSentry/internal/engine/rules"
	"FloodSentry/internal/engine/sketch"
	"FloodSentry/internal/engine/worker"
	"FloodSentry/internal/factory"
	"FloodSentry/internal/metrics"
	"FloodSentry/internal/ml"
	"FloodSentry/internal/model"
	"FloodSentry/internal/notification"
	_ "FloodSentry/internal/writer" // Registers the text and clickhouse writers
)

const (
	defaultInterval     = 50 * time.Millisecond
	defaultMinWindow    = 20 * time.Millisecond
	defaultResetCycle   = 5 * time.Second
	defaultQueueSize    = 8192
	defaultChannelSize  = 65536
	defaultSampleEvery  = 20
	defaultHeavyPackets = 1000
	defaultTopK         = 10
)

var defaultHTTPPorts = []uint16{80, 8080}

// writerState pairs a writer with its pending output so every writer flushes
// the full stream on its own interval.
type writerState struct {
	writer  model.Writer
	mu      sync.Mutex
	windows []*model.WindowSnapshot
	alerts  []*model.Alert
}

// Manager orchestrates the worker pool, the window coordinator, detection and
// the output writers. It implements model.Engine.
type Manager struct {
	workers []*worker.Worker
	events  chan *model.FlowEvent

	epoch       atomic.Uint64
	firstAttack atomic.Int64
	dropped     atomic.Uint64
	pool        *sync.Pool

	// Merged attack sketches, accumulated over one reset cycle. Owned by
	// the coordinator goroutine.
	digest         *worker.SketchSet
	heavyThreshold uint64
	topK           int

	detector *fusion.Detector
	alerter  *alerter.Alerter
	writers  []*writerState

	interval    time.Duration
	minWindow   time.Duration
	resetCycle  time.Duration
	sampleEvery uint64

	// Coordinator state between windows; only the coordinator touches it.
	prev           worker.Counters
	lastWindowTime time.Time
	lastReset      time.Time
	windowCount    uint64

	mu         sync.RWMutex
	lastWindow *model.WindowSnapshot
	startedAt  time.Time

	done        chan struct{}
	writersDone chan struct{}
	dispatchWg  sync.WaitGroup
	workerWg    sync.WaitGroup
	coordWg     sync.WaitGroup
	writerWg    sync.WaitGroup
}

// NewManager wires the full detection pipeline from the configuration.
func NewManager(cfg *config.Config) (*Manager, error) {
	interval, err := parseDuration(cfg.Engine.DetectionInterval, defaultInterval)
	if err != nil {
		return nil, fmt.Errorf("invalid detection_interval: %w", err)
	}
	minWindow, err := parseDuration(cfg.Engine.MinWindow, defaultMinWindow)
	if err != nil {
		return nil, fmt.Errorf("invalid min_window: %w", err)
	}
	resetCycle, err := parseDuration(cfg.Engine.SketchResetInterval, defaultResetCycle)
	if err != nil {
		return nil, fmt.Errorf("invalid sketch_reset_interval: %w", err)
	}

	numWorkers := cfg.Engine.NumWorkers
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}
	queueSize := cfg.Engine.WorkerQueueSize
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	channelSize := cfg.Engine.SizeOfEventChannel
	if channelSize <= 0 {
		channelSize = defaultChannelSize
	}
	sampleEvery := uint64(defaultSampleEvery)
	if cfg.Engine.WindowSampleEvery > 0 {
		sampleEvery = uint64(cfg.Engine.WindowSampleEvery)
	}
	httpPorts := cfg.Engine.HTTPPorts
	if len(httpPorts) == 0 {
		httpPorts = defaultHTTPPorts
	}
	heavyThreshold := cfg.Sketch.HeavyHitterThreshold
	if heavyThreshold == 0 {
		heavyThreshold = defaultHeavyPackets
	}
	topK := cfg.Sketch.TopK
	if topK <= 0 {
		topK = defaultTopK
	}

	classifier, err := classify.NewClassifier(cfg.Engine.Classifier)
	if err != nil {
		return nil, fmt.Errorf("invalid classifier networks: %w", err)
	}
	if classifier.Empty() {
		classifier = nil
	}

	// A missing or broken model is not fatal: detection degrades to
	// threshold-only.
	var mlClassifier ml.Classifier
	if cfg.ML.Enabled {
		gbdt := ml.NewGBDT()
		if err := gbdt.Load(cfg.ML.ModelPath); err != nil {
			log.Printf("ML model could not be loaded, continuing threshold-only: %v", err)
		} else {
			mlClassifier = gbdt
			log.Printf("ML model loaded from %s (classes: %v)", cfg.ML.ModelPath, gbdt.Labels())
		}
	}

	writers, err := factory.Create(cfg.Writers)
	if err != nil {
		return nil, err
	}

	m := &Manager{
		events: make(chan *model.FlowEvent, channelSize),
		pool:   worker.NewSketchPool(cfg.Sketch.Width, cfg.Sketch.Depth),
		digest: &worker.SketchSet{
			Octo:    sketch.NewOctoSketch(cfg.Sketch.Width, cfg.Sketch.Depth),
			Sources: sketch.NewHyperLogLog(),
		},
		heavyThreshold: heavyThreshold,
		topK:           topK,
		interval:       interval,
		minWindow:      minWindow,
		resetCycle:     resetCycle,
		sampleEvery:    sampleEvery,
		done:           make(chan struct{}),
		writersDone:    make(chan struct{}),
	}

	params := worker.Params{
		QueueSize:   queueSize,
		Pool:        m.pool,
		Epoch:       &m.epoch,
		FirstAttack: &m.firstAttack,
		SampleRate:  cfg.Engine.SampleRate,
		HTTPPorts:   httpPorts,
		Classifier:  classifier,
	}
	m.workers = make([]*worker.Worker, numWorkers)
	for i := range m.workers {
		m.workers[i] = worker.New(i, params)
	}

	m.detector = fusion.NewDetector(rules.NewTable(cfg.Rules), mlClassifier, cfg.ML.ConfidenceThreshold, &m.firstAttack)

	for _, w := range writers {
		m.writers = append(m.writers, &writerState{writer: w})
	}

	var notifier model.Notifier
	if cfg.Alerter.SMTP.Enabled && cfg.Alerter.SMTP.Host != "" {
		notifier = notification.NewEmailNotifier(cfg.Alerter.SMTP)
	}
	var analyzer model.Analyzer
	if cfg.Alerter.AI.Enabled {
		an, err := ai.NewAlertAnalyzer(&cfg.Alerter.AI)
		if err != nil {
			log.Printf("AI analysis disabled: %v", err)
		} else {
			analyzer = an
		}
	}
	if notifier != nil || cfg.Alerter.NATS.Enabled {
		m.alerter, err = alerter.NewAlerter(&cfg.Alerter, notifier, analyzer)
		if err != nil {
			return nil, fmt.Errorf("failed to create alerter: %w", err)
		}
		log.Println("Alerter enabled and initialized.")
	}

	return m, nil
}

func parseDuration(s string, def time.Duration) (time.Duration, error) {
	if s == "" {
		return def, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("duration must be positive, got %s", d)
	}
	return d, nil
}

// Start launches the workers, the dispatcher, the window coordinator and the
// writer flush loops.
func (m *Manager) Start() {
	now := time.Now()
	m.mu.Lock()
	m.startedAt = now
	m.mu.Unlock()
	m.lastWindowTime = now
	m.lastReset = now

	m.workerWg.Add(len(m.workers))
	for _, w := range m.workers {
		go func(w *worker.Worker) {
			defer m.workerWg.Done()
			w.Run()
		}(w)
	}

	m.dispatchWg.Add(1)
	go m.dispatch()

	m.coordWg.Add(1)
	go m.runCoordinator()

	for _, ws := range m.writers {
		m.writerWg.Add(1)
		go m.runWriter(ws)
		log.Printf("Started writer flush loop with interval %s.", ws.writer.GetInterval())
	}

	if m.alerter != nil {
		m.alerter.Start()
	}

	log.Printf("Engine started with %d workers, %s detection interval.", len(m.workers), m.interval)
}

// Stop shuts the pipeline down in order: input, workers, a final window,
// writers, alerter.
func (m *Manager) Stop() {
	log.Println("Engine stopping...")

	// 1. Stop accepting new events; the dispatcher closes the worker queues.
	close(m.events)
	m.dispatchWg.Wait()

	// 2. Wait for all workers to finish processing buffered events.
	log.Println("Waiting for workers to finish...")
	m.workerWg.Wait()

	// 3. Stop the coordinator; it evaluates one final window on the way out.
	close(m.done)
	m.coordWg.Wait()

	// 4. Only now flush the writers, so the final window is included.
	close(m.writersDone)
	m.writerWg.Wait()

	// 5. Stop the alerter last so the final window's alert still goes out.
	if m.alerter != nil {
		m.alerter.Stop()
	}

	log.Println("Engine stopped.")
}

// Input returns the channel to which flow events are sent.
func (m *Manager) Input() chan<- *model.FlowEvent {
	return m.events
}

// dispatch fans events from the input channel out to the worker queues
// round-robin. A full queue drops the event rather than blocking the stream.
func (m *Manager) dispatch() {
	defer m.dispatchWg.Done()

	i := 0
	for ev := range m.events {
		if !m.workers[i].Enqueue(ev) {
			m.dropped.Add(1)
			metrics.EventsDropped.Inc()
		}
		if i++; i == len(m.workers) {
			i = 0
		}
	}

	for _, w := range m.workers {
		w.Close()
	}
}

func (m *Manager) runCoordinator() {
	defer m.coordWg.Done()

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.evaluateWindow(time.Now())
		case <-m.done:
			// Evaluate one final window so nothing observed since the last
			// tick is lost.
			m.evaluateWindow(time.Now())
			return
		}
	}
}

// evaluateWindow runs one detection cycle: counter deltas, rates, sketch
// collection, rule evaluation and fusion. Windows shorter than the minimum
// are skipped without touching any state.
func (m *Manager) evaluateWindow(now time.Time) {
	elapsed := now.Sub(m.lastWindowTime)
	if elapsed < m.minWindow {
		metrics.WindowsSkipped.Inc()
		return
	}

	var total worker.Counters
	for _, w := range m.workers {
		c := w.Counters()
		total.Add(c)
	}
	delta := total.Sub(m.prev)

	// Age out the accumulated attack sources once per reset cycle.
	if now.Sub(m.lastReset) >= m.resetCycle {
		m.digest.Reset()
		m.lastReset = now
	}

	// Collect the sketch sets the workers rotated since the last bump. Sets
	// not yet rotated surface next window; nothing is lost.
	for _, w := range m.workers {
		set := w.TakeRetired()
		if set == nil {
			continue
		}
		if err := m.digest.Octo.Merge(set.Octo); err != nil {
			log.Printf("Sketch merge failed: %v", err)
		}
		m.digest.Sources.Merge(set.Sources)
		set.Reset()
		m.pool.Put(set)
		metrics.SketchCollections.Inc()
	}

	snap := m.buildSnapshot(now, elapsed.Seconds(), delta, total)

	if delta.AttackPackets > 0 {
		// Ask the workers to rotate so the next collection sees this
		// window's attack sources.
		m.epoch.Add(1)

		snap.UniqueAttackSources = m.digest.Sources.Estimate()
		snap.HeavyHitterCount = m.digest.Octo.HeavyCount(m.heavyThreshold)
		for _, h := range m.digest.Octo.TopK(m.topK, m.heavyThreshold) {
			snap.TopSources = append(snap.TopSources, model.HeavySource{
				Index:    h.Index,
				Source:   h.Source,
				Count:    h.Count,
				Estimate: h.Estimate,
			})
		}
	}

	m.windowCount++
	m.prev = total
	m.lastWindowTime = now

	metrics.WindowsEvaluated.Inc()
	metrics.EventsProcessed.Add(float64(delta.TotalPackets))
	metrics.PacketRate.Set(snap.PPS)
	metrics.BitRate.Set(snap.Mbps)
	metrics.AttackPacketRate.Set(snap.AttackPPS)
	metrics.AttackSources.Set(snap.UniqueAttackSources)

	alert := m.detector.Evaluate(now, snap)
	if alert != nil {
		log.Printf("ALERT [%s] %s", alert.FinalLevel, alert.Reason())
		metrics.AlertsTotal.WithLabelValues(alert.FinalLevel.String()).Inc()
		metrics.AlertLevel.Set(float64(alert.FinalLevel))
		if alert.Latency > 0 {
			metrics.DetectionLatency.Observe(alert.Latency.Seconds())
		}
		if m.alerter != nil {
			m.alerter.Deliver(alert)
		}
	} else {
		metrics.AlertLevel.Set(0)
	}

	sampled := m.windowCount%m.sampleEvery == 0
	for _, ws := range m.writers {
		ws.add(snap, alert, sampled)
	}

	m.mu.Lock()
	m.lastWindow = snap
	m.mu.Unlock()
}

func (m *Manager) buildSnapshot(now time.Time, sec float64, delta, total worker.Counters) *model.WindowSnapshot {
	snap := &model.WindowSnapshot{
		Timestamp: now,
		WindowSec: sec,

		Packets:         delta.TotalPackets,
		Bytes:           delta.TotalBytes,
		TCPPackets:      delta.TCPPackets,
		UDPPackets:      delta.UDPPackets,
		ICMPPackets:     delta.ICMPPackets,
		SYNPackets:      delta.SYNPackets,
		ACKPackets:      delta.ACKPackets,
		RSTPackets:      delta.RSTPackets,
		FINPackets:      delta.FINPackets,
		FragPackets:     delta.FragPackets,
		HTTPRequests:    delta.HTTPRequests,
		DNSQueries:      delta.DNSQueries,
		BaselinePackets: delta.BaselinePackets,
		AttackPackets:   delta.AttackPackets,

		TotalPackets:  total.TotalPackets,
		TotalBytes:    total.TotalBytes,
		DroppedEvents: m.dropped.Load(),
	}

	if sec > 0 {
		snap.PPS = float64(delta.TotalPackets) / sec
		snap.BPS = float64(delta.TotalBytes) / sec
		snap.Mbps = snap.BPS * 8 / 1e6
		snap.TCPPPS = float64(delta.TCPPackets) / sec
		snap.UDPPPS = float64(delta.UDPPackets) / sec
		snap.ICMPPPS = float64(delta.ICMPPackets) / sec
		snap.SYNPPS = float64(delta.SYNPackets) / sec
		snap.HTTPRPS = float64(delta.HTTPRequests) / sec
		snap.DNSQPS = float64(delta.DNSQueries) / sec
		snap.AttackPPS = float64(delta.AttackPackets) / sec
	}

	if delta.TotalPackets > 0 {
		pkts := float64(delta.TotalPackets)
		snap.TCPRatio = float64(delta.TCPPackets) / pkts
		snap.UDPRatio = float64(delta.UDPPackets) / pkts
		snap.ICMPRatio = float64(delta.ICMPPackets) / pkts
		snap.FragRatio = float64(delta.FragPackets) / pkts
		snap.AttackRatio = float64(delta.AttackPackets) / pkts
		snap.AvgPacketSize = float64(delta.TotalBytes) / pkts
	}
	if delta.TCPPackets > 0 {
		tcp := float64(delta.TCPPackets)
		snap.SYNRatio = float64(delta.SYNPackets) / tcp
		snap.ACKRatio = float64(delta.ACKPackets) / tcp
		snap.RSTRatio = float64(delta.RSTPackets) / tcp
		snap.FINRatio = float64(delta.FINPackets) / tcp
	}

	return snap
}

// add queues the window output for this writer. Alerts are always kept;
// whole window snapshots only on the sampling cadence.
func (ws *writerState) add(snap *model.WindowSnapshot, alert *model.Alert, sampled bool) {
	if !sampled && alert == nil {
		return
	}
	ws.mu.Lock()
	if sampled {
		ws.windows = append(ws.windows, snap)
	}
	if alert != nil {
		ws.alerts = append(ws.alerts, alert)
	}
	ws.mu.Unlock()
}

// take hands the pending output to the flush loop.
func (ws *writerState) take() ([]*model.WindowSnapshot, []*model.Alert) {
	ws.mu.Lock()
	windows, alerts := ws.windows, ws.alerts
	ws.windows, ws.alerts = nil, nil
	ws.mu.Unlock()
	return windows, alerts
}

// runWriter flushes one writer's pending output on its interval, and once
// more on shutdown.
func (m *Manager) runWriter(ws *writerState) {
	defer m.writerWg.Done()

	interval := ws.writer.GetInterval()
	if interval <= 0 {
		log.Printf("Invalid interval %s for writer, flush loop will not run.", interval)
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.flush(ws)
		case <-m.writersDone:
			m.flush(ws)
			return
		}
	}
}

func (m *Manager) flush(ws *writerState) {
	windows, alerts := ws.take()
	if len(windows) == 0 && len(alerts) == 0 {
		return
	}
	timestamp := time.Now().Format("2006-01-02_15-04-05")

	if len(windows) > 0 {
		if err := ws.writer.Write(windows, timestamp); err != nil {
			log.Printf("Error writing window snapshots: %v", err)
		}
	}
	if len(alerts) > 0 {
		if err := ws.writer.Write(alerts, timestamp); err != nil {
			log.Printf("Error writing alerts: %v", err)
		}
	}
}
