package worker

import (
	"sync"
	"sync/atomic"

	"FloodSentry/internal/engine/classify"
	"FloodSentry/internal/engine/sketch"
	"FloodSentry/internal/model"
)

// SketchSet is the pair of attack source sketches a worker fills between two
// window collections.
type SketchSet struct {
	Octo    *sketch.OctoSketch
	Sources *sketch.HyperLogLog
}

// Reset zeroes both sketches.
func (s *SketchSet) Reset() {
	s.Octo.Reset()
	s.Sources.Reset()
}

// NewSketchPool returns a pool producing sketch sets with the given grid
// dimensions. Workers and the coordinator recycle sets through it so window
// collection does not allocate.
func NewSketchPool(width, depth uint32) *sync.Pool {
	return &sync.Pool{
		New: func() interface{} {
			return &SketchSet{
				Octo:    sketch.NewOctoSketch(width, depth),
				Sources: sketch.NewHyperLogLog(),
			}
		},
	}
}

// Params bundles the shared state every worker is wired to.
type Params struct {
	QueueSize   int
	Pool        *sync.Pool
	Epoch       *atomic.Uint64 // bumped by the coordinator at each window tick
	FirstAttack *atomic.Int64  // unix nanos of the first attack packet, CAS'd once
	SampleRate  uint32         // sketch update sampling, 1 = every packet
	HTTPPorts   []uint16
	Classifier  *classify.Classifier // optional re-tagging of unknown events
}

// Worker owns one counter block and one sketch set exclusively. Events reach
// it over its own queue, so no lock is taken and no shared cache line is
// written on the hot path.
type Worker struct {
	id     int
	events chan *model.FlowEvent
	block  CounterBlock

	active  *SketchSet
	retired atomic.Pointer[SketchSet]

	epoch       *atomic.Uint64
	seenEpoch   uint64
	pool        *sync.Pool
	firstAttack *atomic.Int64
	sampleRate  uint32
	sampleCnt   uint32
	httpPorts   []uint16
	classifier  *classify.Classifier
}

// New creates a worker. Its queue is created here; the manager fans events
// into it and closes it on shutdown.
func New(id int, p Params) *Worker {
	rate := p.SampleRate
	if rate == 0 {
		rate = 1
	}
	return &Worker{
		id:          id,
		events:      make(chan *model.FlowEvent, p.QueueSize),
		active:      p.Pool.Get().(*SketchSet),
		epoch:       p.Epoch,
		pool:        p.Pool,
		firstAttack: p.FirstAttack,
		sampleRate:  rate,
		httpPorts:   p.HTTPPorts,
		classifier:  p.Classifier,
	}
}

// Enqueue hands an event to the worker without blocking. It reports whether
// the event was accepted; callers count the drops.
func (w *Worker) Enqueue(ev *model.FlowEvent) bool {
	select {
	case w.events <- ev:
		return true
	default:
		return false
	}
}

// Close closes the worker's queue. Run drains what is left and returns.
func (w *Worker) Close() {
	close(w.events)
}

// Run drains the worker's queue until it is closed.
func (w *Worker) Run() {
	for ev := range w.events {
		w.ProcessEvent(ev)
	}
}

// ProcessEvent updates the worker's counters and, for attack traffic, its
// sketches. Only the owning goroutine may call it.
func (w *Worker) ProcessEvent(ev *model.FlowEvent) {
	if e := w.epoch.Load(); e != w.seenEpoch {
		w.rotate(e)
	}

	w.block.TotalPackets.Add(1)
	w.block.TotalBytes.Add(uint64(ev.Length))

	switch ev.Protocol {
	case model.ProtoTCP:
		w.block.TCPPackets.Add(1)
		if ev.TCPFlags&model.FlagSYN != 0 {
			w.block.SYNPackets.Add(1)
		}
		if ev.TCPFlags&model.FlagACK != 0 {
			w.block.ACKPackets.Add(1)
		}
		if ev.TCPFlags&model.FlagRST != 0 {
			w.block.RSTPackets.Add(1)
		}
		if ev.TCPFlags&model.FlagFIN != 0 {
			w.block.FINPackets.Add(1)
		}
		if w.isHTTPPort(ev.DstPort) {
			w.block.HTTPRequests.Add(1)
		}
	case model.ProtoUDP:
		w.block.UDPPackets.Add(1)
		if ev.DstPort == 53 {
			w.block.DNSQueries.Add(1)
		}
	case model.ProtoICMP:
		w.block.ICMPPackets.Add(1)
	}

	if ev.Fragment {
		w.block.FragPackets.Add(1)
	}

	class := ev.Class
	if class == model.ClassUnknown && w.classifier != nil {
		class = w.classifier.Classify(ev.SrcIP)
	}
	switch class {
	case model.ClassBaseline:
		w.block.BaselinePackets.Add(1)
	case model.ClassAttack:
		w.block.AttackPackets.Add(1)
		w.observeAttack(ev)
	}
}

func (w *Worker) isHTTPPort(port uint16) bool {
	for _, p := range w.httpPorts {
		if p == port {
			return true
		}
	}
	return false
}

func (w *Worker) observeAttack(ev *model.FlowEvent) {
	if w.firstAttack.Load() == 0 {
		w.firstAttack.CompareAndSwap(0, ev.Timestamp.UnixNano())
	}

	// The cardinality estimator sees every attack packet; the heavier grid
	// update is sampled with weight compensation.
	w.active.Sources.AddUint32(ev.SrcIP)
	w.sampleCnt++
	if w.sampleCnt >= w.sampleRate {
		w.active.Octo.UpdateWeighted(ev.SrcIP, w.sampleRate, w.sampleRate*ev.Length)
		w.sampleCnt = 0
	}
}

// rotate publishes the active sketch set for collection and starts a fresh
// one. If the previous set has not been collected yet the worker keeps
// accumulating into the active set; nothing is dropped, the counts surface
// one window later.
func (w *Worker) rotate(epoch uint64) {
	w.seenEpoch = epoch
	if w.retired.Load() == nil {
		w.retired.Store(w.active)
		w.active = w.pool.Get().(*SketchSet)
	}
}

// TakeRetired removes and returns the worker's retired sketch set, or nil if
// the worker has not rotated since the last collection. Only the coordinator
// calls it.
func (w *Worker) TakeRetired() *SketchSet {
	return w.retired.Swap(nil)
}

// Counters returns a snapshot of the worker's counter block.
func (w *Worker) Counters() Counters {
	return w.block.Load()
}
