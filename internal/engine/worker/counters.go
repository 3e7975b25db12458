package worker

import "sync/atomic"

// CounterBlock is the set of cumulative traffic counters owned by one
// worker. The owning worker is the only writer; the coordinator reads with
// plain atomic loads. One field per concern keeps the hot path to plain
// single-writer increments with no read-modify-write contention.
type CounterBlock struct {
	TotalPackets    atomic.Uint64
	TotalBytes      atomic.Uint64
	TCPPackets      atomic.Uint64
	UDPPackets      atomic.Uint64
	ICMPPackets     atomic.Uint64
	SYNPackets      atomic.Uint64
	ACKPackets      atomic.Uint64
	RSTPackets      atomic.Uint64
	FINPackets      atomic.Uint64
	FragPackets     atomic.Uint64
	HTTPRequests    atomic.Uint64
	DNSQueries      atomic.Uint64
	BaselinePackets atomic.Uint64
	AttackPackets   atomic.Uint64

	// Pad to a cache line multiple so adjacent blocks never share a line.
	_ [16]byte
}

// Counters is a plain copy of a counter block, used for snapshots, sums and
// deltas on the coordinator side.
type Counters struct {
	TotalPackets    uint64
	TotalBytes      uint64
	TCPPackets      uint64
	UDPPackets      uint64
	ICMPPackets     uint64
	SYNPackets      uint64
	ACKPackets      uint64
	RSTPackets      uint64
	FINPackets      uint64
	FragPackets     uint64
	HTTPRequests    uint64
	DNSQueries      uint64
	BaselinePackets uint64
	AttackPackets   uint64
}

// Load copies the current counter values.
func (b *CounterBlock) Load() Counters {
	return Counters{
		TotalPackets:    b.TotalPackets.Load(),
		TotalBytes:      b.TotalBytes.Load(),
		TCPPackets:      b.TCPPackets.Load(),
		UDPPackets:      b.UDPPackets.Load(),
		ICMPPackets:     b.ICMPPackets.Load(),
		SYNPackets:      b.SYNPackets.Load(),
		ACKPackets:      b.ACKPackets.Load(),
		RSTPackets:      b.RSTPackets.Load(),
		FINPackets:      b.FINPackets.Load(),
		FragPackets:     b.FragPackets.Load(),
		HTTPRequests:    b.HTTPRequests.Load(),
		DNSQueries:      b.DNSQueries.Load(),
		BaselinePackets: b.BaselinePackets.Load(),
		AttackPackets:   b.AttackPackets.Load(),
	}
}

// Add accumulates other into c.
func (c *Counters) Add(other Counters) {
	c.TotalPackets += other.TotalPackets
	c.TotalBytes += other.TotalBytes
	c.TCPPackets += other.TCPPackets
	c.UDPPackets += other.UDPPackets
	c.ICMPPackets += other.ICMPPackets
	c.SYNPackets += other.SYNPackets
	c.ACKPackets += other.ACKPackets
	c.RSTPackets += other.RSTPackets
	c.FINPackets += other.FINPackets
	c.FragPackets += other.FragPackets
	c.HTTPRequests += other.HTTPRequests
	c.DNSQueries += other.DNSQueries
	c.BaselinePackets += other.BaselinePackets
	c.AttackPackets += other.AttackPackets
}

// Sub returns the delta c - prev. Counters only grow, so the delta is never
// negative when prev is an earlier snapshot of the same blocks.
func (c Counters) Sub(prev Counters) Counters {
	return Counters{
		TotalPackets:    c.TotalPackets - prev.TotalPackets,
		TotalBytes:      c.TotalBytes - prev.TotalBytes,
		TCPPackets:      c.TCPPackets - prev.TCPPackets,
		UDPPackets:      c.UDPPackets - prev.UDPPackets,
		ICMPPackets:     c.ICMPPackets - prev.ICMPPackets,
		SYNPackets:      c.SYNPackets - prev.SYNPackets,
		ACKPackets:      c.ACKPackets - prev.ACKPackets,
		RSTPackets:      c.RSTPackets - prev.RSTPackets,
		FragPackets:     c.FragPackets - prev.FragPackets,
		HTTPRequests:    c.HTTPRequests - prev.HTTPRequests,
		DNSQueries:      c.DNSQueries - prev.DNSQueries,
		BaselinePackets: c.BaselinePackets - prev.BaselinePackets,
		AttackPackets:   c.AttackPackets - prev.AttackPackets,
		FINPackets:      c.FINPackets - prev.FINPackets,
	}
}
