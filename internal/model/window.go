package model

import "time"

// HeavySource is one entry of the per-source heavy hitter table. Sources are
// keyed by a 16-bit fold of the IPv4 address, so Index identifies a bucket
// rather than a full address; Source is the last address seen in the bucket,
// Count the exact table count, and Estimate the sketch estimate for Source.
type HeavySource struct {
	Index    uint16
	Source   uint32
	Count    uint64
	Estimate uint32
}

// WindowSnapshot is the aggregate view of one detection window: per-window
// deltas summed over all workers, the rates and ratios derived from them, and
// the digests of the merged attack sketches. It is the sole input of the rule
// engine and the ML feature builder.
type WindowSnapshot struct {
	Timestamp time.Time
	WindowSec float64

	// Deltas over the window.
	Packets         uint64
	Bytes           uint64
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

	// Rates per second of window time.
	PPS       float64
	BPS       float64
	Mbps      float64
	TCPPPS    float64
	UDPPPS    float64
	ICMPPPS   float64
	SYNPPS    float64
	HTTPRPS   float64
	DNSQPS    float64
	AttackPPS float64

	// Ratios; zero whenever the denominator is zero.
	TCPRatio    float64
	UDPRatio    float64
	ICMPRatio   float64
	SYNRatio    float64 // of TCP packets
	ACKRatio    float64 // of TCP packets
	RSTRatio    float64 // of TCP packets
	FINRatio    float64 // of TCP packets
	FragRatio   float64
	AttackRatio float64

	AvgPacketSize float64

	// Attack source digests from the merged sketches. Zero when no attack
	// traffic was seen in the window.
	UniqueAttackSources float64
	HeavyHitterCount    int
	TopSources          []HeavySource

	// Cumulative totals since engine start, for reporting.
	TotalPackets  uint64
	TotalBytes    uint64
	DroppedEvents uint64
}
