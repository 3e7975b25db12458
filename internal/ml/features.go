package ml

import "FloodSentry/internal/model"

// FeatureNames lists the classifier inputs in model order. Models are
// trained against this exact layout.
var FeatureNames = []string{
	"total_packets",
	"total_bytes",
	"udp_packets",
	"tcp_packets",
	"icmp_packets",
	"syn_packets",
	"http_requests",
	"baseline_packets",
	"attack_packets",
	"udp_tcp_ratio",
	"syn_total_ratio",
	"baseline_attack_ratio",
	"bytes_per_packet",
}

// Features derives the classifier input vector from a window snapshot.
// Ratios fall back to zero when their denominator is empty.
func Features(s *model.WindowSnapshot) []float64 {
	udpTCP := 0.0
	if s.TCPPackets > 0 {
		udpTCP = float64(s.UDPPackets) / float64(s.TCPPackets)
	}
	synTotal := 0.0
	if s.Packets > 0 {
		synTotal = float64(s.SYNPackets) / float64(s.Packets)
	}
	baseAttack := 0.0
	if s.AttackPackets > 0 {
		baseAttack = float64(s.BaselinePackets) / float64(s.AttackPackets)
	}

	return []float64{
		float64(s.Packets),
		float64(s.Bytes),
		float64(s.UDPPackets),
		float64(s.TCPPackets),
		float64(s.ICMPPackets),
		float64(s.SYNPackets),
		float64(s.HTTPRequests),
		float64(s.BaselinePackets),
		float64(s.AttackPackets),
		udpTCP,
		synTotal,
		baseAttack,
		s.AvgPacketSize,
	}
}
