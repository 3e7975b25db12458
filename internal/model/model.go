package model

import (
	"net"
	"time"
)

// Protocol identifies the transport protocol of a flow event.
type Protocol uint8

const (
	ProtoOther Protocol = iota
	ProtoTCP
	ProtoUDP
	ProtoICMP
)

func (p Protocol) String() string {
	switch p {
	case ProtoTCP:
		return "TCP"
	case ProtoUDP:
		return "UDP"
	case ProtoICMP:
		return "ICMP"
	default:
		return "OTHER"
	}
}

// TCP flag bits carried on a FlowEvent.
const (
	FlagSYN uint8 = 1 << iota
	FlagACK
	FlagRST
	FlagFIN
)

// Class tags a flow event with its traffic origin, assigned by the probe
// from the configured baseline/attack networks.
type Class uint8

const (
	ClassUnknown Class = iota
	ClassBaseline
	ClassAttack
)

func (c Class) String() string {
	switch c {
	case ClassBaseline:
		return "baseline"
	case ClassAttack:
		return "attack"
	default:
		return "unknown"
	}
}

// FlowEvent holds the metadata extracted from a single packet.
type FlowEvent struct {
	Timestamp time.Time
	SrcIP     uint32 // IPv4 in host byte order
	DstPort   uint16
	Protocol  Protocol
	TCPFlags  uint8
	Length    uint32
	Fragment  bool
	HTTPPath  string // empty unless HTTP payload parsing is enabled
	Class     Class
}

// FormatIP renders a host byte order IPv4 address in dotted form.
func FormatIP(ip uint32) string {
	return net.IPv4(byte(ip>>24), byte(ip>>16), byte(ip>>8), byte(ip)).String()
}

// ParseIP converts a dotted IPv4 address to host byte order. It reports false
// for anything that is not an IPv4 address.
func ParseIP(s string) (uint32, bool) {
	ip := net.ParseIP(s)
	if ip == nil {
		return 0, false
	}
	v4 := ip.To4()
	if v4 == nil {
		return 0, false
	}
	return uint32(v4[0])<<24 | uint32(v4[1])<<16 | uint32(v4[2])<<8 | uint32(v4[3]), true
}
