package protocol

import (
	"encoding/binary"
	"fmt"
	"time"

	"FloodSentry/internal/model"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
)

// ParseFlowEvent decodes a captured packet into a FlowEvent. Only IPv4 is
// supported; anything else returns an error and is skipped by the caller.
func ParseFlowEvent(packet gopacket.Packet) (*model.FlowEvent, error) {
	l := packet.Layer(layers.LayerTypeIPv4)
	if l == nil {
		return nil, fmt.Errorf("not an IPv4 packet")
	}
	ip := l.(*layers.IPv4)

	src := ip.SrcIP.To4()
	if src == nil {
		return nil, fmt.Errorf("invalid IPv4 source address")
	}

	ev := &model.FlowEvent{
		Timestamp: time.Now(),
		SrcIP:     binary.BigEndian.Uint32(src),
		Protocol:  transportProto(ip.Protocol),
		Fragment:  ip.Flags&layers.IPv4MoreFragments != 0 || ip.FragOffset > 0,
		Class:     model.ClassUnknown,
	}

	if meta := packet.Metadata(); meta != nil {
		if !meta.Timestamp.IsZero() {
			ev.Timestamp = meta.Timestamp
		}
		ev.Length = uint32(meta.Length)
	}
	if ev.Length == 0 {
		ev.Length = uint32(len(packet.Data()))
	}

	// Non-first fragments carry no transport header; the ports stay zero.
	switch {
	case packet.Layer(layers.LayerTypeTCP) != nil:
		tcp := packet.Layer(layers.LayerTypeTCP).(*layers.TCP)
		ev.DstPort = uint16(tcp.DstPort)
		if tcp.SYN {
			ev.TCPFlags |= model.FlagSYN
		}
		if tcp.ACK {
			ev.TCPFlags |= model.FlagACK
		}
		if tcp.RST {
			ev.TCPFlags |= model.FlagRST
		}
		if tcp.FIN {
			ev.TCPFlags |= model.FlagFIN
		}
	case packet.Layer(layers.LayerTypeUDP) != nil:
		udp := packet.Layer(layers.LayerTypeUDP).(*layers.UDP)
		ev.DstPort = uint16(udp.DstPort)
		// DNS replies arrive from port 53; count them with the queries so
		// amplification traffic shows up in the DNS rate.
		if udp.SrcPort == 53 {
			ev.DstPort = 53
		}
	}

	return ev, nil
}

func transportProto(p layers.IPProtocol) model.Protocol {
	switch p {
	case layers.IPProtocolTCP:
		return model.ProtoTCP
	case layers.IPProtocolUDP:
		return model.ProtoUDP
	case layers.IPProtocolICMPv4:
		return model.ProtoICMP
	default:
		return model.ProtoOther
	}
}
