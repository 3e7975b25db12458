package pcap

import (
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"FloodSentry/internal/model"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
)

// writeTestCapture generates a small capture: a TCP SYN, a UDP packet and an
// ICMP echo, one second apart.
func writeTestCapture(t *testing.T, path string) {
	t.Helper()

	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("Failed to create capture file: %v", err)
	}
	defer f.Close()

	w := pcapgo.NewWriter(f)
	if err := w.WriteFileHeader(65536, layers.LinkTypeEthernet); err != nil {
		t.Fatalf("Failed to write pcap header: %v", err)
	}

	eth := &layers.Ethernet{
		SrcMAC:       net.HardwareAddr{0x00, 0x11, 0x22, 0x33, 0x44, 0x55},
		DstMAC:       net.HardwareAddr{0x00, 0x66, 0x77, 0x88, 0x99, 0xaa},
		EthernetType: layers.EthernetTypeIPv4,
	}
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	write := func(ts time.Time, ip *layers.IPv4, rest ...gopacket.SerializableLayer) {
		buf := gopacket.NewSerializeBuffer()
		opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}
		all := append([]gopacket.SerializableLayer{eth, ip}, rest...)
		if err := gopacket.SerializeLayers(buf, opts, all...); err != nil {
			t.Fatalf("Failed to serialize packet: %v", err)
		}
		ci := gopacket.CaptureInfo{
			Timestamp:     ts,
			CaptureLength: len(buf.Bytes()),
			Length:        len(buf.Bytes()),
		}
		if err := w.WritePacket(ci, buf.Bytes()); err != nil {
			t.Fatalf("Failed to write packet: %v", err)
		}
	}

	ip := &layers.IPv4{
		Version: 4, TTL: 64, Protocol: layers.IPProtocolTCP,
		SrcIP: net.IPv4(10, 10, 2, 5), DstIP: net.IPv4(10, 10, 1, 1),
	}
	tcp := &layers.TCP{SrcPort: 40000, DstPort: 80, SYN: true, Window: 14600}
	tcp.SetNetworkLayerForChecksum(ip)
	write(base, ip, tcp)

	ip = &layers.IPv4{
		Version: 4, TTL: 64, Protocol: layers.IPProtocolUDP,
		SrcIP: net.IPv4(10, 10, 2, 6), DstIP: net.IPv4(10, 10, 1, 1),
	}
	udp := &layers.UDP{SrcPort: 40001, DstPort: 123}
	udp.SetNetworkLayerForChecksum(ip)
	write(base.Add(time.Second), ip, udp, gopacket.Payload(make([]byte, 100)))

	ip = &layers.IPv4{
		Version: 4, TTL: 64, Protocol: layers.IPProtocolICMPv4,
		SrcIP: net.IPv4(10, 10, 2, 7), DstIP: net.IPv4(10, 10, 1, 1),
	}
	icmp := &layers.ICMPv4{
		TypeCode: layers.CreateICMPv4TypeCode(layers.ICMPv4TypeEchoRequest, 0),
		Id:       1, Seq: 1,
	}
	write(base.Add(2*time.Second), ip, icmp, gopacket.Payload(make([]byte, 56)))
}

func TestReaderForEach(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.pcap")
	writeTestCapture(t, path)

	reader, err := NewReader(path)
	if err != nil {
		t.Fatalf("Failed to open pcap file: %v", err)
	}
	defer reader.Close()

	var events []*model.FlowEvent
	err = reader.ForEach(func(ev *model.FlowEvent) error {
		events = append(events, ev)
		return nil
	})
	if err != nil {
		t.Fatalf("Failed to read capture: %v", err)
	}

	if len(events) != 3 {
		t.Fatalf("Expected 3 events, but got %d", len(events))
	}
	if events[0].Protocol != model.ProtoTCP || events[0].TCPFlags&model.FlagSYN == 0 {
		t.Errorf("Expected a TCP SYN first, but got %s flags=%#x", events[0].Protocol, events[0].TCPFlags)
	}
	if events[1].Protocol != model.ProtoUDP {
		t.Errorf("Expected UDP second, but got %s", events[1].Protocol)
	}
	if events[2].Protocol != model.ProtoICMP {
		t.Errorf("Expected ICMP third, but got %s", events[2].Protocol)
	}

	// Capture timestamps survive the round trip and keep their spacing.
	gap := events[1].Timestamp.Sub(events[0].Timestamp)
	if gap != time.Second {
		t.Errorf("Expected 1s between events, but got %s", gap)
	}
	if got := model.FormatIP(events[0].SrcIP); got != "10.10.2.5" {
		t.Errorf("Expected source 10.10.2.5, but got %s", got)
	}
}

func TestReaderStopsOnError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.pcap")
	writeTestCapture(t, path)

	reader, err := NewReader(path)
	if err != nil {
		t.Fatalf("Failed to open pcap file: %v", err)
	}
	defer reader.Close()

	seen := 0
	stop := os.ErrClosed
	err = reader.ForEach(func(ev *model.FlowEvent) error {
		seen++
		return stop
	})
	if err != stop {
		t.Fatalf("Expected the callback error to propagate, but got %v", err)
	}
	if seen != 1 {
		t.Errorf("Expected iteration to stop after 1 event, but got %d", seen)
	}
}
