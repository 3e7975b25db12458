package main

import (
	"flag"
	"fmt"
	"log"
	"math/rand"
	"net"
	"os"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
)

// Addresses line up with the default classifier networks, so a generated
// capture exercises the full pipeline without config changes.
var (
	targetIP    = net.IP{10, 10, 0, 80}
	baselineNet = net.IP{10, 10, 1, 0}
	attackNet   = net.IP{10, 10, 2, 0}
)

func main() {
	outputFile := flag.String("o", "flood.pcap", "Output pcap file path")
	durSec := flag.Int("d", 10, "Capture duration in seconds")
	baselinePPS := flag.Int("baseline", 2000, "Baseline packets per second")
	attackPPS := flag.Int("attack", 30000, "Attack packets per second")
	attackStart := flag.Int("attack-start", 3, "Seconds into the capture at which the attack begins")
	attackType := flag.String("type", "syn", "Attack type: syn, udp, icmp, http or mixed")
	sources := flag.Int("sources", 200, "Number of distinct attack sources (up to 254)")
	flag.Parse()

	switch *attackType {
	case "syn", "udp", "icmp", "http", "mixed":
	default:
		log.Fatalf("Unknown attack type: %s", *attackType)
	}
	if *sources > 254 {
		*sources = 254
	}

	f, err := os.Create(*outputFile)
	if err != nil {
		log.Fatalf("Failed to create output file: %v", err)
	}
	defer f.Close()

	pcapWriter := pcapgo.NewWriter(f)
	if err := pcapWriter.WriteFileHeader(65536, layers.LinkTypeEthernet); err != nil {
		log.Fatalf("Failed to write pcap header: %v", err)
	}

	rand.Seed(time.Now().UnixNano())

	log.Printf("Generating %ds of traffic into %s (%d baseline pps, %d %s attack pps from second %d)...",
		*durSec, *outputFile, *baselinePPS, *attackPPS, *attackType, *attackStart)

	start := time.Now().Add(-time.Duration(*durSec) * time.Second)
	written, attackCount := 0, 0
	for sec := 0; sec < *durSec; sec++ {
		count := *baselinePPS
		attacking := sec >= *attackStart
		if attacking {
			count += *attackPPS
		}
		secStart := start.Add(time.Duration(sec) * time.Second)
		step := time.Second / time.Duration(count)

		for i := 0; i < count; i++ {
			var frame []byte
			if attacking && rand.Intn(count) < *attackPPS {
				srcIP := net.IP{attackNet[0], attackNet[1], attackNet[2], byte(1 + rand.Intn(*sources))}
				frame = attackFrame(*attackType, srcIP)
				attackCount++
			} else {
				srcIP := net.IP{baselineNet[0], baselineNet[1], baselineNet[2], byte(1 + rand.Intn(200))}
				frame = baselineFrame(srcIP)
			}

			ci := gopacket.CaptureInfo{
				Timestamp:     secStart.Add(time.Duration(i) * step),
				CaptureLength: len(frame),
				Length:        len(frame),
			}
			if err := pcapWriter.WritePacket(ci, frame); err != nil {
				log.Fatalf("Failed to write packet: %v", err)
			}
			written++
			if written%100000 == 0 {
				log.Printf("Generated %d packets...", written)
			}
		}
	}

	log.Printf("Successfully generated %d packets (%d attack) into %s.", written, attackCount, *outputFile)
}

func ethernet() *layers.Ethernet {
	return &layers.Ethernet{
		SrcMAC:       net.HardwareAddr{0x00, 0x11, 0x22, 0x33, 0x44, 0x55},
		DstMAC:       net.HardwareAddr{0x00, 0x66, 0x77, 0x88, 0x99, 0xAA},
		EthernetType: layers.EthernetTypeIPv4,
	}
}

func ephemeral() int {
	return rand.Intn(65535-1024) + 1024
}

// attackFrame builds one attack packet of the given type.
func attackFrame(kind string, srcIP net.IP) []byte {
	if kind == "mixed" {
		kind = []string{"syn", "udp", "icmp"}[rand.Intn(3)]
	}

	ip := &layers.IPv4{
		SrcIP:   srcIP,
		DstIP:   targetIP,
		Version: 4,
		TTL:     64,
	}

	switch kind {
	case "syn":
		ip.Protocol = layers.IPProtocolTCP
		tcp := &layers.TCP{
			SrcPort: layers.TCPPort(ephemeral()),
			DstPort: 443,
			Seq:     rand.Uint32(),
			SYN:     true,
			Window:  14600,
		}
		tcp.SetNetworkLayerForChecksum(ip)
		return serialize(ethernet(), ip, tcp)
	case "udp":
		ip.Protocol = layers.IPProtocolUDP
		udp := &layers.UDP{
			SrcPort: layers.UDPPort(ephemeral()),
			DstPort: layers.UDPPort(ephemeral()),
		}
		udp.SetNetworkLayerForChecksum(ip)
		payload := make([]byte, 1024+rand.Intn(400))
		rand.Read(payload)
		return serialize(ethernet(), ip, udp, gopacket.Payload(payload))
	case "icmp":
		ip.Protocol = layers.IPProtocolICMPv4
		icmp := &layers.ICMPv4{
			TypeCode: layers.CreateICMPv4TypeCode(layers.ICMPv4TypeEchoRequest, 0),
			Id:       uint16(rand.Intn(65536)),
			Seq:      uint16(rand.Intn(65536)),
		}
		payload := make([]byte, 56+rand.Intn(1000))
		rand.Read(payload)
		return serialize(ethernet(), ip, icmp, gopacket.Payload(payload))
	default: // http
		ip.Protocol = layers.IPProtocolTCP
		tcp := &layers.TCP{
			SrcPort: layers.TCPPort(ephemeral()),
			DstPort: 80,
			Seq:     rand.Uint32(),
			Ack:     rand.Uint32(),
			ACK:     true,
			PSH:     true,
			Window:  14600,
		}
		tcp.SetNetworkLayerForChecksum(ip)
		req := fmt.Sprintf("GET /?cb=%d HTTP/1.1\r\nHost: 10.10.0.80\r\n\r\n", rand.Intn(1<<30))
		return serialize(ethernet(), ip, tcp, gopacket.Payload([]byte(req)))
	}
}

// baselineFrame builds one packet of ordinary traffic: mostly established
// TCP segments, some DNS queries, the occasional ping.
func baselineFrame(srcIP net.IP) []byte {
	ip := &layers.IPv4{
		SrcIP:   srcIP,
		DstIP:   targetIP,
		Version: 4,
		TTL:     64,
	}

	switch n := rand.Intn(100); {
	case n < 65:
		ip.Protocol = layers.IPProtocolTCP
		ports := []layers.TCPPort{443, 443, 80, 22}
		tcp := &layers.TCP{
			SrcPort: layers.TCPPort(ephemeral()),
			DstPort: ports[rand.Intn(len(ports))],
			Seq:     rand.Uint32(),
			Ack:     rand.Uint32(),
			ACK:     true,
			PSH:     rand.Intn(2) == 0,
			Window:  14600,
		}
		tcp.SetNetworkLayerForChecksum(ip)
		payload := make([]byte, 200+rand.Intn(1200))
		rand.Read(payload)
		return serialize(ethernet(), ip, tcp, gopacket.Payload(payload))
	case n < 90:
		ip.Protocol = layers.IPProtocolUDP
		udp := &layers.UDP{
			SrcPort: layers.UDPPort(ephemeral()),
			DstPort: 53,
		}
		udp.SetNetworkLayerForChecksum(ip)
		payload := make([]byte, 40+rand.Intn(40))
		rand.Read(payload)
		return serialize(ethernet(), ip, udp, gopacket.Payload(payload))
	default:
		ip.Protocol = layers.IPProtocolICMPv4
		icmp := &layers.ICMPv4{
			TypeCode: layers.CreateICMPv4TypeCode(layers.ICMPv4TypeEchoRequest, 0),
			Id:       uint16(rand.Intn(65536)),
			Seq:      uint16(rand.Intn(65536)),
		}
		payload := make([]byte, 56)
		rand.Read(payload)
		return serialize(ethernet(), ip, icmp, gopacket.Payload(payload))
	}
}

func serialize(ls ...gopacket.SerializableLayer) []byte {
	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{
		ComputeChecksums: true,
		FixLengths:       true,
	}
	if err := gopacket.SerializeLayers(buf, opts, ls...); err != nil {
		log.Fatalf("Failed to serialize layers: %v", err)
	}
	return buf.Bytes()
}
