package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"FloodSentry/internal/engine/protocol"
	"FloodSentry/internal/model"

	"github.com/google/gopacket"
	"github.com/google/gopacket/pcap"
)

// Prints the first packets of a capture as the probe would parse them.
func main() {
	count := flag.Int("n", 5, "Number of packets to print")
	flag.Parse()
	if flag.NArg() < 1 {
		fmt.Println("Usage: go run ./scripts/pcapana/main.go [-n count] <path_to_pcap_file>")
		os.Exit(1)
	}
	pcapFilePath := flag.Arg(0)

	handle, err := pcap.OpenOffline(pcapFilePath)
	if err != nil {
		log.Fatal(err)
	}
	defer handle.Close()

	packetSource := gopacket.NewPacketSource(handle, handle.LinkType())

	i := 0
	for packet := range packetSource.Packets() {
		ev, err := protocol.ParseFlowEvent(packet)
		if err != nil {
			fmt.Println("Parse error:", err)
			continue
		}
		i++
		fmt.Printf("[%s] %s %s -> :%d len=%d flags=%#x frag=%v\n",
			ev.Timestamp.Format("15:04:05.000"),
			ev.Protocol, model.FormatIP(ev.SrcIP), ev.DstPort,
			ev.Length, ev.TCPFlags, ev.Fragment,
		)
		if i >= *count {
			break
		}
	}
}
