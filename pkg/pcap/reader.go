package pcap

import (
	"log"

	"FloodSentry/internal/engine/protocol"
	"FloodSentry/internal/model"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcap"
)

// Reader iterates a capture file and emits parsed flow events.
type Reader struct {
	handle *pcap.Handle
}

// NewReader opens a pcap file for reading.
func NewReader(filePath string) (*Reader, error) {
	handle, err := pcap.OpenOffline(filePath)
	if err != nil {
		return nil, err
	}
	return &Reader{handle: handle}, nil
}

// Close closes the pcap handle.
func (r *Reader) Close() {
	r.handle.Close()
}

// LinkType reports the link type of the capture.
func (r *Reader) LinkType() layers.LinkType {
	return r.handle.LinkType()
}

// ForEach parses every packet in the file and calls fn with the event,
// preserving the capture timestamps. Packets the parser rejects are counted
// and skipped. A non-nil error from fn stops the iteration.
func (r *Reader) ForEach(fn func(ev *model.FlowEvent) error) error {
	packetSource := gopacket.NewPacketSource(r.handle, r.handle.LinkType())

	var parsed, skipped int
	for packet := range packetSource.Packets() {
		ev, err := protocol.ParseFlowEvent(packet)
		if err != nil {
			skipped++
			continue
		}
		parsed++
		if err := fn(ev); err != nil {
			return err
		}
	}
	log.Printf("Finished reading capture: %d events, %d packets skipped.", parsed, skipped)
	return nil
}

// ReadPackets parses the whole file into the given channel. The channel stays
// open; it belongs to the caller.
func (r *Reader) ReadPackets(out chan<- *model.FlowEvent) {
	r.ForEach(func(ev *model.FlowEvent) error {
		out <- ev
		return nil
	})
}
