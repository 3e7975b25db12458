package persistent

import (
	"bufio"
	"encoding/gob"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"FloodSentry/internal/config"
	"FloodSentry/internal/model"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
)

// PacketRecord pairs the raw capture with its parsed event so every encoding
// has what it needs: pcap writes the raw bytes, gob and text the event.
type PacketRecord struct {
	Raw   gopacket.Packet
	Event *model.FlowEvent
}

// Recorder writes captured traffic to disk next to the live publish path.
// A single goroutine does the writing so pcap output stays in order.
type Recorder struct {
	records  chan *PacketRecord
	stopChan chan struct{}
	wg       sync.WaitGroup
}

// NewRecorder creates and starts a recorder. The link type comes from the
// capture handle and is only used by the pcap encoding.
func NewRecorder(cfg config.RecordConfig, linkType layers.LinkType) (*Recorder, error) {
	if err := os.MkdirAll(cfg.Path, 0755); err != nil {
		return nil, fmt.Errorf("failed to create record directory: %w", err)
	}

	bufferSize := cfg.ChannelBufferSize
	if bufferSize <= 0 {
		bufferSize = 10000
	}

	file, err := createOutputFile(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create record file: %w", err)
	}

	var write func(rec *PacketRecord)
	flush := func() {}
	switch cfg.Encoding {
	case "gob":
		encoder := gob.NewEncoder(file)
		write = func(rec *PacketRecord) {
			if err := encoder.Encode(rec.Event); err != nil {
				log.Printf("Recorder (gob): Error encoding event: %v", err)
			}
		}
	case "text":
		writer := bufio.NewWriter(file)
		flush = func() {
			if err := writer.Flush(); err != nil {
				log.Printf("Recorder (text): Error flushing: %v", err)
			}
		}
		write = func(rec *PacketRecord) {
			ev := rec.Event
			line := fmt.Sprintf("%s %s %s -> :%d len=%d flags=%s class=%s\n",
				ev.Timestamp.Format("2006-01-02 15:04:05.000"),
				ev.Protocol, model.FormatIP(ev.SrcIP), ev.DstPort,
				ev.Length, flagString(ev.TCPFlags), ev.Class)
			if _, err := writer.WriteString(line); err != nil {
				log.Printf("Recorder (text): Error writing event: %v", err)
			}
		}
	case "pcap":
		pcapWriter := pcapgo.NewWriter(file)
		if err := pcapWriter.WriteFileHeader(65536, linkType); err != nil {
			file.Close()
			return nil, fmt.Errorf("failed to write pcap header: %w", err)
		}
		write = func(rec *PacketRecord) {
			if err := pcapWriter.WritePacket(rec.Raw.Metadata().CaptureInfo, rec.Raw.Data()); err != nil {
				log.Printf("Recorder (pcap): Error writing packet: %v", err)
			}
		}
	default:
		file.Close()
		return nil, fmt.Errorf("unknown record encoding: '%s'", cfg.Encoding)
	}

	r := &Recorder{
		records:  make(chan *PacketRecord, bufferSize),
		stopChan: make(chan struct{}),
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		for rec := range r.records {
			write(rec)
		}
		flush()
	}()

	go func() {
		<-r.stopChan
		close(r.records)
		r.wg.Wait()
		if err := file.Close(); err != nil {
			log.Printf("Recorder: Error closing file: %v", err)
		}
		log.Println("Recorder stopped and file closed.")
	}()

	log.Printf("Recorder started, encoding: %s, writing to: %s", cfg.Encoding, file.Name())
	return r, nil
}

func createOutputFile(cfg config.RecordConfig) (*os.File, error) {
	ext := ".log"
	switch cfg.Encoding {
	case "gob":
		ext = ".gob"
	case "pcap":
		ext = ".pcap"
	}
	fileName := fmt.Sprintf("%s%s", time.Now().Format("2006-01-02_15-04-05"), ext)
	return os.OpenFile(filepath.Join(cfg.Path, fileName), os.O_CREATE|os.O_WRONLY, 0644)
}

func flagString(f uint8) string {
	if f == 0 {
		return "-"
	}
	s := ""
	if f&model.FlagSYN != 0 {
		s += "S"
	}
	if f&model.FlagACK != 0 {
		s += "A"
	}
	if f&model.FlagRST != 0 {
		s += "R"
	}
	if f&model.FlagFIN != 0 {
		s += "F"
	}
	return s
}

// Stop shuts the recorder down; buffered records are written out first.
func (r *Recorder) Stop() {
	close(r.stopChan)
}

// Enqueue hands a record to the writer without blocking the capture loop.
func (r *Recorder) Enqueue(rec *PacketRecord) {
	select {
	case r.records <- rec:
	default:
		log.Println("Recorder: Channel is full, dropping packet.")
	}
}
