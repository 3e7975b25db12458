package main

import (
	"encoding/gob"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"FloodSentry/internal/model"
)

// Decodes a gob event file written by the probe recorder and prints a quick
// summary, for checking what a capture actually contained.
func main() {
	verbose := flag.Int("n", 10, "Number of events to print individually")
	flag.Parse()
	if flag.NArg() < 1 {
		fmt.Println("Usage: go run ./scripts/gobana/main.go [-n count] <gob_file>")
		os.Exit(1)
	}
	gobFile := flag.Arg(0)

	file, err := os.Open(gobFile)
	if err != nil {
		log.Fatalf("Unable to open file: %v", err)
	}
	defer file.Close()

	decoder := gob.NewDecoder(file)

	total := 0
	var totalBytes uint64
	byProto := make(map[string]int)
	byClass := make(map[string]int)
	for {
		var ev model.FlowEvent
		if err := decoder.Decode(&ev); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			log.Fatalf("Failed to decode gob data: %v", err)
		}
		if total < *verbose {
			fmt.Printf("[%s] %s %s -> :%d len=%d flags=%#x class=%s\n",
				ev.Timestamp.Format("15:04:05.000"), ev.Protocol, model.FormatIP(ev.SrcIP),
				ev.DstPort, ev.Length, ev.TCPFlags, ev.Class)
		}
		total++
		totalBytes += uint64(ev.Length)
		byProto[ev.Protocol.String()]++
		byClass[ev.Class.String()]++
	}

	fmt.Printf("\n%d events, %d bytes\n", total, totalBytes)
	fmt.Printf("By protocol: %v\n", byProto)
	fmt.Printf("By class:    %v\n", byClass)
}
