// Command posisock publishes a position stream as JSON datagrams over UDP,
// the bridge out of the shared-memory world for remote consumers.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"net"
	"os/signal"
	"syscall"

	"github.com/banshee-data/trackpipe/internal/shmem"
	"github.com/banshee-data/trackpipe/internal/track"
)

var (
	sourceName = flag.String("source", "", "position source name (required)")
	addr       = flag.String("addr", "127.0.0.1:5555", "UDP destination address")
)

// positionRecord is the wire form of one sample. Vector fields are emitted
// only when their validity flag is set.
type positionRecord struct {
	Sample     uint64      `json:"samp"`
	Position   *[2]float64 `json:"pos,omitempty"`
	Velocity   *[2]float64 `json:"vel,omitempty"`
	Heading    *[2]float64 `json:"head,omitempty"`
	Region     string      `json:"reg,omitempty"`
	PositionOK bool        `json:"pos_ok"`
	VelocityOK bool        `json:"vel_ok"`
	HeadingOK  bool        `json:"head_ok"`
	RegionOK   bool        `json:"reg_ok"`
}

func encodeRecord(sample uint64, p *track.Position) ([]byte, error) {
	rec := positionRecord{
		Sample:     sample,
		PositionOK: p.PositionValid,
		VelocityOK: p.VelocityValid,
		HeadingOK:  p.HeadingValid,
		RegionOK:   p.RegionValid,
	}
	if p.PositionValid {
		rec.Position = &[2]float64{p.Point.X, p.Point.Y}
	}
	if p.VelocityValid {
		rec.Velocity = &[2]float64{p.Velocity.X, p.Velocity.Y}
	}
	if p.HeadingValid {
		rec.Heading = &[2]float64{p.Heading.X, p.Heading.Y}
	}
	if p.RegionValid {
		rec.Region = p.Region()
	}
	return json.Marshal(rec)
}

func main() {
	flag.Parse()
	if *sourceName == "" {
		log.Fatal("source name is required")
	}

	conn, err := net.Dial("udp", *addr)
	if err != nil {
		log.Fatalf("failed to dial %s: %v", *addr, err)
	}
	defer conn.Close()

	src, err := shmem.ConnectSource[track.Position](*sourceName)
	if err != nil {
		log.Fatalf("failed to connect source %q: %v", *sourceName, err)
	}
	defer src.Disconnect()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		src.Interrupt()
	}()

	log.Printf("posisock: %q -> udp %s", *sourceName, *addr)

	for {
		st, err := src.Wait()
		if err != nil {
			log.Printf("posisock: %v", err)
			return
		}
		if st == shmem.EndOfStream {
			log.Print("posisock: end of stream")
			return
		}
		p, err := src.Copy()
		if err != nil {
			log.Printf("posisock: %v", err)
			return
		}
		src.Post()

		payload, err := encodeRecord(src.SampleNumber(), &p)
		if err != nil {
			log.Printf("posisock: failed to encode sample: %v", err)
			continue
		}
		if _, err := conn.Write(payload); err != nil {
			log.Printf("posisock: failed to send datagram: %v", err)
		}
	}
}
