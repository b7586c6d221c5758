// Command frameview snapshots a frame stream to PNG files at a configured
// stride. It is the headless stand-in for an on-screen viewer.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/banshee-data/trackpipe/internal/config"
	"github.com/banshee-data/trackpipe/internal/shmem"
	"github.com/banshee-data/trackpipe/internal/vision"
)

var (
	sourceName = flag.String("source", "", "frame source name (required)")
	outDir     = flag.String("dir", ".", "directory snapshots are written to")
	every      = flag.Uint64("every", 30, "write every Nth frame")
	configFile = flag.String("config", "", "TOML configuration file")
	configKey  = flag.String("config-key", "frameview", "configuration table key")
)

type viewerConfig struct {
	Dir   *string `toml:"dir"`
	Every *int64  `toml:"every"`
}

func main() {
	flag.Parse()
	if *sourceName == "" {
		log.Fatal("source name is required")
	}

	if *configFile != "" {
		f, err := config.Load(*configFile)
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}
		var cfg viewerConfig
		if err := f.Decode(*configKey, &cfg); err != nil {
			log.Fatalf("failed to read config: %v", err)
		}
		if cfg.Dir != nil {
			*outDir = *cfg.Dir
		}
		if cfg.Every != nil {
			*every = uint64(*cfg.Every)
		}
	}
	if *every == 0 {
		*every = 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	src, err := shmem.ConnectFrameSource(ctx, *sourceName)
	if err != nil {
		log.Fatalf("failed to connect frame source %q: %v", *sourceName, err)
	}
	defer src.Disconnect()

	go func() {
		<-ctx.Done()
		src.Interrupt()
	}()

	rows, cols, _ := src.Geometry()
	log.Printf("frameview: %q (%dx%d), snapshot every %d frames into %s",
		*sourceName, cols, rows, *every, *outDir)

	var written uint64
	for {
		st, err := src.Wait()
		if err != nil {
			log.Printf("frameview: %v", err)
			return
		}
		if st == shmem.EndOfStream {
			log.Printf("frameview: end of stream after %d snapshots", written)
			return
		}
		sample := src.SampleNumber()
		if sample%*every == 0 {
			m, err := src.Mat()
			if err != nil {
				log.Printf("frameview: %v", err)
				return
			}
			path := filepath.Join(*outDir, fmt.Sprintf("%s_%08d.png", *sourceName, sample))
			// Written inside the critical section: the shared pixels are
			// stable until Post.
			if err := vision.WriteSnapshotPNG(m, path); err != nil {
				log.Printf("frameview: %v", err)
			} else {
				written++
			}
		}
		src.Post()
	}
}
