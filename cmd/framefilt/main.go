// Command framefilt applies a region-of-interest mask to a frame stream:
// pixels under zero mask pixels are blanked, everything else passes
// through. End-of-stream from the source is propagated to the sink.
package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"syscall"

	"github.com/banshee-data/trackpipe/internal/config"
	"github.com/banshee-data/trackpipe/internal/shmem"
	"github.com/banshee-data/trackpipe/internal/vision"
)

var (
	sourceName = flag.String("source", "", "frame source name (required)")
	sinkName   = flag.String("sink", "", "frame sink name (required)")
	maskPath   = flag.String("mask", "", "grayscale PNG mask file")
	invert     = flag.Bool("invert", false, "invert the mask before filtering")
	configFile = flag.String("config", "", "TOML configuration file")
	configKey  = flag.String("config-key", "framefilt", "configuration table key")
)

type maskConfig struct {
	Mask   *string `toml:"mask"`
	Invert *bool   `toml:"invert"`
}

func main() {
	flag.Parse()
	if *sourceName == "" || *sinkName == "" {
		log.Fatal("source and sink names are required")
	}

	if *configFile != "" {
		f, err := config.Load(*configFile)
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}
		var cfg maskConfig
		if err := f.Decode(*configKey, &cfg); err != nil {
			log.Fatalf("failed to read config: %v", err)
		}
		if cfg.Mask != nil {
			*maskPath = *cfg.Mask
		}
		if cfg.Invert != nil {
			*invert = *cfg.Invert
		}
	}
	if *maskPath == "" {
		log.Fatal("a mask file is required (flag or config)")
	}

	maskMat, err := vision.LoadMaskPNG(*maskPath)
	if err != nil {
		log.Fatalf("failed to load mask: %v", err)
	}
	masker, err := vision.NewMasker(maskMat, *invert)
	if err != nil {
		log.Fatalf("failed to build masker: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	src, err := shmem.ConnectFrameSource(ctx, *sourceName)
	if err != nil {
		log.Fatalf("failed to connect frame source %q: %v", *sourceName, err)
	}
	defer src.Disconnect()

	rows, cols, format := src.Geometry()
	if rows != maskMat.Rows || cols != maskMat.Cols {
		log.Fatalf("mask %dx%d and frames from source (%dx%d) do not have equal sizes",
			maskMat.Cols, maskMat.Rows, cols, rows)
	}
	sink, err := shmem.BindFrameSink(*sinkName, rows, cols, format)
	if err != nil {
		log.Fatalf("failed to bind frame sink %q: %v", *sinkName, err)
	}
	defer sink.Close()

	go func() {
		<-ctx.Done()
		src.Interrupt()
		sink.Interrupt()
	}()

	log.Printf("framefilt: masking %q -> %q (%dx%d)", *sourceName, *sinkName, cols, rows)

	for {
		st, err := src.Wait()
		if err != nil {
			log.Printf("framefilt: %v", err)
			return
		}
		if st == shmem.EndOfStream {
			log.Print("framefilt: end of stream")
			return
		}
		in, err := src.Mat()
		if err != nil {
			log.Printf("framefilt: %v", err)
			return
		}
		err = sink.Push(func(out *shmem.Mat) {
			in.CopyTo(out)
			if err := masker.Apply(out); err != nil {
				log.Printf("framefilt: %v", err)
			}
		})
		src.Post()
		if err != nil {
			log.Printf("framefilt: stopping: %v", err)
			return
		}
	}
}
