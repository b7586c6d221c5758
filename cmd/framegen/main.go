// Command framegen publishes a moving test-pattern frame stream. It stands
// in for a camera when exercising frame pipelines.
package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/banshee-data/trackpipe/internal/shmem"
	"github.com/banshee-data/trackpipe/internal/vision"
)

var (
	sinkName  = flag.String("sink", "", "frame sink name (required)")
	rows      = flag.Int("rows", 480, "frame height in pixels")
	cols      = flag.Int("cols", 640, "frame width in pixels")
	gray      = flag.Bool("gray", false, "publish grayscale frames instead of BGR")
	rate      = flag.Float64("rate", 30, "frames per second")
	numFrames = flag.Int64("n", 0, "stop after this many frames (0 = run until interrupted)")
)

func main() {
	flag.Parse()
	if *sinkName == "" {
		log.Fatal("sink name is required")
	}
	if *rate <= 0 {
		log.Fatalf("rate must be positive, got %v", *rate)
	}

	format := shmem.PixelBGR8
	if *gray {
		format = shmem.PixelGray8
	}

	sink, err := shmem.BindFrameSink(*sinkName, *rows, *cols, format)
	if err != nil {
		log.Fatalf("failed to bind frame sink %q: %v", *sinkName, err)
	}
	defer sink.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		sink.Interrupt()
	}()

	log.Printf("framegen: %dx%d to %q at %g fps", *cols, *rows, *sinkName, *rate)

	ticker := time.NewTicker(time.Duration(float64(time.Second) / *rate))
	defer ticker.Stop()

	var sample uint64
	for {
		select {
		case <-ctx.Done():
			log.Printf("framegen: interrupted after %d frames", sample)
			return
		case <-ticker.C:
		}
		k := sample
		if err := sink.Push(func(m *shmem.Mat) { vision.DrawTestPattern(m, k) }); err != nil {
			log.Printf("framegen: stopping: %v", err)
			return
		}
		sample++
		if *numFrames > 0 && int64(sample) >= *numFrames {
			log.Printf("framegen: generated %d frames", sample)
			return
		}
	}
}
