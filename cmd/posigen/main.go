// Command posigen publishes simulated 2D positions to a sink. It stands in
// for a real detector when testing or demonstrating a pipeline.
package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/banshee-data/trackpipe/internal/config"
	"github.com/banshee-data/trackpipe/internal/shmem"
	"github.com/banshee-data/trackpipe/internal/track"
	"github.com/banshee-data/trackpipe/internal/version"
)

var (
	sinkName   = flag.String("sink", "", "position sink name (required)")
	rate       = flag.Float64("rate", 30, "samples per second")
	numSamples = flag.Int64("n", 0, "stop after this many samples (0 = run until interrupted)")
	configFile = flag.String("config", "", "TOML configuration file")
	configKey  = flag.String("config-key", "posigen", "configuration table key")
)

type generatorConfig struct {
	Rate  *float64  `toml:"rate"`
	Sigma *float64  `toml:"sigma"`
	Seed  *int64    `toml:"seed"`
	Room  []float64 `toml:"room"` // x, y, width, height
}

func main() {
	flag.Parse()
	if *sinkName == "" {
		log.Fatal("sink name is required")
	}

	sigma := 5.0
	var seed uint64
	room := track.Room{Width: 640, Height: 480}
	if *configFile != "" {
		f, err := config.Load(*configFile)
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}
		var cfg generatorConfig
		if err := f.Decode(*configKey, &cfg); err != nil {
			log.Fatalf("failed to read config: %v", err)
		}
		if cfg.Rate != nil {
			*rate = *cfg.Rate
		}
		if cfg.Sigma != nil {
			sigma = *cfg.Sigma
		}
		if cfg.Seed != nil {
			seed = uint64(*cfg.Seed)
		}
		if cfg.Room != nil {
			if len(cfg.Room) != 4 {
				log.Fatalf("room must be [x, y, width, height], got %d values", len(cfg.Room))
			}
			room = track.Room{X: cfg.Room[0], Y: cfg.Room[1], Width: cfg.Room[2], Height: cfg.Room[3]}
		}
	}
	if *rate <= 0 {
		log.Fatalf("rate must be positive, got %v", *rate)
	}

	sink, err := shmem.BindSink[track.Position](*sinkName, 0)
	if err != nil {
		log.Fatalf("failed to bind sink %q: %v", *sinkName, err)
	}
	defer sink.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		sink.Interrupt()
	}()

	log.Printf("posigen %s: publishing to %q at %g Hz", version.String(), *sinkName, *rate)

	gen := track.NewRandomAccel(1 / *rate, room, sigma, seed)
	ticker := time.NewTicker(time.Duration(float64(time.Second) / *rate))
	defer ticker.Stop()

	var pushed int64
	for {
		select {
		case <-ctx.Done():
			log.Printf("posigen: interrupted after %d samples", pushed)
			return
		case <-ticker.C:
		}
		if err := sink.Push(gen.Next); err != nil {
			log.Printf("posigen: stopping: %v", err)
			return
		}
		pushed++
		if *numSamples > 0 && pushed >= *numSamples {
			log.Printf("posigen: generated %d samples", pushed)
			return
		}
	}
}
