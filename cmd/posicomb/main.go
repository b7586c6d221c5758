// Command posicomb folds N position streams into one mean position stream.
// End-of-stream from any source ends the combined stream.
package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"strings"
	"syscall"

	"github.com/banshee-data/trackpipe/internal/config"
	"github.com/banshee-data/trackpipe/internal/shmem"
	"github.com/banshee-data/trackpipe/internal/track"
)

var (
	sourceList = flag.String("sources", "", "comma-separated position source names (required)")
	sinkName   = flag.String("sink", "", "position sink name (required)")
	anchor     = flag.Int("heading-anchor", track.NoAnchor,
		"source index to derive heading from (-1 averages source headings)")
	configFile = flag.String("config", "", "TOML configuration file")
	configKey  = flag.String("config-key", "posicomb", "configuration table key")
)

type combinerConfig struct {
	HeadingAnchor *int `toml:"heading_anchor"`
}

func main() {
	flag.Parse()
	if *sourceList == "" || *sinkName == "" {
		log.Fatal("sources and sink names are required")
	}
	names := strings.Split(*sourceList, ",")

	if *configFile != "" {
		f, err := config.Load(*configFile)
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}
		var cfg combinerConfig
		if err := f.Decode(*configKey, &cfg); err != nil {
			log.Fatalf("failed to read config: %v", err)
		}
		if cfg.HeadingAnchor != nil {
			*anchor = *cfg.HeadingAnchor
		}
	}
	if *anchor != track.NoAnchor && (*anchor < 0 || *anchor >= len(names)) {
		log.Fatalf("heading anchor %d out of range for %d sources", *anchor, len(names))
	}

	sources := make([]*shmem.Source[track.Position], len(names))
	for i, name := range names {
		src, err := shmem.ConnectSource[track.Position](strings.TrimSpace(name))
		if err != nil {
			log.Fatalf("failed to connect source %q: %v", name, err)
		}
		defer src.Disconnect()
		sources[i] = src
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
		for _, src := range sources {
			src.Interrupt()
		}
		sink.Interrupt()
	}()

	log.Printf("posicomb: combining %d sources into %q", len(sources), *sinkName)

	samples := make([]track.Position, len(sources))
	for {
		for i, src := range sources {
			st, err := src.Wait()
			if err != nil {
				log.Printf("posicomb: %v", err)
				return
			}
			if st == shmem.EndOfStream {
				log.Printf("posicomb: end of stream from %q", src.Name())
				return
			}
			samples[i], err = src.Copy()
			if err != nil {
				log.Printf("posicomb: %v", err)
				return
			}
			src.Post()
		}

		combined := track.Combine(samples, *anchor)
		if err := sink.Push(func(out *track.Position) { *out = combined }); err != nil {
			log.Printf("posicomb: stopping: %v", err)
			return
		}
	}
}
