// Command posifilt relabels a position stream with the configured region
// containing each sample, then republishes it. End-of-stream from the
// source is propagated to the sink.
package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"sort"
	"syscall"

	"github.com/banshee-data/trackpipe/internal/config"
	"github.com/banshee-data/trackpipe/internal/shmem"
	"github.com/banshee-data/trackpipe/internal/track"
)

var (
	sourceName = flag.String("source", "", "position source name (required)")
	sinkName   = flag.String("sink", "", "position sink name (required)")
	configFile = flag.String("config", "", "TOML configuration file with region contours (required)")
	configKey  = flag.String("config-key", "posifilt", "configuration table key")
)

// loadRegions reads the component table, where every key names a region
// and its value is an Nx2 array of contour vertices.
func loadRegions(path, key string) ([]track.Region, error) {
	f, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	raw := make(map[string][][]float64)
	if err := f.DecodeLoose(key, &raw); err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(raw))
	for id := range raw {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	regions := make([]track.Region, 0, len(ids))
	for _, id := range ids {
		contour := make([]track.Point2D, 0, len(raw[id]))
		for _, pt := range raw[id] {
			if len(pt) != 2 {
				log.Fatalf("region %q must be a nested Nx2 array of point coordinates", id)
			}
			contour = append(contour, track.Point2D{X: pt[0], Y: pt[1]})
		}
		regions = append(regions, track.Region{ID: id, Contour: contour})
	}
	return regions, nil
}

func main() {
	flag.Parse()
	if *sourceName == "" || *sinkName == "" {
		log.Fatal("source and sink names are required")
	}
	if *configFile == "" {
		log.Fatal("a configuration file with region contours is required")
	}

	regions, err := loadRegions(*configFile, *configKey)
	if err != nil {
		log.Fatalf("failed to load regions: %v", err)
	}
	filter := track.NewRegionFilter(regions)
	log.Printf("posifilt: %d regions loaded, %q -> %q", len(regions), *sourceName, *sinkName)

	src, err := shmem.ConnectSource[track.Position](*sourceName)
	if err != nil {
		log.Fatalf("failed to connect source %q: %v", *sourceName, err)
	}
	defer src.Disconnect()

	sink, err := shmem.BindSink[track.Position](*sinkName, 0)
	if err != nil {
		log.Fatalf("failed to bind sink %q: %v", *sinkName, err)
	}
	defer sink.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		src.Interrupt()
		sink.Interrupt()
	}()

	for {
		st, err := src.Wait()
		if err != nil {
			log.Printf("posifilt: %v", err)
			return
		}
		if st == shmem.EndOfStream {
			// Propagate END downstream before exiting.
			log.Print("posifilt: end of stream")
			return
		}
		p, err := src.Copy()
		if err != nil {
			log.Printf("posifilt: %v", err)
			return
		}
		src.Post()

		filter.Filter(&p)
		if err := sink.Push(func(out *track.Position) { *out = p }); err != nil {
			log.Printf("posifilt: stopping: %v", err)
			return
		}
	}
}
