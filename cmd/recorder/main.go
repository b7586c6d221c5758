// Command recorder persists pipeline streams: position sources into the
// SQLite recording store and, optionally, a frame source into a raw frame
// stream file. Each position source gets its own recording session.
package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/trackpipe/internal/posidb"
	"github.com/banshee-data/trackpipe/internal/shmem"
	"github.com/banshee-data/trackpipe/internal/track"
)

var (
	positionList = flag.String("positions", "", "comma-separated position source names")
	frameName    = flag.String("frames", "", "frame source name")
	dbPath       = flag.String("db", "recordings.db", "SQLite database path for positions")
	outDir       = flag.String("dir", ".", "directory frame stream files are written to")
)

func recordPositions(db *posidb.DB, name string, wg *sync.WaitGroup, register func(interrupter)) {
	defer wg.Done()

	src, err := shmem.ConnectSource[track.Position](name)
	if err != nil {
		log.Printf("recorder: failed to connect source %q: %v", name, err)
		return
	}
	defer src.Disconnect()
	register(src)

	id := uuid.NewString()
	if err := db.StartRecording(id, name, time.Now()); err != nil {
		log.Printf("recorder: %v", err)
		return
	}
	log.Printf("recorder: session %s recording positions from %q", id, name)

	var count uint64
	for {
		st, err := src.Wait()
		if err != nil {
			log.Printf("recorder: %v", err)
			break
		}
		if st == shmem.EndOfStream {
			break
		}
		p, err := src.Copy()
		if err != nil {
			log.Printf("recorder: %v", err)
			break
		}
		sample := src.SampleNumber()
		src.Post()

		if err := db.RecordPosition(id, sample, &p); err != nil {
			log.Printf("recorder: %v", err)
			break
		}
		count++
	}

	if err := db.StopRecording(id, time.Now()); err != nil {
		log.Printf("recorder: %v", err)
	}
	log.Printf("recorder: session %s closed with %d samples from %q", id, count, name)
}

type interrupter interface{ Interrupt() }

func main() {
	flag.Parse()
	if *positionList == "" && *frameName == "" {
		log.Fatal("at least one of -positions or -frames is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var mu sync.Mutex
	var interruptible []interrupter
	register := func(i interrupter) {
		mu.Lock()
		interruptible = append(interruptible, i)
		mu.Unlock()
	}
	go func() {
		<-ctx.Done()
		mu.Lock()
		defer mu.Unlock()
		for _, i := range interruptible {
			i.Interrupt()
		}
	}()

	var wg sync.WaitGroup

	if *positionList != "" {
		db, err := posidb.Open(*dbPath)
		if err != nil {
			log.Fatalf("recorder: %v", err)
		}
		defer db.Close()

		for _, name := range strings.Split(*positionList, ",") {
			wg.Add(1)
			go recordPositions(db, strings.TrimSpace(name), &wg, register)
		}
	}

	if *frameName != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := recordFrames(ctx, *frameName, *outDir, register); err != nil {
				log.Printf("recorder: %v", err)
			}
		}()
	}

	wg.Wait()
}
