package main

import (
	"bufio"
	"context"
	"encoding/binary"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/banshee-data/trackpipe/internal/shmem"
)

// Raw frame stream layout: an 8-byte magic, a fixed geometry header, then
// one record per frame of sample number followed by the pixel bytes.
// Video encoding is deliberately out of scope; the raw stream keeps frames
// replayable without pulling a codec into the recorder.
var frameStreamMagic = [8]byte{'T', 'P', 'V', 'R', 'A', 'W', '1', 0}

type frameStreamHeader struct {
	Magic  [8]byte
	Rows   uint32
	Cols   uint32
	Step   uint32
	Format uint32
}

func recordFrames(ctx context.Context, name, dir string, register func(interrupter)) error {
	src, err := shmem.ConnectFrameSource(ctx, name)
	if err != nil {
		return err
	}
	defer src.Disconnect()
	register(src)

	rows, cols, format := src.Geometry()
	path := filepath.Join(dir, fmt.Sprintf("%s_%s.tpv", name, uuid.NewString()))
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create frame stream %s: %w", path, err)
	}
	defer f.Close()
	w := bufio.NewWriterSize(f, 1<<20)

	hdr := frameStreamHeader{
		Magic:  frameStreamMagic,
		Rows:   uint32(rows),
		Cols:   uint32(cols),
		Step:   uint32(cols * format.Channels()),
		Format: uint32(format),
	}
	if err := binary.Write(w, binary.LittleEndian, hdr); err != nil {
		return fmt.Errorf("failed to write frame stream header: %w", err)
	}
	log.Printf("recorder: recording %dx%d frames from %q into %s", cols, rows, name, path)

	var count uint64
	for {
		st, err := src.Wait()
		if err != nil {
			return err
		}
		if st == shmem.EndOfStream {
			break
		}
		m, err := src.Mat()
		if err != nil {
			return err
		}
		sample := src.SampleNumber()
		// Pixel bytes are copied into the stream inside the critical
		// section, then released immediately.
		werr := binary.Write(w, binary.LittleEndian, sample)
		if werr == nil {
			_, werr = w.Write(m.Pix)
		}
		src.Post()
		if werr != nil {
			return fmt.Errorf("failed to write frame %d: %w", sample, werr)
		}
		count++
	}

	if err := w.Flush(); err != nil {
		return fmt.Errorf("failed to flush frame stream: %w", err)
	}
	log.Printf("recorder: frame stream %s closed with %d frames", path, count)
	return nil
}
