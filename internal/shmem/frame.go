package shmem

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unsafe"
)

// PixelFormat identifies the element layout of a frame's pixel buffer.
type PixelFormat uint32

const (
	// PixelGray8: one byte per pixel.
	PixelGray8 PixelFormat = 1
	// PixelBGR8: three bytes per pixel, blue first.
	PixelBGR8 PixelFormat = 3
)

// Channels returns bytes per pixel.
func (f PixelFormat) Channels() int { return int(f) }

// SharedFrame is the frame payload slot: fixed geometry plus the Handle of
// the out-of-band pixel buffer. Geometry is written once at bind and
// immutable afterwards; only the pixel bytes change per sample.
type SharedFrame struct {
	Rows   uint32
	Cols   uint32
	Step   uint32 // bytes per row
	Format PixelFormat
	Data   Handle
}

// Mat is a process-local matrix view over a pixel buffer. For views backed
// by an arena the Pix slice aliases shared memory.
type Mat struct {
	Rows, Cols, Step int
	Format           PixelFormat
	Pix              []byte
}

// NewMat allocates a process-local matrix.
func NewMat(rows, cols int, f PixelFormat) *Mat {
	step := cols * f.Channels()
	return &Mat{Rows: rows, Cols: cols, Step: step, Format: f, Pix: make([]byte, rows*step)}
}

// Row returns the byte slice of row r.
func (m *Mat) Row(r int) []byte { return m.Pix[r*m.Step : r*m.Step+m.Cols*m.Format.Channels()] }

// Fill sets every pixel byte to v.
func (m *Mat) Fill(v byte) {
	for i := range m.Pix {
		m.Pix[i] = v
	}
}

// CopyTo copies the pixel bytes into dst, which must have identical
// geometry.
func (m *Mat) CopyTo(dst *Mat) error {
	if dst.Rows != m.Rows || dst.Cols != m.Cols || dst.Step != m.Step || dst.Format != m.Format {
		return fmt.Errorf("shmem: geometry mismatch: %dx%d/%d vs %dx%d/%d",
			m.Rows, m.Cols, m.Step, dst.Rows, dst.Cols, dst.Step)
	}
	copy(dst.Pix, m.Pix)
	return nil
}

// Clone returns a process-local copy of the matrix.
func (m *Mat) Clone() *Mat {
	c := NewMat(m.Rows, m.Cols, m.Format)
	copy(c.Pix, m.Pix)
	return c
}

// FrameSink publishes frames through a node. The pixel buffer is allocated
// in the arena once at bind and reused for every sample; sources map the
// same bytes, so no pixel data is ever copied by the substrate.
type FrameSink struct {
	sink *Sink[SharedFrame]
	mat  Mat
}

// BindFrameSink binds the named node with a payload sized for the given
// geometry. The arena is sized to fit node, payload slot and pixel buffer
// plus slack.
func BindFrameSink(name string, rows, cols int, f PixelFormat) (*FrameSink, error) {
	if rows <= 0 || cols <= 0 {
		return nil, fmt.Errorf("shmem: invalid frame geometry %dx%d", rows, cols)
	}
	step := cols * f.Channels()
	bufLen := rows * step

	arenaBytes := defaultArenaBytes(int(unsafe.Sizeof(SharedFrame{})) + bufLen)
	var pix []byte
	// Buffer allocation and the geometry write run before the node reaches
	// SINK_BOUND, the state frame sources wait for before reading the
	// payload slot.
	s, err := bindSink[SharedFrame](name, arenaBytes, func(s *Sink[SharedFrame]) error {
		h, err := s.arena.Allocate(bufLen, arenaAlign)
		if err != nil {
			return err
		}
		if pix, err = s.arena.Bytes(h, bufLen); err != nil {
			return err
		}
		*s.obj = SharedFrame{Rows: uint32(rows), Cols: uint32(cols), Step: uint32(step), Format: f, Data: h}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &FrameSink{
		sink: s,
		mat:  Mat{Rows: rows, Cols: cols, Step: step, Format: f, Pix: pix},
	}, nil
}

// Name returns the endpoint name.
func (fs *FrameSink) Name() string { return fs.sink.Name() }

// SampleNumber returns the number of frames published so far.
func (fs *FrameSink) SampleNumber() uint64 { return fs.sink.SampleNumber() }

// SourceCount returns the number of currently attached sources.
func (fs *FrameSink) SourceCount() int { return fs.sink.SourceCount() }

// Push runs one publication cycle; fill writes the pixel bytes in place.
// The matrix passed to fill aliases the shared buffer and must not be
// retained.
func (fs *FrameSink) Push(fill func(*Mat)) error {
	return fs.sink.Push(func(*SharedFrame) { fill(&fs.mat) })
}

// Interrupt unblocks a Push in progress.
func (fs *FrameSink) Interrupt() { fs.sink.Interrupt() }

// Close ends the stream and detaches.
func (fs *FrameSink) Close() error { return fs.sink.Close() }

// FrameSource consumes frames from a node. Because only the sink knows the
// pixel geometry, connecting waits until a sink has bound the node.
type FrameSource struct {
	src *Source[SharedFrame]
	mat Mat
}

const frameConnectPoll = 5 * time.Millisecond

// ConnectFrameSource attaches to the named frame node, waiting until the
// sink has bound it (the source may start first). The context bounds the
// wait.
func ConnectFrameSource(ctx context.Context, name string) (*FrameSource, error) {
	var src *Source[SharedFrame]
	for {
		if err := ctx.Err(); err != nil {
			return nil, arenaErr("connect", arenaName(name), err)
		}
		var err error
		src, err = ConnectSourceExisting[SharedFrame](name)
		if err == nil && src.node.State() != StateUndefined {
			break
		}
		if err == nil {
			// Arena exists but no sink yet; detach and retry.
			src.Disconnect()
		} else {
			var ae *ArenaError
			if !errors.As(err, &ae) {
				return nil, err
			}
		}
		select {
		case <-ctx.Done():
			return nil, arenaErr("connect", arenaName(name), ctx.Err())
		case <-time.After(frameConnectPoll):
		}
	}

	src.node.rw.LockSharable()
	geom := *src.obj
	src.node.rw.UnlockSharable()

	bufLen := int(geom.Rows) * int(geom.Step)
	pix, err := src.arena.Bytes(geom.Data, bufLen)
	if err != nil {
		src.Disconnect()
		return nil, err
	}
	return &FrameSource{
		src: src,
		mat: Mat{
			Rows: int(geom.Rows), Cols: int(geom.Cols), Step: int(geom.Step),
			Format: geom.Format, Pix: pix,
		},
	}, nil
}

// Name returns the endpoint name.
func (f *FrameSource) Name() string { return f.src.Name() }

// Geometry returns the immutable frame geometry.
func (f *FrameSource) Geometry() (rows, cols int, format PixelFormat) {
	return f.mat.Rows, f.mat.Cols, f.mat.Format
}

// SampleNumber returns the write number of the most recently observed
// frame.
func (f *FrameSource) SampleNumber() uint64 { return f.src.SampleNumber() }

// Wait blocks for the next frame; see Source.Wait.
func (f *FrameSource) Wait() (WaitStatus, error) { return f.src.Wait() }

// Mat returns the shared matrix view. Valid only between a Ready Wait and
// the matching Post; consumers that need the pixels afterwards use Clone
// or CopyTo inside the critical section.
func (f *FrameSource) Mat() (*Mat, error) {
	if _, err := f.src.Object(); err != nil {
		return nil, err
	}
	return &f.mat, nil
}

// Clone copies the current frame out of shared memory. Valid only between
// Wait and Post.
func (f *FrameSource) Clone() (*Mat, error) {
	m, err := f.Mat()
	if err != nil {
		return nil, err
	}
	return m.Clone(), nil
}

// Post releases the current frame; see Source.Post.
func (f *FrameSource) Post() error { return f.src.Post() }

// Interrupt unblocks a Wait in progress.
func (f *FrameSource) Interrupt() { f.src.Interrupt() }

// Disconnect detaches from the node.
func (f *FrameSource) Disconnect() error { return f.src.Disconnect() }
