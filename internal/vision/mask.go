// Package vision holds the small frame operations behind the frame
// components: region-of-interest masking, test-pattern generation and PNG
// snapshots.
package vision

import (
	"fmt"
	"image"
	"image/png"
	"os"

	"github.com/banshee-data/trackpipe/internal/shmem"
)

// LoadMaskPNG reads a grayscale mask image. Any PNG is accepted; color
// images are collapsed to luma.
func LoadMaskPNG(path string) (*shmem.Mat, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open mask %s: %w", path, err)
	}
	defer f.Close()

	img, err := png.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode mask %s: %w", path, err)
	}

	b := img.Bounds()
	m := shmem.NewMat(b.Dy(), b.Dx(), shmem.PixelGray8)
	gray := image.NewGray(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			gray.Set(x, y, img.At(x, y))
			m.Row(y - b.Min.Y)[x-b.Min.X] = gray.GrayAt(x, y).Y
		}
	}
	return m, nil
}

// Masker zeroes every pixel of a frame whose corresponding mask pixel is
// zero; non-zero mask pixels pass the frame through unchanged. With invert
// set the sense of the mask is flipped.
type Masker struct {
	mask   *shmem.Mat
	invert bool
}

// NewMasker builds a masker from a grayscale mask matrix.
func NewMasker(mask *shmem.Mat, invert bool) (*Masker, error) {
	if mask.Format != shmem.PixelGray8 {
		return nil, fmt.Errorf("mask must be grayscale, got format %d", mask.Format)
	}
	return &Masker{mask: mask, invert: invert}, nil
}

// Apply masks m in place. The mask and frame must have equal pixel
// dimensions; the frame may have more channels than the mask.
func (k *Masker) Apply(m *shmem.Mat) error {
	if m.Rows != k.mask.Rows || m.Cols != k.mask.Cols {
		return fmt.Errorf("mask %dx%d and frame %dx%d do not have equal sizes",
			k.mask.Rows, k.mask.Cols, m.Rows, m.Cols)
	}
	ch := m.Format.Channels()
	for r := 0; r < m.Rows; r++ {
		maskRow := k.mask.Row(r)
		frameRow := m.Row(r)
		for c := 0; c < m.Cols; c++ {
			zero := maskRow[c] == 0
			if k.invert {
				zero = !zero
			}
			if zero {
				for i := 0; i < ch; i++ {
					frameRow[c*ch+i] = 0
				}
			}
		}
	}
	return nil
}
