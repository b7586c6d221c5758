package vision

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"

	"github.com/banshee-data/trackpipe/internal/shmem"
)

// WriteSnapshotPNG writes a frame to disk as a PNG. BGR frames are
// converted to RGB; grayscale frames are written as-is.
func WriteSnapshotPNG(m *shmem.Mat, path string) error {
	var img image.Image
	switch m.Format {
	case shmem.PixelGray8:
		g := image.NewGray(image.Rect(0, 0, m.Cols, m.Rows))
		for r := 0; r < m.Rows; r++ {
			copy(g.Pix[r*g.Stride:], m.Row(r))
		}
		img = g
	case shmem.PixelBGR8:
		rgba := image.NewRGBA(image.Rect(0, 0, m.Cols, m.Rows))
		for r := 0; r < m.Rows; r++ {
			row := m.Row(r)
			for c := 0; c < m.Cols; c++ {
				rgba.SetRGBA(c, r, color.RGBA{
					R: row[c*3+2],
					G: row[c*3+1],
					B: row[c*3],
					A: 0xFF,
				})
			}
		}
		img = rgba
	default:
		return fmt.Errorf("unsupported pixel format %d", m.Format)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create snapshot %s: %w", path, err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		return fmt.Errorf("failed to encode snapshot %s: %w", path, err)
	}
	return nil
}
