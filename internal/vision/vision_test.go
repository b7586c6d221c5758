package vision

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/trackpipe/internal/shmem"
)

func writeMask(t *testing.T, w, h int, lit func(x, y int) bool) string {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if lit(x, y) {
				img.SetGray(x, y, color.Gray{Y: 255})
			}
		}
	}
	path := filepath.Join(t.TempDir(), "mask.png")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, img))
	require.NoError(t, f.Close())
	return path
}

func TestLoadMaskPNG(t *testing.T) {
	path := writeMask(t, 8, 4, func(x, y int) bool { return x < 4 })
	m, err := LoadMaskPNG(path)
	require.NoError(t, err)
	assert.Equal(t, 4, m.Rows)
	assert.Equal(t, 8, m.Cols)
	assert.Equal(t, byte(255), m.Row(0)[0])
	assert.Equal(t, byte(0), m.Row(0)[7])
}

func TestMaskerZeroesOutsideROI(t *testing.T) {
	path := writeMask(t, 4, 2, func(x, y int) bool { return x >= 2 })
	mask, err := LoadMaskPNG(path)
	require.NoError(t, err)

	k, err := NewMasker(mask, false)
	require.NoError(t, err)

	frame := shmem.NewMat(2, 4, shmem.PixelBGR8)
	frame.Fill(0x40)
	require.NoError(t, k.Apply(frame))

	for r := 0; r < 2; r++ {
		row := frame.Row(r)
		for c := 0; c < 4; c++ {
			want := byte(0)
			if c >= 2 {
				want = 0x40
			}
			for i := 0; i < 3; i++ {
				assert.Equal(t, want, row[c*3+i], "row %d col %d", r, c)
			}
		}
	}
}

func TestMaskerInvert(t *testing.T) {
	path := writeMask(t, 2, 1, func(x, y int) bool { return x == 0 })
	mask, err := LoadMaskPNG(path)
	require.NoError(t, err)

	k, err := NewMasker(mask, true)
	require.NoError(t, err)

	frame := shmem.NewMat(1, 2, shmem.PixelGray8)
	frame.Fill(9)
	require.NoError(t, k.Apply(frame))
	assert.Equal(t, byte(0), frame.Row(0)[0])
	assert.Equal(t, byte(9), frame.Row(0)[1])
}

func TestMaskerSizeMismatch(t *testing.T) {
	path := writeMask(t, 2, 2, func(x, y int) bool { return true })
	mask, err := LoadMaskPNG(path)
	require.NoError(t, err)

	k, err := NewMasker(mask, false)
	require.NoError(t, err)
	require.Error(t, k.Apply(shmem.NewMat(4, 4, shmem.PixelGray8)))
}

func TestMaskerRejectsColorMask(t *testing.T) {
	_, err := NewMasker(shmem.NewMat(2, 2, shmem.PixelBGR8), false)
	require.Error(t, err)
}

func TestDrawTestPatternScrolls(t *testing.T) {
	a := shmem.NewMat(4, 4, shmem.PixelGray8)
	b := shmem.NewMat(4, 4, shmem.PixelGray8)
	DrawTestPattern(a, 0)
	DrawTestPattern(b, 1)

	assert.Equal(t, byte(0), a.Row(0)[0])
	assert.Equal(t, byte(3), a.Row(1)[2])
	// Sample k+1 shifts every byte by one.
	assert.Equal(t, a.Row(0)[1], b.Row(0)[0])
}

func TestWriteSnapshotRoundTrip(t *testing.T) {
	m := shmem.NewMat(3, 5, shmem.PixelBGR8)
	DrawTestPattern(m, 7)

	path := filepath.Join(t.TempDir(), "frame.png")
	require.NoError(t, WriteSnapshotPNG(m, path))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	img, err := png.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, 5, img.Bounds().Dx())
	assert.Equal(t, 3, img.Bounds().Dy())

	r, g, b, _ := img.At(0, 0).RGBA()
	want := uint32(m.Row(0)[0])
	assert.Equal(t, want, r>>8)
	assert.Equal(t, want, g>>8)
	assert.Equal(t, want, b>>8)
}

func TestWriteSnapshotGray(t *testing.T) {
	m := shmem.NewMat(2, 2, shmem.PixelGray8)
	m.Fill(0x80)
	path := filepath.Join(t.TempDir(), "gray.png")
	require.NoError(t, WriteSnapshotPNG(m, path))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	img, err := png.Decode(f)
	require.NoError(t, err)
	gray, ok := img.(*image.Gray)
	require.True(t, ok)
	assert.Equal(t, byte(0x80), gray.GrayAt(1, 1).Y)
}
