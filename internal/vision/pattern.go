package vision

import "github.com/banshee-data/trackpipe/internal/shmem"

// DrawTestPattern fills m with a diagonal gradient that scrolls one pixel
// per sample, so consumers can verify both pixel integrity and frame
// ordering by eye or by byte.
func DrawTestPattern(m *shmem.Mat, sample uint64) {
	ch := m.Format.Channels()
	for r := 0; r < m.Rows; r++ {
		row := m.Row(r)
		for c := 0; c < m.Cols; c++ {
			v := byte(uint64(r) + uint64(c) + sample)
			for i := 0; i < ch; i++ {
				row[c*ch+i] = v
			}
		}
	}
}
