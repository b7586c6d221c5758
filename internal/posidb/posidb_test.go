package posidb

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/trackpipe/internal/track"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "recordings.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestOpenAppliesMigrations(t *testing.T) {
	db := openTestDB(t)

	var n int
	require.NoError(t, db.QueryRow(
		`SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name IN ('recordings','positions')`).Scan(&n))
	assert.Equal(t, 2, n)
}

func TestOpenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "recordings.db")
	db, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	// Re-opening an already-migrated database is a no-op.
	db, err = Open(path)
	require.NoError(t, err)
	require.NoError(t, db.Close())
}

func TestRecordPositions(t *testing.T) {
	db := openTestDB(t)

	id := uuid.NewString()
	started := time.Now()
	require.NoError(t, db.StartRecording(id, "pos_filtered", started))

	var p track.Position
	p.Point = track.Point2D{X: 12.5, Y: -3}
	p.PositionValid = true
	p.SetRegion("arena-north")

	for i := 0; i < 5; i++ {
		require.NoError(t, db.RecordPosition(id, uint64(i+1), &p))
	}
	require.NoError(t, db.StopRecording(id, started.Add(time.Second)))

	n, err := db.PositionCount(id)
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	var x float64
	var region string
	var valid bool
	require.NoError(t, db.QueryRow(
		`SELECT x, region, region_valid FROM positions WHERE recording_id = ? AND sample_number = 1`,
		id).Scan(&x, &region, &valid))
	assert.Equal(t, 12.5, x)
	assert.Equal(t, "arena-north", region)
	assert.True(t, valid)
}

func TestDuplicateSampleRejected(t *testing.T) {
	db := openTestDB(t)

	id := uuid.NewString()
	require.NoError(t, db.StartRecording(id, "pos", time.Now()))

	var p track.Position
	require.NoError(t, db.RecordPosition(id, 1, &p))
	require.Error(t, db.RecordPosition(id, 1, &p))
}

func TestPositionCountUnknownRecording(t *testing.T) {
	db := openTestDB(t)
	n, err := db.PositionCount("no-such-recording")
	require.NoError(t, err)
	assert.Zero(t, n)
}
