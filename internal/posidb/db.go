// Package posidb is the SQLite store the recorder writes position streams
// into: one row per recording session, one row per recorded sample.
package posidb

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/banshee-data/trackpipe/internal/track"
)

// DB wraps the recorder database.
type DB struct {
	*sql.DB
}

// Open opens (creating if necessary) the database at path and applies any
// pending schema migrations.
func Open(path string) (*DB, error) {
	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", path, err)
	}
	// One connection: recorder sessions write concurrently and SQLite
	// admits a single writer.
	sqlDB.SetMaxOpenConns(1)
	db := &DB{sqlDB}
	if err := db.migrateUp(); err != nil {
		sqlDB.Close()
		return nil, err
	}
	return db, nil
}

// StartRecording registers a new recording session for a source stream.
func (db *DB) StartRecording(id, source string, startedAt time.Time) error {
	_, err := db.Exec(
		`INSERT INTO recordings (recording_id, source, started_at) VALUES (?, ?, ?)`,
		id, source, startedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to start recording %s: %w", id, err)
	}
	return nil
}

// StopRecording stamps the session's end time.
func (db *DB) StopRecording(id string, stoppedAt time.Time) error {
	_, err := db.Exec(
		`UPDATE recordings SET stopped_at = ? WHERE recording_id = ?`,
		stoppedAt.UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to stop recording %s: %w", id, err)
	}
	return nil
}

// RecordPosition appends one sample to a recording.
func (db *DB) RecordPosition(recordingID string, sampleNumber uint64, p *track.Position) error {
	_, err := db.Exec(`
		INSERT INTO positions (
			recording_id, sample_number,
			x, y, vx, vy, hx, hy,
			position_valid, velocity_valid, heading_valid, region_valid, region
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		recordingID, int64(sampleNumber),
		p.Point.X, p.Point.Y,
		p.Velocity.X, p.Velocity.Y,
		p.Heading.X, p.Heading.Y,
		p.PositionValid, p.VelocityValid, p.HeadingValid, p.RegionValid,
		p.Region())
	if err != nil {
		return fmt.Errorf("failed to record position %d of %s: %w", sampleNumber, recordingID, err)
	}
	return nil
}

// PositionCount returns the number of samples stored for a recording.
func (db *DB) PositionCount(recordingID string) (int, error) {
	var n int
	err := db.QueryRow(
		`SELECT COUNT(*) FROM positions WHERE recording_id = ?`, recordingID).Scan(&n)
	return n, err
}
