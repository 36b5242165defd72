// Package trackdb handles SQLite persistence for track parameters and
// evaluation history.
package trackdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gridbox/pitwall/internal/race"

	_ "modernc.org/sqlite" // SQLite driver.
)

// ErrTrackNotFound is returned when a track ID has no row.
var ErrTrackNotFound = errors.New("track not found")

// DB wraps SQLite access for track and run data.
type DB struct {
	db *sql.DB
}

// Open opens or creates the SQLite database and applies migrations.
func Open(path string) (*DB, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	d := &DB{db: db}
	if err := d.migrate(); err != nil {
		if cerr := db.Close(); cerr != nil {
			// Best-effort close on migration failure.
			_ = cerr
		}
		return nil, err
	}
	return d, nil
}

// Close closes the underlying database.
func (d *DB) Close() error {
	return d.db.Close()
}

func (d *DB) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS tracks (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			full_name TEXT NOT NULL,
			type TEXT NOT NULL,
			direction TEXT NOT NULL,
			length_km REAL NOT NULL,
			turns INTEGER NOT NULL,
			avg_lap_time_ms INTEGER,
			pit_stop_time_s REAL NOT NULL,
			tire_stress REAL NOT NULL,
			fuel_usage_per_lap_l REAL NOT NULL,
			overtaking_difficulty REAL NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS runs (
			id INTEGER PRIMARY KEY,
			created_at TEXT NOT NULL,
			track_id TEXT NOT NULL,
			race_laps INTEGER NOT NULL,
			strategy TEXT NOT NULL,
			num_runs INTEGER NOT NULL,
			seed INTEGER NOT NULL,
			mean_time REAL NOT NULL,
			std_time REAL NOT NULL,
			win_prob REAL NOT NULL,
			podium_prob REAL NOT NULL,
			dnf_prob REAL NOT NULL,
			utility REAL NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at);`,
		`CREATE INDEX IF NOT EXISTS idx_runs_track_id ON runs(track_id);`,
	}
	for _, stmt := range stmts {
		if _, err := d.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// TrackRecord is the raw per-track row as imported from timing data.
// Conversion to race.TrackConfig happens on read so normalization
// tweaks do not require a re-import.
type TrackRecord struct {
	ID                   string
	Name                 string
	FullName             string
	Type                 string
	Direction            string
	LengthKM             float64
	Turns                int
	AvgLapTimeMs         sql.NullInt64
	PitStopTimeS         float64
	TireStress           float64
	FuelUsagePerLapL     float64
	OvertakingDifficulty float64
}

// TrackConfig converts the stored row into simulation parameters. Fuel
// usage is normalized against a 2 kg/lap baseline; tracks without lap
// timing data fall back to an average-speed estimate that slows with
// corner count.
func (t TrackRecord) TrackConfig() race.TrackConfig {
	baseLapTime := float64(t.AvgLapTimeMs.Int64) / 1000.0
	if !t.AvgLapTimeMs.Valid || t.AvgLapTimeMs.Int64 <= 0 {
		avgSpeed := 190.0 - 5.0*(float64(t.Turns)/10.0)
		if avgSpeed < 150.0 {
			avgSpeed = 150.0
		}
		baseLapTime = t.LengthKM / avgSpeed * 3600.0
	}
	pitLoss := t.PitStopTimeS
	if pitLoss <= 0 {
		pitLoss = 22.0
	}
	return race.TrackConfig{
		ID:                   t.ID,
		Name:                 t.Name,
		LapLengthKM:          t.LengthKM,
		BaseLapTime:          baseLapTime,
		Corners:              t.Turns,
		PitLossTime:          pitLoss,
		TireStress:           t.TireStress,
		FuelUsage:            t.FuelUsagePerLapL * 0.75 / 2.0,
		OvertakingDifficulty: t.OvertakingDifficulty,
	}
}

// UpsertTracks inserts or replaces track rows in one transaction.
func (d *DB) UpsertTracks(ctx context.Context, tracks []TrackRecord) (err error) {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			if rerr := tx.Rollback(); rerr != nil {
				// Best-effort rollback.
				_ = rerr
			}
		}
	}()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR REPLACE INTO tracks (id, name, full_name, type, direction, length_km, turns, avg_lap_time_ms, pit_stop_time_s, tire_stress, fuel_usage_per_lap_l, overtaking_difficulty)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := stmt.Close(); cerr != nil {
			// Best-effort statement close.
			_ = cerr
		}
	}()
	for _, t := range tracks {
		if _, err = stmt.ExecContext(ctx, t.ID, t.Name, t.FullName, t.Type, t.Direction,
			t.LengthKM, t.Turns, t.AvgLapTimeMs, t.PitStopTimeS, t.TireStress,
			t.FuelUsagePerLapL, t.OvertakingDifficulty); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// Track loads one track by ID.
func (d *DB) Track(ctx context.Context, id string) (TrackRecord, error) {
	row := d.db.QueryRowContext(ctx,
		`SELECT id, name, full_name, type, direction, length_km, turns, avg_lap_time_ms, pit_stop_time_s, tire_stress, fuel_usage_per_lap_l, overtaking_difficulty
		 FROM tracks WHERE id = ?`, id)
	var t TrackRecord
	err := row.Scan(&t.ID, &t.Name, &t.FullName, &t.Type, &t.Direction, &t.LengthKM, &t.Turns,
		&t.AvgLapTimeMs, &t.PitStopTimeS, &t.TireStress, &t.FuelUsagePerLapL, &t.OvertakingDifficulty)
	if errors.Is(err, sql.ErrNoRows) {
		return TrackRecord{}, fmt.Errorf("%w: %s", ErrTrackNotFound, id)
	}
	if err != nil {
		return TrackRecord{}, err
	}
	return t, nil
}

// ListTracks returns all tracks ordered by ID.
func (d *DB) ListTracks(ctx context.Context) ([]TrackRecord, error) {
	rows, err := d.db.QueryContext(ctx,
		`SELECT id, name, full_name, type, direction, length_km, turns, avg_lap_time_ms, pit_stop_time_s, tire_stress, fuel_usage_per_lap_l, overtaking_difficulty
		 FROM tracks ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var out []TrackRecord
	for rows.Next() {
		var t TrackRecord
		if err := rows.Scan(&t.ID, &t.Name, &t.FullName, &t.Type, &t.Direction, &t.LengthKM, &t.Turns,
			&t.AvgLapTimeMs, &t.PitStopTimeS, &t.TireStress, &t.FuelUsagePerLapL, &t.OvertakingDifficulty); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// RunRecord is one persisted strategy evaluation.
type RunRecord struct {
	ID         int64
	CreatedAt  time.Time
	TrackID    string
	RaceLaps   int
	Strategy   string
	NumRuns    int
	Seed       int64
	MeanTime   float64
	StdTime    float64
	WinProb    float64
	PodiumProb float64
	DNFProb    float64
	Utility    float64
}

// InsertRun stores an evaluation in the history table.
func (d *DB) InsertRun(ctx context.Context, r RunRecord) (int64, error) {
	createdAt := r.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	res, err := d.db.ExecContext(ctx,
		`INSERT INTO runs (created_at, track_id, race_laps, strategy, num_runs, seed, mean_time, std_time, win_prob, podium_prob, dnf_prob, utility)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		createdAt.UTC().Format(time.RFC3339Nano), r.TrackID, r.RaceLaps, r.Strategy, r.NumRuns, r.Seed,
		r.MeanTime, r.StdTime, r.WinProb, r.PodiumProb, r.DNFProb, r.Utility)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// ListRuns returns the most recent evaluations, newest first,
// optionally filtered by track.
func (d *DB) ListRuns(ctx context.Context, trackID string, limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := d.db.QueryContext(ctx,
		`SELECT id, created_at, track_id, race_laps, strategy, num_runs, seed, mean_time, std_time, win_prob, podium_prob, dnf_prob, utility
		 FROM runs
		 WHERE (? = '' OR track_id = ?)
		 ORDER BY created_at DESC, id DESC
		 LIMIT ?`, trackID, trackID, limit)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var out []RunRecord
	for rows.Next() {
		var r RunRecord
		var createdAt string
		if err := rows.Scan(&r.ID, &createdAt, &r.TrackID, &r.RaceLaps, &r.Strategy, &r.NumRuns, &r.Seed,
			&r.MeanTime, &r.StdTime, &r.WinProb, &r.PodiumProb, &r.DNFProb, &r.Utility); err != nil {
			return nil, err
		}
		ts, err := time.Parse(time.RFC3339Nano, createdAt)
		if err != nil {
			return nil, fmt.Errorf("failed to parse run timestamp: %w", err)
		}
		r.CreatedAt = ts
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
