package trackdb

import (
	"context"
	"database/sql"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "pitwall.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() {
		_ = db.Close()
	})
	return db
}

func TestUpsertAndGetTrack(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	rec := TrackRecord{
		ID:                   "monza",
		Name:                 "Monza",
		FullName:             "Autodromo Nazionale Monza",
		Type:                 "RACE",
		Direction:            "CLOCKWISE",
		LengthKM:             5.793,
		Turns:                11,
		AvgLapTimeMs:         sql.NullInt64{Int64: 82000, Valid: true},
		PitStopTimeS:         21.5,
		TireStress:           0.7,
		FuelUsagePerLapL:     4.055,
		OvertakingDifficulty: 0.5,
	}
	if err := db.UpsertTracks(ctx, []TrackRecord{rec}); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	got, err := db.Track(ctx, "monza")
	if err != nil {
		t.Fatalf("get track: %v", err)
	}
	if got.Name != "Monza" || got.Turns != 11 {
		t.Fatalf("unexpected track: %+v", got)
	}

	cfg := got.TrackConfig()
	if cfg.BaseLapTime != 82.0 {
		t.Fatalf("expected base lap time from timing data, got %v", cfg.BaseLapTime)
	}
	wantFuel := 4.055 * 0.75 / 2.0
	if math.Abs(cfg.FuelUsage-wantFuel) > 1e-9 {
		t.Fatalf("expected normalized fuel usage %v, got %v", wantFuel, cfg.FuelUsage)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("converted config invalid: %v", err)
	}

	if _, err := db.Track(ctx, "missing"); !errors.Is(err, ErrTrackNotFound) {
		t.Fatalf("expected ErrTrackNotFound, got %v", err)
	}
}

func TestTrackConfigLapTimeFallback(t *testing.T) {
	rec := TrackRecord{
		ID:       "adelaide",
		Name:     "Adelaide",
		LengthKM: 3.78,
		Turns:    16,
	}
	cfg := rec.TrackConfig()
	// 190 - 5*(16/10) = 182 km/h average speed.
	want := 3.78 / 182.0 * 3600.0
	if math.Abs(cfg.BaseLapTime-want) > 1e-9 {
		t.Fatalf("expected estimated lap time %v, got %v", want, cfg.BaseLapTime)
	}
	if cfg.PitLossTime != 22.0 {
		t.Fatalf("expected default pit loss, got %v", cfg.PitLossTime)
	}
}

func TestRunHistory(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	for i, strategy := range []string{"1stop-M-H", "2stop-SMH", "1stop-S-H"} {
		_, err := db.InsertRun(ctx, RunRecord{
			TrackID:  "monza",
			RaceLaps: 53,
			Strategy: strategy,
			NumRuns:  1000,
			Seed:     int64(i),
			MeanTime: 5400 + float64(i),
			Utility:  0.5,
		})
		if err != nil {
			t.Fatalf("insert run: %v", err)
		}
	}
	if _, err := db.InsertRun(ctx, RunRecord{TrackID: "monaco", RaceLaps: 78, Strategy: "1stop-M-H", NumRuns: 1000}); err != nil {
		t.Fatalf("insert run: %v", err)
	}

	all, err := db.ListRuns(ctx, "", 10)
	if err != nil {
		t.Fatalf("list runs: %v", err)
	}
	if len(all) != 4 {
		t.Fatalf("expected 4 runs, got %d", len(all))
	}
	if all[0].TrackID != "monaco" {
		t.Fatalf("expected newest run first, got %+v", all[0])
	}

	monza, err := db.ListRuns(ctx, "monza", 2)
	if err != nil {
		t.Fatalf("list runs: %v", err)
	}
	if len(monza) != 2 {
		t.Fatalf("expected limit of 2, got %d", len(monza))
	}
	for _, r := range monza {
		if r.TrackID != "monza" {
			t.Fatalf("filter leaked run: %+v", r)
		}
	}
}

func TestImportDir(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{
		"circuits.json": `[
			{"id": "monaco", "name": "Monaco", "fullName": "Circuit de Monaco", "type": "STREET", "direction": "CLOCKWISE", "length": 3.337, "turns": 19},
			{"id": "monza", "name": "Monza", "fullName": "Autodromo Nazionale Monza", "type": "RACE", "direction": "CLOCKWISE", "length": 5.793, "turns": 11}
		]`,
		"race-results.json": `[
			{"raceId": "r1", "timeMillis": 74000},
			{"raceId": "r1", "timeMillis": 76000},
			{"raceId": "r2", "timeMillis": 82000}
		]`,
		"pit-stops.json": `[
			{"raceId": "r1", "timeMillis": 24000},
			{"raceId": "r1", "timeMillis": null}
		]`,
		"races.json": `[
			{"id": "r1", "circuitId": "monaco"},
			{"id": "r2", "circuitId": "monza"}
		]`,
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatalf("write fixture: %v", err)
		}
	}

	db := openTestDB(t)
	ctx := context.Background()
	n, err := ImportDir(ctx, db, dir)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 tracks imported, got %d", n)
	}

	monaco, err := db.Track(ctx, "monaco")
	if err != nil {
		t.Fatalf("get track: %v", err)
	}
	if !monaco.AvgLapTimeMs.Valid || monaco.AvgLapTimeMs.Int64 != 75000 {
		t.Fatalf("expected mean lap 75000ms, got %+v", monaco.AvgLapTimeMs)
	}
	if monaco.PitStopTimeS != 24.0 {
		t.Fatalf("expected pit stop time from data, got %v", monaco.PitStopTimeS)
	}
	if monaco.TireStress != streetTireStress || monaco.OvertakingDifficulty != streetOvertaking {
		t.Fatalf("expected street heuristics, got %+v", monaco)
	}

	monza, err := db.Track(ctx, "monza")
	if err != nil {
		t.Fatalf("get track: %v", err)
	}
	if monza.TireStress != roadTireStress {
		t.Fatalf("expected road-course tire stress, got %v", monza.TireStress)
	}
	// No pit data for monza resolves to the generic average.
	if monza.PitStopTimeS != defaultPitStopTimeS {
		t.Fatalf("expected default pit stop time, got %v", monza.PitStopTimeS)
	}
}

func TestImportDirMissingCircuits(t *testing.T) {
	db := openTestDB(t)
	if _, err := ImportDir(context.Background(), db, t.TempDir()); err == nil {
		t.Fatalf("expected an error without circuits.json")
	}
}
