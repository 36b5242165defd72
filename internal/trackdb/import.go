package trackdb

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Timing-export JSON shapes. Lap rows carry either a circuit ID
// directly or a race ID that resolves through the races file.
type circuitJSON struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	FullName  string  `json:"fullName"`
	Type      string  `json:"type"`
	Direction string  `json:"direction"`
	Length    float64 `json:"length"`
	Turns     int     `json:"turns"`
}

type lapJSON struct {
	RaceID     string   `json:"raceId"`
	CircuitID  string   `json:"circuitId"`
	TimeMillis *float64 `json:"timeMillis"`
}

type pitStopJSON struct {
	RaceID     string   `json:"raceId"`
	TimeMillis *float64 `json:"timeMillis"`
}

type raceJSON struct {
	ID        string `json:"id"`
	CircuitID string `json:"circuitId"`
}

// Heuristic parameters by circuit type. Street circuits stress tires
// more and are harder to pass on.
const (
	streetTireStress    = 0.85
	roadTireStress      = 0.7
	streetOvertaking    = 0.9
	roadOvertaking      = 0.5
	litersPerKM         = 0.7
	defaultPitStopTimeS = 22.0
	circuitTypeStreet   = "STREET"
)

// ImportDir reads a timing export directory (circuits.json plus
// optional lap-time, pit-stop and race files) and upserts one row per
// circuit. Returns the number of tracks imported.
func ImportDir(ctx context.Context, db *DB, dir string) (int, error) {
	var circuits []circuitJSON
	if err := readJSON(filepath.Join(dir, "circuits.json"), &circuits); err != nil {
		return 0, fmt.Errorf("failed to read circuits: %w", err)
	}
	if len(circuits) == 0 {
		return 0, fmt.Errorf("no circuits in %s", dir)
	}

	var laps []lapJSON
	for _, name := range []string{"qualifying-results.json", "race-results.json", "practice-results.json"} {
		var batch []lapJSON
		if err := readOptionalJSON(filepath.Join(dir, name), &batch); err != nil {
			return 0, fmt.Errorf("failed to read %s: %w", name, err)
		}
		laps = append(laps, batch...)
	}
	var pitStops []pitStopJSON
	if err := readOptionalJSON(filepath.Join(dir, "pit-stops.json"), &pitStops); err != nil {
		return 0, fmt.Errorf("failed to read pit stops: %w", err)
	}
	var races []raceJSON
	if err := readOptionalJSON(filepath.Join(dir, "races.json"), &races); err != nil {
		return 0, fmt.Errorf("failed to read races: %w", err)
	}

	raceToCircuit := make(map[string]string, len(races))
	for _, r := range races {
		raceToCircuit[r.ID] = r.CircuitID
	}

	records := make([]TrackRecord, 0, len(circuits))
	for _, c := range circuits {
		records = append(records, buildRecord(c, laps, pitStops, raceToCircuit))
	}
	if err := db.UpsertTracks(ctx, records); err != nil {
		return 0, fmt.Errorf("failed to store tracks: %w", err)
	}
	return len(records), nil
}

func buildRecord(c circuitJSON, laps []lapJSON, pitStops []pitStopJSON, raceToCircuit map[string]string) TrackRecord {
	var lapSum float64
	var lapCount int
	for _, lap := range laps {
		if lap.TimeMillis == nil {
			continue
		}
		if lap.CircuitID == c.ID || raceToCircuit[lap.RaceID] == c.ID {
			lapSum += *lap.TimeMillis
			lapCount++
		}
	}
	var avgLap sql.NullInt64
	if lapCount > 0 {
		avgLap = sql.NullInt64{Int64: int64(lapSum / float64(lapCount)), Valid: true}
	}

	var pitSum float64
	var pitCount int
	for _, ps := range pitStops {
		if ps.TimeMillis == nil {
			continue
		}
		if raceToCircuit[ps.RaceID] == c.ID {
			pitSum += *ps.TimeMillis
			pitCount++
		}
	}
	pitStopTime := defaultPitStopTimeS
	if pitCount > 0 {
		pitStopTime = pitSum / float64(pitCount) / 1000.0
	}

	tireStress := roadTireStress
	overtaking := roadOvertaking
	if c.Type == circuitTypeStreet {
		tireStress = streetTireStress
		overtaking = streetOvertaking
	}

	return TrackRecord{
		ID:                   c.ID,
		Name:                 c.Name,
		FullName:             c.FullName,
		Type:                 c.Type,
		Direction:            c.Direction,
		LengthKM:             c.Length,
		Turns:                c.Turns,
		AvgLapTimeMs:         avgLap,
		PitStopTimeS:         pitStopTime,
		TireStress:           tireStress,
		FuelUsagePerLapL:     c.Length * litersPerKM,
		OvertakingDifficulty: overtaking,
	}
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

func readOptionalJSON(path string, v any) error {
	err := readJSON(path, v)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
