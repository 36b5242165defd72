package race

import "fmt"

// Strategy is a candidate race plan: where to stop, which compound to
// fit for each stint, how much fuel to start with, and optionally the
// engine mode per stint.
type Strategy struct {
	Name      string
	PitLaps   []int
	Compounds []Compound
	FuelStart float64
	Modes     []EngineMode
}

// NewStrategy validates and constructs a strategy. The compound list
// must be one longer than the pit-lap list, pit laps must be strictly
// increasing and positive, and fuel must lie within the configured
// bounds. Modes may be nil, defaulting to normal for every stint.
func NewStrategy(name string, pitLaps []int, compounds []Compound, fuelStart float64, modes []EngineMode, cfg SimConfig) (Strategy, error) {
	if len(compounds) != len(pitLaps)+1 {
		return Strategy{}, &StrategyError{
			Strategy: name,
			Reason:   fmt.Sprintf("need %d compounds for %d stops, got %d", len(pitLaps)+1, len(pitLaps), len(compounds)),
		}
	}
	prev := 0
	for _, lap := range pitLaps {
		if lap <= prev {
			return Strategy{}, &StrategyError{Strategy: name, Reason: "pit laps must be strictly increasing and positive"}
		}
		prev = lap
	}
	if fuelStart < cfg.MinStartFuel || fuelStart > cfg.MaxStartFuel {
		return Strategy{}, &StrategyError{
			Strategy: name,
			Reason:   fmt.Sprintf("starting fuel %.1fkg outside [%.0f, %.0f]", fuelStart, cfg.MinStartFuel, cfg.MaxStartFuel),
		}
	}
	if modes == nil {
		modes = make([]EngineMode, len(compounds))
		for i := range modes {
			modes[i] = ModeNormal
		}
	} else if len(modes) != len(compounds) {
		return Strategy{}, &StrategyError{
			Strategy: name,
			Reason:   fmt.Sprintf("need %d engine modes for %d stints, got %d", len(compounds), len(compounds), len(modes)),
		}
	}
	return Strategy{
		Name:      name,
		PitLaps:   append([]int(nil), pitLaps...),
		Compounds: append([]Compound(nil), compounds...),
		FuelStart: fuelStart,
		Modes:     append([]EngineMode(nil), modes...),
	}, nil
}

// Stops returns the number of planned pit stops.
func (s Strategy) Stops() int { return len(s.PitLaps) }

// DistinctCompounds returns the number of distinct compounds used.
func (s Strategy) DistinctCompounds() int {
	seen := map[Compound]struct{}{}
	for _, c := range s.Compounds {
		seen[c] = struct{}{}
	}
	return len(seen)
}

// CheckRules validates the strategy against the race in hand: pit laps
// must fall inside the race and the compound rule must be satisfied.
// Called at simulation entry so a rule violation never surfaces
// mid-run.
func (s Strategy) CheckRules(c Conditions) error {
	for _, lap := range s.PitLaps {
		if lap < 1 || lap >= c.RaceLaps {
			return &StrategyError{
				Strategy: s.Name,
				Reason:   fmt.Sprintf("pit lap %d outside [1, %d)", lap, c.RaceLaps),
			}
		}
	}
	if !c.RefuelingAllowed && s.DistinctCompounds() < c.MinCompounds {
		return &StrategyError{
			Strategy: s.Name,
			Reason:   fmt.Sprintf("must use %d distinct compounds, found %d", c.MinCompounds, s.DistinctCompounds()),
		}
	}
	return nil
}

// FuelNeeded estimates the fuel required for the race at the given
// burn rate.
func (s Strategy) FuelNeeded(raceLaps int, burnPerLap float64) float64 {
	return float64(raceLaps) * burnPerLap
}

// FuelFeasible reports whether the starting fuel plausibly covers the
// race distance. A small shortfall is allowed because eco modes and
// safety cars reduce burn.
func (s Strategy) FuelFeasible(raceLaps int, burnPerLap float64) bool {
	return s.FuelStart >= s.FuelNeeded(raceLaps, burnPerLap)*0.95
}
