// Package field generates the synthetic competitor grid.
package field

import (
	"fmt"
	"math/rand"

	"github.com/gridbox/pitwall/internal/race"
)

// Pace tier boundaries and offset ranges, seconds per lap relative to
// the reference car. Hand-chosen to match a modern grid: a tight front
// group, a broad midfield, and a slow tail.
const (
	frontRunnerCount = 6
	midfieldMaxCount = 8

	frontPaceLo = -0.8
	frontPaceHi = -0.2
	midPaceLo   = -0.2
	midPaceHi   = 0.8
	backPaceLo  = 0.8
	backPaceHi  = 2.0

	paceJitterStd = 0.1

	oneStopProb = 0.65
)

// Competitor is one synthetic opponent: a fixed pace offset and an
// assigned strategy, drawn once per scenario and shared by every
// Monte Carlo run.
type Competitor struct {
	PaceOffset float64
	Strategy   race.Strategy
}

// Field is the generated grid of opponents.
type Field struct {
	Competitors []Competitor
}

var oneStopTemplates = [][]race.Compound{
	{race.Medium, race.Hard},
	{race.Soft, race.Hard},
	{race.Hard, race.Medium},
	{race.Soft, race.Medium},
}

var twoStopTemplates = [][]race.Compound{
	{race.Soft, race.Medium, race.Medium},
	{race.Medium, race.Medium, race.Soft},
	{race.Soft, race.Soft, race.Medium},
	{race.Soft, race.Medium, race.Hard},
	{race.Medium, race.Soft, race.Medium},
}

// Generate builds a grid of conditions.Competitors opponents using the
// provided generator. Pace offsets are drawn per tier with Gaussian
// jitter; strategies are drawn from realistic one- and two-stop
// templates with pit windows scaled to race length.
func Generate(conditions race.Conditions, cfg race.SimConfig, rng *rand.Rand) Field {
	n := conditions.Competitors
	pace := make([]float64, n)

	front := frontRunnerCount
	if front > n {
		front = n
	}
	mid := midfieldMaxCount
	if mid > n-front {
		mid = n - front
	}
	for i := 0; i < n; i++ {
		switch {
		case i < front:
			pace[i] = uniform(rng, frontPaceLo, frontPaceHi)
		case i < front+mid:
			pace[i] = uniform(rng, midPaceLo, midPaceHi)
		default:
			pace[i] = uniform(rng, backPaceLo, backPaceHi)
		}
		pace[i] += rng.NormFloat64() * paceJitterStd
	}

	competitors := make([]Competitor, n)
	for i := 0; i < n; i++ {
		competitors[i] = Competitor{
			PaceOffset: pace[i],
			Strategy:   drawStrategy(i, conditions, cfg, rng),
		}
	}
	return Field{Competitors: competitors}
}

// drawStrategy assigns a strategy to one competitor. A degenerate pit
// window or construction failure falls back to a safe default instead
// of aborting field generation.
func drawStrategy(idx int, conditions race.Conditions, cfg race.SimConfig, rng *rand.Rand) race.Strategy {
	laps := conditions.RaceLaps
	fuel := clampFuel(uniform(rng, 100.0, 110.0), cfg)

	if rng.Float64() < oneStopProb {
		lo := max(laps/3, 15)
		hi := min(2*laps/3, laps-10)
		if lo < hi {
			pit := lo + rng.Intn(hi-lo)
			compounds := oneStopTemplates[rng.Intn(len(oneStopTemplates))]
			name := fmt.Sprintf("comp%d-1stop-%s-L%d", idx, compoundCode(compounds), pit)
			if s, err := race.NewStrategy(name, []int{pit}, compounds, fuel, nil, cfg); err == nil {
				return s
			}
		}
	} else {
		lo1 := max(laps/5, 10)
		hi1 := max(laps/3, 20)
		if lo1 < hi1 {
			pit1 := lo1 + rng.Intn(hi1-lo1)
			lo2 := pit1 + 12
			hi2 := min(3*laps/4, laps-8)
			if lo2 < hi2 {
				pit2 := lo2 + rng.Intn(hi2-lo2)
				compounds := twoStopTemplates[rng.Intn(len(twoStopTemplates))]
				name := fmt.Sprintf("comp%d-2stop-%s-L%dL%d", idx, compoundCode(compounds), pit1, pit2)
				if s, err := race.NewStrategy(name, []int{pit1, pit2}, compounds, fuel, nil, cfg); err == nil {
					return s
				}
			}
		}
	}
	return fallbackStrategy(idx, conditions, cfg, fuel)
}

// fallbackStrategy is a single stop at half distance on medium/hard,
// valid for any race long enough to need a stop.
func fallbackStrategy(idx int, conditions race.Conditions, cfg race.SimConfig, fuel float64) race.Strategy {
	pit := conditions.RaceLaps / 2
	if pit < 1 {
		pit = 1
	}
	name := fmt.Sprintf("comp%d-fallback-MH-L%d", idx, pit)
	s, err := race.NewStrategy(name, []int{pit}, []race.Compound{race.Medium, race.Hard}, fuel, nil, cfg)
	if err != nil {
		// Only reachable with pathological fuel bounds; use the zero
		// strategy shape directly rather than fail the whole field.
		return race.Strategy{
			Name:      name,
			PitLaps:   []int{pit},
			Compounds: []race.Compound{race.Medium, race.Hard},
			FuelStart: fuel,
			Modes:     []race.EngineMode{race.ModeNormal, race.ModeNormal},
		}
	}
	return s
}

func compoundCode(compounds []race.Compound) string {
	code := ""
	for _, c := range compounds {
		code += c.Code()
	}
	return code
}

func uniform(rng *rand.Rand, lo, hi float64) float64 {
	return lo + rng.Float64()*(hi-lo)
}

func clampFuel(fuel float64, cfg race.SimConfig) float64 {
	if fuel < cfg.MinStartFuel {
		return cfg.MinStartFuel
	}
	if fuel > cfg.MaxStartFuel {
		return cfg.MaxStartFuel
	}
	return fuel
}
