// Package optimizer enumerates candidate pit strategies, evaluates
// them on the simulator and ranks them by utility.
package optimizer

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/gridbox/pitwall/internal/race"
	"github.com/gridbox/pitwall/internal/sim"
	"github.com/gridbox/pitwall/internal/stats"
)

// ErrNoCandidates is returned when every enumerated strategy failed
// validation or evaluation. It is distinct from an empty ranking of a
// caller-supplied candidate list.
var ErrNoCandidates = errors.New("no candidate strategy could be evaluated")

// Candidate is one evaluated strategy with its ensemble and score.
type Candidate struct {
	Strategy   race.Strategy
	Evaluation *stats.Evaluation
	Utility    float64
}

// Skip records a candidate that was excluded from the ranking and why.
type Skip struct {
	Strategy string
	Reason   string
}

// Options tunes a ranking batch.
type Options struct {
	// RiskTolerance in [0,1]: 0 ranks purely by reliability, 1 purely
	// by upside.
	RiskTolerance float64
	// Candidates overrides grid enumeration when non-empty.
	Candidates []race.Strategy
	// Parallelism bounds concurrent evaluations; 0 means NumCPU.
	Parallelism int
}

// Result is a ranked batch: best strategy first, plus every candidate
// that had to be skipped.
type Result struct {
	Ranked  []Candidate
	Skipped []Skip
}

// Optimize evaluates the candidate grid on the simulator and returns
// the strategies ranked by descending utility. A candidate that fails
// rule checks or fuel feasibility is skipped with the reason recorded;
// only a batch with zero evaluable candidates is an error.
func Optimize(ctx context.Context, s *sim.Simulator, opts Options) (Result, error) {
	if opts.RiskTolerance < 0 || opts.RiskTolerance > 1 {
		return Result{}, &race.ConfigError{Field: "risk_tolerance", Reason: "must be in [0, 1]"}
	}

	candidates := opts.Candidates
	var res Result
	if len(candidates) == 0 {
		candidates, res.Skipped = enumerate(s.Conditions(), s.Config())
	}
	if len(candidates) == 0 {
		return Result{}, fmt.Errorf("failed to enumerate strategies: %w", ErrNoCandidates)
	}

	limit := opts.Parallelism
	if limit <= 0 {
		limit = runtime.NumCPU()
	}

	var mu sync.Mutex
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for _, candidate := range candidates {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			results, err := s.Simulate(candidate)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				// Per-strategy failures exclude the candidate, never
				// the batch.
				res.Skipped = append(res.Skipped, Skip{Strategy: candidate.Name, Reason: err.Error()})
				return nil
			}
			eval := stats.NewEvaluation(results)
			res.Ranked = append(res.Ranked, Candidate{
				Strategy:   candidate,
				Evaluation: eval,
				Utility:    eval.Utility(opts.RiskTolerance),
			})
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Result{}, fmt.Errorf("failed to evaluate strategies: %w", err)
	}
	if len(res.Ranked) == 0 {
		return res, ErrNoCandidates
	}

	sort.Slice(res.Ranked, func(i, j int) bool {
		a, b := res.Ranked[i], res.Ranked[j]
		if a.Utility != b.Utility {
			return a.Utility > b.Utility
		}
		am, bm := a.Evaluation.Summary().MeanTime, b.Evaluation.Summary().MeanTime
		if am != bm {
			return am < bm
		}
		return a.Strategy.Name < b.Strategy.Name
	})
	return res, nil
}

var (
	onePitFractions = []float64{1.0 / 3.0, 2.0 / 5.0, 1.0 / 2.0, 3.0 / 5.0, 2.0 / 3.0}
	twoPitFractions = [][2]float64{
		{1.0 / 4.0, 1.0 / 2.0},
		{1.0 / 3.0, 2.0 / 3.0},
		{1.0 / 4.0, 3.0 / 4.0},
	}
	twoStopCompounds = [][]race.Compound{
		{race.Soft, race.Medium, race.Hard},
		{race.Medium, race.Soft, race.Medium},
		{race.Soft, race.Soft, race.Medium},
		{race.Soft, race.Medium, race.Medium},
	}
)

// enumerate builds the bounded candidate grid for the race in hand:
// one- and two-stop plans over the slick compounds with a few fuel
// loads each, pre-filtered for fuel feasibility and the compound rule.
func enumerate(c race.Conditions, cfg race.SimConfig) ([]race.Strategy, []Skip) {
	laps := c.RaceLaps
	burn := cfg.BaseFuelBurn * c.Track.FuelUsage
	loads := fuelLoads(laps, burn, cfg)

	var out []race.Strategy
	var skipped []Skip
	add := func(name string, pitLaps []int, compounds []race.Compound, fuel float64) {
		strategy, err := race.NewStrategy(name, pitLaps, compounds, fuel, nil, cfg)
		if err != nil {
			skipped = append(skipped, Skip{Strategy: name, Reason: err.Error()})
			return
		}
		if err := strategy.CheckRules(c); err != nil {
			skipped = append(skipped, Skip{Strategy: name, Reason: err.Error()})
			return
		}
		if !strategy.FuelFeasible(laps, burn) {
			skipped = append(skipped, Skip{Strategy: name, Reason: "starting fuel cannot cover the race distance"})
			return
		}
		out = append(out, strategy)
	}

	slicks := []race.Compound{race.Soft, race.Medium, race.Hard}
	for _, frac := range onePitFractions {
		pit := pitLap(laps, frac)
		for _, first := range slicks {
			for _, second := range slicks {
				if first == second {
					continue
				}
				for _, fuel := range loads {
					name := fmt.Sprintf("1stop-L%d-%s%s-f%.0f", pit, first.Code(), second.Code(), fuel)
					add(name, []int{pit}, []race.Compound{first, second}, fuel)
				}
			}
		}
	}
	for _, fracs := range twoPitFractions {
		pit1 := pitLap(laps, fracs[0])
		pit2 := pitLap(laps, fracs[1])
		if pit2 <= pit1 {
			continue
		}
		for _, compounds := range twoStopCompounds {
			for _, fuel := range loads {
				name := fmt.Sprintf("2stop-L%d-L%d-%s-f%.0f", pit1, pit2, compoundCodes(compounds), fuel)
				add(name, []int{pit1, pit2}, compounds, fuel)
			}
		}
	}
	return out, skipped
}

// fuelLoads picks the starting-fuel variants to try. Standard loads
// are kept when they comfortably cover the race; otherwise a single
// load with a 5% margin is used, clamped into the legal range.
func fuelLoads(laps int, burnPerLap float64, cfg race.SimConfig) []float64 {
	needed := float64(laps) * burnPerLap
	var loads []float64
	for _, load := range []float64{105, 107, 109} {
		if load >= cfg.MinStartFuel && load <= cfg.MaxStartFuel && load >= needed*1.02 {
			loads = append(loads, load)
		}
	}
	if len(loads) == 0 {
		fallback := needed * 1.05
		if fallback < cfg.MinStartFuel {
			fallback = cfg.MinStartFuel
		}
		if fallback > cfg.MaxStartFuel {
			fallback = cfg.MaxStartFuel
		}
		loads = []float64{fallback}
	}
	return loads
}

func pitLap(laps int, frac float64) int {
	lap := int(float64(laps) * frac)
	if lap < 1 {
		lap = 1
	}
	if lap >= laps {
		lap = laps - 1
	}
	return lap
}

func compoundCodes(compounds []race.Compound) string {
	var b strings.Builder
	for _, c := range compounds {
		b.WriteString(c.Code())
	}
	return b.String()
}
