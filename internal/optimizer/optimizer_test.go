package optimizer

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/gridbox/pitwall/internal/race"
	"github.com/gridbox/pitwall/internal/sim"
)

func testSimulator(t *testing.T, runs int) *sim.Simulator {
	t.Helper()
	track := race.TrackConfig{
		ID:                   "monza",
		Name:                 "Monza",
		LapLengthKM:          5.79,
		BaseLapTime:          82.0,
		Corners:              11,
		PitLossTime:          21.0,
		TireStress:           0.7,
		FuelUsage:            1.1,
		OvertakingDifficulty: 0.4,
	}
	car := race.CarSetup{
		Downforce:   0.45,
		FuelStart:   105,
		Compound:    race.Medium,
		Performance: race.FlatOffset{Delta: -0.3},
	}
	s, err := sim.New(race.DefaultConditions(52, track), car, race.DefaultSimConfig(runs, 42))
	if err != nil {
		t.Fatalf("failed to build simulator: %v", err)
	}
	return s
}

func TestEnumerateGrid(t *testing.T) {
	s := testSimulator(t, 10)
	candidates, skipped := enumerate(s.Conditions(), s.Config())
	if len(candidates) == 0 {
		t.Fatalf("expected a non-empty candidate grid, skipped: %v", skipped)
	}
	var oneStop, twoStop bool
	for _, c := range candidates {
		if err := c.CheckRules(s.Conditions()); err != nil {
			t.Fatalf("enumerated candidate %s violates rules: %v", c.Name, err)
		}
		switch c.Stops() {
		case 1:
			oneStop = true
		case 2:
			twoStop = true
		default:
			t.Fatalf("unexpected stop count %d for %s", c.Stops(), c.Name)
		}
	}
	if !oneStop || !twoStop {
		t.Fatalf("expected both one- and two-stop candidates, got oneStop=%v twoStop=%v", oneStop, twoStop)
	}
}

func TestOptimizeRanksByUtility(t *testing.T) {
	s := testSimulator(t, 60)
	res, err := Optimize(context.Background(), s, Options{RiskTolerance: 0.3, Parallelism: 2})
	if err != nil {
		t.Fatalf("Optimize failed: %v", err)
	}
	if len(res.Ranked) == 0 {
		t.Fatalf("expected a non-empty ranking")
	}
	for i := 1; i < len(res.Ranked); i++ {
		if res.Ranked[i].Utility > res.Ranked[i-1].Utility {
			t.Fatalf("ranking not sorted at %d: %v > %v", i, res.Ranked[i].Utility, res.Ranked[i-1].Utility)
		}
	}
	for _, c := range res.Ranked {
		if got := c.Evaluation.Utility(0.3); got != c.Utility {
			t.Fatalf("utility mismatch for %s: %v vs %v", c.Strategy.Name, got, c.Utility)
		}
	}
}

func TestOptimizeDeterministic(t *testing.T) {
	first, err := Optimize(context.Background(), testSimulator(t, 40), Options{RiskTolerance: 0.5})
	if err != nil {
		t.Fatalf("Optimize failed: %v", err)
	}
	second, err := Optimize(context.Background(), testSimulator(t, 40), Options{RiskTolerance: 0.5})
	if err != nil {
		t.Fatalf("Optimize failed: %v", err)
	}
	if len(first.Ranked) != len(second.Ranked) {
		t.Fatalf("ranking sizes differ: %d vs %d", len(first.Ranked), len(second.Ranked))
	}
	for i := range first.Ranked {
		if first.Ranked[i].Strategy.Name != second.Ranked[i].Strategy.Name {
			t.Fatalf("ranking order differs at %d: %s vs %s", i, first.Ranked[i].Strategy.Name, second.Ranked[i].Strategy.Name)
		}
		if first.Ranked[i].Utility != second.Ranked[i].Utility {
			t.Fatalf("utility differs at %d: %v vs %v", i, first.Ranked[i].Utility, second.Ranked[i].Utility)
		}
	}
}

func TestOptimizeSkipsRuleViolations(t *testing.T) {
	s := testSimulator(t, 20)
	cfg := s.Config()
	valid, err := race.NewStrategy("1stop-M-H", []int{26}, []race.Compound{race.Medium, race.Hard}, 105, nil, cfg)
	if err != nil {
		t.Fatalf("failed to build strategy: %v", err)
	}
	// One distinct compound violates the rules at simulation entry.
	mono := race.Strategy{
		Name:      "mono-M",
		PitLaps:   []int{26},
		Compounds: []race.Compound{race.Medium, race.Medium},
		FuelStart: 105,
		Modes:     []race.EngineMode{race.ModeNormal, race.ModeNormal},
	}

	res, err := Optimize(context.Background(), s, Options{Candidates: []race.Strategy{valid, mono}})
	if err != nil {
		t.Fatalf("Optimize failed: %v", err)
	}
	if len(res.Ranked) != 1 || res.Ranked[0].Strategy.Name != "1stop-M-H" {
		t.Fatalf("expected only the valid strategy ranked, got %+v", res.Ranked)
	}
	if len(res.Skipped) != 1 || res.Skipped[0].Strategy != "mono-M" {
		t.Fatalf("expected mono-M skipped, got %+v", res.Skipped)
	}
	if !strings.Contains(res.Skipped[0].Reason, "distinct compounds") {
		t.Fatalf("unexpected skip reason: %q", res.Skipped[0].Reason)
	}
}

func TestOptimizeAllCandidatesFail(t *testing.T) {
	s := testSimulator(t, 20)
	mono := race.Strategy{
		Name:      "mono-M",
		PitLaps:   []int{26},
		Compounds: []race.Compound{race.Medium, race.Medium},
		FuelStart: 105,
		Modes:     []race.EngineMode{race.ModeNormal, race.ModeNormal},
	}
	res, err := Optimize(context.Background(), s, Options{Candidates: []race.Strategy{mono}})
	if !errors.Is(err, ErrNoCandidates) {
		t.Fatalf("expected ErrNoCandidates, got %v", err)
	}
	if len(res.Skipped) != 1 {
		t.Fatalf("expected the failure recorded, got %+v", res.Skipped)
	}
}

func TestOptimizeRejectsBadRiskTolerance(t *testing.T) {
	s := testSimulator(t, 10)
	if _, err := Optimize(context.Background(), s, Options{RiskTolerance: 1.5}); err == nil {
		t.Fatalf("expected an error for risk tolerance outside [0,1]")
	}
}

func TestFuelLoads(t *testing.T) {
	cfg := race.DefaultSimConfig(10, 1)
	loads := fuelLoads(52, 1.4*1.1, cfg)
	if len(loads) != 3 {
		t.Fatalf("expected the standard loads to survive, got %v", loads)
	}
	// A long race pushes the requirement past the standard loads and
	// falls back to a single margin load.
	loads = fuelLoads(80, 1.4, cfg)
	if len(loads) != 1 {
		t.Fatalf("expected a single fallback load, got %v", loads)
	}
	if loads[0] < cfg.MinStartFuel || loads[0] > cfg.MaxStartFuel {
		t.Fatalf("fallback load %v outside bounds", loads[0])
	}
}
