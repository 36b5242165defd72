package race

import (
	"strings"
	"testing"
)

func testSimCfg() SimConfig {
	return DefaultSimConfig(100, 1)
}

func TestNewStrategyCompoundCountMismatch(t *testing.T) {
	_, err := NewStrategy("bad", []int{20}, []Compound{Medium}, 105, nil, testSimCfg())
	if err == nil {
		t.Fatalf("expected error for compound/pit-lap count mismatch")
	}
	if !strings.Contains(err.Error(), "compounds") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestNewStrategyPitLapsMustIncrease(t *testing.T) {
	cases := [][]int{{20, 20}, {30, 20}, {0}, {-5}}
	for _, pitLaps := range cases {
		compounds := make([]Compound, len(pitLaps)+1)
		for i := range compounds {
			compounds[i] = Medium
		}
		if _, err := NewStrategy("bad", pitLaps, compounds, 105, nil, testSimCfg()); err == nil {
			t.Fatalf("expected error for pit laps %v", pitLaps)
		}
	}
}

func TestNewStrategyFuelBounds(t *testing.T) {
	cfg := testSimCfg()
	if _, err := NewStrategy("low", nil, []Compound{Medium}, cfg.MinStartFuel-1, nil, cfg); err == nil {
		t.Fatalf("expected error for fuel below minimum")
	}
	if _, err := NewStrategy("high", nil, []Compound{Medium}, cfg.MaxStartFuel+1, nil, cfg); err == nil {
		t.Fatalf("expected error for fuel above maximum")
	}
}

func TestNewStrategyDefaultsModes(t *testing.T) {
	s, err := NewStrategy("1stop", []int{25}, []Compound{Medium, Hard}, 105, nil, testSimCfg())
	if err != nil {
		t.Fatalf("NewStrategy failed: %v", err)
	}
	if len(s.Modes) != 2 {
		t.Fatalf("expected one mode per stint, got %d", len(s.Modes))
	}
	for _, m := range s.Modes {
		if m != ModeNormal {
			t.Fatalf("expected normal mode default, got %v", m)
		}
	}
	if s.Stops() != 1 || s.DistinctCompounds() != 2 {
		t.Fatalf("unexpected derived counts: stops=%d distinct=%d", s.Stops(), s.DistinctCompounds())
	}
}

func TestNewStrategyModeCountMismatch(t *testing.T) {
	modes := []EngineMode{ModeNormal}
	if _, err := NewStrategy("bad", []int{25}, []Compound{Medium, Hard}, 105, modes, testSimCfg()); err == nil {
		t.Fatalf("expected error for mode/stint count mismatch")
	}
}

func testConditions(laps int) Conditions {
	track := TrackConfig{
		ID:          "test",
		Name:        "Test Ring",
		LapLengthKM: 5.0,
		BaseLapTime: 90.0,
		Corners:     14,
		PitLossTime: 22.0,
		TireStress:  1.0,
		FuelUsage:   1.0,
	}
	return DefaultConditions(laps, track)
}

func TestCheckRulesCompoundRule(t *testing.T) {
	cfg := testSimCfg()
	c := testConditions(50)

	mono, err := NewStrategy("mono", []int{25}, []Compound{Medium, Medium}, 105, nil, cfg)
	if err != nil {
		t.Fatalf("NewStrategy failed: %v", err)
	}
	if err := mono.CheckRules(c); err == nil {
		t.Fatalf("expected compound rule violation for a single distinct compound")
	}

	// A no-stop plan can only carry one compound and must also fail.
	noStop, err := NewStrategy("nostop", nil, []Compound{Hard}, 105, nil, cfg)
	if err != nil {
		t.Fatalf("NewStrategy failed: %v", err)
	}
	if err := noStop.CheckRules(c); err == nil {
		t.Fatalf("expected compound rule violation for a no-stop strategy")
	}

	// Refueling races waive the compound rule.
	refuel := c
	refuel.RefuelingAllowed = true
	if err := mono.CheckRules(refuel); err != nil {
		t.Fatalf("compound rule should not apply with refueling: %v", err)
	}
}

func TestCheckRulesPitLapRange(t *testing.T) {
	cfg := testSimCfg()
	c := testConditions(30)
	s, err := NewStrategy("late", []int{40}, []Compound{Medium, Hard}, 105, nil, cfg)
	if err != nil {
		t.Fatalf("NewStrategy failed: %v", err)
	}
	if err := s.CheckRules(c); err == nil {
		t.Fatalf("expected error for pit lap beyond race length")
	}
}

func TestFuelFeasible(t *testing.T) {
	s, err := NewStrategy("1stop", []int{25}, []Compound{Medium, Hard}, 100, nil, testSimCfg())
	if err != nil {
		t.Fatalf("NewStrategy failed: %v", err)
	}
	if !s.FuelFeasible(50, 1.4) {
		t.Fatalf("expected 100kg to cover 50 laps at 1.4kg/lap")
	}
	if s.FuelFeasible(80, 1.4) {
		t.Fatalf("expected 100kg to fall short of 80 laps at 1.4kg/lap")
	}
	// The 5% shortfall allowance.
	if !s.FuelFeasible(75, 1.4) {
		t.Fatalf("expected the fuel-saving margin to accept a small shortfall")
	}
}
