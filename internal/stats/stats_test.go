package stats

import (
	"math"
	"testing"

	"github.com/gridbox/pitwall/internal/sim"
)

func TestSummaryExcludesDNFRuns(t *testing.T) {
	e := NewEvaluation(reportResults())
	s := e.Summary()

	if s.FinishedRuns != 3 {
		t.Fatalf("expected 3 finished runs, got %d", s.FinishedRuns)
	}
	if s.DNFProb != 0.25 {
		t.Fatalf("expected DNF probability 0.25, got %v", s.DNFProb)
	}
	if s.MeanTime != 5410 {
		t.Fatalf("expected mean time 5410 over finished runs, got %v", s.MeanTime)
	}
	if s.MaxTime >= sim.DNFSentinel {
		t.Fatalf("DNF sentinel leaked into max time: %v", s.MaxTime)
	}
	// 1 win out of 3 finished runs.
	if math.Abs(s.WinProb-1.0/3.0) > 1e-12 {
		t.Fatalf("expected win probability 1/3, got %v", s.WinProb)
	}
	if math.Abs(s.PodiumProb-2.0/3.0) > 1e-12 {
		t.Fatalf("expected podium probability 2/3, got %v", s.PodiumProb)
	}
}

func TestSummaryIsCached(t *testing.T) {
	e := NewEvaluation(reportResults())
	first := e.Summary()
	// Mutating the results after the first call must not change the
	// cached summary.
	e.Results.TotalTimes[0] = 1
	second := e.Summary()
	if first.MeanTime != second.MeanTime {
		t.Fatalf("summary not cached: %v vs %v", first.MeanTime, second.MeanTime)
	}
}

func TestSummaryAllDNF(t *testing.T) {
	r := &sim.Results{
		Strategy:   "1stop-M-H",
		Runs:       2,
		Laps:       1,
		LapTimes:   [][]float64{{0}, {0}},
		TireWear:   [][]float64{{0}, {0}},
		FuelLevel:  [][]float64{{0}, {0}},
		TotalTimes: []float64{sim.DNFSentinel, sim.DNFSentinel},
		Positions:  []int{20, 20},
		DNFs:       []bool{true, true},
	}
	s := NewEvaluation(r).Summary()
	if s.DNFProb != 1 {
		t.Fatalf("expected DNF probability 1, got %v", s.DNFProb)
	}
	if !math.IsInf(s.MeanTime, 1) {
		t.Fatalf("expected infinite mean time, got %v", s.MeanTime)
	}
}

func TestUtilityRiskBlend(t *testing.T) {
	e := NewEvaluation(reportResults())
	s := e.Summary()

	conservative := e.Utility(0)
	aggressive := e.Utility(1)

	wantConservative := 0.6*(1-s.DNFProb) + 0.4*(1/(1+s.StdTime/s.MeanTime))
	if math.Abs(conservative-wantConservative) > 1e-12 {
		t.Fatalf("conservative utility mismatch: got %v want %v", conservative, wantConservative)
	}
	wantAggressive := 0.7*s.WinProb + 0.3*s.PodiumProb
	if math.Abs(aggressive-wantAggressive) > 1e-12 {
		t.Fatalf("aggressive utility mismatch: got %v want %v", aggressive, wantAggressive)
	}

	mid := e.Utility(0.5)
	want := 0.5*wantConservative + 0.5*wantAggressive
	if math.Abs(mid-want) > 1e-12 {
		t.Fatalf("blended utility mismatch: got %v want %v", mid, want)
	}
}

func TestPercentileInterpolation(t *testing.T) {
	sorted := []float64{1, 2, 3, 4}
	if got := percentile(sorted, 50); got != 2.5 {
		t.Fatalf("expected median 2.5, got %v", got)
	}
	if got := percentile(sorted, 0); got != 1 {
		t.Fatalf("expected p0 = 1, got %v", got)
	}
	if got := percentile(sorted, 100); got != 4 {
		t.Fatalf("expected p100 = 4, got %v", got)
	}
}

func TestTailMean(t *testing.T) {
	sorted := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	if got := tailMean(sorted, 0.10); got != 10 {
		t.Fatalf("expected CVaR10 of 10 values to be worst value, got %v", got)
	}
	if got := tailMean(sorted, 0.50); got != 8 {
		t.Fatalf("expected mean of slowest half to be 8, got %v", got)
	}
}
