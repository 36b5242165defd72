package tui

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/gridbox/pitwall/internal/optimizer"
	"github.com/gridbox/pitwall/internal/race"
	"github.com/gridbox/pitwall/internal/sim"
	"github.com/gridbox/pitwall/internal/stats"
)

func testResult(t *testing.T) (race.Conditions, optimizer.Result) {
	t.Helper()
	r := &sim.Results{
		Strategy:   "1stop-M-H",
		Runs:       2,
		Laps:       2,
		LapTimes:   [][]float64{{92, 93}, {92.5, 93.5}},
		TireWear:   [][]float64{{0.1, 0.2}, {0.1, 0.2}},
		FuelLevel:  [][]float64{{100, 98}, {100, 98}},
		TotalTimes: []float64{5400, 5410},
		Positions:  []int{1, 4},
		DNFs:       []bool{false, false},
	}
	eval := stats.NewEvaluation(r)
	track := race.TrackConfig{Name: "Monza", BaseLapTime: 82, LapLengthKM: 5.79, PitLossTime: 21}
	res := optimizer.Result{
		Ranked: []optimizer.Candidate{
			{Strategy: race.Strategy{Name: "1stop-M-H"}, Evaluation: eval, Utility: 0.51},
		},
		Skipped: []optimizer.Skip{{Strategy: "mono-M", Reason: "compound rule"}},
	}
	return race.DefaultConditions(53, track), res
}

func TestViewShowsRanking(t *testing.T) {
	conditions, res := testResult(t)
	m := NewModel(conditions, res)
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 24})
	out := updated.(*Model).View()
	if !strings.Contains(out, "Monza, 53 laps") {
		t.Fatalf("expected header in view:\n%s", out)
	}
	if !strings.Contains(out, "1stop-M-H") {
		t.Fatalf("expected ranked strategy in view:\n%s", out)
	}
	if !strings.Contains(out, "1 skipped") {
		t.Fatalf("expected skip count in view:\n%s", out)
	}
}

func TestEnterOpensDetail(t *testing.T) {
	conditions, res := testResult(t)
	m := NewModel(conditions, res)
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	updated, _ = updated.(*Model).Update(tea.KeyMsg{Type: tea.KeyEnter})
	out := updated.(*Model).View()
	if !strings.Contains(out, "Win probability") {
		t.Fatalf("expected detail view after enter:\n%s", out)
	}

	updated, _ = updated.(*Model).Update(tea.KeyMsg{Type: tea.KeyEsc})
	out = updated.(*Model).View()
	if !strings.Contains(out, "Detail: enter") {
		t.Fatalf("expected ranking view after esc:\n%s", out)
	}
}

func TestTruncateLine(t *testing.T) {
	if got := truncateLine("abcdef", 5); got != "ab..." {
		t.Fatalf("unexpected truncation: %q", got)
	}
	if got := truncateLine("abc", 5); got != "abc" {
		t.Fatalf("short line should pass through: %q", got)
	}
}

func TestFormatMeanTime(t *testing.T) {
	s := stats.Summary{FinishedRuns: 10, MeanTime: 5415.3}
	if got := formatMeanTime(s); got != "90:15.3" {
		t.Fatalf("unexpected mean time format: %q", got)
	}
	if got := formatMeanTime(stats.Summary{}); got != "-" {
		t.Fatalf("expected dash for all-DNF, got %q", got)
	}
}
