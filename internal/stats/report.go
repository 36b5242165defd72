package stats

import (
	"fmt"
	"io"
	"math"
	"strings"
)

// RankingRow is one entry of a strategy comparison table.
type RankingRow struct {
	Strategy string
	Utility  float64
	Summary  Summary
}

// RenderSummary writes a human-readable report for one evaluated strategy.
// Charts are sized to plotWidth columns; pass 0 to autodetect.
func RenderSummary(w io.Writer, strategy string, e *Evaluation, plotWidth int) error {
	s := e.Summary()

	if _, err := fmt.Fprintf(w, "Strategy: %s\n\n", strategy); err != nil {
		return err
	}

	rows := [][]string{
		{"Finished runs", fmt.Sprintf("%d", s.FinishedRuns)},
		{"DNF probability", formatPercent(s.DNFProb)},
		{"Mean race time", formatRaceTime(s.MeanTime)},
		{"Median race time", formatRaceTime(s.MedianTime)},
		{"Std race time", fmt.Sprintf("%.2fs", s.StdTime)},
		{"Best / worst", fmt.Sprintf("%s / %s", formatRaceTime(s.MinTime), formatRaceTime(s.MaxTime))},
		{"CVaR 5% / 10%", fmt.Sprintf("%s / %s", formatRaceTime(s.CVaR5), formatRaceTime(s.CVaR10))},
		{"Mean position", fmt.Sprintf("%.2f", s.MeanPosition)},
		{"Median position", fmt.Sprintf("%.1f", s.MedianPosition)},
		{"Win probability", formatPercent(s.WinProb)},
		{"Podium probability", formatPercent(s.PodiumProb)},
		{"Top 5 / top 10", fmt.Sprintf("%s / %s", formatPercent(s.Top5Prob), formatPercent(s.Top10Prob))},
	}
	for _, line := range formatTable(nil, rows, map[int]bool{1: true}) {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintln(w, ""); err != nil {
		return err
	}

	if err := renderPercentiles(w, s); err != nil {
		return err
	}
	return renderLapCharts(w, s, plotWidth)
}

// RenderRanking writes a comparison table of evaluated strategies,
// best first.
func RenderRanking(w io.Writer, rows []RankingRow) error {
	if len(rows) == 0 {
		_, err := fmt.Fprintln(w, "No strategies to rank.")
		return err
	}
	headers := []string{"#", "Strategy", "Utility", "Mean", "Std", "Win", "Podium", "DNF"}
	table := make([][]string, 0, len(rows))
	for i, row := range rows {
		s := row.Summary
		table = append(table, []string{
			fmt.Sprintf("%d", i+1),
			row.Strategy,
			fmt.Sprintf("%.4f", row.Utility),
			formatRaceTime(s.MeanTime),
			fmt.Sprintf("%.2fs", s.StdTime),
			formatPercent(s.WinProb),
			formatPercent(s.PodiumProb),
			formatPercent(s.DNFProb),
		})
	}
	rightAlign := map[int]bool{0: true, 2: true, 3: true, 4: true, 5: true, 6: true, 7: true}
	for _, line := range formatTable(headers, table, rightAlign) {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

func renderPercentiles(w io.Writer, s Summary) error {
	if s.FinishedRuns == 0 {
		return nil
	}
	labels := [5]string{"p5", "p25", "p50", "p75", "p95"}
	parts := make([]string, 0, len(labels))
	for i, label := range labels {
		parts = append(parts, fmt.Sprintf("%s=%s", label, formatRaceTime(s.TimePercentiles[i])))
	}
	_, err := fmt.Fprintf(w, "Race time percentiles: %s\n\n", strings.Join(parts, " "))
	return err
}

func renderLapCharts(w io.Writer, s Summary, plotWidth int) error {
	if len(s.MeanLapTimes) == 0 {
		return nil
	}
	charts := []struct {
		title  string
		series []Series
	}{
		{"Lap time (s)", []Series{
			{Name: "mean", Values: s.MeanLapTimes},
			{Name: "std", Values: s.StdLapTimes},
		}},
		{"Tire wear", []Series{{Name: "mean", Values: s.MeanTireWear}}},
		{"Fuel (kg)", []Series{{Name: "mean", Values: s.MeanFuel}}},
	}
	for _, c := range charts {
		if err := PlotSeries(w, c.title, c.series, plotWidth, 0); err != nil {
			return err
		}
	}
	return nil
}

func formatPercent(v float64) string {
	return fmt.Sprintf("%.1f%%", v*100)
}

// formatRaceTime renders seconds as h:mm:ss.s for readability at race
// length scale.
func formatRaceTime(seconds float64) string {
	if math.IsInf(seconds, 1) || math.IsNaN(seconds) {
		return "-"
	}
	h := int(seconds) / 3600
	m := (int(seconds) % 3600) / 60
	rest := seconds - float64(h*3600+m*60)
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%04.1f", h, m, rest)
	}
	return fmt.Sprintf("%d:%04.1f", m, rest)
}
