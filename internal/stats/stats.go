// Package stats reduces simulation ensembles to summary statistics
// and renders reports.
package stats

import (
	"math"
	"sort"
	"sync"

	"github.com/gridbox/pitwall/internal/sim"
)

// Summary holds the ensemble statistics for one evaluated strategy.
// Time and position figures exclude DNF runs; DNFProb covers the whole
// ensemble.
type Summary struct {
	FinishedRuns int

	MeanTime   float64
	MedianTime float64
	StdTime    float64
	MinTime    float64
	MaxTime    float64

	MeanPosition   float64
	MedianPosition float64

	WinProb    float64
	PodiumProb float64
	Top5Prob   float64
	Top10Prob  float64
	DNFProb    float64

	// Conditional value at risk: mean of the slowest tail among
	// finished runs.
	CVaR5  float64
	CVaR10 float64

	// TimePercentiles holds the 5/25/50/75/95 percentiles of total
	// time over finished runs.
	TimePercentiles [5]float64

	// Per-lap profiles over finished runs, for stint visualization.
	MeanLapTimes []float64
	StdLapTimes  []float64
	MeanTireWear []float64
	MeanFuel     []float64
}

// Evaluation pairs simulation results with lazily computed, cached
// statistics. The summary is computed once; repeated calls return the
// same values.
type Evaluation struct {
	Results *sim.Results

	once    sync.Once
	summary Summary
}

// NewEvaluation wraps results for statistic computation.
func NewEvaluation(results *sim.Results) *Evaluation {
	return &Evaluation{Results: results}
}

// Summary computes the ensemble statistics on first call and caches
// them.
func (e *Evaluation) Summary() Summary {
	e.once.Do(func() {
		e.summary = summarize(e.Results)
	})
	return e.summary
}

// Utility blends a reliability score with an upside score for the
// given risk tolerance in [0,1]. The 60/40 and 70/30 weights are a
// design choice, not derived; adjust appetite through the risk
// tolerance rather than the weights.
func (e *Evaluation) Utility(riskTolerance float64) float64 {
	s := e.Summary()

	meanTime := s.MeanTime
	if !(meanTime > 0) || math.IsInf(meanTime, 0) {
		meanTime = 1
	}
	conservative := 0.6*(1.0-s.DNFProb) + 0.4*(1.0/(1.0+s.StdTime/meanTime))
	aggressive := 0.7*s.WinProb + 0.3*s.PodiumProb

	return (1.0-riskTolerance)*conservative + riskTolerance*aggressive
}

func summarize(r *sim.Results) Summary {
	var times []float64
	var positions []int
	dnfCount := 0
	for run := 0; run < r.Runs; run++ {
		if r.DNFs[run] {
			dnfCount++
			continue
		}
		times = append(times, r.TotalTimes[run])
		positions = append(positions, r.Positions[run])
	}

	s := Summary{
		FinishedRuns: len(times),
		DNFProb:      float64(dnfCount) / float64(r.Runs),
	}
	if len(times) == 0 {
		// Every run retired; there is no finishing-time distribution.
		s.MeanTime = math.Inf(1)
		s.MedianTime = math.Inf(1)
		return s
	}

	sorted := append([]float64(nil), times...)
	sort.Float64s(sorted)

	s.MeanTime = mean(times)
	s.MedianTime = percentile(sorted, 50)
	s.StdTime = stddev(times, s.MeanTime)
	s.MinTime = sorted[0]
	s.MaxTime = sorted[len(sorted)-1]

	s.MeanPosition = meanInt(positions)
	s.MedianPosition = medianInt(positions)
	s.WinProb = fractionAtMost(positions, 1)
	s.PodiumProb = fractionAtMost(positions, 3)
	s.Top5Prob = fractionAtMost(positions, 5)
	s.Top10Prob = fractionAtMost(positions, 10)

	s.CVaR5 = tailMean(sorted, 0.05)
	s.CVaR10 = tailMean(sorted, 0.10)
	for i, p := range [5]float64{5, 25, 50, 75, 95} {
		s.TimePercentiles[i] = percentile(sorted, p)
	}

	s.MeanLapTimes, s.StdLapTimes = lapProfile(r, r.LapTimes)
	s.MeanTireWear, _ = lapProfile(r, r.TireWear)
	s.MeanFuel, _ = lapProfile(r, r.FuelLevel)
	return s
}

// lapProfile averages a per-run matrix column-wise over finished runs.
func lapProfile(r *sim.Results, matrix [][]float64) (means, stds []float64) {
	means = make([]float64, r.Laps)
	stds = make([]float64, r.Laps)
	for lap := 0; lap < r.Laps; lap++ {
		var sum, count float64
		for run := 0; run < r.Runs; run++ {
			if r.DNFs[run] {
				continue
			}
			sum += matrix[run][lap]
			count++
		}
		if count == 0 {
			continue
		}
		m := sum / count
		means[lap] = m
		var sq float64
		for run := 0; run < r.Runs; run++ {
			if r.DNFs[run] {
				continue
			}
			d := matrix[run][lap] - m
			sq += d * d
		}
		stds[lap] = math.Sqrt(sq / count)
	}
	return means, stds
}

func mean(values []float64) float64 {
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func meanInt(values []int) float64 {
	sum := 0
	for _, v := range values {
		sum += v
	}
	return float64(sum) / float64(len(values))
}

func medianInt(values []int) float64 {
	sorted := append([]int(nil), values...)
	sort.Ints(sorted)
	n := len(sorted)
	if n%2 == 1 {
		return float64(sorted[n/2])
	}
	return float64(sorted[n/2-1]+sorted[n/2]) / 2.0
}

func stddev(values []float64, m float64) float64 {
	if len(values) < 2 {
		return 0
	}
	sq := 0.0
	for _, v := range values {
		d := v - m
		sq += d * d
	}
	return math.Sqrt(sq / float64(len(values)))
}

// fractionAtMost reports the share of finished runs that ended at or
// ahead of the given position.
func fractionAtMost(positions []int, position int) float64 {
	count := 0
	for _, p := range positions {
		if p <= position {
			count++
		}
	}
	return float64(count) / float64(len(positions))
}

// tailMean is the mean of the slowest frac of the sorted times.
func tailMean(sorted []float64, frac float64) float64 {
	n := int(frac * float64(len(sorted)))
	if n < 1 {
		n = 1
	}
	return mean(sorted[len(sorted)-n:])
}

// percentile computes the p-th percentile with linear interpolation.
// The input must be sorted.
func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 1 {
		return sorted[0]
	}
	rank := p / 100.0 * float64(len(sorted)-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo == hi {
		return sorted[lo]
	}
	frac := rank - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}
