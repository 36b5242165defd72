package sim

import "github.com/gridbox/pitwall/internal/race"

// DNFSentinel is the total time recorded for a run that did not
// finish. It only needs to sort after every feasible finishing time.
const DNFSentinel = 1e9

// dnfThreshold separates finishers from DNF sentinels when ranking.
const dnfThreshold = 1e8

// Results is the Monte Carlo ensemble for one strategy. Per-run arrays
// are owned by the Results value and not mutated after construction;
// laps after a DNF are left zero. The conditions and config used are
// retained so an ensemble can be reproduced from its Results alone.
type Results struct {
	Strategy   string
	Conditions race.Conditions
	Config     race.SimConfig
	Runs       int
	Laps       int
	LapTimes   [][]float64 // [run][lap] seconds
	TireWear   [][]float64 // [run][lap] 0-1
	FuelLevel  [][]float64 // [run][lap] kg
	TotalTimes []float64   // per run, DNFSentinel when DNF
	Positions  []int       // per run
	DNFs       []bool      // per run
}

// Finished reports whether the given run reached the flag.
func (r *Results) Finished(run int) bool {
	return !r.DNFs[run]
}

// computePositions ranks the player against the competitor ensemble,
// run by run. Player and competitor samples from the same run index
// are compared so that shared randomness stays coupled; mixing run
// indices would conflate independent variance sources and bias the
// win and podium probabilities.
func computePositions(totals []float64, dnfs []bool, competitorTimes [][]float64) []int {
	positions := make([]int, len(totals))
	for run := range totals {
		times := competitorTimes[run]
		if dnfs[run] {
			finished := 0
			for _, t := range times {
				if t < dnfThreshold {
					finished++
				}
			}
			positions[run] = finished + 1
			continue
		}
		faster := 0
		for _, t := range times {
			if t < totals[run] {
				faster++
			}
		}
		positions[run] = faster + 1
	}
	return positions
}
