package sim

import (
	"math"
	"math/rand"

	"github.com/gridbox/pitwall/internal/field"
)

// simulateCompetitors produces a finishing time for every competitor
// in every run. Opponents are not simulated lap by lap: each gets one
// analytic expected race time, and every run perturbs it with sampled
// variance, so the cost stays linear in runs*competitors rather than
// runs*competitors*laps.
func (s *Simulator) simulateCompetitors() [][]float64 {
	runs := s.cfg.Runs
	n := len(s.grid.Competitors)

	expected := make([]float64, n)
	for i, c := range s.grid.Competitors {
		expected[i] = s.expectedRaceTime(c)
	}

	times := make([][]float64, runs)
	for run := 0; run < runs; run++ {
		rng := rand.New(rand.NewSource(runSeed(s.cfg.Seed, run, competitorStream)))
		row := make([]float64, n)
		for i, c := range s.grid.Competitors {
			row[i] = s.sampleCompetitorTime(expected[i], c, rng)
		}
		times[run] = row
	}
	return times
}

// sampleCompetitorTime draws one realized race time. Slower cars carry
// a higher DNF probability; finishers get variance from three
// independent sources summed in quadrature, an additive incident term,
// and an occasional large outlier.
func (s *Simulator) sampleCompetitorTime(expected float64, c field.Competitor, rng *rand.Rand) float64 {
	cfg := s.cfg

	dnfProb := cfg.CompetitorDNFBase + cfg.CompetitorDNFPaceFactor*math.Max(0, c.PaceOffset/2.0)
	if rng.Float64() < dnfProb {
		return DNFSentinel
	}

	lapNoise := cfg.LapNoiseStd * math.Sqrt(float64(s.conditions.RaceLaps))
	pitNoise := cfg.PitExecStd * float64(c.Strategy.Stops())
	totalStd := math.Sqrt(lapNoise*lapNoise + pitNoise*pitNoise + cfg.IncidentStd*cfg.IncidentStd)

	t := expected
	t += rng.NormFloat64() * totalStd
	t += rng.NormFloat64() * cfg.IncidentStd
	if rng.Float64() < cfg.OutlierProb {
		t += rng.NormFloat64() * totalStd * 2.0
	}
	return math.Max(t, expected*cfg.CompetitorFloor)
}

// expectedRaceTime sums the deterministic lap model over a
// competitor's strategy: no noise, no safety cars, wear accumulating
// within each stint and fuel burning down across the race.
func (s *Simulator) expectedRaceTime(c field.Competitor) float64 {
	cfg := s.cfg
	track := s.conditions.Track
	laps := s.conditions.RaceLaps

	total := 0.0
	fuel := c.Strategy.FuelStart
	burn := cfg.BaseFuelBurn * track.FuelUsage

	stintEnds := append(append([]int(nil), c.Strategy.PitLaps...), laps)
	prevEnd := 0
	for stint, end := range stintEnds {
		props := c.Strategy.Compounds[stint].Props()
		wear := 0.0
		for lap := prevEnd; lap < end; lap++ {
			tau := track.BaseLapTime + c.PaceOffset
			tau += cfg.KWear * math.Pow(wear, 1.5)
			tau += cfg.KFuel * fuel
			tau += props.SpeedOffset
			total += tau

			wear = math.Min(wear+props.BaseWearRate, 1.0)
			fuel = math.Max(fuel-burn, 0.0)
		}
		if stint < len(c.Strategy.PitLaps) {
			total += track.PitLossTime
		}
		prevEnd = end
	}
	return total
}
