// Package sim implements the stochastic race-outcome engine: a
// lap-by-lap Monte Carlo model of the player car raced against an
// analytically approximated competitor field.
package sim

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/gridbox/pitwall/internal/field"
	"github.com/gridbox/pitwall/internal/race"
)

// Simulator runs Monte Carlo ensembles for candidate strategies
// against a fixed scenario. The competitor field is generated once at
// construction and shared by every evaluation.
type Simulator struct {
	conditions race.Conditions
	car        race.CarSetup
	cfg        race.SimConfig
	grid       field.Field
	perfOffset float64
	mechDNF    float64
}

// New validates the scenario and generates the competitor field.
func New(conditions race.Conditions, car race.CarSetup, cfg race.SimConfig) (*Simulator, error) {
	if err := conditions.Validate(); err != nil {
		return nil, err
	}
	if err := car.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	rng := rand.New(rand.NewSource(cfg.Seed))
	return &Simulator{
		conditions: conditions,
		car:        car,
		cfg:        cfg,
		grid:       field.Generate(conditions, cfg, rng),
		perfOffset: car.Performance.PerformanceOffset(conditions.Track),
		mechDNF:    car.Performance.DNFProbability(conditions.RaceLaps),
	}, nil
}

// Grid exposes the generated competitor field.
func (s *Simulator) Grid() field.Field { return s.grid }

// Conditions returns the race conditions the simulator was built for.
func (s *Simulator) Conditions() race.Conditions { return s.conditions }

// Config returns the simulation constants in use.
func (s *Simulator) Config() race.SimConfig { return s.cfg }

// Simulate runs the full ensemble for one strategy and ranks each run
// against the competitor field. Rule violations are reported before
// any run starts.
func (s *Simulator) Simulate(strategy race.Strategy) (*Results, error) {
	if err := strategy.CheckRules(s.conditions); err != nil {
		return nil, err
	}
	if strategy.FuelStart < s.cfg.MinStartFuel || strategy.FuelStart > s.cfg.MaxStartFuel {
		return nil, &race.StrategyError{
			Strategy: strategy.Name,
			Reason:   fmt.Sprintf("starting fuel %.1fkg outside bounds", strategy.FuelStart),
		}
	}

	runs := s.cfg.Runs
	laps := s.conditions.RaceLaps
	res := &Results{
		Strategy:   strategy.Name,
		Conditions: s.conditions,
		Config:     s.cfg,
		Runs:       runs,
		Laps:       laps,
		LapTimes:   make([][]float64, runs),
		TireWear:   make([][]float64, runs),
		FuelLevel:  make([][]float64, runs),
		TotalTimes: make([]float64, runs),
		DNFs:       make([]bool, runs),
	}

	for run := 0; run < runs; run++ {
		rng := rand.New(rand.NewSource(runSeed(s.cfg.Seed, run, playerStream)))
		outcome := s.simulateRun(strategy, rng)
		res.LapTimes[run] = outcome.lapTimes
		res.TireWear[run] = outcome.tireWear
		res.FuelLevel[run] = outcome.fuel
		res.TotalTimes[run] = outcome.totalTime
		res.DNFs[run] = outcome.dnf
	}

	competitorTimes := s.simulateCompetitors()
	res.Positions = computePositions(res.TotalTimes, res.DNFs, competitorTimes)
	return res, nil
}

type runOutcome struct {
	lapTimes  []float64
	tireWear  []float64
	fuel      []float64
	totalTime float64
	dnf       bool
}

// simulateRun plays out one lap-by-lap realization for the player car.
// The caller provides a generator derived for this run index only.
func (s *Simulator) simulateRun(strategy race.Strategy, rng *rand.Rand) runOutcome {
	cfg := s.cfg
	laps := s.conditions.RaceLaps

	out := runOutcome{
		lapTimes: make([]float64, laps),
		tireWear: make([]float64, laps),
		fuel:     make([]float64, laps),
	}

	// Run-level stochastic factors, drawn once per run.
	wearMult := clamp(1.0+rng.NormFloat64()*cfg.WearNoiseStd, 0.6, 1.4)
	fuelMult := clamp(1.0+rng.NormFloat64()*cfg.FuelNoiseStd, 0.9, 1.1)

	// Traffic makes lap times noisier where passing is hard.
	noiseStd := cfg.LapNoiseStd * (1.0 + 0.5*s.conditions.Track.OvertakingDifficulty)

	// Mechanical reliability is a whole-race hazard, independent of
	// tire wear.
	if s.mechDNF > 0 && rng.Float64() < s.mechDNF {
		out.totalTime = DNFSentinel
		out.dnf = true
		return out
	}

	wear := s.car.InitialWear
	fuel := strategy.FuelStart
	totalTime := 0.0

	stint := 0
	compound := strategy.Compounds[0]
	mode := strategy.Modes[0]
	nextPit := laps + 1
	if len(strategy.PitLaps) > 0 {
		nextPit = strategy.PitLaps[0]
	}

	for lap := 0; lap < laps; lap++ {
		if lap+1 == nextPit {
			totalTime += s.conditions.Track.PitLossTime
			wear = 0.0
			stint++
			if stint < len(strategy.Compounds) {
				compound = strategy.Compounds[stint]
				mode = strategy.Modes[stint]
			}
			if stint < len(strategy.PitLaps) {
				nextPit = strategy.PitLaps[stint]
			} else {
				nextPit = laps + 1
			}
		}

		lapTime := s.lapTime(wear, fuel, compound, mode, rng.NormFloat64()*noiseStd)
		if rng.Float64() < s.conditions.SafetyCarProb {
			lapTime = s.conditions.Track.BaseLapTime * cfg.SafetyCarFactor
		}

		// Hazards resolve before the lap commits.
		punctureProb := cfg.BasePunctureProb * (1.0 + cfg.PunctureWearFactor*wear)
		if rng.Float64() < punctureProb {
			out.totalTime = DNFSentinel
			out.dnf = true
			return out
		}

		totalTime += lapTime

		wear = math.Min(wear+s.wearRate(compound)*wearMult, 1.0)
		fuel = math.Max(fuel-s.fuelBurn(mode)*fuelMult, 0.0)

		if fuel <= 0 && lap < laps-1 {
			out.totalTime = DNFSentinel
			out.dnf = true
			return out
		}

		out.lapTimes[lap] = lapTime
		out.tireWear[lap] = wear
		out.fuel[lap] = fuel
	}

	out.totalTime = totalTime
	return out
}

// lapTime is the parametric per-lap model. Degradation is super-linear
// in wear, fuel mass is a straight penalty, and the engine mode scales
// the whole physical part. The floor keeps noise from producing
// impossible laps.
func (s *Simulator) lapTime(wear, fuel float64, compound race.Compound, mode race.EngineMode, noise float64) float64 {
	cfg := s.cfg
	base := s.conditions.Track.BaseLapTime + s.perfOffset

	tau := base
	tau += cfg.KWear * math.Pow(wear, 1.5)
	tau += cfg.KFuel * fuel
	tau += cfg.KDownforce * (1.0 - s.car.Downforce) * 0.5
	tau += compound.Props().SpeedOffset
	tau += s.weatherPenalty(compound)
	tau /= mode.Factor()
	if s.conditions.Weather.Wet() {
		tau *= 1.0 + cfg.RainSlowdown
	}
	tau += noise

	return math.Max(tau, base*0.90)
}

// weatherPenalty charges cars on the wrong tire for the conditions.
func (s *Simulator) weatherPenalty(compound race.Compound) float64 {
	switch s.conditions.Weather {
	case race.LightRain:
		if compound.Slick() {
			return 5.0
		}
	case race.HeavyRain:
		if compound.Slick() {
			return 15.0
		}
		if compound == race.Intermediate {
			return 3.0
		}
	}
	return 0
}

func (s *Simulator) wearRate(compound race.Compound) float64 {
	rate := compound.Props().BaseWearRate * s.conditions.Track.TireStress
	rate *= 1.0 + 0.015*(s.conditions.TrackTemp-25.0)
	if s.conditions.Weather.Wet() {
		rate *= s.cfg.RainWearFactor
	}
	return rate
}

func (s *Simulator) fuelBurn(mode race.EngineMode) float64 {
	return s.cfg.BaseFuelBurn * s.conditions.Track.FuelUsage * mode.Factor()
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
