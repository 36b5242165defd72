package race

// TrackConfig describes a circuit. Values are treated as read-only once
// constructed; the track database is responsible for populating them.
type TrackConfig struct {
	ID          string
	Name        string
	LapLengthKM float64
	BaseLapTime float64 // seconds, reference car
	Corners     int

	PitLossTime float64 // total seconds lost for a stop

	TireStress           float64 // 1.0 = neutral
	FuelUsage            float64 // 1.0 = neutral
	OvertakingDifficulty float64 // 0 = easy pass, 1 = impossible
}

// Validate checks the track parameters for construction errors.
func (t TrackConfig) Validate() error {
	switch {
	case t.Name == "":
		return &ConfigError{Field: "track.name", Reason: "empty"}
	case t.LapLengthKM <= 0:
		return &ConfigError{Field: "track.lap_length_km", Reason: "must be positive"}
	case t.BaseLapTime <= 0:
		return &ConfigError{Field: "track.base_lap_time", Reason: "must be positive"}
	case t.PitLossTime <= 0:
		return &ConfigError{Field: "track.pit_loss_time", Reason: "must be positive"}
	case t.OvertakingDifficulty < 0 || t.OvertakingDifficulty > 1:
		return &ConfigError{Field: "track.overtaking_difficulty", Reason: "must be in [0,1]"}
	}
	return nil
}

// Conditions describes the race being simulated: length, track, weather
// and the sporting rules in force.
type Conditions struct {
	RaceLaps  int
	Track     TrackConfig
	TrackTemp float64 // Celsius
	Weather   Weather

	SafetyCarProb float64 // per lap
	VSCProb       float64 // per lap
	RedFlagProb   float64 // per lap

	Competitors int

	MinCompounds     int // distinct compounds required by the rules
	RefuelingAllowed bool
}

// DefaultConditions returns race conditions with the usual sporting
// rules and empirically calibrated event probabilities.
func DefaultConditions(raceLaps int, track TrackConfig) Conditions {
	return Conditions{
		RaceLaps:      raceLaps,
		Track:         track,
		TrackTemp:     25.0,
		Weather:       Dry,
		SafetyCarProb: 0.015,
		VSCProb:       0.008,
		RedFlagProb:   0.0002,
		Competitors:   19,
		MinCompounds:  2,
	}
}

// Validate checks the conditions for construction errors.
func (c Conditions) Validate() error {
	if err := c.Track.Validate(); err != nil {
		return err
	}
	switch {
	case c.RaceLaps <= 0:
		return &ConfigError{Field: "conditions.race_laps", Reason: "must be positive"}
	case c.Competitors < 0:
		return &ConfigError{Field: "conditions.competitors", Reason: "must be non-negative"}
	case c.SafetyCarProb < 0 || c.SafetyCarProb > 1:
		return &ConfigError{Field: "conditions.safety_car_prob", Reason: "must be in [0,1]"}
	case c.MinCompounds < 0:
		return &ConfigError{Field: "conditions.min_compounds", Reason: "must be non-negative"}
	}
	return nil
}

// SimConfig holds the Monte Carlo tuning constants. The defaults are
// hand-calibrated against modern F1 lap and degradation data.
type SimConfig struct {
	Runs int
	Seed int64

	KWear      float64 // seconds at full wear, super-linear
	KFuel      float64 // seconds per kg of fuel
	KDownforce float64 // setup sensitivity

	LapNoiseStd  float64
	WearNoiseStd float64
	FuelNoiseStd float64

	BaseFuelBurn       float64 // kg per lap
	BasePunctureProb   float64 // per lap
	PunctureWearFactor float64

	RainSlowdown   float64 // fractional lap-time penalty in rain
	RainWearFactor float64 // wear multiplier in rain

	SafetyCarFactor float64 // lap-time multiplier under safety car
	// SafetyCarDurationLaps is the nominal length of a deployment.
	// The lap model draws each neutralized lap independently; the
	// duration is carried for calibration and reporting.
	SafetyCarDurationLaps int

	// Competitor run-variance model.
	PitExecStd      float64 // seconds of execution spread per stop
	IncidentStd     float64 // racing-incident term, seconds
	OutlierProb     float64 // chance of a large-variance outlier run
	CompetitorFloor float64 // realized time floored at this fraction of expected

	CompetitorDNFBase       float64
	CompetitorDNFPaceFactor float64

	MinStartFuel float64 // kg
	MaxStartFuel float64 // kg
}

// DefaultSimConfig returns the calibrated simulation constants with the
// given run count and seed.
func DefaultSimConfig(runs int, seed int64) SimConfig {
	return SimConfig{
		Runs:                  runs,
		Seed:                  seed,
		KWear:                 12.0,
		KFuel:                 0.03,
		KDownforce:            1.2,
		LapNoiseStd:           0.15,
		WearNoiseStd:          0.20,
		FuelNoiseStd:          0.05,
		BaseFuelBurn:          1.4,
		BasePunctureProb:      0.0003,
		PunctureWearFactor:    5.0,
		RainSlowdown:          0.10,
		RainWearFactor:        0.7,
		SafetyCarFactor:       1.45,
		SafetyCarDurationLaps: 3,

		PitExecStd:      0.5,
		IncidentStd:     2.0,
		OutlierProb:     0.05,
		CompetitorFloor: 0.92,

		CompetitorDNFBase:       0.03,
		CompetitorDNFPaceFactor: 0.02,

		MinStartFuel: 80.0,
		MaxStartFuel: 110.0,
	}
}

// Validate checks the simulation constants for construction errors.
func (c SimConfig) Validate() error {
	switch {
	case c.Runs <= 0:
		return &ConfigError{Field: "sim.runs", Reason: "must be positive"}
	case c.BasePunctureProb < 0 || c.BasePunctureProb > 1:
		return &ConfigError{Field: "sim.base_puncture_prob", Reason: "must be in [0,1]"}
	case c.MinStartFuel <= 0 || c.MaxStartFuel < c.MinStartFuel:
		return &ConfigError{Field: "sim.fuel_bounds", Reason: "need 0 < min <= max"}
	case c.BaseFuelBurn <= 0:
		return &ConfigError{Field: "sim.base_fuel_burn", Reason: "must be positive"}
	case c.SafetyCarDurationLaps < 0:
		return &ConfigError{Field: "sim.safety_car_duration_laps", Reason: "must be non-negative"}
	}
	return nil
}
