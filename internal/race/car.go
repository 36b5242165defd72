package race

import "math"

// Model is the car-performance capability. The simulator only needs a
// per-lap pace offset and a once-per-race mechanical failure
// probability, so the flat-offset and engineering-parameter setups are
// interchangeable behind it.
type Model interface {
	// PerformanceOffset returns seconds per lap relative to the field
	// median on the given track. Negative is faster.
	PerformanceOffset(track TrackConfig) float64
	// DNFProbability returns the probability of a mechanical failure
	// over a race of the given length.
	DNFProbability(raceLaps int) float64
}

// FlatOffset is the simple car model: a fixed pace delta and no
// modeled mechanical risk.
type FlatOffset struct {
	Delta float64 // seconds per lap, negative = faster
}

// PerformanceOffset returns the fixed delta regardless of track.
func (f FlatOffset) PerformanceOffset(TrackConfig) float64 { return f.Delta }

// DNFProbability is zero for the flat model; tire hazards are handled
// by the simulator.
func (f FlatOffset) DNFProbability(int) float64 { return 0 }

// Reference values for the engineering model: a current midfield car.
const (
	refCarMass    = 798.0 // kg, minimum weight without driver
	refDriverMass = 75.0  // kg
	refPower      = 735.0 // kW
	refDrag       = 0.90

	massSensitivity  = 0.030 // s/lap per kg over reference
	powerSensitivity = 0.012 // s/lap per kW under reference
	dragSensitivity  = 6.0   // s/lap per unit drag coefficient

	powerUnitLifeKM = 7000.0 // mileage at which failure risk saturates
)

// Engineering derives pace and reliability from car parameters instead
// of a hand-picked offset.
type Engineering struct {
	CarMass     float64 // kg, without driver
	DriverMass  float64 // kg
	MaxPower    float64 // kW
	Drag        float64 // drag coefficient
	Downforce   float64 // 0-1, aero balance
	Reliability float64 // 0-1, 1 = bulletproof
	MileageKM   float64 // distance on the current power unit
}

// PerformanceOffset converts mass, power and drag deficits against the
// reference car into a per-lap delta. Drag is weighted by the track's
// fuel-usage factor, which tracks how much of the lap is spent at full
// throttle.
func (e Engineering) PerformanceOffset(track TrackConfig) float64 {
	mass := e.CarMass + e.DriverMass
	offset := massSensitivity * (mass - (refCarMass + refDriverMass))
	offset += powerSensitivity * (refPower - e.MaxPower)
	dragWeight := track.FuelUsage
	if dragWeight <= 0 {
		dragWeight = 1.0
	}
	offset += dragSensitivity * (e.Drag - refDrag) * dragWeight
	return offset
}

// DNFProbability grows exponentially with power-unit mileage and is
// scaled by the configured reliability. Checked once per run.
func (e Engineering) DNFProbability(raceLaps int) float64 {
	if raceLaps <= 0 {
		return 0
	}
	wearFrac := e.MileageKM / powerUnitLifeKM
	if wearFrac < 0 {
		wearFrac = 0
	} else if wearFrac > 1 {
		wearFrac = 1
	}
	p := (1.0 - e.Reliability) * 0.02 * math.Exp(2.5*wearFrac)
	if p < 0 {
		return 0
	}
	if p > 0.25 {
		return 0.25
	}
	return p
}

// CarSetup describes the player car for a scenario.
type CarSetup struct {
	Downforce   float64 // 0 = low drag, 1 = maximum downforce
	FuelStart   float64 // kg on the grid
	Compound    Compound
	InitialWear float64 // 0-1
	Performance Model
}

// Validate checks the setup for construction errors.
func (c CarSetup) Validate() error {
	switch {
	case c.Downforce < 0 || c.Downforce > 1:
		return &ConfigError{Field: "car.downforce", Reason: "must be in [0,1]"}
	case c.FuelStart <= 0:
		return &ConfigError{Field: "car.fuel_start", Reason: "must be positive"}
	case c.InitialWear < 0 || c.InitialWear > 1:
		return &ConfigError{Field: "car.initial_wear", Reason: "must be in [0,1]"}
	case c.Performance == nil:
		return &ConfigError{Field: "car.performance", Reason: "missing car model"}
	}
	return nil
}
