// Package race defines the domain configuration for race simulations.
package race

import "fmt"

// Compound identifies a tire compound.
type Compound int

// Tire compounds, slicks first.
const (
	Soft Compound = iota
	Medium
	Hard
	Intermediate
	FullWet
)

var compoundNames = [...]string{"soft", "medium", "hard", "intermediate", "wet"}

func (c Compound) String() string {
	if c < 0 || int(c) >= len(compoundNames) {
		return fmt.Sprintf("compound(%d)", int(c))
	}
	return compoundNames[c]
}

// Code returns the single-letter label used in strategy names.
func (c Compound) Code() string {
	switch c {
	case Soft:
		return "S"
	case Medium:
		return "M"
	case Hard:
		return "H"
	case Intermediate:
		return "I"
	case FullWet:
		return "W"
	}
	return "?"
}

// Slick reports whether the compound is a dry-weather tire.
func (c Compound) Slick() bool {
	return c == Soft || c == Medium || c == Hard
}

// ParseCompound converts a compound name to its Compound value.
func ParseCompound(s string) (Compound, error) {
	for i, name := range compoundNames {
		if name == s {
			return Compound(i), nil
		}
	}
	return 0, fmt.Errorf("unknown tire compound %q", s)
}

// CompoundProps describes the per-compound physical parameters.
type CompoundProps struct {
	SpeedOffset     float64 // seconds per lap relative to medium
	BaseWearRate    float64 // wear fraction per lap
	OperatingWindow float64 // degrees Celsius
}

var compoundProps = [...]CompoundProps{
	Soft:         {SpeedOffset: -0.8, BaseWearRate: 0.030, OperatingWindow: 25.0},
	Medium:       {SpeedOffset: 0.0, BaseWearRate: 0.015, OperatingWindow: 20.0},
	Hard:         {SpeedOffset: 0.6, BaseWearRate: 0.008, OperatingWindow: 15.0},
	Intermediate: {SpeedOffset: 2.0, BaseWearRate: 0.020, OperatingWindow: 10.0},
	FullWet:      {SpeedOffset: 5.0, BaseWearRate: 0.015, OperatingWindow: 8.0},
}

// Props returns the physical parameters for the compound.
func (c Compound) Props() CompoundProps {
	return compoundProps[c]
}

// Weather identifies the ambient weather state.
type Weather int

// Weather states.
const (
	Dry Weather = iota
	Mixed
	LightRain
	HeavyRain
)

var weatherNames = [...]string{"dry", "mixed", "light_rain", "heavy_rain"}

func (w Weather) String() string {
	if w < 0 || int(w) >= len(weatherNames) {
		return fmt.Sprintf("weather(%d)", int(w))
	}
	return weatherNames[w]
}

// Wet reports whether the track surface carries standing water.
func (w Weather) Wet() bool {
	return w == LightRain || w == HeavyRain
}

// ParseWeather converts a weather name to its Weather value.
func ParseWeather(s string) (Weather, error) {
	for i, name := range weatherNames {
		if name == s {
			return Weather(i), nil
		}
	}
	return 0, fmt.Errorf("unknown weather %q", s)
}

// EngineMode identifies a power-unit deployment mode.
type EngineMode int

// Engine modes, slowest first.
const (
	ModeEco EngineMode = iota
	ModeNormal
	ModePush
	ModeOvertake
)

var engineModeNames = [...]string{"eco", "normal", "push", "overtake"}

var engineModeFactors = [...]float64{0.98, 1.0, 1.02, 1.04}

func (m EngineMode) String() string {
	if m < 0 || int(m) >= len(engineModeNames) {
		return fmt.Sprintf("mode(%d)", int(m))
	}
	return engineModeNames[m]
}

// Factor returns the lap-time divisor for the mode. Values above one
// speed the car up and burn more fuel.
func (m EngineMode) Factor() float64 {
	return engineModeFactors[m]
}

// ParseEngineMode converts a mode name to its EngineMode value.
func ParseEngineMode(s string) (EngineMode, error) {
	for i, name := range engineModeNames {
		if name == s {
			return EngineMode(i), nil
		}
	}
	return 0, fmt.Errorf("unknown engine mode %q", s)
}
