// Package config provides configuration helpers and TOML parsing.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// FileConfig represents the TOML scenario file. All fields are
// pointers so the CLI can tell "unset" from "zero" when merging with
// flags.
type FileConfig struct {
	Car        CarConfig        `toml:"car"`
	Conditions ConditionsConfig `toml:"conditions"`
	Simulation SimulationConfig `toml:"simulation"`
}

// CarConfig maps player-car settings.
type CarConfig struct {
	Downforce   *float64 `toml:"downforce"`
	FuelStart   *float64 `toml:"fuel-start"`
	Compound    *string  `toml:"compound"`
	InitialWear *float64 `toml:"initial-wear"`
	PaceDelta   *float64 `toml:"pace-delta"`

	// Engineering-model parameters; set reliability to switch the car
	// model from the flat pace delta.
	CarMass     *float64 `toml:"car-mass"`
	DriverMass  *float64 `toml:"driver-mass"`
	MaxPower    *float64 `toml:"max-power"`
	Drag        *float64 `toml:"drag"`
	Reliability *float64 `toml:"reliability"`
	MileageKM   *float64 `toml:"mileage-km"`
}

// ConditionsConfig maps race-scenario settings.
type ConditionsConfig struct {
	Track         *string  `toml:"track"`
	Laps          *int     `toml:"laps"`
	TrackTemp     *float64 `toml:"track-temp"`
	Weather       *string  `toml:"weather"`
	SafetyCarProb *float64 `toml:"safety-car-prob"`
	Competitors   *int     `toml:"competitors"`
	MinCompounds  *int     `toml:"min-compounds"`
}

// SimulationConfig maps Monte Carlo settings.
type SimulationConfig struct {
	Runs          *int     `toml:"runs"`
	Seed          *int64   `toml:"seed"`
	RiskTolerance *float64 `toml:"risk-tolerance"`
}

// LoadConfig reads a TOML config from the given path. Missing file is not an error.
func LoadConfig(path string) (FileConfig, error) {
	if path == "" {
		return FileConfig{}, fmt.Errorf("config path is empty")
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, nil
		}
		return FileConfig{}, fmt.Errorf("failed to stat config: %w", err)
	}
	var cfg FileConfig
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return FileConfig{}, fmt.Errorf("failed to decode config: %w", err)
	}
	return cfg, nil
}
