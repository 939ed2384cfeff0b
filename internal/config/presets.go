package config

import (
	"sort"
	"time"
)

var Presets = map[string]map[string]*Config{
	"oven": {
		"bake": {
			Plant:    PlantConfig{Model: "oven", Integrator: "rk4", Step: 50 * time.Millisecond, InitialOutput: 20, OutputMin: Float(0), OutputMax: Float(100)},
			Autotune: AutotuneConfig{OutputStep: 15, NoiseBand: 0.5, Lookback: 30 * time.Second, ControlType: "pid"},
			PID:      PIDConfig{OutputMin: Float(0), OutputMax: Float(100)},
			Run:      RunConfig{Setpoint: 180, Duration: 45 * time.Minute, SampleTime: time.Second, SettleBand: 0.02},
		},
		"proof": {
			Plant:    PlantConfig{Model: "oven", Integrator: "rk4", Step: 50 * time.Millisecond, InitialOutput: 5, OutputMin: Float(0), OutputMax: Float(100)},
			Autotune: AutotuneConfig{OutputStep: 4, NoiseBand: 0.2, Lookback: 30 * time.Second, ControlType: "pi"},
			PID:      PIDConfig{OutputMin: Float(0), OutputMax: Float(100)},
			Run:      RunConfig{Setpoint: 35, Duration: 45 * time.Minute, SampleTime: time.Second, SettleBand: 0.02},
		},
	},
	"kettle": {
		"boil": {
			Plant:    PlantConfig{Model: "kettle", Integrator: "rk4", Step: 10 * time.Millisecond, InitialOutput: 40, OutputMin: Float(0), OutputMax: Float(100)},
			Autotune: AutotuneConfig{OutputStep: 10, NoiseBand: 0.2, Lookback: 5 * time.Second, ControlType: "pid"},
			PID:      PIDConfig{OutputMin: Float(0), OutputMax: Float(100)},
			Run:      RunConfig{Setpoint: 90, Duration: 5 * time.Minute, SampleTime: 250 * time.Millisecond, SettleBand: 0.02},
		},
		"tea": {
			Plant:    PlantConfig{Model: "kettle", Integrator: "rk4", Step: 10 * time.Millisecond, InitialOutput: 30, OutputMin: Float(0), OutputMax: Float(100)},
			Autotune: AutotuneConfig{OutputStep: 8, NoiseBand: 0.2, Lookback: 5 * time.Second, ControlType: "pi"},
			PID:      PIDConfig{OutputMin: Float(0), OutputMax: Float(100)},
			Run:      RunConfig{Setpoint: 80, Duration: 5 * time.Minute, SampleTime: 250 * time.Millisecond, SettleBand: 0.02},
		},
	},
	"lab": {
		"default": {
			Plant:    PlantConfig{Model: "lab", Integrator: "rk4", Step: 10 * time.Millisecond},
			Autotune: AutotuneConfig{OutputStep: 10, NoiseBand: 0.2, Lookback: time.Second, ControlType: "pi"},
			Run:      RunConfig{Setpoint: 30, Duration: 3 * time.Minute, SampleTime: 100 * time.Millisecond, SettleBand: 0.02},
		},
	},
}

// GetPreset returns a copy of the named preset, or nil when it does not exist.
func GetPreset(model, preset string) *Config {
	modelPresets, ok := Presets[model]
	if !ok {
		return nil
	}
	cfg, ok := modelPresets[preset]
	if !ok {
		return nil
	}
	c := *cfg
	return &c
}

func ListPresets(model string) []string {
	modelPresets, ok := Presets[model]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(modelPresets))
	for name := range modelPresets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
