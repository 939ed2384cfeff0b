package config

import (
	"fmt"
	"math"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/relaytune/internal/autotune"
	"github.com/san-kum/relaytune/internal/dynamo"
)

const (
	DefaultModel       = "oven"
	DefaultIntegrator  = "rk4"
	DefaultPlantStep   = 10 * time.Millisecond
	DefaultSetpoint    = 60.0
	DefaultDuration    = 10 * time.Minute
	DefaultSampleTime  = 250 * time.Millisecond
	DefaultSettleBand  = 0.02
	DefaultControlType = "pi"
)

type Config struct {
	Plant    PlantConfig    `yaml:"plant"`
	Autotune AutotuneConfig `yaml:"autotune"`
	PID      PIDConfig      `yaml:"pid"`
	Run      RunConfig      `yaml:"run"`
}

type PlantConfig struct {
	Model         string        `yaml:"model"`
	Integrator    string        `yaml:"integrator"`
	Step          time.Duration `yaml:"step"`
	InitialOutput float64       `yaml:"initial_output"`
	OutputMin     *float64      `yaml:"output_min,omitempty"`
	OutputMax     *float64      `yaml:"output_max,omitempty"`
}

type AutotuneConfig struct {
	OutputStep  float64       `yaml:"output_step"`
	NoiseBand   float64       `yaml:"noise_band"`
	Lookback    time.Duration `yaml:"lookback"`
	ControlType string        `yaml:"control_type"`
}

type PIDConfig struct {
	Kp        float64  `yaml:"kp"`
	Ki        float64  `yaml:"ki"`
	Kd        float64  `yaml:"kd"`
	OutputMin *float64 `yaml:"output_min,omitempty"`
	OutputMax *float64 `yaml:"output_max,omitempty"`
}

type RunConfig struct {
	Setpoint   float64       `yaml:"setpoint"`
	Duration   time.Duration `yaml:"duration"`
	SampleTime time.Duration `yaml:"sample_time"`
	SettleBand float64       `yaml:"settle_band"`
}

func DefaultConfig() *Config {
	return &Config{
		Plant: PlantConfig{
			Model:      DefaultModel,
			Integrator: DefaultIntegrator,
			Step:       DefaultPlantStep,
		},
		Autotune: AutotuneConfig{
			OutputStep:  autotune.DefaultOutputStep,
			NoiseBand:   autotune.DefaultNoiseBand,
			Lookback:    autotune.DefaultLookback,
			ControlType: DefaultControlType,
		},
		Run: RunConfig{
			Setpoint:   DefaultSetpoint,
			Duration:   DefaultDuration,
			SampleTime: DefaultSampleTime,
			SettleBand: DefaultSettleBand,
		},
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Validate checks ranges only. Plant and integrator names are resolved by the registry.
func (c *Config) Validate() error {
	if c.Plant.Model == "" {
		return invalid("plant.model is required")
	}
	if c.Plant.Step <= 0 {
		return invalid("plant.step must be positive, got %s", c.Plant.Step)
	}
	if err := checkLimits("plant", c.Plant.OutputMin, c.Plant.OutputMax); err != nil {
		return err
	}

	a := c.Autotune
	if !(a.OutputStep > 0) || math.IsInf(a.OutputStep, 0) {
		return invalid("autotune.output_step must be positive, got %g", a.OutputStep)
	}
	if !(a.NoiseBand >= 0) || math.IsInf(a.NoiseBand, 0) {
		return invalid("autotune.noise_band must be non-negative, got %g", a.NoiseBand)
	}
	if a.Lookback < 0 {
		return invalid("autotune.lookback must not be negative, got %s", a.Lookback)
	}
	if _, err := autotune.ParseControlType(a.ControlType); err != nil {
		return err
	}

	for name, v := range map[string]float64{"pid.kp": c.PID.Kp, "pid.ki": c.PID.Ki, "pid.kd": c.PID.Kd, "run.setpoint": c.Run.Setpoint} {
		if !dynamo.IsFinite(v) {
			return invalid("%s must be finite", name)
		}
	}
	if err := checkLimits("pid", c.PID.OutputMin, c.PID.OutputMax); err != nil {
		return err
	}

	if c.Run.Duration <= 0 {
		return invalid("run.duration must be positive, got %s", c.Run.Duration)
	}
	if c.Run.SampleTime <= 0 {
		return invalid("run.sample_time must be positive, got %s", c.Run.SampleTime)
	}
	if !(c.Run.SettleBand > 0) {
		return invalid("run.settle_band must be positive, got %g", c.Run.SettleBand)
	}
	return nil
}

// HasGains reports whether any PID gain is configured.
func (c *Config) HasGains() bool {
	return c.PID.Kp != 0 || c.PID.Ki != 0 || c.PID.Kd != 0
}

func checkLimits(section string, min, max *float64) error {
	if min != nil && max != nil && *min > *max {
		return invalid("%s.output_min %g exceeds output_max %g", section, *min, *max)
	}
	return nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{dynamo.ErrInvalidArgument}, args...)...)
}

func Float(v float64) *float64 { return &v }
