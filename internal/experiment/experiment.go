package experiment

import (
	"context"
	"fmt"
	"math"

	"github.com/sirupsen/logrus"

	"github.com/san-kum/relaytune/internal/autotune"
	"github.com/san-kum/relaytune/internal/config"
	"github.com/san-kum/relaytune/internal/control"
	"github.com/san-kum/relaytune/internal/dynamo"
	"github.com/san-kum/relaytune/internal/metrics"
	"github.com/san-kum/relaytune/internal/sim"
)

// Experiment is a simulated plant built from a config, ready to be tuned or stepped.
type Experiment struct {
	cfg    *config.Config
	clock  dynamo.Clock
	plant  *sim.Plant
	logger logrus.FieldLogger
}

func New(reg *Registry, cfg *config.Config, clock dynamo.Clock, logger logrus.FieldLogger) (*Experiment, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	model, err := reg.GetPlant(cfg.Plant.Model)
	if err != nil {
		return nil, err
	}
	if err := model.Validate(); err != nil {
		return nil, err
	}
	integ, err := reg.GetIntegrator(cfg.Plant.Integrator)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	plant := sim.NewPlant(model, integ, clock, cfg.Plant.InitialOutput)
	if err := plant.SetStep(cfg.Plant.Step); err != nil {
		return nil, err
	}
	if cfg.Plant.OutputMin != nil || cfg.Plant.OutputMax != nil {
		lo, hi := bounds(cfg.Plant.OutputMin, cfg.Plant.OutputMax)
		if err := plant.SetOutputLimits(lo, hi); err != nil {
			return nil, err
		}
	}

	return &Experiment{cfg: cfg, clock: clock, plant: plant, logger: logger}, nil
}

func (e *Experiment) Plant() *sim.Plant { return e.plant }

// Tuner returns an autotuner for the experiment's plant configured from the autotune section.
func (e *Experiment) Tuner() (*autotune.Autotuner, error) {
	ct, err := autotune.ParseControlType(e.cfg.Autotune.ControlType)
	if err != nil {
		return nil, err
	}
	t := autotune.New(e.plant, e.clock)
	t.OutputStep = e.cfg.Autotune.OutputStep
	t.NoiseBand = e.cfg.Autotune.NoiseBand
	t.Logger = e.logger.WithField("plant", e.cfg.Plant.Model)
	if e.cfg.Autotune.Lookback > 0 {
		t.SetLookback(e.cfg.Autotune.Lookback)
	}
	if err := t.SetControlType(ct); err != nil {
		return nil, err
	}
	return t, nil
}

// Tune runs the relay experiment on the plant.
func (e *Experiment) Tune(ctx context.Context, observers ...dynamo.Observer) (*autotune.Result, error) {
	t, err := e.Tuner()
	if err != nil {
		return nil, err
	}
	for _, o := range observers {
		t.AddObserver(o)
	}
	return t.Tune(ctx)
}

// Controller returns a PID with the given gains and the pid section's output limits.
func (e *Experiment) Controller(g control.Gains) (*control.PID, error) {
	pid := control.NewPID()
	pid.SetGains(g)
	if min := e.cfg.PID.OutputMin; min != nil {
		if err := pid.SetOutMin(*min); err != nil {
			return nil, err
		}
	}
	if max := e.cfg.PID.OutputMax; max != nil {
		if err := pid.SetOutMax(*max); err != nil {
			return nil, err
		}
	}
	return pid, nil
}

// Loop builds a closed loop around the plant with gains g, scored by the standard metrics.
func (e *Experiment) Loop(g control.Gains, observers ...dynamo.Observer) (*sim.Loop, sim.LoopConfig, error) {
	pid, err := e.Controller(g)
	if err != nil {
		return nil, sim.LoopConfig{}, err
	}
	loop := sim.NewLoop(e.plant, pid, e.clock)
	for _, m := range metrics.Standard(e.cfg.Run.SettleBand) {
		loop.AddMetric(m)
	}
	for _, o := range observers {
		loop.AddObserver(o)
	}
	cfg := sim.LoopConfig{
		Duration:   e.cfg.Run.Duration,
		SampleTime: e.cfg.Run.SampleTime,
		Setpoint:   e.cfg.Run.Setpoint,
	}
	return loop, cfg, nil
}

// Step closes the loop with gains g and drives the plant to the configured setpoint.
func (e *Experiment) Step(ctx context.Context, g control.Gains, observers ...dynamo.Observer) (*sim.Trace, error) {
	loop, cfg, err := e.Loop(g, observers...)
	if err != nil {
		return nil, err
	}

	e.logger.WithFields(logrus.Fields{
		"plant":    e.cfg.Plant.Model,
		"setpoint": cfg.Setpoint,
		"kp":       g.Kp,
		"ki":       g.Ki,
		"kd":       g.Kd,
	}).Info("step response started")

	trace, err := loop.Run(ctx, cfg)
	if err != nil {
		return trace, fmt.Errorf("step response: %w", err)
	}
	return trace, nil
}

func bounds(min, max *float64) (float64, float64) {
	lo, hi := math.Inf(-1), math.Inf(1)
	if min != nil {
		lo = *min
	}
	if max != nil {
		hi = *max
	}
	return lo, hi
}
