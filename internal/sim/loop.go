package sim

import (
	"context"
	"fmt"
	"time"

	"github.com/san-kum/relaytune/internal/control"
	"github.com/san-kum/relaytune/internal/dynamo"
	"github.com/san-kum/relaytune/internal/metrics"
)

type LoopConfig struct {
	Duration   time.Duration
	SampleTime time.Duration
	Setpoint   float64
}

type Trace struct {
	Times   []time.Duration
	PV      []float64
	Outputs []float64
	Metrics map[string]float64
}

func (c LoopConfig) validate() error {
	if c.SampleTime <= 0 {
		return fmt.Errorf("%w: sample time must be positive, got %s", dynamo.ErrInvalidArgument, c.SampleTime)
	}
	if c.Duration <= 0 {
		return fmt.Errorf("%w: duration must be positive, got %s", dynamo.ErrInvalidArgument, c.Duration)
	}
	return nil
}

// Loop drives a PID against a plant at a fixed sample time.
type Loop struct {
	plant     dynamo.Plant
	pid       *control.PID
	clock     dynamo.Clock
	metrics   []metrics.Metric
	observers []dynamo.Observer
}

func NewLoop(plant dynamo.Plant, pid *control.PID, clock dynamo.Clock) *Loop {
	return &Loop{plant: plant, pid: pid, clock: clock}
}

func (l *Loop) AddMetric(m metrics.Metric)    { l.metrics = append(l.metrics, m) }
func (l *Loop) AddObserver(o dynamo.Observer) { l.observers = append(l.observers, o) }

// Run sets the controller's setpoint to cfg.Setpoint and closes the loop for cfg.Duration.
func (l *Loop) Run(ctx context.Context, cfg LoopConfig) (*Trace, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	steps := int(cfg.Duration / cfg.SampleTime)
	trace := &Trace{
		Times:   make([]time.Duration, 0, steps+1),
		PV:      make([]float64, 0, steps+1),
		Outputs: make([]float64, 0, steps+1),
		Metrics: make(map[string]float64),
	}
	for _, m := range l.metrics {
		m.Reset()
	}

	l.pid.Setpoint = cfg.Setpoint
	start := l.clock.Now()
	for i := 0; i <= steps; i++ {
		if err := ctx.Err(); err != nil {
			return trace, dynamo.Canceled(err)
		}

		now := l.clock.Now()
		pv, err := l.plant.Measure()
		if err != nil {
			return trace, fmt.Errorf("sim: measure: %w", err)
		}
		out, err := dynamo.SetOutput(l.plant, l.pid.Compute(pv, now))
		if err != nil {
			return trace, fmt.Errorf("sim: actuate: %w", err)
		}

		s := dynamo.Sample{Elapsed: now.Sub(start), PV: pv, Output: out, Setpoint: cfg.Setpoint}
		trace.Times = append(trace.Times, s.Elapsed)
		trace.PV = append(trace.PV, pv)
		trace.Outputs = append(trace.Outputs, out)
		for _, m := range l.metrics {
			m.Observe(s)
		}
		for _, o := range l.observers {
			o.OnStep(s)
		}

		if i < steps {
			if err := l.clock.Sleep(ctx, cfg.SampleTime); err != nil {
				return trace, err
			}
		}
	}

	for _, m := range l.metrics {
		trace.Metrics[m.Name()] = m.Value()
	}
	return trace, nil
}

// RunClosedLoop is a one-shot Loop run with the given metrics.
func RunClosedLoop(ctx context.Context, plant dynamo.Plant, pid *control.PID, clock dynamo.Clock, cfg LoopConfig, ms ...metrics.Metric) (*Trace, error) {
	l := NewLoop(plant, pid, clock)
	for _, m := range ms {
		l.AddMetric(m)
	}
	return l.Run(ctx, cfg)
}
