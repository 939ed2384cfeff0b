package autotune_test

import (
	"errors"
	"time"

	"github.com/san-kum/relaytune/internal/dynamo"
	"github.com/san-kum/relaytune/internal/integrators"
	"github.com/san-kum/relaytune/internal/physics"
	"github.com/san-kum/relaytune/internal/sim"
)

var (
	t0      = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	errBoom = errors.New("boom")
)

// scriptedPlant answers from functions of the call index.
type scriptedPlant struct {
	measure func(n int) (float64, error)
	read    func(n int) float64

	output   float64
	measures int
	reads    int
	sets     []float64
}

func constantPlant(pv, output float64) *scriptedPlant {
	return &scriptedPlant{
		measure: func(int) (float64, error) { return pv, nil },
		output:  output,
	}
}

func (p *scriptedPlant) Measure() (float64, error) {
	n := p.measures
	p.measures++
	return p.measure(n)
}

func (p *scriptedPlant) Actuate(v *float64) (float64, error) {
	if v != nil {
		p.sets = append(p.sets, *v)
		p.output = *v
		return p.output, nil
	}
	n := p.reads
	p.reads++
	if p.read != nil {
		return p.read(n), nil
	}
	return p.output, nil
}

// faultyPlant wraps a plant and starts failing after a number of calls.
type faultyPlant struct {
	dynamo.Plant
	measureBudget int
	setBudget     int
}

func (p *faultyPlant) Measure() (float64, error) {
	if p.measureBudget == 0 {
		return 0, errBoom
	}
	p.measureBudget--
	return p.Plant.Measure()
}

func (p *faultyPlant) Actuate(v *float64) (float64, error) {
	if v != nil {
		if p.setBudget == 0 {
			return 0, errBoom
		}
		p.setBudget--
	}
	return p.Plant.Actuate(v)
}

// stuckPlant refuses to be driven to one output level.
type stuckPlant struct {
	dynamo.Plant
	refuse float64
}

func (p *stuckPlant) Actuate(v *float64) (float64, error) {
	if v != nil && *v == p.refuse {
		return 0, errBoom
	}
	return p.Plant.Actuate(v)
}

// labPlant is three two-second lags at unit gain, resting under output u. Its ultimate gain
// is 8 and its ultimate period about 7.3s.
func labPlant(u float64) (*sim.Plant, *dynamo.ManualClock) {
	clock := dynamo.NewManualClock(t0)
	return sim.NewPlant(physics.NewThermal(), integrators.NewRK4(), clock, u), clock
}
