package dynamo

import (
	"math"
	"time"
)

type State []float64

func (s State) Clone() State {
	c := make(State, len(s))
	copy(c, s)
	return c
}

func (s State) IsValid() bool {
	for _, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

type Control []float64

// System is an ODE model: dX/dt = f(X, u, t).
type System interface {
	Derive(x State, u Control, t float64) State
	StateDim() int
	ControlDim() int
}

type Integrator interface {
	Step(dyn System, x State, u Control, t float64, dt float64) State
}

// Plant is the process under control.
//
// Measure returns the current process variable. Actuate sets the actuator to *value when
// value is non-nil and always returns the resulting actuator level.
type Plant interface {
	Measure() (float64, error)
	Actuate(value *float64) (float64, error)
}

// ReadOutput returns the actuator level without changing it.
func ReadOutput(p Plant) (float64, error) {
	return p.Actuate(nil)
}

// SetOutput drives the actuator to v and returns the level the plant reports.
func SetOutput(p Plant, v float64) (float64, error) {
	return p.Actuate(&v)
}

// Sample is one iteration of a tuning or control loop.
type Sample struct {
	Elapsed    time.Duration
	PV         float64
	Output     float64
	Setpoint   float64
	Peaks      int
	Inflection bool
}

type Observer interface {
	OnStep(s Sample)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(s Sample)

func (f ObserverFunc) OnStep(s Sample) { f(s) }

// IsFinite reports whether v is neither NaN nor infinite.
func IsFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
