package metrics

import (
	"math"

	"github.com/san-kum/relaytune/internal/dynamo"
)

// Overshoot is the largest excursion past the setpoint as a percentage of the step size,
// where the step runs from the first measured value to the setpoint.
type Overshoot struct {
	name    string
	initial float64
	peak    float64
	target  float64
	started bool
}

func NewOvershoot() *Overshoot {
	return &Overshoot{name: "overshoot_pct"}
}

func (o *Overshoot) Name() string { return o.name }

func (o *Overshoot) Observe(s dynamo.Sample) {
	if !o.started {
		o.initial = s.PV
		o.target = s.Setpoint
		o.started = true
	}
	// Excursion is measured in the step's direction.
	past := s.PV - o.target
	if o.target < o.initial {
		past = -past
	}
	o.peak = math.Max(o.peak, past)
}

func (o *Overshoot) Value() float64 {
	step := math.Abs(o.target - o.initial)
	if !o.started || step == 0 {
		return 0
	}
	return 100 * o.peak / step
}

func (o *Overshoot) Reset() {
	o.initial = 0
	o.peak = 0
	o.target = 0
	o.started = false
}
