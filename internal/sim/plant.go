package sim

import (
	"fmt"
	"math"
	"time"

	"github.com/san-kum/relaytune/internal/dynamo"
)

// DefaultStep is the integration step used between clock readings.
const DefaultStep = 10 * time.Millisecond

// Sensor maps a model state to the measured process variable.
type Sensor interface {
	Output(x dynamo.State) float64
}

// SteadyStater reports the state a model rests in under a constant output.
type SteadyStater interface {
	SteadyState(u float64) dynamo.State
}

// Plant makes a simulated model look like hardware: the model is integrated up to the
// clock's current time whenever it is measured or actuated.
type Plant struct {
	model dynamo.System
	integ dynamo.Integrator
	clock dynamo.Clock
	step  time.Duration

	x     dynamo.State
	u     float64
	t     time.Time
	start time.Time

	outMin, outMax float64
}

// NewPlant starts model at rest under output u when the model can tell its steady state,
// at the zero state otherwise.
func NewPlant(model dynamo.System, integ dynamo.Integrator, clock dynamo.Clock, u float64) *Plant {
	x := make(dynamo.State, model.StateDim())
	if ss, ok := model.(SteadyStater); ok {
		x = ss.SteadyState(u)
	}
	now := clock.Now()
	return &Plant{
		model:  model,
		integ:  integ,
		clock:  clock,
		step:   DefaultStep,
		x:      x,
		u:      u,
		t:      now,
		start:  now,
		outMin: math.Inf(-1),
		outMax: math.Inf(1),
	}
}

// SetStep changes the integration step.
func (p *Plant) SetStep(d time.Duration) error {
	if d <= 0 {
		return fmt.Errorf("%w: integration step must be positive, got %s", dynamo.ErrInvalidArgument, d)
	}
	p.step = d
	return nil
}

// SetOutputLimits saturates the actuator, like a heater that cannot go below 0% or
// above 100%.
func (p *Plant) SetOutputLimits(min, max float64) error {
	if min > max || math.IsNaN(min) || math.IsNaN(max) {
		return fmt.Errorf("%w: actuator limits [%g, %g]", dynamo.ErrInvalidArgument, min, max)
	}
	p.outMin, p.outMax = min, max
	return nil
}

func (p *Plant) State() dynamo.State { return p.x.Clone() }

func (p *Plant) Measure() (float64, error) {
	if err := p.advance(); err != nil {
		return 0, err
	}
	return p.read(), nil
}

func (p *Plant) Actuate(value *float64) (float64, error) {
	if err := p.advance(); err != nil {
		return 0, err
	}
	if value != nil {
		if math.IsNaN(*value) {
			return p.u, fmt.Errorf("%w: actuator value is NaN", dynamo.ErrInvalidArgument)
		}
		p.u = math.Min(math.Max(*value, p.outMin), p.outMax)
	}
	return p.u, nil
}

func (p *Plant) read() float64 {
	if s, ok := p.model.(Sensor); ok {
		return s.Output(p.x)
	}
	if len(p.x) == 0 {
		return 0
	}
	return p.x[0]
}

// advance integrates the model with the current output held constant up to now.
func (p *Plant) advance() error {
	now := p.clock.Now()
	u := dynamo.Control{p.u}
	for p.t.Before(now) {
		h := p.step
		if rest := now.Sub(p.t); rest < h {
			h = rest
		}
		p.x = p.integ.Step(p.model, p.x, u, p.t.Sub(p.start).Seconds(), h.Seconds())
		p.t = p.t.Add(h)
	}
	if !p.x.IsValid() {
		return fmt.Errorf("sim: model state diverged at t=%s", p.t.Sub(p.start))
	}
	return nil
}
