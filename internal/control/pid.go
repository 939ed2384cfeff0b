package control

import (
	"fmt"
	"math"
	"time"

	"github.com/san-kum/relaytune/internal/dynamo"
)

// Gains are the proportional, integral and derivative coefficients. Ki is per second and Kd
// is in seconds.
type Gains struct {
	Kp float64
	Ki float64
	Kd float64
}

// PID is a positional controller with anti-windup and derivative-on-measurement.
//
// The integral accumulator already contains Ki, so changing Ki between calls does not
// step the output.
type PID struct {
	Kp       float64
	Ki       float64
	Kd       float64
	Setpoint float64

	outMin, outMax float64
	hasMin, hasMax bool

	manual       bool
	manualOut    float64
	hasManualOut bool
	ranSinceSet  bool

	cp, ci, cd float64
	lastOut    float64
	hasLastOut bool

	prevT   time.Time
	prevPV  float64
	hasPrev bool
}

// NewPID returns a controller with zero gains, setpoint 0 and no output limits.
func NewPID() *PID {
	return &PID{}
}

func (p *PID) Gains() Gains {
	return Gains{Kp: p.Kp, Ki: p.Ki, Kd: p.Kd}
}

func (p *PID) SetGains(g Gains) {
	p.Kp, p.Ki, p.Kd = g.Kp, g.Ki, g.Kd
}

// Cp is the error of the last computation.
func (p *PID) Cp() float64 { return p.cp }

// Ci is the integral accumulator, gain included.
func (p *PID) Ci() float64 { return p.ci }

// Cd is the rate of change of the measurement in the last computation.
func (p *PID) Cd() float64 { return p.cd }

// LastOutput returns the output of the last Compute call, if any.
func (p *PID) LastOutput() (float64, bool) {
	return p.lastOut, p.hasLastOut
}

// OutputLimits returns the configured bounds and whether each is set.
func (p *PID) OutputLimits() (min float64, hasMin bool, max float64, hasMax bool) {
	return p.outMin, p.hasMin, p.outMax, p.hasMax
}

func (p *PID) SetOutputLimits(min, max float64) error {
	if !dynamo.IsFinite(min) || !dynamo.IsFinite(max) {
		return fmt.Errorf("%w: output limits must be finite", dynamo.ErrInvalidArgument)
	}
	if min > max {
		return fmt.Errorf("%w: out_min %g exceeds out_max %g", dynamo.ErrInvalidArgument, min, max)
	}
	p.outMin, p.hasMin = min, true
	p.outMax, p.hasMax = max, true
	return nil
}

func (p *PID) SetOutMin(min float64) error {
	if !dynamo.IsFinite(min) {
		return fmt.Errorf("%w: out_min must be finite", dynamo.ErrInvalidArgument)
	}
	if p.hasMax && min > p.outMax {
		return fmt.Errorf("%w: out_min %g exceeds out_max %g", dynamo.ErrInvalidArgument, min, p.outMax)
	}
	p.outMin, p.hasMin = min, true
	return nil
}

func (p *PID) SetOutMax(max float64) error {
	if !dynamo.IsFinite(max) {
		return fmt.Errorf("%w: out_max must be finite", dynamo.ErrInvalidArgument)
	}
	if p.hasMin && max < p.outMin {
		return fmt.Errorf("%w: out_max %g is below out_min %g", dynamo.ErrInvalidArgument, max, p.outMin)
	}
	p.outMax, p.hasMax = max, true
	return nil
}

func (p *PID) ClearOutputLimits() {
	p.hasMin, p.hasMax = false, false
	p.outMin, p.outMax = 0, 0
}

// Compute runs one step of the control law for the measurement pv taken at now.
//
// A non-positive interval since the previous call (including the very first call)
// contributes neither integral nor derivative action. A non-finite measurement leaves the
// controller state untouched and holds the previous output.
func (p *PID) Compute(pv float64, now time.Time) float64 {
	if p.manual {
		return p.holdManual()
	}
	if !dynamo.IsFinite(pv) {
		return p.hold()
	}

	dt := 0.0
	if p.hasPrev {
		dt = now.Sub(p.prevT).Seconds()
	}

	err := p.Setpoint - pv
	p.cd = 0
	if dt > 0 {
		p.ci += p.Ki * err * dt
		p.cd = (pv - p.prevPV) / dt
	}
	p.ci = p.boundIntegral(p.ci)

	out := p.Kp*err + p.ci - p.Kd*p.cd
	if math.IsNaN(out) {
		out = p.held()
	}

	if p.hasMax && out > p.outMax {
		p.ci -= out - p.outMax
		out = p.outMax
	}
	if p.hasMin && out < p.outMin {
		p.ci += p.outMin - out
		out = p.outMin
	}
	p.ci = p.boundIntegral(p.ci)

	p.cp = err
	p.prevT, p.prevPV, p.hasPrev = now, pv, true
	p.record(out)
	return out
}

// held is the previous output within the current limits, or zero before the first call.
func (p *PID) held() float64 {
	if p.hasLastOut {
		return p.clamp(p.lastOut)
	}
	return p.clamp(0)
}

func (p *PID) hold() float64 {
	out := p.held()
	p.record(out)
	return out
}

// boundIntegral keeps the accumulator finite and inside the output limits once it has
// overflowed, so a later step cannot evaluate Inf-Inf.
func (p *PID) boundIntegral(ci float64) float64 {
	if dynamo.IsFinite(ci) {
		return ci
	}
	if math.IsNaN(ci) {
		ci = 0
	}
	ci = p.clamp(ci)
	return math.Max(-math.MaxFloat64, math.Min(math.MaxFloat64, ci))
}

func (p *PID) record(out float64) {
	p.lastOut, p.hasLastOut = out, true
	p.ranSinceSet = true
}

func (p *PID) clamp(v float64) float64 {
	if p.hasMax && v > p.outMax {
		return p.outMax
	}
	if p.hasMin && v < p.outMin {
		return p.outMin
	}
	return v
}

// Reset clears the accumulated integral and the derivative history.
func (p *PID) Reset() {
	p.ci, p.cp, p.cd = 0, 0, 0
	p.prevT, p.prevPV, p.hasPrev = time.Time{}, 0, false
}

// GetParams returns tunable parameters for live adjustment
func (p *PID) GetParams() map[string]float64 {
	return map[string]float64{
		"Kp":       p.Kp,
		"Ki":       p.Ki,
		"Kd":       p.Kd,
		"Setpoint": p.Setpoint,
	}
}

// SetParam adjusts a PID parameter by name.
func (p *PID) SetParam(name string, value float64) error {
	if !dynamo.IsFinite(value) {
		return fmt.Errorf("%w: %s must be finite", dynamo.ErrInvalidArgument, name)
	}
	switch name {
	case "Kp":
		p.Kp = value
	case "Ki":
		p.Ki = value
	case "Kd":
		p.Kd = value
	case "Setpoint":
		p.Setpoint = value
	default:
		return fmt.Errorf("%w: unknown parameter %q", dynamo.ErrInvalidArgument, name)
	}
	return nil
}
