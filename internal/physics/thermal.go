package physics

import (
	"fmt"

	"github.com/san-kum/relaytune/internal/dynamo"
)

const (
	DefaultAmbient = 20.0
	DefaultGain    = 1.0
	DefaultTau     = 2.0
)

// Thermal is a heater driving a chain of first-order thermal masses: element, body,
// sensor. State holds each stage's rise above ambient; the last stage is what the sensor
// reads. Three or more lags give the -180 degree phase crossing a relay experiment needs.
type Thermal struct {
	Ambient float64
	// Gain is the steady state rise per unit of heater output.
	Gain float64
	// Taus are the stage time constants in seconds, heater side first.
	Taus []float64
}

func NewThermal() *Thermal {
	return &Thermal{
		Ambient: DefaultAmbient,
		Gain:    DefaultGain,
		Taus:    []float64{DefaultTau, DefaultTau, DefaultTau},
	}
}

func (th *Thermal) Validate() error {
	if len(th.Taus) == 0 {
		return fmt.Errorf("%w: thermal model needs at least one stage", dynamo.ErrInvalidArgument)
	}
	for i, tau := range th.Taus {
		if !(tau > 0) {
			return fmt.Errorf("%w: stage %d time constant must be positive, got %g", dynamo.ErrInvalidArgument, i, tau)
		}
	}
	if !dynamo.IsFinite(th.Gain) || !dynamo.IsFinite(th.Ambient) {
		return fmt.Errorf("%w: gain and ambient must be finite", dynamo.ErrInvalidArgument)
	}
	return nil
}

func (th *Thermal) StateDim() int   { return len(th.Taus) }
func (th *Thermal) ControlDim() int { return 1 }

func (th *Thermal) Derive(x dynamo.State, u dynamo.Control, t float64) dynamo.State {
	dx := make(dynamo.State, len(x))
	heat := 0.0
	if len(u) > 0 {
		heat = th.Gain * u[0]
	}
	upstream := heat
	for i := range x {
		dx[i] = (upstream - x[i]) / th.Taus[i]
		upstream = x[i]
	}
	return dx
}

// Output is the sensor reading for state x.
func (th *Thermal) Output(x dynamo.State) float64 {
	if len(x) == 0 {
		return th.Ambient
	}
	return th.Ambient + x[len(x)-1]
}

// SteadyState is the state the model settles to under a constant output u.
func (th *Thermal) SteadyState(u float64) dynamo.State {
	x := make(dynamo.State, len(th.Taus))
	for i := range x {
		x[i] = th.Gain * u
	}
	return x
}

// DCGain returns the static gain from output to measurement.
func (th *Thermal) DCGain() float64 { return th.Gain }
