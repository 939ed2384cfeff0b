package autotune

import (
	"fmt"
	"time"

	"github.com/san-kum/relaytune/internal/control"
	"github.com/san-kum/relaytune/internal/dynamo"
	"github.com/san-kum/relaytune/internal/peak"
	"github.com/sirupsen/logrus"
)

const (
	DefaultOutputStep = 200.0
	DefaultNoiseBand  = 0.5
	DefaultLookback   = 10 * time.Second

	// MaxPeaks bounds the experiment: tuning stops once more peaks than this are seen.
	MaxPeaks = 9

	shortSampleTime     = 250 * time.Millisecond
	shortLookbackLimit  = 25 * time.Second
	longLookbackSamples = 100

	// convergence: mean spread of the last three peaks below this fraction of the swing
	convergenceRatio = 0.05
)

// Autotuner runs a relay feedback experiment against a Plant and derives PID gains.
type Autotuner struct {
	// OutputStep is the relay amplitude around the starting output.
	OutputStep float64
	// NoiseBand is the deadband around the setpoint inside which the relay holds.
	NoiseBand float64
	Logger    logrus.FieldLogger

	plant       dynamo.Plant
	clock       dynamo.Clock
	controlType ControlType

	sampleTime      time.Duration
	lookbackSamples int

	detector  *peak.Detector
	observers []dynamo.Observer

	setpoint    float64
	outputStart float64
	absMax      float64
	absMin      float64

	ku    float64
	pu    time.Duration
	tuned bool
}

// New returns an autotuner for plant. A nil clock uses the system clock.
func New(plant dynamo.Plant, clock dynamo.Clock) *Autotuner {
	if clock == nil {
		clock = dynamo.SystemClock{}
	}
	a := &Autotuner{
		OutputStep:  DefaultOutputStep,
		NoiseBand:   DefaultNoiseBand,
		Logger:      logrus.StandardLogger(),
		plant:       plant,
		clock:       clock,
		controlType: PID,
		detector:    peak.NewDetector(MaxPeaks, clock),
	}
	a.SetLookback(DefaultLookback)
	return a
}

func (a *Autotuner) AddObserver(o dynamo.Observer) { a.observers = append(a.observers, o) }

func (a *Autotuner) ControlType() ControlType { return a.controlType }

func (a *Autotuner) SetControlType(ct ControlType) error {
	if !ct.Valid() {
		return fmt.Errorf("%w: unknown control type %d", dynamo.ErrInvalidArgument, int(ct))
	}
	a.controlType = ct
	return nil
}

// SetLookback sets how far back peak detection looks, minimum one second. Below 25s the
// loop samples every 250ms and the window is the whole number of samples that fits in d.
// From 25s up it keeps 100 samples and stretches the sample time instead.
func (a *Autotuner) SetLookback(d time.Duration) {
	if d < time.Second {
		d = time.Second
	}
	if d < shortLookbackLimit {
		a.sampleTime = shortSampleTime
		a.lookbackSamples = int(d / shortSampleTime)
		return
	}
	a.sampleTime = d / longLookbackSamples
	a.lookbackSamples = longLookbackSamples
}

func (a *Autotuner) Lookback() time.Duration {
	return a.sampleTime * time.Duration(a.lookbackSamples)
}

func (a *Autotuner) SampleTime() time.Duration { return a.sampleTime }

func (a *Autotuner) LookbackSamples() int { return a.lookbackSamples }

// Detector exposes the peak detector of the current or last experiment.
func (a *Autotuner) Detector() *peak.Detector { return a.detector }

func (a *Autotuner) UltimateGain() (float64, error) {
	if !a.tuned {
		return 0, fmt.Errorf("%w: ultimate gain before a successful tune", dynamo.ErrUnavailable)
	}
	return a.ku, nil
}

func (a *Autotuner) UltimatePeriod() (time.Duration, error) {
	if !a.tuned {
		return 0, fmt.Errorf("%w: ultimate period before a successful tune", dynamo.ErrUnavailable)
	}
	return a.pu, nil
}

// Gains derives gains for the current control type from the last tuning result.
func (a *Autotuner) Gains() (control.Gains, error) {
	if !a.tuned {
		return control.Gains{}, fmt.Errorf("%w: gains before a successful tune", dynamo.ErrUnavailable)
	}
	return GainsFor(a.ku, a.pu, a.controlType)
}

func (a *Autotuner) Kp() (float64, error) {
	g, err := a.Gains()
	return g.Kp, err
}

func (a *Autotuner) Ki() (float64, error) {
	g, err := a.Gains()
	return g.Ki, err
}

func (a *Autotuner) Kd() (float64, error) {
	g, err := a.Gains()
	return g.Kd, err
}

func (a *Autotuner) log() logrus.FieldLogger {
	if a.Logger == nil {
		return logrus.StandardLogger()
	}
	return a.Logger
}

func (a *Autotuner) notify(s dynamo.Sample) {
	for _, o := range a.observers {
		o.OnStep(s)
	}
}
