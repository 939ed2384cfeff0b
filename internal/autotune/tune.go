package autotune

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/san-kum/relaytune/internal/control"
	"github.com/san-kum/relaytune/internal/dynamo"
	"github.com/san-kum/relaytune/internal/peak"
	"github.com/sirupsen/logrus"
)

// Result is the outcome of a relay experiment.
type Result struct {
	Ku          float64
	Pu          time.Duration
	Gains       control.Gains
	ControlType ControlType
	// Converged is false when the experiment stopped on the peak budget instead.
	Converged bool
	Peaks     []float64
	Samples   int
	Amplitude float64
	Elapsed   time.Duration
}

// Tune runs the relay experiment. It verifies stability, toggles the output between
// start+OutputStep and start-OutputStep around the starting measurement, and stops once the
// last three peaks agree or more than MaxPeaks peaks were seen. The starting output is
// restored on every exit after the first step.
//
// Tune has no internal timeout; bound it with ctx.
func (a *Autotuner) Tune(ctx context.Context) (res *Result, err error) {
	if err := a.validate(); err != nil {
		return nil, err
	}
	a.tuned = false

	if err := a.VerifyStability(ctx); err != nil {
		return nil, err
	}

	a.detector = peak.NewDetector(MaxPeaks, a.clock)
	if err := a.detector.SetLookback(max(a.lookbackSamples, peak.MinLookback)); err != nil {
		return nil, err
	}

	if a.setpoint, err = a.plant.Measure(); err != nil {
		return nil, fmt.Errorf("autotune: measure: %w", err)
	}
	a.absMax, a.absMin = a.setpoint, a.setpoint
	if a.outputStart, err = dynamo.ReadOutput(a.plant); err != nil {
		return nil, fmt.Errorf("autotune: read output: %w", err)
	}

	log := a.log().WithFields(logrus.Fields{
		"setpoint":         a.setpoint,
		"output_start":     a.outputStart,
		"output_step":      a.OutputStep,
		"noise_band":       a.NoiseBand,
		"sample_time":      a.sampleTime,
		"lookback_samples": a.lookbackSamples,
		"control_type":     a.controlType.String(),
	})
	log.Info("autotune started")

	restored := false
	restore := func() error {
		restored = true
		if _, err := dynamo.SetOutput(a.plant, a.outputStart); err != nil {
			return fmt.Errorf("autotune: restore output: %w", err)
		}
		return nil
	}
	defer func() {
		if restored {
			return
		}
		if rerr := restore(); rerr != nil {
			err = errors.Join(err, rerr)
			res = nil
		}
	}()

	high := a.outputStart + a.OutputStep
	low := a.outputStart - a.OutputStep
	output, err := dynamo.SetOutput(a.plant, high)
	if err != nil {
		return nil, fmt.Errorf("autotune: set output: %w", err)
	}

	start := a.clock.Now()
	var lastRun time.Time
	converged := false
	for {
		if err := ctx.Err(); err != nil {
			return nil, dynamo.Canceled(err)
		}
		if lastRun, err = a.pace(ctx, lastRun); err != nil {
			return nil, err
		}

		pv, err := a.plant.Measure()
		if err != nil {
			return nil, fmt.Errorf("autotune: measure: %w", err)
		}
		a.absMax = math.Max(a.absMax, pv)
		a.absMin = math.Min(a.absMin, pv)

		switch {
		case pv > a.setpoint+a.NoiseBand && output != low:
			output, err = dynamo.SetOutput(a.plant, low)
		case pv < a.setpoint-a.NoiseBand && output != high:
			output, err = dynamo.SetOutput(a.plant, high)
		}
		if err != nil {
			return nil, fmt.Errorf("autotune: set output: %w", err)
		}

		if err := a.detector.Add(pv); err != nil {
			return nil, fmt.Errorf("autotune: %w", err)
		}
		count := a.detector.Count()
		inflected := a.detector.JustInflected()

		a.notify(dynamo.Sample{
			Elapsed:    lastRun.Sub(start),
			PV:         pv,
			Output:     output,
			Setpoint:   a.setpoint,
			Peaks:      count,
			Inflection: inflected,
		})
		if inflected {
			log.WithFields(logrus.Fields{"peaks": count, "pv": pv, "output": output}).Debug("inflection")
		}

		if count > MaxPeaks {
			break
		}
		if inflected && count > 2 && a.settled() {
			converged = true
			break
		}
	}

	if err := restore(); err != nil {
		return nil, err
	}
	if err := a.finish(); err != nil {
		return nil, err
	}

	gains, err := GainsFor(a.ku, a.pu, a.controlType)
	if err != nil {
		return nil, err
	}
	res = &Result{
		Ku:          a.ku,
		Pu:          a.pu,
		Gains:       gains,
		ControlType: a.controlType,
		Converged:   converged,
		Peaks:       a.detector.Recent(MaxPeaks),
		Samples:     a.detector.Samples(),
		Amplitude:   a.absMax - a.absMin,
		Elapsed:     a.clock.Now().Sub(start),
	}
	log.WithFields(logrus.Fields{
		"converged": converged,
		"ku":        a.ku,
		"pu":        a.pu,
		"kp":        gains.Kp,
		"ki":        gains.Ki,
		"kd":        gains.Kd,
	}).Info("autotune finished")
	a.tuned = true
	return res, nil
}

func (a *Autotuner) validate() error {
	if !a.controlType.Valid() {
		return fmt.Errorf("%w: unknown control type %d", dynamo.ErrInvalidArgument, int(a.controlType))
	}
	if !dynamo.IsFinite(a.OutputStep) || a.OutputStep <= 0 {
		return fmt.Errorf("%w: output step must be positive, got %g", dynamo.ErrInvalidArgument, a.OutputStep)
	}
	if !dynamo.IsFinite(a.NoiseBand) || a.NoiseBand < 0 {
		return fmt.Errorf("%w: noise band must not be negative, got %g", dynamo.ErrInvalidArgument, a.NoiseBand)
	}
	if a.plant == nil {
		return fmt.Errorf("%w: no plant", dynamo.ErrInvalidArgument)
	}
	return nil
}

// pace blocks until at least one sample time has passed since last. Short or interrupted
// sleeps are topped up.
func (a *Autotuner) pace(ctx context.Context, last time.Time) (time.Time, error) {
	now := a.clock.Now()
	if last.IsZero() {
		return now, nil
	}
	next := last.Add(a.sampleTime)
	for now.Before(next) {
		if err := a.clock.Sleep(ctx, next.Sub(now)); err != nil {
			return last, err
		}
		now = a.clock.Now()
	}
	return now, nil
}

// settled reports whether the last three peaks are within the convergence band.
func (a *Autotuner) settled() bool {
	pks := a.detector.Recent(3)
	if len(pks) < 3 {
		return false
	}
	spread := (math.Abs(pks[2]-pks[1]) + math.Abs(pks[1]-pks[0])) / 2
	return spread < convergenceRatio*(a.absMax-a.absMin)
}

func (a *Autotuner) finish() error {
	swing := a.absMax - a.absMin
	if swing <= 0 {
		return fmt.Errorf("%w: no oscillation observed", dynamo.ErrUnavailable)
	}
	pu, err := a.detector.LastPeakGap()
	if err != nil {
		return fmt.Errorf("autotune: ultimate period: %w", err)
	}
	a.ku = 4 * (2 * a.OutputStep) / (math.Pi * swing)
	a.pu = pu
	return nil
}
