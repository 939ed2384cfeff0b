package autotune

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/san-kum/relaytune/internal/dynamo"
	"github.com/sirupsen/logrus"
)

// stableAccuracy is the relative measurement drift still counted as stable.
const stableAccuracy = 0.005

// stabilityDelays are measured from the start of the check, not from the previous check.
var stabilityDelays = []time.Duration{
	10 * time.Millisecond,
	100 * time.Millisecond,
	time.Second,
	10 * time.Second,
	100 * time.Second,
}

// VerifyStability checks that the plant sits still before an experiment: the measurement must
// not drift by more than 0.5% and the output must not move. It blocks for up to 100s of clock
// time and returns a *dynamo.NotStableError on failure.
func (a *Autotuner) VerifyStability(ctx context.Context) error {
	if a.plant == nil {
		return fmt.Errorf("%w: no plant", dynamo.ErrInvalidArgument)
	}
	output, err := dynamo.ReadOutput(a.plant)
	if err != nil {
		return fmt.Errorf("autotune: read output: %w", err)
	}
	input, err := a.plant.Measure()
	if err != nil {
		return fmt.Errorf("autotune: measure: %w", err)
	}

	start := a.clock.Now()
	for _, delay := range stabilityDelays {
		if err := ctx.Err(); err != nil {
			return dynamo.Canceled(err)
		}
		deadline := start.Add(delay)
		for now := a.clock.Now(); now.Before(deadline); now = a.clock.Now() {
			if err := a.clock.Sleep(ctx, deadline.Sub(now)); err != nil {
				return err
			}
		}

		cur, err := a.plant.Measure()
		if err != nil {
			return fmt.Errorf("autotune: measure: %w", err)
		}
		if math.Abs(cur-input) > stableAccuracy*math.Abs(input) {
			a.log().WithFields(logrus.Fields{"measured": cur, "expected": input, "after": delay}).Warn("measurement drifting")
			return &dynamo.NotStableError{Measured: cur, Expected: input, Elapsed: delay}
		}

		out, err := dynamo.ReadOutput(a.plant)
		if err != nil {
			return fmt.Errorf("autotune: read output: %w", err)
		}
		if out != output {
			a.log().WithFields(logrus.Fields{"output": out, "expected": output, "after": delay}).Warn("output level changing")
			return &dynamo.NotStableError{Measured: out, Expected: output, Elapsed: delay, Output: true}
		}
	}

	a.log().WithFields(logrus.Fields{"pv": input, "output": output}).Debug("plant stable")
	return nil
}
