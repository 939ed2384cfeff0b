package dynamo

import (
	"errors"
	"fmt"
	"time"
)

// Domain errors for control and tuning operations.
var (
	// ErrInvalidArgument indicates a rejected input. The component is left unchanged.
	ErrInvalidArgument = errors.New("relaytune: invalid argument")

	// ErrNotStable indicates the plant drifted or its output moved during a stability check.
	ErrNotStable = errors.New("relaytune: plant not stable")

	// ErrUnavailable indicates a value that has not been established yet.
	ErrUnavailable = errors.New("relaytune: value unavailable")

	// ErrCanceled indicates a blocking operation was interrupted by its context.
	ErrCanceled = errors.New("relaytune: operation canceled")
)

// NotStableError carries the reading that failed a stability check.
type NotStableError struct {
	Measured float64
	Expected float64
	Elapsed  time.Duration
	// Output is set when the actuator level moved rather than the measurement.
	Output bool
}

func (e *NotStableError) Error() string {
	what := "measured value"
	if e.Output {
		what = "output level"
	}
	return fmt.Sprintf("%s: %s was %g, expected %g (after %s)", ErrNotStable, what, e.Measured, e.Expected, e.Elapsed)
}

func (e *NotStableError) Unwrap() error {
	return ErrNotStable
}

// Canceled wraps a context error so it matches both ErrCanceled and the context cause.
func Canceled(err error) error {
	return fmt.Errorf("%w: %w", ErrCanceled, err)
}
