package peak

import (
	"fmt"
	"time"

	"github.com/san-kum/relaytune/internal/dynamo"
)

const (
	DefaultLookback = 5
	DefaultCapacity = 10
	MinLookback     = 2
)

type Phase int

const (
	PhaseNone Phase = iota
	PhaseHigh
	PhaseLow
)

func (p Phase) String() string {
	switch p {
	case PhaseHigh:
		return "high"
	case PhaseLow:
		return "low"
	default:
		return "none"
	}
}

type Detector struct {
	clock    dynamo.Clock
	lookback int
	capacity int

	data      []float64
	confirmed []float64
	completed int

	// extreme of the current, unconfirmed phase
	pending    float64
	hasPending bool

	phase     Phase
	inflected bool

	latest      time.Time // most recent maximum
	previous    time.Time // maximum that closed the phase before it
	hasLatest   bool
	hasPrevious bool
}

// NewDetector returns a detector that stores at most capacity peaks. A nil clock uses the
// system clock.
func NewDetector(capacity int, clock dynamo.Clock) *Detector {
	if capacity < 1 {
		capacity = DefaultCapacity
	}
	if clock == nil {
		clock = dynamo.SystemClock{}
	}
	return &Detector{
		clock:     clock,
		lookback:  DefaultLookback,
		capacity:  capacity,
		confirmed: make([]float64, 0, capacity),
	}
}

func (d *Detector) Lookback() int { return d.lookback }
func (d *Detector) Capacity() int { return d.capacity }
func (d *Detector) Phase() Phase  { return d.phase }

// JustInflected reports whether the last added sample changed the phase between HIGH and LOW.
func (d *Detector) JustInflected() bool { return d.inflected }

// SetLookback sets the number of earlier samples a new sample is compared against.
func (d *Detector) SetLookback(n int) error {
	if n < MinLookback {
		return fmt.Errorf("%w: lookback must be at least %d, got %d", dynamo.ErrInvalidArgument, MinLookback, n)
	}
	d.lookback = n
	return nil
}

func (d *Detector) Add(x float64) error {
	if !dynamo.IsFinite(x) {
		return fmt.Errorf("%w: sample %v is not a finite number", dynamo.ErrInvalidArgument, x)
	}

	isMax, isMin := d.classify(x)
	d.inflected = false

	switch {
	case isMax:
		switch d.phase {
		case PhaseNone:
			d.phase = PhaseHigh
		case PhaseLow:
			d.phase = PhaseHigh
			d.inflected = true
			d.previous, d.hasPrevious = d.latest, d.hasLatest
		}
		d.latest, d.hasLatest = d.clock.Now(), true
		d.pending, d.hasPending = x, true
	case isMin:
		switch d.phase {
		case PhaseNone:
			d.phase = PhaseLow
		case PhaseHigh:
			d.phase = PhaseLow
			d.inflected = true
			d.confirm()
		}
		d.pending, d.hasPending = x, true
	}

	d.data = append(d.data, x)
	return nil
}

func (d *Detector) classify(x float64) (isMax, isMin bool) {
	if len(d.data) == 0 {
		return true, false
	}
	window := d.data
	if len(window) > d.lookback {
		window = window[len(window)-d.lookback:]
	}
	hi, lo := window[0], window[0]
	for _, v := range window[1:] {
		if v > hi {
			hi = v
		}
		if v < lo {
			lo = v
		}
	}
	return x > hi, x < lo
}

// confirm closes a HIGH phase, turning its pending maximum into a peak.
func (d *Detector) confirm() {
	if d.hasPending && len(d.confirmed) < d.capacity {
		d.confirmed = append(d.confirmed, d.pending)
	}
	d.completed++
	d.hasPending = false
}

// Count is the number of completed HIGH phases, plus one while a HIGH phase is in progress.
// An in-progress LOW extreme is never counted.
func (d *Detector) Count() int {
	if d.phase == PhaseHigh && d.hasPending {
		return d.completed + 1
	}
	return d.completed
}

// LastPeakGap is the time between the two most recent maxima.
func (d *Detector) LastPeakGap() (time.Duration, error) {
	if !d.hasPrevious || !d.hasLatest {
		return 0, fmt.Errorf("%w: fewer than two peaks recorded", dynamo.ErrUnavailable)
	}
	return d.latest.Sub(d.previous), nil
}

// Recent returns up to n of the latest peaks, earliest first. An in-progress HIGH extreme is
// included as the newest entry.
func (d *Detector) Recent(n int) []float64 {
	visible := d.visible()
	if n <= 0 {
		return []float64{}
	}
	if n > len(visible) {
		n = len(visible)
	}
	out := make([]float64, n)
	copy(out, visible[len(visible)-n:])
	return out
}

func (d *Detector) visible() []float64 {
	if d.phase == PhaseHigh && d.hasPending && len(d.confirmed) < d.capacity {
		return append(d.confirmed[:len(d.confirmed):len(d.confirmed)], d.pending)
	}
	return d.confirmed
}

// Samples returns the number of values added so far.
func (d *Detector) Samples() int { return len(d.data) }
