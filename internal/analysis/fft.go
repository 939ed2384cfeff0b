package analysis

import (
	"errors"
	"math"
	"math/cmplx"
	"time"

	"github.com/mjibson/go-dsp/fft"
)

// ErrTooShort is returned when a series is too short to hold one period.
var ErrTooShort = errors.New("analysis: series too short")

// PowerSpectrum returns the one-sided magnitude spectrum of data after removing its mean
// and applying a Hann window.
func PowerSpectrum(data []float64) []float64 {
	n := len(data)
	if n == 0 {
		return nil
	}

	mean := 0.0
	for _, v := range data {
		mean += v
	}
	mean /= float64(n)

	windowed := make([]float64, n)
	for i, v := range data {
		w := 1.0
		if n > 1 {
			w = 0.5 * (1 - math.Cos(2*math.Pi*float64(i)/float64(n-1)))
		}
		windowed[i] = (v - mean) * w
	}

	spectrum := fft.FFTReal(windowed)
	ps := make([]float64, n/2+1)
	for i := range ps {
		ps[i] = cmplx.Abs(spectrum[i])
	}
	return ps
}

// DominantPeriod estimates the period of the strongest oscillation in a series sampled every
// dt. It cross-checks the relay period reported by the tuner.
func DominantPeriod(data []float64, dt time.Duration) (time.Duration, error) {
	if len(data) < 4 {
		return 0, ErrTooShort
	}
	if dt <= 0 {
		return 0, errors.New("analysis: sample interval must be positive")
	}

	ps := PowerSpectrum(data)
	best := 0
	for k := 1; k < len(ps); k++ {
		if ps[k] > ps[best] || best == 0 {
			best = k
		}
	}
	if best == 0 || ps[best] == 0 {
		return 0, errors.New("analysis: no oscillation in series")
	}

	span := time.Duration(len(data)) * dt
	return span / time.Duration(best), nil
}
