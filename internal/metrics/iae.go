package metrics

import (
	"math"
	"time"

	"github.com/san-kum/relaytune/internal/dynamo"
)

// IAE integrates |setpoint - pv| over time with the rectangle rule, in unit-seconds.
type IAE struct {
	name    string
	sum     float64
	last    time.Duration
	lastErr float64
	started bool
}

func NewIAE() *IAE {
	return &IAE{name: "iae"}
}

func (m *IAE) Name() string { return m.name }

func (m *IAE) Observe(s dynamo.Sample) {
	e := math.Abs(s.Setpoint - s.PV)
	if m.started {
		m.sum += m.lastErr * (s.Elapsed - m.last).Seconds()
	}
	m.last = s.Elapsed
	m.lastErr = e
	m.started = true
}

func (m *IAE) Value() float64 { return m.sum }

func (m *IAE) Reset() {
	m.sum = 0
	m.last = 0
	m.lastErr = 0
	m.started = false
}
