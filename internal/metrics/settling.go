package metrics

import (
	"math"
	"time"

	"github.com/san-kum/relaytune/internal/dynamo"
)

// SettlingTime is the elapsed time after which the error stays within band (a fraction of
// the step size) for the rest of the run. It is -1 while the run has not settled.
type SettlingTime struct {
	name    string
	band    float64
	initial float64
	settled time.Duration
	inside  bool
	started bool
}

func NewSettlingTime(band float64) *SettlingTime {
	return &SettlingTime{
		name: "settling_time_s",
		band: band,
	}
}

func (m *SettlingTime) Name() string { return m.name }

func (m *SettlingTime) Observe(s dynamo.Sample) {
	if !m.started {
		m.initial = s.PV
		m.started = true
	}
	tol := m.band * math.Abs(s.Setpoint-m.initial)
	within := math.Abs(s.Setpoint-s.PV) <= tol
	if within && !m.inside {
		m.settled = s.Elapsed
	}
	m.inside = within
}

func (m *SettlingTime) Value() float64 {
	if !m.inside {
		return -1
	}
	return m.settled.Seconds()
}

func (m *SettlingTime) Reset() {
	m.initial = 0
	m.settled = 0
	m.inside = false
	m.started = false
}
