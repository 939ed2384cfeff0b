package metrics

import "github.com/san-kum/relaytune/internal/dynamo"

// Metric scores a closed-loop run one sample at a time.
type Metric interface {
	Name() string
	Observe(s dynamo.Sample)
	Value() float64
	Reset()
}

// Standard returns the metrics reported for a step response.
func Standard(band float64) []Metric {
	return []Metric{NewIAE(), NewOvershoot(), NewControlEffort(), NewSettlingTime(band)}
}
