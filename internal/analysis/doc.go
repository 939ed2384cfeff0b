// Package analysis provides frequency-domain checks on recorded loop traces.
//
// [DominantPeriod] finds the strongest oscillation in a sampled series. After a relay
// experiment it should land close to the ultimate period the tuner measured from peak
// timing:
//
//	p, err := analysis.DominantPeriod(res.Samples, tuner.SampleTime())
package analysis
