// Package sim runs models from [physics] as if they were real processes.
//
// [Plant] integrates a model lazily: every Measure or Actuate first advances the state to
// the clock's current time with the last output held. Driven by a [dynamo.ManualClock] a
// full relay experiment runs in milliseconds; driven by [dynamo.SystemClock] it runs in
// real time.
//
// [Loop] closes a PID around any [dynamo.Plant] and scores the run with [metrics].
// [RunEnsemble] runs several independent loops concurrently, e.g. to compare PI and PID
// gains on the same process.
package sim
