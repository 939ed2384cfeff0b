// Package control provides the PID feedback controller.
//
// [PID] differentiates the measurement rather than the error, so setpoint changes do not
// kick the output, and folds Ki into the integral accumulator so gains can be retuned live.
// When the output saturates, the excess is taken back out of the integral (anti-windup).
//
// # Usage
//
//	pid := control.NewPID()
//	pid.SetGains(result.Gains)   // e.g. from autotune
//	pid.Setpoint = 60
//	_ = pid.SetOutputLimits(0, 100)
//	for {
//	    pv, _ := plant.Measure()
//	    out := pid.Compute(pv, clock.Now())
//	    _, _ = dynamo.SetOutput(plant, out)
//	}
//
// [PID.SetManualOutput] overrides the law; [PID.SetManualMode] with false hands control back.
package control
