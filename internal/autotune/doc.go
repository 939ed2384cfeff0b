// Package autotune discovers PID gains with a relay feedback experiment.
//
// The [Autotuner] first checks that the plant is at rest ([Autotuner.VerifyStability]),
// then switches the actuator between two levels around its starting value whenever the
// measurement leaves a noise band around the starting measurement. The resulting limit
// cycle is fed to a [peak.Detector]. When three successive peaks agree to within 5% of the
// observed swing, or after [MaxPeaks] peaks, the ultimate gain and period are
//
//	Ku = 4*(2*OutputStep) / (pi*(max-min))
//	Pu = time between the last two maxima
//
// and gains follow from [GainsFor]:
//
//	PID: Kp = 0.6*Ku, Ki = 1.2*Ku/Pu,  Kd = 0.075*Ku*Pu
//	PI:  Kp = 0.4*Ku, Ki = 0.48*Ku/Pu, Kd = 0
//
// # Usage
//
//	tuner := autotune.New(plant, dynamo.SystemClock{})
//	tuner.OutputStep = 20
//	tuner.NoiseBand = 0.2
//	tuner.SetLookback(5 * time.Second)
//	res, err := tuner.Tune(ctx)
//	if err != nil {
//	    return err
//	}
//	pid.SetGains(res.Gains)
//
// Tune blocks for real time (the stability check alone takes 100s) and has no timeout of its
// own; run it on its own goroutine and bound it with the context.
package autotune
