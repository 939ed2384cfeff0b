// Package dynamo provides the primitives shared by the controller, the peak detector and
// the autotuner.
//
//   - [Plant]: the measured/actuated process (hardware or simulation)
//   - [Clock]: monotonic time source; [SystemClock], [ManualClock], [ScaledClock]
//   - [Observer]: receives a [Sample] for every loop iteration
//   - [System], [Integrator]: ODE primitives used by simulated plants
//
// # Errors
//
// Failures are reported with the sentinels [ErrInvalidArgument], [ErrNotStable],
// [ErrUnavailable] and [ErrCanceled]; match them with errors.Is. Stability failures are
// returned as *[NotStableError].
//
// # Thread Safety
//
// Plants, controllers and tuners are single-owner and NOT thread-safe. Only the clocks may
// be shared between goroutines.
package dynamo
