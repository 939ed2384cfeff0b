// Package physics provides plant models for offline tuning runs.
//
//   - [Thermal]: heater with N cascaded first-order lags (oven, kettle, hotplate)
//
// Models implement [dynamo.System] and are wrapped by sim.Plant to look like real hardware
// to the autotuner and the PID loop:
//
//	model := physics.NewThermal()
//	plant := sim.NewPlant(model, integrators.NewRK4(), clock, 0)
//	tuner := autotune.New(plant, clock)
package physics
