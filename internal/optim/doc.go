// Package optim refines relay-tuned gains by simulation.
//
// Relay rules give a starting point with a quarter-decay flavour. [GridSearch] scales the
// tuned gains by a grid of factors, runs each candidate against a simulated plant and keeps
// the one with the lowest metric, typically integrated absolute error.
package optim
