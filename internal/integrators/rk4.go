package integrators

import "github.com/san-kum/relaytune/internal/dynamo"

// RK4 is the classic fourth-order Runge-Kutta stepper. Scratch buffers are reused between
// steps, so an RK4 must not be shared between goroutines.
type RK4 struct {
	k       [4]dynamo.State
	scratch dynamo.State
}

func NewRK4() *RK4 {
	return &RK4{}
}

func (r *RK4) ensureScratch(n int) {
	if len(r.scratch) == n {
		return
	}
	for i := range r.k {
		r.k[i] = make(dynamo.State, n)
	}
	r.scratch = make(dynamo.State, n)
}

// stage evaluates the derivative at x + h*k and stores it in dst.
func (r *RK4) stage(dst dynamo.State, dyn dynamo.System, x, k dynamo.State, u dynamo.Control, t, h float64) {
	for i := range x {
		r.scratch[i] = x[i] + h*k[i]
	}
	copy(dst, dyn.Derive(r.scratch, u, t))
}

func (r *RK4) Step(dyn dynamo.System, x dynamo.State, u dynamo.Control, t, dt float64) dynamo.State {
	r.ensureScratch(len(x))
	k1, k2, k3, k4 := r.k[0], r.k[1], r.k[2], r.k[3]

	copy(k1, dyn.Derive(x, u, t))
	r.stage(k2, dyn, x, k1, u, t+dt/2, dt/2)
	r.stage(k3, dyn, x, k2, u, t+dt/2, dt/2)
	r.stage(k4, dyn, x, k3, u, t+dt, dt)

	result := make(dynamo.State, len(x))
	dt6 := dt / 6.0
	for i := range x {
		result[i] = x[i] + dt6*(k1[i]+2*k2[i]+2*k3[i]+k4[i])
	}
	return result
}
