package integrators

import "github.com/san-kum/galevo/internal/dynamo"

// RK4 is the classical fixed-step fourth order method. It has no error
// control and serves as a reference for the adaptive driver.
type RK4 struct {
	k1, k2, k3, k4 dynamo.State
	scratch        dynamo.State
	evals          uint64
}

func NewRK4() *RK4 {
	return &RK4{}
}

func (r *RK4) ensureScratch(n int) {
	if len(r.k1) != n {
		r.k1 = make(dynamo.State, n)
		r.k2 = make(dynamo.State, n)
		r.k3 = make(dynamo.State, n)
		r.k4 = make(dynamo.State, n)
		r.scratch = make(dynamo.State, n)
	}
}

// NumEvaluations returns the number of evaluator calls made so far.
func (r *RK4) NumEvaluations() uint64 { return r.evals }

func (r *RK4) Step(eval dynamo.Evaluator, x dynamo.State, t, dt float64) (dynamo.State, error) {
	n := len(x)
	r.ensureScratch(n)

	r.evals += 4
	if err := eval(t, x, r.k1); err != nil {
		return nil, err
	}

	for i := 0; i < n; i++ {
		r.scratch[i] = x[i] + dt*0.5*r.k1[i]
	}
	if err := eval(t+dt*0.5, r.scratch, r.k2); err != nil {
		return nil, err
	}

	for i := 0; i < n; i++ {
		r.scratch[i] = x[i] + dt*0.5*r.k2[i]
	}
	if err := eval(t+dt*0.5, r.scratch, r.k3); err != nil {
		return nil, err
	}

	for i := 0; i < n; i++ {
		r.scratch[i] = x[i] + dt*r.k3[i]
	}
	if err := eval(t+dt, r.scratch, r.k4); err != nil {
		return nil, err
	}

	result := make(dynamo.State, n)
	dt6 := dt / 6.0
	for i := 0; i < n; i++ {
		result[i] = x[i] + dt6*(r.k1[i]+2*r.k2[i]+2*r.k3[i]+r.k4[i])
	}

	return result, nil
}

// Integrate advances x from t over span using n fixed steps.
func (r *RK4) Integrate(eval dynamo.Evaluator, x dynamo.State, t, span float64, n int) (dynamo.State, error) {
	if n < 1 {
		n = 1
	}
	dt := span / float64(n)
	var err error
	for i := 0; i < n; i++ {
		x, err = r.Step(eval, x, t+float64(i)*dt, dt)
		if err != nil {
			return nil, err
		}
	}
	return x, nil
}
