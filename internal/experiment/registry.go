package experiment

import (
	"fmt"
	"sort"

	"github.com/san-kum/relaytune/internal/dynamo"
	"github.com/san-kum/relaytune/internal/integrators"
	"github.com/san-kum/relaytune/internal/physics"
)

type Registry struct {
	plants      map[string]func() *physics.Thermal
	integrators map[string]func() dynamo.Integrator
}

func NewRegistry() *Registry {
	r := &Registry{
		plants:      make(map[string]func() *physics.Thermal),
		integrators: make(map[string]func() dynamo.Integrator),
	}

	// Heating element, cavity air, sensor. Reads 20°C cold, about 2°C per percent of power.
	r.plants["oven"] = func() *physics.Thermal {
		return &physics.Thermal{Ambient: 20, Gain: 2, Taus: []float64{60, 30, 10}}
	}
	// Element, water, thermistor.
	r.plants["kettle"] = func() *physics.Thermal {
		return &physics.Thermal{Ambient: 15, Gain: 1.5, Taus: []float64{8, 4, 2}}
	}
	// Three equal two second lags at unit gain, Ku = 8.
	r.plants["lab"] = func() *physics.Thermal { return physics.NewThermal() }

	r.integrators["euler"] = func() dynamo.Integrator { return integrators.NewEuler() }
	r.integrators["rk4"] = func() dynamo.Integrator { return integrators.NewRK4() }

	return r
}

func (r *Registry) GetPlant(name string) (*physics.Thermal, error) {
	fn, ok := r.plants[name]
	if !ok {
		return nil, fmt.Errorf("%w: unknown plant: %s", dynamo.ErrInvalidArgument, name)
	}
	return fn(), nil
}

func (r *Registry) GetIntegrator(name string) (dynamo.Integrator, error) {
	fn, ok := r.integrators[name]
	if !ok {
		return nil, fmt.Errorf("%w: unknown integrator: %s", dynamo.ErrInvalidArgument, name)
	}
	return fn(), nil
}

func (r *Registry) ListPlants() []string {
	names := make([]string, 0, len(r.plants))
	for name := range r.plants {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
