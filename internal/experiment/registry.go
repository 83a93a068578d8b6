package experiment

import (
	"fmt"
	"sort"

	"github.com/san-kum/galevo/internal/cooling"
	"github.com/san-kum/galevo/internal/dynamo"
	"github.com/san-kum/galevo/internal/evolve"
	"github.com/san-kum/galevo/internal/integrators"
	"github.com/san-kum/galevo/internal/physics"
	"github.com/san-kum/galevo/internal/starformation"
)

// StarFormationLaw forms stars and splits cold gas into HI and H2.
type StarFormationLaw interface {
	physics.StarFormation
	evolve.GasPartition
}

type Registry struct {
	steppers      map[string]*integrators.Tableau
	cooling       map[string]func(cooling.Parameters) physics.GasCooling
	starFormation map[string]func(starformation.Parameters) StarFormationLaw
}

func NewRegistry() *Registry {
	r := &Registry{
		steppers:      make(map[string]*integrators.Tableau),
		cooling:       make(map[string]func(cooling.Parameters) physics.GasCooling),
		starFormation: make(map[string]func(starformation.Parameters) StarFormationLaw),
	}

	for name, tb := range integrators.Tableaus {
		r.steppers[name] = tb
	}

	r.cooling["exponential"] = func(p cooling.Parameters) physics.GasCooling { return cooling.NewExponential(p) }
	r.cooling["none"] = func(cooling.Parameters) physics.GasCooling { return nil }

	r.starFormation["molecular"] = func(p starformation.Parameters) StarFormationLaw {
		return starformation.NewMolecular(p)
	}

	return r
}

func (r *Registry) GetStepper(name string) (*integrators.Tableau, error) {
	tb, ok := r.steppers[name]
	if !ok {
		return nil, fmt.Errorf("%w: unknown stepper: %s", dynamo.ErrConfig, name)
	}
	return tb, nil
}

func (r *Registry) GetCooling(name string, p cooling.Parameters) (physics.GasCooling, error) {
	fn, ok := r.cooling[name]
	if !ok {
		return nil, fmt.Errorf("%w: unknown gas cooling model: %s", dynamo.ErrConfig, name)
	}
	return fn(p), nil
}

func (r *Registry) GetStarFormation(name string, p starformation.Parameters) (StarFormationLaw, error) {
	fn, ok := r.starFormation[name]
	if !ok {
		return nil, fmt.Errorf("%w: unknown star formation model: %s", dynamo.ErrConfig, name)
	}
	return fn(p), nil
}

func (r *Registry) ListSteppers() []string { return sortedKeys(r.steppers) }

func (r *Registry) ListCooling() []string { return sortedKeys(r.cooling) }

func (r *Registry) ListStarFormation() []string { return sortedKeys(r.starFormation) }

func sortedKeys[V any](m map[string]V) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
