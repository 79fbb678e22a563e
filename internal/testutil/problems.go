// Package testutil provides shared fixtures for engine tests: stub
// problems, scripted algorithms and inert topology policies.
package testutil

import (
	"math"

	"github.com/pelago/pelago/pkg/core"
)

// Sphere is the unconstrained sum-of-squares problem on [-5, 5]^dim with
// the optimum at the origin.
type Sphere struct {
	*core.BaseProblem
}

// NewSphere builds a Sphere of the given dimension. Panics on invalid
// dimensions so fixtures stay terse.
func NewSphere(dim int) *Sphere {
	base, err := core.NewBoxProblem("sphere", dim, -5, 5, 1)
	if err != nil {
		panic(err)
	}
	return &Sphere{BaseProblem: base}
}

func (p *Sphere) EvaluateFitness(x core.DecisionVector) (core.FitnessVector, error) {
	sum := 0.0
	for _, v := range x {
		sum += v * v
	}
	return core.FitnessVector{sum}, nil
}

// Rosenbrock is the classic banana-valley problem on [-2.048, 2.048]^dim,
// optimum at (1, ..., 1).
type Rosenbrock struct {
	*core.BaseProblem
}

func NewRosenbrock(dim int) *Rosenbrock {
	base, err := core.NewBoxProblem("rosenbrock", dim, -2.048, 2.048, 1)
	if err != nil {
		panic(err)
	}
	return &Rosenbrock{BaseProblem: base}
}

func (p *Rosenbrock) EvaluateFitness(x core.DecisionVector) (core.FitnessVector, error) {
	sum := 0.0
	for i := 0; i < len(x)-1; i++ {
		a := x[i+1] - x[i]*x[i]
		b := 1 - x[i]
		sum += 100*a*a + b*b
	}
	return core.FitnessVector{sum}, nil
}

// ConstrainedLinear minimizes x0 + x1 on [-10, 10]^2 subject to one
// equality (x0 == x1) and one inequality (x0 <= 1) constraint.
type ConstrainedLinear struct {
	*core.BaseProblem
}

func NewConstrainedLinear() *ConstrainedLinear {
	base, err := core.NewBaseProblem("constrained_linear",
		[]float64{-10, -10}, []float64{10, 10}, 0, 1, 2, 1, 1e-9)
	if err != nil {
		panic(err)
	}
	return &ConstrainedLinear{BaseProblem: base}
}

func (p *ConstrainedLinear) EvaluateFitness(x core.DecisionVector) (core.FitnessVector, error) {
	return core.FitnessVector{x[0] + x[1]}, nil
}

func (p *ConstrainedLinear) EvaluateConstraints(x core.DecisionVector) (core.ConstraintVector, error) {
	return core.ConstraintVector{x[0] - x[1], x[0] - 1}, nil
}

// NearOrigin reports whether every component of x is within tol of zero.
func NearOrigin(x core.DecisionVector, tol float64) bool {
	for _, v := range x {
		if math.Abs(v) > tol {
			return false
		}
	}
	return true
}
