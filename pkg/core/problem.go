package core

import (
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/floats"

	"github.com/pelago/pelago/pkg/errors"
)

// Problem is the capability surface every optimization problem exposes to
// the engine. Concrete problems are plug-in implementations; the engine
// never depends on what the fitness computation actually does.
//
// EvaluateFitness and EvaluateConstraints are the raw, uncached compute
// paths. Populations never call them directly: evaluation goes through an
// Evaluator, which consults the per-problem caches first.
type Problem interface {
	// Name identifies the concrete problem kind. Two problems of the same
	// kind with different parameters may still be compatible for migration.
	Name() string

	Dimension() int
	IntegerDimension() int
	FitnessDimension() int
	ConstraintDimension() int
	InequalityConstraintDimension() int

	LowerBounds() []float64
	UpperBounds() []float64
	ConstraintTolerance() []float64

	EvaluateFitness(x DecisionVector) (FitnessVector, error)
	EvaluateConstraints(x DecisionVector) (ConstraintVector, error)

	// CompareFitness reports whether f1 is strictly better than f2.
	CompareFitness(f1, f2 FitnessVector) (bool, error)
	// CompareConstraints reports whether c1 is a strictly better constraint
	// vector than c2.
	CompareConstraints(c1, c2 ConstraintVector) (bool, error)

	// IsCompatible reports whether migration between this problem and other
	// is legal: same kind and agreement on global, integer and constraint
	// dimensions. Compatibility does not require identical parameters.
	IsCompatible(other Problem) bool
}

// BaseProblem carries the dimension bookkeeping, bounds handling and default
// comparison rules shared by concrete problems. Embed it and implement
// EvaluateFitness (EvaluateConstraints has a fill-with-zeroes default).
type BaseProblem struct {
	name string
	lb   []float64
	ub   []float64
	ni   int
	nf   int
	nc   int
	nic  int
	ctol []float64
}

// NewBaseProblem builds the shared problem state from explicit bounds.
// Validates that dimensions are coherent (n > 0, nf > 0, 0 <= ni <= n,
// 0 <= nic <= nc) and that every lower bound does not exceed the matching
// upper bound. tol fills the constraint tolerance vector; it must be
// non-negative. Bounds are normalized at construction: NaN bounds become
// [0,1], infinities are clamped to the largest finite values, and bounds on
// the integer suffix are rounded to the nearest integer.
func NewBaseProblem(name string, lb, ub []float64, ni, nf, nc, nic int, tol float64) (*BaseProblem, error) {
	n := len(lb)
	if n == 0 || len(ub) != n {
		return nil, errors.WithFields(
			errors.New(errors.InvalidInput, "invalid or inconsistent bounds dimensions"),
			errors.Fields{"lb": len(lb), "ub": len(ub)})
	}
	if nf <= 0 || ni < 0 || ni > n || nc < 0 || nic < 0 || nic > nc {
		return nil, errors.WithFields(
			errors.New(errors.InvalidInput, "invalid problem dimension(s)"),
			errors.Fields{"n": n, "ni": ni, "nf": nf, "nc": nc, "nic": nic})
	}
	if tol < 0 {
		return nil, errors.New(errors.InvalidInput, "constraints tolerance must be non-negative")
	}

	p := &BaseProblem{
		name: name,
		lb:   append([]float64(nil), lb...),
		ub:   append([]float64(nil), ub...),
		ni:   ni,
		nf:   nf,
		nc:   nc,
		nic:  nic,
		ctol: make([]float64, nc),
	}
	for i := range p.ctol {
		p.ctol[i] = tol
	}

	p.normalizeBounds()
	for i := range p.lb {
		if p.lb[i] > p.ub[i] {
			return nil, errors.WithFields(
				errors.New(errors.InvalidInput, "lower bound greater than upper bound"),
				errors.Fields{"index": i, "lb": p.lb[i], "ub": p.ub[i]})
		}
	}
	return p, nil
}

// NewBoxProblem builds the shared state for an unconstrained problem whose
// every component shares the same lower and upper bound.
func NewBoxProblem(name string, dim int, lower, upper float64, nf int) (*BaseProblem, error) {
	if dim <= 0 {
		return nil, errors.New(errors.InvalidInput, "problem dimension must be positive")
	}
	lb := make([]float64, dim)
	ub := make([]float64, dim)
	for i := 0; i < dim; i++ {
		lb[i] = lower
		ub[i] = upper
	}
	return NewBaseProblem(name, lb, ub, 0, nf, 0, 0, 0)
}

func (p *BaseProblem) Name() string                       { return p.name }
func (p *BaseProblem) Dimension() int                     { return len(p.lb) }
func (p *BaseProblem) IntegerDimension() int              { return p.ni }
func (p *BaseProblem) FitnessDimension() int              { return p.nf }
func (p *BaseProblem) ConstraintDimension() int           { return p.nc }
func (p *BaseProblem) InequalityConstraintDimension() int { return p.nic }

// LowerBounds returns a copy of the lower bounds vector.
func (p *BaseProblem) LowerBounds() []float64 {
	return append([]float64(nil), p.lb...)
}

// UpperBounds returns a copy of the upper bounds vector.
func (p *BaseProblem) UpperBounds() []float64 {
	return append([]float64(nil), p.ub...)
}

// ConstraintTolerance returns a copy of the per-constraint tolerance vector.
func (p *BaseProblem) ConstraintTolerance() []float64 {
	return append([]float64(nil), p.ctol...)
}

// SetConstraintTolerance replaces the tolerance vector. Equality-constraint
// tolerances must be non-negative.
func (p *BaseProblem) SetConstraintTolerance(tol []float64) error {
	if len(tol) != p.nc {
		return errors.New(errors.InvalidInput, "invalid constraints tolerance vector dimension")
	}
	for i := 0; i < p.nc-p.nic; i++ {
		if tol[i] < 0 {
			return errors.New(errors.InvalidInput, "constraints tolerance must be non-negative for equality constraints")
		}
	}
	p.ctol = append([]float64(nil), tol...)
	return nil
}

// EvaluateConstraints is the default constraint computation: every
// constraint is trivially satisfied. Problems with nc > 0 override it.
func (p *BaseProblem) EvaluateConstraints(x DecisionVector) (ConstraintVector, error) {
	if len(x) != p.Dimension() {
		return nil, errors.New(errors.InvalidInput, "invalid decision vector size during constraint testing")
	}
	return make(ConstraintVector, p.nc), nil
}

// CompareFitness implements Pareto dominance under minimization: f1 is
// better when every component is less than or equal to the corresponding
// component of f2 and at least one is strictly less.
func (p *BaseProblem) CompareFitness(f1, f2 FitnessVector) (bool, error) {
	if len(f1) != p.nf || len(f2) != p.nf {
		return false, errors.WithFields(
			errors.New(errors.InvalidInput, "invalid sizes for fitness vector(s) during comparison"),
			errors.Fields{"f1": len(f1), "f2": len(f2), "want": p.nf})
	}
	return ParetoDominates(f1, f2), nil
}

// ParetoDominates reports whether f1 dominates f2 under minimization.
func ParetoDominates(f1, f2 FitnessVector) bool {
	less, equal := 0, 0
	for i := range f1 {
		if f1[i] < f2[i] {
			less++
		}
		if f1[i] == f2[i] {
			equal++
		}
	}
	return less+equal == len(f1) && less > 0
}

// TestConstraint reports whether the i-th constraint of c is satisfied up to
// the configured tolerance. Equality constraints are satisfied when their
// absolute value does not exceed the tolerance, inequality constraints when
// their value does not exceed it.
func (p *BaseProblem) TestConstraint(c ConstraintVector, i int) bool {
	if i < p.nc-p.nic {
		return math.Abs(c[i]) <= p.ctol[i]
	}
	return c[i] <= p.ctol[i]
}

// Feasibility reports whether every constraint in c is satisfied.
func (p *BaseProblem) Feasibility(c ConstraintVector) (bool, error) {
	if len(c) != p.nc {
		return false, errors.New(errors.InvalidInput, "invalid size for constraint vector")
	}
	for i := 0; i < p.nc; i++ {
		if !p.TestConstraint(c, i) {
			return false, nil
		}
	}
	return true, nil
}

// CompareConstraints reports whether c1 is strictly better than c2: first by
// the number of satisfied constraints, ties broken by the smaller L2 norm of
// the constraint mismatches.
func (p *BaseProblem) CompareConstraints(c1, c2 ConstraintVector) (bool, error) {
	if len(c1) != p.nc || len(c2) != p.nc {
		return false, errors.New(errors.InvalidInput, "invalid size(s) for constraint vector(s)")
	}
	count1, count2 := 0, 0
	norm1, norm2 := 0.0, 0.0

	// Equality constraints always contribute their mismatch to the norm.
	for i := 0; i < p.nc-p.nic; i++ {
		if p.TestConstraint(c1, i) {
			count1++
		}
		if p.TestConstraint(c2, i) {
			count2++
		}
		norm1 += c1[i] * c1[i]
		norm2 += c2[i] * c2[i]
	}
	// Inequality constraints contribute only when violated.
	for i := p.nc - p.nic; i < p.nc; i++ {
		if p.TestConstraint(c1, i) {
			count1++
		} else {
			norm1 += c1[i] * c1[i]
		}
		if p.TestConstraint(c2, i) {
			count2++
		} else {
			norm2 += c2[i] * c2[i]
		}
	}

	if count1 != count2 {
		return count1 > count2, nil
	}
	return norm1 < norm2, nil
}

// IsCompatible follows the migration compatibility rule: same concrete kind
// and agreement on global, integer and constraint dimensions. Fitness
// dimension is deliberately not part of the rule here; migration recipients
// additionally require it to match before fitness vectors are reused.
func (p *BaseProblem) IsCompatible(other Problem) bool {
	if other == nil {
		return false
	}
	return p.name == other.Name() &&
		p.Dimension() == other.Dimension() &&
		p.ni == other.IntegerDimension() &&
		p.nc == other.ConstraintDimension() &&
		p.nic == other.InequalityConstraintDimension()
}

// VerifyX reports whether x is usable with this problem: correct dimension,
// every component within bounds, and the integer suffix actually integral.
func (p *BaseProblem) VerifyX(x DecisionVector) bool {
	if len(x) != p.Dimension() {
		return false
	}
	for i := range x {
		if x[i] < p.lb[i] || x[i] > p.ub[i] {
			return false
		}
		if i >= p.Dimension()-p.ni && roundToInt(x[i]) != x[i] {
			return false
		}
	}
	return true
}

// Diameter returns the space diagonal of the hyperrectangle defined by the
// problem bounds.
func (p *BaseProblem) Diameter() float64 {
	return floats.Distance(p.ub, p.lb, 2)
}

// String returns a human-readable dump of the problem: name, dimensions,
// bounds and tolerance.
func (p *BaseProblem) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Problem name: %s\n", p.name)
	fmt.Fprintf(&b, "\tGlobal dimension:\t\t\t%d\n", p.Dimension())
	fmt.Fprintf(&b, "\tInteger dimension:\t\t\t%d\n", p.ni)
	fmt.Fprintf(&b, "\tFitness dimension:\t\t\t%d\n", p.nf)
	fmt.Fprintf(&b, "\tConstraints dimension:\t\t\t%d\n", p.nc)
	fmt.Fprintf(&b, "\tInequality constraints dimension:\t%d\n", p.nic)
	fmt.Fprintf(&b, "\tLower bounds: %v\n", p.lb)
	fmt.Fprintf(&b, "\tUpper bounds: %v\n", p.ub)
	fmt.Fprintf(&b, "\tConstraints tolerance: %v\n", p.ctol)
	return b.String()
}

// normalizeBounds fixes NaN and infinite bounds and rounds the bounds of the
// integer suffix. Runs once at construction.
func (p *BaseProblem) normalizeBounds() {
	n := p.Dimension()
	for i := 0; i < n-p.ni; i++ {
		if math.IsNaN(p.lb[i]) || math.IsNaN(p.ub[i]) {
			p.lb[i] = 0
			p.ub[i] = 1
		}
		if math.IsInf(p.lb[i], 0) {
			p.lb[i] = math.Copysign(math.MaxFloat64, p.lb[i])
		}
		if math.IsInf(p.ub[i], 0) {
			p.ub[i] = math.Copysign(math.MaxFloat64, p.ub[i])
		}
	}
	for i := n - p.ni; i < n; i++ {
		p.lb[i] = roundToInt(p.lb[i])
		p.ub[i] = roundToInt(p.ub[i])
	}
}
