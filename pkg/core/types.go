package core

import (
	"math"
)

// DecisionVector is a candidate solution: an ordered sequence of reals whose
// length equals the problem dimension. A trailing suffix of length equal to
// the problem's integer dimension is integer-constrained: each such
// component must equal its own rounded value.
type DecisionVector []float64

// FitnessVector holds the objective values computed for a decision vector.
type FitnessVector []float64

// ConstraintVector holds constraint values: the leading part are equality
// constraints (zero when satisfied), the trailing part inequality
// constraints (non-positive when satisfied).
type ConstraintVector []float64

// Clone returns an independent copy.
func (v DecisionVector) Clone() DecisionVector {
	out := make(DecisionVector, len(v))
	copy(out, v)
	return out
}

// Clone returns an independent copy.
func (v FitnessVector) Clone() FitnessVector {
	out := make(FitnessVector, len(v))
	copy(out, v)
	return out
}

// Clone returns an independent copy.
func (v ConstraintVector) Clone() ConstraintVector {
	out := make(ConstraintVector, len(v))
	copy(out, v)
	return out
}

// Individual couples a decision vector with its velocity (used by
// swarm-style algorithms) and the cached evaluation results.
type Individual struct {
	X DecisionVector
	V []float64
	F FitnessVector
	C ConstraintVector
}

// Clone returns a deep copy of the individual.
func (ind Individual) Clone() Individual {
	out := Individual{
		X: ind.X.Clone(),
		F: ind.F.Clone(),
		C: ind.C.Clone(),
	}
	out.V = make([]float64, len(ind.V))
	copy(out.V, ind.V)
	return out
}

// roundToInt rounds half away from zero, matching the convention used for
// integer-constrained components.
func roundToInt(v float64) float64 {
	return math.Round(v)
}
