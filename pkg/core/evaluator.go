package core

import (
	"math"
	"sync/atomic"

	"github.com/pelago/pelago/pkg/cache"
	"github.com/pelago/pelago/pkg/errors"
)

// Evaluator is the cached evaluation facade for one Problem instance. It
// owns the fitness and constraint memoization caches, which are independent
// of each other, plus the evaluation counters. It lives exactly as long as
// the problem it wraps, and every population evaluation goes through it.
type Evaluator struct {
	prob   Problem
	fcache *cache.EvalCache
	ccache *cache.EvalCache

	// Cached problem facts, so the hot comparison path does not re-query
	// (and re-copy) tolerance vectors.
	nc   int
	nic  int
	ctol []float64

	fevals uint64
	cevals uint64
}

// NewEvaluator wraps prob with evaluation caches of the given capacity
// (non-positive capacity selects cache.DefaultCapacity).
func NewEvaluator(prob Problem, capacity int) *Evaluator {
	return &Evaluator{
		prob:   prob,
		fcache: cache.New(capacity, prob.Dimension(), prob.FitnessDimension()),
		ccache: cache.New(capacity, prob.Dimension(), prob.ConstraintDimension()),
		nc:     prob.ConstraintDimension(),
		nic:    prob.InequalityConstraintDimension(),
		ctol:   prob.ConstraintTolerance(),
	}
}

// Problem returns the wrapped problem.
func (e *Evaluator) Problem() Problem { return e.prob }

// Fitness returns the fitness vector for x, consulting the cache first. The
// evaluation counter is incremented only when the raw compute path runs.
func (e *Evaluator) Fitness(x DecisionVector) (FitnessVector, error) {
	out, hit, err := e.fcache.LookupOrCompute(x, func(x []float64) ([]float64, error) {
		f, err := e.prob.EvaluateFitness(x)
		return f, err
	})
	if err != nil {
		return nil, err
	}
	if !hit {
		atomic.AddUint64(&e.fevals, 1)
	}
	return FitnessVector(out), nil
}

// Constraints returns the constraint vector for x. Problems without
// constraints short-circuit to an empty vector with no compute call and no
// counter increment.
func (e *Evaluator) Constraints(x DecisionVector) (ConstraintVector, error) {
	if e.nc == 0 {
		if len(x) != e.prob.Dimension() {
			return nil, errors.New(errors.InvalidInput, "invalid decision vector size during constraint testing")
		}
		return ConstraintVector{}, nil
	}
	out, hit, err := e.ccache.LookupOrCompute(x, func(x []float64) ([]float64, error) {
		c, err := e.prob.EvaluateConstraints(x)
		return c, err
	})
	if err != nil {
		return nil, err
	}
	if !hit {
		atomic.AddUint64(&e.cevals, 1)
	}
	return ConstraintVector(out), nil
}

// Fevals returns the number of raw fitness evaluations performed so far.
// Queryable at any time without side effects.
func (e *Evaluator) Fevals() uint64 { return atomic.LoadUint64(&e.fevals) }

// Cevals returns the number of raw constraint evaluations performed so far.
func (e *Evaluator) Cevals() uint64 { return atomic.LoadUint64(&e.cevals) }

// ResetCaches drops all memoized results. Call when the problem's internal
// state changes in a way that invalidates previous evaluations.
func (e *Evaluator) ResetCaches() {
	e.fcache.Reset()
	e.ccache.Reset()
}

// testConstraint mirrors the problem's satisfaction rule using the cached
// tolerance vector.
func (e *Evaluator) testConstraint(c ConstraintVector, i int) bool {
	if i < e.nc-e.nic {
		return math.Abs(c[i]) <= e.ctol[i]
	}
	return c[i] <= e.ctol[i]
}

// FeasibleC reports whether every constraint in c is satisfied.
func (e *Evaluator) FeasibleC(c ConstraintVector) (bool, error) {
	if len(c) != e.nc {
		return false, errors.New(errors.InvalidInput, "invalid size for constraint vector")
	}
	for i := 0; i < e.nc; i++ {
		if !e.testConstraint(c, i) {
			return false, nil
		}
	}
	return true, nil
}

// FeasibleX evaluates x's constraints and tests them.
func (e *Evaluator) FeasibleX(x DecisionVector) (bool, error) {
	c, err := e.Constraints(x)
	if err != nil {
		return false, err
	}
	return e.FeasibleC(c)
}

// CompareFC is the combined fitness/constraint comparison: a feasible pair
// beats an infeasible one; two feasible pairs compare by fitness; two
// infeasible pairs compare by constraints.
func (e *Evaluator) CompareFC(f1 FitnessVector, c1 ConstraintVector, f2 FitnessVector, c2 ConstraintVector) (bool, error) {
	if e.nc == 0 {
		return e.prob.CompareFitness(f1, f2)
	}
	feas1, err := e.FeasibleC(c1)
	if err != nil {
		return false, err
	}
	feas2, err := e.FeasibleC(c2)
	if err != nil {
		return false, err
	}
	if feas1 != feas2 {
		return feas1, nil
	}
	if feas1 {
		return e.prob.CompareFitness(f1, f2)
	}
	return e.prob.CompareConstraints(c1, c2)
}

// CompareX evaluates both decision vectors (through the caches) and reports
// whether x1 is strictly better than x2.
func (e *Evaluator) CompareX(x1, x2 DecisionVector) (bool, error) {
	f1, err := e.Fitness(x1)
	if err != nil {
		return false, err
	}
	f2, err := e.Fitness(x2)
	if err != nil {
		return false, err
	}
	c1, err := e.Constraints(x1)
	if err != nil {
		return false, err
	}
	c2, err := e.Constraints(x2)
	if err != nil {
		return false, err
	}
	return e.CompareFC(f1, c1, f2, c2)
}

// EvalCounters bundles the two counters for logging.
type EvalCounters struct {
	Fevals uint64
	Cevals uint64
}

// Counters returns a snapshot of both evaluation counters.
func (e *Evaluator) Counters() EvalCounters {
	return EvalCounters{Fevals: e.Fevals(), Cevals: e.Cevals()}
}
