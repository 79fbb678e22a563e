package core

import (
	"context"
	"fmt"
	"math/rand"
	"strings"

	"github.com/pelago/pelago/pkg/errors"
	"github.com/pelago/pelago/pkg/logging"
)

// Population is an ordered, fixed-size collection of individuals belonging
// to one problem. It owns the problem's Evaluator and a cached champion,
// the best individual seen so far under the problem's comparison rule.
//
// A population is never resized after construction. It is mutated only by
// the owning island's algorithm during evolution and by the migration step;
// neither path runs concurrently with the other.
type Population struct {
	eval        *Evaluator
	individuals []Individual
	champion    Individual
	hasChampion bool
}

// NewPopulation creates size individuals drawn uniformly at random within
// the problem bounds (the integer suffix is rounded), evaluates each and
// records the champion. gen is consumed during construction only; the
// population keeps no reference to it.
func NewPopulation(eval *Evaluator, size int, gen *rand.Rand) (*Population, error) {
	if size <= 0 {
		return nil, errors.New(errors.InvalidInput, "population size must be positive")
	}
	prob := eval.Problem()
	lb, ub := prob.LowerBounds(), prob.UpperBounds()
	n := prob.Dimension()
	ni := prob.IntegerDimension()

	pop := &Population{
		eval:        eval,
		individuals: make([]Individual, size),
	}

	for i := 0; i < size; i++ {
		x := make(DecisionVector, n)
		v := make([]float64, n)
		for j := 0; j < n; j++ {
			width := ub[j] - lb[j]
			x[j] = lb[j] + gen.Float64()*width
			if j >= n-ni {
				x[j] = roundToInt(x[j])
			}
			v[j] = -width + gen.Float64()*2*width
		}
		pop.individuals[i] = Individual{X: x, V: v}
		if err := pop.evaluate(i); err != nil {
			return nil, err
		}
	}
	return pop, nil
}

// Len returns the number of individuals.
func (p *Population) Len() int { return len(p.individuals) }

// Evaluator returns the cached evaluation facade owned by this population.
func (p *Population) Evaluator() *Evaluator { return p.eval }

// Problem returns the owning problem.
func (p *Population) Problem() Problem { return p.eval.Problem() }

// Get returns a copy of the i-th individual.
func (p *Population) Get(i int) (Individual, error) {
	if err := p.checkIndex(i); err != nil {
		return Individual{}, err
	}
	return p.individuals[i].Clone(), nil
}

// SetX replaces the decision vector of the i-th individual. The vector is
// verified against the problem (correct dimension, within bounds, integral
// integer suffix) and never silently clamped. The individual is
// re-evaluated and the champion updated.
func (p *Population) SetX(i int, x DecisionVector) error {
	if err := p.checkIndex(i); err != nil {
		return err
	}
	if err := p.verifyX(x); err != nil {
		return err
	}
	p.individuals[i].X = x.Clone()
	return p.evaluate(i)
}

// SetV replaces the velocity vector of the i-th individual.
func (p *Population) SetV(i int, v []float64) error {
	if err := p.checkIndex(i); err != nil {
		return err
	}
	if len(v) != p.Problem().Dimension() {
		return errors.WithFields(
			errors.New(errors.InvalidInput, "invalid velocity vector size"),
			errors.Fields{"got": len(v), "want": p.Problem().Dimension()})
	}
	p.individuals[i].V = append([]float64(nil), v...)
	return nil
}

// Inject replaces the i-th individual wholesale. The decision vector is
// verified like in SetX. When the incoming fitness and constraint vectors
// carry the problem's dimensions they are trusted as-is (migration between
// identical problems reuses source-side evaluations); otherwise the
// individual is re-evaluated.
func (p *Population) Inject(i int, ind Individual) error {
	if err := p.checkIndex(i); err != nil {
		return err
	}
	if err := p.verifyX(ind.X); err != nil {
		return err
	}
	prob := p.Problem()
	clone := ind.Clone()
	if len(clone.V) != prob.Dimension() {
		clone.V = make([]float64, prob.Dimension())
	}
	p.individuals[i] = clone
	if len(clone.F) != prob.FitnessDimension() || len(clone.C) != prob.ConstraintDimension() {
		return p.evaluate(i)
	}
	p.updateChampion(p.individuals[i])
	return nil
}

// Champion returns a copy of the best-so-far individual.
func (p *Population) Champion() (Individual, error) {
	if !p.hasChampion {
		return Individual{}, errors.New(errors.ResourceNotFound, "population has no champion")
	}
	return p.champion.Clone(), nil
}

// BestIndex returns the index of the best current individual. Ties are
// broken by population order (the earliest wins).
func (p *Population) BestIndex() (int, error) {
	best := 0
	for i := 1; i < len(p.individuals); i++ {
		better, err := p.compare(i, best)
		if err != nil {
			return 0, err
		}
		if better {
			best = i
		}
	}
	return best, nil
}

// WorstIndex returns the index of the worst current individual. Ties are
// broken by population order (the earliest wins).
func (p *Population) WorstIndex() (int, error) {
	worst := 0
	for i := 1; i < len(p.individuals); i++ {
		// i is worse than the current worst when the current worst is
		// strictly better than i.
		better, err := p.compare(worst, i)
		if err != nil {
			return 0, err
		}
		if better {
			worst = i
		}
	}
	return worst, nil
}

// RankedIndices returns all indices ordered best to worst under the
// problem's comparison rule; incomparable pairs keep their population order.
func (p *Population) RankedIndices() ([]int, error) {
	idx := make([]int, len(p.individuals))
	for i := range idx {
		idx[i] = i
	}
	var cmpErr error
	// Stable insertion keeps population order among incomparable pairs.
	for i := 1; i < len(idx); i++ {
		for j := i; j > 0; j-- {
			better, err := p.compare(idx[j], idx[j-1])
			if err != nil {
				cmpErr = err
				break
			}
			if !better {
				break
			}
			idx[j], idx[j-1] = idx[j-1], idx[j]
		}
		if cmpErr != nil {
			return nil, cmpErr
		}
	}
	return idx, nil
}

// String returns a human-readable dump of the population.
func (p *Population) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Population size: %d\n", len(p.individuals))
	for i, ind := range p.individuals {
		fmt.Fprintf(&b, "\t#%d x=%v f=%v c=%v\n", i, ind.X, ind.F, ind.C)
	}
	if p.hasChampion {
		fmt.Fprintf(&b, "Champion: x=%v f=%v\n", p.champion.X, p.champion.F)
	}
	return b.String()
}

func (p *Population) checkIndex(i int) error {
	if i < 0 || i >= len(p.individuals) {
		return errors.WithFields(
			errors.New(errors.InvalidInput, "individual index out of range"),
			errors.Fields{"index": i, "size": len(p.individuals)})
	}
	return nil
}

// verifyX rejects vectors the problem cannot host. Verification, not
// clamping: out-of-bounds values are an error.
func (p *Population) verifyX(x DecisionVector) error {
	prob := p.Problem()
	if len(x) != prob.Dimension() {
		return errors.WithFields(
			errors.New(errors.InvalidInput, "invalid decision vector size"),
			errors.Fields{"got": len(x), "want": prob.Dimension()})
	}
	lb, ub := prob.LowerBounds(), prob.UpperBounds()
	for j := range x {
		if x[j] < lb[j] || x[j] > ub[j] {
			return errors.WithFields(
				errors.New(errors.InvalidInput, "decision vector outside problem bounds"),
				errors.Fields{"component": j, "value": x[j], "lb": lb[j], "ub": ub[j]})
		}
		if j >= prob.Dimension()-prob.IntegerDimension() && roundToInt(x[j]) != x[j] {
			return errors.WithFields(
				errors.New(errors.InvalidInput, "integer-constrained component is not integral"),
				errors.Fields{"component": j, "value": x[j]})
		}
	}
	return nil
}

// evaluate computes fitness and constraints for the i-th individual through
// the cached evaluator and refreshes the champion.
func (p *Population) evaluate(i int) error {
	ind := &p.individuals[i]
	f, err := p.eval.Fitness(ind.X)
	if err != nil {
		return err
	}
	c, err := p.eval.Constraints(ind.X)
	if err != nil {
		return err
	}
	ind.F = f
	ind.C = c
	p.updateChampion(*ind)
	return nil
}

// updateChampion promotes ind to champion when it strictly beats the current
// one. The champion only ever improves. Evaluated individuals always carry
// well-dimensioned vectors, so a comparison failure here is a bug; it is
// logged and the incumbent kept.
func (p *Population) updateChampion(ind Individual) {
	if !p.hasChampion {
		p.champion = ind.Clone()
		p.hasChampion = true
		return
	}
	better, err := p.eval.CompareFC(ind.F, ind.C, p.champion.F, p.champion.C)
	if err != nil {
		logging.GetLogger().Error(context.Background(), "champion comparison failed: %v", err)
		return
	}
	if better {
		p.champion = ind.Clone()
	}
}

// compare reports whether individual i is strictly better than individual j
// using their stored evaluation results.
func (p *Population) compare(i, j int) (bool, error) {
	a, b := p.individuals[i], p.individuals[j]
	return p.eval.CompareFC(a.F, a.C, b.F, b.C)
}
