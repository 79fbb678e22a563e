package islands

import (
	"github.com/pelago/pelago/pkg/core"
)

// ChampionSelection offers the best-so-far individual of the population.
// It always selects exactly one emigrant; the champion is the strongest
// candidate an island can offer, so k only caps the selection.
type ChampionSelection struct{}

func (ChampionSelection) Name() string { return "champion" }

func (ChampionSelection) Select(pop *core.Population, k int) ([]core.Individual, error) {
	ch, err := pop.Champion()
	if err != nil {
		return nil, err
	}
	return []core.Individual{ch}, nil
}

// BestSelection offers the k best current individuals, ranked under the
// population's comparison rule. k is capped at the population size.
type BestSelection struct{}

func (BestSelection) Name() string { return "best" }

func (BestSelection) Select(pop *core.Population, k int) ([]core.Individual, error) {
	ranked, err := pop.RankedIndices()
	if err != nil {
		return nil, err
	}
	if k > len(ranked) {
		k = len(ranked)
	}
	out := make([]core.Individual, 0, k)
	for _, idx := range ranked[:k] {
		ind, err := pop.Get(idx)
		if err != nil {
			return nil, err
		}
		out = append(out, ind)
	}
	return out, nil
}

// ReplaceWorst injects each incoming individual over the current worst, but
// only when the incomer is strictly better. Ties keep the resident, and the
// population size never changes.
type ReplaceWorst struct{}

func (ReplaceWorst) Name() string { return "replace_worst" }

func (ReplaceWorst) Replace(pop *core.Population, incoming []core.Individual) error {
	eval := pop.Evaluator()
	prob := pop.Problem()

	for _, ind := range incoming {
		if len(ind.F) != prob.FitnessDimension() || len(ind.C) != prob.ConstraintDimension() {
			f, err := eval.Fitness(ind.X)
			if err != nil {
				return err
			}
			c, err := eval.Constraints(ind.X)
			if err != nil {
				return err
			}
			ind.F, ind.C = f, c
		}

		worst, err := pop.WorstIndex()
		if err != nil {
			return err
		}
		resident, err := pop.Get(worst)
		if err != nil {
			return err
		}
		better, err := eval.CompareFC(ind.F, ind.C, resident.F, resident.C)
		if err != nil {
			return err
		}
		if !better {
			continue
		}
		if err := pop.Inject(worst, ind); err != nil {
			return err
		}
	}
	return nil
}
