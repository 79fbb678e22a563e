// Package islands implements the island model: populations evolving in
// parallel on isolated islands, exchanging individuals through an
// archipelago's migration topology.
package islands

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc/panics"

	"github.com/pelago/pelago/pkg/core"
	"github.com/pelago/pelago/pkg/errors"
	"github.com/pelago/pelago/pkg/logging"
)

// Migrant is an individual in transit between islands, stamped with its
// origin. The problem reference lets the destination check compatibility
// and decide whether the carried evaluation results can be trusted.
type Migrant struct {
	Individual  core.Individual
	OriginIndex int
	OriginID    uuid.UUID
	Problem     core.Problem
}

// SelectionPolicy picks the individuals an island offers to its neighbors.
// Selection is non-destructive: the source population is never modified.
type SelectionPolicy interface {
	Name() string
	Select(pop *core.Population, k int) ([]core.Individual, error)
}

// ReplacementPolicy decides how incoming individuals enter the destination
// population. It must preserve the population size.
type ReplacementPolicy interface {
	Name() string
	Replace(pop *core.Population, incoming []core.Individual) error
}

// Island couples a population with an algorithm and runs evolution
// asynchronously. At most one evolution task is outstanding per island;
// starting a second one before Join is an error.
type Island struct {
	id          uuid.UUID
	index       int
	pop         *core.Population
	algo        core.Algorithm
	selection   SelectionPolicy
	replacement ReplacementPolicy
	logger      *logging.Logger

	mu      sync.Mutex
	running bool
	done    chan struct{}
	runErr  error
}

// IslandOption customizes island construction.
type IslandOption func(*Island)

// WithSelectionPolicy overrides the default champion selection.
func WithSelectionPolicy(p SelectionPolicy) IslandOption {
	return func(isl *Island) { isl.selection = p }
}

// WithReplacementPolicy overrides the default replace-worst policy.
func WithReplacementPolicy(p ReplacementPolicy) IslandOption {
	return func(isl *Island) { isl.replacement = p }
}

// NewIsland builds an island around an existing population.
func NewIsland(pop *core.Population, algo core.Algorithm, opts ...IslandOption) (*Island, error) {
	if pop == nil {
		return nil, errors.New(errors.InvalidInput, "island requires a population")
	}
	if algo == nil {
		return nil, errors.New(errors.InvalidInput, "island requires an algorithm")
	}
	isl := &Island{
		id:          uuid.New(),
		index:       -1,
		pop:         pop,
		algo:        algo,
		selection:   ChampionSelection{},
		replacement: ReplaceWorst{},
		logger:      logging.GetLogger(),
	}
	for _, opt := range opts {
		opt(isl)
	}
	return isl, nil
}

// ID returns the island's unique identity.
func (isl *Island) ID() uuid.UUID { return isl.id }

// Index returns the island's position in its archipelago, or -1 when the
// island is free-standing.
func (isl *Island) Index() int { return isl.index }

// Population returns the island's population. Callers must not mutate it
// while an evolution task is in flight.
func (isl *Island) Population() *core.Population { return isl.pop }

// Algorithm returns the algorithm driving this island.
func (isl *Island) Algorithm() core.Algorithm { return isl.algo }

// Evolve starts an asynchronous evolution task running the algorithm for
// the given number of rounds, strictly sequentially. It returns immediately;
// completion is observed through Join. A second Evolve before Join fails
// fast.
func (isl *Island) Evolve(ctx context.Context, rounds int) error {
	if rounds <= 0 {
		return errors.New(errors.InvalidInput, "evolution rounds must be positive")
	}

	isl.mu.Lock()
	if isl.running {
		isl.mu.Unlock()
		return errors.WithFields(
			errors.New(errors.EvolutionInProgress, "island already has an evolution task in flight"),
			errors.Fields{"island": isl.index})
	}
	done := make(chan struct{})
	isl.running = true
	isl.done = done
	isl.runErr = nil
	isl.mu.Unlock()

	ctx = logging.WithIslandIndex(ctx, isl.index)

	go func() {
		var err error
		recovered := panics.Try(func() {
			err = isl.run(ctx, rounds)
		})
		if recovered != nil {
			err = errors.WithFields(
				errors.Wrap(recovered.AsError(), errors.EvolutionFailed, "evolution task panicked"),
				errors.Fields{"island": isl.index, "algorithm": isl.algo.Name()})
		}

		isl.mu.Lock()
		isl.runErr = err
		isl.running = false
		isl.mu.Unlock()
		close(done)
	}()
	return nil
}

// run executes the rounds. Cancellation is honored between rounds, never
// mid-round.
func (isl *Island) run(ctx context.Context, rounds int) error {
	for r := 0; r < rounds; r++ {
		if err := errors.CheckContext(ctx, "island evolution"); err != nil {
			return err
		}
		isl.logger.Debug(ctx, "round %d/%d starting (algorithm %s)", r+1, rounds, isl.algo.Name())
		if err := isl.algo.Evolve(ctx, isl.pop); err != nil {
			return errors.WithFields(
				errors.Wrap(err, errors.EvolutionFailed, "algorithm failed"),
				errors.Fields{"island": isl.index, "round": r, "algorithm": isl.algo.Name()})
		}
	}
	return nil
}

// Join blocks until the outstanding evolution task (if any) completes and
// returns its error. Joining an idle island is a no-op.
func (isl *Island) Join() error {
	isl.mu.Lock()
	done := isl.done
	isl.mu.Unlock()
	if done == nil {
		return nil
	}
	<-done

	isl.mu.Lock()
	defer isl.mu.Unlock()
	return isl.runErr
}

// Busy reports whether an evolution task is in flight.
func (isl *Island) Busy() bool {
	isl.mu.Lock()
	defer isl.mu.Unlock()
	return isl.running
}

// SelectEmigrants returns copies of the individuals this island offers to a
// neighbor, stamped with the island's identity.
func (isl *Island) SelectEmigrants(k int) ([]Migrant, error) {
	if k <= 0 {
		return nil, errors.New(errors.InvalidInput, "emigrant count must be positive")
	}
	selected, err := isl.selection.Select(isl.pop, k)
	if err != nil {
		return nil, errors.WithFields(
			errors.Wrap(err, errors.MigrationFailed, "emigrant selection failed"),
			errors.Fields{"island": isl.index, "policy": isl.selection.Name()})
	}
	migrants := make([]Migrant, len(selected))
	for i, ind := range selected {
		migrants[i] = Migrant{
			Individual:  ind,
			OriginIndex: isl.index,
			OriginID:    isl.id,
			Problem:     isl.pop.Problem(),
		}
	}
	return migrants, nil
}

// AcceptImmigrants offers the migrants to the replacement policy. Every
// migrant is validated against the island's problem first; on any rejection
// the population is left untouched. Migrants from a different problem
// instance have their evaluation results dropped so the destination
// re-evaluates them under its own problem.
func (isl *Island) AcceptImmigrants(migrants []Migrant) error {
	if len(migrants) == 0 {
		return nil
	}
	prob := isl.pop.Problem()

	incoming := make([]core.Individual, len(migrants))
	for i, m := range migrants {
		if m.Problem != nil && m.Problem != prob {
			if !prob.IsCompatible(m.Problem) || prob.FitnessDimension() != m.Problem.FitnessDimension() {
				return errors.WithFields(
					errors.New(errors.IncompatibleProblems, "migrant problem is incompatible with destination"),
					errors.Fields{"island": isl.index, "origin": m.OriginIndex})
			}
		}
		ind := m.Individual.Clone()
		if m.Problem != prob {
			// Different instance: the carried fitness may be stale.
			ind.F = nil
			ind.C = nil
		}
		incoming[i] = ind
	}

	before := isl.pop.Len()
	if err := isl.replacement.Replace(isl.pop, incoming); err != nil {
		return errors.WithFields(
			errors.Wrap(err, errors.MigrationFailed, "immigrant replacement failed"),
			errors.Fields{"island": isl.index, "policy": isl.replacement.Name()})
	}
	if isl.pop.Len() != before {
		panic(fmt.Sprintf("replacement policy %s changed population size from %d to %d",
			isl.replacement.Name(), before, isl.pop.Len()))
	}
	return nil
}
