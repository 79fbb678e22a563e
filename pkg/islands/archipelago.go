package islands

import (
	"context"
	stderrors "errors"
	"math/rand"
	"sync"

	"github.com/sourcegraph/conc/pool"

	"github.com/pelago/pelago/pkg/config"
	"github.com/pelago/pelago/pkg/core"
	"github.com/pelago/pelago/pkg/errors"
	"github.com/pelago/pelago/pkg/logging"
	"github.com/pelago/pelago/pkg/rng"
	"github.com/pelago/pelago/pkg/topology"
)

// Archipelago owns a set of islands and the migration topology connecting
// them. Evolution fans out one asynchronous task per island; after all
// tasks complete, the migration phase moves individuals along the topology
// edges strictly in island index order, which keeps runs reproducible for a
// fixed seed.
type Archipelago struct {
	cfg    *config.Config
	svc    *rng.Service
	top    *topology.Topology
	logger *logging.Logger

	mu       sync.Mutex
	islands  []*Island
	evolving bool
}

// NewArchipelago builds an empty archipelago. A nil cfg selects the
// defaults; a nil svc creates a service seeded from cfg.Random.Seed (or
// time when the seed is zero); a nil top builds the topology named by
// cfg.Engine.Topology.
func NewArchipelago(cfg *config.Config, svc *rng.Service, top *topology.Topology) (*Archipelago, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger, err := logging.Configure(cfg.Logging.Level, cfg.Logging.File, cfg.Logging.Color)
	if err != nil {
		return nil, errors.Wrap(err, errors.InvalidInput, "failed to configure logging")
	}
	if svc == nil {
		if cfg.Random.Seed != 0 {
			svc = rng.NewWithSeed(cfg.Random.Seed)
		} else {
			svc = rng.New()
		}
	}
	if top == nil {
		policy, err := ConnectPolicyByName(cfg.Engine.Topology)
		if err != nil {
			return nil, err
		}
		top = topology.New(policy)
	}
	return &Archipelago{
		cfg:    cfg,
		svc:    svc,
		top:    top,
		logger: logger,
	}, nil
}

// New builds an archipelago with nIslands islands sharing one problem, each
// with its own population of popSize individuals. Populations are built
// concurrently, bounded by cfg.Engine.MaxConcurrent. algoFactory is called
// once per island index so islands can run distinct algorithm instances.
func New(cfg *config.Config, svc *rng.Service, prob core.Problem, algoFactory func(i int) core.Algorithm, nIslands, popSize int) (*Archipelago, error) {
	if nIslands <= 0 {
		return nil, errors.New(errors.InvalidInput, "archipelago needs at least one island")
	}
	arch, err := NewArchipelago(cfg, svc, nil)
	if err != nil {
		return nil, err
	}

	// Generators are drawn sequentially so construction stays deterministic
	// for a fixed seed regardless of scheduling.
	gens := make([]*rand.Rand, nIslands)
	for i := range gens {
		gens[i] = arch.svc.Generator()
	}

	pops := make([]*core.Population, nIslands)
	p := pool.New().WithErrors().WithMaxGoroutines(arch.cfg.Engine.MaxConcurrent)
	for i := 0; i < nIslands; i++ {
		i := i
		p.Go(func() error {
			eval := core.NewEvaluator(prob, arch.cfg.Cache.Capacity)
			pop, err := core.NewPopulation(eval, popSize, gens[i])
			if err != nil {
				return err
			}
			pops[i] = pop
			return nil
		})
	}
	if err := p.Wait(); err != nil {
		return nil, errors.Wrap(err, errors.EvolutionFailed, "archipelago construction failed")
	}

	for i, pop := range pops {
		isl, err := NewIsland(pop, algoFactory(i))
		if err != nil {
			return nil, err
		}
		if err := arch.PushIsland(isl); err != nil {
			return nil, err
		}
	}
	return arch, nil
}

// Push creates an island from a problem, algorithm and population size, and
// appends it to the archipelago.
func (a *Archipelago) Push(prob core.Problem, algo core.Algorithm, size int) error {
	eval := core.NewEvaluator(prob, a.cfg.Cache.Capacity)
	pop, err := core.NewPopulation(eval, size, a.svc.Generator())
	if err != nil {
		return err
	}
	isl, err := NewIsland(pop, algo)
	if err != nil {
		return err
	}
	return a.PushIsland(isl)
}

// PushIsland appends an existing island, assigning it the next index and
// wiring that index into the topology. The island's problem must be
// compatible with the resident islands' problem.
func (a *Archipelago) PushIsland(isl *Island) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.evolving {
		return errors.New(errors.EvolutionInProgress, "cannot add islands while evolution is in flight")
	}

	if len(a.islands) > 0 {
		resident := a.islands[0].Population().Problem()
		incoming := isl.Population().Problem()
		if !resident.IsCompatible(incoming) || resident.FitnessDimension() != incoming.FitnessDimension() {
			return errors.WithFields(
				errors.New(errors.IncompatibleProblems, "island problem is incompatible with the archipelago"),
				errors.Fields{"resident": resident.Name(), "incoming": incoming.Name()})
		}
	}

	idx := len(a.islands)
	if err := a.top.PushBack(idx); err != nil {
		return err
	}
	isl.index = idx
	a.islands = append(a.islands, isl)
	return nil
}

// Len returns the number of islands.
func (a *Archipelago) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.islands)
}

// Island returns the i-th island.
func (a *Archipelago) Island(i int) (*Island, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if i < 0 || i >= len(a.islands) {
		return nil, errors.WithFields(
			errors.New(errors.InvalidInput, "island index out of range"),
			errors.Fields{"index": i, "size": len(a.islands)})
	}
	return a.islands[i], nil
}

// Topology returns the migration topology.
func (a *Archipelago) Topology() *topology.Topology { return a.top }

// Evolve starts one asynchronous evolution task per island, in index order,
// and returns without blocking. Completion and migration happen in Join.
// Calling Evolve again before Join is an error.
func (a *Archipelago) Evolve(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.evolving {
		return errors.New(errors.EvolutionInProgress, "archipelago evolution already in flight")
	}

	for i, isl := range a.islands {
		if err := isl.Evolve(ctx, a.cfg.Engine.Rounds); err != nil {
			// Islands already started keep running; the next Join
			// collects them.
			a.evolving = i > 0
			return errors.WithFields(
				errors.Wrap(err, errors.EvolutionFailed, "failed to start island evolution"),
				errors.Fields{"island": i})
		}
	}
	a.evolving = len(a.islands) > 0
	return nil
}

// Join waits for every island in index order, then runs the migration
// phase. All island failures are aggregated; migration runs only when
// every island succeeded. Joining an idle archipelago is a no-op.
func (a *Archipelago) Join() error {
	a.mu.Lock()
	if !a.evolving {
		a.mu.Unlock()
		return nil
	}
	islands := a.islands
	a.mu.Unlock()

	var errs []error
	for i, isl := range islands {
		if err := isl.Join(); err != nil {
			errs = append(errs, errors.WithFields(
				errors.Wrap(err, errors.EvolutionFailed, "island evolution failed"),
				errors.Fields{"island": i}))
		}
	}

	a.mu.Lock()
	a.evolving = false
	a.mu.Unlock()

	if len(errs) > 0 {
		return errors.Wrap(stderrors.Join(errs...), errors.EvolutionFailed, "archipelago evolution failed")
	}
	return a.migrate()
}

// migrate moves individuals along the topology edges, strictly in island
// index order.
func (a *Archipelago) migrate() error {
	ctx := context.Background()
	for i, isl := range a.islands {
		neighbors, err := a.top.NeighborsOf(i)
		if err != nil {
			return errors.Wrap(err, errors.MigrationFailed, "topology lookup failed")
		}
		if len(neighbors) == 0 {
			continue
		}
		migrants, err := isl.SelectEmigrants(a.cfg.Engine.EmigrantCount)
		if err != nil {
			return err
		}
		for _, j := range neighbors {
			if err := a.islands[j].AcceptImmigrants(migrants); err != nil {
				return err
			}
			a.logger.Debug(ctx, "migrated %d individual(s) from island %d to island %d", len(migrants), i, j)
		}
	}
	return nil
}

// EvolveRounds runs n full evolve-and-join cycles, with one migration phase
// after each cycle.
func (a *Archipelago) EvolveRounds(ctx context.Context, n int) error {
	if n <= 0 {
		return errors.New(errors.InvalidInput, "cycle count must be positive")
	}
	for c := 0; c < n; c++ {
		if err := errors.CheckContext(ctx, "archipelago evolution"); err != nil {
			return err
		}
		if err := a.Evolve(ctx); err != nil {
			return err
		}
		if err := a.Join(); err != nil {
			return err
		}
	}
	return nil
}

// Best returns the best champion across all islands under the shared
// comparison rule.
func (a *Archipelago) Best() (core.Individual, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.islands) == 0 {
		return core.Individual{}, errors.New(errors.ResourceNotFound, "archipelago has no islands")
	}

	eval := a.islands[0].Population().Evaluator()
	best, err := a.islands[0].Population().Champion()
	if err != nil {
		return core.Individual{}, err
	}
	for _, isl := range a.islands[1:] {
		ch, err := isl.Population().Champion()
		if err != nil {
			return core.Individual{}, err
		}
		better, err := eval.CompareFC(ch.F, ch.C, best.F, best.C)
		if err != nil {
			return core.Individual{}, err
		}
		if better {
			best = ch
		}
	}
	return best, nil
}

// Close joins any outstanding evolution. Archipelagos must be closed (or
// joined) before being discarded so no task is left running.
func (a *Archipelago) Close() error {
	return a.Join()
}

// ConnectPolicyByName maps a configuration topology name to its policy.
func ConnectPolicyByName(name string) (topology.ConnectPolicy, error) {
	switch name {
	case "unconnected", "":
		return topology.Unconnected{}, nil
	case "ring":
		return topology.Ring{}, nil
	case "fully_connected":
		return topology.FullyConnected{}, nil
	}
	return nil, errors.WithFields(
		errors.New(errors.InvalidInput, "unknown topology"),
		errors.Fields{"topology": name})
}
