// Package pelago is a parallel global-optimization engine built around the
// island model: independent populations evolve concurrently on islands and
// periodically exchange their best individuals along a migration topology.
//
// The engine separates three concerns:
//   - Problems define the search space and the fitness/constraint
//     computations (pkg/core). Fitness and constraint evaluations are
//     memoized per problem through bounded exact-match caches (pkg/cache).
//   - Algorithms evolve a population in place and are pure plug-ins; the
//     engine only requires the Algorithm interface (pkg/core).
//   - The archipelago (pkg/islands) owns the islands and the directed
//     migration graph (pkg/topology), fans evolution out to one
//     asynchronous task per island and runs the migration phase in a
//     deterministic order after all islands complete.
//
// Randomness flows through a seeded generator factory (pkg/rng) so full
// runs are reproducible: a fixed seed yields identical archipelagos,
// populations and migration outcomes.
//
// A minimal run looks like:
//
//	cfg := config.DefaultConfig()
//	cfg.Engine.Topology = "ring"
//	cfg.Random.Seed = 42
//
//	arch, err := islands.New(cfg, nil, prob,
//		func(i int) core.Algorithm { return newAlgorithm() }, 8, 32)
//	if err != nil {
//		return err
//	}
//	defer arch.Close()
//
//	if err := arch.EvolveRounds(ctx, 100); err != nil {
//		return err
//	}
//	best, err := arch.Best()
package pelago
