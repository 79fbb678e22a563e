package core

import (
	"context"
)

// Algorithm evolves a population in place. Implementations are plug-ins:
// differential evolution, genetic algorithms, particle swarm and friends all
// live outside the engine.
//
// An Algorithm must not change the population's size or its problem binding.
// It may evaluate candidate vectors through the population's Evaluator,
// which transparently consults the evaluation caches.
type Algorithm interface {
	Name() string
	Evolve(ctx context.Context, pop *Population) error
}

// AlgorithmFunc adapts a plain function to the Algorithm interface, which is
// handy for tests and one-off heuristics.
type AlgorithmFunc struct {
	AlgoName string
	Fn       func(ctx context.Context, pop *Population) error
}

func (a AlgorithmFunc) Name() string {
	if a.AlgoName == "" {
		return "anonymous"
	}
	return a.AlgoName
}

func (a AlgorithmFunc) Evolve(ctx context.Context, pop *Population) error {
	return a.Fn(ctx, pop)
}
