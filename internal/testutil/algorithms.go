package testutil

import (
	"context"
	"math/rand"
	"sync"

	"github.com/pelago/pelago/pkg/core"
)

// RecordingAlgorithm counts invocations without touching the population.
type RecordingAlgorithm struct {
	mu    sync.Mutex
	calls int
}

func (a *RecordingAlgorithm) Name() string { return "recording" }

func (a *RecordingAlgorithm) Evolve(ctx context.Context, pop *core.Population) error {
	a.mu.Lock()
	a.calls++
	a.mu.Unlock()
	return nil
}

// Calls returns the number of Evolve invocations so far.
func (a *RecordingAlgorithm) Calls() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.calls
}

// HalvingAlgorithm moves the best individual halfway toward the origin each
// round. On box problems centered on the origin it improves monotonically,
// which makes convergence assertions cheap.
type HalvingAlgorithm struct{}

func (HalvingAlgorithm) Name() string { return "halving" }

func (HalvingAlgorithm) Evolve(ctx context.Context, pop *core.Population) error {
	best, err := pop.BestIndex()
	if err != nil {
		return err
	}
	ind, err := pop.Get(best)
	if err != nil {
		return err
	}
	x := ind.X.Clone()
	for i := range x {
		x[i] /= 2
	}
	return pop.SetX(best, x)
}

// MutatingAlgorithm perturbs one random individual per round using its own
// generator. Deterministic for a fixed generator seed.
type MutatingAlgorithm struct {
	Gen   *rand.Rand
	Scale float64
}

func (a *MutatingAlgorithm) Name() string { return "mutating" }

func (a *MutatingAlgorithm) Evolve(ctx context.Context, pop *core.Population) error {
	prob := pop.Problem()
	lb, ub := prob.LowerBounds(), prob.UpperBounds()
	i := a.Gen.Intn(pop.Len())
	ind, err := pop.Get(i)
	if err != nil {
		return err
	}
	x := ind.X.Clone()
	for j := range x {
		x[j] += a.Scale * (a.Gen.Float64()*2 - 1)
		if x[j] < lb[j] {
			x[j] = lb[j]
		}
		if x[j] > ub[j] {
			x[j] = ub[j]
		}
	}
	return pop.SetX(i, x)
}

// FailingAlgorithm returns its error on every invocation.
type FailingAlgorithm struct {
	Err error
}

func (a *FailingAlgorithm) Name() string { return "failing" }

func (a *FailingAlgorithm) Evolve(ctx context.Context, pop *core.Population) error {
	return a.Err
}

// PanickingAlgorithm panics on every invocation.
type PanickingAlgorithm struct{}

func (PanickingAlgorithm) Name() string { return "panicking" }

func (PanickingAlgorithm) Evolve(ctx context.Context, pop *core.Population) error {
	panic("algorithm blew up")
}

// BlockingAlgorithm blocks until Release is closed, then succeeds. It
// signals entry on Started once per invocation.
type BlockingAlgorithm struct {
	Started chan struct{}
	Release chan struct{}
}

func NewBlockingAlgorithm() *BlockingAlgorithm {
	return &BlockingAlgorithm{
		Started: make(chan struct{}, 16),
		Release: make(chan struct{}),
	}
}

func (a *BlockingAlgorithm) Name() string { return "blocking" }

func (a *BlockingAlgorithm) Evolve(ctx context.Context, pop *core.Population) error {
	a.Started <- struct{}{}
	<-a.Release
	return nil
}
