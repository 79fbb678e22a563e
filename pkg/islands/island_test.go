package islands

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pelago/pelago/internal/testutil"
	"github.com/pelago/pelago/pkg/core"
	"github.com/pelago/pelago/pkg/errors"
)

func newSpherePopulation(t *testing.T, size int, seed int64) *core.Population {
	t.Helper()
	eval := core.NewEvaluator(testutil.NewSphere(2), 0)
	pop, err := core.NewPopulation(eval, size, rand.New(rand.NewSource(seed)))
	require.NoError(t, err)
	return pop
}

func TestNewIslandValidation(t *testing.T) {
	pop := newSpherePopulation(t, 3, 1)

	_, err := NewIsland(nil, &testutil.RecordingAlgorithm{})
	require.Error(t, err)
	assert.Equal(t, errors.InvalidInput, errors.CodeOf(err))

	_, err = NewIsland(pop, nil)
	require.Error(t, err)
	assert.Equal(t, errors.InvalidInput, errors.CodeOf(err))

	isl, err := NewIsland(pop, &testutil.RecordingAlgorithm{})
	require.NoError(t, err)
	assert.NotEqual(t, isl.ID().String(), "00000000-0000-0000-0000-000000000000")
	assert.Equal(t, -1, isl.Index(), "free-standing islands carry no archipelago index")
}

func TestIslandEvolveRunsRounds(t *testing.T) {
	algo := &testutil.RecordingAlgorithm{}
	isl, err := NewIsland(newSpherePopulation(t, 3, 1), algo)
	require.NoError(t, err)

	require.NoError(t, isl.Evolve(context.Background(), 5))
	require.NoError(t, isl.Join())
	assert.Equal(t, 5, algo.Calls())

	// The island is reusable after Join.
	require.NoError(t, isl.Evolve(context.Background(), 2))
	require.NoError(t, isl.Join())
	assert.Equal(t, 7, algo.Calls())
}

func TestIslandEvolveRejectsNonPositiveRounds(t *testing.T) {
	isl, err := NewIsland(newSpherePopulation(t, 3, 1), &testutil.RecordingAlgorithm{})
	require.NoError(t, err)

	err = isl.Evolve(context.Background(), 0)
	require.Error(t, err)
	assert.Equal(t, errors.InvalidInput, errors.CodeOf(err))
}

func TestIslandSecondEvolveFailsFast(t *testing.T) {
	algo := testutil.NewBlockingAlgorithm()
	isl, err := NewIsland(newSpherePopulation(t, 3, 1), algo)
	require.NoError(t, err)

	require.NoError(t, isl.Evolve(context.Background(), 1))
	<-algo.Started
	assert.True(t, isl.Busy())

	err = isl.Evolve(context.Background(), 1)
	require.Error(t, err)
	assert.Equal(t, errors.EvolutionInProgress, errors.CodeOf(err))

	close(algo.Release)
	require.NoError(t, isl.Join())
	assert.False(t, isl.Busy())
}

func TestIslandJoinIdleIsNoop(t *testing.T) {
	isl, err := NewIsland(newSpherePopulation(t, 3, 1), &testutil.RecordingAlgorithm{})
	require.NoError(t, err)
	require.NoError(t, isl.Join())
}

func TestIslandAlgorithmErrorSurfacesInJoin(t *testing.T) {
	boom := errors.New(errors.Unknown, "boom")
	isl, err := NewIsland(newSpherePopulation(t, 3, 1), &testutil.FailingAlgorithm{Err: boom})
	require.NoError(t, err)

	require.NoError(t, isl.Evolve(context.Background(), 3))
	err = isl.Join()
	require.Error(t, err)
	assert.Equal(t, errors.EvolutionFailed, errors.CodeOf(err))
}

func TestIslandPanicIsCaptured(t *testing.T) {
	isl, err := NewIsland(newSpherePopulation(t, 3, 1), testutil.PanickingAlgorithm{})
	require.NoError(t, err)

	require.NoError(t, isl.Evolve(context.Background(), 1))
	err = isl.Join()
	require.Error(t, err)
	assert.Equal(t, errors.EvolutionFailed, errors.CodeOf(err))
	assert.Contains(t, err.Error(), "panicked")
	assert.False(t, isl.Busy(), "a panicking task must still release the island")
}

func TestIslandCancellationBetweenRounds(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	rounds := 0
	algo := core.AlgorithmFunc{AlgoName: "cancel-after-one", Fn: func(ctx context.Context, pop *core.Population) error {
		rounds++
		cancel()
		return nil
	}}

	isl, err := NewIsland(newSpherePopulation(t, 3, 1), algo)
	require.NoError(t, err)

	require.NoError(t, isl.Evolve(ctx, 10))
	err = isl.Join()
	require.Error(t, err)
	assert.Equal(t, errors.Canceled, errors.CodeOf(err))
	assert.Equal(t, 1, rounds, "the running round completes; later rounds never start")
}

func TestSelectEmigrantsDefaultChampion(t *testing.T) {
	pop := newSpherePopulation(t, 4, 1)
	require.NoError(t, pop.SetX(2, core.DecisionVector{0, 0}))

	isl, err := NewIsland(pop, &testutil.RecordingAlgorithm{})
	require.NoError(t, err)

	before := pop.Len()
	migrants, err := isl.SelectEmigrants(1)
	require.NoError(t, err)
	require.Len(t, migrants, 1)
	assert.Equal(t, core.DecisionVector{0, 0}, migrants[0].Individual.X)
	assert.Equal(t, isl.ID(), migrants[0].OriginID)
	assert.Equal(t, pop.Len(), before, "selection must not shrink the population")

	_, err = isl.SelectEmigrants(0)
	require.Error(t, err)
	assert.Equal(t, errors.InvalidInput, errors.CodeOf(err))
}

func TestBestSelectionPolicy(t *testing.T) {
	pop := newSpherePopulation(t, 4, 1)
	require.NoError(t, pop.SetX(0, core.DecisionVector{3, 3}))
	require.NoError(t, pop.SetX(1, core.DecisionVector{0, 0}))
	require.NoError(t, pop.SetX(2, core.DecisionVector{1, 1}))
	require.NoError(t, pop.SetX(3, core.DecisionVector{2, 2}))

	isl, err := NewIsland(pop, &testutil.RecordingAlgorithm{}, WithSelectionPolicy(BestSelection{}))
	require.NoError(t, err)

	migrants, err := isl.SelectEmigrants(2)
	require.NoError(t, err)
	require.Len(t, migrants, 2)
	assert.Equal(t, core.DecisionVector{0, 0}, migrants[0].Individual.X)
	assert.Equal(t, core.DecisionVector{1, 1}, migrants[1].Individual.X)

	// k larger than the population caps at the population size.
	migrants, err = isl.SelectEmigrants(10)
	require.NoError(t, err)
	assert.Len(t, migrants, 4)
}

func TestAcceptImmigrantsReplacesWorst(t *testing.T) {
	pop := newSpherePopulation(t, 3, 1)
	require.NoError(t, pop.SetX(0, core.DecisionVector{1, 1}))
	require.NoError(t, pop.SetX(1, core.DecisionVector{4, 4}))
	require.NoError(t, pop.SetX(2, core.DecisionVector{2, 2}))

	isl, err := NewIsland(pop, &testutil.RecordingAlgorithm{})
	require.NoError(t, err)

	migrant := Migrant{
		Individual: core.Individual{X: core.DecisionVector{0, 0}},
		Problem:    pop.Problem(),
	}
	require.NoError(t, isl.AcceptImmigrants([]Migrant{migrant}))

	assert.Equal(t, 3, pop.Len())
	got, err := pop.Get(1)
	require.NoError(t, err)
	assert.Equal(t, core.DecisionVector{0, 0}, got.X, "the worst individual is the one replaced")
}

func TestAcceptImmigrantsKeepsResidentOnWorseMigrant(t *testing.T) {
	pop := newSpherePopulation(t, 2, 1)
	require.NoError(t, pop.SetX(0, core.DecisionVector{1, 1}))
	require.NoError(t, pop.SetX(1, core.DecisionVector{2, 2}))

	isl, err := NewIsland(pop, &testutil.RecordingAlgorithm{})
	require.NoError(t, err)

	migrant := Migrant{
		Individual: core.Individual{X: core.DecisionVector{5, 5}},
		Problem:    pop.Problem(),
	}
	require.NoError(t, isl.AcceptImmigrants([]Migrant{migrant}))

	got, err := pop.Get(1)
	require.NoError(t, err)
	assert.Equal(t, core.DecisionVector{2, 2}, got.X, "a worse migrant never displaces a resident")
}

func TestAcceptImmigrantsRejectsIncompatibleProblem(t *testing.T) {
	pop := newSpherePopulation(t, 2, 1)
	require.NoError(t, pop.SetX(0, core.DecisionVector{1, 1}))
	require.NoError(t, pop.SetX(1, core.DecisionVector{2, 2}))

	isl, err := NewIsland(pop, &testutil.RecordingAlgorithm{})
	require.NoError(t, err)

	foreign := testutil.NewSphere(3)
	migrant := Migrant{
		Individual: core.Individual{X: core.DecisionVector{0, 0, 0}},
		Problem:    foreign,
	}
	err = isl.AcceptImmigrants([]Migrant{migrant})
	require.Error(t, err)
	assert.Equal(t, errors.IncompatibleProblems, errors.CodeOf(err))

	// The population is untouched.
	got, err := pop.Get(0)
	require.NoError(t, err)
	assert.Equal(t, core.DecisionVector{1, 1}, got.X)
	got, err = pop.Get(1)
	require.NoError(t, err)
	assert.Equal(t, core.DecisionVector{2, 2}, got.X)
}

func TestAcceptImmigrantsReevaluatesForeignInstances(t *testing.T) {
	pop := newSpherePopulation(t, 2, 1)
	require.NoError(t, pop.SetX(0, core.DecisionVector{1, 1}))
	require.NoError(t, pop.SetX(1, core.DecisionVector{2, 2}))

	isl, err := NewIsland(pop, &testutil.RecordingAlgorithm{})
	require.NoError(t, err)

	// Compatible but distinct instance: the carried fitness is a lie and
	// must be discarded.
	source := testutil.NewSphere(2)
	migrant := Migrant{
		Individual: core.Individual{
			X: core.DecisionVector{0, 0},
			F: core.FitnessVector{9999},
		},
		Problem: source,
	}
	require.NoError(t, isl.AcceptImmigrants([]Migrant{migrant}))

	got, err := pop.Get(1)
	require.NoError(t, err)
	assert.Equal(t, core.DecisionVector{0, 0}, got.X)
	assert.Equal(t, core.FitnessVector{0}, got.F, "fitness is recomputed under the destination problem")
}

func TestAcceptImmigrantsEmptyIsNoop(t *testing.T) {
	isl, err := NewIsland(newSpherePopulation(t, 2, 1), &testutil.RecordingAlgorithm{})
	require.NoError(t, err)
	require.NoError(t, isl.AcceptImmigrants(nil))
}

func TestIslandJoinReturnsQuickly(t *testing.T) {
	isl, err := NewIsland(newSpherePopulation(t, 3, 1), &testutil.RecordingAlgorithm{})
	require.NoError(t, err)

	require.NoError(t, isl.Evolve(context.Background(), 1))

	done := make(chan error, 1)
	go func() { done <- isl.Join() }()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Join did not return")
	}
}
