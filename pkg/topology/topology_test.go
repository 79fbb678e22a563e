package topology

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pelago/pelago/pkg/errors"
)

func TestVertexOperations(t *testing.T) {
	top := New(nil)

	assert.False(t, top.ContainsVertex(0))
	require.NoError(t, top.AddVertex(0))
	assert.True(t, top.ContainsVertex(0))
	assert.Equal(t, 1, top.NumVertices())

	err := top.AddVertex(0)
	require.Error(t, err)
	assert.Equal(t, errors.InvalidInput, errors.CodeOf(err))
}

func TestEdgeOperations(t *testing.T) {
	top := New(nil)
	require.NoError(t, top.AddVertex(0))
	require.NoError(t, top.AddVertex(1))

	t.Run("edges are directed", func(t *testing.T) {
		require.NoError(t, top.AddEdge(0, 1))

		adjacent, err := top.AreAdjacent(0, 1)
		require.NoError(t, err)
		assert.True(t, adjacent)

		adjacent, err = top.AreAdjacent(1, 0)
		require.NoError(t, err)
		assert.False(t, adjacent, "reverse edge must not appear implicitly")
		assert.Equal(t, 1, top.NumEdges())
	})

	t.Run("duplicate edge rejected", func(t *testing.T) {
		err := top.AddEdge(0, 1)
		require.Error(t, err)
		assert.Equal(t, errors.InvalidInput, errors.CodeOf(err))
	})

	t.Run("missing vertex rejected", func(t *testing.T) {
		_, err := top.AreAdjacent(0, 7)
		require.Error(t, err)
		assert.Equal(t, errors.ResourceNotFound, errors.CodeOf(err))

		require.Error(t, top.AddEdge(7, 0))
	})

	t.Run("remove edge", func(t *testing.T) {
		require.NoError(t, top.RemoveEdge(0, 1))
		adjacent, err := top.AreAdjacent(0, 1)
		require.NoError(t, err)
		assert.False(t, adjacent)

		err = top.RemoveEdge(0, 1)
		require.Error(t, err)
		assert.Equal(t, errors.ResourceNotFound, errors.CodeOf(err))
	})
}

func TestNeighborsOfPreservesInsertionOrder(t *testing.T) {
	top := New(nil)
	for _, v := range []int{0, 1, 2, 3} {
		require.NoError(t, top.AddVertex(v))
	}
	require.NoError(t, top.AddEdge(0, 2))
	require.NoError(t, top.AddEdge(0, 1))
	require.NoError(t, top.AddEdge(0, 3))

	nbrs, err := top.NeighborsOf(0)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 1, 3}, nbrs)

	// The returned slice is a copy.
	nbrs[0] = 99
	again, err := top.NeighborsOf(0)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 1, 3}, again)

	_, err = top.NeighborsOf(9)
	require.Error(t, err)
	assert.Equal(t, errors.ResourceNotFound, errors.CodeOf(err))
}

func TestPushBackWithNilPolicyAddsIsolatedVertices(t *testing.T) {
	top := New(nil)
	for i := 0; i < 4; i++ {
		require.NoError(t, top.PushBack(i))
	}
	assert.Equal(t, 4, top.NumVertices())
	assert.Equal(t, 0, top.NumEdges())
}

func TestUnconnectedPolicy(t *testing.T) {
	top := New(Unconnected{})
	for i := 0; i < 3; i++ {
		require.NoError(t, top.PushBack(i))
	}
	assert.Equal(t, 0, top.NumEdges())
}

func TestRingPolicy(t *testing.T) {
	top := New(Ring{})

	requireRing := func(t *testing.T, top *Topology, order []int) {
		t.Helper()
		for i, v := range order {
			next := order[(i+1)%len(order)]
			adjacent, err := top.AreAdjacent(v, next)
			require.NoError(t, err)
			assert.True(t, adjacent, "expected edge %d -> %d", v, next)
			adjacent, err = top.AreAdjacent(next, v)
			require.NoError(t, err)
			assert.True(t, adjacent, "expected edge %d -> %d", next, v)
		}
	}

	require.NoError(t, top.PushBack(0))
	assert.Equal(t, 0, top.NumEdges())

	require.NoError(t, top.PushBack(1))
	requireRing(t, top, []int{0, 1})
	assert.Equal(t, 2, top.NumEdges())

	require.NoError(t, top.PushBack(2))
	requireRing(t, top, []int{0, 1, 2})
	assert.Equal(t, 6, top.NumEdges())

	require.NoError(t, top.PushBack(3))
	requireRing(t, top, []int{0, 1, 2, 3})
	assert.Equal(t, 8, top.NumEdges())

	// The splice must have removed the old wrap-around edges.
	adjacent, err := top.AreAdjacent(2, 0)
	require.NoError(t, err)
	assert.False(t, adjacent)
}

func TestFullyConnectedPolicy(t *testing.T) {
	top := New(FullyConnected{})
	for i := 0; i < 4; i++ {
		require.NoError(t, top.PushBack(i))
	}

	assert.Equal(t, 12, top.NumEdges())
	for a := 0; a < 4; a++ {
		for b := 0; b < 4; b++ {
			if a == b {
				continue
			}
			adjacent, err := top.AreAdjacent(a, b)
			require.NoError(t, err)
			assert.True(t, adjacent)
		}
	}
}

func TestTopologyString(t *testing.T) {
	top := New(Ring{})
	for i := 0; i < 3; i++ {
		require.NoError(t, top.PushBack(i))
	}

	dump := top.String()
	assert.Contains(t, dump, "Topology type: ring")
	assert.Contains(t, dump, "Number of vertices: 3")
	assert.Contains(t, dump, "Number of edges: 6")
	assert.Contains(t, dump, "0 -> {")
}
