// Package topology models the directed migration graph of an archipelago.
// Vertices are island indices; a directed edge a -> b means individuals
// selected on island a are offered to island b during the migration phase.
package topology

import (
	"fmt"
	"strings"

	"github.com/pelago/pelago/pkg/errors"
)

// ConnectPolicy decides which edges to create when a vertex joins the graph
// through PushBack. Implementations shape the archipelago: ring, fully
// connected, or anything custom.
type ConnectPolicy interface {
	Name() string
	// Connect wires the freshly added vertex n into t. The vertex already
	// exists in t when Connect runs.
	Connect(t *Topology, n int) error
}

// Topology is a directed graph over integer vertices. Vertex and adjacency
// order is insertion order, which keeps migration deterministic. The zero
// value is not usable; construct with New.
//
// Topology is not safe for concurrent mutation. The archipelago mutates it
// only while no evolution is in flight.
type Topology struct {
	vertices []int
	adj      map[int][]int
	policy   ConnectPolicy
}

// New returns an empty topology wired with the given connect policy. A nil
// policy behaves like Unconnected: PushBack adds isolated vertices.
func New(policy ConnectPolicy) *Topology {
	return &Topology{
		adj:    make(map[int][]int),
		policy: policy,
	}
}

// ContainsVertex reports whether n is a vertex of the graph.
func (t *Topology) ContainsVertex(n int) bool {
	_, ok := t.adj[n]
	return ok
}

// AddVertex adds the isolated vertex n. Adding a vertex twice is an error.
func (t *Topology) AddVertex(n int) error {
	if t.ContainsVertex(n) {
		return errors.WithFields(
			errors.New(errors.InvalidInput, "vertex already present in topology"),
			errors.Fields{"vertex": n})
	}
	t.vertices = append(t.vertices, n)
	t.adj[n] = nil
	return nil
}

// AreAdjacent reports whether the directed edge a -> b exists. Both
// endpoints must be vertices of the graph.
func (t *Topology) AreAdjacent(a, b int) (bool, error) {
	if err := t.checkVertices(a, b); err != nil {
		return false, err
	}
	for _, v := range t.adj[a] {
		if v == b {
			return true, nil
		}
	}
	return false, nil
}

// AddEdge creates the directed edge a -> b. The edge must not already exist.
func (t *Topology) AddEdge(a, b int) error {
	adjacent, err := t.AreAdjacent(a, b)
	if err != nil {
		return err
	}
	if adjacent {
		return errors.WithFields(
			errors.New(errors.InvalidInput, "edge already present in topology"),
			errors.Fields{"from": a, "to": b})
	}
	t.adj[a] = append(t.adj[a], b)
	return nil
}

// RemoveEdge deletes the directed edge a -> b. The edge must exist.
func (t *Topology) RemoveEdge(a, b int) error {
	adjacent, err := t.AreAdjacent(a, b)
	if err != nil {
		return err
	}
	if !adjacent {
		return errors.WithFields(
			errors.New(errors.ResourceNotFound, "edge not present in topology"),
			errors.Fields{"from": a, "to": b})
	}
	out := t.adj[a][:0]
	for _, v := range t.adj[a] {
		if v != b {
			out = append(out, v)
		}
	}
	t.adj[a] = out
	return nil
}

// PushBack adds vertex n and lets the connect policy wire it in.
func (t *Topology) PushBack(n int) error {
	if err := t.AddVertex(n); err != nil {
		return err
	}
	if t.policy == nil {
		return nil
	}
	return t.policy.Connect(t, n)
}

// NeighborsOf returns the out-neighbors of n in edge insertion order.
func (t *Topology) NeighborsOf(n int) ([]int, error) {
	if !t.ContainsVertex(n) {
		return nil, errors.WithFields(
			errors.New(errors.ResourceNotFound, "vertex not present in topology"),
			errors.Fields{"vertex": n})
	}
	return append([]int(nil), t.adj[n]...), nil
}

// Vertices returns all vertices in insertion order.
func (t *Topology) Vertices() []int {
	return append([]int(nil), t.vertices...)
}

// NumVertices returns the number of vertices.
func (t *Topology) NumVertices() int { return len(t.vertices) }

// NumEdges returns the number of directed edges.
func (t *Topology) NumEdges() int {
	total := 0
	for _, nbrs := range t.adj {
		total += len(nbrs)
	}
	return total
}

// String returns a human-readable dump: one line per vertex with its
// out-neighbor set.
func (t *Topology) String() string {
	var b strings.Builder
	name := "unconnected"
	if t.policy != nil {
		name = t.policy.Name()
	}
	fmt.Fprintf(&b, "Topology type: %s\n", name)
	fmt.Fprintf(&b, "Number of vertices: %d\n", len(t.vertices))
	fmt.Fprintf(&b, "Number of edges: %d\n", t.NumEdges())
	for _, v := range t.vertices {
		fmt.Fprintf(&b, "\t%d -> {", v)
		for i, n := range t.adj[v] {
			if i > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "%d", n)
		}
		b.WriteString("}\n")
	}
	return b.String()
}

func (t *Topology) checkVertices(vs ...int) error {
	for _, v := range vs {
		if !t.ContainsVertex(v) {
			return errors.WithFields(
				errors.New(errors.ResourceNotFound, "vertex not present in topology"),
				errors.Fields{"vertex": v})
		}
	}
	return nil
}
