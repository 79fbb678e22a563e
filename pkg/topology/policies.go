package topology

// Unconnected leaves every pushed vertex isolated. Islands under an
// unconnected topology evolve independently and never exchange individuals.
type Unconnected struct{}

func (Unconnected) Name() string { return "unconnected" }

func (Unconnected) Connect(*Topology, int) error { return nil }

// Ring maintains a bidirectional ring in push order: each vertex is
// connected to its predecessor and successor, with the last vertex wrapping
// around to the first.
type Ring struct{}

func (Ring) Name() string { return "ring" }

func (Ring) Connect(t *Topology, n int) error {
	switch t.NumVertices() {
	case 1:
		return nil
	case 2:
		first := t.vertices[0]
		if err := t.AddEdge(first, n); err != nil {
			return err
		}
		return t.AddEdge(n, first)
	}

	first := t.vertices[0]
	prev := t.vertices[len(t.vertices)-2]

	// Break the wrap-around between the previous tail and the head, then
	// splice the new vertex in between.
	if t.NumVertices() > 3 {
		if err := t.RemoveEdge(prev, first); err != nil {
			return err
		}
		if err := t.RemoveEdge(first, prev); err != nil {
			return err
		}
	}
	if err := t.AddEdge(prev, n); err != nil {
		return err
	}
	if err := t.AddEdge(n, prev); err != nil {
		return err
	}
	if err := t.AddEdge(n, first); err != nil {
		return err
	}
	return t.AddEdge(first, n)
}

// FullyConnected wires every pushed vertex to all resident vertices in both
// directions.
type FullyConnected struct{}

func (FullyConnected) Name() string { return "fully_connected" }

func (FullyConnected) Connect(t *Topology, n int) error {
	for _, v := range t.vertices {
		if v == n {
			continue
		}
		if err := t.AddEdge(v, n); err != nil {
			return err
		}
		if err := t.AddEdge(n, v); err != nil {
			return err
		}
	}
	return nil
}
