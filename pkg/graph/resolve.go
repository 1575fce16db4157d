package graph

import (
	"github.com/matzehuels/openchain/pkg/errors"
)

// Edge is a link whose endpoints have been resolved to indexes into
// [Resolved.Nodes].
type Edge struct {
	Source int
	Target int
	Value  float64
}

// Resolved is a GraphData after the id → node resolution pass. Every edge
// endpoint refers to an existing node and exactly one node is the center.
type Resolved struct {
	Nodes  []Node
	Edges  []Edge
	Center int

	index map[string]int
}

// Index returns the position of id in Nodes.
func (r *Resolved) Index(id string) (int, bool) {
	i, ok := r.index[id]
	return i, ok
}

// Node returns the node with the given id, or nil.
func (r *Resolved) Node(id string) *Node {
	if i, ok := r.index[id]; ok {
		return &r.Nodes[i]
	}
	return nil
}

// CenterNode returns the focal node.
func (r *Resolved) CenterNode() *Node { return &r.Nodes[r.Center] }

// Resolve validates g and resolves link endpoints to node indexes.
//
// It fails with [errors.ErrCodeInvalidGraph] when a node id is duplicated, a
// node has no known tier, a link references an unknown id, no node has the center tier, more than one
// does, or the center-tier node is not the one named by g.Center. Payloads
// flagged as errors and empty payloads are rejected too; callers classify
// those before resolving.
func Resolve(g *GraphData) (*Resolved, error) {
	if g.IsError() {
		return nil, errors.New(errors.ErrCodeInvalidGraph, "payload is an error: %s", g.Message)
	}
	if g.IsEmpty() {
		return nil, errors.New(errors.ErrCodeInvalidGraph, "payload has no nodes")
	}

	r := &Resolved{
		Nodes:  make([]Node, len(g.Nodes)),
		Edges:  make([]Edge, 0, len(g.Links)),
		Center: -1,
		index:  make(map[string]int, len(g.Nodes)),
	}
	copy(r.Nodes, g.Nodes)

	for i, n := range r.Nodes {
		if n.ID == "" {
			return nil, errors.New(errors.ErrCodeInvalidGraph, "node %d has an empty id", i)
		}
		if _, dup := r.index[n.ID]; dup {
			return nil, errors.New(errors.ErrCodeInvalidGraph, "duplicate node id %q", n.ID)
		}
		if !n.Tier.Valid() {
			return nil, errors.New(errors.ErrCodeInvalidGraph, "node %q has unknown tier %q", n.ID, n.Tier)
		}
		r.index[n.ID] = i
		if n.Tier == TierCenter {
			if r.Center >= 0 {
				return nil, errors.New(errors.ErrCodeInvalidGraph,
					"multiple center nodes: %q and %q", r.Nodes[r.Center].ID, n.ID)
			}
			r.Center = i
		}
	}

	if r.Center < 0 {
		return nil, errors.New(errors.ErrCodeInvalidGraph, "no center node")
	}
	if id := r.Nodes[r.Center].ID; g.Center.ID != "" && id != g.Center.ID {
		return nil, errors.New(errors.ErrCodeInvalidGraph,
			"center node %q does not match center id %q", id, g.Center.ID)
	}

	for _, l := range g.Links {
		src, ok := r.index[string(l.Source)]
		if !ok {
			return nil, errors.New(errors.ErrCodeInvalidGraph, "link source %q not found", l.Source)
		}
		tgt, ok := r.index[string(l.Target)]
		if !ok {
			return nil, errors.New(errors.ErrCodeInvalidGraph, "link target %q not found", l.Target)
		}
		r.Edges = append(r.Edges, Edge{Source: src, Target: tgt, Value: l.Value})
	}

	return r, nil
}
