package render

import (
	"context"

	"github.com/matzehuels/openchain/pkg/errors"
	"github.com/matzehuels/openchain/pkg/graph"
	"github.com/matzehuels/openchain/pkg/layout"
)

// Analyzer starts a pairwise analysis between the center node and a
// selected node. analysis.Controller satisfies it.
type Analyzer interface {
	Request(ctx context.Context, center, selected string) uint64
}

// Interaction translates pointer gestures into engine mutations and
// selection events. It is owned by a single view goroutine.
type Interaction struct {
	engine   *layout.Engine
	analyzer Analyzer
	onSelect func(graph.Node)
	dragging map[string]bool
}

// NewInteraction binds gestures to eng. analyzer and onSelect may be nil.
func NewInteraction(eng *layout.Engine, analyzer Analyzer, onSelect func(graph.Node)) *Interaction {
	return &Interaction{
		engine:   eng,
		analyzer: analyzer,
		onSelect: onSelect,
		dragging: make(map[string]bool),
	}
}

// Active returns the number of drags in progress.
func (in *Interaction) Active() int { return len(in.dragging) }

// DragStart pins node id where it currently is. The first concurrent drag
// reheats the simulation so neighbours follow the pointer.
func (in *Interaction) DragStart(id string) error {
	if in.engine.Graph().Node(id) == nil {
		return errors.New(errors.ErrCodeNotFound, "node %q not found", id)
	}
	if len(in.dragging) == 0 {
		in.engine.Reheat()
	}
	in.dragging[id] = true
	_, _, err := in.engine.PinCurrent(id)
	return err
}

// DragMove moves the pin of node id to (x, y) in simulation coordinates.
func (in *Interaction) DragMove(id string, x, y float64) error {
	return in.engine.Pin(id, x, y)
}

// DragEnd releases node id. The last concurrent drag lets the simulation
// cool down again.
func (in *Interaction) DragEnd(id string) error {
	if in.dragging[id] {
		delete(in.dragging, id)
		if len(in.dragging) == 0 {
			in.engine.Cool()
		}
	}
	return in.engine.Unpin(id)
}

// Click selects node id and, unless it is the center, requests an analysis
// of the pair (center, id). It returns true when the click hit a node, in
// which case it must not propagate to the background.
func (in *Interaction) Click(ctx context.Context, id string) (bool, error) {
	g := in.engine.Graph()
	n := g.Node(id)
	if n == nil {
		return false, errors.New(errors.ErrCodeNotFound, "node %q not found", id)
	}
	if in.onSelect != nil {
		in.onSelect(*n)
	}
	center := g.CenterNode().ID
	if id != center && in.analyzer != nil {
		in.analyzer.Request(ctx, center, id)
	}
	return true, nil
}
