package layout

import (
	"github.com/matzehuels/openchain/pkg/graph"
)

// NodePosition is a node in a Frame.
type NodePosition struct {
	ID     string     `json:"id"`
	Tier   graph.Tier `json:"nodeType"`
	Type   string     `json:"type"`
	Radius float64    `json:"r"`
	X      float64    `json:"x"`
	Y      float64    `json:"y"`
	Pinned bool       `json:"pinned,omitempty"`
}

// LinkPosition is a link in a Frame with both endpoints resolved.
type LinkPosition struct {
	Source string  `json:"source"`
	Target string  `json:"target"`
	Value  float64 `json:"value"`
	X1     float64 `json:"x1"`
	Y1     float64 `json:"y1"`
	X2     float64 `json:"x2"`
	Y2     float64 `json:"y2"`
}

// Frame is an immutable snapshot of the simulation after a tick.
type Frame struct {
	Tick   int            `json:"tick"`
	Alpha  float64        `json:"alpha"`
	Width  float64        `json:"width"`
	Height float64        `json:"height"`
	Center string         `json:"center"`
	Nodes  []NodePosition `json:"nodes"`
	Links  []LinkPosition `json:"links"`
}

// Node returns the position of id in f.
func (f *Frame) Node(id string) (NodePosition, bool) {
	for _, n := range f.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return NodePosition{}, false
}

// Bounds returns the bounding box of all node circles.
func (f *Frame) Bounds() (minX, minY, maxX, maxY float64) {
	if len(f.Nodes) == 0 {
		return 0, 0, f.Width, f.Height
	}
	n := f.Nodes[0]
	minX, minY, maxX, maxY = n.X-n.Radius, n.Y-n.Radius, n.X+n.Radius, n.Y+n.Radius
	for _, n := range f.Nodes[1:] {
		minX = min(minX, n.X-n.Radius)
		minY = min(minY, n.Y-n.Radius)
		maxX = max(maxX, n.X+n.Radius)
		maxY = max(maxY, n.Y+n.Radius)
	}
	return minX, minY, maxX, maxY
}

func (e *Engine) frameLocked() Frame {
	r := e.graph
	f := Frame{
		Tick:   e.ticks,
		Alpha:  e.alpha,
		Width:  e.opts.Width,
		Height: e.opts.Height,
		Center: r.CenterNode().ID,
		Nodes:  make([]NodePosition, len(r.Nodes)),
		Links:  make([]LinkPosition, len(r.Edges)),
	}
	for i := range r.Nodes {
		n := &r.Nodes[i]
		f.Nodes[i] = NodePosition{
			ID:     n.ID,
			Tier:   n.Tier,
			Type:   n.Type,
			Radius: n.Radius(),
			X:      e.s.pos[i].X,
			Y:      e.s.pos[i].Y,
			Pinned: e.s.pinned[i],
		}
	}
	for i, ed := range r.Edges {
		s, t := e.s.pos[ed.Source], e.s.pos[ed.Target]
		f.Links[i] = LinkPosition{
			Source: r.Nodes[ed.Source].ID,
			Target: r.Nodes[ed.Target].ID,
			Value:  ed.Value,
			X1:     s.X,
			Y1:     s.Y,
			X2:     t.X,
			Y2:     t.Y,
		}
	}
	return f
}
