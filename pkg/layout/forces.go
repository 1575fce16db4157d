package layout

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/matzehuels/openchain/pkg/graph"
)

// Force parameters.
const (
	MinLinkDistance      = 80.0
	MaxLinkDistance      = 300.0
	ExtendedLinkDistance = 100.0

	CenterCharge   = -1000.0
	CoreCharge     = -400.0
	ExtendedCharge = -100.0

	CenteringStrength = 0.1
	CollideStrength   = 0.5
	CollidePadding    = 5.0
	RadialStrength    = 0.3
	RadialRing        = 150.0

	distanceMin2 = 1.0
)

// LinkDistance returns the rest length of a link. Links touching an extended
// node are 100; otherwise the length falls linearly from 300 at value 0 to 80
// at value 1.
func LinkDistance(source, target *graph.Node, value float64) float64 {
	if source.IsExtended() || target.IsExtended() {
		return ExtendedLinkDistance
	}
	return MinLinkDistance + (1-value)*(MaxLinkDistance-MinLinkDistance)
}

// ChargeStrength returns the many-body strength for a tier. Negative values
// repel.
func ChargeStrength(tier graph.Tier) float64 {
	switch tier {
	case graph.TierCenter:
		return CenterCharge
	case graph.TierCore:
		return CoreCharge
	default:
		return ExtendedCharge
	}
}

// CollideRadius returns the collision radius of a node.
func CollideRadius(n *graph.Node) float64 {
	return n.Radius() + CollidePadding
}

// force is applied once per tick with the current alpha.
type force interface {
	apply(s *state, alpha float64)
}

// state is the mutable body of the simulation. Only the engine touches it.
type state struct {
	pos    []r2.Vec
	vel    []r2.Vec
	pinned []bool
	fixed  []r2.Vec
	jiggle func() float64
}

// =============================================================================
// Link
// =============================================================================

type linkForce struct {
	edges    []graph.Edge
	distance []float64
	strength []float64
	bias     []float64
}

func newLinkForce(r *graph.Resolved) *linkForce {
	count := make([]int, len(r.Nodes))
	for _, e := range r.Edges {
		count[e.Source]++
		count[e.Target]++
	}

	f := &linkForce{
		edges:    r.Edges,
		distance: make([]float64, len(r.Edges)),
		strength: make([]float64, len(r.Edges)),
		bias:     make([]float64, len(r.Edges)),
	}
	for i, e := range r.Edges {
		cs, ct := float64(count[e.Source]), float64(count[e.Target])
		f.distance[i] = LinkDistance(&r.Nodes[e.Source], &r.Nodes[e.Target], e.Value)
		f.strength[i] = 1 / min(cs, ct)
		f.bias[i] = cs / (cs + ct)
	}
	return f
}

func (f *linkForce) apply(s *state, alpha float64) {
	for i, e := range f.edges {
		src, tgt := e.Source, e.Target
		d := r2.Sub(r2.Add(s.pos[tgt], s.vel[tgt]), r2.Add(s.pos[src], s.vel[src]))
		if d.X == 0 {
			d.X = s.jiggle()
		}
		if d.Y == 0 {
			d.Y = s.jiggle()
		}
		l := r2.Norm(d)
		l = (l - f.distance[i]) / l * alpha * f.strength[i]
		d = r2.Scale(l, d)
		b := f.bias[i]
		s.vel[tgt] = r2.Sub(s.vel[tgt], r2.Scale(b, d))
		s.vel[src] = r2.Add(s.vel[src], r2.Scale(1-b, d))
	}
}

// =============================================================================
// Many-body
// =============================================================================

// chargeForce is the exact pairwise many-body force. Recommendation graphs
// hold tens of nodes, so no Barnes-Hut approximation is used.
type chargeForce struct {
	strength []float64
}

func newChargeForce(r *graph.Resolved) *chargeForce {
	f := &chargeForce{strength: make([]float64, len(r.Nodes))}
	for i := range r.Nodes {
		f.strength[i] = ChargeStrength(r.Nodes[i].Tier)
	}
	return f
}

func (f *chargeForce) apply(s *state, alpha float64) {
	for i := range s.pos {
		for j := range s.pos {
			if i == j {
				continue
			}
			d := r2.Sub(s.pos[j], s.pos[i])
			l := r2.Norm2(d)
			if d.X == 0 {
				d.X = s.jiggle()
				l += d.X * d.X
			}
			if d.Y == 0 {
				d.Y = s.jiggle()
				l += d.Y * d.Y
			}
			if l < distanceMin2 {
				l = math.Sqrt(distanceMin2 * l)
			}
			s.vel[i] = r2.Add(s.vel[i], r2.Scale(f.strength[j]*alpha/l, d))
		}
	}
}

// =============================================================================
// Centering
// =============================================================================

// centerForce translates all nodes so their mean drifts toward the canvas
// center. It moves positions directly and does not touch velocities.
type centerForce struct {
	center   r2.Vec
	strength float64
}

func (f *centerForce) apply(s *state, _ float64) {
	if len(s.pos) == 0 {
		return
	}
	var sum r2.Vec
	for _, p := range s.pos {
		sum = r2.Add(sum, p)
	}
	shift := r2.Scale(f.strength, r2.Sub(r2.Scale(1/float64(len(s.pos)), sum), f.center))
	for i := range s.pos {
		s.pos[i] = r2.Sub(s.pos[i], shift)
	}
}

// =============================================================================
// Collision
// =============================================================================

type collideForce struct {
	radius   []float64
	strength float64
}

func newCollideForce(r *graph.Resolved) *collideForce {
	f := &collideForce{radius: make([]float64, len(r.Nodes)), strength: CollideStrength}
	for i := range r.Nodes {
		f.radius[i] = CollideRadius(&r.Nodes[i])
	}
	return f
}

func (f *collideForce) apply(s *state, _ float64) {
	for i := range s.pos {
		ri := f.radius[i]
		ri2 := ri * ri
		pi := r2.Add(s.pos[i], s.vel[i])
		for j := i + 1; j < len(s.pos); j++ {
			rj := f.radius[j]
			r := ri + rj
			d := r2.Sub(pi, r2.Add(s.pos[j], s.vel[j]))
			l := r2.Norm2(d)
			if l >= r*r {
				continue
			}
			if d.X == 0 {
				d.X = s.jiggle()
				l += d.X * d.X
			}
			if d.Y == 0 {
				d.Y = s.jiggle()
				l += d.Y * d.Y
			}
			l = math.Sqrt(l)
			d = r2.Scale((r-l)/l*f.strength, d)
			rj2 := rj * rj
			w := rj2 / (ri2 + rj2)
			s.vel[i] = r2.Add(s.vel[i], r2.Scale(w, d))
			s.vel[j] = r2.Sub(s.vel[j], r2.Scale(1-w, d))
		}
	}
}

// =============================================================================
// Radial
// =============================================================================

// radialForce pulls the center node onto the canvas center and every other
// node onto a ring around it.
type radialForce struct {
	center   r2.Vec
	radius   []float64
	strength float64
}

func newRadialForce(r *graph.Resolved, center r2.Vec) *radialForce {
	f := &radialForce{center: center, radius: make([]float64, len(r.Nodes)), strength: RadialStrength}
	for i := range r.Nodes {
		if i != r.Center {
			f.radius[i] = RadialRing
		}
	}
	return f
}

func (f *radialForce) apply(s *state, alpha float64) {
	for i := range s.pos {
		d := r2.Sub(s.pos[i], f.center)
		if d.X == 0 {
			d.X = 1e-6
		}
		if d.Y == 0 {
			d.Y = 1e-6
		}
		r := r2.Norm(d)
		k := (f.radius[i] - r) * f.strength * alpha / r
		s.vel[i] = r2.Add(s.vel[i], r2.Scale(k, d))
	}
}
