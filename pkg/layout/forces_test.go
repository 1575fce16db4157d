package layout

import (
	"testing"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/matzehuels/openchain/pkg/graph"
)

func TestLinkDistance(t *testing.T) {
	core := &graph.Node{Tier: graph.TierCore}
	center := &graph.Node{Tier: graph.TierCenter}
	ext := &graph.Node{Tier: graph.TierExtended}

	tests := []struct {
		name     string
		src, tgt *graph.Node
		value    float64
		want     float64
	}{
		{"strongest", center, core, 1, 80},
		{"weakest", center, core, 0, 300},
		{"middle", core, core, 0.5, 190},
		{"extended target", core, ext, 1, 100},
		{"extended source", ext, core, 0, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := LinkDistance(tt.src, tt.tgt, tt.value); got != tt.want {
				t.Errorf("LinkDistance() = %v, want %v", got, tt.want)
			}
		})
	}

	prev := LinkDistance(center, core, 0)
	for v := 0.1; v <= 1.0; v += 0.1 {
		d := LinkDistance(center, core, v)
		if d >= prev {
			t.Fatalf("distance not decreasing at value %.1f: %v >= %v", v, d, prev)
		}
		prev = d
	}
}

func TestChargeStrength(t *testing.T) {
	tests := []struct {
		tier graph.Tier
		want float64
	}{
		{graph.TierCenter, -1000},
		{graph.TierCore, -400},
		{graph.TierExtended, -100},
	}
	for _, tt := range tests {
		if got := ChargeStrength(tt.tier); got != tt.want {
			t.Errorf("ChargeStrength(%s) = %v, want %v", tt.tier, got, tt.want)
		}
	}
}

func TestCollideRadius(t *testing.T) {
	n := &graph.Node{Tier: graph.TierCore, Metrics: graph.Metrics{Size: 8}}
	if got := CollideRadius(n); got != 33 {
		t.Errorf("CollideRadius() = %v, want 33", got)
	}
}

func TestLinkForceParameters(t *testing.T) {
	r := starGraph(t, 2)
	f := newLinkForce(r)

	// center has degree 2, corea has degree 2 (center + its extended child).
	if f.strength[0] != 0.5 {
		t.Errorf("strength = %v, want 0.5", f.strength[0])
	}
	if f.bias[0] != 0.5 {
		t.Errorf("bias = %v, want 0.5", f.bias[0])
	}
	// corea (2) -> exta (1): strength 1, bias 2/3.
	if f.strength[1] != 1 {
		t.Errorf("strength = %v, want 1", f.strength[1])
	}
	if f.distance[1] != ExtendedLinkDistance {
		t.Errorf("distance = %v, want %v", f.distance[1], ExtendedLinkDistance)
	}
}

func TestRadialTargets(t *testing.T) {
	r := starGraph(t, 2)
	f := newRadialForce(r, r2.Vec{})
	for i, rad := range f.radius {
		want := RadialRing
		if i == r.Center {
			want = 0
		}
		if rad != want {
			t.Errorf("radius[%d] = %v, want %v", i, rad, want)
		}
	}
}
