package layout

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	oerrors "github.com/matzehuels/openchain/pkg/errors"
	"github.com/matzehuels/openchain/pkg/graph"
)

// starGraph builds a center with n core nodes, each with one extended child.
func starGraph(t *testing.T, n int) *graph.Resolved {
	t.Helper()
	g := &graph.GraphData{Center: graph.Center{ID: "center", Type: graph.TypeUser}}
	g.Nodes = append(g.Nodes, graph.Node{ID: "center", Type: graph.TypeUser, Tier: graph.TierCenter})
	for i := range n {
		core := "core" + string(rune('a'+i))
		ext := "ext" + string(rune('a'+i))
		g.Nodes = append(g.Nodes,
			graph.Node{ID: core, Type: graph.TypeRepo, Tier: graph.TierCore, Metrics: graph.Metrics{Size: float64(i * 5)}},
			graph.Node{ID: ext, Type: graph.TypeRepo, Tier: graph.TierExtended},
		)
		g.Links = append(g.Links,
			graph.Link{Source: "center", Target: graph.NodeRef(core), Value: float64(i) / float64(n)},
			graph.Link{Source: graph.NodeRef(core), Target: graph.NodeRef(ext), Value: 0.5},
		)
	}
	r, err := graph.Resolve(g)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	return r
}

func TestNewPlacesNodesOnSpiral(t *testing.T) {
	e := New(starGraph(t, 3), Options{})
	f := e.Frame()

	if f.Tick != 0 {
		t.Errorf("Tick = %d, want 0", f.Tick)
	}
	want := initialRadius * math.Sqrt(0.5)
	if n := f.Nodes[0]; math.Abs(n.X-want) > 1e-9 || math.Abs(n.Y) > 1e-9 {
		t.Errorf("node 0 at (%v, %v), want (%v, 0)", n.X, n.Y, want)
	}
	for i := 1; i < len(f.Nodes); i++ {
		if f.Nodes[i].X == f.Nodes[0].X && f.Nodes[i].Y == f.Nodes[0].Y {
			t.Errorf("node %d overlaps node 0", i)
		}
	}
	if alpha, target := e.Alpha(); alpha != 1 || target != 0 {
		t.Errorf("Alpha() = (%v, %v), want (1, 0)", alpha, target)
	}
}

func TestSettleCools(t *testing.T) {
	e := New(starGraph(t, 4), Options{})
	steps, err := e.Settle(context.Background(), 0)
	if err != nil {
		t.Fatalf("Settle: %v", err)
	}
	if steps < 290 || steps > 310 {
		t.Errorf("Settle took %d steps, want about 300", steps)
	}
	if e.Hot() {
		t.Error("Hot() = true after Settle")
	}

	f := e.Frame()
	for _, n := range f.Nodes {
		if math.IsNaN(n.X) || math.IsNaN(n.Y) || math.IsInf(n.X, 0) || math.IsInf(n.Y, 0) {
			t.Fatalf("node %s has non-finite position (%v, %v)", n.ID, n.X, n.Y)
		}
	}

	// The center node sits closer to the canvas middle than any core node.
	cx, cy := f.Width/2, f.Height/2
	dist := func(n NodePosition) float64 { return math.Hypot(n.X-cx, n.Y-cy) }
	c, _ := f.Node("center")
	for _, n := range f.Nodes {
		if n.Tier == graph.TierCore && dist(n) <= dist(c) {
			t.Errorf("core %s at distance %.1f, center at %.1f", n.ID, dist(n), dist(c))
		}
	}
}

func TestSettleBounded(t *testing.T) {
	e := New(starGraph(t, 2), Options{})
	e.Reheat()
	steps, err := e.Settle(context.Background(), 50)
	if err != nil {
		t.Fatal(err)
	}
	if steps != 50 {
		t.Errorf("steps = %d, want 50 while reheated", steps)
	}
}

func TestSettleCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	e := New(starGraph(t, 2), Options{})
	if _, err := e.Settle(ctx, 0); !errors.Is(err, context.Canceled) {
		t.Errorf("Settle() error = %v, want context.Canceled", err)
	}
}

func TestDeterministic(t *testing.T) {
	a := New(starGraph(t, 5), Options{Seed: 7})
	b := New(starGraph(t, 5), Options{Seed: 7})
	a.Settle(context.Background(), 0)
	b.Settle(context.Background(), 0)

	fa, fb := a.Frame(), b.Frame()
	for i := range fa.Nodes {
		if fa.Nodes[i] != fb.Nodes[i] {
			t.Fatalf("node %d differs: %+v vs %+v", i, fa.Nodes[i], fb.Nodes[i])
		}
	}
}

func TestPinUnpin(t *testing.T) {
	e := New(starGraph(t, 3), Options{})

	if err := e.Pin("corea", 500, 250); err != nil {
		t.Fatalf("Pin: %v", err)
	}
	for range 5 {
		f, _ := e.Tick()
		n, _ := f.Node("corea")
		if n.X != 500 || n.Y != 250 || !n.Pinned {
			t.Fatalf("pinned node at (%v, %v) pinned=%v, want (500, 250) pinned", n.X, n.Y, n.Pinned)
		}
	}

	if err := e.Unpin("corea"); err != nil {
		t.Fatalf("Unpin: %v", err)
	}
	e.Tick()
	x, y, ok := e.Position("corea")
	if !ok {
		t.Fatal("Position(corea) not found")
	}
	if x == 500 && y == 250 {
		t.Error("unpinned node did not move")
	}
}

func TestPinCurrent(t *testing.T) {
	e := New(starGraph(t, 2), Options{})
	e.Tick()
	x0, y0, _ := e.Position("coreb")

	x, y, err := e.PinCurrent("coreb")
	if err != nil {
		t.Fatal(err)
	}
	if x != x0 || y != y0 {
		t.Errorf("PinCurrent = (%v, %v), want (%v, %v)", x, y, x0, y0)
	}
	e.Tick()
	if x1, y1, _ := e.Position("coreb"); x1 != x0 || y1 != y0 {
		t.Errorf("pinned node moved to (%v, %v)", x1, y1)
	}
}

func TestUnknownNode(t *testing.T) {
	e := New(starGraph(t, 1), Options{})

	if err := e.Pin("nope", 0, 0); !oerrors.Is(err, oerrors.ErrCodeNotFound) {
		t.Errorf("Pin(nope) error = %v, want NOT_FOUND", err)
	}
	if err := e.Unpin("nope"); !oerrors.Is(err, oerrors.ErrCodeNotFound) {
		t.Errorf("Unpin(nope) error = %v, want NOT_FOUND", err)
	}
	if _, _, err := e.PinCurrent("nope"); !oerrors.Is(err, oerrors.ErrCodeNotFound) {
		t.Errorf("PinCurrent(nope) error = %v, want NOT_FOUND", err)
	}
	if _, _, ok := e.Position("nope"); ok {
		t.Error("Position(nope) ok = true")
	}
}

func TestReheatCool(t *testing.T) {
	e := New(starGraph(t, 2), Options{})
	e.Settle(context.Background(), 0)

	e.Reheat()
	if _, target := e.Alpha(); target != DragTarget {
		t.Errorf("target = %v, want %v", target, DragTarget)
	}
	if _, hot := e.Tick(); !hot {
		t.Error("Tick() after Reheat is cold")
	}

	e.Cool()
	if _, target := e.Alpha(); target != 0 {
		t.Errorf("target = %v, want 0", target)
	}
}

func TestStopFreezes(t *testing.T) {
	e := New(starGraph(t, 2), Options{})
	e.Tick()
	e.Stop()
	e.Stop()

	before := e.Frame()
	after, hot := e.Tick()
	if hot {
		t.Error("stopped engine reports hot")
	}
	if after.Tick != before.Tick {
		t.Errorf("Tick advanced after Stop: %d -> %d", before.Tick, after.Tick)
	}
	if !e.Stopped() {
		t.Error("Stopped() = false")
	}
}

func TestRun(t *testing.T) {
	e := New(starGraph(t, 3), Options{Interval: time.Millisecond})
	frames := make(chan Frame, 64)
	done := make(chan error, 1)

	go func() {
		done <- e.Run(context.Background(), func(f Frame) {
			select {
			case frames <- f:
			default:
			}
		})
	}()

	for i := range 5 {
		select {
		case <-frames:
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for frame %d", i)
		}
	}

	e.Stop()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() error = %v, want nil", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after Stop")
	}
}

func TestRunWakesOnReheat(t *testing.T) {
	e := New(starGraph(t, 2), Options{Interval: time.Millisecond})
	e.Settle(context.Background(), 0)

	frames := make(chan Frame, 1024)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- e.Run(ctx, func(f Frame) { frames <- f })
	}()

	// One tick while cold, then the loop idles.
	select {
	case <-frames:
	case <-time.After(2 * time.Second):
		t.Fatal("no frame from cold engine")
	}

	e.Reheat()
	select {
	case f := <-frames:
		if f.Alpha < AlphaMin {
			t.Errorf("alpha after reheat = %v, want >= %v", f.Alpha, AlphaMin)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not wake on Reheat")
	}

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Run() error = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
