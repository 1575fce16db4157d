package layout

import (
	"context"
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/matzehuels/openchain/pkg/errors"
	"github.com/matzehuels/openchain/pkg/graph"
	"github.com/matzehuels/openchain/pkg/observability"
)

// Simulation constants.
const (
	DefaultWidth    = 960.0
	DefaultHeight   = 640.0
	DefaultInterval = 16 * time.Millisecond
	DefaultSeed     = 42
	DefaultMaxTicks = 1000

	AlphaMin      = 0.001
	VelocityDecay = 0.4
	// DragTarget is the energy level held while a node is dragged.
	DragTarget = 0.3

	initialRadius = 10.0
)

// AlphaDecay makes alpha fall from 1 below AlphaMin in about 300 ticks.
var AlphaDecay = 1 - math.Pow(AlphaMin, 1.0/300)

var initialAngle = math.Pi * (3 - math.Sqrt(5))

// Options configures an Engine. Zero fields take their defaults.
type Options struct {
	Width    float64       // Canvas width; the forces pull toward its middle
	Height   float64       // Canvas height
	Interval time.Duration // Tick period for Run
	Seed     uint64        // Seed for jiggle randomness
}

func (o Options) withDefaults() Options {
	if o.Width <= 0 {
		o.Width = DefaultWidth
	}
	if o.Height <= 0 {
		o.Height = DefaultHeight
	}
	if o.Interval <= 0 {
		o.Interval = DefaultInterval
	}
	if o.Seed == 0 {
		o.Seed = DefaultSeed
	}
	return o
}

// Engine is a force-directed simulation over one resolved graph.
//
// An Engine is the single owner of node positions and velocities. All
// mutation goes through its methods, which are safe for concurrent use: a
// Run loop may tick while another goroutine pins nodes or reheats.
type Engine struct {
	mu          sync.Mutex
	graph       *graph.Resolved
	opts        Options
	s           state
	forces      []force
	alpha       float64
	alphaTarget float64
	ticks       int

	wake     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

// New creates an Engine for r with nodes placed on a phyllotaxis spiral.
func New(r *graph.Resolved, opts Options) *Engine {
	opts = opts.withDefaults()
	n := len(r.Nodes)
	rng := rand.New(rand.NewPCG(opts.Seed, opts.Seed))

	e := &Engine{
		graph: r,
		opts:  opts,
		s: state{
			pos:    make([]r2.Vec, n),
			vel:    make([]r2.Vec, n),
			pinned: make([]bool, n),
			fixed:  make([]r2.Vec, n),
			jiggle: func() float64 { return (rng.Float64() - 0.5) * 1e-6 },
		},
		alpha: 1,
		wake:  make(chan struct{}, 1),
		done:  make(chan struct{}),
	}

	for i := range e.s.pos {
		radius := initialRadius * math.Sqrt(0.5+float64(i))
		angle := float64(i) * initialAngle
		e.s.pos[i] = r2.Vec{X: radius * math.Cos(angle), Y: radius * math.Sin(angle)}
	}

	center := r2.Vec{X: opts.Width / 2, Y: opts.Height / 2}
	e.forces = []force{
		newLinkForce(r),
		newChargeForce(r),
		&centerForce{center: center, strength: CenteringStrength},
		newCollideForce(r),
		newRadialForce(r, center),
	}
	return e
}

// Graph returns the graph the engine lays out.
func (e *Engine) Graph() *graph.Resolved { return e.graph }

// Options returns the effective options.
func (e *Engine) Options() Options { return e.opts }

// Tick advances the simulation by one step and returns the resulting frame
// and whether the simulation is still hot. A stopped engine does not move.
func (e *Engine) Tick() (Frame, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.stopped() {
		e.step()
	}
	return e.frameLocked(), e.hotLocked()
}

func (e *Engine) step() {
	e.alpha += (e.alphaTarget - e.alpha) * AlphaDecay
	for _, f := range e.forces {
		f.apply(&e.s, e.alpha)
	}
	for i := range e.s.pos {
		if e.s.pinned[i] {
			e.s.pos[i] = e.s.fixed[i]
			e.s.vel[i] = r2.Vec{}
			continue
		}
		e.s.vel[i] = r2.Scale(1-VelocityDecay, e.s.vel[i])
		e.s.pos[i] = r2.Add(e.s.pos[i], e.s.vel[i])
	}
	e.ticks++
}

// Settle ticks synchronously until the simulation cools or maxTicks steps
// have run, and returns the number of steps taken. maxTicks <= 0 means
// DefaultMaxTicks.
func (e *Engine) Settle(ctx context.Context, maxTicks int) (int, error) {
	if maxTicks <= 0 {
		maxTicks = DefaultMaxTicks
	}
	start := time.Now()
	n := len(e.graph.Nodes)
	observability.Layout().OnLayoutStart(ctx, n)

	steps := 0
	for steps < maxTicks {
		if err := ctx.Err(); err != nil {
			return steps, err
		}
		_, hot := e.Tick()
		steps++
		if !hot || e.Stopped() {
			break
		}
	}
	observability.Layout().OnLayoutSettled(ctx, n, steps, time.Since(start))
	return steps, nil
}

// Run ticks on a timer, calling onTick after every step, until Stop is called
// or ctx is cancelled. Once the simulation cools it stops ticking and waits
// for Reheat.
func (e *Engine) Run(ctx context.Context, onTick func(Frame)) error {
	t := time.NewTicker(e.opts.Interval)
	defer t.Stop()

	n := len(e.graph.Nodes)
	start := time.Now()
	observability.Layout().OnLayoutStart(ctx, n)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-e.done:
			return nil
		case <-t.C:
		}

		f, hot := e.Tick()
		if onTick != nil {
			onTick(f)
		}
		if hot {
			continue
		}

		observability.Layout().OnLayoutSettled(ctx, n, f.Tick, time.Since(start))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-e.done:
			return nil
		case <-e.wake:
			start = time.Now()
			t.Reset(e.opts.Interval)
		}
	}
}

// Reheat raises the energy target so the simulation keeps moving, and
// restarts a cooled Run loop.
func (e *Engine) Reheat() {
	e.mu.Lock()
	e.alphaTarget = DragTarget
	e.mu.Unlock()
	e.signal()
}

// Cool drops the energy target back to zero so the simulation settles.
func (e *Engine) Cool() {
	e.mu.Lock()
	e.alphaTarget = 0
	e.mu.Unlock()
}

// Restart resets alpha to 1 and wakes a cooled Run loop.
func (e *Engine) Restart() {
	e.mu.Lock()
	e.alpha = 1
	e.mu.Unlock()
	e.signal()
}

func (e *Engine) signal() {
	select {
	case e.wake <- struct{}{}:
	default:
	}
}

// Pin fixes node id at (x, y). The node stays there, with zero velocity,
// until Unpin.
func (e *Engine) Pin(id string, x, y float64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	i, ok := e.graph.Index(id)
	if !ok {
		return errors.New(errors.ErrCodeNotFound, "node %q not found", id)
	}
	e.s.pinned[i] = true
	e.s.fixed[i] = r2.Vec{X: x, Y: y}
	return nil
}

// PinCurrent pins node id at its current position and returns it.
func (e *Engine) PinCurrent(id string) (x, y float64, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	i, ok := e.graph.Index(id)
	if !ok {
		return 0, 0, errors.New(errors.ErrCodeNotFound, "node %q not found", id)
	}
	e.s.pinned[i] = true
	e.s.fixed[i] = e.s.pos[i]
	return e.s.pos[i].X, e.s.pos[i].Y, nil
}

// Unpin releases node id back to the forces.
func (e *Engine) Unpin(id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	i, ok := e.graph.Index(id)
	if !ok {
		return errors.New(errors.ErrCodeNotFound, "node %q not found", id)
	}
	e.s.pinned[i] = false
	return nil
}

// Position returns the current position of node id.
func (e *Engine) Position(id string) (x, y float64, ok bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	i, ok := e.graph.Index(id)
	if !ok {
		return 0, 0, false
	}
	return e.s.pos[i].X, e.s.pos[i].Y, true
}

// Alpha returns the current energy and its target.
func (e *Engine) Alpha() (alpha, target float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.alpha, e.alphaTarget
}

// Hot reports whether the simulation is above its minimum energy.
func (e *Engine) Hot() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.hotLocked()
}

func (e *Engine) hotLocked() bool {
	return !e.stopped() && e.alpha >= AlphaMin
}

// Frame returns a snapshot of the current positions.
func (e *Engine) Frame() Frame {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.frameLocked()
}

// Stop ends Run and freezes the simulation. It is safe to call more than once.
func (e *Engine) Stop() {
	e.stopOnce.Do(func() { close(e.done) })
}

// Stopped reports whether Stop has been called.
func (e *Engine) Stopped() bool {
	return e.stopped()
}

func (e *Engine) stopped() bool {
	select {
	case <-e.done:
		return true
	default:
		return false
	}
}
