// Package layout implements the force-directed layout engine for
// recommendation graphs.
//
// The engine follows the d3-force model: every tick the energy level (alpha)
// decays toward a target, a fixed set of forces adjust node velocities, and
// velocities are damped and integrated into positions. Pinned nodes hold
// their fixed position with zero velocity.
//
// # Forces
//
// Forces run in this order each tick:
//
//   - Link: springs whose rest length depends on link value ([LinkDistance])
//   - Charge: pairwise repulsion by tier ([ChargeStrength])
//   - Centering: translates the mean position toward the canvas middle
//   - Collision: keeps circles [CollideRadius] apart
//   - Radial: holds the center node in the middle and the rest on a ring
//
// # Usage
//
// Offline rendering settles the layout synchronously:
//
//	eng := layout.New(resolved, layout.Options{Width: 960, Height: 640})
//	eng.Settle(ctx, 0)
//	frame := eng.Frame()
//
// Live views run the engine on a ticker and push frames to the client:
//
//	go eng.Run(ctx, func(f layout.Frame) { send(f) })
//	eng.Reheat()            // drag start
//	eng.Pin("golang/go", x, y)
//	eng.Cool()              // drag end
//	eng.Unpin("golang/go")
//	eng.Stop()              // view torn down
//
// Randomness (used only to break exact overlaps) comes from a seeded source,
// so equal inputs produce equal layouts.
package layout
