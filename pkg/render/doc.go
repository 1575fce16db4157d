// Package render draws recommendation graphs and binds user gestures to the
// layout engine.
//
// # Overview
//
// A graph view goes through three stages:
//
//   - [Classify] decides whether a payload is drawn, shown as an error
//     message or shown as a no-results notice
//   - [NewScene] resolves a drawable payload and creates its layout engine
//     and [Interaction]
//   - Sinks turn engine frames into output: [RenderSVG] for standalone SVG,
//     [ToDOT] and [RenderImage] for Graphviz images
//
// # Visual Encoding
//
// [StyleFor] is the single source of truth for node appearance: fill by tier
// (center #4169E1, core #90EE90, extended #FFD700), 0.6 opacity for extended
// nodes and 0.9 otherwise, and no label on extended nodes. Links are drawn in
// #E5E5E5 at 0.6 opacity, one unit wide.
//
// # Gestures
//
// Zoom and pan only change the [Viewport]; they never touch the layout:
//
//	vp := render.Identity.ZoomAt(1.5, mouseX, mouseY) // clamped to [0.2, 4]
//	vp = vp.Pan(dx, dy)
//	attr := vp.String()                              // "translate(x,y) scale(k)"
//
// Drags pin nodes and keep the simulation warm while they last; clicks select
// a node and request an analysis against the center:
//
//	scene.Interaction.DragStart(id)
//	scene.Interaction.DragMove(id, vp.Invert(px, py))
//	scene.Interaction.DragEnd(id)
//	scene.Interaction.Click(ctx, id)
//
// A scene owns exactly one engine. Call [Scene.Close] before replacing it so
// no ticks outlive the view.
package render
