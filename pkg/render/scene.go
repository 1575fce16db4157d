package render

import (
	"context"

	"github.com/matzehuels/openchain/pkg/graph"
	"github.com/matzehuels/openchain/pkg/layout"
)

// SceneOptions configures a Scene.
type SceneOptions struct {
	Layout   layout.Options
	Analyzer Analyzer
	OnSelect func(graph.Node)
}

// Scene is one graph view lifetime: a payload, its classification and, for
// renderable payloads, the engine and gesture bindings that own its layout.
//
// A new payload replaces the scene: Close the old one, then build a new one.
type Scene struct {
	Data        *graph.GraphData
	View        View
	Engine      *layout.Engine // nil unless View.Kind is ViewGraph
	Interaction *Interaction   // nil unless View.Kind is ViewGraph
	Viewport    Viewport
}

// NewScene classifies g and, when it is renderable, resolves it and creates
// a fresh engine. Resolution failures are returned as errors; error and empty
// payloads are not errors and yield a scene without an engine.
func NewScene(g *graph.GraphData, opts SceneOptions) (*Scene, error) {
	s := &Scene{Data: g, View: Classify(g), Viewport: Identity}
	if s.View.Kind != ViewGraph {
		return s, nil
	}
	r, err := graph.Resolve(g)
	if err != nil {
		return nil, err
	}
	s.Engine = layout.New(r, opts.Layout)
	s.Interaction = NewInteraction(s.Engine, opts.Analyzer, opts.OnSelect)
	return s, nil
}

// Renderable reports whether the scene has a graph to draw.
func (s *Scene) Renderable() bool { return s.Engine != nil }

// Run drives the engine until the scene is closed or ctx is done. It returns
// immediately for scenes without a graph.
func (s *Scene) Run(ctx context.Context, onTick func(layout.Frame)) error {
	if s.Engine == nil {
		return nil
	}
	return s.Engine.Run(ctx, onTick)
}

// Close stops the engine so no further ticks are produced.
func (s *Scene) Close() {
	if s.Engine != nil {
		s.Engine.Stop()
	}
}
