// Package graph provides the wire types for OpenChain recommendation graphs.
//
// This package defines the canonical format for the payloads produced by the
// recommendation backend, used by the HTTP proxy, the layout engine, the
// renderers, the response cache and the search history.
//
// # Core Types
//
//   - [GraphData]: One recommendation result (nodes, links, center)
//   - [Node], [Link]: Vertices (users or repositories) and weighted edges
//   - [Resolved]: GraphData after id resolution, ready for layout
//   - [RecommendResult], [AnalysisResult]: HTTP response envelopes
//
// # Tiers
//
// Every node carries a visual tier:
//
//	graph.TierCenter    // the searched user or repository, exactly one
//	graph.TierCore      // direct recommendations
//	graph.TierExtended  // second ring, drawn small and unlabeled
//
// [Radius] is the single source of truth for circle sizes: center nodes are
// 45, core nodes are 20 + min(size, 20) and extended nodes are 10.
//
// # Payload Format
//
//	{
//	  "nodes": [
//	    {"id": "golang/go", "group": 1, "type": "repo", "nodeType": "center", "metrics": {"size": 40}},
//	    {"id": "rust-lang/rust", "group": 2, "type": "repo", "nodeType": "core", "metrics": {"size": 12}}
//	  ],
//	  "links": [{"source": "golang/go", "target": "rust-lang/rust", "value": 0.8}],
//	  "center": {"id": "golang/go", "type": "repo"}
//	}
//
// Link endpoints may also be objects with an "id" field. A payload with
// "status": "error" is not renderable and its "message" is shown instead.
//
// # Resolution
//
// [Resolve] builds an id → node index once and fails fast on unknown link
// endpoints, duplicate ids or an inconsistent center:
//
//	g, _ := graph.DecodeRecommend(body)
//	r, err := graph.Resolve(g)
//	if errors.Is(err, errors.ErrCodeInvalidGraph) {
//	    // reject the payload
//	}
package graph
