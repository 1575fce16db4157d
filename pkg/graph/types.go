package graph

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// =============================================================================
// Constants - Single Source of Truth
// =============================================================================

// Entity types. A node is either a GitHub user or a repository.
const (
	TypeUser = "user"
	TypeRepo = "repo"
)

// Tier is the visual tier of a node.
type Tier string

// Node tiers.
const (
	TierCenter   Tier = "center"
	TierCore     Tier = "core"
	TierExtended Tier = "extended"
)

// Valid reports whether t is one of the three node tiers.
func (t Tier) Valid() bool {
	switch t {
	case TierCenter, TierCore, TierExtended:
		return true
	}
	return false
}

// StatusError marks a payload that must not be rendered.
const StatusError = "error"

// Radii by tier.
const (
	CenterRadius   = 45.0
	CoreBaseRadius = 20.0
	CoreMaxGrowth  = 20.0
	ExtendedRadius = 10.0
)

// =============================================================================
// Node - Recommendation Graph Vertex
// =============================================================================

// Metrics holds the numeric attributes shipped with a node. Size drives the
// radius of core nodes; the remaining counters are informational.
type Metrics struct {
	Size      float64  `json:"size" bson:"size"`
	Stars     *float64 `json:"stars,omitempty" bson:"stars,omitempty"`
	Followers *float64 `json:"followers,omitempty" bson:"followers,omitempty"`
	Forks     *float64 `json:"forks,omitempty" bson:"forks,omitempty"`
}

// Node is a user or repository in a recommendation graph.
type Node struct {
	ID         string   `json:"id" bson:"id"`
	Group      int      `json:"group" bson:"group"`
	Type       string   `json:"type" bson:"type"`
	Tier       Tier     `json:"nodeType" bson:"node_type"`
	Metrics    Metrics  `json:"metrics" bson:"metrics"`
	Similarity *float64 `json:"similarity,omitempty" bson:"similarity,omitempty"`
}

// IsCenter returns true for the node the search was made for.
func (n *Node) IsCenter() bool { return n.Tier == TierCenter }

// IsExtended returns true for second-ring nodes.
func (n *Node) IsExtended() bool { return n.Tier == TierExtended }

// Radius returns the rendered circle radius of n.
func (n *Node) Radius() float64 { return Radius(n.Tier, n.Metrics.Size) }

// Radius returns the circle radius for a node of the given tier and size.
// Center nodes are 45, core nodes are 20 plus size capped at 20 and extended
// nodes are 10. Unknown tiers are drawn as core.
func Radius(tier Tier, size float64) float64 {
	switch tier {
	case TierCenter:
		return CenterRadius
	case TierExtended:
		return ExtendedRadius
	default:
		return CoreBaseRadius + min(size, CoreMaxGrowth)
	}
}

// =============================================================================
// Link - Weighted Similarity Edge
// =============================================================================

// NodeRef is a link endpoint. On the wire it is either a bare node id or an
// object carrying an "id" field; it always marshals back to the bare id.
type NodeRef string

// UnmarshalJSON accepts "id" and {"id": "..."}.
func (r *NodeRef) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '{' {
		var obj struct {
			ID string `json:"id"`
		}
		if err := json.Unmarshal(data, &obj); err != nil {
			return err
		}
		*r = NodeRef(obj.ID)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("node reference: %w", err)
	}
	*r = NodeRef(s)
	return nil
}

// Link connects two nodes. Value is the normalized similarity in [0,1].
type Link struct {
	Source NodeRef `json:"source" bson:"source"`
	Target NodeRef `json:"target" bson:"target"`
	Value  float64 `json:"value" bson:"value"`
}

// =============================================================================
// GraphData - Recommendation Payload
// =============================================================================

// Center identifies the focal node of a payload.
type Center struct {
	ID   string `json:"id" bson:"id"`
	Type string `json:"type,omitempty" bson:"type,omitempty"`
}

// GraphData is one recommendation result as produced by the backend.
// A payload with Status "error" is not renderable; Message holds the cause.
type GraphData struct {
	Nodes   []Node `json:"nodes" bson:"nodes"`
	Links   []Link `json:"links" bson:"links"`
	Center  Center `json:"center" bson:"center"`
	Status  string `json:"status,omitempty" bson:"status,omitempty"`
	Message string `json:"message,omitempty" bson:"message,omitempty"`
}

// IsError reports whether the payload carries an application-level failure.
func (g *GraphData) IsError() bool { return g.Status == StatusError }

// IsEmpty reports whether the payload has nothing to draw.
func (g *GraphData) IsEmpty() bool { return len(g.Nodes) == 0 }

// =============================================================================
// Envelopes
// =============================================================================

// RecommendResult is the envelope returned by GET /api/recommend on success
// and by the backend in its structured form.
type RecommendResult struct {
	Success bool       `json:"success"`
	Data    *GraphData `json:"data,omitempty"`
	Error   string     `json:"error,omitempty"`
	Message string     `json:"message,omitempty"`
	Detail  string     `json:"detail,omitempty"`
}

// AnalysisResult is the envelope returned by GET /api/analyze.
type AnalysisResult struct {
	Status   string `json:"status"`
	Analysis string `json:"analysis,omitempty"`
	Message  string `json:"message,omitempty"`
}

// Analysis result statuses.
const (
	AnalysisSuccess = "success"
	AnalysisError   = "error"
)

// OK reports whether r is a success carrying analysis text.
func (r *AnalysisResult) OK() bool {
	return r.Status == AnalysisSuccess && r.Analysis != ""
}
