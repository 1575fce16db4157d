package render

import (
	"bytes"
	"encoding/xml"

	"github.com/matzehuels/openchain/pkg/graph"
)

// Node fills by tier.
const (
	ColorCenter   = "#4169E1"
	ColorCore     = "#90EE90"
	ColorExtended = "#FFD700"
)

// Link and node outline appearance.
const (
	LinkStroke        = "#E5E5E5"
	LinkStrokeOpacity = 0.6
	LinkStrokeWidth   = 1.0

	NodeStroke      = "#fff"
	NodeStrokeWidth = 1.5
)

// LabelStyle positions and paints a node label relative to the node center.
type LabelStyle struct {
	Text     string
	X, Y     float64
	Anchor   string // text-anchor
	Baseline string // dominant-baseline
	FontSize string
	Fill     string
	Opacity  float64
}

// NodeStyle is the visual encoding of one node.
type NodeStyle struct {
	Radius  float64
	Fill    string
	Opacity float64
	Label   LabelStyle
}

// HasLabel reports whether the label is drawn at all.
func (s NodeStyle) HasLabel() bool { return s.Label.Text != "" }

// StyleFor returns the visual encoding for a node of the given tier.
//
// Extended nodes get no label and 0.6 opacity. The center label sits on the
// circle in white; other labels start to the right of the node in dark grey.
func StyleFor(id string, tier graph.Tier, radius float64) NodeStyle {
	s := NodeStyle{Radius: radius, Fill: ColorCore, Opacity: 0.9}
	switch tier {
	case graph.TierCenter:
		s.Fill = ColorCenter
		s.Label = LabelStyle{
			Text: id, Anchor: "middle", Baseline: "middle",
			FontSize: "14px", Fill: "#fff", Opacity: 0.8,
		}
	case graph.TierExtended:
		s.Fill = ColorExtended
		s.Opacity = 0.6
	default:
		s.Label = LabelStyle{
			Text: id, X: 30, Y: 4, Anchor: "start", Baseline: "auto",
			FontSize: "12px", Fill: "#333", Opacity: 0.8,
		}
	}
	return s
}

func escapeXML(s string) string {
	var buf bytes.Buffer
	_ = xml.EscapeText(&buf, []byte(s))
	return buf.String()
}
