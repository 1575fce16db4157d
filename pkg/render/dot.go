package render

import (
	"bytes"
	"context"
	"fmt"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/openchain/pkg/errors"
	"github.com/matzehuels/openchain/pkg/graph"
	"github.com/matzehuels/openchain/pkg/layout"
)

// Image formats supported by RenderImage.
const (
	FormatSVG = "svg"
	FormatPNG = "png"
	FormatJPG = "jpg"
)

// pointsPerInch converts layout units (treated as points) to Graphviz inches.
const pointsPerInch = 72.0

// ToDOT converts a frame to Graphviz DOT with every node pinned at its layout
// position. Graphviz's y axis points up, so y is mirrored.
//
// The result is meant for the neato engine, which honours pinned positions;
// see [RenderImage].
func ToDOT(f layout.Frame) string {
	var buf bytes.Buffer
	buf.WriteString("graph G {\n")
	buf.WriteString("  layout=neato;\n")
	buf.WriteString("  inputscale=72;\n")
	buf.WriteString("  splines=false;\n")
	buf.WriteString("  outputorder=edgesfirst;\n")
	buf.WriteString("  bgcolor=\"white\";\n")
	fmt.Fprintf(&buf, "  node [shape=circle, style=filled, fixedsize=true, color=%q, penwidth=%s, fontname=\"Helvetica\"];\n",
		NodeStroke, fmtNum(NodeStrokeWidth))
	fmt.Fprintf(&buf, "  edge [color=%q, penwidth=%s];\n", LinkStroke, fmtNum(LinkStrokeWidth))
	buf.WriteString("\n")

	for _, n := range f.Nodes {
		s := StyleFor(n.ID, n.Tier, n.Radius)
		width := 2 * s.Radius / pointsPerInch
		label := ""
		fontColor := "#333333"
		fontSize := "12"
		if s.HasLabel() {
			label = s.Label.Text
			if n.Tier == graph.TierCenter {
				fontColor = "#ffffff"
				fontSize = "14"
			}
		}
		fmt.Fprintf(&buf, "  %q [pos=\"%.2f,%.2f!\", width=%.3f, fillcolor=%q, label=%q, fontcolor=%q, fontsize=%s];\n",
			n.ID, n.X, -n.Y, width, withAlpha(s.Fill, s.Opacity), label, fontColor, fontSize)
	}

	buf.WriteString("\n")
	for _, l := range f.Links {
		fmt.Fprintf(&buf, "  %q -- %q;\n", l.Source, l.Target)
	}

	buf.WriteString("}\n")
	return buf.String()
}

// withAlpha appends an alpha channel to a #rrggbb color.
func withAlpha(hex string, opacity float64) string {
	if len(hex) != 7 {
		return hex
	}
	return fmt.Sprintf("%s%02x", hex, int(opacity*255+0.5))
}

// RenderImage renders DOT produced by [ToDOT] with Graphviz's neato engine.
// format is one of FormatSVG, FormatPNG or FormatJPG.
func RenderImage(ctx context.Context, dot, format string) ([]byte, error) {
	var gvFormat graphviz.Format
	switch format {
	case FormatSVG:
		gvFormat = graphviz.SVG
	case FormatPNG:
		gvFormat = graphviz.PNG
	case FormatJPG:
		gvFormat = graphviz.JPG
	default:
		return nil, errors.New(errors.ErrCodeUnsupported, "unsupported image format %q", format)
	}

	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()
	gv.SetLayout(graphviz.NEATO)

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, gvFormat, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return buf.Bytes(), nil
}
