package render

import (
	"bytes"
	"fmt"

	"github.com/matzehuels/openchain/pkg/layout"
)

const nodeCSS = `
    .node { cursor: pointer; }
    .node circle { transition: stroke-width 0.2s ease; }
    .node.selected circle { stroke: #333; stroke-width: 3; }
    text { font-family: system-ui, -apple-system, sans-serif; pointer-events: none; }`

const panZoomJS = `
    (function() {
      var svg = document.currentScript ? document.currentScript.ownerSVGElement : document.querySelector('svg');
      svg = svg || document.querySelector('svg');
      var vp = svg.querySelector('.viewport');
      var t = { x: %s, y: %s, k: %s };
      function apply() { vp.setAttribute('transform', 'translate(' + t.x + ',' + t.y + ') scale(' + t.k + ')'); }
      function point(e) { var r = svg.getBoundingClientRect(); return [e.clientX - r.left, e.clientY - r.top]; }
      svg.addEventListener('wheel', function(e) {
        e.preventDefault();
        var p = point(e), k = Math.max(%s, Math.min(%s, t.k * Math.pow(2, -e.deltaY * 0.002)));
        var sx = (p[0] - t.x) / t.k, sy = (p[1] - t.y) / t.k;
        t = { x: p[0] - sx * k, y: p[1] - sy * k, k: k };
        apply();
      }, { passive: false });
      var last = null;
      svg.addEventListener('mousedown', function(e) { if (!e.target.closest('.node')) last = [e.clientX, e.clientY]; });
      window.addEventListener('mousemove', function(e) {
        if (!last) return;
        t.x += e.clientX - last[0]; t.y += e.clientY - last[1];
        last = [e.clientX, e.clientY];
        apply();
      });
      window.addEventListener('mouseup', function() { last = null; });
    })();`

// SVGOption configures RenderSVG.
type SVGOption func(*svgRenderer)

type svgRenderer struct {
	width, height float64
	viewport      Viewport
	interactive   bool
	title         string
	selected      string
}

// WithSize overrides the canvas size; by default the frame's size is used.
func WithSize(w, h float64) SVGOption {
	return func(r *svgRenderer) { r.width, r.height = w, h }
}
func WithViewport(v Viewport) SVGOption { return func(r *svgRenderer) { r.viewport = v } }
func WithInteraction() SVGOption        { return func(r *svgRenderer) { r.interactive = true } }
func WithTitle(title string) SVGOption  { return func(r *svgRenderer) { r.title = title } }
func WithSelected(id string) SVGOption  { return func(r *svgRenderer) { r.selected = id } }

// RenderSVG draws a frame as a standalone SVG document. Links are drawn
// first so nodes sit on top of them.
func RenderSVG(f layout.Frame, opts ...SVGOption) []byte {
	r := svgRenderer{width: f.Width, height: f.Height, viewport: Identity}
	for _, opt := range opts {
		opt(&r)
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.1f %.1f" width="%.0f" height="%.0f">`+"\n",
		r.width, r.height, r.width, r.height)
	if r.title != "" {
		fmt.Fprintf(&buf, "  <title>%s</title>\n", escapeXML(r.title))
	}
	fmt.Fprintf(&buf, "  <style>%s\n  </style>\n", nodeCSS)

	fmt.Fprintf(&buf, "  <g class=\"viewport\" transform=\"%s\">\n", r.viewport)
	renderLinks(&buf, f.Links)
	renderNodes(&buf, f.Nodes, r.selected)
	buf.WriteString("  </g>\n")

	if r.interactive {
		js := fmt.Sprintf(panZoomJS, fmtNum(r.viewport.X), fmtNum(r.viewport.Y), fmtNum(r.viewport.K),
			fmtNum(MinScale), fmtNum(MaxScale))
		fmt.Fprintf(&buf, "  <script type=\"text/javascript\"><![CDATA[%s\n  ]]></script>\n", js)
	}

	buf.WriteString("</svg>\n")
	return buf.Bytes()
}

func renderLinks(buf *bytes.Buffer, links []layout.LinkPosition) {
	fmt.Fprintf(buf, "    <g class=\"links\" stroke=\"%s\" stroke-opacity=\"%s\" stroke-width=\"%s\">\n",
		LinkStroke, fmtNum(LinkStrokeOpacity), fmtNum(LinkStrokeWidth))
	for _, l := range links {
		fmt.Fprintf(buf, "      <line x1=\"%.2f\" y1=\"%.2f\" x2=\"%.2f\" y2=\"%.2f\"/>\n", l.X1, l.Y1, l.X2, l.Y2)
	}
	buf.WriteString("    </g>\n")
}

func renderNodes(buf *bytes.Buffer, nodes []layout.NodePosition, selected string) {
	buf.WriteString("    <g class=\"nodes\">\n")
	for _, n := range nodes {
		s := StyleFor(n.ID, n.Tier, n.Radius)
		class := "node node-" + string(n.Tier)
		if n.ID == selected {
			class += " selected"
		}
		id := escapeXML(n.ID)
		fmt.Fprintf(buf, "      <g class=\"%s\" data-id=\"%s\" transform=\"translate(%.2f,%.2f)\">\n", class, id, n.X, n.Y)
		fmt.Fprintf(buf, "        <circle r=\"%s\" fill=\"%s\" stroke=\"%s\" stroke-width=\"%s\" opacity=\"%s\"/>\n",
			fmtNum(s.Radius), s.Fill, NodeStroke, fmtNum(NodeStrokeWidth), fmtNum(s.Opacity))
		if s.HasLabel() {
			renderLabel(buf, s.Label)
		}
		buf.WriteString("      </g>\n")
	}
	buf.WriteString("    </g>\n")
}

func renderLabel(buf *bytes.Buffer, l LabelStyle) {
	fmt.Fprintf(buf, "        <text x=\"%s\" y=\"%s\" text-anchor=\"%s\" dominant-baseline=\"%s\" font-size=\"%s\" fill=\"%s\" opacity=\"%s\">%s</text>\n",
		fmtNum(l.X), fmtNum(l.Y), l.Anchor, l.Baseline, l.FontSize, l.Fill, fmtNum(l.Opacity), escapeXML(l.Text))
}

// Message renders a standalone SVG that shows only a message, used for error
// and empty views.
func Message(v View, w, h float64) []byte {
	fill := "#999"
	if v.Kind == ViewError {
		fill = "#ff4d4f"
	}
	var buf bytes.Buffer
	fmt.Fprintf(&buf, `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.1f %.1f" width="%.0f" height="%.0f">`+"\n", w, h, w, h)
	fmt.Fprintf(&buf, "  <text x=\"%.1f\" y=\"%.1f\" text-anchor=\"middle\" font-size=\"16px\" fill=\"%s\">%s</text>\n",
		w/2, h/2, fill, escapeXML(v.Message))
	buf.WriteString("</svg>\n")
	return buf.Bytes()
}
