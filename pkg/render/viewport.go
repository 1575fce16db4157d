package render

import (
	"fmt"
	"strconv"
)

// Zoom limits.
const (
	MinScale = 0.2
	MaxScale = 4.0
)

// Viewport is the pan/zoom transform applied to the whole drawing. It maps
// simulation coordinates to screen coordinates and never affects the layout.
type Viewport struct {
	X, Y float64 // translation
	K    float64 // scale
}

// Identity is the untransformed viewport.
var Identity = Viewport{K: 1}

// Apply maps a simulation point to the screen.
func (v Viewport) Apply(x, y float64) (float64, float64) {
	return x*v.K + v.X, y*v.K + v.Y
}

// Invert maps a screen point back to simulation coordinates.
func (v Viewport) Invert(x, y float64) (float64, float64) {
	return (x - v.X) / v.K, (y - v.Y) / v.K
}

// ZoomAt multiplies the scale by factor, clamped to [MinScale, MaxScale],
// keeping the screen point (px, py) fixed.
func (v Viewport) ZoomAt(factor, px, py float64) Viewport {
	return v.ScaleTo(v.K*factor, px, py)
}

// ScaleTo sets the scale to k, clamped to [MinScale, MaxScale], keeping the
// screen point (px, py) fixed.
func (v Viewport) ScaleTo(k, px, py float64) Viewport {
	k = max(MinScale, min(MaxScale, k))
	sx, sy := v.Invert(px, py)
	return Viewport{X: px - sx*k, Y: py - sy*k, K: k}
}

// Pan shifts the viewport by a screen-space delta.
func (v Viewport) Pan(dx, dy float64) Viewport {
	return Viewport{X: v.X + dx, Y: v.Y + dy, K: v.K}
}

// String renders the transform as an SVG transform attribute value.
func (v Viewport) String() string {
	return fmt.Sprintf("translate(%s,%s) scale(%s)", fmtNum(v.X), fmtNum(v.Y), fmtNum(v.K))
}

func fmtNum(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
