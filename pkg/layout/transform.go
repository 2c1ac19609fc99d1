package layout

import "github.com/matzehuels/kdag/pkg/geom"

// RelativePosition is a node's center in canvas content coordinates, along
// with its measured size.
type RelativePosition struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// Point returns the center as a geom.Point.
func (p RelativePosition) Point() geom.Point {
	return geom.Point{X: p.X, Y: p.Y}
}

// ToRelativeCenter maps a viewport-absolute rectangle into the canvas content
// space and returns its center. Width and height pass through unchanged.
func ToRelativeCenter(rect geom.Rect, vp geom.Viewport) RelativePosition {
	return RelativePosition{
		X: rect.X - vp.CanvasOrigin.Left + vp.ScrollOffset.X + rect.W/2,
		Y: rect.Y - vp.CanvasOrigin.Top + vp.ScrollOffset.Y + rect.H/2,
		W: rect.W,
		H: rect.H,
	}
}
