// Package geom holds the plain value shapes shared by the layout store and
// the edge router: measured rectangles, viewport state, points and quadratic
// Bézier curves.
//
// All types are small values. They are copied in and copied out of the
// stores so callers can never mutate shared layout state through an alias.
package geom

import (
	"math"
	"strconv"
	"strings"
)

// Rect is a measured node rectangle in viewport-absolute coordinates.
// X and Y are the top-left corner; W and H are width and height.
type Rect struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
	W float64 `json:"w" yaml:"w"`
	H float64 `json:"h" yaml:"h"`
}

// Center returns the midpoint of the rectangle in its own coordinate space.
func (r Rect) Center() Point {
	return Point{X: r.X + r.W/2, Y: r.Y + r.H/2}
}

// Within reports whether every axis of r differs from o by at most eps.
func (r Rect) Within(o Rect, eps float64) bool {
	return math.Abs(r.X-o.X) <= eps &&
		math.Abs(r.Y-o.Y) <= eps &&
		math.Abs(r.W-o.W) <= eps &&
		math.Abs(r.H-o.H) <= eps
}

// Origin is where the canvas container sits in the viewport.
type Origin struct {
	Top  float64 `json:"top" yaml:"top"`
	Left float64 `json:"left" yaml:"left"`
}

// Scroll is how far the canvas content is scrolled.
type Scroll struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// Viewport is the canvas container state needed to map viewport-absolute
// rectangles into canvas content coordinates.
type Viewport struct {
	CanvasOrigin Origin `json:"canvasOrigin" yaml:"canvasOrigin"`
	ScrollOffset Scroll `json:"scrollOffset" yaml:"scrollOffset"`
}

// Point is a 2D coordinate.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Sub returns the vector from q to p.
func (p Point) Sub(q Point) (dx, dy float64) {
	return p.X - q.X, p.Y - q.Y
}

// DistanceTo returns the Euclidean distance between p and q.
func (p Point) DistanceTo(q Point) float64 {
	dx, dy := q.Sub(p)
	return math.Sqrt(dx*dx + dy*dy)
}

// Quad is a quadratic Bézier curve from Start through Control to End.
type Quad struct {
	Start   Point
	Control Point
	End     Point
}

// At evaluates the curve at parameter t in [0, 1]:
//
//	B(t) = (1-t)²·P0 + 2(1-t)t·P1 + t²·P2
func (q Quad) At(t float64) Point {
	u := 1 - t
	a, b, c := u*u, 2*u*t, t*t
	return Point{
		X: a*q.Start.X + b*q.Control.X + c*q.End.X,
		Y: a*q.Start.Y + b*q.Control.Y + c*q.End.Y,
	}
}

// SVG returns the curve as an SVG path command: "M sx sy Q cx cy tx ty".
func (q Quad) SVG() string {
	var sb strings.Builder
	sb.WriteString("M ")
	writePoint(&sb, q.Start)
	sb.WriteString(" Q ")
	writePoint(&sb, q.Control)
	sb.WriteByte(' ')
	writePoint(&sb, q.End)
	return sb.String()
}

func writePoint(sb *strings.Builder, p Point) {
	sb.WriteString(FormatFloat(p.X))
	sb.WriteByte(' ')
	sb.WriteString(FormatFloat(p.Y))
}

// FormatFloat renders v in the shortest form that round-trips.
func FormatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
