// Package edges turns labeled node pairs into drawable connector curves.
//
// # Edge forms
//
// An [Edge] decodes from either the object form
//
//	{"id": "e1", "source": "a", "target": "b", "label": "uses"}
//
// or the legacy tuple form ["a", "b"] (optionally ["a", "b", "uses"]).
// Both normalize to the same value, so routing never sees the difference.
// YAML input accepts the same two shapes.
//
// # Routing
//
// [Route] resolves each endpoint's canvas-relative center, then bends a
// quadratic Bézier upward between them:
//
//	dx, dy   = target - source
//	bend     = min(|dx|*0.4, distance*0.35)
//	control  = (sx + dx/2, sy + dy/2 - bend)
//	path     = "M sx sy Q cx cy tx ty"
//	label    = curve point at t = 0.5
//
// Edges whose endpoints are not measured yet, or whose endpoints coincide,
// are left out of the result. Neither case is an error: the edge reappears
// on the next pass once both nodes have distinct positions. [RouteReport]
// lists what was left out and why.
//
// Output order follows input order. Rendered ids are unique within a pass.
package edges
