// Package layout tracks where every node currently sits on screen.
//
// The [Store] is the single owner of measured node rectangles and of the
// canvas viewport state. Rectangles arrive in viewport-absolute coordinates
// from the rendering layer (typically a bounding-box query) and are kept
// exactly as measured. They are never derived backward from a logical
// position.
//
// # Debounce
//
// [Store.ReportNodeRect] ignores a measurement unless some axis moved by more
// than the store's epsilon (1 unit by default). Sub-pixel layout jitter
// would otherwise wake every subscriber on every frame without any visible
// change.
//
// # Coordinate spaces
//
// Edges are drawn in the canvas content space, not the viewport. The
// canvas container is offset in the viewport and its content may be
// scrolled, so a node's canvas-relative center is:
//
//	x = rect.x - origin.left + scroll.x + rect.w/2
//	y = rect.y - origin.top  + scroll.y + rect.h/2
//
// [ToRelativeCenter] computes that as a pure function; [Store.RelativePosition]
// applies it to the current store state. Relative positions are derived on
// every call and never cached.
//
// # Concurrency
//
// A Store is safe for concurrent use. Subscribers are invoked after the
// mutation has been applied and outside the store's lock, so they may read
// the store freely.
package layout
