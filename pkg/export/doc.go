// Package export renders a project outline as a Graphviz diagram.
//
// # Overview
//
// Chapters become clusters, sections become clusters nested inside their
// chapter, and nodes become rounded boxes. Edges carry their label. Edges
// loaded from the legacy [source, target] form have an empty label and are
// drawn plain.
//
// # Usage
//
//	dot := export.ToDOT(p, export.Options{})
//	svg, err := export.RenderSVG(ctx, dot)
//
// Pass an analysis result in [Options.Highlight] to fill the focus node,
// its ancestors and its descendants with distinct colors.
//
// # Dependencies
//
// SVG rendering runs Graphviz in-process through
// [github.com/goccy/go-graphviz]; no system binary is required.
package export
