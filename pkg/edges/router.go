package edges

import (
	"math"
	"strconv"
	"time"

	"github.com/matzehuels/kdag/pkg/errors"
	"github.com/matzehuels/kdag/pkg/geom"
	"github.com/matzehuels/kdag/pkg/layout"
	"github.com/matzehuels/kdag/pkg/observability"
)

// Curvature constants for the upward bend.
const (
	dxBend   = 0.4
	distBend = 0.35
	labelT   = 0.5
)

// Positions resolves a node id to its canvas-relative center.
// *layout.Store satisfies it.
type Positions interface {
	RelativePosition(nodeID string) (layout.RelativePosition, bool)
}

// RenderedEdge is the derived geometry for one edge in one routing pass.
type RenderedEdge struct {
	ID     string  `json:"id"`
	Path   string  `json:"path"`
	Label  string  `json:"label"`
	Source string  `json:"source"`
	Target string  `json:"target"`
	LabelX float64 `json:"labelX"`
	LabelY float64 `json:"labelY"`
}

// Dropped records an edge left out of a pass. Index is its position in the
// input slice; Reason is ErrCodeMissingPosition or ErrCodeDegenerateGeometry.
type Dropped struct {
	Index  int         `json:"index"`
	Source string      `json:"source"`
	Target string      `json:"target"`
	Reason errors.Code `json:"reason"`
}

// Report is the full outcome of a routing pass.
type Report struct {
	Edges   []RenderedEdge `json:"edges"`
	Dropped []Dropped      `json:"dropped,omitempty"`
}

// Curve returns the connector from src to dst. It reports false when the
// points coincide and no direction exists.
func Curve(src, dst geom.Point) (geom.Quad, bool) {
	dx, dy := dst.Sub(src)
	dist := src.DistanceTo(dst)
	if dist == 0 {
		return geom.Quad{}, false
	}
	bend := math.Min(math.Abs(dx)*dxBend, dist*distBend)
	return geom.Quad{
		Start:   src,
		Control: geom.Point{X: src.X + dx/2, Y: src.Y + dy/2 - bend},
		End:     dst,
	}, true
}

// Route computes rendered edges for every drawable edge, in input order.
func Route(pos Positions, edges []Edge) []RenderedEdge {
	return RouteReport(pos, edges).Edges
}

// RouteReport is Route plus the list of edges that were left out.
//
// Identities are assigned over the whole input, dropped edges included, so
// an edge keeps its id when an earlier duplicate becomes drawable. The
// second occurrence of a key gets "#2", the third "#3", and so on.
func RouteReport(pos Positions, edges []Edge) Report {
	start := time.Now()
	rep := Report{Edges: make([]RenderedEdge, 0, len(edges))}
	seen := make(map[string]int, len(edges))

	for i, e := range edges {
		id := e.Key()
		seen[id]++
		if n := seen[id]; n > 1 {
			id += "#" + strconv.Itoa(n)
		}

		src, okSrc := resolve(pos, e.Source)
		dst, okDst := resolve(pos, e.Target)
		if !okSrc || !okDst {
			rep.Dropped = append(rep.Dropped, Dropped{Index: i, Source: e.Source, Target: e.Target, Reason: errors.ErrCodeMissingPosition})
			continue
		}
		q, ok := Curve(src, dst)
		if !ok {
			rep.Dropped = append(rep.Dropped, Dropped{Index: i, Source: e.Source, Target: e.Target, Reason: errors.ErrCodeDegenerateGeometry})
			continue
		}
		lbl := q.At(labelT)
		rep.Edges = append(rep.Edges, RenderedEdge{
			ID:     id,
			Path:   q.SVG(),
			Label:  e.Label,
			Source: e.Source,
			Target: e.Target,
			LabelX: lbl.X,
			LabelY: lbl.Y,
		})
	}

	observability.Route().OnRouteComplete(len(rep.Edges), len(rep.Dropped), time.Since(start))
	return rep
}

func resolve(pos Positions, id string) (geom.Point, bool) {
	if id == "" {
		return geom.Point{}, false
	}
	p, ok := pos.RelativePosition(id)
	if !ok {
		return geom.Point{}, false
	}
	return p.Point(), true
}
