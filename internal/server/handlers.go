package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/matzehuels/kdag/pkg/edges"
	kerrors "github.com/matzehuels/kdag/pkg/errors"
	"github.com/matzehuels/kdag/pkg/export"
	"github.com/matzehuels/kdag/pkg/geom"
	"github.com/matzehuels/kdag/pkg/modecache"
)

// rectReport is one measurement in a batch.
type rectReport struct {
	ID string `json:"id"`
	geom.Rect
}

type layoutResponse struct {
	Viewport geom.Viewport        `json:"viewport"`
	Rects    map[string]geom.Rect `json:"rects"`
	Version  uint64               `json:"version"`
}

// =============================================================================
// Layout
// =============================================================================

func (s *Server) handleLayout(w http.ResponseWriter, _ *http.Request) {
	st := s.sess.Store()
	writeJSON(w, http.StatusOK, layoutResponse{
		Viewport: st.Viewport(),
		Rects:    st.Rects(),
		Version:  st.Version(),
	})
}

func (s *Server) handleReportRects(w http.ResponseWriter, r *http.Request) {
	var batch []rectReport
	if !decodeBody(w, r, &batch) {
		return
	}
	for _, rr := range batch {
		if err := kerrors.ValidateID("node", rr.ID); err != nil {
			writeError(w, err)
			return
		}
	}

	updated := 0
	for _, rr := range batch {
		if s.sess.ReportNodeRect(rr.ID, rr.Rect) {
			updated++
		}
	}
	writeJSON(w, http.StatusOK, map[string]int{"received": len(batch), "updated": updated})
}

func (s *Server) handleRemoveRect(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !s.sess.Store().Remove(id) {
		writeDetail(w, http.StatusNotFound, "node not measured: "+id)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleViewport(w http.ResponseWriter, r *http.Request) {
	var vp geom.Viewport
	if !decodeBody(w, r, &vp) {
		return
	}
	s.sess.UpdateViewport(vp.CanvasOrigin, vp.ScrollOffset)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handlePosition(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	pos, ok := s.sess.RelativePosition(id)
	if !ok {
		writeDetail(w, http.StatusNotFound, "node not measured: "+id)
		return
	}
	writeJSON(w, http.StatusOK, pos)
}

// =============================================================================
// Edges
// =============================================================================

func (s *Server) handleEdges(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.sess.RenderedReport())
}

func (s *Server) handleComputeEdges(w http.ResponseWriter, r *http.Request) {
	var es []edges.Edge
	if !decodeBody(w, r, &es) {
		return
	}
	writeJSON(w, http.StatusOK, s.sess.RouteReport(es))
}

// =============================================================================
// Mode layouts
// =============================================================================

func (s *Server) handleSaveMode(w http.ResponseWriter, r *http.Request) {
	typ, err := modecache.ParseEntityType(chi.URLParam(r, "type"))
	if err != nil {
		writeError(w, err)
		return
	}
	var l modecache.Layout
	if !decodeBody(w, r, &l) {
		return
	}
	if err := s.sess.SaveModeLayout(typ, chi.URLParam(r, "id"), l); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGetMode(w http.ResponseWriter, r *http.Request) {
	typ, err := modecache.ParseEntityType(chi.URLParam(r, "type"))
	if err != nil {
		writeError(w, err)
		return
	}
	id := chi.URLParam(r, "id")
	l, ok := s.sess.GetModeLayout(typ, id)
	if !ok {
		writeDetail(w, http.StatusNotFound, "no "+string(typ)+" layout for "+id)
		return
	}
	writeJSON(w, http.StatusOK, l)
}

func (s *Server) handleClearModes(w http.ResponseWriter, _ *http.Request) {
	s.sess.ClearModeLayout()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handlePersistModes(w http.ResponseWriter, r *http.Request) {
	if err := s.sess.PersistModes(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// Projects
// =============================================================================

func (s *Server) handleLoadProject(w http.ResponseWriter, r *http.Request) {
	p, err := s.sess.LoadProject(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleCurrentProject(w http.ResponseWriter, _ *http.Request) {
	_, p := s.sess.Project()
	if p == nil {
		writeDetail(w, http.StatusNotFound, "no project loaded")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleAnalysis(w http.ResponseWriter, r *http.Request) {
	if _, p := s.sess.Project(); p == nil {
		writeDetail(w, http.StatusNotFound, "no project loaded")
		return
	}
	writeJSON(w, http.StatusOK, s.sess.Analyze(chi.URLParam(r, "id")))
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	_, p := s.sess.Project()
	if p == nil {
		writeDetail(w, http.StatusNotFound, "no project loaded")
		return
	}

	q := r.URL.Query()
	opts := export.Options{
		Detailed: q.Get("detailed") == "true" || q.Get("detailed") == "1",
		RankDir:  q.Get("rankdir"),
	}
	if focus := q.Get("focus"); focus != "" {
		a := p.Analyze(focus)
		opts.Highlight = &a
	}
	dot := export.ToDOT(p, opts)

	switch format := q.Get("format"); format {
	case "", "dot":
		w.Header().Set("Content-Type", "text/vnd.graphviz; charset=utf-8")
		io.WriteString(w, dot)
	case "svg":
		svg, err := export.RenderSVG(r.Context(), dot)
		if err != nil {
			writeError(w, kerrors.Wrap(kerrors.ErrCodeInternal, err, "render svg"))
			return
		}
		w.Header().Set("Content-Type", "image/svg+xml")
		w.Write(svg)
	default:
		writeDetail(w, http.StatusBadRequest, "unknown export format: "+format)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"session": s.sess.ID(),
		"project": s.sess.ProjectID(),
	})
}

// =============================================================================
// Encoding
// =============================================================================

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

func writeError(w http.ResponseWriter, err error) {
	body := map[string]string{"detail": kerrors.UserMessage(err)}
	if code := kerrors.GetCode(err); code != "" {
		body["code"] = string(code)
	}
	writeJSON(w, statusFor(err), body)
}

// statusFor maps an error to an HTTP status. Inner codes win over the
// LOAD_FAILED wrapper so a missing project is still a 404.
func statusFor(err error) int {
	switch {
	case kerrors.Is(err, kerrors.ErrCodeInvalidInput):
		return http.StatusBadRequest
	case kerrors.Is(err, kerrors.ErrCodeNotFound):
		return http.StatusNotFound
	case kerrors.Is(err, kerrors.ErrCodeStaleResponse):
		return http.StatusConflict
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case kerrors.Is(err, kerrors.ErrCodeLoadFailed), kerrors.Is(err, kerrors.ErrCodeNetwork):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
