package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/matzehuels/kdag/pkg/edges"
	"github.com/matzehuels/kdag/pkg/errors"
	"github.com/matzehuels/kdag/pkg/httputil"
	"github.com/matzehuels/kdag/pkg/project"
)

// recorded is the last request the fake backend saw.
type recorded struct {
	method string
	path   string
	query  string
	body   map[string]any
}

func newBackend(t *testing.T) (*httptest.Server, *recorded) {
	t.Helper()
	last := &recorded{}
	doc := project.Project{
		ID:   "proj_1",
		Name: "Calculus",
		Chapters: []project.Chapter{{ID: "c1", Name: "Limits", Sections: []project.Section{
			{ID: "s1", Name: "Intro", Nodes: []project.Node{{ID: "n1", Name: "Epsilon"}, {ID: "n2", Name: "Delta"}}},
		}}},
		Edges: []edges.Edge{{Source: "n1", Target: "n2"}},
	}

	record := func(r *http.Request) {
		last.method, last.path, last.query = r.Method, r.URL.Path, r.URL.RawQuery
		last.body = nil
		if r.Body != nil {
			data, _ := io.ReadAll(r.Body)
			if len(data) > 0 {
				json.Unmarshal(data, &last.body)
			}
		}
	}
	writeJSON := func(w http.ResponseWriter, status int, v any) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(v)
	}
	echoProject := func(w http.ResponseWriter, r *http.Request) {
		record(r)
		if chi.URLParam(r, "id") != doc.ID {
			writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Project not found"})
			return
		}
		writeJSON(w, http.StatusOK, doc)
	}

	r := chi.NewRouter()
	r.Get("/projects", func(w http.ResponseWriter, r *http.Request) {
		record(r)
		writeJSON(w, http.StatusOK, []project.Summary{doc.Summary()})
	})
	r.Post("/projects", func(w http.ResponseWriter, r *http.Request) {
		record(r)
		p := doc
		p.Name, _ = last.body["name"].(string)
		writeJSON(w, http.StatusOK, p)
	})
	r.Route("/projects/{id}", func(r chi.Router) {
		r.Get("/", echoProject)
		r.Put("/", echoProject)
		r.Delete("/", func(w http.ResponseWriter, r *http.Request) {
			record(r)
			writeJSON(w, http.StatusOK, map[string]string{"message": "Project deleted"})
		})
		r.Post("/chapters", echoProject)
		r.Post("/chapters/reorder", echoProject)
		r.Put("/chapters/{cid}", echoProject)
		r.Delete("/chapters/{cid}", echoProject)
		r.Post("/sections", echoProject)
		r.Post("/sections/reorder", echoProject)
		r.Put("/sections/{sid}", echoProject)
		r.Delete("/sections/{sid}", echoProject)
		r.Post("/nodes", echoProject)
		r.Post("/nodes/reorder", echoProject)
		r.Put("/nodes/position", echoProject)
		r.Put("/nodes/{nid}", echoProject)
		r.Delete("/nodes/{nid}", echoProject)
		r.Post("/edges", func(w http.ResponseWriter, r *http.Request) {
			record(r)
			if last.body["source"] == "n2" && last.body["target"] == "n1" {
				writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "Cycle detected! Knowledge graphs must be acyclic."})
				return
			}
			writeJSON(w, http.StatusOK, doc)
		})
		r.Put("/edges", echoProject)
		r.Delete("/edges", echoProject)
		r.Get("/graph_analysis", func(w http.ResponseWriter, r *http.Request) {
			record(r)
			writeJSON(w, http.StatusOK, doc.Analyze(r.URL.Query().Get("focus_node")))
		})
		r.Get("/nodes/{nid}/location", func(w http.ResponseWriter, r *http.Request) {
			record(r)
			loc, ok := doc.Locate(chi.URLParam(r, "nid"))
			if !ok {
				writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Node not found"})
				return
			}
			writeJSON(w, http.StatusOK, loc)
		})
		r.Get("/export", func(w http.ResponseWriter, r *http.Request) {
			record(r)
			w.Write([]byte(`{"exported":true}`))
		})
	})
	r.Post("/projects/import", func(w http.ResponseWriter, r *http.Request) {
		last.method, last.path = r.Method, r.URL.Path
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"detail": []map[string]any{{"loc": []string{"body", "file"}, "msg": "field required"}}})
			return
		}
		p := doc
		p.Name = r.FormValue("project_name")
		writeJSON(w, http.StatusOK, p)
	})

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, last
}

func newTestClient(t *testing.T, url string, opts ...Option) *Client {
	t.Helper()
	c, err := New(url, opts...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return c
}

func TestNew(t *testing.T) {
	c, err := New("")
	if err != nil || c.BaseURL() != DefaultBaseURL {
		t.Errorf("New(\"\") = %v, %v", c, err)
	}
	c, _ = New("http://example.com:8000/")
	if c.BaseURL() != "http://example.com:8000" {
		t.Errorf("BaseURL() = %q", c.BaseURL())
	}
	for _, bad := range []string{"not a url", "localhost:8000/x", "://x"} {
		if _, err := New(bad); !errors.Is(err, errors.ErrCodeInvalidInput) {
			t.Errorf("New(%q) error = %v, want INVALID_INPUT", bad, err)
		}
	}
}

func TestProjects(t *testing.T) {
	srv, last := newBackend(t)
	c := newTestClient(t, srv.URL)
	ctx := context.Background()

	list, err := c.ListProjects(ctx)
	if err != nil || len(list) != 1 || list[0].ID != "proj_1" {
		t.Fatalf("ListProjects() = %+v, %v", list, err)
	}

	p, err := c.GetProject(ctx, "proj_1")
	if err != nil {
		t.Fatalf("GetProject() error = %v", err)
	}
	if len(p.Chapters) != 1 || len(p.Edges) != 1 {
		t.Errorf("GetProject() = %+v", p)
	}

	if _, err := c.CreateProject(ctx, "  Algebra  "); err != nil {
		t.Fatalf("CreateProject() error = %v", err)
	}
	if last.body["name"] != "Algebra" {
		t.Errorf("CreateProject sent name %v, want trimmed", last.body["name"])
	}
	if _, err := c.CreateProject(ctx, "   "); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("CreateProject(blank) error = %v", err)
	}

	if _, err := c.RenameProject(ctx, "proj_1", "Renamed"); err != nil || last.method != http.MethodPut {
		t.Errorf("RenameProject() = %v via %s", err, last.method)
	}
	if err := c.DeleteProject(ctx, "proj_1"); err != nil || last.method != http.MethodDelete {
		t.Errorf("DeleteProject() = %v via %s", err, last.method)
	}
}

func TestStructureMutations(t *testing.T) {
	srv, last := newBackend(t)
	c := newTestClient(t, srv.URL)
	ctx := context.Background()
	name := "Renamed"

	tests := []struct {
		name   string
		call   func() error
		method string
		path   string
		body   map[string]any
	}{
		{"add chapter", func() error { _, err := c.AddChapter(ctx, "proj_1", "Series"); return err },
			"POST", "/projects/proj_1/chapters", map[string]any{"chapter_name": "Series"}},
		{"rename chapter", func() error { _, err := c.RenameChapter(ctx, "proj_1", "c1", "Limits II"); return err },
			"PUT", "/projects/proj_1/chapters/c1", map[string]any{"name": "Limits II"}},
		{"delete chapter", func() error { _, err := c.DeleteChapter(ctx, "proj_1", "c1"); return err },
			"DELETE", "/projects/proj_1/chapters/c1", nil},
		{"add section", func() error { _, err := c.AddSection(ctx, "proj_1", "c1", "Rules"); return err },
			"POST", "/projects/proj_1/sections", map[string]any{"chapter_id": "c1", "section_name": "Rules"}},
		{"rename section", func() error { _, err := c.RenameSection(ctx, "proj_1", "s1", "Intro II"); return err },
			"PUT", "/projects/proj_1/sections/s1", map[string]any{"name": "Intro II"}},
		{"delete section", func() error { _, err := c.DeleteSection(ctx, "proj_1", "s1"); return err },
			"DELETE", "/projects/proj_1/sections/s1", nil},
		{"add node", func() error {
			_, err := c.AddNode(ctx, "proj_1", NewNode{ChapterID: "c1", SectionID: "s1", Name: "Zeta", Content: "notes"})
			return err
		}, "POST", "/projects/proj_1/nodes", map[string]any{"chapter_id": "c1", "section_id": "s1", "node_name": "Zeta", "node_content": "notes"}},
		{"update node", func() error { _, err := c.UpdateNode(ctx, "proj_1", "n1", NodeUpdate{Name: &name}); return err },
			"PUT", "/projects/proj_1/nodes/n1", map[string]any{"name": "Renamed"}},
		{"delete node", func() error { _, err := c.DeleteNode(ctx, "proj_1", "n1"); return err },
			"DELETE", "/projects/proj_1/nodes/n1", nil},
		{"node position", func() error { _, err := c.UpdateNodePosition(ctx, "proj_1", "n1", "s1", 12.5, 40); return err },
			"PUT", "/projects/proj_1/nodes/position", map[string]any{"node_id": "n1", "section_id": "s1", "x": 12.5, "y": 40.0}},
		{"add edge", func() error { _, err := c.AddEdge(ctx, "proj_1", edges.Edge{Source: "n1", Target: "n2", Label: "next"}); return err },
			"POST", "/projects/proj_1/edges", map[string]any{"source": "n1", "target": "n2", "label": "next"}},
		{"update edge", func() error { _, err := c.UpdateEdge(ctx, "proj_1", edges.Edge{Source: "n1", Target: "n2", Label: "x"}); return err },
			"PUT", "/projects/proj_1/edges", map[string]any{"source": "n1", "target": "n2", "label": "x"}},
		{"delete edge", func() error { _, err := c.DeleteEdge(ctx, "proj_1", "n1", "n2"); return err },
			"DELETE", "/projects/proj_1/edges", map[string]any{"source": "n1", "target": "n2", "label": ""}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.call(); err != nil {
				t.Fatalf("error = %v", err)
			}
			if last.method != tt.method || last.path != tt.path {
				t.Errorf("request = %s %s, want %s %s", last.method, last.path, tt.method, tt.path)
			}
			for k, v := range tt.body {
				if last.body[k] != v {
					t.Errorf("body[%s] = %v, want %v", k, last.body[k], v)
				}
			}
		})
	}
}

func TestReorderSendsFullSequences(t *testing.T) {
	srv, last := newBackend(t)
	c := newTestClient(t, srv.URL)
	ctx := context.Background()

	order, _ := project.Move([]string{"n1", "n2", "n3"}, 2, 0)
	if _, err := c.ReorderNodes(ctx, "proj_1", "s1", order); err != nil {
		t.Fatal(err)
	}
	if last.path != "/projects/proj_1/nodes/reorder" || last.body["section_id"] != "s1" {
		t.Errorf("ReorderNodes sent %s %v", last.path, last.body)
	}
	if got := toStrings(last.body["node_ids"]); !slices.Equal(got, []string{"n3", "n1", "n2"}) {
		t.Errorf("node_ids = %v", got)
	}

	c.ReorderSections(ctx, "proj_1", "c1", []string{"s2", "s1"})
	if last.path != "/projects/proj_1/sections/reorder" || last.body["chapter_id"] != "c1" ||
		!slices.Equal(toStrings(last.body["section_ids"]), []string{"s2", "s1"}) {
		t.Errorf("ReorderSections sent %s %v", last.path, last.body)
	}

	c.ReorderChapters(ctx, "proj_1", nil)
	if last.path != "/projects/proj_1/chapters/reorder" {
		t.Errorf("ReorderChapters path = %s", last.path)
	}
	if ids, ok := last.body["chapter_ids"].([]any); !ok || len(ids) != 0 {
		t.Errorf("chapter_ids = %#v, want empty array", last.body["chapter_ids"])
	}
}

func toStrings(v any) []string {
	items, _ := v.([]any)
	out := make([]string, len(items))
	for i, it := range items {
		out[i], _ = it.(string)
	}
	return out
}

func TestAnalysisLocationExport(t *testing.T) {
	srv, last := newBackend(t)
	c := newTestClient(t, srv.URL)
	ctx := context.Background()

	a, err := c.AnalyzeGraph(ctx, "proj_1", "n2")
	if err != nil {
		t.Fatal(err)
	}
	if last.query != "focus_node=n2" || !slices.Equal(a.Ancestors, []string{"n1"}) {
		t.Errorf("AnalyzeGraph query=%q result=%+v", last.query, a)
	}

	loc, err := c.NodeLocation(ctx, "proj_1", "n2")
	if err != nil || loc.SectionID != "s1" || loc.Node.Name != "Delta" {
		t.Errorf("NodeLocation() = %+v, %v", loc, err)
	}
	if _, err := c.NodeLocation(ctx, "proj_1", "n9"); !errors.Is(err, errors.ErrCodeNotFound) {
		t.Errorf("NodeLocation(n9) error = %v, want NOT_FOUND", err)
	}

	data, err := c.ExportProject(ctx, "proj_1")
	if err != nil || string(data) != `{"exported":true}` {
		t.Errorf("ExportProject() = %s, %v", data, err)
	}

	p, err := c.ImportProject(ctx, "calc.json", strings.NewReader(`{}`), "Imported")
	if err != nil || p.Name != "Imported" {
		t.Errorf("ImportProject() = %+v, %v", p, err)
	}
}

func TestErrorMapping(t *testing.T) {
	srv, _ := newBackend(t)
	c := newTestClient(t, srv.URL)
	ctx := context.Background()

	_, err := c.GetProject(ctx, "missing")
	if !errors.Is(err, errors.ErrCodeNotFound) {
		t.Errorf("GetProject(missing) error = %v, want NOT_FOUND", err)
	}
	if errors.UserMessage(err) != "Project not found" {
		t.Errorf("UserMessage = %q", errors.UserMessage(err))
	}

	_, err = c.AddEdge(ctx, "proj_1", edges.Edge{Source: "n2", Target: "n1"})
	if !errors.Is(err, errors.ErrCodeInvalidInput) || !strings.Contains(err.Error(), "Cycle detected") {
		t.Errorf("AddEdge(cycle) error = %v", err)
	}

	if _, err := c.GetProject(ctx, "../etc"); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("GetProject(../etc) error = %v, want INVALID_INPUT", err)
	}
	if _, err := c.AddEdge(ctx, "proj_1", edges.Edge{Source: "n1"}); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("AddEdge(no target) error = %v", err)
	}
	long := edges.Edge{Source: "a", Target: "b", Label: strings.Repeat("x", project.MaxEdgeLabelLength+1)}
	if _, err := c.UpdateEdge(ctx, "proj_1", long); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("UpdateEdge(long label) error = %v", err)
	}
}

func TestValidationDetailList(t *testing.T) {
	got := detail([]byte(`{"detail":[{"loc":["body","name"],"msg":"field required"}]}`))
	if got != "name: field required" {
		t.Errorf("detail() = %q", got)
	}
	if got := detail([]byte("plain failure\n")); got != "plain failure" {
		t.Errorf("detail(plain) = %q", got)
	}
}

func TestServerErrorRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		json.NewEncoder(w).Encode([]project.Summary{{ID: "p"}})
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, WithRetry(httputil.Policy{Attempts: 3, Delay: time.Millisecond}))
	list, err := c.ListProjects(context.Background())
	if err != nil || len(list) != 1 {
		t.Fatalf("ListProjects() = %v, %v", list, err)
	}
	if calls.Load() != 3 {
		t.Errorf("calls = %d, want 3", calls.Load())
	}
}

func TestMutationNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, WithRetry(httputil.Policy{Attempts: 3, Delay: time.Millisecond}))
	_, err := c.AddChapter(context.Background(), "proj_1", "x")
	if !errors.Is(err, errors.ErrCodeNetwork) || !httputil.IsRetryable(err) {
		t.Errorf("AddChapter() error = %v, want retryable NETWORK_ERROR", err)
	}
	if calls.Load() != 1 {
		t.Errorf("calls = %d, want 1", calls.Load())
	}
}

func TestNetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := newTestClient(t, url)
	_, err := c.ListProjects(context.Background())
	if !errors.Is(err, errors.ErrCodeNetwork) || !httputil.IsRetryable(err) {
		t.Errorf("ListProjects() error = %v, want retryable NETWORK_ERROR", err)
	}
}

func TestHeaders(t *testing.T) {
	var ua, token string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ua, token = r.Header.Get("User-Agent"), r.Header.Get("X-Token")
		w.Write([]byte("[]"))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, WithHeader("X-Token", "abc"))
	c.ListProjects(context.Background())
	if !strings.HasPrefix(ua, "kdag/") || token != "abc" {
		t.Errorf("headers: User-Agent=%q X-Token=%q", ua, token)
	}
}
