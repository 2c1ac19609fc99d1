package api

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"

	"github.com/matzehuels/kdag/pkg/edges"
	"github.com/matzehuels/kdag/pkg/errors"
	"github.com/matzehuels/kdag/pkg/project"
)

func projectPath(id string, rest ...string) (string, error) {
	if err := errors.ValidateID("project", id); err != nil {
		return "", err
	}
	for _, seg := range rest {
		if err := errors.ValidateID("path segment", seg); err != nil {
			return "", err
		}
	}
	return "/" + strings.Join(append([]string{"projects", id}, rest...), "/"), nil
}

// =============================================================================
// Projects
// =============================================================================

// ListProjects returns a summary row per project.
func (c *Client) ListProjects(ctx context.Context) ([]project.Summary, error) {
	var out []project.Summary
	if err := c.get(ctx, "/projects", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetProject fetches a full project document.
func (c *Client) GetProject(ctx context.Context, id string) (*project.Project, error) {
	p, err := projectPath(id)
	if err != nil {
		return nil, err
	}
	var out project.Project
	if err := c.get(ctx, p, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateProject creates an empty project.
func (c *Client) CreateProject(ctx context.Context, name string) (*project.Project, error) {
	name, err := errors.ValidateName("project", name)
	if err != nil {
		return nil, err
	}
	var out project.Project
	if err := c.send(ctx, http.MethodPost, "/projects", map[string]string{"name": name}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RenameProject changes a project's name.
func (c *Client) RenameProject(ctx context.Context, id, name string) (*project.Project, error) {
	name, err := errors.ValidateName("project", name)
	if err != nil {
		return nil, err
	}
	return c.mutate(ctx, http.MethodPut, id, map[string]string{"name": name})
}

// DeleteProject removes a project.
func (c *Client) DeleteProject(ctx context.Context, id string) error {
	p, err := projectPath(id)
	if err != nil {
		return err
	}
	return c.send(ctx, http.MethodDelete, p, nil, nil)
}

// mutate sends body to /projects/{id}/rest... and decodes the updated project.
func (c *Client) mutate(ctx context.Context, method, id string, body any, rest ...string) (*project.Project, error) {
	p, err := projectPath(id, rest...)
	if err != nil {
		return nil, err
	}
	var out project.Project
	if err := c.send(ctx, method, p, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// =============================================================================
// Chapters, sections, nodes
// =============================================================================

// AddChapter appends a chapter. An empty name lets the backend pick a default.
func (c *Client) AddChapter(ctx context.Context, projectID, name string) (*project.Project, error) {
	return c.mutate(ctx, http.MethodPost, projectID, map[string]string{"chapter_name": name}, "chapters")
}

// RenameChapter changes a chapter's name.
func (c *Client) RenameChapter(ctx context.Context, projectID, chapterID, name string) (*project.Project, error) {
	name, err := errors.ValidateName("chapter", name)
	if err != nil {
		return nil, err
	}
	return c.mutate(ctx, http.MethodPut, projectID, map[string]string{"name": name}, "chapters", chapterID)
}

// DeleteChapter removes a chapter with its sections and nodes.
func (c *Client) DeleteChapter(ctx context.Context, projectID, chapterID string) (*project.Project, error) {
	return c.mutate(ctx, http.MethodDelete, projectID, nil, "chapters", chapterID)
}

// AddSection appends a section to a chapter.
func (c *Client) AddSection(ctx context.Context, projectID, chapterID, name string) (*project.Project, error) {
	body := map[string]string{"chapter_id": chapterID, "section_name": name}
	return c.mutate(ctx, http.MethodPost, projectID, body, "sections")
}

// RenameSection changes a section's name.
func (c *Client) RenameSection(ctx context.Context, projectID, sectionID, name string) (*project.Project, error) {
	name, err := errors.ValidateName("section", name)
	if err != nil {
		return nil, err
	}
	return c.mutate(ctx, http.MethodPut, projectID, map[string]string{"name": name}, "sections", sectionID)
}

// DeleteSection removes a section with its nodes.
func (c *Client) DeleteSection(ctx context.Context, projectID, sectionID string) (*project.Project, error) {
	return c.mutate(ctx, http.MethodDelete, projectID, nil, "sections", sectionID)
}

// NewNode describes a node to add.
type NewNode struct {
	ChapterID string `json:"chapter_id"`
	SectionID string `json:"section_id"`
	Name      string `json:"node_name"`
	Content   string `json:"node_content"`
}

// AddNode appends a node to a section.
func (c *Client) AddNode(ctx context.Context, projectID string, n NewNode) (*project.Project, error) {
	return c.mutate(ctx, http.MethodPost, projectID, n, "nodes")
}

// NodeUpdate carries the fields to change; nil fields are left alone.
type NodeUpdate struct {
	Name    *string `json:"name,omitempty"`
	Content *string `json:"content,omitempty"`
}

// UpdateNode changes a node's name and/or content.
func (c *Client) UpdateNode(ctx context.Context, projectID, nodeID string, u NodeUpdate) (*project.Project, error) {
	if u.Name != nil {
		name, err := errors.ValidateName("node", *u.Name)
		if err != nil {
			return nil, err
		}
		u.Name = &name
	}
	return c.mutate(ctx, http.MethodPut, projectID, u, "nodes", nodeID)
}

// DeleteNode removes a node and every edge touching it.
func (c *Client) DeleteNode(ctx context.Context, projectID, nodeID string) (*project.Project, error) {
	return c.mutate(ctx, http.MethodDelete, projectID, nil, "nodes", nodeID)
}

// UpdateNodePosition stores a node's free-form placement within its section.
func (c *Client) UpdateNodePosition(ctx context.Context, projectID, nodeID, sectionID string, x, y float64) (*project.Project, error) {
	body := struct {
		NodeID    string  `json:"node_id"`
		SectionID string  `json:"section_id"`
		X         float64 `json:"x"`
		Y         float64 `json:"y"`
	}{nodeID, sectionID, x, y}
	return c.mutate(ctx, http.MethodPut, projectID, body, "nodes", "position")
}

// NodeLocation asks the backend where a node lives.
func (c *Client) NodeLocation(ctx context.Context, projectID, nodeID string) (*project.Location, error) {
	if err := errors.ValidateID("node", nodeID); err != nil {
		return nil, err
	}
	p, err := projectPath(projectID, "nodes", nodeID, "location")
	if err != nil {
		return nil, err
	}
	var out project.Location
	if err := c.get(ctx, p, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// =============================================================================
// Reorders (full ordered id arrays)
// =============================================================================

// ReorderNodes persists the node order of a section.
func (c *Client) ReorderNodes(ctx context.Context, projectID, sectionID string, nodeIDs []string) (*project.Project, error) {
	body := map[string]any{"section_id": sectionID, "node_ids": nonNil(nodeIDs)}
	return c.mutate(ctx, http.MethodPost, projectID, body, "nodes", "reorder")
}

// ReorderSections persists the section order of a chapter.
func (c *Client) ReorderSections(ctx context.Context, projectID, chapterID string, sectionIDs []string) (*project.Project, error) {
	body := map[string]any{"chapter_id": chapterID, "section_ids": nonNil(sectionIDs)}
	return c.mutate(ctx, http.MethodPost, projectID, body, "sections", "reorder")
}

// ReorderChapters persists the chapter order of a project.
func (c *Client) ReorderChapters(ctx context.Context, projectID string, chapterIDs []string) (*project.Project, error) {
	body := map[string]any{"chapter_ids": nonNil(chapterIDs)}
	return c.mutate(ctx, http.MethodPost, projectID, body, "chapters", "reorder")
}

func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}

// =============================================================================
// Edges
// =============================================================================

// AddEdge connects two nodes. The backend rejects edges that close a cycle.
func (c *Client) AddEdge(ctx context.Context, projectID string, e edges.Edge) (*project.Project, error) {
	if e.Source == "" || e.Target == "" {
		return nil, errors.New(errors.ErrCodeInvalidInput, "edge source and target are required")
	}
	return c.mutate(ctx, http.MethodPost, projectID, edgeBody(e), "edges")
}

// UpdateEdge relabels the edge between source and target.
func (c *Client) UpdateEdge(ctx context.Context, projectID string, e edges.Edge) (*project.Project, error) {
	if len([]rune(e.Label)) > project.MaxEdgeLabelLength {
		return nil, errors.New(errors.ErrCodeInvalidInput, "edge label too long (max %d characters)", project.MaxEdgeLabelLength)
	}
	return c.mutate(ctx, http.MethodPut, projectID, edgeBody(e), "edges")
}

// DeleteEdge removes the edge between source and target.
func (c *Client) DeleteEdge(ctx context.Context, projectID, source, target string) (*project.Project, error) {
	return c.mutate(ctx, http.MethodDelete, projectID, edgeBody(edges.Edge{Source: source, Target: target}), "edges")
}

func edgeBody(e edges.Edge) map[string]string {
	return map[string]string{"source": e.Source, "target": e.Target, "label": e.Label}
}

// =============================================================================
// Analysis, export, import
// =============================================================================

// AnalyzeGraph returns the ancestors, descendants and connecting paths of
// focusNode. An empty focus yields an empty analysis.
func (c *Client) AnalyzeGraph(ctx context.Context, projectID, focusNode string) (*project.Analysis, error) {
	p, err := projectPath(projectID, "graph_analysis")
	if err != nil {
		return nil, err
	}
	var q url.Values
	if focusNode != "" {
		q = url.Values{"focus_node": {focusNode}}
	}
	var out project.Analysis
	if err := c.get(ctx, p, q, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ExportProject downloads the backend's export file for a project.
func (c *Client) ExportProject(ctx context.Context, projectID string) ([]byte, error) {
	p, err := projectPath(projectID, "export")
	if err != nil {
		return nil, err
	}
	var data []byte
	err = c.policy.Do(ctx, func() error {
		var err error
		data, err = c.doRaw(ctx, http.MethodGet, p, nil, nil)
		return err
	})
	return data, err
}

// ImportProject uploads an export file as a new project. An empty name keeps
// the name stored in the file.
func (c *Client) ImportProject(ctx context.Context, filename string, r io.Reader, name string) (*project.Project, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "build upload")
	}
	if _, err := io.Copy(fw, r); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "read %s", filename)
	}
	if name != "" {
		if err := mw.WriteField("project_name", name); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInternal, err, "build upload")
		}
	}
	if err := mw.Close(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "build upload")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base.JoinPath("projects", "import").String(), &buf)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "build upload")
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	data, err := c.exchange(req)
	if err != nil {
		return nil, err
	}
	var out project.Project
	if err := decodeProject(data, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
