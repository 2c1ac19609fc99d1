// Package project defines the outline document the editor works on.
//
// A [Project] holds chapters, each chapter holds sections, each section holds
// nodes, and labeled edges connect nodes across the whole project. The
// document is replaced wholesale on every load; nothing in this package
// mutates a loaded document in place. Helpers that change structure return
// new values.
package project

import (
	"github.com/matzehuels/kdag/pkg/edges"
	"github.com/matzehuels/kdag/pkg/errors"
)

// MaxEdgeLabelLength is the longest edge label accepted on update.
const MaxEdgeLabelLength = 100

// Node is a single knowledge item. Position is its ordering index within the
// section; X and Y are its free-form placement when the user dragged it.
type Node struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Content  string   `json:"content"`
	Position *float64 `json:"position,omitempty"`
	X        *float64 `json:"x,omitempty"`
	Y        *float64 `json:"y,omitempty"`
}

// Section groups nodes inside a chapter.
type Section struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Nodes []Node `json:"nodes"`
}

// Chapter groups sections.
type Chapter struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Sections []Section `json:"sections"`
}

// Project is a full outline document.
type Project struct {
	ID        string       `json:"id"`
	Name      string       `json:"name"`
	CreatedAt string       `json:"created_at"`
	UpdatedAt string       `json:"updated_at"`
	Chapters  []Chapter    `json:"chapters"`
	Edges     []edges.Edge `json:"edges"`
}

// Summary is one row of a project listing.
type Summary struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

// Location says where a node lives in the outline.
type Location struct {
	ChapterID   string `json:"chapter_id"`
	ChapterName string `json:"chapter_name"`
	SectionID   string `json:"section_id"`
	SectionName string `json:"section_name"`
	Node        Node   `json:"node"`
}

// Validate checks names and edge endpoints. Names must already be trimmed.
func (p *Project) Validate() error {
	if err := errors.ValidateID("project", p.ID); err != nil {
		return err
	}
	if err := checkName("project", p.Name); err != nil {
		return err
	}
	for _, c := range p.Chapters {
		if err := checkName("chapter", c.Name); err != nil {
			return err
		}
		for _, s := range c.Sections {
			if err := checkName("section", s.Name); err != nil {
				return err
			}
			for _, n := range s.Nodes {
				if err := checkName("node", n.Name); err != nil {
					return err
				}
			}
		}
	}
	for i, e := range p.Edges {
		if e.Source == "" || e.Target == "" {
			return errors.New(errors.ErrCodeInvalidInput, "edge %d: source and target are required", i)
		}
	}
	return nil
}

func checkName(kind, name string) error {
	trimmed, err := errors.ValidateName(kind, name)
	if err != nil {
		return err
	}
	if trimmed != name {
		return errors.New(errors.ErrCodeInvalidInput, "%s name %q has surrounding whitespace", kind, name)
	}
	return nil
}

// Clone returns a deep copy of p. A nil project clones to nil.
func (p *Project) Clone() *Project {
	if p == nil {
		return nil
	}
	out := *p
	out.Chapters = make([]Chapter, len(p.Chapters))
	for i, c := range p.Chapters {
		c.Sections = cloneSections(c.Sections)
		out.Chapters[i] = c
	}
	out.Edges = append([]edges.Edge(nil), p.Edges...)
	return &out
}

func cloneSections(in []Section) []Section {
	out := make([]Section, len(in))
	for i, s := range in {
		nodes := make([]Node, len(s.Nodes))
		for j, n := range s.Nodes {
			n.Position = cloneFloat(n.Position)
			n.X = cloneFloat(n.X)
			n.Y = cloneFloat(n.Y)
			nodes[j] = n
		}
		s.Nodes = nodes
		out[i] = s
	}
	return out
}

func cloneFloat(f *float64) *float64 {
	if f == nil {
		return nil
	}
	v := *f
	return &v
}

// Summary returns the listing row for p.
func (p *Project) Summary() Summary {
	return Summary{ID: p.ID, Name: p.Name, CreatedAt: p.CreatedAt, UpdatedAt: p.UpdatedAt}
}

// ChapterIDs returns chapter ids in display order.
func (p *Project) ChapterIDs() []string {
	ids := make([]string, len(p.Chapters))
	for i, c := range p.Chapters {
		ids[i] = c.ID
	}
	return ids
}

// SectionIDs returns the section ids of chapterID in display order.
func (p *Project) SectionIDs(chapterID string) ([]string, bool) {
	for _, c := range p.Chapters {
		if c.ID != chapterID {
			continue
		}
		ids := make([]string, len(c.Sections))
		for i, s := range c.Sections {
			ids[i] = s.ID
		}
		return ids, true
	}
	return nil, false
}

// NodeIDs returns the node ids of sectionID in display order.
func (p *Project) NodeIDs(sectionID string) ([]string, bool) {
	for _, c := range p.Chapters {
		for _, s := range c.Sections {
			if s.ID != sectionID {
				continue
			}
			ids := make([]string, len(s.Nodes))
			for i, n := range s.Nodes {
				ids[i] = n.ID
			}
			return ids, true
		}
	}
	return nil, false
}

// Locate finds the chapter and section holding nodeID.
func (p *Project) Locate(nodeID string) (Location, bool) {
	for _, c := range p.Chapters {
		for _, s := range c.Sections {
			for _, n := range s.Nodes {
				if n.ID == nodeID {
					return Location{
						ChapterID:   c.ID,
						ChapterName: c.Name,
						SectionID:   s.ID,
						SectionName: s.Name,
						Node:        n,
					}, true
				}
			}
		}
	}
	return Location{}, false
}

// Nodes returns every node in outline order.
func (p *Project) Nodes() []Node {
	var out []Node
	for _, c := range p.Chapters {
		for _, s := range c.Sections {
			out = append(out, s.Nodes...)
		}
	}
	return out
}

// NodeNames maps node ids to display names.
func (p *Project) NodeNames() map[string]string {
	names := make(map[string]string)
	for _, n := range p.Nodes() {
		names[n.ID] = n.Name
	}
	return names
}
