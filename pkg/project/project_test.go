package project

import (
	"encoding/json"
	"slices"
	"testing"

	"github.com/matzehuels/kdag/pkg/edges"
	"github.com/matzehuels/kdag/pkg/errors"
)

func sample() *Project {
	x := 12.5
	return &Project{
		ID:   "proj_1",
		Name: "Calculus",
		Chapters: []Chapter{
			{ID: "c1", Name: "Limits", Sections: []Section{
				{ID: "s1", Name: "Intro", Nodes: []Node{
					{ID: "n1", Name: "Epsilon", X: &x},
					{ID: "n2", Name: "Delta"},
				}},
				{ID: "s2", Name: "Rules", Nodes: []Node{{ID: "n3", Name: "Squeeze"}}},
			}},
			{ID: "c2", Name: "Derivatives", Sections: []Section{
				{ID: "s3", Name: "Basics", Nodes: []Node{{ID: "n4", Name: "Slope"}}},
			}},
		},
		Edges: []edges.Edge{
			{Source: "n1", Target: "n2"},
			{Source: "n2", Target: "n3", Label: "implies"},
			{Source: "n3", Target: "n4"},
		},
	}
}

func TestDecodeLegacyEdges(t *testing.T) {
	in := `{"id":"p","name":"P","created_at":"","updated_at":"","chapters":[],"edges":[["a","b"],{"source":"b","target":"c","label":"x"}]}`
	var p Project
	if err := json.Unmarshal([]byte(in), &p); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if len(p.Edges) != 2 || p.Edges[0].Source != "a" || p.Edges[1].Label != "x" {
		t.Errorf("Edges = %+v", p.Edges)
	}
}

func TestValidate(t *testing.T) {
	if err := sample().Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}

	tests := []struct {
		name   string
		mutate func(p *Project)
	}{
		{"empty project name", func(p *Project) { p.Name = "" }},
		{"untrimmed chapter", func(p *Project) { p.Chapters[0].Name = " Limits" }},
		{"blank section", func(p *Project) { p.Chapters[0].Sections[0].Name = "  " }},
		{"long node", func(p *Project) { p.Chapters[1].Sections[0].Nodes[0].Name = string(make([]byte, 201)) }},
		{"edge without target", func(p *Project) { p.Edges[0].Target = "" }},
		{"bad id", func(p *Project) { p.ID = "../x" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := sample()
			tt.mutate(p)
			if err := p.Validate(); !errors.Is(err, errors.ErrCodeInvalidInput) {
				t.Errorf("Validate() error = %v, want INVALID_INPUT", err)
			}
		})
	}
}

func TestClone(t *testing.T) {
	p := sample()
	c := p.Clone()

	c.Name = "changed"
	c.Chapters[0].Name = "changed"
	c.Chapters[0].Sections[0].Nodes[0].Name = "changed"
	*c.Chapters[0].Sections[0].Nodes[0].X = 99
	c.Edges[0].Label = "changed"

	if p.Name != "Calculus" || p.Chapters[0].Name != "Limits" {
		t.Error("clone shares top-level fields")
	}
	n := p.Chapters[0].Sections[0].Nodes[0]
	if n.Name != "Epsilon" || *n.X != 12.5 {
		t.Errorf("clone shares nodes: %+v x=%v", n, *n.X)
	}
	if p.Edges[0].Label != "" {
		t.Error("clone shares edges")
	}

	var nilProject *Project
	if nilProject.Clone() != nil {
		t.Error("nil.Clone() != nil")
	}
}

func TestIDSequences(t *testing.T) {
	p := sample()
	if got := p.ChapterIDs(); !slices.Equal(got, []string{"c1", "c2"}) {
		t.Errorf("ChapterIDs() = %v", got)
	}
	if got, ok := p.SectionIDs("c1"); !ok || !slices.Equal(got, []string{"s1", "s2"}) {
		t.Errorf("SectionIDs(c1) = %v, %v", got, ok)
	}
	if _, ok := p.SectionIDs("nope"); ok {
		t.Error("SectionIDs(nope) found")
	}
	if got, ok := p.NodeIDs("s1"); !ok || !slices.Equal(got, []string{"n1", "n2"}) {
		t.Errorf("NodeIDs(s1) = %v, %v", got, ok)
	}
	if _, ok := p.NodeIDs("nope"); ok {
		t.Error("NodeIDs(nope) found")
	}
}

func TestLocate(t *testing.T) {
	p := sample()
	loc, ok := p.Locate("n3")
	if !ok {
		t.Fatal("Locate(n3) missing")
	}
	if loc.ChapterID != "c1" || loc.SectionID != "s2" || loc.SectionName != "Rules" || loc.Node.Name != "Squeeze" {
		t.Errorf("Locate(n3) = %+v", loc)
	}
	if _, ok := p.Locate("n9"); ok {
		t.Error("Locate(n9) found")
	}
}

func TestNodeNames(t *testing.T) {
	names := sample().NodeNames()
	if len(names) != 4 || names["n4"] != "Slope" {
		t.Errorf("NodeNames() = %v", names)
	}
}
