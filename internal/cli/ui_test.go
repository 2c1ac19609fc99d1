package cli

import (
	"bytes"
	"strings"
	"testing"

	"github.com/matzehuels/kdag/pkg/edges"
	"github.com/matzehuels/kdag/pkg/errors"
	"github.com/matzehuels/kdag/pkg/modecache"
)

func TestEdgeTable(t *testing.T) {
	out := edgeTable([]edges.RenderedEdge{
		{ID: "a-b", Source: "a", Target: "b", Label: "cites", Path: "M 0 0 Q 50 -35 100 0", LabelX: 50, LabelY: -17.5},
		{ID: "b-c", Source: "b", Target: "c", Path: "M 100 0 Q 150 -35 200 0", LabelX: 150, LabelY: -17.5},
	})
	for _, want := range []string{"a-b", "cites", "50.0, -17.5", "M 100 0 Q 150 -35 200 0", "—"} {
		if !strings.Contains(out, want) {
			t.Errorf("edge table missing %q:\n%s", want, out)
		}
	}
}

func TestDroppedLines(t *testing.T) {
	got := droppedLines([]edges.Dropped{
		{Index: 0, Source: "a", Target: "ghost", Reason: errors.ErrCodeMissingPosition},
		{Index: 3, Source: "", Target: "b", Reason: errors.ErrCodeMissingPosition},
		{Index: 4, Source: "c", Target: "c", Reason: errors.ErrCodeDegenerateGeometry},
	})
	want := []string{
		"#0 a → ghost: " + string(errors.ErrCodeMissingPosition),
		"#3 ? → b: " + string(errors.ErrCodeMissingPosition),
		"#4 c → c: " + string(errors.ErrCodeDegenerateGeometry),
	}
	if len(got) != len(want) {
		t.Fatalf("got %d lines, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("line %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestWriteSnapshot(t *testing.T) {
	var buf bytes.Buffer
	writeSnapshot(&buf, modecache.Snapshot{
		modecache.Node:    {"n2": {X: 1, Y: 2, Width: 3, Height: 4}, "n1": {X: 0.5, Y: 0, Width: 10, Height: 10}},
		modecache.Chapter: {"c1": {X: 0, Y: 0, Width: 800, Height: 600}},
	})
	out := buf.String()

	// Chapters print before nodes, and ids are sorted.
	if strings.Index(out, "chapter") > strings.Index(out, "node") {
		t.Errorf("chapter section should come first:\n%s", out)
	}
	if strings.Index(out, "n1") > strings.Index(out, "n2") {
		t.Errorf("ids should be sorted:\n%s", out)
	}
	if !strings.Contains(out, "0.5, 0  10×10") {
		t.Errorf("layout values missing:\n%s", out)
	}
	if strings.Contains(out, "section") {
		t.Errorf("empty entity types should be skipped:\n%s", out)
	}
}
