package export

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/kdag/pkg/project"
)

// Options configures diagram generation.
type Options struct {
	// Detailed appends node content below the node name.
	Detailed bool

	// Highlight colors the nodes named by a graph analysis. Nil draws
	// every node white.
	Highlight *project.Analysis

	// RankDir is the Graphviz rank direction. Empty or unknown means TB.
	RankDir string
}

const (
	focusFill      = "#fde68a"
	ancestorFill   = "#bfdbfe"
	descendantFill = "#bbf7d0"
	maxContentRune = 60
)

// ToDOT converts a project to Graphviz DOT source.
//
// Edge endpoints that name no node in the outline are still emitted; Graphviz
// draws them as bare nodes so a broken reference stays visible.
func ToDOT(p *project.Project, opts Options) string {
	rankdir := strings.ToUpper(opts.RankDir)
	switch rankdir {
	case "TB", "LR", "BT", "RL":
	default:
		rankdir = "TB"
	}

	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	fmt.Fprintf(&buf, "  rankdir=%s;\n", rankdir)
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  compound=true;\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=14, margin=\"0.2,0.1\"];\n")
	buf.WriteString("  edge [fontsize=11];\n")
	buf.WriteString("  ranksep=0.5;\n")
	buf.WriteString("  nodesep=0.3;\n")

	fills := highlightFills(opts.Highlight)
	for _, c := range p.Chapters {
		fmt.Fprintf(&buf, "\n  subgraph %q {\n", "cluster_"+c.ID)
		fmt.Fprintf(&buf, "    label=%q;\n", c.Name)
		buf.WriteString("    style=\"rounded\";\n")
		for _, s := range c.Sections {
			fmt.Fprintf(&buf, "    subgraph %q {\n", "cluster_"+s.ID)
			fmt.Fprintf(&buf, "      label=%q;\n", s.Name)
			buf.WriteString("      style=\"rounded,dashed\";\n")
			for _, n := range s.Nodes {
				fmt.Fprintf(&buf, "      %q [%s];\n", n.ID, strings.Join(nodeAttrs(n, opts.Detailed, fills), ", "))
			}
			buf.WriteString("    }\n")
		}
		buf.WriteString("  }\n")
	}

	if len(p.Edges) > 0 {
		buf.WriteString("\n")
	}
	for _, e := range p.Edges {
		if e.Label == "" {
			fmt.Fprintf(&buf, "  %q -> %q;\n", e.Source, e.Target)
			continue
		}
		fmt.Fprintf(&buf, "  %q -> %q [label=%q];\n", e.Source, e.Target, e.Label)
	}

	buf.WriteString("}\n")
	return buf.String()
}

func highlightFills(a *project.Analysis) map[string]string {
	if a == nil {
		return nil
	}
	// Highlight holds the focus plus its neighborhood; the focus is the one
	// entry that is neither ancestor nor descendant.
	fills := make(map[string]string, len(a.Highlight))
	for _, id := range a.Highlight {
		fills[id] = focusFill
	}
	for _, id := range a.Ancestors {
		fills[id] = ancestorFill
	}
	for _, id := range a.Descendants {
		fills[id] = descendantFill
	}
	return fills
}

func nodeAttrs(n project.Node, detailed bool, fills map[string]string) []string {
	attrs := []string{fmt.Sprintf("label=%q", nodeLabel(n, detailed))}
	if fill, ok := fills[n.ID]; ok {
		attrs = append(attrs, fmt.Sprintf("fillcolor=%q", fill))
	}
	return attrs
}

func nodeLabel(n project.Node, detailed bool) string {
	name := n.Name
	if name == "" {
		name = n.ID
	}
	content := strings.TrimSpace(n.Content)
	if !detailed || content == "" {
		return name
	}
	if r := []rune(content); len(r) > maxContentRune {
		content = string(r[:maxContentRune-1]) + "…"
	}
	return name + "\n" + content
}

// RenderSVG renders DOT source to SVG using Graphviz.
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return normalizeViewBox(buf.Bytes()), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

// normalizeViewBox swaps Graphviz's pt-sized root element for one with a
// zero-origin viewBox so the SVG scales inside a webview.
func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}

	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}

	root := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`,
		w, h, w, h)
	return svgTagRe.ReplaceAll(svg, []byte(root))
}
