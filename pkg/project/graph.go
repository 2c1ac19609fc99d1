package project

import (
	"slices"
)

// MaxAnalysisPaths bounds the number of paths Analyze enumerates.
const MaxAnalysisPaths = 1000

// Analysis is the dependency neighborhood of a focus node.
type Analysis struct {
	Highlight   []string   `json:"highlight"`
	Paths       [][]string `json:"paths"`
	Ancestors   []string   `json:"ancestors"`
	Descendants []string   `json:"descendants"`
}

// adjacency builds parent and child lists over the project's nodes. Edges
// that mention unknown nodes still contribute, matching the backend graph.
func (p *Project) adjacency() (children, parents map[string][]string) {
	children = make(map[string][]string)
	parents = make(map[string][]string)
	for _, e := range p.Edges {
		if slices.Contains(children[e.Source], e.Target) {
			continue
		}
		children[e.Source] = append(children[e.Source], e.Target)
		parents[e.Target] = append(parents[e.Target], e.Source)
	}
	return children, parents
}

func (p *Project) hasNode(id string) bool {
	_, ok := p.Locate(id)
	if ok {
		return true
	}
	for _, e := range p.Edges {
		if e.Source == id || e.Target == id {
			return true
		}
	}
	return false
}

// Analyze returns the ancestors and descendants of focus together with
// every simple path from an ancestor to focus and from focus to a
// descendant. An empty or unknown focus yields an empty analysis.
func (p *Project) Analyze(focus string) Analysis {
	out := Analysis{Highlight: []string{}, Paths: [][]string{}, Ancestors: []string{}, Descendants: []string{}}
	if focus == "" || !p.hasNode(focus) {
		return out
	}
	children, parents := p.adjacency()

	out.Ancestors = reach(parents, focus)
	out.Descendants = reach(children, focus)
	out.Highlight = append(append(append(out.Highlight, out.Ancestors...), out.Descendants...), focus)

	// Walking parents from focus visits every ancestor->focus path reversed.
	walk(parents, focus, func(path []string) bool {
		rev := slices.Clone(path)
		slices.Reverse(rev)
		out.Paths = append(out.Paths, rev)
		return len(out.Paths) < MaxAnalysisPaths
	})
	walk(children, focus, func(path []string) bool {
		out.Paths = append(out.Paths, slices.Clone(path))
		return len(out.Paths) < MaxAnalysisPaths
	})
	return out
}

// reach returns every node reachable from start along adj, sorted.
func reach(adj map[string][]string, start string) []string {
	seen := map[string]bool{start: true}
	stack := []string{start}
	var out []string
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, m := range adj[n] {
			if !seen[m] {
				seen[m] = true
				out = append(out, m)
				stack = append(stack, m)
			}
		}
	}
	slices.Sort(out)
	if out == nil {
		out = []string{}
	}
	return out
}

// walk calls emit for every simple path of two or more nodes starting at
// start. It stops early when emit returns false.
func walk(adj map[string][]string, start string, emit func([]string) bool) {
	onPath := map[string]bool{start: true}
	path := []string{start}
	var dfs func(n string) bool
	dfs = func(n string) bool {
		for _, m := range adj[n] {
			if onPath[m] {
				continue
			}
			onPath[m] = true
			path = append(path, m)
			if !emit(path) || !dfs(m) {
				return false
			}
			path = path[:len(path)-1]
			onPath[m] = false
		}
		return true
	}
	dfs(start)
}

// WouldCycle reports whether adding source->target would close a cycle.
func (p *Project) WouldCycle(source, target string) bool {
	if source == target {
		return true
	}
	children, _ := p.adjacency()
	return slices.Contains(reach(children, target), source)
}

// Cycles returns back-edges found by a white/gray/black depth-first search
// over the project's edges. An acyclic project returns nil.
func (p *Project) Cycles() [][2]string {
	const (
		white = iota
		gray
		black
	)
	children, _ := p.adjacency()
	color := make(map[string]int)
	var back [][2]string

	var dfs func(n string)
	dfs = func(n string) {
		color[n] = gray
		for _, c := range children[n] {
			switch color[c] {
			case white:
				dfs(c)
			case gray:
				back = append(back, [2]string{n, c})
			}
		}
		color[n] = black
	}
	for _, e := range p.Edges {
		if color[e.Source] == white {
			dfs(e.Source)
		}
	}
	return back
}
