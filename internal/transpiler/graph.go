// Package transpiler implements the format-conversion graph: spec.md §4.2's
// labelled directed multigraph whose nodes are format tags and whose edges
// are single-argument conversion functions. Grounded on
// qunicorn_core/core/transpiler/transpiler_manager.py's TranspileManager
// (PyDiGraph + dijkstra_shortest_paths), reimplemented over container/heap
// since no graph library is present anywhere in the retrieved corpus.
//
// Like the format registry, the graph is process-wide and populated once at
// startup; it must not be mutated after workers begin (spec.md §9 "Global
// state").
package transpiler

import (
	"container/heap"
	"fmt"

	"github.com/perclft/qpilot/internal/domain"
	"github.com/perclft/qpilot/internal/qerr"
)

// EdgeFunc converts a value produced by the previous step (or the raw
// source string, for the first step) into the next step's input. Edge
// functions must be pure with respect to their input (spec.md §4.2).
type EdgeFunc func(any) (any, error)

// Edge is one step of a compiled plan.
type Edge struct {
	Src  domain.Format
	Dst  domain.Format
	Fn   EdgeFunc
}

// Graph is the conversion multigraph. At most one edge is kept per ordered
// (src, dst) pair; registering the same pair twice replaces the edge
// (spec.md §4.2 "Register edge ... idempotent per triple; duplicate
// registration replaces").
type Graph struct {
	adj map[domain.Format]map[domain.Format]EdgeFunc
}

// New returns an empty graph.
func New() *Graph {
	return &Graph{adj: make(map[domain.Format]map[domain.Format]EdgeFunc)}
}

// RegisterEdge adds or replaces the src->dst conversion edge.
func (g *Graph) RegisterEdge(src, dst domain.Format, fn EdgeFunc) {
	if _, ok := g.adj[src]; !ok {
		g.adj[src] = make(map[domain.Format]EdgeFunc)
	}
	if _, ok := g.adj[dst]; !ok {
		g.adj[dst] = make(map[domain.Format]EdgeFunc)
	}
	g.adj[src][dst] = fn
}

type distEntry struct {
	format domain.Format
	dist   int
}

// distHeap is a minimal binary heap over distEntry, the Go stand-in for the
// priority queue rustworkx's dijkstra_shortest_paths keeps internally. All
// edge weights are 1 (spec.md §4.2), so this degenerates to BFS ordering,
// but keeps the same "expand the nearest unvisited node" shape.
type distHeap []distEntry

func (h distHeap) Len() int            { return len(h) }
func (h distHeap) Less(i, j int) bool  { return h[i].dist < h[j].dist }
func (h distHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *distHeap) Push(x any)         { *h = append(*h, x.(distEntry)) }
func (h *distHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// shortestPaths runs Dijkstra from src over the graph and returns the
// distance and predecessor maps reachable from src.
func (g *Graph) shortestPaths(src domain.Format) (dist map[domain.Format]int, prev map[domain.Format]domain.Format) {
	dist = map[domain.Format]int{src: 0}
	prev = map[domain.Format]domain.Format{}
	visited := map[domain.Format]bool{}

	h := &distHeap{{format: src, dist: 0}}
	for h.Len() > 0 {
		cur := heap.Pop(h).(distEntry)
		if visited[cur.format] {
			continue
		}
		visited[cur.format] = true

		for next := range g.adj[cur.format] {
			nd := cur.dist + 1
			if d, ok := dist[next]; !ok || nd < d {
				dist[next] = nd
				prev[next] = cur.format
				heap.Push(h, distEntry{format: next, dist: nd})
			}
		}
	}
	return dist, prev
}

// Plan computes the shortest pipeline from src to any of candidates,
// choosing among equal-length reachable candidates the earliest one in
// candidates order (spec.md §4.2 invariant 3). Plan(F, [F]) returns an
// empty plan (invariant 1). Fails with qerr.Transpile/NoPath semantics if
// no candidate is reachable.
func (g *Graph) Plan(src domain.Format, candidates []domain.Format) ([]Edge, error) {
	if len(candidates) == 0 {
		return nil, qerr.New(qerr.Transpile, "no candidate target formats given")
	}

	dist, prev := g.shortestPaths(src)

	bestTarget := domain.Format("")
	bestDist := -1
	for _, c := range candidates {
		if c == src {
			// distance 0, nothing can beat it, and spec.md §4.2 demands
			// an empty plan for same-format input regardless of tie order.
			return nil, nil
		}
		d, ok := dist[c]
		if !ok {
			continue
		}
		if bestDist == -1 || d < bestDist {
			bestDist = d
			bestTarget = c
		}
	}
	if bestDist == -1 {
		return nil, qerr.New(qerr.Transpile, fmt.Sprintf("no transpilation path from %q to any of %v", src, candidates))
	}

	// Reconstruct path bestTarget -> ... -> src, then reverse it.
	var revNodes []domain.Format
	for n := bestTarget; ; {
		revNodes = append(revNodes, n)
		if n == src {
			break
		}
		n = prev[n]
	}
	nodes := make([]domain.Format, len(revNodes))
	for i, n := range revNodes {
		nodes[len(revNodes)-1-i] = n
	}

	edges := make([]Edge, 0, len(nodes)-1)
	for i := 0; i < len(nodes)-1; i++ {
		s, d := nodes[i], nodes[i+1]
		fn := g.adj[s][d]
		edges = append(edges, Edge{Src: s, Dst: d, Fn: fn})
	}
	return edges, nil
}

// Compile left-folds the plan's edge functions into one callable. An empty
// plan compiles to the identity function (spec.md §4.2 invariant 1).
func Compile(plan []Edge) func(any) (any, error) {
	return func(input any) (any, error) {
		cur := input
		for _, edge := range plan {
			next, err := edge.Fn(cur)
			if err != nil {
				return nil, qerr.Wrap(qerr.Transpile, fmt.Sprintf("edge %s->%s failed", edge.Src, edge.Dst), err)
			}
			cur = next
		}
		return cur, nil
	}
}
