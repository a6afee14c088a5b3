// Package mst builds the maximum spanning tree used by tree-augmented
// classifiers and turns it into a rooted set of directed edges.
package mst

import (
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/bayesnet/pkg/errors"
)

// Edge is a directed edge between two feature indices.
type Edge struct {
	From int
	To   int
}

type weightedEdge struct {
	weight float64
	u, v   int
}

// unionFind is a disjoint-set forest with path compression and union by rank.
type unionFind struct {
	parent []int
	rank   []int
}

func newUnionFind(n int) *unionFind {
	uf := &unionFind{parent: make([]int, n), rank: make([]int, n)}
	for i := range uf.parent {
		uf.parent[i] = i
	}
	return uf
}

func (uf *unionFind) find(x int) int {
	for uf.parent[x] != x {
		uf.parent[x] = uf.parent[uf.parent[x]]
		x = uf.parent[x]
	}
	return x
}

func (uf *unionFind) union(a, b int) bool {
	ra, rb := uf.find(a), uf.find(b)
	if ra == rb {
		return false
	}
	switch {
	case uf.rank[ra] < uf.rank[rb]:
		uf.parent[ra] = rb
	case uf.rank[ra] > uf.rank[rb]:
		uf.parent[rb] = ra
	default:
		uf.parent[rb] = ra
		uf.rank[ra]++
	}
	return true
}

// MaximumSpanningTree returns the edges of a maximum-weight spanning tree
// over the first len(features) rows/columns of weights, directed away from
// root in breadth-first order. Equal weights keep the (i, j) input order,
// so the result is reproducible.
func MaximumSpanningTree(features []string, weights mat.Matrix, root int) ([]Edge, error) {
	n := len(features)
	if n == 0 {
		return nil, errors.NewValidationError("features", "no features", n)
	}
	rows, cols := weights.Dims()
	if rows < n || cols < n {
		return nil, errors.NewDimensionError("MaximumSpanningTree", n, rows, 0)
	}
	if root < 0 || root >= n {
		return nil, errors.NewValidationError("root", "must be a feature index", root)
	}

	// 完全グラフ
	all := make([]weightedEdge, 0, n*(n-1)/2)
	for i := 0; i < n-1; i++ {
		for j := i + 1; j < n; j++ {
			all = append(all, weightedEdge{weight: weights.At(i, j), u: i, v: j})
		}
	}
	sort.SliceStable(all, func(a, b int) bool { return all[a].weight > all[b].weight })

	uf := newUnionFind(n)
	tree := make([]weightedEdge, 0, n-1)
	for _, e := range all {
		if uf.union(e.u, e.v) {
			tree = append(tree, e)
		}
	}
	return reorder(tree, root), nil
}

// reorder directs tree edges away from root, visiting nodes in FIFO order.
// Edges not reachable from root are appended as given.
func reorder(tree []weightedEdge, root int) []Edge {
	result := make([]Edge, 0, len(tree))
	pending := tree
	queue := []int{root}
	for len(queue) > 0 && len(pending) > 0 {
		current := queue[0]
		queue = queue[1:]

		remaining := pending[:0:0]
		for _, e := range pending {
			switch current {
			case e.u:
				result = append(result, Edge{From: e.u, To: e.v})
				queue = append(queue, e.v)
			case e.v:
				result = append(result, Edge{From: e.v, To: e.u})
				queue = append(queue, e.u)
			default:
				remaining = append(remaining, e)
			}
		}
		pending = remaining
	}
	for _, e := range pending {
		result = append(result, Edge{From: e.u, To: e.v})
	}
	return result
}
