package network

import (
	"gonum.org/v1/gonum/floats"
)

// Node is a discrete random variable of a Network. Parents and children
// are handles into the owning Network's arena, never pointers.
type Node struct {
	name      string
	numStates int
	parents   []int
	children  []int

	// cpt is row-major over dims = [numStates, parent states...].
	cpt  []float64
	dims []int
}

// Name returns the variable name.
func (n *Node) Name() string { return n.name }

// NumStates returns the cardinality of the variable.
func (n *Node) NumStates() int { return n.numStates }

// Dims returns the CPT shape: own states first, then one axis per parent.
func (n *Node) Dims() []int { return append([]int(nil), n.dims...) }

// CPT returns a copy of the conditional probability table in row-major
// order over Dims.
func (n *Node) CPT() []float64 { return append([]float64(nil), n.cpt...) }

func (n *Node) clone() *Node {
	return &Node{
		name:      n.name,
		numStates: n.numStates,
		parents:   append([]int(nil), n.parents...),
		children:  append([]int(nil), n.children...),
		cpt:       append([]float64(nil), n.cpt...),
		dims:      append([]int(nil), n.dims...),
	}
}

// parentSpace is the number of parent configurations.
func (n *Node) parentSpace() int {
	size := 1
	for _, d := range n.dims[1:] {
		size *= d
	}
	return size
}

// offset returns the flat CPT index of (own, parent values). value(h)
// yields the state of the variable with handle h.
func (n *Node) offset(own int, value func(h int) int) int {
	idx := own
	for k, p := range n.parents {
		idx = idx*n.dims[k+1] + value(p)
	}
	return idx
}

// computeCPT fills the table from weighted counts. self is the handle of n
// and columns[h] holds the values of the variable with handle h.
func (n *Node) computeCPT(self int, nodes []*Node, columns [][]int, weights []float64, pseudo float64) {
	n.dims = make([]int, 0, len(n.parents)+1)
	n.dims = append(n.dims, n.numStates)
	size := n.numStates
	for _, p := range n.parents {
		n.dims = append(n.dims, nodes[p].numStates)
		size *= nodes[p].numStates
	}
	n.cpt = make([]float64, size)
	for i := range n.cpt {
		n.cpt[i] = pseudo
	}

	own := columns[self]
	for s, w := range weights {
		idx := n.offset(own[s], func(h int) int { return columns[h][s] })
		n.cpt[idx] += w
	}

	// 親の組み合わせごとに自身の状態軸で正規化
	space := n.parentSpace()
	column := make([]float64, n.numStates)
	for o := 0; o < space; o++ {
		for k := 0; k < n.numStates; k++ {
			column[k] = n.cpt[k*space+o]
		}
		total := floats.Sum(column)
		for k := 0; k < n.numStates; k++ {
			n.cpt[k*space+o] = column[k] / total
		}
	}
}

// probability returns P(node = value(self) | parents = value(parents)).
func (n *Node) probability(self int, value func(h int) int) float64 {
	return n.cpt[n.offset(value(self), value)]
}

// factor materializes the node and its parents as a Factor.
func (n *Node) factor(nodes []*Node) Factor {
	vars := make([]string, 0, len(n.parents)+1)
	vars = append(vars, n.name)
	for _, p := range n.parents {
		vars = append(vars, nodes[p].name)
	}
	return Factor{
		Variables:     vars,
		Cardinalities: append([]int(nil), n.dims...),
		Values:        append([]float64(nil), n.cpt...),
	}
}
