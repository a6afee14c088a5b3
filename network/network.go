// Package network holds the Bayesian network used by every classifier:
// an arena of discrete nodes with an acyclic edge set, CPT estimation from
// weighted counts and exact inference by variable elimination.
package network

import (
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"

	"github.com/YuminosukeSato/bayesnet/pkg/errors"
)

// Network is a directed acyclic graph of discrete variables. It is mutated
// only while its owner builds and fits it and is read-only afterwards.
type Network struct {
	nodes []*Node
	index map[string]int

	// features lists every node name in insertion order, class included.
	features  []string
	className string
	root      int

	// dag mirrors the edge set; node IDs are arena handles.
	dag *simple.DirectedGraph

	// Set by Fit.
	fitted         bool
	fitFeatures    []string
	classNumStates int
	smoothing      Smoothing
	samples        [][]int
}

// New returns an empty network.
func New() *Network {
	return &Network{
		index: make(map[string]int),
		root:  -1,
		dag:   simple.NewDirectedGraph(),
	}
}

// Initialize drops every node, edge and fitted table.
func (n *Network) Initialize() {
	*n = *New()
}

// AddNode registers a variable with numStates states. Registering an
// existing name updates its cardinality in place. The first node added
// becomes the root.
func (n *Network) AddNode(name string, numStates int) error {
	if n.fitted {
		return errors.NewValueError("Network.AddNode", "cannot add a node to a fitted network, call Initialize first")
	}
	if name == "" {
		return errors.NewValidationError("name", "node name cannot be empty", name)
	}
	if numStates < 0 {
		return errors.NewValidationError(name, "number of states must be non-negative", numStates)
	}
	if h, ok := n.index[name]; ok {
		n.nodes[h].numStates = numStates
		return nil
	}
	h := len(n.nodes)
	n.nodes = append(n.nodes, &Node{name: name, numStates: numStates})
	n.index[name] = h
	n.features = append(n.features, name)
	n.dag.AddNode(simple.Node(h))
	if n.root < 0 {
		n.root = h
	}
	return nil
}

// AddEdge adds parent -> child. Adding an existing edge is a no-op. An
// edge that would close a cycle is rolled back and reported as a
// StructuralViolationError; the graph is unchanged in that case.
func (n *Network) AddEdge(parent, child string) error {
	if n.fitted {
		return errors.NewValueError("Network.AddEdge", "cannot add an edge to a fitted network, call Initialize first")
	}
	p, ok := n.index[parent]
	if !ok {
		return errors.NewValidationError("parent", "node not found in network", parent)
	}
	c, ok := n.index[child]
	if !ok {
		return errors.NewValidationError("child", "node not found in network", child)
	}
	if p == c {
		return errors.NewStructuralViolationError(parent, child, "self loops are not allowed")
	}
	if n.dag.HasEdgeFromTo(int64(p), int64(c)) {
		return nil
	}

	n.dag.SetEdge(n.dag.NewEdge(simple.Node(p), simple.Node(c)))
	if _, err := topo.Sort(n.dag); err != nil {
		n.dag.RemoveEdge(int64(p), int64(c))
		return errors.NewStructuralViolationError(parent, child, "adding this edge forms a cycle in the graph")
	}
	n.nodes[p].children = append(n.nodes[p].children, c)
	n.nodes[c].parents = append(n.nodes[c].parents, p)
	return nil
}

// SetRoot marks name as the root node.
func (n *Network) SetRoot(name string) error {
	h, ok := n.index[name]
	if !ok {
		return errors.NewValidationError("root", "node not found in network", name)
	}
	n.root = h
	return nil
}

// Root returns the root node name, or "" for an empty network.
func (n *Network) Root() string {
	if n.root < 0 {
		return ""
	}
	return n.nodes[n.root].name
}

// Node returns the node registered as name.
func (n *Network) Node(name string) (*Node, bool) {
	h, ok := n.index[name]
	if !ok {
		return nil, false
	}
	return n.nodes[h], true
}

// Features returns every node name in insertion order, class included.
func (n *Network) Features() []string { return append([]string(nil), n.features...) }

// ClassName returns the class variable set by Fit.
func (n *Network) ClassName() string { return n.className }

// ClassNumStates returns the cardinality of the class set by Fit.
func (n *Network) ClassNumStates() int { return n.classNumStates }

// IsFitted reports whether Fit succeeded.
func (n *Network) IsFitted() bool { return n.fitted }

// Parents returns the parent names of name in insertion order.
func (n *Network) Parents(name string) []string {
	return n.names(name, func(nd *Node) []int { return nd.parents })
}

// Children returns the child names of name in insertion order.
func (n *Network) Children(name string) []string {
	return n.names(name, func(nd *Node) []int { return nd.children })
}

func (n *Network) names(name string, pick func(*Node) []int) []string {
	h, ok := n.index[name]
	if !ok {
		return nil
	}
	handles := pick(n.nodes[h])
	out := make([]string, len(handles))
	for i, c := range handles {
		out[i] = n.nodes[c].name
	}
	return out
}

// Edges returns every (parent, child) pair, parents sorted by name.
func (n *Network) Edges() [][2]string {
	var edges [][2]string
	for _, h := range n.sortedHandles() {
		for _, c := range n.nodes[h].children {
			edges = append(edges, [2]string{n.nodes[h].name, n.nodes[c].name})
		}
	}
	return edges
}

// NumberOfNodes returns the number of variables, class included.
func (n *Network) NumberOfNodes() int { return len(n.nodes) }

// NumberOfEdges returns the number of edges.
func (n *Network) NumberOfEdges() int {
	total := 0
	for _, nd := range n.nodes {
		total += len(nd.children)
	}
	return total
}

// NumberOfStates returns the sum of every node's cardinality.
func (n *Network) NumberOfStates() int {
	total := 0
	for _, nd := range n.nodes {
		total += nd.numStates
	}
	return total
}

func (n *Network) sortedHandles() []int {
	handles := make([]int, len(n.nodes))
	for i := range handles {
		handles[i] = i
	}
	sort.Slice(handles, func(a, b int) bool { return n.nodes[handles[a]].name < n.nodes[handles[b]].name })
	return handles
}

// TopologicalOrder returns node names so every parent precedes its
// children. Ties follow insertion order.
func (n *Network) TopologicalOrder() ([]string, error) {
	sorted, err := topo.SortStabilized(n.dag, func(nodes []graph.Node) {
		sort.Slice(nodes, func(a, b int) bool { return nodes[a].ID() < nodes[b].ID() })
	})
	if err != nil {
		return nil, errors.Wrap(err, "topological order")
	}
	order := make([]string, len(sorted))
	for i, nd := range sorted {
		order[i] = n.nodes[nd.ID()].name
	}
	return order, nil
}

// Clone returns a deep copy sharing no mutable state with n.
func (n *Network) Clone() *Network {
	c := New()
	for _, nd := range n.nodes {
		h := len(c.nodes)
		c.nodes = append(c.nodes, nd.clone())
		c.index[nd.name] = h
		c.dag.AddNode(simple.Node(h))
	}
	for p, nd := range n.nodes {
		for _, ch := range nd.children {
			c.dag.SetEdge(c.dag.NewEdge(simple.Node(p), simple.Node(ch)))
		}
	}
	c.features = append([]string(nil), n.features...)
	c.className = n.className
	c.root = n.root
	c.fitted = n.fitted
	c.fitFeatures = append([]string(nil), n.fitFeatures...)
	c.classNumStates = n.classNumStates
	c.smoothing = n.smoothing
	c.samples = make([][]int, len(n.samples))
	for i, col := range n.samples {
		c.samples[i] = append([]int(nil), col...)
	}
	return c
}

// checkFitData validates shapes and names before anything is modified.
func (n *Network) checkFitData(X [][]int, y []int, weights []float64, featureNames []string, className string, states map[string]int) error {
	nSamples := len(y)
	if nSamples == 0 {
		return errors.NewValidationError("y", "no samples", 0)
	}
	if weights != nil && len(weights) != nSamples {
		return errors.NewDimensionError("Network.Fit", nSamples, len(weights), 0)
	}
	if len(X) != len(featureNames) {
		return errors.NewDimensionError("Network.Fit", len(featureNames), len(X), 1)
	}
	if len(n.features) == 0 {
		return errors.NewValueError("Network.Fit", "the network has not been initialized, call AddNode before Fit")
	}
	if len(X) != len(n.features)-1 {
		return errors.NewDimensionError("Network.Fit", len(n.features)-1, len(X), 1)
	}
	if _, ok := n.index[className]; !ok {
		return errors.NewValidationError("className", "class name not found in network features", className)
	}
	seen := make(map[string]struct{}, len(featureNames))
	for i, f := range featureNames {
		if f == className {
			return errors.NewValidationError("features", "class name listed as a feature", f)
		}
		if _, dup := seen[f]; dup {
			return errors.NewValidationError("features", "duplicated feature", f)
		}
		seen[f] = struct{}{}
		if _, ok := n.index[f]; !ok {
			return errors.NewValidationError("features", "feature not found in network features", f)
		}
		if len(X[i]) != nSamples {
			return errors.NewDimensionError("Network.Fit", nSamples, len(X[i]), 0)
		}
	}
	check := func(name string, column []int) error {
		card, ok := states[name]
		if !ok {
			return errors.NewValidationError("states", "variable not found in states", name)
		}
		if card <= 0 {
			return errors.NewValidationError(name, "number of states must be positive", card)
		}
		for _, v := range column {
			if v < 0 || v >= card {
				return errors.NewValidationError(name, "value outside the declared states", v)
			}
		}
		return nil
	}
	for i, f := range featureNames {
		if err := check(f, X[i]); err != nil {
			return err
		}
	}
	if err := check(className, y); err != nil {
		return err
	}
	if weights != nil {
		for _, w := range weights {
			if w < 0 {
				return errors.NewValidationError("weights", "must be non-negative", w)
			}
		}
		if floats.Sum(weights) == 0 {
			return errors.NewValidationError("weights", "sum must be positive", 0)
		}
	}
	return nil
}

// Fit estimates every CPT. X holds one column per feature (X[i] are the
// values of featureNames[i]), y the class values. weights may be nil for
// uniform weights; otherwise they are rescaled to sum to the number of
// samples before counting.
func (n *Network) Fit(X [][]int, y []int, weights []float64, featureNames []string, className string, states map[string]int, smoothing Smoothing) error {
	if err := n.checkFitData(X, y, weights, featureNames, className, states); err != nil {
		return err
	}
	nSamples := len(y)

	w := make([]float64, nSamples)
	if weights == nil {
		for i := range w {
			w[i] = 1
		}
	} else {
		copy(w, weights)
		floats.Scale(float64(nSamples)/floats.Sum(w), w)
	}

	columns := make([][]int, len(n.nodes))
	for i, f := range featureNames {
		columns[n.index[f]] = append([]int(nil), X[i]...)
	}
	columns[n.index[className]] = append([]int(nil), y...)

	for name, h := range n.index {
		n.nodes[h].numStates = states[name]
	}
	for h, nd := range n.nodes {
		nd.computeCPT(h, n.nodes, columns, w, smoothing.pseudoCount(nSamples, nd.numStates))
	}

	n.className = className
	n.classNumStates = states[className]
	n.fitFeatures = append([]string(nil), featureNames...)
	n.smoothing = smoothing
	n.samples = columns
	n.fitted = true
	return nil
}

// Smoothing returns the policy used by the last Fit.
func (n *Network) Smoothing() Smoothing { return n.smoothing }

// Samples returns the fitted dataset, one column per node handle.
func (n *Network) Samples() [][]int { return n.samples }
