package network

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/mat"
)

// Graph renders the network in DOT format. Nodes are listed by name, each
// followed by its outgoing edges.
func (n *Network) Graph(title string) []string {
	output := []string{
		"digraph BayesNet {\nlabel=<BayesNet " + title + ">\nfontsize=30\nfontcolor=blue\nlabelloc=t\nlayout=circo\n",
	}
	for _, h := range n.sortedHandles() {
		nd := n.nodes[h]
		style := ""
		if nd.name == n.className {
			style = ", fontcolor=red, fillcolor=lightblue, style=filled "
		}
		output = append(output, nd.name+" [shape=circle"+style+"] \n")
		for _, c := range nd.children {
			output = append(output, nd.name+" -> "+n.nodes[c].name)
		}
	}
	return append(output, "}\n")
}

// Show returns one line per node listing its children.
func (n *Network) Show() []string {
	result := make([]string, 0, len(n.nodes))
	for _, h := range n.sortedHandles() {
		var line strings.Builder
		line.WriteString(n.nodes[h].name + " -> ")
		for _, c := range n.nodes[h].children {
			line.WriteString(n.nodes[c].name + ", ")
		}
		result = append(result, line.String())
	}
	return result
}

// DumpCPT prints every CPT as a states x parent-configurations matrix.
func (n *Network) DumpCPT() string {
	var b strings.Builder
	for _, h := range n.sortedHandles() {
		nd := n.nodes[h]
		fmt.Fprintf(&b, "* %s: (%d) : %v\n", nd.name, nd.numStates, nd.dims)
		if len(nd.cpt) == 0 {
			b.WriteString("<not fitted>\n")
			continue
		}
		table := mat.NewDense(nd.numStates, nd.parentSpace(), append([]float64(nil), nd.cpt...))
		fmt.Fprintf(&b, "%.4f\n", mat.Formatted(table, mat.Squeeze()))
	}
	return b.String()
}
