package network

import (
	"github.com/YuminosukeSato/bayesnet/pkg/errors"
)

// Factor is a dense table over the Cartesian product of its variables'
// states, row-major with the last variable varying fastest. Operations
// never modify their receiver.
type Factor struct {
	Variables     []string
	Cardinalities []int
	Values        []float64
}

// NewFactor validates the table size against the cardinalities.
func NewFactor(variables []string, cardinalities []int, values []float64) (Factor, error) {
	if len(variables) != len(cardinalities) {
		return Factor{}, errors.NewDimensionError("NewFactor", len(variables), len(cardinalities), 1)
	}
	size := 1
	for i, c := range cardinalities {
		if c <= 0 {
			return Factor{}, errors.NewValidationError(variables[i], "cardinality must be positive", c)
		}
		size *= c
	}
	if len(values) != size {
		return Factor{}, errors.NewDimensionError("NewFactor", size, len(values), 0)
	}
	return Factor{
		Variables:     append([]string(nil), variables...),
		Cardinalities: append([]int(nil), cardinalities...),
		Values:        append([]float64(nil), values...),
	}, nil
}

// Clone returns a deep copy.
func (f Factor) Clone() Factor {
	return Factor{
		Variables:     append([]string(nil), f.Variables...),
		Cardinalities: append([]int(nil), f.Cardinalities...),
		Values:        append([]float64(nil), f.Values...),
	}
}

// Position returns the axis of v, or -1.
func (f Factor) Position(v string) int {
	for i, name := range f.Variables {
		if name == v {
			return i
		}
	}
	return -1
}

// Contains reports whether v is in the factor's scope.
func (f Factor) Contains(v string) bool { return f.Position(v) >= 0 }

func (f Factor) strides() []int {
	strides := make([]int, len(f.Cardinalities))
	stride := 1
	for i := len(f.Cardinalities) - 1; i >= 0; i-- {
		strides[i] = stride
		stride *= f.Cardinalities[i]
	}
	return strides
}

// Value returns the entry selected by assignment, which must cover every
// variable in scope.
func (f Factor) Value(assignment map[string]int) (float64, error) {
	idx := 0
	strides := f.strides()
	for i, v := range f.Variables {
		state, ok := assignment[v]
		if !ok {
			return 0, errors.NewValueError("Factor.Value", "missing assignment for "+v)
		}
		if state < 0 || state >= f.Cardinalities[i] {
			return 0, errors.NewValidationError(v, "state out of range", state)
		}
		idx += state * strides[i]
	}
	return f.Values[idx], nil
}

// odometer visits every assignment of cards in row-major order. For each
// stride vector it keeps the matching flat offset up to date.
func odometer(cards []int, strides [][]int, visit func(assignment, offsets []int)) {
	assignment := make([]int, len(cards))
	offsets := make([]int, len(strides))
	for {
		visit(assignment, offsets)
		d := len(cards) - 1
		for ; d >= 0; d-- {
			assignment[d]++
			for s := range strides {
				offsets[s] += strides[s][d]
			}
			if assignment[d] < cards[d] {
				break
			}
			for s := range strides {
				offsets[s] -= strides[s][d] * cards[d]
			}
			assignment[d] = 0
		}
		if d < 0 {
			return
		}
	}
}

// project maps the strides of f onto the axes of vars; absent variables
// get stride 0.
func (f Factor) project(vars []string) []int {
	own := f.strides()
	out := make([]int, len(vars))
	for i, v := range vars {
		if p := f.Position(v); p >= 0 {
			out[i] = own[p]
		}
	}
	return out
}

// Product multiplies f and g over the union of their scopes.
func (f Factor) Product(g Factor) Factor {
	vars := append([]string(nil), f.Variables...)
	cards := append([]int(nil), f.Cardinalities...)
	for i, v := range g.Variables {
		if !f.Contains(v) {
			vars = append(vars, v)
			cards = append(cards, g.Cardinalities[i])
		}
	}
	result := Factor{Variables: vars, Cardinalities: cards}
	result.Values = make([]float64, 0, tableSize(cards))
	odometer(cards, [][]int{f.project(vars), g.project(vars)}, func(_, offsets []int) {
		result.Values = append(result.Values, f.Values[offsets[0]]*g.Values[offsets[1]])
	})
	return result
}

// SumOut marginalizes v out of f. If v is not in scope f is returned as a copy.
func (f Factor) SumOut(v string) Factor {
	p := f.Position(v)
	if p < 0 {
		return f.Clone()
	}
	result := f.without(p)
	target := result.project(f.Variables)
	result.Values = make([]float64, tableSize(result.Cardinalities))
	k := 0
	odometer(f.Cardinalities, [][]int{target}, func(_, offsets []int) {
		result.Values[offsets[0]] += f.Values[k]
		k++
	})
	return result
}

// Reduce fixes v to state and drops it from the scope.
func (f Factor) Reduce(v string, state int) Factor {
	p := f.Position(v)
	if p < 0 {
		return f.Clone()
	}
	result := f.without(p)
	target := result.project(f.Variables)
	result.Values = make([]float64, tableSize(result.Cardinalities))
	k := 0
	odometer(f.Cardinalities, [][]int{target}, func(assignment, offsets []int) {
		if assignment[p] == state {
			result.Values[offsets[0]] = f.Values[k]
		}
		k++
	})
	return result
}

func (f Factor) without(p int) Factor {
	vars := make([]string, 0, len(f.Variables)-1)
	cards := make([]int, 0, len(f.Cardinalities)-1)
	for i := range f.Variables {
		if i != p {
			vars = append(vars, f.Variables[i])
			cards = append(cards, f.Cardinalities[i])
		}
	}
	return Factor{Variables: vars, Cardinalities: cards}
}

func tableSize(cards []int) int {
	size := 1
	for _, c := range cards {
		size *= c
	}
	return size
}
