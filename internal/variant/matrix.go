package variant

import (
	"math"
	"strings"
)

// Pair is one attribute value inside a combination
type Pair struct {
	Attribute string
	Value     string
}

// Combination assigns one value to every variant attribute, in attribute order
type Combination []Pair

// Values returns the combination values in attribute order
func (c Combination) Values() []string {
	values := make([]string, 0, len(c))
	for _, p := range c {
		values = append(values, p.Value)
	}
	return values
}

// String renders the combination as "Blue/M"
func (c Combination) String() string {
	return strings.Join(c.Values(), "/")
}

// Matrix enumerates the cartesian product of variant value sets.
// The first attribute varies slowest and the last fastest.
type Matrix struct {
	attributes []string
	values     [][]string
}

// NewMatrix creates a matrix over attributes and their sorted value sets
func NewMatrix(attributes []string, values [][]string) *Matrix {
	return &Matrix{attributes: attributes, values: values}
}

// Size returns the number of combinations, saturating at math.MaxInt
func (m *Matrix) Size() int {
	size := 1
	for _, set := range m.values {
		n := len(set)
		if n == 0 {
			return 0
		}
		if size > math.MaxInt/n {
			return math.MaxInt
		}
		size *= n
	}
	return size
}

// Primary returns the combination made of each attribute's first value.
// With no attributes it is the empty combination.
func (m *Matrix) Primary() Combination {
	if m.Size() == 0 {
		return nil
	}
	combo := make(Combination, len(m.attributes))
	for i, attr := range m.attributes {
		combo[i] = Pair{Attribute: attr, Value: m.values[i][0]}
	}
	return combo
}

// Each calls fn for every combination in generation order until fn returns false
func (m *Matrix) Each(fn func(Combination) bool) {
	if m.Size() == 0 {
		return
	}

	idx := make([]int, len(m.attributes))
	for {
		combo := make(Combination, len(m.attributes))
		for i, attr := range m.attributes {
			combo[i] = Pair{Attribute: attr, Value: m.values[i][idx[i]]}
		}
		if !fn(combo) {
			return
		}

		// odometer: advance the last attribute first
		pos := len(idx) - 1
		for pos >= 0 {
			idx[pos]++
			if idx[pos] < len(m.values[pos]) {
				break
			}
			idx[pos] = 0
			pos--
		}
		if pos < 0 {
			return
		}
	}
}

// All returns every combination in generation order
func (m *Matrix) All() []Combination {
	var all []Combination
	m.Each(func(c Combination) bool {
		all = append(all, c)
		return true
	})
	return all
}

// Additional returns every combination except the primary one, in generation order
func (m *Matrix) Additional() []Combination {
	var rest []Combination
	first := true
	m.Each(func(c Combination) bool {
		if first {
			first = false
			return true
		}
		rest = append(rest, c)
		return true
	})
	return rest
}
