package variant

import (
	"github.com/RoaringBitmap/roaring"

	"github.com/badno/wcflat/internal/catalog"
	"github.com/badno/wcflat/pkg/models"
)

// Matcher finds the child record that best fits a combination.
// Children are indexed once by position: one bitmap per (attribute, value)
// and one wildcard bitmap per attribute for children with an empty cell.
type Matcher struct {
	children []models.ProductRecord
	all      *roaring.Bitmap
	postings map[string]map[string]*roaring.Bitmap
	wildcard map[string]*roaring.Bitmap
}

// NewMatcher indexes children on the given attributes
func NewMatcher(children []models.ProductRecord, attributes []string) *Matcher {
	m := &Matcher{
		children: children,
		all:      roaring.New(),
		postings: make(map[string]map[string]*roaring.Bitmap, len(attributes)),
		wildcard: make(map[string]*roaring.Bitmap, len(attributes)),
	}
	if len(children) > 0 {
		m.all.AddRange(0, uint64(len(children)))
	}

	for _, attr := range attributes {
		byValue := make(map[string]*roaring.Bitmap)
		wild := roaring.New()

		for pos := range children {
			values := catalog.CellValues(children[pos].Attribute(attr))
			if len(values) == 0 {
				wild.Add(uint32(pos))
				continue
			}
			for _, v := range values {
				bm, ok := byValue[v]
				if !ok {
					bm = roaring.New()
					byValue[v] = bm
				}
				bm.Add(uint32(pos))
			}
		}

		m.postings[attr] = byValue
		m.wildcard[attr] = wild
	}

	return m
}

// Match returns the first child, in source order, whose cells contain every
// value of the combination. Attributes the matcher was not built with do
// not constrain the match. The boolean is false when no child qualifies.
func (m *Matcher) Match(combo Combination) (*models.ProductRecord, bool) {
	candidates := m.all.Clone()

	for _, pair := range combo {
		wild, indexed := m.wildcard[pair.Attribute]
		if !indexed {
			continue
		}

		allowed := wild
		if bm, ok := m.postings[pair.Attribute][pair.Value]; ok {
			allowed = roaring.Or(bm, wild)
		}
		candidates.And(allowed)

		if candidates.IsEmpty() {
			return nil, false
		}
	}

	if candidates.IsEmpty() {
		return nil, false
	}
	return &m.children[candidates.Minimum()], true
}
