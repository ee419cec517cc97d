package flatten

import (
	"fmt"
	"sort"
	"strings"

	"github.com/badno/wcflat/internal/catalog"
	"github.com/badno/wcflat/pkg/models"
)

const (
	CategoryColumn    = "Category (product.metafields.custom.category)"
	SubCategoryColumn = "Sub Category (product.metafields.custom.sub_category)"

	metafieldJoiner = "\n"
	cellDelimiter   = "|"
)

// MetafieldColumn returns the column name for an attribute metafield,
// e.g. "shoe_size" -> "Shoe Size (product.metafields.custom.shoe_size)"
func MetafieldColumn(attr string) string {
	return fmt.Sprintf("%s (product.metafields.custom.%s)", catalog.TitleCase(attr), attr)
}

// metafieldMapper decides the run-wide metafield columns and fills them per product
type metafieldMapper struct {
	attributes []string          // metafield-role attributes, sorted
	columns    []string          // output column names, in order
	byAttr     map[string]string // attribute -> column name
	categories bool
}

func newMetafieldMapper(schema models.Schema, categories bool) *metafieldMapper {
	m := &metafieldMapper{
		attributes: schema.ByRole(models.RoleMetafield),
		byAttr:     make(map[string]string),
		categories: categories,
	}

	if categories {
		m.columns = append(m.columns, CategoryColumn, SubCategoryColumn)
	}
	for _, attr := range m.attributes {
		col := MetafieldColumn(attr)
		m.byAttr[attr] = col
		m.columns = append(m.columns, col)
	}

	return m
}

// Columns returns the metafield column names of the run
func (m *metafieldMapper) Columns() []string {
	return append([]string(nil), m.columns...)
}

// Build computes the metafield values of one product. Empty values are omitted.
func (m *metafieldMapper) Build(group *models.ProductGroup, cat *catalog.Catalog) map[string]string {
	values := make(map[string]string)

	if m.categories {
		pair := catalog.ExtractCategory(group.Parent.CategoryTaxonomy)
		if pair.Category != "" {
			values[CategoryColumn] = pair.Category
		}
		if pair.Subcategory != "" {
			values[SubCategoryColumn] = pair.Subcategory
		}
	}

	for _, attr := range m.attributes {
		v := strings.Join(cat.Values[attr], metafieldJoiner)
		if v == "" {
			v = parentMetafield(group.Parent.Attribute(attr))
		}
		if v != "" {
			values[m.byAttr[attr]] = v
		}
	}

	return values
}

// parentMetafield renders a parent attribute cell when no child carries the attribute
func parentMetafield(raw string) string {
	if strings.Contains(raw, cellDelimiter) {
		entries := catalog.SplitCell(raw)
		sort.Strings(entries)
		return strings.Join(entries, metafieldJoiner)
	}
	return strings.TrimSpace(raw)
}
