package catalog

import (
	"sort"
	"strings"

	"github.com/badno/wcflat/pkg/models"
)

const cellSeparator = "|"

// DefaultVariantAttributes are the attribute names that drive option combinations
var DefaultVariantAttributes = []string{"size", "sizes", "color"}

// Catalog is the per-product view of attribute values across children
type Catalog struct {
	Values    map[string][]string // attribute -> sorted distinct child values
	Variant   []string            // attributes that produce option combinations, sorted
	Metafield []string            // remaining non-empty attributes, sorted
}

// SplitCell returns the entries of a raw attribute cell. A cell containing
// "|" is split and trimmed with empty pieces dropped; otherwise the trimmed
// cell is the single entry.
func SplitCell(raw string) []string {
	if strings.Contains(raw, cellSeparator) {
		var entries []string
		for _, piece := range strings.Split(raw, cellSeparator) {
			if piece = strings.TrimSpace(piece); piece != "" {
				entries = append(entries, piece)
			}
		}
		return entries
	}

	if v := strings.TrimSpace(raw); v != "" {
		return []string{v}
	}
	return nil
}

// CellValues returns every value a cell is considered to contain when
// matching: the trimmed cell itself plus each of its pipe pieces.
func CellValues(raw string) []string {
	whole := strings.TrimSpace(raw)
	if whole == "" {
		return nil
	}

	values := []string{whole}
	if strings.Contains(raw, cellSeparator) {
		for _, piece := range SplitCell(raw) {
			if piece != whole {
				values = append(values, piece)
			}
		}
	}
	return values
}

// IsVariantAttribute reports whether name is in the allow-list (case-insensitive)
func IsVariantAttribute(name string, allowList []string) bool {
	for _, allowed := range allowList {
		if strings.EqualFold(strings.TrimSpace(allowed), name) {
			return true
		}
	}
	return false
}

// NewSchema builds a schema from attribute name -> source column pairs.
// Attributes are sorted by name and assigned a role from the allow-list.
func NewSchema(columns map[string]string, variantAttributes []string) models.Schema {
	names := make([]string, 0, len(columns))
	for name := range columns {
		names = append(names, name)
	}
	sort.Strings(names)

	schema := models.Schema{Attributes: make([]models.AttributeColumn, 0, len(names))}
	for _, name := range names {
		role := models.RoleMetafield
		if IsVariantAttribute(name, variantAttributes) {
			role = models.RoleVariant
		}
		schema.Attributes = append(schema.Attributes, models.AttributeColumn{
			Name:   name,
			Column: columns[name],
			Role:   role,
		})
	}
	return schema
}

// BuildCatalog collects the distinct values of every schema attribute
// across the group's children and splits them by role. Attributes with
// no values among the children are left out of both lists.
func BuildCatalog(group *models.ProductGroup, schema models.Schema) *Catalog {
	cat := &Catalog{Values: make(map[string][]string)}

	for _, attr := range schema.Attributes {
		set := make(map[string]bool)
		for i := range group.Children {
			for _, v := range SplitCell(group.Children[i].Attribute(attr.Name)) {
				set[v] = true
			}
		}
		values := sortedKeys(set)
		if len(values) == 0 {
			continue
		}

		cat.Values[attr.Name] = values
		if attr.Role == models.RoleVariant {
			cat.Variant = append(cat.Variant, attr.Name)
		} else {
			cat.Metafield = append(cat.Metafield, attr.Name)
		}
	}

	return cat
}

// VariantValues returns the value sets of the variant attributes, in order
func (c *Catalog) VariantValues() [][]string {
	sets := make([][]string, 0, len(c.Variant))
	for _, name := range c.Variant {
		sets = append(sets, c.Values[name])
	}
	return sets
}
