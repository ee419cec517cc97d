package models

// RowKind tells which part of a product an output row represents
type RowKind string

const (
	RowPrimary RowKind = "primary" // main listing, stands in for the primary combination
	RowImage   RowKind = "image"   // additional image (position 2..k)
	RowVariant RowKind = "variant" // one non-primary option combination
)

// Option is one OptionK Name/Value pair
type Option struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// OutputRow is one row of the flattened Shopify table.
// Prices are kept as strings so that "no price" stays distinct from "0".
type OutputRow struct {
	Kind                  RowKind           `json:"kind"`
	Handle                string            `json:"handle"`
	Title                 string            `json:"title,omitempty"`
	Body                  string            `json:"body,omitempty"`
	Published             bool              `json:"published"`
	Tags                  string            `json:"tags,omitempty"`
	Metafields            map[string]string `json:"metafields,omitempty"`
	VariantPrice          string            `json:"variant_price,omitempty"`
	VariantCompareAtPrice string            `json:"variant_compare_at_price,omitempty"`
	VariantImage          string            `json:"variant_image,omitempty"`
	ImageSrc              string            `json:"image_src,omitempty"`
	ImageAlt              string            `json:"image_alt,omitempty"`
	ImagePosition         int               `json:"image_position,omitempty"` // 0 = no image on this row
	Options               []Option          `json:"options,omitempty"`
}

// HasPrice reports whether the row carries a variant price
func (r *OutputRow) HasPrice() bool {
	return r.VariantPrice != ""
}

// IsVariant reports whether the row represents a purchasable variant
// (the primary row or a variant row)
func (r *OutputRow) IsVariant() bool {
	return r.Kind == RowPrimary || r.Kind == RowVariant
}

// Table is a rectangular set of output rows: every row may carry any of the
// metafield Columns, in that order.
type Table struct {
	Columns []string    `json:"columns"` // metafield column names
	Rows    []OutputRow `json:"rows"`
}

// MaxOptions returns the largest number of option pairs on any row
func (t *Table) MaxOptions() int {
	max := 0
	for i := range t.Rows {
		if n := len(t.Rows[i].Options); n > max {
			max = n
		}
	}
	return max
}

// Handles returns distinct handles in first-seen order
func (t *Table) Handles() []string {
	seen := make(map[string]bool)
	var handles []string
	for i := range t.Rows {
		h := t.Rows[i].Handle
		if !seen[h] {
			seen[h] = true
			handles = append(handles, h)
		}
	}
	return handles
}
