package models

// ProductRecord represents a single row from a WooCommerce product export.
// Parents have an empty (or "0") ParentID; children reference a parent ID.
type ProductRecord struct {
	ID               string            `json:"id"`
	ParentID         string            `json:"parent_id,omitempty"`
	Title            string            `json:"title"`
	Excerpt          string            `json:"excerpt,omitempty"`
	Status           string            `json:"status,omitempty"`
	RegularPrice     string            `json:"regular_price,omitempty"`
	SalePrice        string            `json:"sale_price,omitempty"`
	Images           string            `json:"images,omitempty"`
	CategoryTaxonomy string            `json:"category_taxonomy,omitempty"`
	Attributes       map[string]string `json:"attributes,omitempty"` // attribute name -> raw cell
	Line             int               `json:"line,omitempty"`       // source line, diagnostics only
}

// IsParent reports whether the record is a top-level product
func (r *ProductRecord) IsParent() bool {
	return r.ParentID == "" || r.ParentID == "0"
}

// Attribute returns the raw cell for an attribute, or "" when absent
func (r *ProductRecord) Attribute(name string) string {
	if r.Attributes == nil {
		return ""
	}
	return r.Attributes[name]
}

// ProductGroup is one parent record and its children in source order
type ProductGroup struct {
	Parent   ProductRecord   `json:"parent"`
	Children []ProductRecord `json:"children,omitempty"`

	// Handle is unique within a run. Empty means derive it from the title.
	Handle string `json:"handle,omitempty"`
	// Tag replaces the taxonomy tags when set
	Tag string `json:"tag,omitempty"`
}

// ImageDescriptor is one entry of a parsed image string
type ImageDescriptor struct {
	URL      string `json:"url"`
	Alt      string `json:"alt"`
	Position int    `json:"position"`
}
