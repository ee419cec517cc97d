package models

// AttributeRole decides how an attribute column is rendered
type AttributeRole string

const (
	RoleVariant   AttributeRole = "variant"   // drives option combinations
	RoleMetafield AttributeRole = "metafield" // rendered as a descriptive custom field
)

// AttributeColumn describes one attribute-coded input column
type AttributeColumn struct {
	Name   string        `json:"name" yaml:"name"`     // attribute name, e.g. "color"
	Column string        `json:"column" yaml:"column"` // source header, e.g. "meta:attribute_pa_color"
	Role   AttributeRole `json:"role" yaml:"role"`
}

// Schema is the explicit attribute layout of an input, resolved once before
// any product is processed. Attributes are kept sorted by name.
type Schema struct {
	Attributes []AttributeColumn `json:"attributes" yaml:"attributes"`
}

// Names returns all attribute names in schema order
func (s Schema) Names() []string {
	names := make([]string, 0, len(s.Attributes))
	for _, a := range s.Attributes {
		names = append(names, a.Name)
	}
	return names
}

// ByRole returns attribute names with the given role, in schema order
func (s Schema) ByRole(role AttributeRole) []string {
	var names []string
	for _, a := range s.Attributes {
		if a.Role == role {
			names = append(names, a.Name)
		}
	}
	return names
}

// Role returns the role of an attribute and whether it is known
func (s Schema) Role(name string) (AttributeRole, bool) {
	for _, a := range s.Attributes {
		if a.Name == name {
			return a.Role, true
		}
	}
	return "", false
}
