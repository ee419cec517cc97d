package parser

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/badno/wcflat/internal/catalog"
	"github.com/badno/wcflat/pkg/models"
)

// ErrMissingIDColumn is returned when no header maps to the record id
var ErrMissingIDColumn = errors.New("no ID column in header")

// Record fields recognised in a WooCommerce export
const (
	FieldID               = "id"
	FieldParentID         = "parent_id"
	FieldTitle            = "title"
	FieldExcerpt          = "excerpt"
	FieldStatus           = "status"
	FieldRegularPrice     = "regular_price"
	FieldSalePrice        = "sale_price"
	FieldImages           = "images"
	FieldCategoryTaxonomy = "category_taxonomy"
)

// Columns tells the parser which headers feed which record field
type Columns struct {
	Aliases           map[string][]string // field -> accepted headers, first match wins
	AttributePrefixes []string            // e.g. "meta:attribute_pa_"
}

// DefaultColumns returns the WooCommerce export headers plus short aliases
func DefaultColumns() Columns {
	return Columns{
		Aliases: map[string][]string{
			FieldID:               {"ID"},
			FieldParentID:         {"post_parent", "parent_id"},
			FieldTitle:            {"post_title", "title"},
			FieldExcerpt:          {"post_excerpt", "excerpt"},
			FieldStatus:           {"post_status", "status"},
			FieldRegularPrice:     {"regular_price"},
			FieldSalePrice:        {"sale_price"},
			FieldImages:           {"images"},
			FieldCategoryTaxonomy: {"tax:product_cat", "category_taxonomy"},
		},
		AttributePrefixes: []string{"meta:attribute_pa_", "attribute_pa_"},
	}
}

// WooCommerceExport is a parsed export: records in file order plus the
// attribute schema resolved from the header
type WooCommerceExport struct {
	Header  []string
	Schema  models.Schema
	Records []models.ProductRecord
}

// ParseWooCommerceCSV parses a WooCommerce product export file
func ParseWooCommerceCSV(filepath string, cols Columns, variantAttributes []string) (*WooCommerceExport, error) {
	file, err := os.Open(filepath)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", filepath, err)
	}
	defer file.Close()

	return ReadWooCommerce(file, cols, variantAttributes)
}

// layout maps header positions to record fields and attributes
type layout struct {
	fields     map[string]int
	attributes map[string][]int // attribute name -> columns, first non-empty wins
	columns    map[string]string
}

func resolveLayout(header []string, cols Columns) (*layout, error) {
	l := &layout{
		fields:     make(map[string]int),
		attributes: make(map[string][]int),
		columns:    make(map[string]string),
	}

	for field, aliases := range cols.Aliases {
		for _, alias := range aliases {
			if idx := findColumn(header, alias); idx >= 0 {
				l.fields[field] = idx
				break
			}
		}
	}
	if _, ok := l.fields[FieldID]; !ok {
		return nil, ErrMissingIDColumn
	}

	for i, col := range header {
		name, ok := attributeName(col, cols.AttributePrefixes)
		if !ok {
			continue
		}
		if _, seen := l.columns[name]; !seen {
			l.columns[name] = strings.TrimSpace(col)
		}
		l.attributes[name] = append(l.attributes[name], i)
	}

	return l, nil
}

// attributeName strips the first matching prefix (case-insensitive) from a header
func attributeName(col string, prefixes []string) (string, bool) {
	col = strings.TrimSpace(col)
	for _, prefix := range prefixes {
		if len(col) > len(prefix) && strings.EqualFold(col[:len(prefix)], prefix) {
			if name := strings.TrimSpace(col[len(prefix):]); name != "" {
				return name, true
			}
		}
	}
	return "", false
}

// ReadWooCommerce reads a WooCommerce export from r
func ReadWooCommerce(r io.Reader, cols Columns, variantAttributes []string) (*WooCommerceExport, error) {
	reader := csv.NewReader(r)
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return &WooCommerceExport{Schema: catalog.NewSchema(nil, variantAttributes)}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	// Clean BOM from first column if present
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	l, err := resolveLayout(header, cols)
	if err != nil {
		return nil, err
	}

	export := &WooCommerceExport{
		Header: header,
		Schema: catalog.NewSchema(l.columns, variantAttributes),
	}

	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read record: %w", err)
		}
		line, _ := reader.FieldPos(0)

		if isBlank(row) {
			continue
		}

		rec := models.ProductRecord{
			ID:               strings.TrimSpace(l.cell(row, FieldID)),
			ParentID:         strings.TrimSpace(l.cell(row, FieldParentID)),
			Title:            strings.TrimSpace(l.cell(row, FieldTitle)),
			Excerpt:          l.cell(row, FieldExcerpt),
			Status:           strings.TrimSpace(l.cell(row, FieldStatus)),
			RegularPrice:     strings.TrimSpace(l.cell(row, FieldRegularPrice)),
			SalePrice:        strings.TrimSpace(l.cell(row, FieldSalePrice)),
			Images:           l.cell(row, FieldImages),
			CategoryTaxonomy: l.cell(row, FieldCategoryTaxonomy),
			Line:             line,
		}

		for name, idxs := range l.attributes {
			for _, idx := range idxs {
				if v := cellAt(row, idx); strings.TrimSpace(v) != "" {
					if rec.Attributes == nil {
						rec.Attributes = make(map[string]string)
					}
					rec.Attributes[name] = v
					break
				}
			}
		}

		export.Records = append(export.Records, rec)
	}

	return export, nil
}

func (l *layout) cell(row []string, field string) string {
	idx, ok := l.fields[field]
	if !ok {
		return ""
	}
	return cellAt(row, idx)
}

func cellAt(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}

func isBlank(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

func findColumn(header []string, name string) int {
	for i, col := range header {
		if strings.EqualFold(strings.TrimSpace(col), name) {
			return i
		}
	}
	return -1
}
