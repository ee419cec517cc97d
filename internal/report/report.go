// Package report computes statistics, audits, filters and diffs over
// flattened Shopify tables.
package report

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/badno/wcflat/pkg/models"
)

// product is the set of rows sharing a handle
type product struct {
	handle string
	rows   []*models.OutputRow
}

// groupByHandle splits a table into products, in first-seen handle order.
// Rows of one handle need not be contiguous.
func groupByHandle(table *models.Table) []*product {
	index := make(map[string]*product)
	var products []*product
	for i := range table.Rows {
		row := &table.Rows[i]
		p, ok := index[row.Handle]
		if !ok {
			p = &product{handle: row.Handle}
			index[row.Handle] = p
			products = append(products, p)
		}
		p.rows = append(p.rows, row)
	}
	return products
}

// primary returns the first row of the product
func (p *product) primary() *models.OutputRow {
	return p.rows[0]
}

// prices returns every parseable variant price of the product
func (p *product) prices() []decimal.Decimal {
	var prices []decimal.Decimal
	for _, r := range p.rows {
		if d, ok := ParsePrice(r.VariantPrice); ok {
			prices = append(prices, d)
		}
	}
	return prices
}

// ParsePrice parses a price cell. Blank or malformed cells are not prices.
func ParsePrice(s string) (decimal.Decimal, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// SplitTags splits a comma-joined Tags cell into trimmed, non-empty tags
func SplitTags(tags string) []string {
	var out []string
	for _, t := range strings.Split(tags, ",") {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}
