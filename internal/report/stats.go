package report

import (
	"github.com/shopspring/decimal"

	"github.com/badno/wcflat/internal/flatten"
	"github.com/badno/wcflat/pkg/models"
)

// ProductStats summarizes one product of a flattened table
type ProductStats struct {
	Handle        string
	Title         string
	Rows          int
	Variants      int // rows carrying a price
	Images        int // rows carrying an image position
	VariantImages int
	CompareAt     int // priced rows that also carry a compare-at price
	Options       int // option pairs on the primary row
	Tags          []string
	Category      string
	SubCategory   string
	MinPrice      decimal.Decimal
	MaxPrice      decimal.Decimal
	Priced        bool // at least one parseable price
	ZeroPrice     bool // a zero price, or no price at all
}

// Summary holds per-product statistics and table-wide counters
type Summary struct {
	Products          []*ProductStats
	TotalRows         int
	WithVariants      int // more than one priced row
	SingleVariant     int
	WithVariantImages int
	ZeroPrice         int
}

// Summarize computes statistics for every product in the table
func Summarize(table *models.Table) *Summary {
	s := &Summary{TotalRows: len(table.Rows)}

	for _, p := range groupByHandle(table) {
		ps := productStats(p)
		s.Products = append(s.Products, ps)

		switch {
		case ps.Variants > 1:
			s.WithVariants++
		case ps.Variants == 1:
			s.SingleVariant++
		}
		if ps.VariantImages > 0 {
			s.WithVariantImages++
		}
		if ps.ZeroPrice {
			s.ZeroPrice++
		}
	}

	return s
}

func productStats(p *product) *ProductStats {
	primary := p.primary()
	ps := &ProductStats{
		Handle:      p.handle,
		Title:       primary.Title,
		Rows:        len(p.rows),
		Options:     len(primary.Options),
		Tags:        SplitTags(primary.Tags),
		Category:    primary.Metafields[flatten.CategoryColumn],
		SubCategory: primary.Metafields[flatten.SubCategoryColumn],
	}

	for _, r := range p.rows {
		if r.HasPrice() {
			ps.Variants++
			if r.VariantCompareAtPrice != "" {
				ps.CompareAt++
			}
		}
		if r.ImagePosition > 0 {
			ps.Images++
		}
		if r.VariantImage != "" {
			ps.VariantImages++
		}
	}

	prices := p.prices()
	if len(prices) == 0 {
		ps.ZeroPrice = true
		return ps
	}

	ps.Priced = true
	ps.MinPrice = decimal.Min(prices[0], prices[1:]...)
	ps.MaxPrice = decimal.Max(prices[0], prices[1:]...)
	for _, d := range prices {
		if d.IsZero() {
			ps.ZeroPrice = true
			break
		}
	}
	return ps
}
