package report

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/badno/wcflat/pkg/models"
)

// VariantImageFilter selects products by the presence of variant images
type VariantImageFilter string

const (
	VariantImagesAny     VariantImageFilter = ""
	VariantImagesWith    VariantImageFilter = "with"
	VariantImagesWithout VariantImageFilter = "without"
)

// PriceFilter selects products by their variant prices
type PriceFilter string

const (
	PriceAny     PriceFilter = ""
	PriceZero    PriceFilter = "zero"    // a zero price, or no price at all
	PriceNonZero PriceFilter = "nonzero" // at least one price above zero
	PriceRange   PriceFilter = "range"   // at least one price within [MinPrice, MaxPrice]
)

// FilterOptions configures Filter. Zero values disable a criterion.
type FilterOptions struct {
	VariantImages VariantImageFilter
	Price         PriceFilter
	MinPrice      *decimal.Decimal
	MaxPrice      *decimal.Decimal
	MinVariants   int
	MaxVariants   int
	Tags          []string // any-of, case-insensitive
	Limit         int      // keep at most this many products
}

// Validate checks the option combination
func (o FilterOptions) Validate() error {
	switch o.VariantImages {
	case VariantImagesAny, VariantImagesWith, VariantImagesWithout:
	default:
		return fmt.Errorf("invalid variant image filter: %q", o.VariantImages)
	}
	switch o.Price {
	case PriceAny, PriceZero, PriceNonZero:
	case PriceRange:
		if o.MinPrice == nil && o.MaxPrice == nil {
			return fmt.Errorf("price range filter needs a minimum or a maximum")
		}
		if o.MinPrice != nil && o.MaxPrice != nil && o.MinPrice.GreaterThan(*o.MaxPrice) {
			return fmt.Errorf("minimum price %s is above maximum %s", o.MinPrice, o.MaxPrice)
		}
	default:
		return fmt.Errorf("invalid price filter: %q", o.Price)
	}
	if o.MinVariants < 0 || o.MaxVariants < 0 || o.Limit < 0 {
		return fmt.Errorf("variant bounds and limit must not be negative")
	}
	if o.MaxVariants > 0 && o.MinVariants > o.MaxVariants {
		return fmt.Errorf("minimum variants %d is above maximum %d", o.MinVariants, o.MaxVariants)
	}
	return nil
}

// Filter returns a table holding every row of the selected products,
// in input row order
func Filter(table *models.Table, opts FilterOptions) (*models.Table, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	wanted := make(map[string]bool, len(opts.Tags))
	for _, t := range opts.Tags {
		if t = strings.TrimSpace(t); t != "" {
			wanted[strings.ToLower(t)] = true
		}
	}

	keep := make(map[string]bool)
	for _, p := range groupByHandle(table) {
		if opts.Limit > 0 && len(keep) >= opts.Limit {
			break
		}
		ps := productStats(p)
		if matches(p, ps, opts, wanted) {
			keep[p.handle] = true
		}
	}

	filtered := &models.Table{Columns: table.Columns}
	for _, row := range table.Rows {
		if keep[row.Handle] {
			filtered.Rows = append(filtered.Rows, row)
		}
	}
	return filtered, nil
}

func matches(p *product, ps *ProductStats, opts FilterOptions, tags map[string]bool) bool {
	switch opts.VariantImages {
	case VariantImagesWith:
		if ps.VariantImages == 0 {
			return false
		}
	case VariantImagesWithout:
		if ps.VariantImages > 0 {
			return false
		}
	}

	switch opts.Price {
	case PriceZero:
		if !ps.ZeroPrice {
			return false
		}
	case PriceNonZero:
		if !ps.Priced || !ps.MaxPrice.IsPositive() {
			return false
		}
	case PriceRange:
		if !anyInRange(p.prices(), opts.MinPrice, opts.MaxPrice) {
			return false
		}
	}

	if ps.Variants < opts.MinVariants {
		return false
	}
	if opts.MaxVariants > 0 && ps.Variants > opts.MaxVariants {
		return false
	}

	if len(tags) > 0 {
		found := false
		for _, t := range ps.Tags {
			if tags[strings.ToLower(t)] {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	return true
}

func anyInRange(prices []decimal.Decimal, lo, hi *decimal.Decimal) bool {
	for _, d := range prices {
		if lo != nil && d.LessThan(*lo) {
			continue
		}
		if hi != nil && d.GreaterThan(*hi) {
			continue
		}
		return true
	}
	return false
}
