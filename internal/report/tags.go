package report

import (
	"sort"

	"github.com/shopspring/decimal"
)

// TagStats aggregates the products carrying one tag
type TagStats struct {
	Tag          string
	Products     int
	Variants     int             // total priced rows over those products
	AveragePrice decimal.Decimal // mean of the products' minimum prices
	Handles      []string
}

// TagCounts aggregates a summary by tag, most used tags first
func TagCounts(summary *Summary) []*TagStats {
	index := make(map[string]*TagStats)
	priced := make(map[string]int)
	sums := make(map[string]decimal.Decimal)

	for _, ps := range summary.Products {
		for _, tag := range ps.Tags {
			ts, ok := index[tag]
			if !ok {
				ts = &TagStats{Tag: tag}
				index[tag] = ts
			}
			ts.Products++
			ts.Variants += ps.Variants
			ts.Handles = append(ts.Handles, ps.Handle)
			if ps.Priced {
				priced[tag]++
				sums[tag] = sums[tag].Add(ps.MinPrice)
			}
		}
	}

	stats := make([]*TagStats, 0, len(index))
	for tag, ts := range index {
		if n := priced[tag]; n > 0 {
			ts.AveragePrice = sums[tag].Div(decimal.NewFromInt(int64(n))).Round(2)
		}
		stats = append(stats, ts)
	}

	sort.Slice(stats, func(i, j int) bool {
		if stats[i].Products != stats[j].Products {
			return stats[i].Products > stats[j].Products
		}
		return stats[i].Tag < stats[j].Tag
	})
	return stats
}
