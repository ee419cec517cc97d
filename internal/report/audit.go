package report

import (
	"github.com/badno/wcflat/pkg/models"
)

// BlankImage counts placeholder images of one product
type BlankImage struct {
	Handle        string
	MainImages    int // Image Src cells holding the placeholder
	VariantImages int // Variant Image cells holding the placeholder
	AffectedRows  int
}

// AuditReport lists catalog quality problems of a flattened table
type AuditReport struct {
	Products             int
	BlankImages          []BlankImage
	MissingImage         []string // primary row carries no image
	MissingCompareAt     []string // priced, but no row has a compare-at price
	PartialCompareAt     []string // some priced rows lack a compare-at price
	WithoutVariantImages []string // several variants, none with an image
	SingleVariant        []string
	ZeroPrice            []string
}

// Issues returns the number of products flagged by any check
func (a *AuditReport) Issues() int {
	flagged := make(map[string]bool)
	for _, b := range a.BlankImages {
		flagged[b.Handle] = true
	}
	for _, list := range [][]string{a.MissingImage, a.MissingCompareAt, a.PartialCompareAt, a.WithoutVariantImages, a.ZeroPrice} {
		for _, h := range list {
			flagged[h] = true
		}
	}
	return len(flagged)
}

// Audit checks every product of the table. An empty placeholder
// disables blank image detection.
func Audit(table *models.Table, placeholder string) *AuditReport {
	a := &AuditReport{}

	for _, p := range groupByHandle(table) {
		a.Products++
		ps := productStats(p)

		if placeholder != "" {
			b := BlankImage{Handle: p.handle}
			for _, r := range p.rows {
				main := r.ImageSrc == placeholder
				variant := r.VariantImage == placeholder
				if main {
					b.MainImages++
				}
				if variant {
					b.VariantImages++
				}
				if main || variant {
					b.AffectedRows++
				}
			}
			if b.AffectedRows > 0 {
				a.BlankImages = append(a.BlankImages, b)
			}
		}

		if p.primary().ImageSrc == "" {
			a.MissingImage = append(a.MissingImage, p.handle)
		}

		switch {
		case ps.Variants == 0:
		case ps.CompareAt == 0:
			a.MissingCompareAt = append(a.MissingCompareAt, p.handle)
		case ps.CompareAt < ps.Variants:
			a.PartialCompareAt = append(a.PartialCompareAt, p.handle)
		}

		if ps.Variants > 1 && ps.VariantImages == 0 {
			a.WithoutVariantImages = append(a.WithoutVariantImages, p.handle)
		}
		if ps.Variants == 1 {
			a.SingleVariant = append(a.SingleVariant, p.handle)
		}
		if ps.ZeroPrice {
			a.ZeroPrice = append(a.ZeroPrice, p.handle)
		}
	}

	return a
}
