package flatten

import (
	"maps"
	"strings"

	"github.com/badno/wcflat/internal/catalog"
	"github.com/badno/wcflat/internal/variant"
	"github.com/badno/wcflat/pkg/models"
)

const publishedStatus = "publish"

// assemble emits the primary row, the extra image rows and one row per
// non-primary combination of a single product
func (e *Engine) assemble(g *models.ProductGroup) ([]models.OutputRow, error) {
	parent := &g.Parent

	cat := catalog.BuildCatalog(g, e.schema)
	if e.opts.MaxOptions > 0 && len(cat.Variant) > e.opts.MaxOptions {
		return nil, productError(parent.ID, parent.Title, parent.Line, ErrTooManyOptions,
			"%d variant attributes (%s), limit is %d",
			len(cat.Variant), strings.Join(cat.Variant, ", "), e.opts.MaxOptions)
	}

	matrix := variant.NewMatrix(cat.Variant, cat.VariantValues())
	if e.opts.MaxCombinations > 0 && matrix.Size() > e.opts.MaxCombinations {
		return nil, productError(parent.ID, parent.Title, parent.Line, ErrTooManyCombinations,
			"%d combinations, limit is %d", matrix.Size(), e.opts.MaxCombinations)
	}

	images := catalog.ParseImages(parent.Images)
	meta := e.meta.Build(g, cat)
	base := models.OutputRow{
		Handle:    g.Handle,
		Title:     parent.Title,
		Body:      parent.Excerpt,
		Published: strings.EqualFold(strings.TrimSpace(parent.Status), publishedStatus),
		Tags:      g.Tag,
	}
	if base.Handle == "" {
		base.Handle = catalog.Handle(parent.Title, parent.ID)
	}
	if base.Tags == "" {
		base.Tags = catalog.Tags(parent.CategoryTaxonomy, e.opts.SingleTagMode)
	}

	rows := make([]models.OutputRow, 0, len(images)+1)

	// Primary row
	primary := base
	primary.Kind = models.RowPrimary
	primary.Metafields = maps.Clone(meta)
	if len(images) > 0 {
		primary.ImageSrc = images[0].URL
		primary.ImageAlt = images[0].Alt
		primary.ImagePosition = images[0].Position
	}

	state := variant.Seed(parent)
	var matcher *variant.Matcher
	var resolver *variant.Resolver
	if len(g.Children) > 0 {
		matcher = variant.NewMatcher(g.Children, cat.Variant)
		resolver = variant.NewResolver(images)

		combo := matrix.Primary()
		child, values := e.primaryChild(g, matcher, combo)
		state = resolver.Resolve(state, child, values)

		primary.VariantImage = state.Image
		primary.Options = options(combo)
		if color, ok := colorValue(combo); ok && primary.ImageSrc != "" {
			primary.ImageAlt = color
		}
	}
	primary.VariantPrice = state.Price
	primary.VariantCompareAtPrice = state.CompareAtPrice
	rows = append(rows, primary)

	// Secondary image rows
	for i := 1; i < len(images); i++ {
		rows = append(rows, models.OutputRow{
			Kind:          models.RowImage,
			Handle:        base.Handle,
			Tags:          base.Tags,
			Metafields:    maps.Clone(meta),
			ImageSrc:      images[i].URL,
			ImageAlt:      images[i].Alt,
			ImagePosition: images[i].Position,
		})
	}

	// Variant rows
	if matcher != nil {
		for _, combo := range matrix.Additional() {
			child, _ := matcher.Match(combo)
			state = resolver.Resolve(state, child, combo.Values())

			row := base
			row.Kind = models.RowVariant
			row.Metafields = maps.Clone(meta)
			row.VariantPrice = state.Price
			row.VariantCompareAtPrice = state.CompareAtPrice
			row.VariantImage = state.Image
			row.Options = options(combo)
			rows = append(rows, row)
		}
	}

	return rows, nil
}

// primaryChild selects the child backing the primary row and the values
// used for its parent-image lookup
func (e *Engine) primaryChild(g *models.ProductGroup, matcher *variant.Matcher, combo variant.Combination) (*models.ProductRecord, []string) {
	if e.opts.PrimaryMatch == PrimaryMatchPositional {
		return &g.Children[0], nil
	}
	child, _ := matcher.Match(combo)
	return child, combo.Values()
}

// colorValue returns the value of the color attribute of a combination
func colorValue(combo variant.Combination) (string, bool) {
	for _, p := range combo {
		if strings.EqualFold(strings.TrimSpace(p.Attribute), "color") {
			return p.Value, true
		}
	}
	return "", false
}

func options(combo variant.Combination) []models.Option {
	if len(combo) == 0 {
		return nil
	}
	opts := make([]models.Option, 0, len(combo))
	for _, p := range combo {
		opts = append(opts, models.Option{Name: catalog.OptionName(p.Attribute), Value: p.Value})
	}
	return opts
}
