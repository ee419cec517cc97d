package report

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/badno/wcflat/internal/flatten"
	"github.com/badno/wcflat/pkg/models"
)

const blank = "https://shop.example/blank.png"

func fixture() *models.Table {
	meta := map[string]string{
		flatten.CategoryColumn:    "Apparel",
		flatten.SubCategoryColumn: "Tees",
	}
	return &models.Table{
		Columns: []string{flatten.CategoryColumn, flatten.SubCategoryColumn},
		Rows: []models.OutputRow{
			{Kind: models.RowPrimary, Handle: "tee", Title: "Tee", Tags: "Tees, Summer", Metafields: meta,
				VariantPrice: "18", VariantCompareAtPrice: "21", ImageSrc: "http://tee-1.jpg", ImagePosition: 1,
				VariantImage: "http://tee-red.jpg", Options: []models.Option{{Name: "Color", Value: "Red"}}},
			{Kind: models.RowImage, Handle: "tee", ImageSrc: blank, ImagePosition: 2},
			{Kind: models.RowVariant, Handle: "tee", VariantPrice: "19.99", Options: []models.Option{{Name: "Color", Value: "Blue"}}},
			{Kind: models.RowPrimary, Handle: "cap", Title: "Cap", Tags: "Summer", VariantPrice: "0"},
			{Kind: models.RowPrimary, Handle: "mug", Title: "Mug", Tags: "Kitchen", VariantPrice: "9.50", VariantCompareAtPrice: "12",
				ImageSrc: "http://mug.jpg", ImagePosition: 1},
			{Kind: models.RowVariant, Handle: "mug", VariantPrice: "11", VariantCompareAtPrice: "14", VariantImage: blank},
		},
	}
}

func TestParsePrice(t *testing.T) {
	d, ok := ParsePrice(" 19.990 ")
	require.True(t, ok)
	assert.True(t, d.Equal(decimal.RequireFromString("19.99")))

	_, ok = ParsePrice("")
	assert.False(t, ok)
	_, ok = ParsePrice("n/a")
	assert.False(t, ok)
}

func TestSplitTags(t *testing.T) {
	assert.Equal(t, []string{"Running", "Trail"}, SplitTags(" Running , ,Trail"))
	assert.Nil(t, SplitTags(""))
}

func TestSummarize(t *testing.T) {
	s := Summarize(fixture())
	require.Len(t, s.Products, 3)
	assert.Equal(t, 6, s.TotalRows)
	assert.Equal(t, 2, s.WithVariants)
	assert.Equal(t, 1, s.SingleVariant)
	assert.Equal(t, 2, s.WithVariantImages)
	assert.Equal(t, 1, s.ZeroPrice)

	tee := s.Products[0]
	assert.Equal(t, "tee", tee.Handle)
	assert.Equal(t, "Tee", tee.Title)
	assert.Equal(t, 3, tee.Rows)
	assert.Equal(t, 2, tee.Variants)
	assert.Equal(t, 2, tee.Images)
	assert.Equal(t, 1, tee.VariantImages)
	assert.Equal(t, 1, tee.CompareAt)
	assert.Equal(t, 1, tee.Options)
	assert.Equal(t, []string{"Tees", "Summer"}, tee.Tags)
	assert.Equal(t, "Apparel", tee.Category)
	assert.Equal(t, "Tees", tee.SubCategory)
	assert.Equal(t, "18", tee.MinPrice.String())
	assert.Equal(t, "19.99", tee.MaxPrice.String())
	assert.False(t, tee.ZeroPrice)

	capStats := s.Products[1]
	assert.True(t, capStats.Priced)
	assert.True(t, capStats.ZeroPrice)
}

func TestTagCounts(t *testing.T) {
	stats := TagCounts(Summarize(fixture()))
	require.Len(t, stats, 3)

	assert.Equal(t, "Summer", stats[0].Tag)
	assert.Equal(t, 2, stats[0].Products)
	assert.Equal(t, 3, stats[0].Variants)
	assert.Equal(t, []string{"tee", "cap"}, stats[0].Handles)
	assert.Equal(t, "9", stats[0].AveragePrice.String())

	assert.Equal(t, "Kitchen", stats[1].Tag)
	assert.Equal(t, "Tees", stats[2].Tag)
}

func TestFilter(t *testing.T) {
	table := fixture()
	lo := decimal.NewFromInt(10)
	hi := decimal.NewFromInt(15)

	tests := []struct {
		name    string
		opts    FilterOptions
		handles []string
		rows    int
	}{
		{"no criteria", FilterOptions{}, []string{"tee", "cap", "mug"}, 6},
		{"with variant images", FilterOptions{VariantImages: VariantImagesWith}, []string{"tee", "mug"}, 5},
		{"without variant images", FilterOptions{VariantImages: VariantImagesWithout}, []string{"cap"}, 1},
		{"zero price", FilterOptions{Price: PriceZero}, []string{"cap"}, 1},
		{"non-zero price", FilterOptions{Price: PriceNonZero}, []string{"tee", "mug"}, 5},
		{"price range", FilterOptions{Price: PriceRange, MinPrice: &lo, MaxPrice: &hi}, []string{"mug"}, 2},
		{"min variants", FilterOptions{MinVariants: 2}, []string{"tee", "mug"}, 5},
		{"max variants", FilterOptions{MaxVariants: 1}, []string{"cap"}, 1},
		{"tags any-of", FilterOptions{Tags: []string{"kitchen", "tees"}}, []string{"tee", "mug"}, 5},
		{"limit", FilterOptions{Limit: 2}, []string{"tee", "cap"}, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Filter(table, tt.opts)
			require.NoError(t, err)
			assert.Equal(t, tt.handles, got.Handles())
			assert.Len(t, got.Rows, tt.rows)
			assert.Equal(t, table.Columns, got.Columns)
		})
	}
}

func TestFilter_KeepsRowOrder(t *testing.T) {
	got, err := Filter(fixture(), FilterOptions{Tags: []string{"Tees"}})
	require.NoError(t, err)
	require.Len(t, got.Rows, 3)
	assert.Equal(t, models.RowPrimary, got.Rows[0].Kind)
	assert.Equal(t, models.RowImage, got.Rows[1].Kind)
	assert.Equal(t, models.RowVariant, got.Rows[2].Kind)
}

func TestFilterOptions_Validate(t *testing.T) {
	lo := decimal.NewFromInt(20)
	hi := decimal.NewFromInt(10)

	assert.Error(t, FilterOptions{Price: PriceRange}.Validate())
	assert.Error(t, FilterOptions{Price: PriceRange, MinPrice: &lo, MaxPrice: &hi}.Validate())
	assert.Error(t, FilterOptions{Price: "cheap"}.Validate())
	assert.Error(t, FilterOptions{VariantImages: "some"}.Validate())
	assert.Error(t, FilterOptions{MinVariants: 3, MaxVariants: 2}.Validate())
	assert.Error(t, FilterOptions{Limit: -1}.Validate())
	assert.NoError(t, FilterOptions{Price: PriceRange, MinPrice: &lo}.Validate())
}

func TestAudit(t *testing.T) {
	a := Audit(fixture(), blank)
	assert.Equal(t, 3, a.Products)

	require.Len(t, a.BlankImages, 2)
	assert.Equal(t, BlankImage{Handle: "tee", MainImages: 1, AffectedRows: 1}, a.BlankImages[0])
	assert.Equal(t, BlankImage{Handle: "mug", VariantImages: 1, AffectedRows: 1}, a.BlankImages[1])

	assert.Equal(t, []string{"cap"}, a.MissingImage)
	assert.Equal(t, []string{"cap"}, a.MissingCompareAt)
	assert.Equal(t, []string{"tee"}, a.PartialCompareAt)
	assert.Empty(t, a.WithoutVariantImages)
	assert.Equal(t, []string{"cap"}, a.SingleVariant)
	assert.Equal(t, []string{"cap"}, a.ZeroPrice)
	assert.Equal(t, 3, a.Issues())
}

func TestAudit_NoPlaceholder(t *testing.T) {
	a := Audit(fixture(), "")
	assert.Empty(t, a.BlankImages)
}

func TestDiff(t *testing.T) {
	a := [][]string{
		{"Handle", "Title", "Variant Price"},
		{"tee", "Classic Tee", "19.99"},
		{"cap", "Cap", "5"},
	}

	t.Run("identical modulo numeric formatting", func(t *testing.T) {
		b := [][]string{
			{"Handle", "Title", "Variant Price"},
			{"tee", "Classic Tee", "19.990"},
			{"cap", " Cap ", "5.00"},
		}
		d := Diff(a, b, 5)
		assert.True(t, d.Identical())
	})

	t.Run("cell and column differences", func(t *testing.T) {
		b := [][]string{
			{"Handle", "Title", "Tags"},
			{"tee", "Classic Tees", "x"},
			{"cap", "Cap", "y"},
			{"mug", "Mug", "z"},
		}
		d := Diff(a, b, 5)
		assert.False(t, d.Identical())
		assert.Equal(t, 2, d.RowsA)
		assert.Equal(t, 3, d.RowsB)
		assert.Equal(t, []string{"Variant Price"}, d.OnlyInA)
		assert.Equal(t, []string{"Tags"}, d.OnlyInB)

		require.Len(t, d.Columns, 1)
		col := d.Columns[0]
		assert.Equal(t, "Title", col.Column)
		assert.Equal(t, 1, col.Differences)
		assert.Equal(t, []CellDiff{{Row: 1, A: "Classic Tee", B: "Classic Tees"}}, col.Samples)
		assert.InDelta(t, (1+11.0/12.0)/2, col.Similarity, 1e-9)
	})

	t.Run("sample cap", func(t *testing.T) {
		b := [][]string{
			{"Handle", "Title", "Variant Price"},
			{"x", "Classic Tee", "19.99"},
			{"y", "Cap", "5"},
		}
		d := Diff(a, b, 1)
		require.Len(t, d.Columns, 1)
		assert.Equal(t, 2, d.Columns[0].Differences)
		assert.Len(t, d.Columns[0].Samples, 1)
	})
}

func TestSimilarity(t *testing.T) {
	assert.Equal(t, 1.0, Similarity("", ""))
	assert.Equal(t, 0.0, Similarity("abc", ""))
	assert.InDelta(t, 0.75, Similarity("abcd", "abce"), 1e-9)
}
