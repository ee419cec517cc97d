package flatten

import (
	"errors"
	"testing"

	"github.com/badno/wcflat/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func attrs(kv ...string) map[string]string {
	m := make(map[string]string)
	for i := 0; i+1 < len(kv); i += 2 {
		m[kv[i]] = kv[i+1]
	}
	return m
}

// teeRecords is a parent with two colours and two sizes. The first child in
// record order is Blue/XL without a price so the two primary-match modes differ.
func teeRecords() []models.ProductRecord {
	return []models.ProductRecord{
		{
			ID: "1", ParentID: "0", Title: "Classic Tee", Excerpt: "<p>Soft tee</p>", Status: "publish",
			RegularPrice: "25", Images: "http://cdn/tee-main.jpg ! alt : Tee|http://cdn/tee-red.jpg",
			CategoryTaxonomy: "All > Clothing > Tees|All > Clothing > Tops",
			Attributes:       attrs("pattern", "Striped|Solid"), Line: 2,
		},
		{ID: "3", ParentID: "1", Attributes: attrs("color", "Blue", "size", "XL"), Line: 3},
		{ID: "2", ParentID: "1", RegularPrice: "19.99", Images: "http://cdn/blue-l.jpg", Attributes: attrs("color", "Blue", "size", "L"), Line: 4},
		{ID: "4", ParentID: "1", RegularPrice: "21", SalePrice: "18", Attributes: attrs("color", "Red", "size", "L"), Line: 5},
		{ID: "5", ParentID: "1", Attributes: attrs("color", "Red", "size", "XL", "material", "Cotton|Linen"), Line: 6},
	}
}

func TestFlatten_ZeroChildrenZeroImages(t *testing.T) {
	result := Flatten([]models.ProductRecord{{ID: "9", Title: "Gift Card"}}, Config{})

	require.Empty(t, result.Errors)
	require.Len(t, result.Table.Rows, 1)
	row := result.Table.Rows[0]
	assert.Equal(t, models.RowPrimary, row.Kind)
	assert.Equal(t, "gift-card", row.Handle)
	assert.Equal(t, "", row.VariantPrice)
	assert.Equal(t, "", row.VariantCompareAtPrice)
	assert.Empty(t, row.Options)
	assert.Equal(t, 0, row.ImagePosition)
	assert.False(t, row.Published)
}

func TestFlatten_ZeroChildrenWithImages(t *testing.T) {
	records := []models.ProductRecord{{
		ID: "9", Title: "Poster", Status: "publish", RegularPrice: "10", SalePrice: "8",
		Images: "http://a.jpg|http://b.jpg|http://c.jpg",
	}}
	result := Flatten(records, Config{})

	require.Len(t, result.Table.Rows, 3)
	primary := result.Table.Rows[0]
	assert.Equal(t, "10", primary.VariantPrice)
	assert.Equal(t, "8", primary.VariantCompareAtPrice)
	assert.Equal(t, "http://a.jpg", primary.ImageSrc)
	assert.Equal(t, 1, primary.ImagePosition)
	assert.Empty(t, primary.VariantImage)

	for i, row := range result.Table.Rows[1:] {
		assert.Equal(t, models.RowImage, row.Kind)
		assert.Equal(t, i+2, row.ImagePosition)
		assert.False(t, row.HasPrice())
		assert.Empty(t, row.Options)
	}
}

func TestFlatten_CombinationPrimary(t *testing.T) {
	result := Flatten(teeRecords(), Config{})
	require.Empty(t, result.Errors)

	rows := result.Table.Rows
	// 1 primary + 1 extra image + (2*2 - 1) variants
	require.Len(t, rows, 5)

	for _, row := range rows {
		assert.Equal(t, "classic-tee", row.Handle)
	}

	primary := rows[0]
	assert.Equal(t, models.RowPrimary, primary.Kind)
	assert.Equal(t, "Classic Tee", primary.Title)
	assert.Equal(t, "<p>Soft tee</p>", primary.Body)
	assert.True(t, primary.Published)
	assert.Equal(t, "Tees, Tops", primary.Tags)
	assert.Equal(t, "http://cdn/tee-main.jpg", primary.ImageSrc)
	assert.Equal(t, "Blue", primary.ImageAlt, "primary alt text is the first colour")
	assert.Equal(t, 1, primary.ImagePosition)
	assert.Equal(t, []models.Option{{Name: "Color", Value: "Blue"}, {Name: "Size", Value: "L"}}, primary.Options)
	assert.Equal(t, "19.99", primary.VariantPrice)
	assert.Equal(t, "19.99", primary.VariantCompareAtPrice)
	assert.Equal(t, "http://cdn/blue-l.jpg", primary.VariantImage)

	image := rows[1]
	assert.Equal(t, models.RowImage, image.Kind)
	assert.Equal(t, "http://cdn/tee-red.jpg", image.ImageSrc)
	assert.Equal(t, 2, image.ImagePosition)
	assert.Equal(t, "Tees, Tops", image.Tags)
	assert.Empty(t, image.Title)
	assert.False(t, image.HasPrice())
	assert.Empty(t, image.Options)

	type expect struct {
		color, size, price, compare, image string
	}
	want := []expect{
		{"Blue", "XL", "19.99", "19.99", "http://cdn/blue-l.jpg"},
		{"Red", "L", "18", "21", "http://cdn/tee-red.jpg"},
		{"Red", "XL", "18", "21", "http://cdn/tee-red.jpg"},
	}
	for i, w := range want {
		row := rows[2+i]
		assert.Equal(t, models.RowVariant, row.Kind)
		assert.Equal(t, []models.Option{{Name: "Color", Value: w.color}, {Name: "Size", Value: w.size}}, row.Options)
		assert.Equal(t, w.price, row.VariantPrice, "price of %s/%s", w.color, w.size)
		assert.Equal(t, w.compare, row.VariantCompareAtPrice)
		assert.Equal(t, w.image, row.VariantImage)
		assert.Equal(t, 0, row.ImagePosition)
		assert.Empty(t, row.ImageSrc)
	}
}

func TestFlatten_PositionalPrimary(t *testing.T) {
	result := Flatten(teeRecords(), Config{Options: Options{PrimaryMatch: PrimaryMatchPositional}})
	require.Empty(t, result.Errors)

	rows := result.Table.Rows
	require.Len(t, rows, 5)

	// first child has no price or image: parent price, no variant image
	primary := rows[0]
	assert.Equal(t, []models.Option{{Name: "Color", Value: "Blue"}, {Name: "Size", Value: "L"}}, primary.Options)
	assert.Equal(t, "25", primary.VariantPrice)
	assert.Equal(t, "", primary.VariantCompareAtPrice)
	assert.Equal(t, "", primary.VariantImage)

	blueXL := rows[2]
	assert.Equal(t, "25", blueXL.VariantPrice)
	assert.Equal(t, "", blueXL.VariantImage)

	redL := rows[3]
	assert.Equal(t, "18", redL.VariantPrice)
	assert.Equal(t, "http://cdn/tee-red.jpg", redL.VariantImage)
}

func TestFlatten_Metafields(t *testing.T) {
	result := Flatten(teeRecords(), Config{})

	assert.Equal(t, []string{
		CategoryColumn,
		SubCategoryColumn,
		"Material (product.metafields.custom.material)",
		"Pattern (product.metafields.custom.pattern)",
	}, result.Table.Columns)

	want := map[string]string{
		CategoryColumn:    "Clothing",
		SubCategoryColumn: "Tees",
		"Material (product.metafields.custom.material)": "Cotton\nLinen",
		"Pattern (product.metafields.custom.pattern)":   "Solid\nStriped",
	}
	for _, row := range result.Table.Rows {
		assert.Equal(t, want, row.Metafields)
	}

	// rows do not share one map
	result.Table.Rows[0].Metafields[CategoryColumn] = "changed"
	assert.Equal(t, "Clothing", result.Table.Rows[1].Metafields[CategoryColumn])
}

func TestFlatten_SkipCategoryMetafields(t *testing.T) {
	result := Flatten(teeRecords(), Config{Options: Options{SkipCategoryMetafields: true}})
	assert.NotContains(t, result.Table.Columns, CategoryColumn)
	assert.NotContains(t, result.Table.Rows[0].Metafields, CategoryColumn)
}

func TestFlatten_SingleTagMode(t *testing.T) {
	result := Flatten(teeRecords(), Config{Options: Options{SingleTagMode: true}})
	for _, row := range result.Table.Rows {
		assert.Equal(t, "Clothing", row.Tags)
	}
}

func TestFlatten_CustomVariantAttributes(t *testing.T) {
	result := Flatten(teeRecords(), Config{VariantAttributes: []string{"color"}})
	require.Empty(t, result.Errors)

	// color only: 1 primary + 1 image + 1 variant
	require.Len(t, result.Table.Rows, 3)
	assert.Contains(t, result.Table.Columns, "Size (product.metafields.custom.size)")
	assert.Equal(t, "L\nXL", result.Table.Rows[0].Metafields["Size (product.metafields.custom.size)"])
}

func TestFlatten_RowCountFormula(t *testing.T) {
	records := []models.ProductRecord{
		{ID: "1", Title: "Sock", Images: "http://1.jpg|http://2.jpg|http://3.jpg"},
		{ID: "2", ParentID: "1", Attributes: attrs("color", "Black|White|Grey", "size", "S|M")},
		{ID: "3", ParentID: "1", Attributes: attrs("sizes", "L")},
	}
	result := Flatten(records, Config{})
	require.Empty(t, result.Errors)

	// colors 3, size 2, sizes 1 => 6 combinations
	assert.Len(t, result.Table.Rows, 1+2+(3*2*1-1))
	assert.Equal(t, []models.Option{
		{Name: "Color", Value: "Black"},
		{Name: "Size", Value: "M"},
		{Name: "Size", Value: "L"},
	}, result.Table.Rows[0].Options)
	assert.Equal(t, 3, result.Table.MaxOptions())

	require.Len(t, result.Products, 1)
	assert.Equal(t, ProductSummary{ID: "1", Handle: "sock", Title: "Sock", Rows: 8, Variants: 6, Images: 3}, result.Products[0])
}

func TestFlatten_Idempotent(t *testing.T) {
	first := Flatten(teeRecords(), Config{})
	second := Flatten(teeRecords(), Config{})
	assert.Equal(t, first, second)
}

func TestFlatten_ErrorIsolation(t *testing.T) {
	records := append(teeRecords(),
		models.ProductRecord{ID: "20", Title: "Cap", RegularPrice: "12"},
		models.ProductRecord{ID: "30", ParentID: "99", Line: 40},
		models.ProductRecord{ID: "31", ParentID: "99", Line: 41},
		models.ProductRecord{ID: "20", Title: "Cap again", Line: 42},
	)

	result := Flatten(records, Config{Options: Options{MaxCombinations: 3}})

	require.Len(t, result.Table.Rows, 1)
	assert.Equal(t, "cap", result.Table.Rows[0].Handle)

	require.Len(t, result.Errors, 3)
	assert.True(t, errors.Is(result.Errors[0], ErrDuplicateParent))
	assert.Equal(t, 42, result.Errors[0].Line)

	assert.True(t, errors.Is(result.Errors[1], ErrOrphanChildren))
	assert.Equal(t, "99", result.Errors[1].ProductID)
	assert.Equal(t, 40, result.Errors[1].Line)
	assert.Contains(t, result.Errors[1].Error(), "2 child record(s) skipped")

	assert.True(t, errors.Is(result.Errors[2], ErrTooManyCombinations))
	assert.Equal(t, "1", result.Errors[2].ProductID)
	assert.Equal(t, 2, result.Errors[2].Line)
}

func TestFlatten_TooManyOptions(t *testing.T) {
	records := []models.ProductRecord{
		{ID: "1", Title: "Sock"},
		{ID: "2", ParentID: "1", Attributes: attrs("color", "Black", "size", "S", "sizes", "L")},
	}
	result := Flatten(records, Config{Options: Options{MaxOptions: 2}})

	assert.Empty(t, result.Table.Rows)
	require.Len(t, result.Errors, 1)
	assert.ErrorIs(t, result.Errors[0], ErrTooManyOptions)
}

func TestEngine_Group(t *testing.T) {
	records := []models.ProductRecord{
		{ID: "2", ParentID: "1"},
		{ID: "1"},
		{ID: "3", ParentID: "1"},
		{ID: "5", ParentID: "0"},
	}
	e := New(models.Schema{}, Options{})
	groups, errs := e.Group(records)

	assert.Empty(t, errs)
	require.Len(t, groups, 2)
	assert.Equal(t, "1", groups[0].Parent.ID)
	require.Len(t, groups[0].Children, 2)
	assert.Equal(t, "2", groups[0].Children[0].ID)
	assert.Equal(t, "3", groups[0].Children[1].ID)
	assert.Equal(t, "5", groups[1].Parent.ID)
}

func TestEngine_RunWithProgress(t *testing.T) {
	var calls [][2]int
	e := New(SchemaFromRecords(teeRecords(), nil), Options{})
	result := e.RunWithProgress(teeRecords(), func(done, total int) {
		calls = append(calls, [2]int{done, total})
	})

	assert.Len(t, result.Table.Rows, 5)
	assert.Equal(t, [][2]int{{1, 1}}, calls)
}

func TestResult_AddWrapsPlainErrors(t *testing.T) {
	var r Result
	g := &models.ProductGroup{Parent: models.ProductRecord{ID: "7", Title: "X", Line: 3}}
	boom := errors.New("boom")
	r.Add(g, nil, boom)

	require.Len(t, r.Errors, 1)
	assert.ErrorIs(t, r.Errors[0], boom)
	assert.Equal(t, "7", r.Errors[0].ProductID)
}

func TestMetafieldColumn(t *testing.T) {
	assert.Equal(t, "Shoe Size (product.metafields.custom.shoe_size)", MetafieldColumn("shoe_size"))
	assert.Equal(t, "3D Print (product.metafields.custom.3d_print)", MetafieldColumn("3d_print"))
}

func TestFlatten_SeedFromParentPrices(t *testing.T) {
	records := []models.ProductRecord{
		{ID: "1", Title: "Lamp", RegularPrice: "100", SalePrice: "80"},
		{ID: "2", ParentID: "1", Attributes: attrs("color", "Red")},
		{ID: "3", Title: "Shade", RegularPrice: "100", SalePrice: "80"},
	}
	result := Flatten(records, Config{})
	require.Empty(t, result.Errors)
	require.Len(t, result.Table.Rows, 2)

	for _, row := range result.Table.Rows {
		assert.Equal(t, "100", row.VariantPrice, row.Handle)
		assert.Equal(t, "80", row.VariantCompareAtPrice, row.Handle)
	}
}

func TestFlatten_PrimaryAltWithoutColor(t *testing.T) {
	records := []models.ProductRecord{
		{ID: "1", Title: "Mug", Images: "http://cdn/mug.jpg ! alt : Mug"},
		{ID: "2", ParentID: "1", Attributes: attrs("size", "Large")},
	}
	result := Flatten(records, Config{})
	require.Len(t, result.Table.Rows, 1)
	assert.Equal(t, "Mug", result.Table.Rows[0].ImageAlt)

	records = []models.ProductRecord{
		{ID: "1", Title: "Sock"},
		{ID: "2", ParentID: "1", Attributes: attrs("color", "Green")},
	}
	result = Flatten(records, Config{})
	require.Len(t, result.Table.Rows, 1)
	assert.Empty(t, result.Table.Rows[0].ImageAlt, "no alt text without an image")
}

func TestEngine_GroupUniqueHandles(t *testing.T) {
	records := []models.ProductRecord{
		{ID: "1", Title: "T-Shirt"},
		{ID: "2", Title: "T Shirt!"},
		{ID: "5", Title: "Café"},
		{ID: "6", Title: "Cafe"},
		{ID: "7", Title: "T Shirt 2"},
		{ID: "8", Title: ""},
	}
	e := New(models.Schema{}, Options{})
	groups, errs := e.Group(records)
	assert.Empty(t, errs)

	var handles []string
	for _, g := range groups {
		handles = append(handles, g.Handle)
	}
	assert.Equal(t, []string{"t-shirt", "t-shirt-2", "cafe", "cafe-6", "t-shirt-2-7", "product-8"}, handles)
}

func TestFlatten_HandlesDoNotMerge(t *testing.T) {
	records := []models.ProductRecord{
		{ID: "10", Title: "T-Shirt", RegularPrice: "5"},
		{ID: "11", ParentID: "10", Attributes: attrs("size", "S")},
		{ID: "12", ParentID: "10", Attributes: attrs("size", "M")},
		{ID: "20", Title: "T Shirt!", RegularPrice: "6"},
	}
	result := Flatten(records, Config{})
	require.Empty(t, result.Errors)
	require.Len(t, result.Table.Rows, 3)

	assert.Equal(t, "t-shirt", result.Table.Rows[0].Handle)
	assert.Equal(t, "t-shirt", result.Table.Rows[1].Handle)
	assert.Equal(t, "t-shirt-20", result.Table.Rows[2].Handle)
	require.Len(t, result.Products, 2)
	assert.Equal(t, "t-shirt-20", result.Products[1].Handle)
}

func TestFlatten_SamplePerTag(t *testing.T) {
	records := []models.ProductRecord{
		{ID: "1", Title: "Tee", CategoryTaxonomy: "All > Clothing > Tees|All > Accessories"},
		{ID: "2", Title: "Hat", CategoryTaxonomy: "All > Accessories > Hats"},
		{ID: "3", Title: "Coat", CategoryTaxonomy: "All > Clothing > Outerwear"},
		{ID: "4", Title: "Mug", CategoryTaxonomy: "Kitchen"},
		{ID: "5", Title: "Cup", CategoryTaxonomy: "All > Kitchen"},
		{ID: "6", ParentID: "3", Attributes: attrs("size", "M")},
	}
	var totals []int
	e := New(SchemaFromRecords(records, nil), Options{SamplePerTag: true})
	result := e.RunWithProgress(records, func(_, total int) { totals = append(totals, total) })
	require.Empty(t, result.Errors)

	type pick struct{ handle, tags string }
	var got []pick
	for _, row := range result.Table.Rows {
		got = append(got, pick{row.Handle, row.Tags})
	}
	// a product is picked for one tag only
	assert.Equal(t, []pick{{"tee", "Accessories"}, {"coat", "Clothing"}, {"cup", "Kitchen"}}, got)
	assert.Equal(t, []int{3, 3, 3}, totals)
}

func TestSampleByTag_KeepsGroupsUnchanged(t *testing.T) {
	groups := []*models.ProductGroup{
		{Parent: models.ProductRecord{ID: "1", CategoryTaxonomy: "All > Toys"}, Handle: "ball"},
	}
	sample := SampleByTag(groups)
	require.Len(t, sample, 1)
	assert.Equal(t, "Toys", sample[0].Tag)
	assert.Equal(t, "ball", sample[0].Handle)
	assert.Empty(t, groups[0].Tag)

	assert.Empty(t, SampleByTag(nil))
}

func TestFlatten_UnmatchedCombinationScansParentImages(t *testing.T) {
	records := []models.ProductRecord{
		{ID: "1", Title: "Cap", RegularPrice: "12", Images: "http://cdn/main.jpg|http://cdn/green.jpg|http://cdn/red.jpg"},
		{ID: "2", ParentID: "1", Images: "http://cdn/child-green.jpg", Attributes: attrs("color", "Green", "size", "XS")},
		{ID: "3", ParentID: "1", Attributes: attrs("color", "Red", "size", "XL")},
	}
	result := Flatten(records, Config{})
	require.Empty(t, result.Errors)

	rows := result.Table.Rows
	require.Len(t, rows, 6)

	// Green/XL has no child
	assert.Equal(t, []models.Option{{Name: "Color", Value: "Green"}, {Name: "Size", Value: "XL"}}, rows[0].Options)
	assert.Equal(t, "http://cdn/green.jpg", rows[0].VariantImage)
	assert.Equal(t, "12", rows[0].VariantPrice)
	assert.Equal(t, "Green", rows[0].ImageAlt)

	assert.Equal(t, "http://cdn/child-green.jpg", rows[3].VariantImage)
	assert.Equal(t, "http://cdn/red.jpg", rows[4].VariantImage)
	assert.Equal(t, "http://cdn/red.jpg", rows[5].VariantImage)
}
