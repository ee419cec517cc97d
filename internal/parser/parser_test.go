package parser

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/badno/wcflat/internal/catalog"
	"github.com/badno/wcflat/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const wooExport = "\ufeffID,post_parent,post_title,post_excerpt,post_status,regular_price,sale_price,images,tax:product_cat,meta:attribute_pa_color,meta:attribute_pa_size,attribute_pa_material\n" +
	"1,0,Classic Tee,\"<p>Soft, light</p>\",publish,25,,http://cdn/a.jpg ! alt : Tee,All > Clothing > Tees,,,Cotton\n" +
	"2,1,,,publish,19.99,,,,Blue,S|M,\n" +
	"\n" +
	"3,1,,,publish,,15,,,Red,L,\n"

func TestReadWooCommerce(t *testing.T) {
	export, err := ReadWooCommerce(strings.NewReader(wooExport), DefaultColumns(), catalog.DefaultVariantAttributes)
	require.NoError(t, err)

	assert.Equal(t, "ID", export.Header[0])
	assert.Equal(t, []models.AttributeColumn{
		{Name: "color", Column: "meta:attribute_pa_color", Role: models.RoleVariant},
		{Name: "material", Column: "attribute_pa_material", Role: models.RoleMetafield},
		{Name: "size", Column: "meta:attribute_pa_size", Role: models.RoleVariant},
	}, export.Schema.Attributes)

	require.Len(t, export.Records, 3)

	parent := export.Records[0]
	assert.Equal(t, "1", parent.ID)
	assert.True(t, parent.IsParent())
	assert.Equal(t, "Classic Tee", parent.Title)
	assert.Equal(t, "<p>Soft, light</p>", parent.Excerpt)
	assert.Equal(t, "publish", parent.Status)
	assert.Equal(t, "25", parent.RegularPrice)
	assert.Equal(t, "http://cdn/a.jpg ! alt : Tee", parent.Images)
	assert.Equal(t, "All > Clothing > Tees", parent.CategoryTaxonomy)
	assert.Equal(t, map[string]string{"material": "Cotton"}, parent.Attributes)
	assert.Equal(t, 2, parent.Line)

	child := export.Records[1]
	assert.Equal(t, "1", child.ParentID)
	assert.False(t, child.IsParent())
	assert.Equal(t, "S|M", child.Attribute("size"))
	assert.Equal(t, 3, child.Line)

	assert.Equal(t, "15", export.Records[2].SalePrice)
	assert.Equal(t, 5, export.Records[2].Line)
}

func TestReadWooCommerce_Aliases(t *testing.T) {
	input := "id,parent_id,title,status,category_taxonomy,attribute_pa_size,meta:attribute_pa_size\n" +
		"1,,Sock,publish,A > B,,\n" +
		"2,1,,,,,M\n"

	export, err := ReadWooCommerce(strings.NewReader(input), DefaultColumns(), nil)
	require.NoError(t, err)
	require.Len(t, export.Records, 2)

	assert.Equal(t, "Sock", export.Records[0].Title)
	assert.Equal(t, "A > B", export.Records[0].CategoryTaxonomy)
	assert.Nil(t, export.Records[0].Attributes)
	assert.Equal(t, "M", export.Records[1].Attribute("size"), "falls through to the next column for the same attribute")

	require.Len(t, export.Schema.Attributes, 1)
	assert.Equal(t, "attribute_pa_size", export.Schema.Attributes[0].Column)
	assert.Equal(t, models.RoleMetafield, export.Schema.Attributes[0].Role, "empty allow-list makes everything a metafield")
}

func TestReadWooCommerce_MissingID(t *testing.T) {
	_, err := ReadWooCommerce(strings.NewReader("post_title\nx\n"), DefaultColumns(), nil)
	assert.ErrorIs(t, err, ErrMissingIDColumn)
}

func TestReadWooCommerce_Empty(t *testing.T) {
	export, err := ReadWooCommerce(strings.NewReader(""), DefaultColumns(), nil)
	require.NoError(t, err)
	assert.Empty(t, export.Records)
}

func TestParseWooCommerceCSV_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "export.csv")
	require.NoError(t, os.WriteFile(path, []byte(wooExport), 0644))

	export, err := ParseWooCommerceCSV(path, DefaultColumns(), catalog.DefaultVariantAttributes)
	require.NoError(t, err)
	assert.Len(t, export.Records, 3)

	_, err = ParseWooCommerceCSV(filepath.Join(t.TempDir(), "missing.csv"), DefaultColumns(), nil)
	assert.Error(t, err)
}

const shopifyExport = "Handle,Command,Title,Body (HTML),Published,Tags,Category (product.metafields.custom.category),Variant Price,Variant Compare At Price,Variant Image,Image Src,Image Alt Text,Image Position,Option1 Name,Option1 Value,Option2 Name,Option2 Value\n" +
	"classic-tee,MERGE,Classic Tee,<p>x</p>,true,Tees,Clothing,19.99,25,http://v.jpg,http://a.jpg,Tee,1,Color,Blue,Size,S\n" +
	"classic-tee,MERGE,,,,Tees,Clothing,,,,http://b.jpg,,2,,,,\n" +
	"classic-tee,MERGE,Classic Tee,<p>x</p>,true,Tees,Clothing,19.99,25,,,,,Color,Red,Size,S\n" +
	"gift-card,MERGE,Gift Card,,false,,,,,,,,,,,,\n"

func TestReadShopifyCSV(t *testing.T) {
	table, err := ReadShopifyCSV(strings.NewReader(shopifyExport))
	require.NoError(t, err)

	assert.Equal(t, []string{"Category (product.metafields.custom.category)"}, table.Columns)
	require.Len(t, table.Rows, 4)

	primary := table.Rows[0]
	assert.Equal(t, models.RowPrimary, primary.Kind)
	assert.True(t, primary.Published)
	assert.Equal(t, "19.99", primary.VariantPrice)
	assert.Equal(t, 1, primary.ImagePosition)
	assert.Equal(t, "Clothing", primary.Metafields["Category (product.metafields.custom.category)"])
	assert.Equal(t, []models.Option{{Name: "Color", Value: "Blue"}, {Name: "Size", Value: "S"}}, primary.Options)

	assert.Equal(t, models.RowImage, table.Rows[1].Kind)
	assert.Equal(t, 2, table.Rows[1].ImagePosition)

	assert.Equal(t, models.RowVariant, table.Rows[2].Kind)
	assert.Equal(t, 0, table.Rows[2].ImagePosition)

	gift := table.Rows[3]
	assert.Equal(t, models.RowPrimary, gift.Kind)
	assert.False(t, gift.Published)
	assert.Nil(t, gift.Options)
	assert.Nil(t, gift.Metafields)

	assert.Equal(t, []string{"classic-tee", "gift-card"}, table.Handles())
}

func TestReadShopifyCSV_MissingHandle(t *testing.T) {
	_, err := ReadShopifyCSV(strings.NewReader("Title\nx\n"))
	assert.Error(t, err)
}

func TestReadRecords(t *testing.T) {
	records, err := ReadRecords(strings.NewReader("\ufeffHandle,Title\ntee,\"Tee, classic\"\ncap\n"))
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "Handle", records[0][0])
	assert.Equal(t, "Tee, classic", records[1][1])
	assert.Equal(t, []string{"cap"}, records[2])

	_, err = ParseRecords(filepath.Join(t.TempDir(), "missing.csv"))
	assert.Error(t, err)
}
