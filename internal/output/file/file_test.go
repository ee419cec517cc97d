package file

import (
	"bufio"
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/badno/wcflat/internal/flatten"
	"github.com/badno/wcflat/internal/output"
	"github.com/badno/wcflat/internal/parser"
	"github.com/badno/wcflat/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleTable() *models.Table {
	records := []models.ProductRecord{
		{
			ID: "1", Title: "Classic Tee", Excerpt: "<p>Soft, light</p>", Status: "publish", RegularPrice: "25",
			Images:           "http://cdn/tee-main.jpg ! alt : Tee|http://cdn/tee-red.jpg",
			CategoryTaxonomy: "All > Clothing > Tees",
		},
		{ID: "2", ParentID: "1", RegularPrice: "19.99", Attributes: map[string]string{"color": "Blue", "size": "L", "material": "Cotton"}},
		{ID: "3", ParentID: "1", RegularPrice: "21", Attributes: map[string]string{"color": "Red", "size": "L"}},
		{ID: "9", Title: "Gift Card", Status: "draft"},
	}
	result := flatten.Flatten(records, flatten.Config{})
	return &result.Table
}

func readCSV(t *testing.T, data []byte) [][]string {
	t.Helper()
	records, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	require.NoError(t, err)
	return records
}

func TestHeader(t *testing.T) {
	table := sampleTable()

	assert.Equal(t, []string{
		"Handle", "Title", "Body (HTML)", "Published", "Tags",
		"Category (product.metafields.custom.category)",
		"Sub Category (product.metafields.custom.sub_category)",
		"Material (product.metafields.custom.material)",
		"Variant Price", "Variant Compare At Price", "Variant Image",
		"Image Src", "Image Alt Text", "Image Position",
		"Option1 Name", "Option1 Value", "Option2 Name", "Option2 Value",
	}, Header(table, output.FormatShopify))

	matrixify := Header(table, output.FormatMatrixify)
	assert.Equal(t, []string{"Handle", "Command", "Title"}, matrixify[:3])
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, sampleTable(), output.FormatShopify))

	records := readCSV(t, buf.Bytes())
	// header + tee (primary, image, Red/L) + gift card
	require.Len(t, records, 5)

	header := records[0]
	col := func(row []string, name string) string {
		for i, h := range header {
			if h == name {
				return row[i]
			}
		}
		t.Fatalf("missing column %s", name)
		return ""
	}

	primary := records[1]
	assert.Equal(t, "classic-tee", col(primary, "Handle"))
	assert.Equal(t, "<p>Soft, light</p>", col(primary, "Body (HTML)"))
	assert.Equal(t, "true", col(primary, "Published"))
	assert.Equal(t, "19.99", col(primary, "Variant Price"))
	assert.Equal(t, "1", col(primary, "Image Position"))
	assert.Equal(t, "Color", col(primary, "Option1 Name"))
	assert.Equal(t, "Blue", col(primary, "Option1 Value"))
	assert.Equal(t, "Cotton", col(primary, "Material (product.metafields.custom.material)"))

	image := records[2]
	assert.Equal(t, "", col(image, "Title"))
	assert.Equal(t, "", col(image, "Published"))
	assert.Equal(t, "", col(image, "Variant Price"))
	assert.Equal(t, "2", col(image, "Image Position"))
	assert.Equal(t, "Clothing", col(image, "Category (product.metafields.custom.category)"))
	assert.Equal(t, "", col(image, "Option1 Name"))

	variant := records[3]
	assert.Equal(t, "Red", col(variant, "Option1 Value"))
	assert.Equal(t, "21", col(variant, "Variant Price"))
	assert.Equal(t, "", col(variant, "Image Position"))

	gift := records[4]
	assert.Equal(t, "false", col(gift, "Published"))
	assert.Equal(t, "", col(gift, "Option1 Name"))
}

func TestWriteCSV_Matrixify(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, sampleTable(), output.FormatMatrixify))

	for _, rec := range readCSV(t, buf.Bytes())[1:] {
		assert.Equal(t, "MERGE", rec[1])
	}
}

func TestWriteCSV_Idempotent(t *testing.T) {
	var first, second bytes.Buffer
	require.NoError(t, WriteCSV(&first, sampleTable(), output.FormatShopify))
	require.NoError(t, WriteCSV(&second, sampleTable(), output.FormatShopify))
	assert.Equal(t, first.Bytes(), second.Bytes())
}

func TestWriteCSV_RoundTrip(t *testing.T) {
	table := sampleTable()

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, table, output.FormatMatrixify))

	back, err := parser.ReadShopifyCSV(&buf)
	require.NoError(t, err)

	assert.Equal(t, table.Columns, back.Columns)
	require.Len(t, back.Rows, len(table.Rows))
	for i := range table.Rows {
		assert.Equal(t, table.Rows[i].Kind, back.Rows[i].Kind, "row %d", i)
		assert.Equal(t, table.Rows[i].VariantPrice, back.Rows[i].VariantPrice, "row %d", i)
		assert.Equal(t, table.Rows[i].Options, back.Rows[i].Options, "row %d", i)
	}
}

func TestCSVAdapter_ExportRows(t *testing.T) {
	dir := t.TempDir()
	adapter := NewCSVAdapter(CSVConfig{OutputDir: dir})
	assert.True(t, adapter.SupportsFormat(output.FormatMatrixify))
	assert.False(t, adapter.SupportsFormat(output.FormatJSON))
	require.NoError(t, adapter.Test(context.Background()))

	path := filepath.Join(dir, "sub", "out.csv")
	result, err := adapter.ExportRows(context.Background(), sampleTable(), output.ExportOptions{
		Format:     output.FormatShopify,
		OutputPath: path,
		Handles:    []string{"gift-card"},
	})
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Equal(t, path, result.Destination)
	assert.Equal(t, 1, result.ProductsExported)
	assert.Equal(t, 1, result.RowsExported)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Len(t, readCSV(t, data), 2)
}

func TestCSVAdapter_DryRun(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "never")
	adapter := NewCSVAdapter(CSVConfig{OutputDir: dir})

	result, err := adapter.ExportRows(context.Background(), sampleTable(), output.ExportOptions{DryRun: true})
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 2, result.ProductsExported)
	assert.Equal(t, 4, result.RowsExported)
	assert.Equal(t, 2, result.ImagesExported)
	assert.Contains(t, result.Details, "Dry run")

	_, err = os.Stat(dir)
	assert.True(t, os.IsNotExist(err))
}

func TestJSONAdapter_Envelope(t *testing.T) {
	dir := t.TempDir()
	adapter := NewJSONAdapter(JSONConfig{OutputDir: dir, Pretty: true})

	path := filepath.Join(dir, "out.json")
	_, err := adapter.ExportRows(context.Background(), sampleTable(), output.ExportOptions{
		Format:     output.FormatJSON,
		OutputPath: path,
		RunID:      "run-1",
	})
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var env Envelope
	require.NoError(t, json.Unmarshal(data, &env))
	assert.Equal(t, "run-1", env.RunID)
	assert.Equal(t, 2, env.Products)
	assert.Len(t, env.Rows, 4)
	assert.Equal(t, models.RowPrimary, env.Rows[0].Kind)
	assert.Equal(t, "19.99", env.Rows[0].VariantPrice)
}

func TestJSONAdapter_GeneratesRunID(t *testing.T) {
	dir := t.TempDir()
	adapter := NewJSONAdapter(JSONConfig{OutputDir: dir})

	result, err := adapter.ExportRows(context.Background(), sampleTable(), output.ExportOptions{})
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(result.Destination, ".json"))

	data, err := os.ReadFile(result.Destination)
	require.NoError(t, err)
	var env Envelope
	require.NoError(t, json.Unmarshal(data, &env))
	assert.Len(t, env.RunID, 36)
}

func TestJSONAdapter_JSONL(t *testing.T) {
	dir := t.TempDir()
	adapter := NewJSONAdapter(JSONConfig{OutputDir: dir})

	result, err := adapter.ExportRows(context.Background(), sampleTable(), output.ExportOptions{Format: output.FormatJSONL})
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(result.Destination, ".jsonl"))

	f, err := os.Open(result.Destination)
	require.NoError(t, err)
	defer f.Close()

	var rows []models.OutputRow
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var row models.OutputRow
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &row))
		rows = append(rows, row)
	}
	require.NoError(t, scanner.Err())
	assert.Len(t, rows, 4)
	assert.Equal(t, "gift-card", rows[3].Handle)
}
