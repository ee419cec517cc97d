package parser

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/badno/wcflat/pkg/models"
)

// ParseShopifyCSV loads a Shopify or Matrixify product CSV back into a table
func ParseShopifyCSV(filepath string) (*models.Table, error) {
	file, err := os.Open(filepath)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", filepath, err)
	}
	defer file.Close()

	return ReadShopifyCSV(file)
}

// ParseRecords loads any CSV file as raw records, header first
func ParseRecords(filepath string) ([][]string, error) {
	file, err := os.Open(filepath)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", filepath, err)
	}
	defer file.Close()

	return ReadRecords(file)
}

// ReadRecords reads all CSV records and strips a leading byte order mark
func ReadRecords(r io.Reader) ([][]string, error) {
	reader := csv.NewReader(r)
	reader.LazyQuotes = true // Handle Shopify's sometimes malformed CSV
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read csv: %w", err)
	}
	if len(records) > 0 && len(records[0]) > 0 {
		records[0][0] = strings.TrimPrefix(records[0][0], "\ufeff")
	}
	return records, nil
}

// ReadShopifyCSV reads a product CSV. The first row of a handle is the
// primary row; later rows without price or options that carry an image
// position are image rows; the rest are variant rows.
func ReadShopifyCSV(r io.Reader) (*models.Table, error) {
	records, err := ReadRecords(r)
	if err != nil {
		return nil, err
	}

	table := &models.Table{}
	if len(records) == 0 {
		return table, nil
	}

	header := records[0]

	handleIdx := findColumn(header, models.ColHandle)
	if handleIdx < 0 {
		return nil, fmt.Errorf("failed to find %q column", models.ColHandle)
	}
	titleIdx := findColumn(header, models.ColTitle)
	bodyIdx := findColumn(header, models.ColBody)
	publishedIdx := findColumn(header, models.ColPublished)
	tagsIdx := findColumn(header, models.ColTags)
	priceIdx := findColumn(header, models.ColVariantPrice)
	compareIdx := findColumn(header, models.ColVariantCompareAtPrice)
	variantImageIdx := findColumn(header, models.ColVariantImage)
	imageIdx := findColumn(header, models.ColImageSrc)
	altIdx := findColumn(header, models.ColImageAlt)
	positionIdx := findColumn(header, models.ColImagePosition)

	metaIdx := make(map[string]int)
	for i, col := range header {
		if strings.Contains(col, models.MetafieldMarker) {
			table.Columns = append(table.Columns, col)
			metaIdx[col] = i
		}
	}

	type optionCols struct{ name, value int }
	var optionIdx []optionCols
	for k := 1; ; k++ {
		n := findColumn(header, models.OptionNameColumn(k))
		v := findColumn(header, models.OptionValueColumn(k))
		if n < 0 || v < 0 {
			break
		}
		optionIdx = append(optionIdx, optionCols{name: n, value: v})
	}

	seen := make(map[string]bool)
	for _, rec := range records[1:] {
		handle := strings.TrimSpace(cellAt(rec, handleIdx))
		if handle == "" {
			continue
		}

		row := models.OutputRow{
			Handle:                handle,
			Title:                 cellAt(rec, titleIdx),
			Body:                  cellAt(rec, bodyIdx),
			Published:             strings.EqualFold(strings.TrimSpace(cellAt(rec, publishedIdx)), "true"),
			Tags:                  cellAt(rec, tagsIdx),
			VariantPrice:          strings.TrimSpace(cellAt(rec, priceIdx)),
			VariantCompareAtPrice: strings.TrimSpace(cellAt(rec, compareIdx)),
			VariantImage:          strings.TrimSpace(cellAt(rec, variantImageIdx)),
			ImageSrc:              strings.TrimSpace(cellAt(rec, imageIdx)),
			ImageAlt:              cellAt(rec, altIdx),
		}
		if pos, err := strconv.Atoi(strings.TrimSpace(cellAt(rec, positionIdx))); err == nil {
			row.ImagePosition = pos
		}

		for _, col := range table.Columns {
			if v := cellAt(rec, metaIdx[col]); v != "" {
				if row.Metafields == nil {
					row.Metafields = make(map[string]string)
				}
				row.Metafields[col] = v
			}
		}

		for _, oc := range optionIdx {
			name := strings.TrimSpace(cellAt(rec, oc.name))
			value := strings.TrimSpace(cellAt(rec, oc.value))
			if name == "" && value == "" {
				continue
			}
			row.Options = append(row.Options, models.Option{Name: name, Value: value})
		}

		switch {
		case !seen[handle]:
			row.Kind = models.RowPrimary
		case !row.HasPrice() && len(row.Options) == 0 && row.ImagePosition > 0:
			row.Kind = models.RowImage
		default:
			row.Kind = models.RowVariant
		}
		seen[handle] = true

		table.Rows = append(table.Rows, row)
	}

	return table, nil
}
