package flatten

import (
	"errors"
	"fmt"
	"slices"

	"github.com/badno/wcflat/internal/catalog"
	"github.com/badno/wcflat/pkg/models"
)

// PrimaryMatch selects which child backs the primary row
type PrimaryMatch string

const (
	// PrimaryMatchCombination uses the child matching the primary combination
	PrimaryMatchCombination PrimaryMatch = "combination"
	// PrimaryMatchPositional uses the first child in record order
	PrimaryMatchPositional PrimaryMatch = "positional"
)

// Options tune a conversion. The zero value is a valid configuration.
type Options struct {
	SingleTagMode          bool
	SamplePerTag           bool // one product per top-level category, tagged with it
	PrimaryMatch           PrimaryMatch // "" means combination
	MaxCombinations        int          // 0 = unlimited
	MaxOptions             int          // 0 = unlimited
	SkipCategoryMetafields bool
}

// Config is the convenience configuration of Flatten
type Config struct {
	VariantAttributes []string // nil uses catalog.DefaultVariantAttributes
	Options
}

// ProductSummary describes the rows produced for one product
type ProductSummary struct {
	ID       string `json:"id"`
	Handle   string `json:"handle"`
	Title    string `json:"title"`
	Rows     int    `json:"rows"`
	Variants int    `json:"variants"`
	Images   int    `json:"images"`
}

// Result is the output of a conversion run
type Result struct {
	Table    models.Table     `json:"table"`
	Products []ProductSummary `json:"products"`
	Errors   []*ProductError  `json:"errors,omitempty"`
}

// Add records the outcome of one product
func (r *Result) Add(g *models.ProductGroup, rows []models.OutputRow, err error) {
	if err != nil {
		var perr *ProductError
		if !errors.As(err, &perr) {
			perr = productError(g.Parent.ID, g.Parent.Title, g.Parent.Line, err, "failed to flatten")
		}
		r.Errors = append(r.Errors, perr)
		return
	}
	if len(rows) == 0 {
		return
	}

	summary := ProductSummary{
		ID:     g.Parent.ID,
		Handle: rows[0].Handle,
		Title:  g.Parent.Title,
		Rows:   len(rows),
	}
	for i := range rows {
		if rows[i].IsVariant() {
			summary.Variants++
		}
		if rows[i].ImagePosition > 0 {
			summary.Images++
		}
	}

	r.Products = append(r.Products, summary)
	r.Table.Rows = append(r.Table.Rows, rows...)
}

// ProgressFunc is called after each product with the number done and the total
type ProgressFunc func(done, total int)

// Engine flattens product groups against a fixed schema
type Engine struct {
	schema models.Schema
	opts   Options
	meta   *metafieldMapper
}

// New creates an engine for a resolved schema
func New(schema models.Schema, opts Options) *Engine {
	if opts.PrimaryMatch == "" {
		opts.PrimaryMatch = PrimaryMatchCombination
	}
	return &Engine{
		schema: schema,
		opts:   opts,
		meta:   newMetafieldMapper(schema, !opts.SkipCategoryMetafields),
	}
}

// Columns returns the metafield columns every row of the run may carry
func (e *Engine) Columns() []string {
	return e.meta.Columns()
}

// Group collects parents in record order and attaches their children in
// record order. Children whose parent is missing are reported once per
// missing parent id. Every group gets a handle unique within the run.
func (e *Engine) Group(records []models.ProductRecord) ([]*models.ProductGroup, []*ProductError) {
	var groups []*models.ProductGroup
	var errs []*ProductError
	byID := make(map[string]*models.ProductGroup)
	handles := make(map[string]bool)

	for i := range records {
		rec := records[i]
		if !rec.IsParent() {
			continue
		}
		if rec.ID != "" {
			if _, dup := byID[rec.ID]; dup {
				errs = append(errs, productError(rec.ID, rec.Title, rec.Line, ErrDuplicateParent,
					"parent id already seen, record skipped"))
				continue
			}
		}
		g := &models.ProductGroup{Parent: rec, Handle: uniqueHandle(handles, rec.Title, rec.ID)}
		groups = append(groups, g)
		if rec.ID != "" {
			byID[rec.ID] = g
		}
	}

	orphans := make(map[string]*ProductError)
	orphanCount := make(map[string]int)
	var orphanOrder []string
	for i := range records {
		rec := records[i]
		if rec.IsParent() {
			continue
		}
		if g, ok := byID[rec.ParentID]; ok {
			g.Children = append(g.Children, rec)
			continue
		}

		if _, seen := orphans[rec.ParentID]; !seen {
			orphans[rec.ParentID] = &ProductError{ProductID: rec.ParentID, Line: rec.Line, Err: ErrOrphanChildren}
			orphanOrder = append(orphanOrder, rec.ParentID)
		}
		orphanCount[rec.ParentID]++
	}
	for _, id := range orphanOrder {
		perr := orphans[id]
		perr.Message = fmt.Sprintf("%d child record(s) skipped", orphanCount[id])
		errs = append(errs, perr)
	}

	return groups, errs
}

// uniqueHandle derives a handle from the title and, when another product of
// the run already owns it, suffixes the product id and then a counter
func uniqueHandle(taken map[string]bool, title, id string) string {
	handle := catalog.Handle(title, id)
	if taken[handle] {
		base := handle
		if slug := catalog.Slug(id); slug != "" {
			base = handle + "-" + slug
		}
		handle = base
		for n := 2; taken[handle]; n++ {
			handle = fmt.Sprintf("%s-%d", base, n)
		}
	}
	taken[handle] = true
	return handle
}

// SampleByTag picks one product per top-level category. Tags are visited in
// sorted order and each takes the first group in record order that carries
// it and was not picked for an earlier tag. Picked groups are tagged with
// their category only.
func SampleByTag(groups []*models.ProductGroup) []*models.ProductGroup {
	seen := make(map[string]bool)
	var tags []string
	groupTags := make([][]string, len(groups))
	for i, g := range groups {
		groupTags[i] = catalog.SingleTags(g.Parent.CategoryTaxonomy)
		for _, tag := range groupTags[i] {
			if !seen[tag] {
				seen[tag] = true
				tags = append(tags, tag)
			}
		}
	}
	slices.Sort(tags)

	picked := make([]bool, len(groups))
	var sample []*models.ProductGroup
	for _, tag := range tags {
		for i, g := range groups {
			if picked[i] || !slices.Contains(groupTags[i], tag) {
				continue
			}
			picked[i] = true
			tagged := *g
			tagged.Tag = tag
			sample = append(sample, &tagged)
			break
		}
	}
	return sample
}

// FlattenGroup converts one product into rows. A failure, including a
// panic, is returned as a *ProductError and affects this product only.
func (e *Engine) FlattenGroup(g *models.ProductGroup) (rows []models.OutputRow, err error) {
	defer func() {
		if r := recover(); r != nil {
			rows = nil
			err = productError(g.Parent.ID, g.Parent.Title, g.Parent.Line, ErrPanic, "%v", r)
		}
	}()
	return e.assemble(g)
}

// Run groups and flattens all records
func (e *Engine) Run(records []models.ProductRecord) *Result {
	return e.RunWithProgress(records, nil)
}

// RunWithProgress is Run with a per-product callback
func (e *Engine) RunWithProgress(records []models.ProductRecord, progress ProgressFunc) *Result {
	groups, errs := e.Group(records)
	if e.opts.SamplePerTag {
		groups = SampleByTag(groups)
	}

	result := &Result{
		Table:  models.Table{Columns: e.Columns()},
		Errors: errs,
	}
	for i, g := range groups {
		rows, err := e.FlattenGroup(g)
		result.Add(g, rows, err)
		if progress != nil {
			progress(i+1, len(groups))
		}
	}

	return result
}

// Flatten converts records using a schema derived from their attributes
func Flatten(records []models.ProductRecord, cfg Config) *Result {
	return New(SchemaFromRecords(records, cfg.VariantAttributes), cfg.Options).Run(records)
}

// SchemaFromRecords derives a schema from the attribute names present on records
func SchemaFromRecords(records []models.ProductRecord, variantAttributes []string) models.Schema {
	if variantAttributes == nil {
		variantAttributes = catalog.DefaultVariantAttributes
	}
	columns := make(map[string]string)
	for i := range records {
		for name := range records[i].Attributes {
			columns[name] = name
		}
	}
	return catalog.NewSchema(columns, variantAttributes)
}
