package images

import (
	"context"
	"net/http"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/badno/wcflat/pkg/models"
)

// Target is one distinct image URL of a table and the products using it
type Target struct {
	URL     string
	Handles []string
}

// Targets collects the distinct Image Src and Variant Image URLs of a
// table in first-seen order
func Targets(table *models.Table) []Target {
	var targets []Target
	index := make(map[string]int)
	add := func(url, handle string) {
		if url == "" {
			return
		}
		i, ok := index[url]
		if !ok {
			index[url] = len(targets)
			targets = append(targets, Target{URL: url, Handles: []string{handle}})
			return
		}
		handles := targets[i].Handles
		if handles[len(handles)-1] != handle {
			targets[i].Handles = append(handles, handle)
		}
	}
	for i := range table.Rows {
		row := &table.Rows[i]
		add(row.ImageSrc, row.Handle)
		add(row.VariantImage, row.Handle)
	}
	return targets
}

// CheckOptions configures a check run
type CheckOptions struct {
	Concurrency  int  // parallel requests (default 8)
	Inspect      bool // download and decode instead of HEAD
	MinDimension int  // with Inspect: smaller images count as blank
}

// Result is the outcome of checking one target
type Result struct {
	Target
	StatusCode int
	Size       int64
	Info       *Info // set when inspected and decoded
	Err        error
}

// OK reports whether the image is reachable and, when inspected, usable
func (r *Result) OK() bool {
	if r.Err != nil || r.StatusCode != http.StatusOK {
		return false
	}
	return r.Info == nil || !r.Info.Blank()
}

// Check verifies every target. Per-URL failures are recorded on the
// results; the returned error is set only when ctx ends first.
func (f *Fetcher) Check(ctx context.Context, targets []Target, opts CheckOptions, progress func(done, total int)) ([]Result, error) {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 8
	}

	results := make([]Result, len(targets))
	var done atomic.Int32

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Concurrency)
	for i, t := range targets {
		i, t := i, t
		g.Go(func() error {
			results[i] = f.check(gctx, t, opts)
			n := done.Add(1)
			if progress != nil {
				progress(int(n), len(targets))
			}
			return nil
		})
	}
	g.Wait()

	return results, ctx.Err()
}

func (f *Fetcher) check(ctx context.Context, t Target, opts CheckOptions) Result {
	r := Result{Target: t}
	if !opts.Inspect {
		r.StatusCode, r.Err = f.Head(ctx, t.URL)
		return r
	}

	data, code, err := f.Fetch(ctx, t.URL)
	r.StatusCode = code
	if err != nil {
		r.Err = err
		return r
	}
	r.Size = int64(len(data))
	r.Info, r.Err = Inspect(data, opts.MinDimension)
	return r
}
