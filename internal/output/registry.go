package output

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"
)

// ErrUnknownDestination is returned for a destination name no adapter owns
var ErrUnknownDestination = errors.New("unknown destination")

// Registry holds the export destinations of a run, keyed by adapter name
type Registry struct {
	mu       sync.RWMutex
	adapters map[string]Adapter
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{adapters: make(map[string]Adapter)}
}

// Register adds a destination. Names are unique.
func (r *Registry) Register(adapter Adapter) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := adapter.Name()
	if _, dup := r.adapters[name]; dup {
		return fmt.Errorf("destination %s registered twice", name)
	}
	r.adapters[name] = adapter
	return nil
}

// Names returns the registered destination names in sorted order
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.adapters))
	for name := range r.adapters {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Get returns the adapter of a destination
func (r *Registry) Get(name string) (Adapter, error) {
	r.mu.RLock()
	a, ok := r.adapters[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s (available: %s)", ErrUnknownDestination, name, strings.Join(r.Names(), ", "))
	}
	return a, nil
}

// Resolve maps destination names to adapters in the order given. Names are
// trimmed and a destination named twice is exported once.
func (r *Registry) Resolve(names []string) ([]Adapter, error) {
	seen := make(map[string]bool, len(names))
	adapters := make([]Adapter, 0, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true

		a, err := r.Get(name)
		if err != nil {
			return nil, err
		}
		adapters = append(adapters, a)
	}
	if len(adapters) == 0 {
		return nil, fmt.Errorf("%w: no destination given", ErrUnknownDestination)
	}
	return adapters, nil
}

// List returns all adapters sorted by name
func (r *Registry) List() []Adapter {
	names := r.Names()

	r.mu.RLock()
	defer r.mu.RUnlock()
	adapters := make([]Adapter, 0, len(names))
	for _, name := range names {
		if a, ok := r.adapters[name]; ok {
			adapters = append(adapters, a)
		}
	}
	return adapters
}

// CloseAll closes every adapter and joins the failures
func (r *Registry) CloseAll() error {
	var errs []error
	for _, a := range r.List() {
		if err := a.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close %s: %w", a.Name(), err))
		}
	}
	return errors.Join(errs...)
}

// TestAll checks every destination concurrently. The result has one entry
// per adapter, nil when the destination is reachable.
func (r *Registry) TestAll(ctx context.Context) map[string]error {
	adapters := r.List()
	results := make(map[string]error, len(adapters))
	var mu sync.Mutex

	var g errgroup.Group
	for _, a := range adapters {
		a := a
		g.Go(func() error {
			err := a.Test(ctx)
			mu.Lock()
			results[a.Name()] = err
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return results
}
