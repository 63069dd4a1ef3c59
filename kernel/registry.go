// MODUL: registry
// ZWECK: SelectorRegistry - ein Selector pro Kind, einmalig beim Start erzeugt
// INPUT: Eingefrorener Catalog, SelectorOptions
// OUTPUT: *Selector pro Kind, Batch-Auswahl
// NEBENEFFEKTE: Friert den Katalog ein
// ABHAENGIGKEITEN: github.com/agnivade/levenshtein, golang.org/x/sync/errgroup
// HINWEISE: Selector leben so lange wie der Prozess; unbekanntes Kind ist ein Konfigurationsfehler

package kernel

import (
	"context"
	"fmt"

	"github.com/agnivade/levenshtein"
	"golang.org/x/sync/errgroup"

	"github.com/ollama/kselect/tuning"
)

// Registry maps each primitive kind to its selector.
type Registry struct {
	catalog   *Catalog
	selectors map[Kind]*Selector
	kinds     []Kind
	cfg       *selectorConfig
}

// NewRegistry freezes cat and creates one selector per registered kind.
func NewRegistry(cat *Catalog, opts ...SelectorOption) (*Registry, error) {
	cfg, err := newSelectorConfig(opts)
	if err != nil {
		return nil, err
	}

	cat.Freeze()
	r := &Registry{
		catalog:   cat,
		selectors: make(map[Kind]*Selector),
		kinds:     cat.Kinds(),
		cfg:       cfg,
	}
	for _, kind := range r.kinds {
		r.selectors[kind] = newSelector(kind, cat.GetAll(kind), cfg)
	}
	return r, nil
}

// MustRegistry is like NewRegistry but panics on error.
func MustRegistry(cat *Catalog, opts ...SelectorOption) *Registry {
	r, err := NewRegistry(cat, opts...)
	if err != nil {
		panic(err)
	}
	return r
}

// Catalog returns the frozen catalog behind the registry.
func (r *Registry) Catalog() *Catalog {
	return r.catalog
}

// Tuning returns the tuning store consulted by the selectors. It is
// tuning.Empty when tuning is off.
func (r *Registry) Tuning() tuning.Store {
	if r.cfg.noTuning {
		return tuning.Empty
	}
	return r.cfg.store
}

// Kinds returns all kinds with a selector, sorted.
func (r *Registry) Kinds() []Kind {
	return append([]Kind(nil), r.kinds...)
}

// GetSelector returns the selector for kind. An unknown kind is a configuration
// error; the message suggests the closest known kind.
func (r *Registry) GetSelector(kind Kind) (*Selector, error) {
	if s, ok := r.selectors[kind]; ok {
		return s, nil
	}

	err := ErrUnknownKind
	if best := r.closestKind(kind); best != "" {
		err = fmt.Errorf("%w (did you mean %q?)", ErrUnknownKind, best)
	}
	return nil, &Error{Op: "get_selector", Kind: kind, Err: err}
}

// closestKind liefert das bekannte Kind mit der kleinsten Levenshtein-Distanz,
// sofern die Distanz hoechstens ein Drittel der Laenge betraegt.
func (r *Registry) closestKind(kind Kind) Kind {
	var best Kind
	score := -1
	for _, k := range r.kinds {
		d := levenshtein.ComputeDistance(string(kind), string(k))
		if score < 0 || d < score {
			best, score = k, d
		}
	}
	if score < 0 || score > max(2, len(best)/3) {
		return ""
	}
	return best
}

// GetBestKernels selects for p using the selector of p's kind.
func (r *Registry) GetBestKernels(p *Params) ([]*DispatchPlan, error) {
	if p == nil {
		return nil, &Error{Op: "select", Err: fmt.Errorf("%w: nil params", ErrInvalidParams)}
	}
	s, err := r.GetSelector(p.Kind())
	if err != nil {
		return nil, err
	}
	return s.GetBestKernels(p)
}

// Explain explains the ranking for p using the selector of p's kind.
func (r *Registry) Explain(p *Params) ([]Candidate, error) {
	if p == nil {
		return nil, &Error{Op: "explain", Err: fmt.Errorf("%w: nil params", ErrInvalidParams)}
	}
	s, err := r.GetSelector(p.Kind())
	if err != nil {
		return nil, err
	}
	return s.Explain(p)
}

// SelectAll selects kernels for a whole lowered primitive sequence. Selections run
// concurrently, bounded by the configured parallelism; results keep input order.
// The first error cancels the remaining work and is returned.
func (r *Registry) SelectAll(ctx context.Context, ps []*Params) ([][]*DispatchPlan, error) {
	results := make([][]*DispatchPlan, len(ps))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.numParallel)
	for i, p := range ps {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			plans, err := r.GetBestKernels(p)
			if err != nil {
				return fmt.Errorf("primitive %d: %w", i, err)
			}
			results[i] = plans
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
