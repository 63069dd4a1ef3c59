// MODUL: selector
// ZWECK: KernelSelector - waehlt und sortiert anwendbare Implementierungen fuer ein Kind
// INPUT: *Params
// OUTPUT: Geordnete []*DispatchPlan (bester zuerst)
// NEBENEFFEKTE: Metriken, Debug-Logs; liest Tuning-Store nur
// ABHAENGIGKEITEN: tuning, logutil, sync (stdlib)
// HINWEISE: Reihenfolge: forced > tuned > Prioritaet absteigend, stabil in Registrierungsreihenfolge

package kernel

import (
	"cmp"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/ollama/kselect/logutil"
	"github.com/ollama/kselect/tuning"
)

// ============================================================================
// Selector
// ============================================================================

// Selector picks kernels for one primitive kind. It is read-only after creation
// and safe for concurrent use.
type Selector struct {
	kind  Kind
	impls []Implementation
	cfg   *selectorConfig

	// eligible cached den Grobfilter (disabled + deklarierter Key) pro SupportedKey
	eligible sync.Map // SupportedKey -> []int
}

// NewSelector creates a selector for kind over the implementations in cat.
// It freezes cat.
func NewSelector(kind Kind, cat *Catalog, opts ...SelectorOption) (*Selector, error) {
	cfg, err := newSelectorConfig(opts)
	if err != nil {
		return nil, err
	}
	cat.Freeze()
	return newSelector(kind, cat.GetAll(kind), cfg), nil
}

func newSelector(kind Kind, impls []Implementation, cfg *selectorConfig) *Selector {
	return &Selector{kind: kind, impls: impls, cfg: cfg}
}

// Kind returns the primitive kind this selector serves.
func (s *Selector) Kind() Kind {
	return s.kind
}

// Implementations returns the catalog entries in registration order.
func (s *Selector) Implementations() []Implementation {
	return slices.Clone(s.impls)
}

// Disabled reports whether name is excluded by the disable pattern.
func (s *Selector) Disabled(name string) bool {
	return s.cfg.isDisabled(name)
}

// ============================================================================
// Auswahl
// ============================================================================

// candidate ist eine anwendbare Implementierung mit Rang-Informationen.
type candidate struct {
	index    int
	impl     Implementation
	priority Priority
	forced   bool
	tuned    bool
}

// GetBestKernels returns dispatch plans for every applicable implementation,
// best first. It fails with ErrNoApplicable when no implementation applies and with
// ErrAllBuildsFailed when every applicable implementation failed to build.
func (s *Selector) GetBestKernels(p *Params) ([]*DispatchPlan, error) {
	start := time.Now()
	defer func() {
		selectionDuration.WithLabelValues(string(s.kind)).Observe(time.Since(start).Seconds())
	}()

	if err := s.check(p); err != nil {
		selectionsTotal.WithLabelValues(string(s.kind), outcomeInvalidParams).Inc()
		return nil, err
	}

	order, rec := s.rank(p)
	s.countTuning(order, rec)
	if len(order) == 0 {
		selectionsTotal.WithLabelValues(string(s.kind), outcomeNoApplicable).Inc()
		return nil, &Error{Op: "select", Kind: s.kind, Summary: p.Summary(), Err: ErrNoApplicable}
	}

	plans := make([]*DispatchPlan, 0, len(order))
	var causes []error
	for _, c := range order {
		plan, err := s.build(c, p, rec)
		if err != nil {
			buildFailures.WithLabelValues(string(s.kind), c.impl.Name()).Inc()
			slog.Debug("kernel candidate dropped", "kind", s.kind, "name", c.impl.Name(), "error", err)
			causes = append(causes, err)
			continue
		}

		plans = append(plans, plan)
		if s.cfg.maxCandidates > 0 && len(plans) == s.cfg.maxCandidates {
			break
		}
	}

	if len(plans) == 0 {
		selectionsTotal.WithLabelValues(string(s.kind), outcomeBuildsFailed).Inc()
		return nil, &Error{Op: "select", Kind: s.kind, Summary: p.Summary(), Err: ErrAllBuildsFailed, Causes: causes}
	}

	if len(causes) > 0 {
		slog.Warn("some kernel candidates failed to build", "kind", s.kind, "failed", len(causes), "built", len(plans))
	}

	selectionsTotal.WithLabelValues(string(s.kind), outcomeOK).Inc()
	slog.Debug("selected kernels", "kind", s.kind, "fingerprint", p.fingerprint,
		"candidates", len(order), "plans", len(plans), "chosen", plans[0].Implementation, "tuned", plans[0].Tuned)
	return plans, nil
}

// GetBestKernel returns only the best plan.
func (s *Selector) GetBestKernel(p *Params) (*DispatchPlan, error) {
	plans, err := s.GetBestKernels(p)
	if err != nil {
		return nil, err
	}
	return plans[0], nil
}

func (s *Selector) check(p *Params) error {
	if p == nil {
		return &Error{Op: "select", Kind: s.kind, Err: fmt.Errorf("%w: nil params", ErrInvalidParams)}
	}
	if p.kind != s.kind {
		return &Error{Op: "select", Kind: s.kind, Summary: p.Summary(), Err: fmt.Errorf("%w: got %s", ErrKindMismatch, p.kind)}
	}
	return nil
}

// rank liefert die anwendbaren Kandidaten in finaler Reihenfolge und den
// Tuning-Record, falls einer fuer den Fingerprint existiert.
func (s *Selector) rank(p *Params) ([]candidate, *tuning.Record) {
	var rec *tuning.Record
	if !s.cfg.noTuning {
		if r, ok := s.cfg.store.Lookup(p.fingerprint); ok {
			rec = &r
		}
	}
	forced := s.cfg.forced[s.kind]

	var order []candidate
	for _, i := range s.eligibleFor(p.key) {
		impl := s.impls[i]
		if !impl.IsSupported(p) {
			logutil.Trace("kernel not supported", "kind", s.kind, "name", impl.Name())
			continue
		}
		name := impl.Name()
		c := candidate{
			index:    i,
			impl:     impl,
			priority: impl.Priority(p),
			forced:   forced != "" && name == forced,
			tuned:    rec != nil && name == rec.Implementation,
		}
		logutil.Trace("kernel applicable", "kind", s.kind, "name", name, "priority", c.priority, "forced", c.forced, "tuned", c.tuned)
		order = append(order, c)
	}

	slices.SortStableFunc(order, compareCandidates)
	return order, rec
}

// countTuning zaehlt das Ergebnis der Tuning-Suche. Nur echte Auswahlen zaehlen,
// Explain nicht.
func (s *Selector) countTuning(order []candidate, rec *tuning.Record) {
	if s.cfg.noTuning {
		return
	}
	switch {
	case rec == nil:
		tuningLookups.WithLabelValues(string(s.kind), "miss").Inc()
	case slices.ContainsFunc(order, func(c candidate) bool { return c.tuned }):
		tuningLookups.WithLabelValues(string(s.kind), "hit").Inc()
	default:
		// Record verweist auf eine nicht anwendbare Implementierung
		tuningLookups.WithLabelValues(string(s.kind), "unused").Inc()
		slog.Debug("tuning record names inapplicable implementation", "kind", s.kind, "name", rec.Implementation)
	}
}

func compareCandidates(a, b candidate) int {
	if a.forced != b.forced {
		if a.forced {
			return -1
		}
		return 1
	}
	if a.tuned != b.tuned {
		if a.tuned {
			return -1
		}
		return 1
	}
	return cmp.Compare(b.priority, a.priority)
}

// eligibleFor returns catalog indices that pass the coarse filter for key.
// Params with equal keys share the result.
func (s *Selector) eligibleFor(key SupportedKey) []int {
	if v, ok := s.eligible.Load(key); ok {
		return v.([]int)
	}

	idx := make([]int, 0, len(s.impls))
	for i, impl := range s.impls {
		if s.cfg.isDisabled(impl.Name()) {
			logutil.Trace("kernel disabled", "kind", s.kind, "name", impl.Name())
			continue
		}
		if d, ok := declaredKey(impl); ok && !d.Covers(key) {
			continue
		}
		idx = append(idx, i)
	}

	v, _ := s.eligible.LoadOrStore(key, idx)
	return v.([]int)
}

// build ruft BuildPlan auf und prueft das Ergebnis. Der Record wird nur an die
// Implementierung weitergereicht, die er benennt.
func (s *Selector) build(c candidate, p *Params, rec *tuning.Record) (*DispatchPlan, error) {
	name := c.impl.Name()
	var r *tuning.Record
	if c.tuned {
		cp := *rec
		r = &cp
	}

	plan, err := c.impl.BuildPlan(p, r)
	if err != nil {
		return nil, &Error{Op: "build", Kind: s.kind, Name: name, Err: err}
	}
	if plan == nil {
		return nil, &Error{Op: "build", Kind: s.kind, Name: name, Err: fmt.Errorf("%w: nil plan", ErrInvalidPlan)}
	}

	if plan.Implementation == "" {
		plan.Implementation = name
	}
	if plan.Implementation != name {
		return nil, &Error{Op: "build", Kind: s.kind, Name: name, Err: fmt.Errorf("%w: plan names %q", ErrInvalidPlan, plan.Implementation)}
	}
	if plan.Kind == "" {
		plan.Kind = s.kind
	}
	if plan.Fingerprint == "" {
		plan.Fingerprint = p.fingerprint
	}
	if r != nil && r.HasLaunch() && plan.Launch == r.Launch {
		plan.Tuned = true
	}

	if err := plan.Validate(p.device); err != nil {
		return nil, &Error{Op: "build", Kind: s.kind, Name: name, Err: err}
	}
	return plan, nil
}
