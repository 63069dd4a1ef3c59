// MODUL: selector_test
// ZWECK: Tests fuer Auswahl, Reihenfolge, Tuning-Override, Force/Disable und Fehlerfaelle
// INPUT: Keine
// OUTPUT: Test-Ergebnisse
// NEBENEFFEKTE: Erhoeht die globalen Prometheus-Zaehler
// ABHAENGIGKEITEN: testing (stdlib), go-cmp, prometheus testutil
// HINWEISE: Resample-Szenarien mit Ref (Prioritaet 1) und Opt (Prioritaet 10, nur packed+float)

package kernel

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/ollama/kselect/ml"
	"github.com/ollama/kselect/tuning"
)

func resampleSelector(t *testing.T, opts ...SelectorOption) *Selector {
	t.Helper()
	s, err := NewSelector(KindResample, newCatalog(t, KindResample, refResample(), optResample()), opts...)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

// ============================================================================
// Resample-Szenarien
// ============================================================================

func TestGetBestKernelsResample(t *testing.T) {
	s := resampleSelector(t)

	cases := []struct {
		name   string
		layout ml.Layout
		dtype  ml.DType
		want   []string
	}{
		{"packed float", ml.LayoutPacked, ml.DTypeF32, []string{"OptResample", "RefResample"}},
		{"packed half", ml.LayoutPacked, ml.DTypeF16, []string{"OptResample", "RefResample"}},
		{"planar", ml.LayoutPlanar, ml.DTypeF32, []string{"RefResample"}},
		{"packed int", ml.LayoutPacked, ml.DTypeI8, []string{"RefResample"}},
	}

	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			p := resampleParams(t, tt.layout, tt.dtype)
			plans, err := s.GetBestKernels(p)
			if err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(tt.want, names(plans)); diff != "" {
				t.Errorf("Reihenfolge (-want +got):\n%s", diff)
			}

			for _, plan := range plans {
				if plan.Kind != KindResample || plan.Fingerprint != p.Fingerprint() {
					t.Errorf("%s: Kind/Fingerprint nicht gesetzt", plan.Implementation)
				}
				if err := plan.Validate(p.Device()); err != nil {
					t.Errorf("%s: ungueltiger Plan: %v", plan.Implementation, err)
				}
				if plan.Tuned {
					t.Errorf("%s: ohne Tuning-Store darf kein Plan tuned sein", plan.Implementation)
				}
			}
		})
	}
}

func TestGetBestKernelTuningOverride(t *testing.T) {
	p := resampleParams(t, ml.LayoutPacked, ml.DTypeF32)
	tuned := ml.LaunchConfig{Global: [3]int{4096, 1, 1}, Local: [3]int{64, 1, 1}}
	store := tuning.NewMemoryStore(tuning.Record{
		Fingerprint:    p.Fingerprint(),
		Kind:           "resample",
		Implementation: "RefResample",
		Launch:         tuned,
	})

	hits := testutil.ToFloat64(tuningLookups.WithLabelValues("resample", "hit"))

	s := resampleSelector(t, WithTuning(store))
	plans, err := s.GetBestKernels(p)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"RefResample", "OptResample"}, names(plans)); diff != "" {
		t.Fatalf("Tuning-Record sollte RefResample nach vorne ziehen (-want +got):\n%s", diff)
	}
	if !plans[0].Tuned || plans[0].Launch != tuned {
		t.Errorf("RefResample sollte die getunte Launch-Konfiguration nutzen, bekommen %s", plans[0].Launch)
	}
	if plans[1].Tuned {
		t.Error("OptResample darf den Record nicht sehen")
	}
	if got := testutil.ToFloat64(tuningLookups.WithLabelValues("resample", "hit")); got != hits+1 {
		t.Errorf("hit-Zaehler: erwartet %v, bekommen %v", hits+1, got)
	}

	// andere Parameter sind vom Record nicht betroffen
	other := resampleParams(t, ml.LayoutPacked, ml.DTypeF16)
	plans, err = s.GetBestKernels(other)
	if err != nil {
		t.Fatal(err)
	}
	if plans[0].Implementation != "OptResample" {
		t.Errorf("ohne Record: erwartet OptResample zuerst, bekommen %s", plans[0].Implementation)
	}

	// WithoutTuning ignoriert den Store
	plans, err = resampleSelector(t, WithTuning(store), WithoutTuning()).GetBestKernels(p)
	if err != nil {
		t.Fatal(err)
	}
	if plans[0].Implementation != "OptResample" {
		t.Errorf("WithoutTuning: erwartet OptResample zuerst, bekommen %s", plans[0].Implementation)
	}
}

func TestTuningRecordForInapplicableImplementation(t *testing.T) {
	p := resampleParams(t, ml.LayoutPlanar, ml.DTypeF32)
	store := tuning.NewMemoryStore(tuning.Record{Fingerprint: p.Fingerprint(), Implementation: "OptResample"})

	unused := testutil.ToFloat64(tuningLookups.WithLabelValues("resample", "unused"))
	plans, err := resampleSelector(t, WithTuning(store)).GetBestKernels(p)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"RefResample"}, names(plans)); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
	if got := testutil.ToFloat64(tuningLookups.WithLabelValues("resample", "unused")); got != unused+1 {
		t.Errorf("unused-Zaehler: erwartet %v, bekommen %v", unused+1, got)
	}
}

func TestTuningRecordOnlyPassedToNamedImplementation(t *testing.T) {
	p := resampleParams(t, ml.LayoutPacked, ml.DTypeF32)

	var seen sync.Map
	spy := func(name string, prio Priority) *Impl {
		return &Impl{
			ImplName: name,
			Fixed:    prio,
			Build: func(p *Params, rec *tuning.Record) (*DispatchPlan, error) {
				seen.Store(name, rec != nil)
				return fitted(name)(p, rec)
			},
		}
	}

	// ungueltiger Launch im Record: Auswahl bleibt, Launch wird neu berechnet
	store := tuning.NewMemoryStore(tuning.Record{
		Fingerprint:    p.Fingerprint(),
		Implementation: "B",
		Launch:         ml.LaunchConfig{Global: [3]int{10, 1, 1}, Local: [3]int{3, 1, 1}},
	})
	s, err := NewSelector(KindResample, newCatalog(t, KindResample, spy("A", 50), spy("B", 5)), WithTuning(store))
	if err != nil {
		t.Fatal(err)
	}

	plans, err := s.GetBestKernels(p)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"B", "A"}, names(plans)); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
	if plans[0].Tuned {
		t.Error("ungueltiger getunter Launch darf nicht als Tuned markiert werden")
	}

	a, _ := seen.Load("A")
	b, _ := seen.Load("B")
	if a != false || b != true {
		t.Errorf("Record-Weitergabe: A=%v B=%v, erwartet A=false B=true", a, b)
	}
}

// ============================================================================
// Reihenfolge
// ============================================================================

func TestSelectorTieBreakRegistrationOrder(t *testing.T) {
	c := newCatalog(t, KindResample,
		plainImpl{name: "First", prio: PriorityGeneric},
		plainImpl{name: "Low", prio: PriorityDontUse},
		plainImpl{name: "Second", prio: PriorityGeneric},
		plainImpl{name: "High", prio: PriorityVendor},
		plainImpl{name: "Third", prio: PriorityGeneric},
	)
	s, err := NewSelector(KindResample, c)
	if err != nil {
		t.Fatal(err)
	}
	if !c.Frozen() {
		t.Error("NewSelector sollte den Katalog einfrieren")
	}

	p := resampleParams(t, ml.LayoutPlanar, ml.DTypeF32)
	first, err := s.GetBestKernels(p)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"High", "First", "Second", "Third", "Low"}, names(first)); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}

	// deterministisch ueber wiederholte Aufrufe
	for range 10 {
		again, err := s.GetBestKernels(p)
		if err != nil {
			t.Fatal(err)
		}
		if diff := cmp.Diff(first, again, cmpopts.IgnoreUnexported(DispatchPlan{})); diff != "" {
			t.Fatalf("nicht deterministisch (-first +again):\n%s", diff)
		}
	}

	best, err := s.GetBestKernel(p)
	if err != nil || best.Implementation != "High" {
		t.Errorf("GetBestKernel: %v %v", best, err)
	}
}

func TestSelectorForcedAndDisabled(t *testing.T) {
	packed := resampleParams(t, ml.LayoutPacked, ml.DTypeF32)
	planar := resampleParams(t, ml.LayoutPlanar, ml.DTypeF32)

	cases := []struct {
		name string
		opts []SelectorOption
		p    *Params
		want []string
	}{
		{"forced ref", []SelectorOption{WithForced(map[Kind]string{KindResample: "RefResample"})}, packed, []string{"RefResample", "OptResample"}},
		{"forced nicht anwendbar", []SelectorOption{WithForced(map[Kind]string{KindResample: "OptResample"})}, planar, []string{"RefResample"}},
		{"forced anderes kind", []SelectorOption{WithForced(map[Kind]string{KindPooling: "RefResample"})}, packed, []string{"OptResample", "RefResample"}},
		{"disabled opt", []SelectorOption{WithDisabledPattern("^Opt")}, packed, []string{"RefResample"}},
		{"disabled mit lookahead", []SelectorOption{WithDisabledPattern(`^(?!Ref).*`)}, packed, []string{"RefResample"}},
		{"max candidates", []SelectorOption{WithMaxCandidates(1)}, packed, []string{"OptResample"}},
	}

	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			plans, err := resampleSelector(t, tt.opts...).GetBestKernels(tt.p)
			if err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(tt.want, names(plans)); diff != "" {
				t.Errorf("(-want +got):\n%s", diff)
			}
		})
	}
}

func TestSelectorForcedBeatsTuned(t *testing.T) {
	p := resampleParams(t, ml.LayoutPacked, ml.DTypeF32)
	store := tuning.NewMemoryStore(tuning.Record{Fingerprint: p.Fingerprint(), Implementation: "OptResample"})

	c := newCatalog(t, KindResample, refResample(), optResample(), plainImpl{name: "Vendor", prio: PriorityVendor})
	s, err := NewSelector(KindResample, c,
		WithTuning(store),
		WithForced(map[Kind]string{KindResample: "RefResample"}),
	)
	if err != nil {
		t.Fatal(err)
	}

	plans, err := s.GetBestKernels(p)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"RefResample", "OptResample", "Vendor"}, names(plans)); diff != "" {
		t.Errorf("forced > tuned > Prioritaet (-want +got):\n%s", diff)
	}
}

// ============================================================================
// Fehlerfaelle
// ============================================================================

func TestSelectorErrors(t *testing.T) {
	planar := resampleParams(t, ml.LayoutPlanar, ml.DTypeF32)
	pooling := MustParams(KindPooling,
		WithOutput(ml.TensorDesc{Shape: []int{1, 4}, DType: ml.DTypeF32, Layout: ml.LayoutPlanar}))

	optOnly, err := NewSelector(KindResample, newCatalog(t, KindResample, optResample()))
	if err != nil {
		t.Fatal(err)
	}
	s := resampleSelector(t)

	cases := []struct {
		name string
		sel  *Selector
		p    *Params
		want error
	}{
		{"nichts anwendbar", optOnly, planar, ErrNoApplicable},
		{"falsches kind", s, pooling, ErrKindMismatch},
		{"nil params", s, nil, ErrInvalidParams},
	}

	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			plans, err := tt.sel.GetBestKernels(tt.p)
			if !errors.Is(err, tt.want) {
				t.Fatalf("erwartet %v, bekommen %v", tt.want, err)
			}
			if plans != nil {
				t.Error("bei Fehler duerfen keine Plaene geliefert werden")
			}
			if IsConfigError(err) {
				t.Error("Auswahl-Fehler sollte kein Konfigurationsfehler sein")
			}
		})
	}

	_, err = optOnly.GetBestKernels(planar)
	var ke *Error
	if !errors.As(err, &ke) || ke.Summary == "" || ke.Kind != KindResample {
		t.Errorf("ErrNoApplicable sollte Kind und Summary tragen: %#v", ke)
	}
}

func TestSelectorBuildFailures(t *testing.T) {
	p := resampleParams(t, ml.LayoutPacked, ml.DTypeF32)

	nilPlan := &Impl{ImplName: "NilPlan", Fixed: PriorityVendor, Build: func(*Params, *tuning.Record) (*DispatchPlan, error) { return nil, nil }}
	wrongName := &Impl{ImplName: "WrongName", Fixed: PriorityVendor, Build: fitted("Other")}
	badScalar := &Impl{ImplName: "BadScalar", Fixed: PriorityVendor, Build: func(p *Params, rec *tuning.Record) (*DispatchPlan, error) {
		plan, err := fitted("BadScalar")(p, rec)
		if err != nil {
			return nil, err
		}
		return plan.BindScalar("n", ml.DTypeU8, -1), nil
	}}
	tooBig := &Impl{ImplName: "TooBig", Fixed: PriorityVendor, Build: func(p *Params, _ *tuning.Record) (*DispatchPlan, error) {
		return NewPlan("TooBig", p, "").WithLaunch(ml.LaunchConfig{Global: [3]int{1024, 1, 1}, Local: [3]int{1024, 1, 1}}), nil
	}}

	t.Run("teilweise", func(t *testing.T) {
		before := testutil.ToFloat64(buildFailures.WithLabelValues("resample", "Broken"))
		c := newCatalog(t, KindResample, failing("Broken", PriorityVendor), nilPlan, wrongName, badScalar, tooBig, refResample(), optResample())
		s, err := NewSelector(KindResample, c)
		if err != nil {
			t.Fatal(err)
		}

		plans, err := s.GetBestKernels(p)
		if err != nil {
			t.Fatal(err)
		}
		if diff := cmp.Diff([]string{"OptResample", "RefResample"}, names(plans)); diff != "" {
			t.Errorf("(-want +got):\n%s", diff)
		}
		if got := testutil.ToFloat64(buildFailures.WithLabelValues("resample", "Broken")); got != before+1 {
			t.Errorf("build_failures: erwartet %v, bekommen %v", before+1, got)
		}
	})

	t.Run("alle", func(t *testing.T) {
		c := newCatalog(t, KindResample, failing("A", PriorityGeneric), failing("B", PriorityReference))
		s, err := NewSelector(KindResample, c)
		if err != nil {
			t.Fatal(err)
		}

		_, err = s.GetBestKernels(p)
		if !errors.Is(err, ErrAllBuildsFailed) {
			t.Fatalf("erwartet ErrAllBuildsFailed, bekommen %v", err)
		}
		var ke *Error
		if !errors.As(err, &ke) || len(ke.Causes) != 2 {
			t.Fatalf("erwartet 2 Ursachen, bekommen %#v", ke)
		}
		if !errors.Is(ke.Causes[0], errBuild) {
			t.Errorf("Ursache sollte den Build-Fehler wrappen: %v", ke.Causes[0])
		}
	})
}

// ============================================================================
// Nebenlaeufigkeit und Explain
// ============================================================================

func TestSelectorConcurrent(t *testing.T) {
	s := resampleSelector(t)
	packed := resampleParams(t, ml.LayoutPacked, ml.DTypeF32)
	planar := resampleParams(t, ml.LayoutPlanar, ml.DTypeF32)

	var wg sync.WaitGroup
	var failures atomic.Int32
	for i := range 32 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p, want := packed, []string{"OptResample", "RefResample"}
			if i%2 == 1 {
				p, want = planar, []string{"RefResample"}
			}
			for range 50 {
				plans, err := s.GetBestKernels(p)
				if err != nil || !cmp.Equal(want, names(plans)) {
					failures.Add(1)
				}
			}
		}()
	}
	wg.Wait()

	if n := failures.Load(); n > 0 {
		t.Errorf("%d nebenlaeufige Auswahlen lieferten falsche Ergebnisse", n)
	}
}

func TestSelectorExplain(t *testing.T) {
	c := newCatalog(t, KindResample, refResample(), optResample(), failing("Broken", PriorityVendor), plainImpl{name: "Off"})
	s, err := NewSelector(KindResample, c, WithDisabledPattern("^Off$"))
	if err != nil {
		t.Fatal(err)
	}

	got, err := s.Explain(resampleParams(t, ml.LayoutPlanar, ml.DTypeF32))
	if err != nil {
		t.Fatal(err)
	}

	want := []Candidate{
		{Name: "RefResample", Position: 0, Covered: true, Supported: true, Priority: PriorityReference, Rank: 1},
		{Name: "OptResample", Position: 1, Covered: true, Rank: -1},
		{Name: "Broken", Position: 2, Covered: true, Supported: true, Priority: PriorityVendor, Rank: 0},
		{Name: "Off", Position: 3, Covered: true, Disabled: true, Rank: -1},
	}
	if diff := cmp.Diff(want, got, cmpopts.IgnoreFields(Candidate{}, "Plan", "Error")); diff != "" {
		t.Errorf("Explain (-want +got):\n%s", diff)
	}
	if got[0].Plan == nil || got[0].Error != "" {
		t.Error("RefResample sollte einen Plan haben")
	}
	if got[2].Plan != nil || got[2].Error == "" {
		t.Error("Broken sollte einen Fehler melden")
	}

	if s.Disabled("RefResample") || !s.Disabled("Off") {
		t.Error("Disabled wertet das Muster falsch aus")
	}
}

func TestExplainLeavesTuningMetrics(t *testing.T) {
	p := resampleParams(t, ml.LayoutPacked, ml.DTypeF32)
	store := tuning.NewMemoryStore(tuning.Record{Fingerprint: p.Fingerprint(), Kind: "resample", Implementation: "RefResample"})
	s := resampleSelector(t, WithTuning(store))

	counts := func() [3]float64 {
		return [3]float64{
			testutil.ToFloat64(tuningLookups.WithLabelValues("resample", "hit")),
			testutil.ToFloat64(tuningLookups.WithLabelValues("resample", "miss")),
			testutil.ToFloat64(tuningLookups.WithLabelValues("resample", "unused")),
		}
	}

	before := counts()
	if _, err := s.Explain(p); err != nil {
		t.Fatal(err)
	}
	if got := counts(); got != before {
		t.Errorf("Explain darf Tuning-Zaehler nicht aendern: erwartet %v, bekommen %v", before, got)
	}

	if _, err := s.GetBestKernels(p); err != nil {
		t.Fatal(err)
	}
	if got := counts(); got[0] != before[0]+1 || got[1] != before[1] {
		t.Errorf("GetBestKernels sollte einen Treffer zaehlen: vorher %v, bekommen %v", before, got)
	}
}
