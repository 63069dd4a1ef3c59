// MODUL: catalog_test
// ZWECK: Unit-Tests fuer Registrierung, Reihenfolge und Einfrieren des Katalogs
// INPUT: Keine
// OUTPUT: Test-Ergebnisse
// NEBENEFFEKTE: Keine (eigene Kataloge, DefaultCatalog bleibt unberuehrt)
// ABHAENGIGKEITEN: testing (stdlib), github.com/google/go-cmp
// HINWEISE: Keine

package kernel

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestCatalogRegisterOrder(t *testing.T) {
	c := newCatalog(t, KindResample, refResample(), optResample(), plainImpl{name: "Third"})

	var got []string
	for _, impl := range c.GetAll(KindResample) {
		got = append(got, impl.Name())
	}
	if diff := cmp.Diff([]string{"RefResample", "OptResample", "Third"}, got); diff != "" {
		t.Errorf("GetAll mismatch (-want +got):\n%s", diff)
	}

	if impl, ok := c.Get(KindResample, "OptResample"); !ok || impl.Name() != "OptResample" {
		t.Errorf("Get: OptResample nicht gefunden")
	}
	if _, ok := c.Get(KindResample, "Missing"); ok {
		t.Error("Get: unbekannter Name sollte nicht gefunden werden")
	}
	if got := c.GetAll(KindPooling); len(got) != 0 {
		t.Errorf("GetAll fuer leeres Kind: erwartet leer, bekommen %d", len(got))
	}
}

func TestCatalogRegisterErrors(t *testing.T) {
	c := newCatalog(t, KindResample, refResample())

	cases := []struct {
		name string
		kind Kind
		impl Implementation
		want error
	}{
		{"doppelter name", KindResample, refResample(), ErrDuplicateImplementation},
		{"leeres kind", "", optResample(), ErrInvalidImplementation},
		{"nil implementierung", KindResample, nil, ErrInvalidImplementation},
		{"leerer name", KindResample, &Impl{}, ErrInvalidImplementation},
	}

	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			err := c.Register(tt.kind, tt.impl)
			if !errors.Is(err, tt.want) {
				t.Fatalf("erwartet %v, bekommen %v", tt.want, err)
			}
			if !IsConfigError(err) {
				t.Errorf("IsConfigError(%v) sollte true sein", err)
			}
		})
	}

	// gleicher Name fuer ein anderes Kind ist erlaubt
	if err := c.Register(KindPooling, refResample()); err != nil {
		t.Errorf("gleicher Name in anderem Kind: %v", err)
	}
}

func TestCatalogFreeze(t *testing.T) {
	c := newCatalog(t, KindResample, refResample())
	before := c.GetAll(KindResample)
	before[0] = nil
	if c.GetAll(KindResample)[0] == nil {
		t.Fatal("GetAll vor Freeze sollte eine Kopie liefern")
	}

	c.Freeze()
	c.Freeze()
	if !c.Frozen() {
		t.Fatal("Frozen: erwartet true")
	}

	err := c.Register(KindResample, optResample())
	if !errors.Is(err, ErrCatalogFrozen) {
		t.Fatalf("Register nach Freeze: erwartet ErrCatalogFrozen, bekommen %v", err)
	}

	var ke *Error
	if !errors.As(err, &ke) || ke.Op != "register" || ke.Name != "OptResample" {
		t.Errorf("Fehler-Details falsch: %#v", ke)
	}

	if c.Len() != 1 {
		t.Errorf("Len: erwartet 1, bekommen %d", c.Len())
	}
}

func TestCatalogKinds(t *testing.T) {
	c := NewCatalog()
	c.MustRegister(KindSoftmax, plainImpl{name: "A"})
	c.MustRegister(KindConvolution, plainImpl{name: "A"}, plainImpl{name: "B"})
	c.MustRegister(KindEltwise, plainImpl{name: "A"})

	want := []Kind{KindConvolution, KindEltwise, KindSoftmax}
	if diff := cmp.Diff(want, c.Kinds()); diff != "" {
		t.Errorf("Kinds vor Freeze (-want +got):\n%s", diff)
	}
	c.Freeze()
	if diff := cmp.Diff(want, c.Kinds()); diff != "" {
		t.Errorf("Kinds nach Freeze (-want +got):\n%s", diff)
	}
	if c.Len() != 4 {
		t.Errorf("Len: erwartet 4, bekommen %d", c.Len())
	}
}

func TestCatalogMustRegisterPanics(t *testing.T) {
	c := NewCatalog()
	c.MustRegister(KindResample, refResample())

	defer func() {
		if recover() == nil {
			t.Error("MustRegister mit doppeltem Namen sollte paniken")
		}
	}()
	c.MustRegister(KindResample, refResample())
}
