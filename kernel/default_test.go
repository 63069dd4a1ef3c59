package kernel

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/ollama/kselect/ml"
	"github.com/ollama/kselect/tuning"
)

func TestOptionsFromEnv(t *testing.T) {
	ctx := context.Background()
	p := resampleParams(t, ml.LayoutPacked, ml.DTypeF32)
	db := filepath.Join(t.TempDir(), "tuning.sqlite")

	build := func(t *testing.T) *Registry {
		t.Helper()
		opts, err := OptionsFromEnv(ctx)
		if err != nil {
			t.Fatal(err)
		}
		r, err := NewRegistry(newCatalog(t, KindResample, refResample(), optResample()), opts...)
		if err != nil {
			t.Fatal(err)
		}
		return r
	}

	t.Run("ungueltiges force", func(t *testing.T) {
		t.Setenv("KSEL_FORCE_IMPL", "resample")
		_, err := OptionsFromEnv(ctx)
		if !IsConfigError(err) {
			t.Fatalf("erwartet Konfigurationsfehler, bekommen %v", err)
		}
	})

	t.Run("ohne datenbank", func(t *testing.T) {
		t.Setenv("KSEL_TUNING_DB", db)
		if r := build(t); r.Tuning() != tuning.Empty {
			t.Error("fehlende Datenbank sollte ohne Tuning laufen")
		}
	})

	t.Run("fremde datei bleibt unveraendert", func(t *testing.T) {
		foreign := filepath.Join(t.TempDir(), "foreign.sqlite")
		if err := os.WriteFile(foreign, nil, 0o644); err != nil {
			t.Fatal(err)
		}
		t.Setenv("KSEL_TUNING_DB", foreign)
		if r := build(t); r.Tuning() != tuning.Empty {
			t.Error("unlesbare Datenbank sollte ohne Tuning laufen")
		}
		if fi, err := os.Stat(foreign); err != nil || fi.Size() != 0 {
			t.Errorf("Auswahl darf die Datenbank nicht schreiben: %v %v", fi, err)
		}
	})

	store, err := tuning.OpenSQLite(ctx, db)
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Save(ctx, []tuning.Record{{Fingerprint: p.Fingerprint(), Kind: "resample", Implementation: "RefResample"}}); err != nil {
		t.Fatal(err)
	}
	store.Close()

	t.Run("mit datenbank", func(t *testing.T) {
		t.Setenv("KSEL_TUNING_DB", db)
		plans, err := build(t).GetBestKernels(p)
		if err != nil {
			t.Fatal(err)
		}
		if plans[0].Implementation != "RefResample" {
			t.Errorf("Record aus der Datenbank wurde nicht angewandt: %v", names(plans))
		}
	})

	t.Run("no tuning", func(t *testing.T) {
		t.Setenv("KSEL_TUNING_DB", db)
		t.Setenv("KSEL_NO_TUNING", "1")
		plans, err := build(t).GetBestKernels(p)
		if err != nil {
			t.Fatal(err)
		}
		if plans[0].Implementation != "OptResample" {
			t.Errorf("KSEL_NO_TUNING sollte den Record ignorieren: %v", names(plans))
		}
	})

	t.Run("schalter", func(t *testing.T) {
		t.Setenv("KSEL_TUNING_DB", db)
		t.Setenv("KSEL_NO_TUNING", "true")
		t.Setenv("KSEL_MAX_CANDIDATES", "1")
		t.Setenv("KSEL_FORCE_IMPL", "resample=RefResample")
		plans, err := build(t).GetBestKernels(p)
		if err != nil {
			t.Fatal(err)
		}
		if len(plans) != 1 || plans[0].Implementation != "RefResample" {
			t.Errorf("erwartet nur RefResample, bekommen %v", names(plans))
		}

		t.Setenv("KSEL_FORCE_IMPL", "")
		t.Setenv("KSEL_DISABLE_IMPL", "^Opt")
		plans, err = build(t).GetBestKernels(p)
		if err != nil {
			t.Fatal(err)
		}
		if len(plans) != 1 || plans[0].Implementation != "RefResample" {
			t.Errorf("KSEL_DISABLE_IMPL: erwartet RefResample, bekommen %v", names(plans))
		}
	})
}
