package tuning

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/ollama/kselect/ml"
)

func TestSQLiteStore(t *testing.T) {
	ctx := t.Context()
	path := filepath.Join(t.TempDir(), "nested", "tuning.sqlite")

	s, err := OpenSQLite(ctx, path)
	if err != nil {
		t.Fatal(err)
	}
	if s.Path() != path || s.Len() != 0 {
		t.Fatalf("neue Datenbank sollte leer sein: %s %d", s.Path(), s.Len())
	}

	launch := ml.LaunchConfig{Global: [3]int{16, 16, 16}, Local: [3]int{1, 1, 16}}
	want := Record{
		Fingerprint:    "fp1",
		Kind:           "resample",
		Implementation: "OptResample",
		Launch:         launch,
		MeanNanos:      1200,
		StdDevNanos:    15,
		Samples:        5,
	}
	if err := s.Save(ctx, []Record{want, {Fingerprint: "fp2", Kind: "resample", Implementation: "RefResample"}}); err != nil {
		t.Fatal(err)
	}

	got, ok := s.Lookup("fp1")
	if !ok {
		t.Fatal("gespeicherter Record nicht gefunden")
	}
	if got.UpdatedAt.IsZero() {
		t.Error("UpdatedAt sollte gesetzt werden")
	}
	if diff := cmp.Diff(want, got, cmpopts.IgnoreFields(Record{}, "UpdatedAt")); diff != "" {
		t.Errorf("Record (-want +got):\n%s", diff)
	}

	// upsert
	want.Implementation = "RefResample"
	want.UpdatedAt = time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	if err := s.Save(ctx, []Record{want}); err != nil {
		t.Fatal(err)
	}
	if s.Len() != 2 {
		t.Errorf("Upsert sollte keinen neuen Record anlegen, bekommen %d", s.Len())
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	s, err = OpenSQLite(ctx, path)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	got, _ = s.Lookup("fp1")
	if got.Implementation != "RefResample" || !got.UpdatedAt.Equal(want.UpdatedAt) {
		t.Errorf("nach erneutem Oeffnen: %+v", got)
	}
	if r, _ := s.Lookup("fp2"); r.HasLaunch() || r.MeanNanos != 0 {
		t.Errorf("Record ohne Messwerte veraendert: %+v", r)
	}
}

func TestSQLiteStoreRejectsIncomplete(t *testing.T) {
	ctx := t.Context()
	s, err := OpenSQLite(ctx, filepath.Join(t.TempDir(), "tuning.sqlite"))
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	err = s.Save(ctx, []Record{
		{Fingerprint: "ok", Implementation: "RefResample"},
		{Fingerprint: "broken"},
	})
	if err == nil {
		t.Fatal("erwartet Fehler fuer Record ohne Implementierung")
	}
	if s.Len() != 0 {
		t.Errorf("Transaktion sollte zurueckgerollt werden, bekommen %d Records", s.Len())
	}
}

func TestSQLiteStoreReadOnly(t *testing.T) {
	ctx := t.Context()
	dir := t.TempDir()

	t.Run("fehlende datei", func(t *testing.T) {
		path := filepath.Join(dir, "missing.sqlite")
		if _, err := OpenSQLiteReadOnly(ctx, path); err == nil {
			t.Fatal("erwartet Fehler fuer fehlende Datenbank")
		}
		if _, err := os.Stat(path); !errors.Is(err, fs.ErrNotExist) {
			t.Errorf("Datenbank sollte nicht angelegt werden, bekommen %v", err)
		}
	})

	t.Run("fremde datei", func(t *testing.T) {
		path := filepath.Join(dir, "foreign.sqlite")
		if err := os.WriteFile(path, nil, 0o644); err != nil {
			t.Fatal(err)
		}
		if _, err := OpenSQLiteReadOnly(ctx, path); err == nil {
			t.Fatal("erwartet Fehler fuer Datenbank ohne Tabelle")
		}
		if fi, err := os.Stat(path); err != nil || fi.Size() != 0 {
			t.Errorf("Datei sollte unveraendert bleiben: %v %v", fi, err)
		}
	})

	t.Run("vorhandene datenbank", func(t *testing.T) {
		path := filepath.Join(dir, "tuning.sqlite")
		w, err := OpenSQLite(ctx, path)
		if err != nil {
			t.Fatal(err)
		}
		if err := w.Save(ctx, []Record{{Fingerprint: "fp1", Kind: "resample", Implementation: "RefResample"}}); err != nil {
			t.Fatal(err)
		}
		w.Close()

		s, err := OpenSQLiteReadOnly(ctx, path)
		if err != nil {
			t.Fatal(err)
		}
		defer s.Close()

		if r, ok := s.Lookup("fp1"); !ok || r.Implementation != "RefResample" {
			t.Errorf("erwartet RefResample, bekommen %+v", r)
		}
		if err := s.Save(ctx, []Record{{Fingerprint: "fp2", Implementation: "OptResample"}}); err == nil {
			t.Error("Save auf schreibgeschuetzter Datenbank sollte fehlschlagen")
		}
		if s.Len() != 1 {
			t.Errorf("erwartet 1 Record, bekommen %d", s.Len())
		}
	})
}
