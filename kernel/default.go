// MODUL: default
// ZWECK: Prozessweite Registry aus DefaultCatalog und Environment-Konfiguration
// INPUT: KSEL_* Variablen (envconfig), optionale SQLite Tuning-Datenbank
// OUTPUT: *Registry (lazy, einmalig)
// NEBENEFFEKTE: Oeffnet die Tuning-Datenbank nur lesend, friert DefaultCatalog ein
// ABHAENGIGKEITEN: envconfig, tuning
// HINWEISE: Backends muessen vorher registriert sein (import _ ".../backend/all")

package kernel

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"sync"

	"github.com/ollama/kselect/envconfig"
	"github.com/ollama/kselect/tuning"
)

var defaultRegistry = sync.OnceValues(func() (*Registry, error) {
	opts, err := OptionsFromEnv(context.Background())
	if err != nil {
		return nil, err
	}
	return NewRegistry(DefaultCatalog, opts...)
})

// Default returns the process registry built from DefaultCatalog.
func Default() (*Registry, error) {
	return defaultRegistry()
}

// OptionsFromEnv derives selector options from the environment. The tuning
// database is opened only if it already exists; a missing database is not an error.
func OptionsFromEnv(ctx context.Context) ([]SelectorOption, error) {
	forced, err := ParseForced(envconfig.ForceImpl())
	if err != nil {
		return nil, &Error{Op: "configure", Err: errors.Join(ErrInvalidImplementation, err)}
	}

	opts := []SelectorOption{
		WithForced(forced),
		WithDisabledPattern(envconfig.DisableImpl()),
		WithMaxCandidates(int(envconfig.MaxCandidates())),
		WithParallel(int(envconfig.NumParallel())),
	}

	if envconfig.NoTuning() {
		return append(opts, WithoutTuning()), nil
	}

	path := envconfig.TuningDB()
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		slog.Debug("no tuning database", "path", path)
		return opts, nil
	}

	store, err := tuning.OpenSQLiteReadOnly(ctx, path)
	if err != nil {
		slog.Warn("tuning database unavailable, continuing without tuning", "path", path, "error", err)
		return opts, nil
	}
	slog.Info("loaded tuning database", "path", path, "records", store.Len())
	return append(opts, WithTuning(store)), nil
}
