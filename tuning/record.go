// MODUL: record
// ZWECK: TuningRecord und Store-Interface fuer gemessene Best-Konfigurationen
// INPUT: Exakter Parameter-Fingerprint
// OUTPUT: Optionaler Record (Implementierung + Launch-Konfiguration)
// NEBENEFFEKTE: Keine
// ABHAENGIGKEITEN: ml
// HINWEISE: Fehlende Records sind der Normalfall und nie fuer Korrektheit noetig

package tuning

import (
	"time"

	"github.com/ollama/kselect/ml"
)

// Record is a previously measured best implementation and launch configuration
// for one exact parameter fingerprint.
type Record struct {
	Fingerprint    string          `json:"fingerprint"`
	Kind           string          `json:"kind"`
	Implementation string          `json:"implementation"`
	Launch         ml.LaunchConfig `json:"launch"`

	// Messwerte aus dem Tuning-Lauf
	MeanNanos   float64   `json:"mean_ns,omitempty"`
	StdDevNanos float64   `json:"stddev_ns,omitempty"`
	Samples     int       `json:"samples,omitempty"`
	UpdatedAt   time.Time `json:"updated_at,omitzero"`
}

// HasLaunch reports whether the record carries a usable launch configuration.
func (r Record) HasLaunch() bool {
	return r.Launch.Global[0] > 0 && r.Launch.Local[0] > 0
}

// Store is the read side of a tuning cache. Lookups run on the selection hot path
// and must not block on writers.
type Store interface {
	Lookup(fingerprint string) (Record, bool)
}

// Empty is a Store without records.
var Empty Store = emptyStore{}

type emptyStore struct{}

func (emptyStore) Lookup(string) (Record, bool) { return Record{}, false }
