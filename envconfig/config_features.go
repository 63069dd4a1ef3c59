// config_features.go - Auswahl-Schalter und Parallelitaet
//
// Dieses Modul enthaelt:
// - Tuning-Schalter
// - Debug-Schalter zum Erzwingen/Deaktivieren von Implementierungen
// - Parallelitaets- und Kandidaten-Limits
package envconfig

// =============================================================================
// Tuning
// =============================================================================

var (
	// NoTuning ignoriert alle Tuning-Records
	NoTuning = Bool("KSEL_NO_TUNING")
)

// =============================================================================
// Debug-Schalter
// =============================================================================

var (
	// ForceImpl erzwingt Implementierungen pro Kind, Format kind=name[,kind=name]
	ForceImpl = String("KSEL_FORCE_IMPL")

	// DisableImpl ist ein regexp2-Muster; passende Implementierungen werden nie gewaehlt
	DisableImpl = String("KSEL_DISABLE_IMPL")
)

// =============================================================================
// Parallelitaet und Limits
// =============================================================================

var (
	// NumParallel begrenzt parallele Auswahlen in SelectAll
	// Konfigurierbar via KSEL_NUM_PARALLEL, 0 = GOMAXPROCS
	NumParallel = Uint("KSEL_NUM_PARALLEL", 0)

	// MaxCandidates begrenzt die Anzahl zurueckgegebener Plaene
	// Konfigurierbar via KSEL_MAX_CANDIDATES, 0 = alle
	MaxCandidates = Uint("KSEL_MAX_CANDIDATES", 0)
)
