// config_utils.go - Utility-Funktionen und Export fuer Konfiguration
//
// Dieses Modul enthaelt:
// - BoolWithDefault/Bool: Boolean-Getter mit Default-Wert
// - String: String-Getter
// - Uint: Integer-Getter mit Default-Wert
// - EnvVar: Struktur fuer Environment-Variablen-Info
// - AsMap: Gibt alle Konfigurationen als Map zurueck
// - Values: Gibt alle Konfigurationswerte als String-Map zurueck
package envconfig

import (
	"fmt"
	"log/slog"
	"strconv"
)

// =============================================================================
// Boolean-Getter
// =============================================================================

// BoolWithDefault gibt eine Funktion zurueck, die einen Bool mit Default-Wert liest
func BoolWithDefault(k string) func(defaultValue bool) bool {
	return func(defaultValue bool) bool {
		if s := Var(k); s != "" {
			b, err := strconv.ParseBool(s)
			if err != nil {
				return true
			}
			return b
		}
		return defaultValue
	}
}

// Bool gibt eine Funktion zurueck, die einen Bool liest (Default: false)
func Bool(k string) func() bool {
	withDefault := BoolWithDefault(k)
	return func() bool {
		return withDefault(false)
	}
}

// =============================================================================
// String-Getter
// =============================================================================

// String gibt eine Funktion zurueck, die einen String liest
func String(s string) func() string {
	return func() string {
		return Var(s)
	}
}

// =============================================================================
// Integer-Getter
// =============================================================================

// Uint gibt eine Funktion zurueck, die einen uint mit Default-Wert liest
func Uint(key string, defaultValue uint) func() uint {
	return func() uint {
		if s := Var(key); s != "" {
			if n, err := strconv.ParseUint(s, 10, 64); err != nil {
				slog.Warn("invalid environment variable, using default", "key", key, "value", s, "default", defaultValue)
			} else {
				return uint(n)
			}
		}
		return defaultValue
	}
}

// =============================================================================
// Export-Strukturen und -Funktionen
// =============================================================================

// EnvVar repraesentiert eine Environment-Variable mit Metadaten
type EnvVar struct {
	Name        string
	Value       any
	Description string
}

// AsMap gibt alle Konfigurationen als Map zurueck
// Enthaelt Namen, aktuelle Werte und Beschreibungen
func AsMap() map[string]EnvVar {
	return map[string]EnvVar{
		"KSEL_DEBUG":          {"KSEL_DEBUG", LogLevel(), "Show additional debug information (e.g. KSEL_DEBUG=1, 2 for trace)"},
		"KSEL_HOST":           {"KSEL_HOST", Host(), "Listen address of the introspection API (default 127.0.0.1:11535)"},
		"KSEL_ORIGINS":        {"KSEL_ORIGINS", AllowedOrigins(), "A comma separated list of allowed origins"},
		"KSEL_TUNING_DB":      {"KSEL_TUNING_DB", TuningDB(), "Path of the SQLite tuning database"},
		"KSEL_NO_TUNING":      {"KSEL_NO_TUNING", NoTuning(), "Ignore tuning records"},
		"KSEL_FORCE_IMPL":     {"KSEL_FORCE_IMPL", ForceImpl(), "Force implementations per kind (kind=name[,kind=name])"},
		"KSEL_DISABLE_IMPL":   {"KSEL_DISABLE_IMPL", DisableImpl(), "Pattern of implementation names that are never selected"},
		"KSEL_NUM_PARALLEL":   {"KSEL_NUM_PARALLEL", NumParallel(), "Maximum number of parallel selections (default: number of CPUs)"},
		"KSEL_MAX_CANDIDATES": {"KSEL_MAX_CANDIDATES", MaxCandidates(), "Maximum number of returned plans (default: all)"},
	}
}

// Values gibt alle Konfigurationswerte als String-Map zurueck
func Values() map[string]string {
	vals := make(map[string]string)
	for k, v := range AsMap() {
		vals[k] = fmt.Sprintf("%v", v.Value)
	}
	return vals
}
