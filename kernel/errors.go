// MODUL: errors
// ZWECK: Fehler-Taxonomie der Kernel-Auswahl
// INPUT: Operation, Kind, Implementierungs-Name, Ursache
// OUTPUT: *Error mit Unwrap, Sentinel-Fehler fuer errors.Is
// NEBENEFFEKTE: Keine
// ABHAENGIGKEITEN: errors, strings (stdlib)
// HINWEISE: Konfigurationsfehler sind fatal, Parameter-Fehler darf der Aufrufer behandeln

package kernel

import (
	"errors"
	"strings"
)

// ============================================================================
// Sentinel-Fehler
// ============================================================================

var (
	// Konfigurationsfehler
	ErrDuplicateImplementation = errors.New("kernel: implementation already registered")
	ErrCatalogFrozen           = errors.New("kernel: catalog is frozen")
	ErrInvalidImplementation   = errors.New("kernel: invalid implementation")
	ErrUnknownKind             = errors.New("kernel: unknown primitive kind")

	// Parameter-abhaengige Fehler
	ErrNoApplicable    = errors.New("kernel: no applicable implementation")
	ErrAllBuildsFailed = errors.New("kernel: all applicable implementations failed to build")
	ErrKindMismatch    = errors.New("kernel: params kind does not match selector")
	ErrInvalidParams   = errors.New("kernel: invalid operation parameters")
	ErrInvalidPlan     = errors.New("kernel: invalid dispatch plan")
)

// ============================================================================
// Error - strukturierter Fehler
// ============================================================================

// Error describes a failed catalog, registry or selection operation.
type Error struct {
	Op      string // z.B. "register", "get_selector", "select"
	Kind    Kind
	Name    string // Implementierung, falls betroffen
	Summary string // Kurzfassung der Parameter
	Err     error

	// Causes enthaelt die Einzel-Fehler bei ErrAllBuildsFailed
	Causes []error
}

func (e *Error) Error() string {
	var sb strings.Builder
	sb.WriteString("kernel: ")
	sb.WriteString(e.Op)
	if e.Kind != "" {
		sb.WriteString(" ")
		sb.WriteString(string(e.Kind))
	}
	if e.Name != "" {
		sb.WriteString(" '")
		sb.WriteString(e.Name)
		sb.WriteString("'")
	}
	sb.WriteString(": ")
	sb.WriteString(strings.TrimPrefix(e.Err.Error(), "kernel: "))
	if e.Summary != "" {
		sb.WriteString(" [")
		sb.WriteString(e.Summary)
		sb.WriteString("]")
	}
	for _, c := range e.Causes {
		sb.WriteString("; ")
		sb.WriteString(c.Error())
	}
	return sb.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsConfigError reports whether err stems from a misconfigured catalog or a missing
// backend rather than from an unmatched parameter set.
func IsConfigError(err error) bool {
	return errors.Is(err, ErrDuplicateImplementation) ||
		errors.Is(err, ErrCatalogFrozen) ||
		errors.Is(err, ErrInvalidImplementation) ||
		errors.Is(err, ErrUnknownKind)
}
