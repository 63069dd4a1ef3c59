// MODUL: implementation
// ZWECK: Vertrag fuer Kernel-Implementierungen plus Funktions-Adapter
// INPUT: Params, optionaler tuning.Record
// OUTPUT: Anwendbarkeit, Prioritaet, DispatchPlan
// NEBENEFFEKTE: Keine
// ABHAENGIGKEITEN: tuning
// HINWEISE: Implementierungen sind nach der Registrierung zustandslos und nebenlaeufig nutzbar

package kernel

import (
	"fmt"

	"github.com/ollama/kselect/tuning"
)

// Priority ranks applicable implementations. Higher is better.
type Priority int

const (
	// PriorityDontUse marks an implementation that is only chosen when nothing else
	// is applicable.
	PriorityDontUse   Priority = 0
	PriorityReference Priority = 1
	PriorityGeneric   Priority = 10
	PriorityOptimized Priority = 50
	PriorityVendor    Priority = 90
)

func (p Priority) String() string {
	switch p {
	case PriorityDontUse:
		return "dont_use"
	case PriorityReference:
		return "reference"
	case PriorityGeneric:
		return "generic"
	case PriorityOptimized:
		return "optimized"
	case PriorityVendor:
		return "vendor"
	}
	return fmt.Sprintf("%d", int(p))
}

// Implementation is one concrete kernel variant for a primitive kind.
type Implementation interface {
	// Name is unique per kind.
	Name() string

	// IsSupported reports whether the implementation can execute p. It must be pure.
	IsSupported(p *Params) bool

	// Priority returns the rank for p. Only called when IsSupported(p) holds.
	Priority(p *Params) Priority

	// BuildPlan builds the dispatch plan. rec is non-nil only when a tuning record
	// names this implementation for p's exact fingerprint.
	BuildPlan(p *Params, rec *tuning.Record) (*DispatchPlan, error)
}

// KeyedImplementation declares the coarse capability set of an implementation.
// The selector skips IsSupported when the declared key does not cover the key of
// the parameters.
type KeyedImplementation interface {
	Implementation
	SupportedKey() SupportedKey
}

// ============================================================================
// Impl - Adapter mit Funktionsfeldern
// ============================================================================

// Impl adapts plain functions to Implementation. Zero Supported accepts everything
// the declared Key covers; zero Rank returns Fixed.
type Impl struct {
	ImplName string
	Key      *SupportedKey
	Fixed    Priority

	Supported func(p *Params) bool
	Rank      func(p *Params) Priority
	Build     func(p *Params, rec *tuning.Record) (*DispatchPlan, error)
}

var _ KeyedImplementation = (*Impl)(nil)

func (i *Impl) Name() string { return i.ImplName }

func (i *Impl) IsSupported(p *Params) bool {
	if i.Key != nil && !i.Key.Covers(p.Key()) {
		return false
	}
	if i.Supported == nil {
		return true
	}
	return i.Supported(p)
}

func (i *Impl) Priority(p *Params) Priority {
	if i.Rank == nil {
		return i.Fixed
	}
	return i.Rank(p)
}

func (i *Impl) BuildPlan(p *Params, rec *tuning.Record) (*DispatchPlan, error) {
	if i.Build == nil {
		return nil, fmt.Errorf("%s: no build function", i.ImplName)
	}
	return i.Build(p, rec)
}

// SupportedKey returns the declared key, or a key accepting everything.
func (i *Impl) SupportedKey() SupportedKey {
	if i.Key != nil {
		return *i.Key
	}
	return AnyKey()
}

// AnyKey returns a declared key that covers every parameter set.
func AnyKey() SupportedKey {
	return SupportedKey{
		InputDTypes:   AllDTypes,
		OutputDTypes:  AllDTypes,
		InputLayouts:  AllLayouts,
		OutputLayouts: AllLayouts,
		Fused:         AllFused,
	}
}

// declaredKey returns the key impl declares, or false if it declares none.
func declaredKey(impl Implementation) (SupportedKey, bool) {
	if k, ok := impl.(KeyedImplementation); ok {
		return k.SupportedKey(), true
	}
	return SupportedKey{}, false
}
