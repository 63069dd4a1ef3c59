// MODUL: key
// ZWECK: SupportedKey - grober, vergleichbarer Fingerprint fuer die Anwendbarkeit
// INPUT: Params bzw. von Implementierungen deklarierte Faehigkeiten
// OUTPUT: SupportedKey (Bitsets ueber DType, Layout, Fused-Ops plus Tier)
// NEBENEFFEKTE: Keine
// ABHAENGIGKEITEN: ml
// HINWEISE: Shapes und Attribute gehoeren nicht zum Key

package kernel

import (
	"math/bits"
	"strings"

	"github.com/ollama/kselect/ml"
)

// DTypeSet is a bitset of ml.DType values.
type DTypeSet uint32

// LayoutSet is a bitset of ml.Layout values.
type LayoutSet uint8

// FusedSet is a bitset of FusedKind values.
type FusedSet uint8

const (
	AllDTypes  DTypeSet  = 1<<32 - 1
	AllLayouts LayoutSet = 1<<8 - 1
	AllFused   FusedSet  = 1<<8 - 1
)

// DTypes builds a DTypeSet.
func DTypes(ts ...ml.DType) DTypeSet {
	var s DTypeSet
	for _, t := range ts {
		s |= 1 << uint(t)
	}
	return s
}

// Layouts builds a LayoutSet.
func Layouts(ls ...ml.Layout) LayoutSet {
	var s LayoutSet
	for _, l := range ls {
		s |= 1 << uint(l)
	}
	return s
}

// FusedKinds builds a FusedSet.
func FusedKinds(ks ...FusedKind) FusedSet {
	var s FusedSet
	for _, k := range ks {
		s |= 1 << uint(k)
	}
	return s
}

func (s DTypeSet) Has(t ml.DType) bool { return s&(1<<uint(t)) != 0 }
func (s LayoutSet) Has(l ml.Layout) bool { return s&(1<<uint(l)) != 0 }
func (s FusedSet) Has(k FusedKind) bool { return s&(1<<uint(k)) != 0 }
func (s DTypeSet) covers(o DTypeSet) bool { return o&^s == 0 }
func (s LayoutSet) covers(o LayoutSet) bool { return o&^s == 0 }
func (s FusedSet) covers(o FusedSet) bool { return o&^s == 0 }

// SupportedKey is the subset of Params relevant to applicability. Derived from
// Params it holds exactly the values present; declared by an implementation it holds
// everything the implementation accepts, with Tier as the minimum device tier.
// Two Params with equal keys are interchangeable for deciding eligibility.
type SupportedKey struct {
	Kind          Kind
	InputDTypes   DTypeSet
	OutputDTypes  DTypeSet
	InputLayouts  LayoutSet
	OutputLayouts LayoutSet
	Fused         FusedSet
	Tier          ml.ComputeTier
}

// KeyOf returns the key of p.
func KeyOf(p *Params) SupportedKey {
	return p.key
}

func keyOf(p *Params) SupportedKey {
	k := SupportedKey{Kind: p.kind, Tier: p.device.Tier}
	for _, t := range p.inputs {
		k.InputDTypes |= DTypes(t.DType)
		k.InputLayouts |= Layouts(t.Layout)
	}
	for _, t := range p.outputs {
		k.OutputDTypes |= DTypes(t.DType)
		k.OutputLayouts |= Layouts(t.Layout)
	}
	for _, f := range p.fused {
		k.Fused |= FusedKinds(f.Kind)
		if f.Kind == FusedEltwise && f.DType.Valid() {
			k.InputDTypes |= DTypes(f.DType)
		}
	}
	return k
}

// Covers reports whether a declared key d accepts the required key r.
// An empty declared Kind matches every kind.
func (d SupportedKey) Covers(r SupportedKey) bool {
	if d.Kind != "" && d.Kind != r.Kind {
		return false
	}
	return d.InputDTypes.covers(r.InputDTypes) &&
		d.OutputDTypes.covers(r.OutputDTypes) &&
		d.InputLayouts.covers(r.InputLayouts) &&
		d.OutputLayouts.covers(r.OutputLayouts) &&
		d.Fused.covers(r.Fused) &&
		d.Tier <= r.Tier
}

func (d SupportedKey) String() string {
	var sb strings.Builder
	if d.Kind == "" {
		sb.WriteString("*")
	} else {
		sb.WriteString(string(d.Kind))
	}
	sb.WriteString(" in=")
	sb.WriteString(dtypeSetString(d.InputDTypes))
	sb.WriteString("/")
	sb.WriteString(layoutSetString(d.InputLayouts))
	sb.WriteString(" out=")
	sb.WriteString(dtypeSetString(d.OutputDTypes))
	sb.WriteString("/")
	sb.WriteString(layoutSetString(d.OutputLayouts))
	sb.WriteString(" fused=")
	sb.WriteString(fusedSetString(d.Fused))
	sb.WriteString(" tier>=")
	sb.WriteString(d.Tier.String())
	return sb.String()
}

func dtypeSetString(s DTypeSet) string {
	if s == AllDTypes {
		return "*"
	}
	var parts []string
	for v := s; v != 0; v &= v - 1 {
		parts = append(parts, ml.DType(bits.TrailingZeros32(uint32(v))).String())
	}
	return joinOrDash(parts)
}

func layoutSetString(s LayoutSet) string {
	if s == AllLayouts {
		return "*"
	}
	var parts []string
	for v := s; v != 0; v &= v - 1 {
		parts = append(parts, ml.Layout(bits.TrailingZeros8(uint8(v))).String())
	}
	return joinOrDash(parts)
}

func fusedSetString(s FusedSet) string {
	if s == AllFused {
		return "*"
	}
	var parts []string
	for v := s; v != 0; v &= v - 1 {
		parts = append(parts, FusedKind(bits.TrailingZeros8(uint8(v))).String())
	}
	return joinOrDash(parts)
}

func joinOrDash(parts []string) string {
	if len(parts) == 0 {
		return "-"
	}
	return strings.Join(parts, "|")
}
