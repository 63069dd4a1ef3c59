// MODUL: kind
// ZWECK: Primitive-Arten (Kind) fuer Katalog, Selector und Registry
// INPUT: Kind-Namen aus dem abgesenkten Graphen
// OUTPUT: Kind-Konstanten
// NEBENEFFEKTE: Keine
// ABHAENGIGKEITEN: keine
// HINWEISE: Kind ist ein offener String-Typ, Backends duerfen eigene Arten registrieren

package kernel

import "strings"

// Kind identifies a canonical primitive of the lowered graph.
type Kind string

const (
	KindConvolution    Kind = "convolution"
	KindResample       Kind = "resample"
	KindNormalization  Kind = "normalization"
	KindPooling        Kind = "pooling"
	KindEltwise        Kind = "eltwise"
	KindSoftmax        Kind = "softmax"
	KindFullyConnected Kind = "fully_connected"
)

func (k Kind) String() string {
	return string(k)
}

// ParseKind normalisiert einen Kind-Namen (Kleinschreibung, Leerzeichen entfernt).
// Ob die Art bekannt ist, entscheidet erst die Registry.
func ParseKind(s string) Kind {
	return Kind(strings.ToLower(strings.TrimSpace(s)))
}
