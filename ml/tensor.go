// tensor.go - Tensor-Beschreibung (Shape, Element-Typ, Layout)
// Beschreibt nur Metadaten, niemals Daten. Speicher verwaltet die Ausfuehrungsschicht.
package ml

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// ErrUnresolvedShape is returned for tensors with symbolic or non-positive dimensions.
var ErrUnresolvedShape = errors.New("tensor shape is not fully resolved")

// TensorDesc describes a tensor operand of a primitive. Shape is outermost-first
// (batch, feature, spatial...) regardless of Layout.
type TensorDesc struct {
	Shape  []int  `json:"shape"`
	DType  DType  `json:"dtype"`
	Layout Layout `json:"layout"`
}

// Rank returns the number of dimensions.
func (t TensorDesc) Rank() int {
	return len(t.Shape)
}

// Dim gibt die Dimension i zurueck, negative Indizes zaehlen von hinten.
// Ausserhalb des Bereichs wird 1 geliefert, wie bei Broadcasting.
func (t TensorDesc) Dim(i int) int {
	if i < 0 {
		i += len(t.Shape)
	}
	if i < 0 || i >= len(t.Shape) {
		return 1
	}
	return t.Shape[i]
}

// Elements returns the total number of elements.
func (t TensorDesc) Elements() int {
	n := 1
	for _, d := range t.Shape {
		n *= d
	}
	return n
}

// Bytes returns the unpadded byte size, or 0 for quantized types.
func (t TensorDesc) Bytes() int {
	return t.Elements() * t.DType.Size()
}

// Features returns the channel dimension (index 1) or 1 for rank < 2.
func (t TensorDesc) Features() int {
	return t.Dim(1)
}

// Validate checks that dtype and layout are concrete and every dimension is resolved.
func (t TensorDesc) Validate() error {
	if len(t.Shape) == 0 {
		return fmt.Errorf("%w: empty shape", ErrUnresolvedShape)
	}
	for i, d := range t.Shape {
		if d <= 0 {
			return fmt.Errorf("%w: dim %d = %d", ErrUnresolvedShape, i, d)
		}
	}
	if !t.DType.Valid() {
		return fmt.Errorf("invalid dtype %s", t.DType)
	}
	if !t.Layout.Valid() {
		return fmt.Errorf("invalid layout %s", t.Layout)
	}
	return nil
}

// Clone returns a deep copy.
func (t TensorDesc) Clone() TensorDesc {
	t.Shape = slices.Clone(t.Shape)
	return t
}

// String formats the descriptor as "f32:planar:1x3x224x224".
func (t TensorDesc) String() string {
	var sb strings.Builder
	sb.WriteString(t.DType.String())
	sb.WriteByte(':')
	sb.WriteString(t.Layout.String())
	sb.WriteByte(':')
	for i, d := range t.Shape {
		if i > 0 {
			sb.WriteByte('x')
		}
		sb.WriteString(strconv.Itoa(d))
	}
	return sb.String()
}
