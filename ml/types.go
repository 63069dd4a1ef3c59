// types.go - Datentypen und Konstanten fuer Kernel-Parameter
// Dieses Modul definiert grundlegende Typen wie DType, Layout und SamplingMode.
package ml

import (
	"fmt"
	"strings"
)

// DType represents the data type of tensor elements.
type DType int

const (
	DTypeOther DType = iota
	DTypeF32
	DTypeF16
	DTypeQ80
	DTypeQ40
	DTypeI32
	DTypeMXFP4
	DTypeBF16
	DTypeI8
	DTypeU8

	numDTypes
)

var dtypeNames = [...]string{
	DTypeOther: "other",
	DTypeF32:   "f32",
	DTypeF16:   "f16",
	DTypeQ80:   "q8_0",
	DTypeQ40:   "q4_0",
	DTypeI32:   "i32",
	DTypeMXFP4: "mxfp4",
	DTypeBF16:  "bf16",
	DTypeI8:    "i8",
	DTypeU8:    "u8",
}

func (t DType) String() string {
	if t < 0 || t >= numDTypes {
		return fmt.Sprintf("dtype(%d)", int(t))
	}
	return dtypeNames[t]
}

// Valid reports whether t is a known, concrete element type.
func (t DType) Valid() bool {
	return t > DTypeOther && t < numDTypes
}

// IsFloat reports whether t is a floating point type.
func (t DType) IsFloat() bool {
	switch t {
	case DTypeF32, DTypeF16, DTypeBF16:
		return true
	default:
		return false
	}
}

// IsQuantized reports whether t is a block-quantized type.
func (t DType) IsQuantized() bool {
	switch t {
	case DTypeQ80, DTypeQ40, DTypeMXFP4:
		return true
	default:
		return false
	}
}

// Size gibt die Groesse eines Elements in Bytes zurueck.
// Quantisierte Typen liefern 0, die Groesse haengt von der Blockgroesse ab.
func (t DType) Size() int {
	switch t {
	case DTypeF32, DTypeI32:
		return 4
	case DTypeF16, DTypeBF16:
		return 2
	case DTypeI8, DTypeU8:
		return 1
	default:
		return 0
	}
}

// ParseDType konvertiert einen Namen wie "f32" oder "float16" zu DType.
func ParseDType(s string) (DType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "f32", "fp32", "float32", "float":
		return DTypeF32, nil
	case "f16", "fp16", "float16", "half":
		return DTypeF16, nil
	case "bf16", "bfloat16":
		return DTypeBF16, nil
	case "q8_0":
		return DTypeQ80, nil
	case "q4_0":
		return DTypeQ40, nil
	case "mxfp4":
		return DTypeMXFP4, nil
	case "i32", "int32":
		return DTypeI32, nil
	case "i8", "int8":
		return DTypeI8, nil
	case "u8", "uint8":
		return DTypeU8, nil
	}
	return DTypeOther, fmt.Errorf("unknown dtype %q", s)
}

// Layout beschreibt die Speicheranordnung eines Tensors.
type Layout int

const (
	LayoutAny Layout = iota
	// LayoutPlanar ist die klassische NCHW/bfyx Anordnung
	LayoutPlanar
	// LayoutInterleaved ist NHWC/byxf, Kanaele liegen innen
	LayoutInterleaved
	// LayoutPacked ist die blockierte Anordnung mit 16er Feature-Slices (b_fs_yx_fsv16)
	LayoutPacked

	numLayouts
)

var layoutNames = [...]string{
	LayoutAny:         "any",
	LayoutPlanar:      "planar",
	LayoutInterleaved: "interleaved",
	LayoutPacked:      "packed",
}

func (l Layout) String() string {
	if l < 0 || l >= numLayouts {
		return fmt.Sprintf("layout(%d)", int(l))
	}
	return layoutNames[l]
}

// Valid reports whether l names a concrete memory layout.
func (l Layout) Valid() bool {
	return l > LayoutAny && l < numLayouts
}

// ParseLayout konvertiert einen Layout-Namen zu Layout.
func ParseLayout(s string) (Layout, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "planar", "nchw", "bfyx":
		return LayoutPlanar, nil
	case "interleaved", "nhwc", "byxf":
		return LayoutInterleaved, nil
	case "packed", "blocked", "b_fs_yx_fsv16":
		return LayoutPacked, nil
	}
	return LayoutAny, fmt.Errorf("unknown layout %q", s)
}

// SamplingMode specifies the interpolation method for tensor resizing.
type SamplingMode int

const (
	SamplingModeNearest SamplingMode = iota
	SamplingModeBilinear
	SamplingModeBicubic
)

func (m SamplingMode) String() string {
	switch m {
	case SamplingModeNearest:
		return "nearest"
	case SamplingModeBilinear:
		return "bilinear"
	case SamplingModeBicubic:
		return "bicubic"
	default:
		return fmt.Sprintf("sampling(%d)", int(m))
	}
}

// ParseSamplingMode konvertiert einen Modus-Namen zu SamplingMode.
func ParseSamplingMode(s string) (SamplingMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "nearest", "":
		return SamplingModeNearest, nil
	case "bilinear", "linear":
		return SamplingModeBilinear, nil
	case "bicubic", "cubic":
		return SamplingModeBicubic, nil
	}
	return SamplingModeNearest, fmt.Errorf("unknown sampling mode %q", s)
}
