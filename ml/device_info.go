// device_info.go
// Dieses Modul enthaelt den Geraete-Faehigkeits-Deskriptor, der bei jeder
// Kernel-Auswahl mitgegeben wird (Compute-Tier, Datentypen, Alignment, Work-Group-Limits).
// Abgeleitet aus der frueheren DeviceInfo-Struktur.

package ml

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// ComputeTier grades the capability level of a device. Implementations declare the
// minimum tier they need; higher tiers include everything of lower tiers.
type ComputeTier int

const (
	// TierBaseline: scalar code, no subgroups
	TierBaseline ComputeTier = iota
	// TierVector: subgroup shuffles and vector loads
	TierVector
	// TierMatrix: matrix engines (dpas, tensor cores, AMX, SME)
	TierMatrix
)

func (t ComputeTier) String() string {
	switch t {
	case TierBaseline:
		return "baseline"
	case TierVector:
		return "vector"
	case TierMatrix:
		return "matrix"
	default:
		return "tier(" + strconv.Itoa(int(t)) + ")"
	}
}

// ParseComputeTier konvertiert einen Tier-Namen.
func ParseComputeTier(s string) (ComputeTier, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "baseline", "":
		return TierBaseline, nil
	case "vector":
		return TierVector, nil
	case "matrix":
		return TierMatrix, nil
	}
	return TierBaseline, fmt.Errorf("unknown compute tier %q", s)
}

type DeviceCaps struct {
	// Library is the backend family the device is driven by (e.g. "cpu", "opencl", "cuda")
	Library string `json:"library"`

	// Name is the device name as labeled by the driver
	Name string `json:"name"`

	Tier ComputeTier `json:"tier"`

	// DTypes lists the element types the device can compute natively.
	// If empty, only DTypeF32 is assumed.
	DTypes []DType `json:"dtypes,omitempty"`

	// Alignment is the required base address alignment of buffers in bytes
	Alignment int `json:"alignment,omitempty"`

	// MaxWorkGroupSize is the maximum number of work items in one work group
	MaxWorkGroupSize int `json:"max_work_group_size,omitempty"`

	// SubgroupSizes lists supported subgroup (SIMD/warp) widths, ascending
	SubgroupSizes []int `json:"subgroup_sizes,omitempty"`

	// LocalMemory is the shared local memory per work group in bytes
	LocalMemory int `json:"local_memory,omitempty"`

	// ComputeMajor/ComputeMinor are the vendor capability version, -1 if unknown
	ComputeMajor int `json:"compute_major,omitempty"`
	ComputeMinor int `json:"compute_minor,omitempty"`
}

// Supports reports whether the device computes dt natively.
func (d DeviceCaps) Supports(dt DType) bool {
	if len(d.DTypes) == 0 {
		return dt == DTypeF32
	}
	return slices.Contains(d.DTypes, dt)
}

// MaxLocal returns MaxWorkGroupSize or a conservative default of 256.
func (d DeviceCaps) MaxLocal() int {
	if d.MaxWorkGroupSize <= 0 {
		return 256
	}
	return d.MaxWorkGroupSize
}

// HasSubgroup reports whether the device supports subgroups of width n.
func (d DeviceCaps) HasSubgroup(n int) bool {
	return slices.Contains(d.SubgroupSizes, n)
}

// Compute returns the capability version string.
func (d DeviceCaps) Compute() string {
	return strconv.Itoa(d.ComputeMajor) + "." + strconv.Itoa(d.ComputeMinor)
}

// Clone returns a deep copy.
func (d DeviceCaps) Clone() DeviceCaps {
	d.DTypes = slices.Clone(d.DTypes)
	d.SubgroupSizes = slices.Clone(d.SubgroupSizes)
	return d
}

func (d DeviceCaps) String() string {
	return fmt.Sprintf("%s/%s (%s)", d.Library, d.Name, d.Tier)
}
