// host.go - Faehigkeiten der Host-CPU fuer das cpu-Backend
// Nutzt golang.org/x/sys/cpu fuer die Feature-Erkennung.
package ml

import (
	"runtime"

	"golang.org/x/sys/cpu"
)

// CPUFeatures summarizes the SIMD extensions relevant for kernel selection.
type CPUFeatures struct {
	AVX2      bool
	AVX512    bool
	AVX512BF  bool
	AMX       bool
	NEON      bool
	SVE       bool
	FP16Arith bool
}

// DetectCPUFeatures reads the running CPU's feature flags.
func DetectCPUFeatures() CPUFeatures {
	return CPUFeatures{
		AVX2:      cpu.X86.HasAVX2 && cpu.X86.HasFMA,
		AVX512:    cpu.X86.HasAVX512F,
		AVX512BF:  cpu.X86.HasAVX512BF16,
		AMX:       cpu.X86.HasAMXTile,
		NEON:      cpu.ARM64.HasASIMD,
		SVE:       cpu.ARM64.HasSVE,
		FP16Arith: cpu.ARM64.HasFPHP && cpu.ARM64.HasASIMDHP,
	}
}

// Tier maps CPU features to a compute tier.
func (f CPUFeatures) Tier() ComputeTier {
	switch {
	case f.AMX:
		return TierMatrix
	case f.AVX2, f.AVX512, f.NEON, f.SVE:
		return TierVector
	default:
		return TierBaseline
	}
}

// VectorWidth returns the float32 lanes of the widest usable vector unit.
func (f CPUFeatures) VectorWidth() int {
	switch {
	case f.AVX512:
		return 16
	case f.AVX2:
		return 8
	case f.NEON, f.SVE:
		return 4
	default:
		return 1
	}
}

// HostCaps builds the DeviceCaps of the host CPU for the given features.
func HostCaps(f CPUFeatures) DeviceCaps {
	dtypes := []DType{DTypeF32, DTypeI32, DTypeI8, DTypeU8}
	if f.FP16Arith || f.AVX512 {
		dtypes = append(dtypes, DTypeF16)
	}
	if f.AVX512BF || f.AMX {
		dtypes = append(dtypes, DTypeBF16)
	}

	return DeviceCaps{
		Library:          "cpu",
		Name:             runtime.GOARCH,
		Tier:             f.Tier(),
		DTypes:           dtypes,
		Alignment:        64,
		MaxWorkGroupSize: runtime.NumCPU() * f.VectorWidth(),
		SubgroupSizes:    []int{f.VectorWidth()},
		ComputeMajor:     -1,
		ComputeMinor:     -1,
	}
}
