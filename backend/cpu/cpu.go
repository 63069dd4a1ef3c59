// MODUL: cpu
// ZWECK: SIMD-Implementierungen fuer die Host-CPU (AVX2, AVX-512, NEON, AMX)
// INPUT: kernel.Params mit Library "cpu", erkannte CPU-Features
// OUTPUT: DispatchPlan mit Vektorbreite als lokaler Groesse
// NEBENEFFEKTE: Liest CPU-Features beim Registrieren (golang.org/x/sys/cpu ueber ml)
// ABHAENGIGKEITEN: kernel, ml, tuning
// HINWEISE: Alle Varianten werden registriert; IsSupported prueft die Features,
//           damit Explain auch nicht verfuegbare Varianten zeigt

package cpu

import (
	"fmt"

	"github.com/ollama/kselect/kernel"
	"github.com/ollama/kselect/ml"
	"github.com/ollama/kselect/tuning"
)

// isa beschreibt eine Vektor-Erweiterung und wie stark sie bevorzugt wird.
type isa struct {
	name     string
	width    int
	priority kernel.Priority
	has      func(ml.CPUFeatures) bool
}

var isas = []isa{
	{"AVX512", 16, kernel.PriorityOptimized + 5, func(f ml.CPUFeatures) bool { return f.AVX512 }},
	{"AVX2", 8, kernel.PriorityOptimized, func(f ml.CPUFeatures) bool { return f.AVX2 }},
	{"NEON", 4, kernel.PriorityOptimized, func(f ml.CPUFeatures) bool { return f.NEON }},
}

// Register adds the host implementations for the running CPU to c.
func Register(c *kernel.Catalog) error {
	return RegisterWith(c, ml.DetectCPUFeatures())
}

// RegisterWith adds the host implementations gated on f.
func RegisterWith(c *kernel.Catalog, f ml.CPUFeatures) error {
	for _, x := range isas {
		if err := c.Register(kernel.KindEltwise, eltwise(f, x)); err != nil {
			return err
		}
		if err := c.Register(kernel.KindSoftmax, softmax(f, x)); err != nil {
			return err
		}
	}
	return c.Register(kernel.KindFullyConnected, fcAMX(f))
}

func host(p *kernel.Params) bool {
	return p.Device().Library == "cpu"
}

func vectorLaunch(p *kernel.Params, rec *tuning.Record, n, width int) (ml.LaunchConfig, error) {
	launch, _, err := kernel.LaunchFor(p, rec, [3]int{(n + width - 1) / width, 1, 1}, [3]int{width, 1, 1})
	return launch, err
}

// ============================================================================
// Eltwise und Softmax
// ============================================================================

func eltwise(f ml.CPUFeatures, x isa) kernel.Implementation {
	name := "CPUEltwise" + x.name
	return &kernel.Impl{
		ImplName: name,
		Fixed:    x.priority,
		Supported: func(p *kernel.Params) bool {
			if !host(p) || !x.has(f) {
				return false
			}
			for _, t := range append(p.Inputs(), p.Outputs()...) {
				if t.DType != ml.DTypeF32 && !(t.DType == ml.DTypeF16 && f.FP16Arith) {
					return false
				}
			}
			return true
		},
		Build: func(p *kernel.Params, rec *tuning.Record) (*kernel.DispatchPlan, error) {
			n := p.Output(0).Elements()
			launch, err := vectorLaunch(p, rec, n, x.width)
			if err != nil {
				return nil, err
			}
			return kernel.NewPlan(name, p, fmt.Sprintf("eltwise_%s_%s", p.Str("op", "sum"), x.name)).
				BindTensors(p).
				BindScalar("count", ml.DTypeI32, float64(n)).
				WithLaunch(launch), nil
		},
	}
}

func softmax(f ml.CPUFeatures, x isa) kernel.Implementation {
	name := "CPUSoftmax" + x.name
	return &kernel.Impl{
		ImplName: name,
		Fixed:    x.priority,
		Supported: func(p *kernel.Params) bool {
			out := p.Output(0)
			axis := p.Int("axis", -1)
			return host(p) && x.has(f) && out.DType == ml.DTypeF32 &&
				(axis == -1 || axis == out.Rank()-1)
		},
		Build: func(p *kernel.Params, rec *tuning.Record) (*kernel.DispatchPlan, error) {
			out := p.Output(0)
			rows := out.Elements() / out.Dim(-1)
			launch, _, err := kernel.LaunchFor(p, rec, [3]int{rows, 1, 1}, [3]int{1, 1, 1})
			if err != nil {
				return nil, err
			}
			return kernel.NewPlan(name, p, "softmax_"+x.name).
				BindTensors(p).
				BindScalar("axis_size", ml.DTypeI32, float64(out.Dim(-1))).
				BindScalar("lanes", ml.DTypeI32, float64(x.width)).
				WithLaunch(launch), nil
		},
	}
}

// ============================================================================
// FullyConnected auf AMX-Kacheln
// ============================================================================

var fcAMXKey = kernel.SupportedKey{
	Kind:          kernel.KindFullyConnected,
	InputDTypes:   kernel.DTypes(ml.DTypeBF16, ml.DTypeI8, ml.DTypeU8),
	OutputDTypes:  kernel.DTypes(ml.DTypeF32, ml.DTypeBF16, ml.DTypeI32),
	InputLayouts:  kernel.AllLayouts,
	OutputLayouts: kernel.AllLayouts,
	Fused:         kernel.FusedKinds(kernel.FusedActivation, kernel.FusedScale),
	Tier:          ml.TierMatrix,
}

// amxTile ist die Kachelgroesse (16 Zeilen x 64 Bytes).
const amxTile = 16

func fcAMX(f ml.CPUFeatures) kernel.Implementation {
	return &kernel.Impl{
		ImplName: "CPUFullyConnectedAMX",
		Key:      &fcAMXKey,
		Fixed:    kernel.PriorityVendor,
		Supported: func(p *kernel.Params) bool {
			return host(p) && f.AMX && p.NumInputs() >= 2
		},
		Build: func(p *kernel.Params, rec *tuning.Record) (*kernel.DispatchPlan, error) {
			out := p.Output(0)
			n := out.Dim(-1)
			m := out.Elements() / n
			k := p.Input(0).Dim(-1)
			launch, _, err := kernel.LaunchFor(p, rec, [3]int{(m + amxTile - 1) / amxTile, (n + amxTile - 1) / amxTile, 1}, [3]int{1, 1, 1})
			if err != nil {
				return nil, err
			}

			// Gewichte werden vorab in das VNNI-Kachelformat umgepackt
			packed := int64((n+amxTile-1)/amxTile*amxTile) * int64(k) * int64(p.Input(1).DType.Size())
			return kernel.NewPlan("CPUFullyConnectedAMX", p, "fc_amx_"+p.Input(0).DType.String()).
				BindTensors(p).
				BindWorkspace("packed_weights", packed).
				BindScalar("m", ml.DTypeI32, float64(m)).
				BindScalar("n", ml.DTypeI32, float64(n)).
				BindScalar("k", ml.DTypeI32, float64(k)).
				WithLaunch(launch), nil
		},
	}
}
