package gpu

import (
	"slices"

	"github.com/ollama/kselect/kernel"
	"github.com/ollama/kselect/ml"
	"github.com/ollama/kselect/tuning"
)

// eltwiseVec4 verarbeitet vier Elemente pro Work-Item; alle Operanden muessen
// dieselbe Form haben (kein Broadcasting).
var eltwiseVec4 = &kernel.Impl{
	ImplName: "EltwiseVec4",
	Fixed:    kernel.PriorityGeneric,
	Supported: func(p *kernel.Params) bool {
		out := p.Output(0)
		if !accelerator(p) || out.Elements()%4 != 0 {
			return false
		}
		for _, in := range p.Inputs() {
			if !slices.Equal(in.Shape, out.Shape) || in.Layout != out.Layout || in.DType.IsQuantized() {
				return false
			}
		}
		return true
	},
	Build: func(p *kernel.Params, rec *tuning.Record) (*kernel.DispatchPlan, error) {
		n := p.Output(0).Elements() / 4
		launch, _, err := kernel.LaunchFor(p, rec, [3]int{n, 1, 1}, [3]int{256, 1, 1})
		if err != nil {
			return nil, err
		}
		return kernel.NewPlan("EltwiseVec4", p, "eltwise_vec4_"+p.Str("op", "sum")).
			BindTensors(p).
			BindScalar("count", ml.DTypeI32, float64(n)).
			WithLaunch(launch), nil
	},
}

var fcTiledKey = kernel.SupportedKey{
	Kind:          kernel.KindFullyConnected,
	InputDTypes:   kernel.DTypes(ml.DTypeF32, ml.DTypeF16, ml.DTypeQ80, ml.DTypeQ40),
	OutputDTypes:  floats,
	InputLayouts:  kernel.AllLayouts,
	OutputLayouts: kernel.AllLayouts,
	Fused:         kernel.AllFused,
	Tier:          ml.TierVector,
}

// fcTiled berechnet Kacheln von 8 Zeilen x Subgroup-Breite Ausgaben.
var fcTiled = &kernel.Impl{
	ImplName: "FCTiled",
	Key:      &fcTiledKey,
	Fixed:    kernel.PriorityOptimized,
	Supported: func(p *kernel.Params) bool {
		return accelerator(p) && p.NumInputs() >= 2 && subgroup(p, 16, 8) > 0
	},
	Build: func(p *kernel.Params, rec *tuning.Record) (*kernel.DispatchPlan, error) {
		out := p.Output(0)
		sg := subgroup(p, 16, 8)
		n := out.Dim(-1)
		m := out.Elements() / n
		tileM := clampTile(m, 8)

		launch, _, err := kernel.LaunchFor(p, rec, [3]int{roundUp(n, sg), ceilDiv(m, tileM), 1}, [3]int{sg, 1, 1})
		if err != nil {
			return nil, err
		}
		return kernel.NewPlan("FCTiled", p, "fc_tiled").
			BindTensors(p).
			BindScalar("m", ml.DTypeI32, float64(m)).
			BindScalar("n", ml.DTypeI32, float64(n)).
			BindScalar("k", ml.DTypeI32, float64(p.Input(0).Dim(-1))).
			BindScalar("tile_m", ml.DTypeI32, float64(tileM)).
			WithResources(0, 64+tileM*8).
			WithLaunch(launch), nil
	},
}
