package gpu

import (
	"github.com/ollama/kselect/kernel"
	"github.com/ollama/kselect/ml"
	"github.com/ollama/kselect/tuning"
)

var poolingPackedKey = kernel.SupportedKey{
	Kind:          kernel.KindPooling,
	InputDTypes:   kernel.DTypes(ml.DTypeF32, ml.DTypeF16, ml.DTypeBF16, ml.DTypeI8, ml.DTypeU8),
	OutputDTypes:  kernel.AllDTypes,
	InputLayouts:  kernel.Layouts(ml.LayoutPacked),
	OutputLayouts: kernel.Layouts(ml.LayoutPacked),
	Fused:         kernel.FusedKinds(kernel.FusedActivation, kernel.FusedQuantize),
}

var poolingPacked = &kernel.Impl{
	ImplName: "PoolingPacked",
	Key:      &poolingPackedKey,
	Fixed:    kernel.PriorityOptimized,
	Supported: func(p *kernel.Params) bool {
		mode := p.Str("mode", "max")
		return accelerator(p) && (mode == "max" || mode == "avg")
	},
	Build: func(p *kernel.Params, rec *tuning.Record) (*kernel.DispatchPlan, error) {
		out := p.Output(0)
		size := p.Ints("kernel", 2, 2)
		strides := p.Ints("strides", size...)
		mode := 0.0
		if p.Str("mode", "max") == "avg" {
			mode = 1
		}

		global := [3]int{out.Dim(-1), out.Dim(-2), roundUp(out.Dim(-3), featureSlice) * out.Dim(-4)}
		launch, _, err := kernel.LaunchFor(p, rec, global, [3]int{1, 1, featureSlice})
		if err != nil {
			return nil, err
		}
		return kernel.NewPlan("PoolingPacked", p, "pooling_fsv16").
			BindTensors(p).
			BindScalar("kernel_x", ml.DTypeI32, float64(last(size, 0))).
			BindScalar("kernel_y", ml.DTypeI32, float64(last(size, 1))).
			BindScalar("stride_x", ml.DTypeI32, float64(last(strides, 0))).
			BindScalar("stride_y", ml.DTypeI32, float64(last(strides, 1))).
			BindScalar("mode", ml.DTypeI32, mode).
			WithLaunch(launch), nil
	},
}
