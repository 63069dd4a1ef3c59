package gpu

import (
	"fmt"

	"github.com/ollama/kselect/kernel"
	"github.com/ollama/kselect/ml"
	"github.com/ollama/kselect/tuning"
)

var softmaxSubgroupKey = kernel.SupportedKey{
	Kind:          kernel.KindSoftmax,
	InputDTypes:   floats,
	OutputDTypes:  floats,
	InputLayouts:  kernel.AllLayouts,
	OutputLayouts: kernel.AllLayouts,
	Tier:          ml.TierVector,
}

// softmaxAxis normalisiert die Achse und prueft, ob sie die innerste ist.
func softmaxAxis(p *kernel.Params) (axis int, innermost bool) {
	out := p.Output(0)
	axis = p.Int("axis", -1)
	if axis < 0 {
		axis += out.Rank()
	}
	return axis, axis == out.Rank()-1
}

var softmaxSubgroup = &kernel.Impl{
	ImplName: "SoftmaxSubgroup",
	Key:      &softmaxSubgroupKey,
	Supported: func(p *kernel.Params) bool {
		_, innermost := softmaxAxis(p)
		return accelerator(p) && innermost && p.Output(0).Layout != ml.LayoutPacked && subgroup(p, 32, 16) > 0
	},
	// lange Zeilen profitieren deutlich von der Subgroup-Reduktion
	Rank: func(p *kernel.Params) kernel.Priority {
		if p.Output(0).Dim(-1) >= 1024 {
			return kernel.PriorityOptimized + 10
		}
		return kernel.PriorityOptimized
	},
	Build: func(p *kernel.Params, rec *tuning.Record) (*kernel.DispatchPlan, error) {
		out := p.Output(0)
		axis, _ := softmaxAxis(p)
		sg := subgroup(p, 32, 16)
		if sg == 0 {
			return nil, fmt.Errorf("device %s has no usable subgroup size", p.Device())
		}
		rows := out.Elements() / out.Dim(-1)
		launch, _, err := kernel.LaunchFor(p, rec, [3]int{sg, rows, 1}, [3]int{sg, 1, 1})
		if err != nil {
			return nil, err
		}
		return kernel.NewPlan("SoftmaxSubgroup", p, fmt.Sprintf("softmax_sg%d", sg)).
			BindTensors(p).
			BindScalar("axis", ml.DTypeI32, float64(axis)).
			BindScalar("axis_size", ml.DTypeI32, float64(out.Dim(-1))).
			WithLaunch(launch), nil
	},
}
