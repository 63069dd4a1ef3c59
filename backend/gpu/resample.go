package gpu

import (
	"errors"

	"github.com/ollama/kselect/kernel"
	"github.com/ollama/kselect/ml"
	"github.com/ollama/kselect/tuning"
)

// featureSlice ist die Blockgroesse des packed Layouts (b_fs_yx_fsv16).
const featureSlice = 16

// OptResample resamples packed floating point tensors one feature slice per
// work group.
type OptResample struct{}

var optResampleKey = kernel.SupportedKey{
	Kind:          kernel.KindResample,
	InputDTypes:   floats,
	OutputDTypes:  kernel.AllDTypes,
	InputLayouts:  kernel.Layouts(ml.LayoutPacked),
	OutputLayouts: kernel.AllLayouts,
	Fused:         kernel.FusedKinds(kernel.FusedActivation, kernel.FusedScale, kernel.FusedEltwise),
}

func (OptResample) Name() string { return "OptResample" }

func (OptResample) SupportedKey() kernel.SupportedKey { return optResampleKey }

func (OptResample) Priority(*kernel.Params) kernel.Priority { return kernel.PriorityGeneric }

// IsSupported accepts packed floating point inputs.
func (OptResample) IsSupported(p *kernel.Params) bool {
	if p.NumInputs() == 0 {
		return false
	}
	in := p.Input(0)
	return in.Layout == ml.LayoutPacked && in.DType.IsFloat()
}

func (r OptResample) BuildPlan(p *kernel.Params, rec *tuning.Record) (*kernel.DispatchPlan, error) {
	if p.NumInputs() == 0 {
		return nil, errors.New("missing input tensor")
	}
	in, out := p.Input(0), p.Output(0)
	mode, err := ml.ParseSamplingMode(p.Str("mode", "nearest"))
	if err != nil {
		return nil, err
	}

	global := [3]int{out.Dim(-1), out.Dim(-2), roundUp(out.Dim(-3), featureSlice) * out.Dim(-4)}
	launch, _, err := kernel.LaunchFor(p, rec, global, [3]int{1, 1, featureSlice})
	if err != nil {
		return nil, err
	}

	plan := kernel.NewPlan(r.Name(), p, "resample_opt_fsv16")
	for i, t := range p.Inputs() {
		plan.BindInput(i, t.DType)
	}
	plan.BindOutput(0, out.DType)
	if out.Layout != ml.LayoutPacked {
		// Ausgabe wird im packed Layout geschrieben und danach umsortiert
		plan.Reorder(out.Layout)
	}
	for i, f := range p.Fused() {
		if f.Kind == kernel.FusedEltwise {
			plan.BindFused(i, f.DType)
		}
	}
	return plan.
		BindScalar("scale_x", ml.DTypeF32, float64(in.Dim(-1))/float64(out.Dim(-1))).
		BindScalar("scale_y", ml.DTypeF32, float64(in.Dim(-2))/float64(out.Dim(-2))).
		BindScalar("mode", ml.DTypeI32, float64(mode)).
		BindScalar("align_corners", ml.DTypeI32, boolScalar(p.Bool("align_corners", false))).
		WithLaunch(launch), nil
}
