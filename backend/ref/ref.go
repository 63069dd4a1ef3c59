// MODUL: ref
// ZWECK: Referenz-Implementierungen fuer jedes Kind (immer anwendbarer Fallback)
// INPUT: kernel.Params
// OUTPUT: DispatchPlan mit einfachem Work-Item-pro-Ausgabeelement Schema
// NEBENEFFEKTE: Keine
// ABHAENGIGKEITEN: kernel, ml, tuning
// HINWEISE: Prioritaet PriorityReference; IsSupported ist immer true

package ref

import (
	"errors"

	"github.com/ollama/kselect/kernel"
	"github.com/ollama/kselect/ml"
	"github.com/ollama/kselect/tuning"
)

// Register adds all reference implementations to c.
func Register(c *kernel.Catalog) error {
	for _, e := range []struct {
		kind kernel.Kind
		impl kernel.Implementation
	}{
		{kernel.KindResample, Resample{}},
		{kernel.KindConvolution, convolution},
		{kernel.KindNormalization, normalization},
		{kernel.KindPooling, pooling},
		{kernel.KindEltwise, eltwise},
		{kernel.KindSoftmax, softmax},
		{kernel.KindFullyConnected, fullyConnected},
	} {
		if err := c.Register(e.kind, e.impl); err != nil {
			return err
		}
	}
	return nil
}

var errNoInput = errors.New("missing input tensor")

// spatial liefert die Ausgabe-Geometrie (x, y, f*b) fuer elementweise Kernel.
func spatial(t ml.TensorDesc) [3]int {
	return [3]int{t.Dim(-1), t.Dim(-2), t.Dim(-3) * t.Dim(-4)}
}

// ============================================================================
// Resample
// ============================================================================

// Resample is the reference resample kernel. It accepts every parameter set.
type Resample struct{}

func (Resample) Name() string { return "RefResample" }

func (Resample) IsSupported(*kernel.Params) bool { return true }

func (Resample) Priority(*kernel.Params) kernel.Priority { return kernel.PriorityReference }

func (r Resample) BuildPlan(p *kernel.Params, rec *tuning.Record) (*kernel.DispatchPlan, error) {
	if p.NumInputs() == 0 {
		return nil, errNoInput
	}
	in, out := p.Input(0), p.Output(0)
	mode, err := ml.ParseSamplingMode(p.Str("mode", "nearest"))
	if err != nil {
		return nil, err
	}

	launch, _, err := kernel.LaunchFor(p, rec, spatial(out), [3]int{16, 1, 1})
	if err != nil {
		return nil, err
	}

	return kernel.NewPlan(r.Name(), p, "resample_ref").
		BindTensors(p).
		BindScalar("scale_x", ml.DTypeF32, float64(in.Dim(-1))/float64(out.Dim(-1))).
		BindScalar("scale_y", ml.DTypeF32, float64(in.Dim(-2))/float64(out.Dim(-2))).
		BindScalar("mode", ml.DTypeI32, float64(mode)).
		BindScalar("align_corners", ml.DTypeI32, boolScalar(p.Bool("align_corners", false))).
		WithLaunch(launch), nil
}

func boolScalar(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// ============================================================================
// Weitere Referenz-Kernel
// ============================================================================

var convolution = &kernel.Impl{
	ImplName: "RefConvolution",
	Fixed:    kernel.PriorityReference,
	Build: func(p *kernel.Params, rec *tuning.Record) (*kernel.DispatchPlan, error) {
		strides := p.Ints("strides", 1, 1)
		pads := p.Ints("pads_begin", 0, 0)
		dil := p.Ints("dilations", 1, 1)

		launch, _, err := kernel.LaunchFor(p, rec, spatial(p.Output(0)), [3]int{8, 8, 1})
		if err != nil {
			return nil, err
		}
		return kernel.NewPlan("RefConvolution", p, "convolution_ref").
			BindTensors(p).
			BindScalar("stride_x", ml.DTypeI32, float64(last(strides, 0))).
			BindScalar("stride_y", ml.DTypeI32, float64(last(strides, 1))).
			BindScalar("pad_x", ml.DTypeI32, float64(last(pads, 0))).
			BindScalar("pad_y", ml.DTypeI32, float64(last(pads, 1))).
			BindScalar("dilation_x", ml.DTypeI32, float64(last(dil, 0))).
			BindScalar("dilation_y", ml.DTypeI32, float64(last(dil, 1))).
			BindScalar("groups", ml.DTypeI32, float64(p.Int("groups", 1))).
			WithLaunch(launch), nil
	},
}

// last liefert das i-te Element von hinten (0 = x, 1 = y); kuerzere Listen gelten fuer alle Achsen.
func last(v []int, i int) int {
	if j := len(v) - 1 - i; j >= 0 {
		return v[j]
	}
	if len(v) > 0 {
		return v[0]
	}
	return 0
}

var normalization = &kernel.Impl{
	ImplName: "RefNormalization",
	Fixed:    kernel.PriorityReference,
	Build: func(p *kernel.Params, rec *tuning.Record) (*kernel.DispatchPlan, error) {
		out := p.Output(0)
		// ein Work-Item pro (Batch, Feature) bzw. pro Batch bei across_channels
		global := [3]int{out.Dim(1), out.Dim(0), 1}
		if p.Bool("across_channels", false) {
			global = [3]int{1, out.Dim(0), 1}
		}
		launch, _, err := kernel.LaunchFor(p, rec, global, [3]int{1, 1, 1})
		if err != nil {
			return nil, err
		}
		return kernel.NewPlan("RefNormalization", p, "mvn_ref").
			BindTensors(p).
			BindScalar("eps", ml.DTypeF32, p.Float("eps", 1e-9)).
			BindScalar("normalize_variance", ml.DTypeI32, boolScalar(p.Bool("normalize_variance", true))).
			WithLaunch(launch), nil
	},
}

var pooling = &kernel.Impl{
	ImplName: "RefPooling",
	Fixed:    kernel.PriorityReference,
	Build: func(p *kernel.Params, rec *tuning.Record) (*kernel.DispatchPlan, error) {
		size := p.Ints("kernel", 2, 2)
		strides := p.Ints("strides", size...)
		mode := 0.0
		if p.Str("mode", "max") == "avg" {
			mode = 1
		}
		launch, _, err := kernel.LaunchFor(p, rec, spatial(p.Output(0)), [3]int{16, 1, 1})
		if err != nil {
			return nil, err
		}
		return kernel.NewPlan("RefPooling", p, "pooling_ref").
			BindTensors(p).
			BindScalar("kernel_x", ml.DTypeI32, float64(last(size, 0))).
			BindScalar("kernel_y", ml.DTypeI32, float64(last(size, 1))).
			BindScalar("stride_x", ml.DTypeI32, float64(last(strides, 0))).
			BindScalar("stride_y", ml.DTypeI32, float64(last(strides, 1))).
			BindScalar("mode", ml.DTypeI32, mode).
			WithLaunch(launch), nil
	},
}

var eltwise = &kernel.Impl{
	ImplName: "RefEltwise",
	Fixed:    kernel.PriorityReference,
	Build: func(p *kernel.Params, rec *tuning.Record) (*kernel.DispatchPlan, error) {
		launch, _, err := kernel.LaunchFor(p, rec, [3]int{p.Output(0).Elements(), 1, 1}, [3]int{256, 1, 1})
		if err != nil {
			return nil, err
		}
		return kernel.NewPlan("RefEltwise", p, "eltwise_ref_"+p.Str("op", "sum")).
			BindTensors(p).
			WithLaunch(launch), nil
	},
}

var softmax = &kernel.Impl{
	ImplName: "RefSoftmax",
	Fixed:    kernel.PriorityReference,
	Build: func(p *kernel.Params, rec *tuning.Record) (*kernel.DispatchPlan, error) {
		out := p.Output(0)
		axis := p.Int("axis", -1)
		if axis < 0 {
			axis += out.Rank()
		}
		outer := out.Elements() / out.Dim(axis)
		launch, _, err := kernel.LaunchFor(p, rec, [3]int{outer, 1, 1}, [3]int{64, 1, 1})
		if err != nil {
			return nil, err
		}
		return kernel.NewPlan("RefSoftmax", p, "softmax_ref").
			BindTensors(p).
			BindScalar("axis", ml.DTypeI32, float64(axis)).
			BindScalar("axis_size", ml.DTypeI32, float64(out.Dim(axis))).
			WithLaunch(launch), nil
	},
}

var fullyConnected = &kernel.Impl{
	ImplName: "RefFullyConnected",
	Fixed:    kernel.PriorityReference,
	Build: func(p *kernel.Params, rec *tuning.Record) (*kernel.DispatchPlan, error) {
		if p.NumInputs() == 0 {
			return nil, errNoInput
		}
		out := p.Output(0)
		launch, _, err := kernel.LaunchFor(p, rec, [3]int{out.Dim(-1), out.Elements() / out.Dim(-1), 1}, [3]int{16, 1, 1})
		if err != nil {
			return nil, err
		}
		return kernel.NewPlan("RefFullyConnected", p, "fc_ref").
			BindTensors(p).
			BindScalar("k", ml.DTypeI32, float64(p.Input(0).Dim(-1))).
			WithLaunch(launch), nil
	},
}
