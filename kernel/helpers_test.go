package kernel

import (
	"errors"
	"testing"

	"github.com/ollama/kselect/ml"
	"github.com/ollama/kselect/tuning"
)

// testDevice ist ein generisches Vektor-Geraet mit f32/f16
var testDevice = ml.DeviceCaps{
	Library:          "opencl",
	Name:             "test",
	Tier:             ml.TierVector,
	DTypes:           []ml.DType{ml.DTypeF32, ml.DTypeF16},
	MaxWorkGroupSize: 256,
	SubgroupSizes:    []int{16},
}

func resampleParams(t *testing.T, layout ml.Layout, dt ml.DType, opts ...Option) *Params {
	t.Helper()
	base := []Option{
		WithInput(ml.TensorDesc{Shape: []int{1, 16, 8, 8}, DType: dt, Layout: layout}),
		WithOutput(ml.TensorDesc{Shape: []int{1, 16, 16, 16}, DType: dt, Layout: layout}),
		WithAttr("mode", "nearest"),
		WithAttr("scale", []float64{2, 2}),
		WithDevice(testDevice),
	}
	p, err := NewParams(KindResample, append(base, opts...)...)
	if err != nil {
		t.Fatal(err)
	}
	return p
}

// fitted baut einen einfachen Plan ueber alle Ausgabe-Elemente
func fitted(name string) func(*Params, *tuning.Record) (*DispatchPlan, error) {
	return func(p *Params, rec *tuning.Record) (*DispatchPlan, error) {
		launch, _, err := LaunchFor(p, rec, [3]int{p.Output(0).Elements(), 1, 1}, [3]int{16, 1, 1})
		if err != nil {
			return nil, err
		}
		return NewPlan(name, p, "").BindTensors(p).WithLaunch(launch), nil
	}
}

func refResample() *Impl {
	return &Impl{
		ImplName: "RefResample",
		Fixed:    PriorityReference,
		Build:    fitted("RefResample"),
	}
}

func optResample() *Impl {
	return &Impl{
		ImplName: "OptResample",
		Fixed:    PriorityGeneric,
		Supported: func(p *Params) bool {
			in := p.Input(0)
			return in.Layout == ml.LayoutPacked && in.DType.IsFloat()
		},
		Build: fitted("OptResample"),
	}
}

var errBuild = errors.New("build failed on purpose")

func failing(name string, prio Priority) *Impl {
	return &Impl{
		ImplName: name,
		Fixed:    prio,
		Build: func(*Params, *tuning.Record) (*DispatchPlan, error) {
			return nil, errBuild
		},
	}
}

// plainImpl implementiert nur Implementation, ohne SupportedKey
type plainImpl struct {
	name string
	prio Priority
}

func (i plainImpl) Name() string { return i.name }

func (i plainImpl) IsSupported(*Params) bool { return true }

func (i plainImpl) Priority(*Params) Priority { return i.prio }

func (i plainImpl) BuildPlan(p *Params, rec *tuning.Record) (*DispatchPlan, error) {
	return fitted(i.name)(p, rec)
}

func newCatalog(t *testing.T, kind Kind, impls ...Implementation) *Catalog {
	t.Helper()
	c := NewCatalog()
	for _, impl := range impls {
		if err := c.Register(kind, impl); err != nil {
			t.Fatal(err)
		}
	}
	return c
}

func names(plans []*DispatchPlan) []string {
	out := make([]string, len(plans))
	for i, p := range plans {
		out[i] = p.Implementation
	}
	return out
}
