package all

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/ollama/kselect/kernel"
	"github.com/ollama/kselect/ml"
	"github.com/ollama/kselect/tuning"
)

var gpuDevice = ml.DeviceCaps{
	Library:          "opencl",
	Name:             "test",
	Tier:             ml.TierVector,
	DTypes:           []ml.DType{ml.DTypeF32, ml.DTypeF16},
	MaxWorkGroupSize: 256,
	SubgroupSizes:    []int{8, 16},
	LocalMemory:      64 << 10,
}

func registry(t *testing.T, opts ...kernel.SelectorOption) *kernel.Registry {
	t.Helper()
	c := kernel.NewCatalog()
	if err := Register(c); err != nil {
		t.Fatal(err)
	}
	r, err := kernel.NewRegistry(c, opts...)
	if err != nil {
		t.Fatal(err)
	}
	return r
}

func resample(t *testing.T, layout ml.Layout, dt ml.DType) *kernel.Params {
	t.Helper()
	p, err := kernel.NewParams(kernel.KindResample,
		kernel.WithInput(ml.TensorDesc{Shape: []int{1, 32, 20, 20}, DType: dt, Layout: layout}),
		kernel.WithOutput(ml.TensorDesc{Shape: []int{1, 32, 40, 40}, DType: dt, Layout: layout}),
		kernel.WithAttr("mode", "bilinear"),
		kernel.WithDevice(gpuDevice),
	)
	if err != nil {
		t.Fatal(err)
	}
	return p
}

func implNames(plans []*kernel.DispatchPlan) []string {
	out := make([]string, len(plans))
	for i, p := range plans {
		out[i] = p.Implementation
	}
	return out
}

func TestResampleSelection(t *testing.T) {
	r := registry(t)

	cases := []struct {
		name   string
		layout ml.Layout
		dtype  ml.DType
		want   []string
	}{
		{"packed float", ml.LayoutPacked, ml.DTypeF32, []string{"OptResample", "RefResample"}},
		{"packed half", ml.LayoutPacked, ml.DTypeF16, []string{"OptResample", "RefResample"}},
		{"planar", ml.LayoutPlanar, ml.DTypeF32, []string{"RefResample"}},
		{"packed int8", ml.LayoutPacked, ml.DTypeI8, []string{"RefResample"}},
	}
	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			plans, err := r.GetBestKernels(resample(t, tt.layout, tt.dtype))
			if err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(tt.want, implNames(plans)); diff != "" {
				t.Errorf("Reihenfolge (-want +got):\n%s", diff)
			}
			for _, plan := range plans {
				if err := plan.Validate(gpuDevice); err != nil {
					t.Errorf("%s: ungueltiger Plan: %v", plan.Implementation, err)
				}
			}
		})
	}
}

func TestResampleTuned(t *testing.T) {
	p := resample(t, ml.LayoutPacked, ml.DTypeF32)
	store := tuning.NewMemoryStore(tuning.Record{
		Fingerprint:    p.Fingerprint(),
		Kind:           "resample",
		Implementation: "RefResample",
	})

	plans, err := registry(t, kernel.WithTuning(store)).GetBestKernels(p)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"RefResample", "OptResample"}, implNames(plans)); diff != "" {
		t.Errorf("Reihenfolge (-want +got):\n%s", diff)
	}
}

func TestUnknownKind(t *testing.T) {
	p, err := kernel.NewParams("deformable_conv",
		kernel.WithInput(ml.TensorDesc{Shape: []int{1, 8}, DType: ml.DTypeF32, Layout: ml.LayoutPlanar}),
		kernel.WithOutput(ml.TensorDesc{Shape: []int{1, 8}, DType: ml.DTypeF32, Layout: ml.LayoutPlanar}),
	)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := registry(t).GetBestKernels(p); !errors.Is(err, kernel.ErrUnknownKind) {
		t.Errorf("erwartet ErrUnknownKind, bekommen %v", err)
	}
}

func TestEveryKindHasFallback(t *testing.T) {
	r := registry(t)
	for _, kind := range r.Kinds() {
		sel, err := r.GetSelector(kind)
		if err != nil {
			t.Fatal(err)
		}
		var found bool
		for _, impl := range sel.Implementations() {
			if strings.HasPrefix(impl.Name(), "Ref") {
				found = true
			}
		}
		if !found {
			t.Errorf("%s: keine Referenz-Implementierung registriert", kind)
		}
	}
}
