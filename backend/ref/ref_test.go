package ref

import (
	"testing"

	"github.com/ollama/kselect/kernel"
	"github.com/ollama/kselect/ml"
	"github.com/ollama/kselect/tuning"
)

var device = ml.DeviceCaps{
	Library:          "opencl",
	Tier:             ml.TierBaseline,
	MaxWorkGroupSize: 256,
}

func tensor(dt ml.DType, layout ml.Layout, shape ...int) ml.TensorDesc {
	return ml.TensorDesc{Shape: shape, DType: dt, Layout: layout}
}

func TestResampleAlwaysSupported(t *testing.T) {
	for _, layout := range []ml.Layout{ml.LayoutPlanar, ml.LayoutInterleaved, ml.LayoutPacked} {
		for _, dt := range []ml.DType{ml.DTypeF32, ml.DTypeF16, ml.DTypeI8, ml.DTypeQ40} {
			p := kernel.MustParams(kernel.KindResample,
				kernel.WithInput(tensor(dt, layout, 1, 3, 8, 8)),
				kernel.WithOutput(tensor(dt, layout, 1, 3, 16, 16)),
			)
			if !(Resample{}).IsSupported(p) {
				t.Errorf("%s/%s: RefResample sollte immer anwendbar sein", layout, dt)
			}
		}
	}
	if (Resample{}).Priority(nil) != kernel.PriorityReference {
		t.Error("RefResample sollte Referenz-Prioritaet haben")
	}
}

func TestResamplePlan(t *testing.T) {
	p := kernel.MustParams(kernel.KindResample,
		kernel.WithInput(tensor(ml.DTypeF32, ml.LayoutPlanar, 1, 3, 8, 8)),
		kernel.WithOutput(tensor(ml.DTypeF32, ml.LayoutPlanar, 1, 3, 16, 16)),
		kernel.WithAttr("mode", "bilinear"),
		kernel.WithAttr("align_corners", true),
		kernel.WithDevice(device),
	)

	plan, err := Resample{}.BuildPlan(p, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := plan.Validate(device); err != nil {
		t.Fatal(err)
	}

	want := map[string][]byte{
		// 0.5 als float32
		"scale_x":       {0x00, 0x00, 0x00, 0x3f},
		"mode":          {0x01, 0x00, 0x00, 0x00},
		"align_corners": {0x01, 0x00, 0x00, 0x00},
	}
	for _, a := range plan.Args {
		if w, ok := want[a.Name]; ok && string(w) != string(a.Immediate) {
			t.Errorf("%s: erwartet % x, bekommen % x", a.Name, w, a.Immediate)
		}
	}
	if plan.Launch.Global != [3]int{16, 16, 3} || plan.Launch.Local != [3]int{16, 1, 1} {
		t.Errorf("unerwarteter Launch %s", plan.Launch)
	}
}

func TestResampleTunedLaunch(t *testing.T) {
	p := kernel.MustParams(kernel.KindResample,
		kernel.WithInput(tensor(ml.DTypeF32, ml.LayoutPlanar, 1, 3, 8, 8)),
		kernel.WithOutput(tensor(ml.DTypeF32, ml.LayoutPlanar, 1, 3, 16, 16)),
		kernel.WithDevice(device),
	)
	launch := ml.LaunchConfig{Global: [3]int{16, 16, 3}, Local: [3]int{8, 8, 1}}
	plan, err := Resample{}.BuildPlan(p, &tuning.Record{Implementation: "RefResample", Launch: launch})
	if err != nil {
		t.Fatal(err)
	}
	if plan.Launch != launch {
		t.Errorf("erwartet getunten Launch %s, bekommen %s", launch, plan.Launch)
	}
}

func TestResampleWithoutInput(t *testing.T) {
	p := kernel.MustParams(kernel.KindResample,
		kernel.WithOutput(tensor(ml.DTypeF32, ml.LayoutPlanar, 1, 3, 16, 16)),
	)
	if _, err := (Resample{}).BuildPlan(p, nil); err == nil {
		t.Error("erwartet Fehler ohne Eingabe")
	}
}

func TestRegister(t *testing.T) {
	c := kernel.NewCatalog()
	if err := Register(c); err != nil {
		t.Fatal(err)
	}
	if got := len(c.Kinds()); got != 7 {
		t.Errorf("erwartet 7 Kinds, bekommen %d", got)
	}
	if err := Register(c); err == nil {
		t.Error("doppelte Registrierung sollte fehlschlagen")
	}
}

func TestLast(t *testing.T) {
	cases := []struct {
		v    []int
		i    int
		want int
	}{
		{[]int{2, 3}, 0, 3},
		{[]int{2, 3}, 1, 2},
		{[]int{5}, 1, 5},
		{nil, 0, 0},
	}
	for _, tt := range cases {
		if got := last(tt.v, tt.i); got != tt.want {
			t.Errorf("last(%v, %d): erwartet %d, bekommen %d", tt.v, tt.i, tt.want, got)
		}
	}
}
