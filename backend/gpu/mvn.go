package gpu

import (
	"github.com/ollama/kselect/kernel"
	"github.com/ollama/kselect/ml"
	"github.com/ollama/kselect/tuning"
)

var mvnBlockedKey = kernel.SupportedKey{
	Kind:          kernel.KindNormalization,
	InputDTypes:   floats,
	OutputDTypes:  kernel.AllDTypes,
	InputLayouts:  kernel.Layouts(ml.LayoutPacked),
	OutputLayouts: kernel.Layouts(ml.LayoutPacked),
	Fused:         kernel.FusedKinds(kernel.FusedActivation, kernel.FusedQuantize, kernel.FusedScale),
	Tier:          ml.TierVector,
}

// mvnBlocked reduziert pro Feature-Slice mit einer Subgroup je Slice und
// sammelt Teilsummen im lokalen Speicher.
var mvnBlocked = &kernel.Impl{
	ImplName: "MVNBlocked",
	Key:      &mvnBlockedKey,
	Fixed:    kernel.PriorityOptimized,
	Supported: func(p *kernel.Params) bool {
		return accelerator(p) && subgroup(p, featureSlice) > 0 && !p.Bool("across_channels", false)
	},
	Build: func(p *kernel.Params, rec *tuning.Record) (*kernel.DispatchPlan, error) {
		out := p.Output(0)
		items := out.Dim(-1) * out.Dim(-2)
		lws := clampTile(items, max(1, p.Device().MaxLocal()/featureSlice))

		global := [3]int{lws, ceilDiv(out.Dim(-3), featureSlice) * featureSlice, out.Dim(-4)}
		launch, _, err := kernel.LaunchFor(p, rec, global, [3]int{lws, featureSlice, 1})
		if err != nil {
			return nil, err
		}

		// Mittelwert und Varianz je Work-Item, float32-Akkumulation
		local := launch.LocalVolume() * 2 * 4
		return kernel.NewPlan("MVNBlocked", p, "mvn_blocked_fsv16").
			BindTensors(p).
			BindScalar("eps", ml.DTypeF32, p.Float("eps", 1e-9)).
			BindScalar("normalize_variance", ml.DTypeI32, boolScalar(p.Bool("normalize_variance", true))).
			BindScalar("items", ml.DTypeI32, float64(items)).
			WithResources(local, 48).
			WithLaunch(launch), nil
	},
}
