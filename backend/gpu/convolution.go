package gpu

import (
	"errors"
	"fmt"

	"github.com/ollama/kselect/kernel"
	"github.com/ollama/kselect/ml"
	"github.com/ollama/kselect/tuning"
)

var errNoWeights = errors.New("convolution needs source and weights")

// convShape fasst die fuer die Varianten relevanten Convolution-Parameter zusammen.
type convShape struct {
	src, weights, out ml.TensorDesc

	kx, ky           int
	strideX, strideY int
	padX, padY       int
	dilX, dilY       int
	groups           int
}

func convShapeOf(p *kernel.Params) (convShape, bool) {
	if p.NumInputs() < 2 {
		return convShape{}, false
	}
	strides := p.Ints("strides", 1, 1)
	pads := p.Ints("pads_begin", 0, 0)
	dil := p.Ints("dilations", 1, 1)
	w := p.Input(1)
	return convShape{
		src:     p.Input(0),
		weights: w,
		out:     p.Output(0),
		kx:      w.Dim(-1),
		ky:      w.Dim(-2),
		strideX: last(strides, 0),
		strideY: last(strides, 1),
		padX:    last(pads, 0),
		padY:    last(pads, 1),
		dilX:    last(dil, 0),
		dilY:    last(dil, 1),
		groups:  p.Int("groups", 1),
	}, true
}

func (c convShape) bindGeometry(plan *kernel.DispatchPlan) *kernel.DispatchPlan {
	return plan.
		BindScalar("stride_x", ml.DTypeI32, float64(c.strideX)).
		BindScalar("stride_y", ml.DTypeI32, float64(c.strideY)).
		BindScalar("pad_x", ml.DTypeI32, float64(c.padX)).
		BindScalar("pad_y", ml.DTypeI32, float64(c.padY))
}

// ============================================================================
// Tiled - allgemeine Variante mit Subgroups
// ============================================================================

var convTiledKey = kernel.SupportedKey{
	Kind:          kernel.KindConvolution,
	InputDTypes:   floats,
	OutputDTypes:  floats,
	InputLayouts:  kernel.Layouts(ml.LayoutPlanar, ml.LayoutPacked),
	OutputLayouts: kernel.Layouts(ml.LayoutPlanar, ml.LayoutPacked),
	Fused:         kernel.AllFused,
	Tier:          ml.TierVector,
}

var convTiled = &kernel.Impl{
	ImplName: "ConvTiled",
	Key:      &convTiledKey,
	Fixed:    kernel.PriorityOptimized,
	Supported: func(p *kernel.Params) bool {
		_, ok := convShapeOf(p)
		return ok && accelerator(p) && subgroup(p, 16, 8) > 0
	},
	Build: func(p *kernel.Params, rec *tuning.Record) (*kernel.DispatchPlan, error) {
		c, ok := convShapeOf(p)
		if !ok {
			return nil, errNoWeights
		}
		sg := subgroup(p, 16, 8)
		if sg == 0 {
			return nil, fmt.Errorf("device %s has no usable subgroup size", p.Device())
		}

		// Block-Breite in x: breitere Bloecke bei kleinen Kernen, begrenzt durch die Ausgabe
		blockX := clampTile(8/max(1, c.kx/2), c.out.Dim(-1))
		global := [3]int{ceilDiv(c.out.Dim(-1), blockX), c.out.Dim(-2), roundUp(c.out.Dim(-3), sg) * c.out.Dim(-4)}
		launch, _, err := kernel.LaunchFor(p, rec, global, [3]int{1, 1, sg})
		if err != nil {
			return nil, err
		}

		plan := kernel.NewPlan("ConvTiled", p, fmt.Sprintf("convolution_tiled_b%d_sg%d", blockX, sg)).BindTensors(p)
		return c.bindGeometry(plan).
			BindScalar("dilation_x", ml.DTypeI32, float64(c.dilX)).
			BindScalar("dilation_y", ml.DTypeI32, float64(c.dilY)).
			BindScalar("groups", ml.DTypeI32, float64(c.groups)).
			WithResources(0, 64+blockX*8).
			WithLaunch(launch), nil
	},
}

// ============================================================================
// 1x1 - als GEMM ueber die Feature-Dimension
// ============================================================================

var conv1x1Key = kernel.SupportedKey{
	Kind:          kernel.KindConvolution,
	InputDTypes:   kernel.DTypes(ml.DTypeF32, ml.DTypeF16),
	OutputDTypes:  kernel.DTypes(ml.DTypeF32, ml.DTypeF16),
	InputLayouts:  kernel.Layouts(ml.LayoutPlanar, ml.LayoutPacked),
	OutputLayouts: kernel.Layouts(ml.LayoutPlanar, ml.LayoutPacked),
	Fused:         kernel.FusedKinds(kernel.FusedActivation, kernel.FusedScale),
	Tier:          ml.TierVector,
}

var conv1x1 = &kernel.Impl{
	ImplName: "Conv1x1",
	Key:      &conv1x1Key,
	Fixed:    kernel.PriorityOptimized + 5,
	Supported: func(p *kernel.Params) bool {
		c, ok := convShapeOf(p)
		return ok && accelerator(p) &&
			c.kx == 1 && c.ky == 1 &&
			c.strideX == 1 && c.strideY == 1 &&
			c.padX == 0 && c.padY == 0 &&
			c.groups == 1
	},
	Build: func(p *kernel.Params, rec *tuning.Record) (*kernel.DispatchPlan, error) {
		c, ok := convShapeOf(p)
		if !ok {
			return nil, errNoWeights
		}
		spatial := c.out.Dim(-1) * c.out.Dim(-2)
		global := [3]int{roundUp(spatial, 8), roundUp(c.out.Dim(-3), 16), c.out.Dim(-4)}
		launch, _, err := kernel.LaunchFor(p, rec, global, [3]int{8, 16, 1})
		if err != nil {
			return nil, err
		}
		return kernel.NewPlan("Conv1x1", p, "convolution_1x1_gemm").
			BindTensors(p).
			BindScalar("m", ml.DTypeI32, float64(spatial)).
			BindScalar("k", ml.DTypeI32, float64(c.src.Dim(-3))).
			BindScalar("n", ml.DTypeI32, float64(c.out.Dim(-3))).
			WithResources(8*16*c.src.DType.Size()*2, 96).
			WithLaunch(launch), nil
	},
}

// ============================================================================
// Winograd F(2x2, 3x3)
// ============================================================================

var convWinogradKey = kernel.SupportedKey{
	Kind:          kernel.KindConvolution,
	InputDTypes:   kernel.DTypes(ml.DTypeF32, ml.DTypeF16),
	OutputDTypes:  kernel.DTypes(ml.DTypeF32, ml.DTypeF16),
	InputLayouts:  kernel.Layouts(ml.LayoutPacked),
	OutputLayouts: kernel.Layouts(ml.LayoutPacked),
	Fused:         kernel.FusedKinds(kernel.FusedActivation),
	Tier:          ml.TierVector,
}

var convWinograd = &kernel.Impl{
	ImplName: "ConvWinograd",
	Key:      &convWinogradKey,
	Fixed:    kernel.PriorityOptimized + 10,
	Supported: func(p *kernel.Params) bool {
		c, ok := convShapeOf(p)
		return ok && accelerator(p) &&
			c.kx == 3 && c.ky == 3 &&
			c.strideX == 1 && c.strideY == 1 &&
			c.dilX == 1 && c.dilY == 1 &&
			c.groups == 1 &&
			c.src.Dim(-3) >= featureSlice
	},
	Build: func(p *kernel.Params, rec *tuning.Record) (*kernel.DispatchPlan, error) {
		c, ok := convShapeOf(p)
		if !ok {
			return nil, errNoWeights
		}
		tilesX, tilesY := ceilDiv(c.out.Dim(-1), 2), ceilDiv(c.out.Dim(-2), 2)
		// transformierte Eingabe-Kacheln: 4x4 Werte pro Kachel und Eingabe-Feature
		workspace := int64(tilesX*tilesY*16*c.src.Dim(-3)*c.src.Dim(-4)) * int64(c.src.DType.Size())

		global := [3]int{tilesX, tilesY, roundUp(c.out.Dim(-3), featureSlice) * c.out.Dim(-4)}
		launch, _, err := kernel.LaunchFor(p, rec, global, [3]int{1, 1, featureSlice})
		if err != nil {
			return nil, err
		}

		plan := kernel.NewPlan("ConvWinograd", p, "convolution_winograd_2x3").BindTensors(p)
		return c.bindGeometry(plan).
			BindWorkspace("winograd_tiles", workspace).
			WithResources(16*featureSlice*c.src.DType.Size(), 128).
			WithLaunch(launch), nil
	},
}

// ============================================================================
// Matrix-Engines (dpas, Tensor Cores)
// ============================================================================

var convMatrixKey = kernel.SupportedKey{
	Kind:          kernel.KindConvolution,
	InputDTypes:   kernel.DTypes(ml.DTypeF16, ml.DTypeBF16),
	OutputDTypes:  floats,
	InputLayouts:  kernel.Layouts(ml.LayoutPacked),
	OutputLayouts: kernel.Layouts(ml.LayoutPacked, ml.LayoutPlanar),
	Fused:         kernel.AllFused,
	Tier:          ml.TierMatrix,
}

var convMatrix = &kernel.Impl{
	ImplName: "ConvMatrix",
	Key:      &convMatrixKey,
	Fixed:    kernel.PriorityVendor,
	Supported: func(p *kernel.Params) bool {
		c, ok := convShapeOf(p)
		return ok && accelerator(p) && c.groups == 1 && p.DeviceSupports(c.src.DType) &&
			c.src.Dim(-3)%featureSlice == 0 && c.out.Dim(-3)%featureSlice == 0
	},
	Build: func(p *kernel.Params, rec *tuning.Record) (*kernel.DispatchPlan, error) {
		c, ok := convShapeOf(p)
		if !ok {
			return nil, errNoWeights
		}
		sg := subgroup(p, 16, 8, 32)
		if sg == 0 {
			sg = 16
		}
		global := [3]int{ceilDiv(c.out.Dim(-1)*c.out.Dim(-2), 8), c.out.Dim(-3), c.out.Dim(-4)}
		launch, _, err := kernel.LaunchFor(p, rec, global, [3]int{1, sg, 1})
		if err != nil {
			return nil, err
		}

		plan := kernel.NewPlan("ConvMatrix", p, fmt.Sprintf("convolution_matrix_%s", c.src.DType)).BindTensors(p)
		return c.bindGeometry(plan).
			BindScalar("dilation_x", ml.DTypeI32, float64(c.dilX)).
			BindScalar("dilation_y", ml.DTypeI32, float64(c.dilY)).
			WithResources(8*sg*c.src.DType.Size()*2, 128).
			WithLaunch(launch), nil
	},
}
