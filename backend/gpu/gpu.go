// MODUL: gpu
// ZWECK: Optimierte Beschleuniger-Implementierungen (packed Resample, Convolution-Varianten, MVN, Softmax, Pooling)
// INPUT: kernel.Params mit Geraete-Faehigkeiten
// OUTPUT: DispatchPlan mit Subgroup-/Tile-basierten Launch-Konfigurationen
// NEBENEFFEKTE: Keine
// ABHAENGIGKEITEN: kernel, ml, tuning
// HINWEISE: Alle Varianten ausser OptResample setzen ein Nicht-CPU-Geraet voraus

package gpu

import (
	"github.com/ollama/kselect/kernel"
	"github.com/ollama/kselect/ml"
)

// Register adds all accelerator implementations to c.
func Register(c *kernel.Catalog) error {
	for _, e := range []struct {
		kind kernel.Kind
		impl kernel.Implementation
	}{
		{kernel.KindResample, OptResample{}},
		{kernel.KindConvolution, convTiled},
		{kernel.KindConvolution, conv1x1},
		{kernel.KindConvolution, convWinograd},
		{kernel.KindConvolution, convMatrix},
		{kernel.KindNormalization, mvnBlocked},
		{kernel.KindSoftmax, softmaxSubgroup},
		{kernel.KindPooling, poolingPacked},
		{kernel.KindEltwise, eltwiseVec4},
		{kernel.KindFullyConnected, fcTiled},
	} {
		if err := c.Register(e.kind, e.impl); err != nil {
			return err
		}
	}
	return nil
}

var floats = kernel.DTypes(ml.DTypeF32, ml.DTypeF16, ml.DTypeBF16)

// accelerator meldet, ob p fuer ein Nicht-CPU-Geraet beschrieben ist.
func accelerator(p *kernel.Params) bool {
	return p.Device().Library != "cpu"
}

// subgroup liefert die groesste unterstuetzte Subgroup-Breite aus want, sonst 0.
func subgroup(p *kernel.Params, want ...int) int {
	caps := p.Device()
	for _, n := range want {
		if caps.HasSubgroup(n) {
			return n
		}
	}
	return 0
}

func clampTile(v, max int) int {
	if v < 1 {
		return 1
	}
	if v > max {
		return max
	}
	return v
}

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}

func roundUp(v, m int) int {
	return ceilDiv(v, m) * m
}

func boolScalar(b bool) float64 {
	if b {
		return 1
	}
	return 0
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
