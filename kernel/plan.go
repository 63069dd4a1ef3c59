// MODUL: plan
// ZWECK: DispatchPlan - alles, was ein Executor zum Starten eines Kernels braucht
// INPUT: Implementierung, Params-Fingerprint, Launch-Konfiguration, Argument-Bindings
// OUTPUT: *DispatchPlan, Validate-Fehler
// NEBENEFFEKTE: Keine
// ABHAENGIGKEITEN: ml, github.com/x448/float16, github.com/d4l3k/go-bfloat16
// HINWEISE: Plaene werden nie ausgefuehrt, nur beschrieben; Immediates sind little endian

package kernel

import (
	"encoding/binary"
	"fmt"
	"log/slog"
	"math"

	bfloat16 "github.com/d4l3k/go-bfloat16"
	"github.com/x448/float16"

	"github.com/ollama/kselect/ml"
	"github.com/ollama/kselect/tuning"
)

// ArgSource says where an argument binding takes its data from.
type ArgSource int

const (
	ArgInput ArgSource = iota
	ArgOutput
	ArgScalar
	ArgWorkspace
	ArgFused
)

func (s ArgSource) String() string {
	switch s {
	case ArgInput:
		return "input"
	case ArgOutput:
		return "output"
	case ArgScalar:
		return "scalar"
	case ArgWorkspace:
		return "workspace"
	case ArgFused:
		return "fused"
	}
	return fmt.Sprintf("source(%d)", int(s))
}

func (s ArgSource) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *ArgSource) UnmarshalText(b []byte) error {
	for src := ArgInput; src <= ArgFused; src++ {
		if src.String() == string(b) {
			*s = src
			return nil
		}
	}
	return fmt.Errorf("unknown argument source %q", b)
}

// ArgBinding maps one kernel argument slot to its source.
type ArgBinding struct {
	Slot   int       `json:"slot"`
	Source ArgSource `json:"source"`
	Index  int       `json:"index"`
	Name   string    `json:"name,omitempty"`
	DType  ml.DType  `json:"dtype"`

	// Reorder is the layout the executor must convert the tensor into before launch.
	// LayoutAny means no conversion.
	Reorder ml.Layout `json:"reorder,omitempty"`
	// Pad is the number of padding elements required after the innermost dimension.
	Pad int `json:"pad,omitempty"`
	// Immediate holds the encoded value of a scalar argument.
	Immediate []byte `json:"immediate,omitempty"`
	// Size is the workspace size in bytes.
	Size int64 `json:"size,omitempty"`
}

// ResourceEstimate is an optional hint about what a launch consumes.
type ResourceEstimate struct {
	LocalMemory int   `json:"local_memory"`
	Registers   int   `json:"registers"`
	Workspace   int64 `json:"workspace"`
}

// DispatchPlan is the ready-to-execute description of one candidate kernel.
type DispatchPlan struct {
	Implementation string            `json:"implementation"`
	Kind           Kind              `json:"kind"`
	EntryPoint     string            `json:"entry_point"`
	Fingerprint    string            `json:"fingerprint"`
	Launch         ml.LaunchConfig   `json:"launch"`
	Args           []ArgBinding      `json:"args"`
	Resources      *ResourceEstimate `json:"resources,omitempty"`

	// Tuned ist gesetzt, wenn Launch aus einem Tuning-Record stammt
	Tuned bool `json:"tuned,omitempty"`

	err error
}

// NewPlan starts a plan for impl and p. The entry point defaults to the
// implementation name.
func NewPlan(impl string, p *Params, entry string) *DispatchPlan {
	if entry == "" {
		entry = impl
	}
	return &DispatchPlan{
		Implementation: impl,
		Kind:           p.kind,
		EntryPoint:     entry,
		Fingerprint:    p.fingerprint,
	}
}

func (d *DispatchPlan) bind(b ArgBinding) *DispatchPlan {
	b.Slot = len(d.Args)
	d.Args = append(d.Args, b)
	return d
}

// BindInput binds the next slot to input tensor index.
func (d *DispatchPlan) BindInput(index int, dt ml.DType) *DispatchPlan {
	return d.bind(ArgBinding{Source: ArgInput, Index: index, DType: dt})
}

// BindOutput binds the next slot to output tensor index.
func (d *DispatchPlan) BindOutput(index int, dt ml.DType) *DispatchPlan {
	return d.bind(ArgBinding{Source: ArgOutput, Index: index, DType: dt})
}

// BindFused binds the next slot to the extra operand of fused op index.
func (d *DispatchPlan) BindFused(index int, dt ml.DType) *DispatchPlan {
	return d.bind(ArgBinding{Source: ArgFused, Index: index, DType: dt})
}

// BindWorkspace binds the next slot to a scratch buffer of size bytes.
func (d *DispatchPlan) BindWorkspace(name string, size int64) *DispatchPlan {
	if size <= 0 {
		d.setErr(fmt.Errorf("workspace %q: non-positive size %d", name, size))
	}
	d.bind(ArgBinding{Source: ArgWorkspace, Index: -1, Name: name, DType: ml.DTypeU8, Size: size})
	if d.Resources == nil {
		d.Resources = &ResourceEstimate{}
	}
	d.Resources.Workspace += size
	return d
}

// BindScalar binds the next slot to an immediate value encoded as dt. Encoding
// errors are reported by Validate.
func (d *DispatchPlan) BindScalar(name string, dt ml.DType, v float64) *DispatchPlan {
	imm, err := EncodeScalar(dt, v)
	if err != nil {
		d.setErr(fmt.Errorf("scalar %q: %w", name, err))
	}
	return d.bind(ArgBinding{Source: ArgScalar, Index: -1, Name: name, DType: dt, Immediate: imm})
}

// Reorder marks the most recent binding as requiring a layout conversion to l.
func (d *DispatchPlan) Reorder(l ml.Layout) *DispatchPlan {
	if n := len(d.Args); n > 0 {
		d.Args[n-1].Reorder = l
	}
	return d
}

// Pad marks the most recent binding as requiring n padding elements.
func (d *DispatchPlan) Pad(n int) *DispatchPlan {
	if k := len(d.Args); k > 0 {
		d.Args[k-1].Pad = n
	}
	return d
}

// BindTensors binds every input, every output and the operands of fused eltwise
// ops, in that order.
func (d *DispatchPlan) BindTensors(p *Params) *DispatchPlan {
	for i, t := range p.inputs {
		d.BindInput(i, t.DType)
	}
	for i, t := range p.outputs {
		d.BindOutput(i, t.DType)
	}
	for i, f := range p.fused {
		if f.Kind == FusedEltwise {
			d.BindFused(i, f.DType)
		}
	}
	return d
}

// WithLaunch sets the launch configuration.
func (d *DispatchPlan) WithLaunch(c ml.LaunchConfig) *DispatchPlan {
	d.Launch = c
	return d
}

// WithResources sets local memory and register estimates, keeping the workspace sum.
func (d *DispatchPlan) WithResources(localMemory, registers int) *DispatchPlan {
	if d.Resources == nil {
		d.Resources = &ResourceEstimate{}
	}
	d.Resources.LocalMemory = localMemory
	d.Resources.Registers = registers
	return d
}

func (d *DispatchPlan) setErr(err error) {
	if d.err == nil {
		d.err = err
	}
}

// Validate checks that the plan is complete and launchable on caps.
func (d *DispatchPlan) Validate(caps ml.DeviceCaps) error {
	if d.err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidPlan, d.err)
	}
	if d.Implementation == "" || d.EntryPoint == "" {
		return fmt.Errorf("%w: missing implementation or entry point", ErrInvalidPlan)
	}
	for i, a := range d.Args {
		if a.Slot != i {
			return fmt.Errorf("%w: argument %d has slot %d", ErrInvalidPlan, i, a.Slot)
		}
	}
	if err := d.Launch.Validate(caps); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidPlan, err)
	}
	if d.Resources != nil && caps.LocalMemory > 0 && d.Resources.LocalMemory > caps.LocalMemory {
		return fmt.Errorf("%w: local memory %d exceeds device limit %d", ErrInvalidPlan, d.Resources.LocalMemory, caps.LocalMemory)
	}
	return nil
}

// LaunchFor returns the launch configuration from rec when it is valid on p's
// device, otherwise global fitted with the preferred local size. The bool reports
// whether the tuned configuration was used.
func LaunchFor(p *Params, rec *tuning.Record, global, preferred [3]int) (ml.LaunchConfig, bool, error) {
	if rec != nil && rec.HasLaunch() {
		err := rec.Launch.Validate(p.device)
		if err == nil {
			return rec.Launch, true, nil
		}
		slog.Debug("ignoring tuned launch", "implementation", rec.Implementation, "launch", rec.Launch, "error", err)
	}
	c, err := ml.FitLaunch(global, preferred, p.device)
	return c, false, err
}

// ============================================================================
// Immediates
// ============================================================================

// EncodeScalar encodes v in the little endian representation of dt.
func EncodeScalar(dt ml.DType, v float64) ([]byte, error) {
	switch dt {
	case ml.DTypeF32:
		return binary.LittleEndian.AppendUint32(nil, math.Float32bits(float32(v))), nil
	case ml.DTypeF16:
		return binary.LittleEndian.AppendUint16(nil, float16.Fromfloat32(float32(v)).Bits()), nil
	case ml.DTypeBF16:
		return bfloat16.EncodeFloat32([]float32{float32(v)}), nil
	case ml.DTypeI32:
		if v != math.Trunc(v) || v < math.MinInt32 || v > math.MaxInt32 {
			return nil, fmt.Errorf("%v is not representable as %s", v, dt)
		}
		return binary.LittleEndian.AppendUint32(nil, uint32(int32(v))), nil
	case ml.DTypeI8:
		if v != math.Trunc(v) || v < math.MinInt8 || v > math.MaxInt8 {
			return nil, fmt.Errorf("%v is not representable as %s", v, dt)
		}
		return []byte{byte(int8(v))}, nil
	case ml.DTypeU8:
		if v != math.Trunc(v) || v < 0 || v > math.MaxUint8 {
			return nil, fmt.Errorf("%v is not representable as %s", v, dt)
		}
		return []byte{byte(v)}, nil
	}
	return nil, fmt.Errorf("no scalar encoding for %s", dt)
}
