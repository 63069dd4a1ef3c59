// MODUL: params
// ZWECK: Unveraenderliche Beschreibung einer Primitive-Instanz (OperationParameters)
// INPUT: Kind, Tensor-Deskriptoren, Attribute, Fused-Ops, Geraete-Faehigkeiten
// OUTPUT: *Params inklusive SupportedKey und exaktem Fingerprint
// NEBENEFFEKTE: Keine
// ABHAENGIGKEITEN: ml, github.com/wk8/go-ordered-map/v2
// HINWEISE: Felder sind privat, Zugriffe liefern Kopien; Key und Fingerprint werden einmalig berechnet

package kernel

import (
	"fmt"
	"math"
	"slices"
	"strings"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/ollama/kselect/ml"
)

// ============================================================================
// Fused Post-Operationen
// ============================================================================

// FusedKind classifies a post-operation fused into a primitive.
type FusedKind int

const (
	FusedActivation FusedKind = iota
	FusedEltwise
	FusedQuantize
	FusedScale

	numFusedKinds
)

func (k FusedKind) String() string {
	switch k {
	case FusedActivation:
		return "activation"
	case FusedEltwise:
		return "eltwise"
	case FusedQuantize:
		return "quantize"
	case FusedScale:
		return "scale"
	default:
		return fmt.Sprintf("fused(%d)", int(k))
	}
}

// ParseFusedKind konvertiert einen Namen zu FusedKind.
func ParseFusedKind(s string) (FusedKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "activation":
		return FusedActivation, nil
	case "eltwise":
		return FusedEltwise, nil
	case "quantize":
		return FusedQuantize, nil
	case "scale":
		return FusedScale, nil
	}
	return 0, fmt.Errorf("unknown fused op kind %q", s)
}

func (k FusedKind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

func (k *FusedKind) UnmarshalText(b []byte) error {
	v, err := ParseFusedKind(string(b))
	if err != nil {
		return err
	}
	*k = v
	return nil
}

// FusedOp describes one fused post-operation. Eltwise ops take an extra operand
// of DType; Name selects the concrete function (e.g. "relu", "add").
type FusedOp struct {
	Kind  FusedKind `json:"kind"`
	Name  string    `json:"name,omitempty"`
	DType ml.DType  `json:"dtype,omitempty"`
}

func (f FusedOp) String() string {
	if f.Name == "" {
		return f.Kind.String()
	}
	return f.Kind.String() + ":" + f.Name
}

// ============================================================================
// Params
// ============================================================================

// Params is the immutable description of one primitive instance. It is owned by the
// caller for the duration of a selection call and never retained by the core.
type Params struct {
	kind    Kind
	inputs  []ml.TensorDesc
	outputs []ml.TensorDesc
	attrs   *orderedmap.OrderedMap[string, any]
	fused   []FusedOp
	device  ml.DeviceCaps

	key         SupportedKey
	fingerprint string
}

// Option configures Params during NewParams.
type Option func(*Params) error

// WithInput appends an input tensor descriptor.
func WithInput(t ml.TensorDesc) Option {
	return func(p *Params) error {
		p.inputs = append(p.inputs, t.Clone())
		return nil
	}
}

// WithOutput appends an output tensor descriptor.
func WithOutput(t ml.TensorDesc) Option {
	return func(p *Params) error {
		p.outputs = append(p.outputs, t.Clone())
		return nil
	}
}

// WithAttr sets a scalar attribute. Supported value types are integers, floats,
// strings, bools and slices of integers or floats.
func WithAttr(name string, value any) Option {
	return func(p *Params) error {
		v, err := normalizeAttr(value)
		if err != nil {
			return fmt.Errorf("attribute %q: %w", name, err)
		}
		p.attrs.Set(name, v)
		return nil
	}
}

// WithFused appends a fused post-operation.
func WithFused(op FusedOp) Option {
	return func(p *Params) error {
		p.fused = append(p.fused, op)
		return nil
	}
}

// WithDevice sets the target device capabilities.
func WithDevice(caps ml.DeviceCaps) Option {
	return func(p *Params) error {
		p.device = caps.Clone()
		return nil
	}
}

// NewParams builds and validates Params. Every tensor must be fully resolved;
// handling of dynamic shapes is the caller's responsibility.
func NewParams(kind Kind, opts ...Option) (*Params, error) {
	p := &Params{
		kind:  kind,
		attrs: orderedmap.New[string, any](),
	}

	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, &Error{Op: "new_params", Kind: kind, Err: fmt.Errorf("%w: %w", ErrInvalidParams, err)}
		}
	}

	if err := p.validate(); err != nil {
		return nil, &Error{Op: "new_params", Kind: kind, Err: fmt.Errorf("%w: %w", ErrInvalidParams, err)}
	}

	p.key = keyOf(p)
	p.fingerprint = fingerprintOf(p)
	return p, nil
}

// MustParams is like NewParams but panics on error.
func MustParams(kind Kind, opts ...Option) *Params {
	p, err := NewParams(kind, opts...)
	if err != nil {
		panic(err)
	}
	return p
}

func (p *Params) validate() error {
	if p.kind == "" {
		return fmt.Errorf("empty kind")
	}
	if len(p.outputs) == 0 {
		return fmt.Errorf("no output tensors")
	}
	for i, t := range p.inputs {
		if err := t.Validate(); err != nil {
			return fmt.Errorf("input %d: %w", i, err)
		}
	}
	for i, t := range p.outputs {
		if err := t.Validate(); err != nil {
			return fmt.Errorf("output %d: %w", i, err)
		}
	}
	for i, f := range p.fused {
		if f.Kind < 0 || f.Kind >= numFusedKinds {
			return fmt.Errorf("fused op %d: unknown kind %d", i, f.Kind)
		}
	}
	return nil
}

// ============================================================================
// Zugriff
// ============================================================================

func (p *Params) Kind() Kind { return p.kind }

// Key returns the coarse applicability fingerprint.
func (p *Params) Key() SupportedKey { return p.key }

// Fingerprint returns the exact fingerprint used for tuning lookups.
func (p *Params) Fingerprint() string { return p.fingerprint }

func (p *Params) NumInputs() int  { return len(p.inputs) }
func (p *Params) NumOutputs() int { return len(p.outputs) }

// Input returns a copy of input i. It panics if i is out of range.
func (p *Params) Input(i int) ml.TensorDesc { return p.inputs[i].Clone() }

// Output returns a copy of output i. It panics if i is out of range.
func (p *Params) Output(i int) ml.TensorDesc { return p.outputs[i].Clone() }

// Inputs returns copies of all input descriptors.
func (p *Params) Inputs() []ml.TensorDesc { return cloneTensors(p.inputs) }

// Outputs returns copies of all output descriptors.
func (p *Params) Outputs() []ml.TensorDesc { return cloneTensors(p.outputs) }

// Fused returns the fused post-operations in order.
func (p *Params) Fused() []FusedOp { return slices.Clone(p.fused) }

// HasFused reports whether any fused post-operation is attached.
func (p *Params) HasFused() bool { return len(p.fused) > 0 }

// Device returns a copy of the target device capabilities.
func (p *Params) Device() ml.DeviceCaps { return p.device.Clone() }

// Tier is a shortcut for Device().Tier without copying.
func (p *Params) Tier() ml.ComputeTier { return p.device.Tier }

// DeviceSupports is a shortcut for Device().Supports without copying.
func (p *Params) DeviceSupports(dt ml.DType) bool { return p.device.Supports(dt) }

func cloneTensors(ts []ml.TensorDesc) []ml.TensorDesc {
	out := make([]ml.TensorDesc, len(ts))
	for i, t := range ts {
		out[i] = t.Clone()
	}
	return out
}

// ============================================================================
// Attribute
// ============================================================================

// Attr returns the raw attribute value (int64, []int64, float64, []float64, string
// or bool). Slices are copied.
func (p *Params) Attr(name string) (any, bool) {
	v, ok := p.attrs.Get(name)
	if !ok {
		return nil, false
	}
	switch t := v.(type) {
	case []int64:
		return slices.Clone(t), true
	case []float64:
		return slices.Clone(t), true
	}
	return v, true
}

// AttrNames returns attribute names in insertion order.
func (p *Params) AttrNames() []string {
	names := make([]string, 0, p.attrs.Len())
	for pair := p.attrs.Oldest(); pair != nil; pair = pair.Next() {
		names = append(names, pair.Key)
	}
	return names
}

// Int returns an integer attribute or def.
func (p *Params) Int(name string, def int) int {
	v, ok := p.attrs.Get(name)
	if !ok {
		return def
	}
	switch t := v.(type) {
	case int64:
		return int(t)
	case float64:
		return int(t)
	case bool:
		if t {
			return 1
		}
		return 0
	}
	return def
}

// Ints returns an integer list attribute or def. A scalar integer yields a
// one-element list.
func (p *Params) Ints(name string, def ...int) []int {
	v, ok := p.attrs.Get(name)
	if !ok {
		return def
	}
	switch t := v.(type) {
	case []int64:
		out := make([]int, len(t))
		for i, n := range t {
			out[i] = int(n)
		}
		return out
	case int64:
		return []int{int(t)}
	}
	return def
}

// Float returns a float attribute or def.
func (p *Params) Float(name string, def float64) float64 {
	v, ok := p.attrs.Get(name)
	if !ok {
		return def
	}
	switch t := v.(type) {
	case float64:
		return t
	case int64:
		return float64(t)
	}
	return def
}

// Floats returns a float list attribute or def.
func (p *Params) Floats(name string, def ...float64) []float64 {
	v, ok := p.attrs.Get(name)
	if !ok {
		return def
	}
	switch t := v.(type) {
	case []float64:
		return slices.Clone(t)
	case []int64:
		out := make([]float64, len(t))
		for i, n := range t {
			out[i] = float64(n)
		}
		return out
	case float64:
		return []float64{t}
	}
	return def
}

// Str returns a string attribute or def.
func (p *Params) Str(name, def string) string {
	if v, ok := p.attrs.Get(name); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return def
}

// Bool returns a bool attribute or def.
func (p *Params) Bool(name string, def bool) bool {
	if v, ok := p.attrs.Get(name); ok {
		switch t := v.(type) {
		case bool:
			return t
		case int64:
			return t != 0
		}
	}
	return def
}

// normalizeAttr bringt Attributwerte auf wenige kanonische Typen, damit
// Fingerprint und Getter nicht jeden Integer-Typ kennen muessen.
func normalizeAttr(v any) (any, error) {
	switch t := v.(type) {
	case int:
		return int64(t), nil
	case int32:
		return int64(t), nil
	case int64:
		return t, nil
	case uint32:
		return int64(t), nil
	case float32:
		return float64(t), nil
	case float64:
		if math.IsNaN(t) {
			return nil, fmt.Errorf("NaN value")
		}
		return t, nil
	case string, bool:
		return t, nil
	case []int:
		out := make([]int64, len(t))
		for i, n := range t {
			out[i] = int64(n)
		}
		return out, nil
	case []int64:
		return slices.Clone(t), nil
	case []float32:
		out := make([]float64, len(t))
		for i, f := range t {
			out[i] = float64(f)
		}
		return out, nil
	case []float64:
		return slices.Clone(t), nil
	case []any:
		// JSON-Arrays: ganzzahlig und exakt darstellbar -> []int64, sonst []float64
		ints := make([]int64, 0, len(t))
		floats := make([]float64, 0, len(t))
		integral := true
		for _, e := range t {
			f, ok := e.(float64)
			if !ok {
				return nil, fmt.Errorf("unsupported list element %T", e)
			}
			floats = append(floats, f)
			if f != math.Trunc(f) || math.Abs(f) >= 1<<53 {
				integral = false
			}
			ints = append(ints, int64(f))
		}
		if integral {
			return ints, nil
		}
		return floats, nil
	}
	return nil, fmt.Errorf("unsupported attribute type %T", v)
}

// ============================================================================
// Diagnose
// ============================================================================

// Summary returns a short human readable description for error messages.
func (p *Params) Summary() string {
	var sb strings.Builder
	sb.WriteString(string(p.kind))
	sb.WriteString(" in=[")
	for i, t := range p.inputs {
		if i > 0 {
			sb.WriteString(" ")
		}
		sb.WriteString(t.String())
	}
	sb.WriteString("] out=[")
	for i, t := range p.outputs {
		if i > 0 {
			sb.WriteString(" ")
		}
		sb.WriteString(t.String())
	}
	sb.WriteString("]")
	if len(p.fused) > 0 {
		sb.WriteString(" fused=[")
		for i, f := range p.fused {
			if i > 0 {
				sb.WriteString(" ")
			}
			sb.WriteString(f.String())
		}
		sb.WriteString("]")
	}
	sb.WriteString(" device=")
	sb.WriteString(p.device.String())
	return sb.String()
}
