// types.go - Request/Response-Typen der Introspektions-API
// Enthaelt: StatusError, Attrs, SelectRequest, SelectResponse, ExplainResponse, Kind- und Implementierungs-Listen
package api

import (
	"encoding/json"
	"fmt"
	"iter"
	"math"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/ollama/kselect/kernel"
	"github.com/ollama/kselect/ml"
	"github.com/ollama/kselect/tuning"
)

// StatusError is an error with an HTTP status code and message.
type StatusError struct {
	StatusCode   int
	Status       string
	ErrorMessage string `json:"error"`
	Hint         string `json:"hint,omitempty"`
}

func (e StatusError) Error() string {
	switch {
	case e.Status != "" && e.ErrorMessage != "":
		return fmt.Sprintf("%s: %s", e.Status, e.ErrorMessage)
	case e.Status != "":
		return e.Status
	case e.ErrorMessage != "":
		return e.ErrorMessage
	default:
		// this should not happen
		return "something went wrong, please see the kselect server logs for details"
	}
}

// ============================================================================
// Attrs - Attribute in Einfuegereihenfolge
// ============================================================================

// Attrs holds primitive attributes in insertion order.
type Attrs struct {
	om *orderedmap.OrderedMap[string, any]
}

// NewAttrs creates an empty attribute set.
func NewAttrs() Attrs {
	return Attrs{om: orderedmap.New[string, any]()}
}

// Set sets an attribute, preserving insertion order.
func (a *Attrs) Set(key string, value any) {
	if a.om == nil {
		a.om = orderedmap.New[string, any]()
	}
	a.om.Set(key, value)
}

// Get retrieves an attribute.
func (a *Attrs) Get(key string) (any, bool) {
	if a == nil || a.om == nil {
		return nil, false
	}
	return a.om.Get(key)
}

// Len returns the number of attributes.
func (a *Attrs) Len() int {
	if a == nil || a.om == nil {
		return 0
	}
	return a.om.Len()
}

// All returns an iterator over all attributes in insertion order.
func (a *Attrs) All() iter.Seq2[string, any] {
	return func(yield func(string, any) bool) {
		if a == nil || a.om == nil {
			return
		}
		for pair := a.om.Oldest(); pair != nil; pair = pair.Next() {
			if !yield(pair.Key, pair.Value) {
				return
			}
		}
	}
}

func (a *Attrs) UnmarshalJSON(data []byte) error {
	a.om = orderedmap.New[string, any]()
	return json.Unmarshal(data, a.om)
}

func (a Attrs) MarshalJSON() ([]byte, error) {
	if a.om == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(a.om)
}

// ============================================================================
// Auswahl
// ============================================================================

// SelectRequest describes one primitive instance. Device defaults to the host CPU.
type SelectRequest struct {
	Kind    string           `json:"kind"`
	Inputs  []ml.TensorDesc  `json:"inputs"`
	Outputs []ml.TensorDesc  `json:"outputs"`
	Attrs   Attrs            `json:"attrs"`
	Fused   []kernel.FusedOp `json:"fused,omitempty"`
	Device  *ml.DeviceCaps   `json:"device,omitempty"`
}

// Params converts the request into kernel parameters. def is used when the
// request carries no device.
func (r *SelectRequest) Params(def ml.DeviceCaps) (*kernel.Params, error) {
	device := def
	if r.Device != nil {
		device = *r.Device
	}

	opts := []kernel.Option{kernel.WithDevice(device)}
	for _, t := range r.Inputs {
		opts = append(opts, kernel.WithInput(t))
	}
	for _, t := range r.Outputs {
		opts = append(opts, kernel.WithOutput(t))
	}
	for k, v := range r.Attrs.All() {
		opts = append(opts, kernel.WithAttr(k, jsonAttr(v)))
	}
	for _, f := range r.Fused {
		opts = append(opts, kernel.WithFused(f))
	}
	return kernel.NewParams(kernel.ParseKind(r.Kind), opts...)
}

// jsonAttr maps whole JSON numbers to int64 so that a request produces the same
// fingerprint as the equivalent in-process Params.
func jsonAttr(v any) any {
	if f, ok := v.(float64); ok && f == math.Trunc(f) && math.Abs(f) < 1<<53 {
		return int64(f)
	}
	return v
}

// SelectResponse lists dispatch plans, best first.
type SelectResponse struct {
	ID          string                 `json:"id"`
	Kind        string                 `json:"kind"`
	Fingerprint string                 `json:"fingerprint"`
	Plans       []*kernel.DispatchPlan `json:"plans"`
}

// BatchRequest selects for a lowered primitive sequence.
type BatchRequest struct {
	Primitives []SelectRequest `json:"primitives"`
}

// BatchResponse holds one result per primitive in request order.
type BatchResponse struct {
	ID      string           `json:"id"`
	Results []SelectResponse `json:"results"`
}

// ExplainResponse reports the judgement of every catalog entry.
type ExplainResponse struct {
	ID          string             `json:"id"`
	Kind        string             `json:"kind"`
	Fingerprint string             `json:"fingerprint"`
	Key         string             `json:"key"`
	Candidates  []kernel.Candidate `json:"candidates"`
}

// ============================================================================
// Katalog
// ============================================================================

// KindInfo summarizes one primitive kind.
type KindInfo struct {
	Kind            string `json:"kind"`
	Implementations int    `json:"implementations"`
}

// KindsResponse lists all kinds with a selector.
type KindsResponse struct {
	Kinds []KindInfo `json:"kinds"`
}

// ImplementationInfo describes one catalog entry.
type ImplementationInfo struct {
	Name     string `json:"name"`
	Position int    `json:"position"`
	Key      string `json:"key,omitempty"`
	Disabled bool   `json:"disabled,omitempty"`
}

// ImplementationsResponse lists the catalog entries of a kind in registration order.
type ImplementationsResponse struct {
	Kind            string               `json:"kind"`
	Implementations []ImplementationInfo `json:"implementations"`
}

// TuningResponse lists tuning records.
type TuningResponse struct {
	Records []tuning.Record `json:"records"`
}
