package kernel

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// fingerprintOf computes the exact parameter fingerprint used as tuning key.
// It covers kind, every tensor exactly, all attributes sorted by name, fused ops in
// order and the device identity. Attribute insertion order does not change it.
func fingerprintOf(p *Params) string {
	sum := sha256.Sum256([]byte(canonical(p)))
	return "sha256:" + hex.EncodeToString(sum[:])
}

// canonical renders p in a stable textual form, one field per line.
func canonical(p *Params) string {
	var sb strings.Builder
	sb.WriteString("kind=")
	sb.WriteString(string(p.kind))
	sb.WriteByte('\n')

	for i, t := range p.inputs {
		fmt.Fprintf(&sb, "in%d=%s\n", i, t)
	}
	for i, t := range p.outputs {
		fmt.Fprintf(&sb, "out%d=%s\n", i, t)
	}

	names := make([]string, 0, p.attrs.Len())
	for pair := p.attrs.Oldest(); pair != nil; pair = pair.Next() {
		names = append(names, pair.Key)
	}
	slices.Sort(names)
	for _, name := range names {
		v, _ := p.attrs.Get(name)
		sb.WriteString("attr.")
		sb.WriteString(name)
		sb.WriteByte('=')
		sb.WriteString(formatAttr(v))
		sb.WriteByte('\n')
	}

	for i, f := range p.fused {
		fmt.Fprintf(&sb, "fused%d=%s:%s\n", i, f, f.DType)
	}

	fmt.Fprintf(&sb, "device=%s/%s/%s\n", p.device.Library, p.device.Name, p.device.Tier)
	// Launch-Anpassung und GPU-Unterstuetzung haengen an diesen Grenzen
	fmt.Fprintf(&sb, "device.max_local=%d\n", p.device.MaxWorkGroupSize)
	fmt.Fprintf(&sb, "device.subgroups=%v\n", p.device.SubgroupSizes)
	return sb.String()
}

func formatAttr(v any) string {
	switch t := v.(type) {
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'g', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	case string:
		return strconv.Quote(t)
	case []int64:
		parts := make([]string, len(t))
		for i, n := range t {
			parts[i] = strconv.FormatInt(n, 10)
		}
		return "[" + strings.Join(parts, ",") + "]"
	case []float64:
		parts := make([]string, len(t))
		for i, f := range t {
			parts[i] = strconv.FormatFloat(f, 'g', -1, 64)
		}
		return "[" + strings.Join(parts, ",") + "]"
	}
	return fmt.Sprintf("%v", v)
}
