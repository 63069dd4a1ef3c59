// MODUL: import
// ZWECK: Benchmark-Samples einlesen und zu Best-Records pro Fingerprint verdichten
// INPUT: CSV mit Kopfzeile (fingerprint, kind, implementation, gws_*, lws_*, ns)
// OUTPUT: []Record, ein Record pro Fingerprint (schnellster Mittelwert)
// NEBENEFFEKTE: Keine
// ABHAENGIGKEITEN: encoding/csv (stdlib), gonum.org/v1/gonum/stat
// HINWEISE: Gleichstand: kleinere Streuung, dann Name; Ergebnis nach Fingerprint sortiert

package tuning

import (
	"cmp"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"maps"
	"slices"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/stat"

	"github.com/ollama/kselect/ml"
)

// Sample is a single timed run of one implementation and launch configuration.
type Sample struct {
	Fingerprint    string
	Kind           string
	Implementation string
	Launch         ml.LaunchConfig
	Nanos          float64
}

var sampleColumns = []string{
	"fingerprint", "kind", "implementation",
	"gws_x", "gws_y", "gws_z", "lws_x", "lws_y", "lws_z",
	"ns",
}

// ReadSamples parses CSV benchmark samples. Column order is taken from the header.
func ReadSamples(r io.Reader) ([]Sample, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.Comment = '#'

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	} else if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	col := make(map[string]int, len(header))
	for i, h := range header {
		col[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, name := range sampleColumns {
		if _, ok := col[name]; !ok {
			return nil, fmt.Errorf("missing column %q", name)
		}
	}

	var samples []Sample
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		} else if err != nil {
			return nil, err
		}
		line, _ := cr.FieldPos(0)

		s := Sample{
			Fingerprint:    rec[col["fingerprint"]],
			Kind:           rec[col["kind"]],
			Implementation: rec[col["implementation"]],
		}
		for i, axis := range []string{"x", "y", "z"} {
			if s.Launch.Global[i], err = strconv.Atoi(rec[col["gws_"+axis]]); err != nil {
				return nil, fmt.Errorf("line %d: gws_%s: %w", line, axis, err)
			}
			if s.Launch.Local[i], err = strconv.Atoi(rec[col["lws_"+axis]]); err != nil {
				return nil, fmt.Errorf("line %d: lws_%s: %w", line, axis, err)
			}
		}
		if s.Nanos, err = strconv.ParseFloat(rec[col["ns"]], 64); err != nil {
			return nil, fmt.Errorf("line %d: ns: %w", line, err)
		}
		if s.Fingerprint == "" || s.Implementation == "" || s.Nanos <= 0 {
			return nil, fmt.Errorf("line %d: incomplete sample", line)
		}
		samples = append(samples, s)
	}
	return samples, nil
}

type groupKey struct {
	fingerprint    string
	implementation string
	launch         ml.LaunchConfig
}

// Aggregate groups samples by fingerprint, implementation and launch and keeps the
// configuration with the lowest mean time for each fingerprint.
func Aggregate(samples []Sample) []Record {
	groups := make(map[groupKey][]float64)
	kinds := make(map[string]string)
	for _, s := range samples {
		k := groupKey{s.Fingerprint, s.Implementation, s.Launch}
		groups[k] = append(groups[k], s.Nanos)
		kinds[s.Fingerprint] = s.Kind
	}

	best := make(map[string]Record)
	for k, xs := range groups {
		mean, std := stat.MeanStdDev(xs, nil)
		if len(xs) < 2 {
			std = 0
		}
		r := Record{
			Fingerprint:    k.fingerprint,
			Kind:           kinds[k.fingerprint],
			Implementation: k.implementation,
			Launch:         k.launch,
			MeanNanos:      mean,
			StdDevNanos:    std,
			Samples:        len(xs),
		}
		if cur, ok := best[k.fingerprint]; !ok || better(r, cur) {
			best[k.fingerprint] = r
		}
	}

	records := slices.Collect(maps.Values(best))
	slices.SortFunc(records, func(a, b Record) int {
		return strings.Compare(a.Fingerprint, b.Fingerprint)
	})
	return records
}

func better(a, b Record) bool {
	if c := cmp.Compare(a.MeanNanos, b.MeanNanos); c != 0 {
		return c < 0
	}
	if c := cmp.Compare(a.StdDevNanos, b.StdDevNanos); c != 0 {
		return c < 0
	}
	if c := strings.Compare(a.Implementation, b.Implementation); c != 0 {
		return c < 0
	}
	return a.Launch.String() < b.Launch.String()
}
