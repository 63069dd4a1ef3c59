package kernel

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	selectionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kselect_selections_total",
		Help: "Total number of kernel selections by outcome",
	}, []string{"kind", "outcome"})

	tuningLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kselect_tuning_lookups_total",
		Help: "Tuning record lookups by result (hit, miss, unused)",
	}, []string{"kind", "result"})

	buildFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kselect_build_failures_total",
		Help: "Candidates dropped because plan building or validation failed",
	}, []string{"kind", "implementation"})

	selectionDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "kselect_selection_duration_seconds",
		Help:    "Duration of GetBestKernels calls",
		Buckets: []float64{0.000001, 0.000005, 0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01},
	}, []string{"kind"})
)

// Werte fuer das outcome-Label
const (
	outcomeOK            = "ok"
	outcomeNoApplicable  = "no_applicable"
	outcomeBuildsFailed  = "all_builds_failed"
	outcomeInvalidParams = "invalid_params"
)
