// Package metrics exposes resolution counters in Prometheus form.
package metrics

import (
	"errors"
	"fmt"

	"github.com/alpaka-gaming/source-compiler/internal/bsp"
	"github.com/alpaka-gaming/source-compiler/internal/manifest"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all Prometheus metrics for level resolution.
type Metrics struct {
	LevelsResolved prometheus.Counter
	Failures       *prometheus.CounterVec
	References     *prometheus.CounterVec
	AuxFiles       prometheus.Counter
	Warnings       prometheus.Counter
	DecodeSeconds  prometheus.Histogram
}

// NewMetrics creates and registers all metrics with the provided registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	levels := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "source_compiler_levels_resolved_total",
		Help: "Levels whose manifest was produced",
	})

	failures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "source_compiler_failures_total",
		Help: "Levels that failed to resolve, by error kind",
	}, []string{"kind"})

	references := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "source_compiler_references_total",
		Help: "Asset references placed in manifests, by kind",
	}, []string{"kind"})

	auxFiles := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "source_compiler_aux_files_total",
		Help: "Side-car files placed in manifests",
	})

	warnings := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "source_compiler_malformed_records_total",
		Help: "Entity records skipped as malformed",
	})

	decodeSeconds := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "source_compiler_resolve_duration_seconds",
		Help:    "Time spent resolving one level",
		Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
	})

	reg.MustRegister(levels, failures, references, auxFiles, warnings, decodeSeconds)

	return &Metrics{
		LevelsResolved: levels,
		Failures:       failures,
		References:     references,
		AuxFiles:       auxFiles,
		Warnings:       warnings,
		DecodeSeconds:  decodeSeconds,
	}
}

// ObserveManifest counts a resolved level's references and files.
func (m *Metrics) ObserveManifest(man *manifest.Manifest, warnings int) {
	m.LevelsResolved.Inc()
	m.References.WithLabelValues("texture").Add(float64(len(man.Textures())))
	m.References.WithLabelValues("model").Add(float64(len(man.Models())))
	m.References.WithLabelValues("sound").Add(float64(len(man.Sounds())))
	m.References.WithLabelValues("particle").Add(float64(len(man.Particles())))
	m.AuxFiles.Add(float64(len(man.Files())))
	m.Warnings.Add(float64(warnings))
}

// ObserveFailure counts a failed level under its error kind.
func (m *Metrics) ObserveFailure(err error) {
	m.Failures.WithLabelValues(FailureKind(err)).Inc()
}

// FailureKind names the error class of a resolution failure.
func FailureKind(err error) string {
	switch {
	case errors.Is(err, bsp.ErrCancelled):
		return "cancelled"
	case errors.Is(err, bsp.ErrStructural):
		return "structural"
	case errors.Is(err, bsp.ErrDecode):
		return "decode"
	default:
		return "io"
	}
}

// WriteTextfile writes every metric gathered from g to path in the text
// exposition format, for the node exporter's textfile collector.
func WriteTextfile(path string, g prometheus.Gatherer) error {
	if err := prometheus.WriteToTextfile(path, g); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
