// Package metrics wraps the prometheus client so each component receives an
// explicit *Registry handle at construction rather than reaching for a
// package-level global (§9 DESIGN NOTES: "pass explicit context/handles
// through component constructors").
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Registry bundles the Memory Core's hot-path instruments.
type Registry struct {
	Registerer prometheus.Registerer

	IngestBatches   *prometheus.CounterVec
	IngestFacts     *prometheus.CounterVec
	SearchRequests  *prometheus.CounterVec
	SearchLatency   *prometheus.HistogramVec
	SandboxExecs    *prometheus.CounterVec
	SandboxDuration prometheus.Histogram
}

// New builds a Registry and registers its instruments against reg. Pass
// prometheus.NewRegistry() in tests to avoid collisions with other suites.
func New(reg prometheus.Registerer) *Registry {
	m := &Registry{
		Registerer: reg,
		IngestBatches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "agentmem_ingest_batches_total",
			Help: "Number of ingestion batches processed by the intelligent processor.",
		}, []string{"organization_id"}),
		IngestFacts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "agentmem_ingest_facts_total",
			Help: "Number of facts processed, labeled by decision outcome.",
		}, []string{"decision"}),
		SearchRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "agentmem_search_requests_total",
			Help: "Number of hybrid search requests, labeled by outcome.",
		}, []string{"outcome"}),
		SearchLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "agentmem_search_latency_seconds",
			Help:    "Hybrid search latency by phase (vector, fulltext, fusion, total).",
			Buckets: prometheus.DefBuckets,
		}, []string{"phase"}),
		SandboxExecs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "agentmem_sandbox_executions_total",
			Help: "Number of sandbox tool executions, labeled by outcome.",
		}, []string{"outcome"}),
		SandboxDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name: "agentmem_sandbox_duration_seconds",
			Help: "Sandbox tool execution wall-clock duration.",
		}),
	}

	if reg != nil {
		reg.MustRegister(m.IngestBatches, m.IngestFacts, m.SearchRequests, m.SearchLatency, m.SandboxExecs, m.SandboxDuration)
	}
	return m
}

// Noop returns a Registry not attached to any registerer, for components
// that don't want to pay for a *prometheus.Registry in unit tests.
func Noop() *Registry {
	return New(nil)
}
