package metrics

import "github.com/prometheus/client_golang/prometheus"

// PipelineMetrics exposes counters/histograms for email pipeline flows.
type PipelineMetrics struct {
	processedTotal  *prometheus.CounterVec
	stageFailures   *prometheus.CounterVec
	repliesTotal    *prometheus.CounterVec
	pipelineLatency prometheus.Histogram
}

func NewPipelineMetrics(reg prometheus.Registerer) *PipelineMetrics {
	m := &PipelineMetrics{
		processedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "autoreply",
			Subsystem: "pipeline",
			Name:      "processed_total",
			Help:      "Total messages that reached a terminal state",
		}, []string{"status"}),
		stageFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "autoreply",
			Subsystem: "pipeline",
			Name:      "stage_failures_total",
			Help:      "Total non-fatal stage failures absorbed by the pipeline",
		}, []string{"stage"}),
		repliesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "autoreply",
			Subsystem: "pipeline",
			Name:      "replies_total",
			Help:      "Total rendered replies by template key",
		}, []string{"template"}),
		pipelineLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "autoreply",
			Subsystem: "pipeline",
			Name:      "latency_seconds",
			Help:      "End-to-end latency of message processing",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.processedTotal, m.stageFailures, m.repliesTotal, m.pipelineLatency)
	return m
}

func (m *PipelineMetrics) ObserveProcessed(status string) {
	if m == nil {
		return
	}
	m.processedTotal.WithLabelValues(status).Inc()
}

func (m *PipelineMetrics) ObserveStageFailure(stage string) {
	if m == nil {
		return
	}
	m.stageFailures.WithLabelValues(stage).Inc()
}

func (m *PipelineMetrics) ObserveReply(template string) {
	if m == nil {
		return
	}
	m.repliesTotal.WithLabelValues(template).Inc()
}

func (m *PipelineMetrics) ObserveLatency(seconds float64) {
	if m == nil {
		return
	}
	m.pipelineLatency.Observe(seconds)
}
