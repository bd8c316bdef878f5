package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

var (
	registry           *prometheus.Registry
	registryOnce       sync.Once
	defaultMetricsPath = "/metrics"
	metricsEnabled     = true

	// Pipeline metrics
	PipelineRequestsTotal  *prometheus.CounterVec
	PipelineDuration       *prometheus.HistogramVec
	PipelineActiveRequests prometheus.Gauge
	AudioFallbacksTotal    *prometheus.CounterVec

	// Script generation metrics
	GenerationRequestsTotal *prometheus.CounterVec
	GenerationLatency       *prometheus.HistogramVec
	GenerationScriptLength  prometheus.Histogram
	WordsAnalyzedTotal      prometheus.Counter

	// Speech synthesis metrics
	SynthesisRequestsTotal *prometheus.CounterVec
	SynthesisLatency       *prometheus.HistogramVec
	SynthesisRetriesTotal  *prometheus.CounterVec
	SynthesisChunksTotal   *prometheus.CounterVec
	AudioBytesProduced     prometheus.Counter

	// WebSocket metrics
	ProgressClientsActive prometheus.Gauge

	// AMQP metrics
	AMQPPublishedMessages *prometheus.CounterVec
	AMQPConnectionErrors  *prometheus.CounterVec
	AMQPConnectionStatus  prometheus.Gauge
)

// Init initializes all metrics and registers them with Prometheus
func Init(logger *logrus.Logger) {
	registryOnce.Do(func() {
		registry = prometheus.NewRegistry()

		// Initialize pipeline metrics
		PipelineRequestsTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "demovoice_pipeline_requests_total",
				Help: "Total number of processing pipeline requests",
			},
			[]string{"status"},
		)

		PipelineDuration = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "demovoice_pipeline_duration_seconds",
				Help:    "End-to-end duration of the processing pipeline",
				Buckets: prometheus.ExponentialBuckets(0.5, 2, 10), // 500ms to ~8.5min
			},
			[]string{"status"},
		)

		PipelineActiveRequests = prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "demovoice_pipeline_active_requests",
				Help: "Number of pipeline requests currently in flight",
			},
		)

		AudioFallbacksTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "demovoice_audio_fallbacks_total",
				Help: "Total number of requests that fell back to original audio",
			},
			[]string{"reason"},
		)

		// Initialize generation metrics
		GenerationRequestsTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "demovoice_generation_requests_total",
				Help: "Total number of script generation requests",
			},
			[]string{"status"},
		)

		GenerationLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "demovoice_generation_latency_seconds",
				Help:    "Latency of script generation requests",
				Buckets: prometheus.ExponentialBuckets(0.1, 2, 10), // 100ms to ~100s
			},
			[]string{"model"},
		)

		GenerationScriptLength = prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "demovoice_generation_script_length_chars",
				Help:    "Length of generated narration scripts in characters",
				Buckets: prometheus.ExponentialBuckets(100, 2, 8), // 100 to ~25k chars
			},
		)

		WordsAnalyzedTotal = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "demovoice_words_analyzed_total",
				Help: "Total number of transcript words run through timing analysis",
			},
		)

		// Initialize synthesis metrics
		SynthesisRequestsTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "demovoice_synthesis_requests_total",
				Help: "Total number of speech synthesis requests",
			},
			[]string{"status"},
		)

		SynthesisLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "demovoice_synthesis_latency_seconds",
				Help:    "Latency of speech synthesis requests",
				Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
			},
			[]string{"voice"},
		)

		SynthesisRetriesTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "demovoice_synthesis_retries_total",
				Help: "Total number of synthesis retry attempts",
			},
			[]string{"error_type"},
		)

		SynthesisChunksTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "demovoice_synthesis_chunks_total",
				Help: "Total number of text chunks sent for synthesis",
			},
			[]string{"status"},
		)

		AudioBytesProduced = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "demovoice_audio_bytes_produced_total",
				Help: "Total number of audio bytes produced by synthesis",
			},
		)

		// Initialize WebSocket metrics
		ProgressClientsActive = prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "demovoice_progress_clients_active",
				Help: "Number of connected progress WebSocket clients",
			},
		)

		// Initialize AMQP metrics
		AMQPPublishedMessages = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "demovoice_amqp_published_messages_total",
				Help: "Total number of messages published to AMQP",
			},
			[]string{"queue", "status"},
		)

		AMQPConnectionErrors = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "demovoice_amqp_connection_errors_total",
				Help: "Total number of AMQP connection errors",
			},
			[]string{"error_type"},
		)

		AMQPConnectionStatus = prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "demovoice_amqp_connection_status",
				Help: "Status of AMQP connection (1 = connected, 0 = disconnected)",
			},
		)

		// Register all metrics
		registry.MustRegister(
			// Pipeline metrics
			PipelineRequestsTotal,
			PipelineDuration,
			PipelineActiveRequests,
			AudioFallbacksTotal,

			// Generation metrics
			GenerationRequestsTotal,
			GenerationLatency,
			GenerationScriptLength,
			WordsAnalyzedTotal,

			// Synthesis metrics
			SynthesisRequestsTotal,
			SynthesisLatency,
			SynthesisRetriesTotal,
			SynthesisChunksTotal,
			AudioBytesProduced,

			// WebSocket metrics
			ProgressClientsActive,

			// AMQP metrics
			AMQPPublishedMessages,
			AMQPConnectionErrors,
			AMQPConnectionStatus,
		)

		logger.Info("Prometheus metrics initialized")
	})
}

// GetRegistry returns the prometheus registry
func GetRegistry() *prometheus.Registry {
	return registry
}

// SetMetricsPath sets the HTTP path for metrics endpoint
func SetMetricsPath(path string) {
	defaultMetricsPath = path
}

// EnableMetrics enables or disables metrics collection
func EnableMetrics(enabled bool) {
	metricsEnabled = enabled
}

// IsMetricsEnabled returns whether metrics are enabled
func IsMetricsEnabled() bool {
	return metricsEnabled
}

// RegisterHandler registers the metrics HTTP handler
func RegisterHandler(mux *http.ServeMux) {
	if metricsEnabled {
		handler := promhttp.HandlerFor(
			registry,
			promhttp.HandlerOpts{
				EnableOpenMetrics: true,
				Registry:          registry,
			},
		)
		mux.Handle(defaultMetricsPath, handler)
	}
}

// StartMetrics initializes the metrics service
func StartMetrics(logger *logrus.Logger, metricsEnabled bool) {
	if !metricsEnabled {
		EnableMetrics(false)
		logger.Info("Metrics collection is disabled")
		return
	}

	Init(logger)
	EnableMetrics(true)
	logger.WithField("metrics_path", defaultMetricsPath).Info("Metrics endpoint initialized")
}

// RecordPipelineRequest records the outcome of a pipeline request
func RecordPipelineRequest(status string, duration time.Duration) {
	if metricsEnabled && PipelineRequestsTotal != nil {
		PipelineRequestsTotal.WithLabelValues(status).Inc()
		PipelineDuration.WithLabelValues(status).Observe(duration.Seconds())
	}
}

// StartPipelineTimer increments the active request gauge and returns a
// function that records the pipeline outcome when called. The status is
// read at completion time so callers can set it as the pipeline advances.
func StartPipelineTimer(status *string) func() {
	if !metricsEnabled || PipelineActiveRequests == nil {
		return func() {}
	}

	PipelineActiveRequests.Inc()
	start := time.Now()
	return func() {
		PipelineActiveRequests.Dec()
		RecordPipelineRequest(*status, time.Since(start))
	}
}

// RecordAudioFallback records a fallback to the original audio source
func RecordAudioFallback(reason string) {
	if metricsEnabled && AudioFallbacksTotal != nil {
		AudioFallbacksTotal.WithLabelValues(reason).Inc()
	}
}

// RecordGeneration records the outcome of a script generation request
func RecordGeneration(status string, scriptLength int) {
	if metricsEnabled && GenerationRequestsTotal != nil {
		GenerationRequestsTotal.WithLabelValues(status).Inc()
		if scriptLength > 0 {
			GenerationScriptLength.Observe(float64(scriptLength))
		}
	}
}

// ObserveGenerationLatency records generation latency with a timer function
func ObserveGenerationLatency(model string) func() {
	if !metricsEnabled || GenerationLatency == nil {
		return func() {}
	}

	start := time.Now()
	return func() {
		GenerationLatency.WithLabelValues(model).Observe(time.Since(start).Seconds())
	}
}

// RecordWordsAnalyzed records the number of words run through timing analysis
func RecordWordsAnalyzed(count int) {
	if metricsEnabled && WordsAnalyzedTotal != nil {
		WordsAnalyzedTotal.Add(float64(count))
	}
}

// RecordSynthesis records the outcome of a full synthesis run
func RecordSynthesis(status string, audioBytes int) {
	if metricsEnabled && SynthesisRequestsTotal != nil {
		SynthesisRequestsTotal.WithLabelValues(status).Inc()
		if audioBytes > 0 {
			AudioBytesProduced.Add(float64(audioBytes))
		}
	}
}

// ObserveSynthesisLatency records synthesis latency with a timer function
func ObserveSynthesisLatency(voice string) func() {
	if !metricsEnabled || SynthesisLatency == nil {
		return func() {}
	}

	start := time.Now()
	return func() {
		SynthesisLatency.WithLabelValues(voice).Observe(time.Since(start).Seconds())
	}
}

// RecordSynthesisRetry records a synthesis retry attempt
func RecordSynthesisRetry(errorType string) {
	if metricsEnabled && SynthesisRetriesTotal != nil {
		SynthesisRetriesTotal.WithLabelValues(errorType).Inc()
	}
}

// RecordSynthesisChunk records the outcome of a single chunk synthesis
func RecordSynthesisChunk(status string) {
	if metricsEnabled && SynthesisChunksTotal != nil {
		SynthesisChunksTotal.WithLabelValues(status).Inc()
	}
}

// SetProgressClients sets the number of connected progress clients
func SetProgressClients(count int) {
	if metricsEnabled && ProgressClientsActive != nil {
		ProgressClientsActive.Set(float64(count))
	}
}

// RecordAMQPPublish records metrics for an AMQP publish
func RecordAMQPPublish(queue, status string) {
	if metricsEnabled && AMQPPublishedMessages != nil {
		AMQPPublishedMessages.WithLabelValues(queue, status).Inc()
	}
}

// RecordAMQPConnectionError records an AMQP connection error
func RecordAMQPConnectionError(errorType string) {
	if metricsEnabled && AMQPConnectionErrors != nil {
		AMQPConnectionErrors.WithLabelValues(errorType).Inc()
	}
}

// SetAMQPConnectionStatus sets the AMQP connection status
func SetAMQPConnectionStatus(connected bool) {
	if metricsEnabled && AMQPConnectionStatus != nil {
		if connected {
			AMQPConnectionStatus.Set(1)
		} else {
			AMQPConnectionStatus.Set(0)
		}
	}
}
