package observability

import (
	"sync"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registerOnce          sync.Once
	apiRequestsTotal      *prometheus.CounterVec
	apiLatencySeconds     *prometheus.HistogramVec
	apiErrorsTotal        *prometheus.CounterVec
	gradedQuestionsTotal  *prometheus.CounterVec
	plagiarismPairsTotal  *prometheus.CounterVec
	skippedDocumentsTotal prometheus.Counter
	analyticsRowsTotal    prometheus.Counter
)

// RegisterMetrics initialises the Prometheus collectors used by the grading API.
func RegisterMetrics() {
	registerOnce.Do(func() {
		apiRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "grader_requests_total",
			Help: "Total number of grading API requests served.",
		}, []string{"method", "route", "status"})

		apiLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "grader_latency_seconds",
			Help:    "Latency distribution for grading API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0},
		}, []string{"method", "route"})

		apiErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "grader_errors_total",
			Help: "Total number of error responses returned by the grading API.",
		}, []string{"method", "route", "status"})

		gradedQuestionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "grader_questions_total",
			Help: "Questions graded, partitioned by outcome status.",
		}, []string{"status"})

		plagiarismPairsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "grader_plagiarism_pairs_total",
			Help: "Document pairs reported by plagiarism checks.",
		}, []string{"plagiarised"})

		skippedDocumentsTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "grader_skipped_documents_total",
			Help: "Documents excluded from plagiarism checks because they could not be used.",
		})

		analyticsRowsTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "grader_analytics_rows_total",
			Help: "Rows processed by class analytics.",
		})

		prometheus.MustRegister(
			apiRequestsTotal,
			apiLatencySeconds,
			apiErrorsTotal,
			gradedQuestionsTotal,
			plagiarismPairsTotal,
			skippedDocumentsTotal,
			analyticsRowsTotal,
		)
	})
}

// APIRequests exposes the request counter.
func APIRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return apiRequestsTotal
}

// APILatency exposes the request latency histogram.
func APILatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return apiLatencySeconds
}

// APIErrors exposes the error response counter.
func APIErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return apiErrorsTotal
}

// GradedQuestions counts graded questions by status.
func GradedQuestions() *prometheus.CounterVec {
	RegisterMetrics()
	return gradedQuestionsTotal
}

// PlagiarismPairs counts reported pairs by verdict.
func PlagiarismPairs() *prometheus.CounterVec {
	RegisterMetrics()
	return plagiarismPairsTotal
}

// SkippedDocuments counts documents excluded from plagiarism checks.
func SkippedDocuments() prometheus.Counter {
	RegisterMetrics()
	return skippedDocumentsTotal
}

// AnalyticsRows counts rows fed into class analytics.
func AnalyticsRows() prometheus.Counter {
	RegisterMetrics()
	return analyticsRowsTotal
}

// MetricsHandler serves the default registry in the Prometheus text format.
func MetricsHandler() fiber.Handler {
	RegisterMetrics()
	return adaptor.HTTPHandler(promhttp.HandlerFor(prometheus.DefaultGatherer, promhttp.HandlerOpts{
		ErrorHandling: promhttp.ContinueOnError,
	}))
}
