package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Message metrics
	messagesReceived = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "quotebot_messages_received_total",
		Help: "Total number of messages received",
	}, []string{"chat_type"})

	messagesProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "quotebot_messages_processed_total",
		Help: "Total number of messages processed",
	}, []string{"status"})

	// Command metrics
	commandsExecuted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "quotebot_commands_executed_total",
		Help: "Total number of commands executed",
	}, []string{"command"})

	// Inference metrics
	inferenceDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "quotebot_inference_duration_seconds",
		Help:    "Duration of text-generation requests",
		Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 20, 30},
	}, []string{"mode", "result"})

	inferenceTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "quotebot_inference_requests_total",
		Help: "Total number of text-generation requests",
	}, []string{"mode", "result"})

	// Quote metrics
	quoteSource = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "quotebot_quotes_served_total",
		Help: "Quotes served by source",
	}, []string{"source"})

	// Rate limit metrics
	rateLimitExceeded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "quotebot_rate_limit_exceeded_total",
		Help: "Total number of rate limit exceeded events",
	}, []string{"command"})

	// Storage metrics
	storageOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "quotebot_storage_operations_total",
		Help: "Total number of storage operations",
	}, []string{"operation", "status"})

	storageOperationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "quotebot_storage_operation_duration_seconds",
		Help:    "Duration of storage operations",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})

	registeredUsers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "quotebot_registered_users",
		Help: "Number of users in the user directory",
	})
)

// Metrics provides methods to record metrics
type Metrics struct{}

// NewMetrics creates a new metrics instance
func NewMetrics() *Metrics {
	return &Metrics{}
}

// RecordMessageReceived records a received message
func (m *Metrics) RecordMessageReceived(chatType string) {
	messagesReceived.WithLabelValues(chatType).Inc()
}

// RecordMessageProcessed records a processed message
func (m *Metrics) RecordMessageProcessed(status string) {
	messagesProcessed.WithLabelValues(status).Inc()
}

// RecordCommandExecuted records an executed command
func (m *Metrics) RecordCommandExecuted(command string) {
	commandsExecuted.WithLabelValues(command).Inc()
}

// RecordInference records one text-generation call and how it ended
func (m *Metrics) RecordInference(mode, result string, duration time.Duration) {
	inferenceDuration.WithLabelValues(mode, result).Observe(duration.Seconds())
	inferenceTotal.WithLabelValues(mode, result).Inc()
}

// RecordQuoteSource records where a /cite reply came from: ai, local or none
func (m *Metrics) RecordQuoteSource(source string) {
	quoteSource.WithLabelValues(source).Inc()
}

// RecordRateLimitExceeded records a rate limit exceeded event
func (m *Metrics) RecordRateLimitExceeded(command string) {
	rateLimitExceeded.WithLabelValues(command).Inc()
}

// RecordStorageOperation records a storage operation
func (m *Metrics) RecordStorageOperation(operation, status string, duration time.Duration) {
	storageOperations.WithLabelValues(operation, status).Inc()
	storageOperationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// SetRegisteredUsers sets the number of known users
func (m *Metrics) SetRegisteredUsers(count int) {
	registeredUsers.Set(float64(count))
}

// NewMetricsRouter serves prometheus metrics on path and a liveness probe on /health
func NewMetricsRouter(path string) http.Handler {
	router := mux.NewRouter()
	router.Handle(path, promhttp.Handler()).Methods(http.MethodGet)

	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}).Methods(http.MethodGet)

	return router
}

// NewMetricsServer builds the metrics HTTP server; the caller runs ListenAndServe and Shutdown
func NewMetricsServer(port int, path string) *http.Server {
	return &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      NewMetricsRouter(path),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
}
