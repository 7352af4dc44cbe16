package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "bookreader",
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bookreader",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "bookreader",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "path"},
	)

	// Translations counts translate calls by provider and result source.
	Translations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bookreader",
			Subsystem: "translate",
			Name:      "requests_total",
			Help:      "Total number of translation requests.",
		},
		[]string{"service", "source"}, // source: cache|database|provider|error
	)

	translationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "bookreader",
			Subsystem: "translate",
			Name:      "provider_duration_seconds",
			Help:      "Duration of provider translation calls.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 10),
		},
		[]string{"service"},
	)

	// FlashcardReviews counts submitted answers by quality (1-4).
	FlashcardReviews = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bookreader",
			Subsystem: "flashcards",
			Name:      "reviews_total",
			Help:      "Total number of flashcard answers submitted.",
		},
		[]string{"quality"},
	)

	// DueCards tracks the number of cards currently waiting for review.
	DueCards = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "bookreader",
			Subsystem: "flashcards",
			Name:      "due_cards",
			Help:      "Cards currently due for review across all users.",
		},
	)

	chatCompletions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bookreader",
			Subsystem: "chat",
			Name:      "completions_total",
			Help:      "Total number of AI teacher completions.",
		},
		[]string{"status"},
	)
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		Translations,
		translationDuration,
		FlashcardReviews,
		DueCards,
		chatCompletions,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// InstrumentHandler wraps the provided handler with HTTP metrics collection.
func InstrumentHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		httpInFlight.Inc()
		defer httpInFlight.Dec()

		next.ServeHTTP(rec, r)

		duration := time.Since(start)
		path := canonicalPath(r.URL.Path)
		method := strings.ToUpper(r.Method)

		httpRequests.WithLabelValues(method, path, strconv.Itoa(rec.status)).Inc()
		httpDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	})
}

// RecordTranslation records one translate call and where its answer came from.
func RecordTranslation(service, source string, duration time.Duration) {
	Translations.WithLabelValues(service, source).Inc()
	if source == "provider" {
		if duration <= 0 {
			duration = time.Millisecond
		}
		translationDuration.WithLabelValues(service).Observe(duration.Seconds())
	}
}

// RecordChatCompletion records an AI teacher completion attempt.
func RecordChatCompletion(success bool) {
	status := "error"
	if success {
		status = "ok"
	}
	chatCompletions.WithLabelValues(status).Inc()
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.ResponseWriter.Write(b)
}

// canonicalPath collapses resource IDs so the path label stays low-cardinality.
func canonicalPath(raw string) string {
	trimmed := strings.Trim(raw, "/")
	if trimmed == "" {
		return "/"
	}
	parts := strings.Split(trimmed, "/")
	if parts[0] != "api" {
		return "/" + parts[0]
	}
	if len(parts) == 1 {
		return "/api"
	}
	// /api/books/{uuid}/chapters -> /api/books/:id/chapters
	for i := 2; i < len(parts); i++ {
		if looksLikeID(parts[i]) {
			parts[i] = ":id"
		}
	}
	return "/" + strings.Join(parts, "/")
}

func looksLikeID(segment string) bool {
	if len(segment) < 16 {
		return false
	}
	for _, r := range segment {
		switch {
		case r >= '0' && r <= '9', r >= 'a' && r <= 'f', r >= 'A' && r <= 'F', r == '-':
		default:
			return false
		}
	}
	return true
}
