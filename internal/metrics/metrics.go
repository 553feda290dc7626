package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP metrics
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "leafletmap",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total HTTP requests processed",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "leafletmap",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency in seconds",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	}, []string{"method", "path"})

	// Map pipeline metrics
	FeaturesNormalized = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "leafletmap",
		Subsystem: "render",
		Name:      "features_normalized_total",
		Help:      "Features produced by the normalizer",
	}, []string{"kind"})

	RecordsSkipped = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "leafletmap",
		Subsystem: "render",
		Name:      "records_skipped_total",
		Help:      "Records dropped because their type is unknown",
	}, []string{"type"})

	MapsAssembled = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "leafletmap",
		Subsystem: "render",
		Name:      "maps_assembled_total",
		Help:      "Assemble calls, by whether a new view was bound",
	}, []string{"result"})

	AssembleDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "leafletmap",
		Subsystem: "render",
		Name:      "assemble_duration_seconds",
		Help:      "Time spent building a map view",
		Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
	})

	EmptyBounds = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "leafletmap",
		Subsystem: "render",
		Name:      "empty_bounds_total",
		Help:      "Maps left at the default view because nothing could be fitted",
	})

	RegistryErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "leafletmap",
		Subsystem: "registry",
		Name:      "errors_total",
		Help:      "View registry backend errors",
	}, []string{"operation"})

	ActiveStreams = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "leafletmap",
		Subsystem: "sse",
		Name:      "active_streams",
		Help:      "Open editor SSE streams",
	})
)

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Flush keeps SSE responses streaming through the recorder.
func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (r *statusRecorder) Unwrap() http.ResponseWriter { return r.ResponseWriter }

// Middleware records request metrics. Paths are labelled by the matched
// ServeMux pattern to keep cardinality low.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		path := r.Pattern
		if path == "" {
			path = "unmatched"
		}
		httpRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(rec.status)).Inc()
		httpRequestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
	})
}

// Handler serves the Prometheus /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
