package httpapi

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	apperrors "github.com/louisbranch/taskmanager/internal/platform/errors"
)

const tracerName = "github.com/louisbranch/taskmanager/internal/services/taskmanager/api/http"

// unmatchedRoute labels requests no pattern matched, keeping label
// cardinality bounded.
const unmatchedRoute = "unmatched"

const catchAllPattern = "/"

// statusRecorder captures the response status for logs, metrics, and spans.
type statusRecorder struct {
	http.ResponseWriter
	status int
	wrote  bool
}

func newStatusRecorder(w http.ResponseWriter) *statusRecorder {
	if existing, ok := w.(*statusRecorder); ok {
		return existing
	}
	return &statusRecorder{ResponseWriter: w, status: http.StatusOK}
}

func (rw *statusRecorder) WriteHeader(code int) {
	if !rw.wrote {
		rw.status = code
		rw.wrote = true
	}
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *statusRecorder) Write(b []byte) (int, error) {
	rw.wrote = true
	return rw.ResponseWriter.Write(b)
}

func (rw *statusRecorder) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// routeOf returns the matched mux pattern. The mux sets it on the request it
// receives, so callers must pass that same request down. The catch-all
// pattern reports as unmatched.
func routeOf(r *http.Request) string {
	if r.Pattern == "" || r.Pattern == catchAllPattern {
		return unmatchedRoute
	}
	return r.Pattern
}

// traceRequests starts a server span per request, continuing any propagated
// parent.
func traceRequests(next http.Handler) http.Handler {
	tracer := otel.Tracer(tracerName)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))
		ctx, span := tracer.Start(ctx, "HTTP "+r.Method,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("http.request.method", r.Method),
				attribute.String("url.path", r.URL.Path),
			),
		)
		defer span.End()

		recorder := newStatusRecorder(w)
		traced := r.WithContext(ctx)
		next.ServeHTTP(recorder, traced)

		route := routeOf(traced)
		span.SetName(route)
		span.SetAttributes(
			attribute.String("http.route", route),
			attribute.Int("http.response.status_code", recorder.status),
		)
		if recorder.status >= http.StatusInternalServerError {
			span.SetStatus(codes.Error, http.StatusText(recorder.status))
		}
	})
}

// logRequests writes one structured entry per completed request.
func logRequests(logger logrus.FieldLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			recorder := newStatusRecorder(w)
			next.ServeHTTP(recorder, r)

			fields := logrus.Fields{
				"method":      r.Method,
				"route":       routeOf(r),
				"path":        r.URL.Path,
				"status":      recorder.status,
				"duration_ms": time.Since(start).Milliseconds(),
				"remote_ip":   r.RemoteAddr,
			}
			if spanContext := trace.SpanContextFromContext(r.Context()); spanContext.HasTraceID() {
				fields["trace_id"] = spanContext.TraceID().String()
			}
			logger.WithFields(fields).Info("request completed")
		})
	}
}

// recoverPanics turns a handler panic into a 500 envelope.
func recoverPanics(logger logrus.FieldLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				recovered := recover()
				if recovered == nil {
					return
				}
				if recovered == http.ErrAbortHandler {
					panic(recovered)
				}
				err := apperrors.Wrap(apperrors.CodeInternal, "handler panic", fmt.Errorf("%v", recovered))
				writeError(w, logger, r, err)
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// Metrics holds the HTTP request collectors.
type Metrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	inFlight prometheus.Gauge
}

// NewMetrics builds request metrics and registers them on reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	metrics := &Metrics{
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "taskmanager_http_requests_total",
				Help: "Total number of HTTP requests.",
			},
			[]string{"method", "route", "status"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "taskmanager_http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds.",
				Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.3, 1, 3},
			},
			[]string{"method", "route"},
		),
		inFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "taskmanager_http_in_flight_requests",
				Help: "Current number of in-flight HTTP requests.",
			},
		),
	}
	if reg != nil {
		for _, collector := range []prometheus.Collector{metrics.requests, metrics.duration, metrics.inFlight} {
			if err := reg.Register(collector); err != nil {
				return nil, fmt.Errorf("register http metrics: %w", err)
			}
		}
	}
	return metrics, nil
}

// Middleware records count, duration, and in-flight gauge per request.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.inFlight.Inc()
		defer m.inFlight.Dec()

		start := time.Now()
		recorder := newStatusRecorder(w)
		next.ServeHTTP(recorder, r)

		route := routeOf(r)
		m.requests.WithLabelValues(r.Method, route, strconv.Itoa(recorder.status)).Inc()
		m.duration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}
