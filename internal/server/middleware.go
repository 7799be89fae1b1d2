package server

// middleware.go wraps the mux with request ids, logging and metrics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

// RequestIDHeader is read from the request (if present) and always set on the response
const RequestIDHeader = "X-Request-Id"

type requestIDKey struct{}

func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id)))
	})
}

// statusRecorder remembers the status code written by a handler
type statusRecorder struct {
	http.ResponseWriter
	status int
	size   int
}

func (s *statusRecorder) WriteHeader(status int) {
	if s.status == 0 {
		s.status = status
	}
	s.ResponseWriter.WriteHeader(status)
}

func (s *statusRecorder) Write(b []byte) (int, error) {
	if s.status == 0 {
		s.status = http.StatusOK
	}
	n, err := s.ResponseWriter.Write(b)
	s.size += n
	return n, err
}

func (s *statusRecorder) code() int {
	if s.status == 0 {
		return http.StatusOK
	}
	return s.status
}

// logRequests attaches a logger with the request id to the request context (see zerolog.Ctx)
// and logs each request when it completes
func logRequests(log zerolog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		id, _ := r.Context().Value(requestIDKey{}).(string)
		l := log.With().Str("request_id", id).Logger()

		rec := &statusRecorder{ResponseWriter: w}
		next.ServeHTTP(rec, r.WithContext(l.WithContext(r.Context())))

		level := zerolog.InfoLevel
		if rec.code() >= http.StatusInternalServerError {
			level = zerolog.WarnLevel
		}
		l.WithLevel(level).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.code()).
			Int("size", rec.size).
			Dur("duration", time.Since(start)).
			Msg("request")
	})
}

type metrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	inFlight prometheus.Gauge
}

func newMetrics(reg prometheus.Registerer) *metrics {
	m := &metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hackernews",
			Name:      "http_requests_total",
			Help:      "HTTP requests by path, method and status code",
		}, []string{"path", "method", "code"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "hackernews",
			Name:      "http_request_duration_seconds",
			Help:      "Time taken to handle HTTP requests",
			Buckets:   prometheus.DefBuckets,
		}, []string{"path"}),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "hackernews",
			Name:      "http_requests_in_flight",
			Help:      "HTTP requests currently being handled",
		}),
	}
	reg.MustRegister(m.requests, m.duration, m.inFlight)
	return m
}

// instrument records the metrics for requests handled by mux. Unknown paths are counted
// together so that the number of label values is bounded.
func (m *metrics) instrument(mux *http.ServeMux) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.inFlight.Inc()
		defer m.inFlight.Dec()
		start := time.Now()

		path := "other"
		if _, pattern := mux.Handler(r); pattern != "" {
			path = pattern
		}
		rec := &statusRecorder{ResponseWriter: w}
		mux.ServeHTTP(rec, r)

		m.requests.WithLabelValues(path, r.Method, strconv.Itoa(rec.code())).Inc()
		m.duration.WithLabelValues(path).Observe(time.Since(start).Seconds())
	})
}
