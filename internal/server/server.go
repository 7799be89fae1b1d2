// Package server hosts the GraphQL handler, adding health and metrics endpoints
// and the per-request logging, request ids, metrics and timeout.
package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// Pinger checks that a dependency (the database) is available
type Pinger interface {
	Ping(ctx context.Context) error
}

// Config controls the mux returned by New
type Config struct {
	Path     string        // path of the GraphQL endpoint, eg "/graphql"
	Timeout  time.Duration // maximum time for a GraphQL request (0 = no limit)
	Logger   zerolog.Logger
	Registry *prometheus.Registry // nil = a new registry
}

const timeoutMessage = `{"errors":[{"message":"request timed out"}]}`

// New returns a handler serving api at cfg.Path plus /healthz and /metrics
func New(api http.Handler, db Pinger, cfg *Config) http.Handler {
	if cfg.Path == "" {
		cfg.Path = "/graphql"
	}
	reg := cfg.Registry
	if reg == nil {
		reg = prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	m := newMetrics(reg)

	if cfg.Timeout > 0 {
		api = http.TimeoutHandler(api, cfg.Timeout, timeoutMessage)
	}

	mux := http.NewServeMux()
	mux.Handle(cfg.Path, api)
	mux.Handle("/healthz", healthHandler(db))
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{EnableOpenMetrics: true}))

	return requestID(logRequests(cfg.Logger, m.instrument(mux)))
}

func healthHandler(db Pinger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if db != nil {
			if err := db.Ping(ctx); err != nil {
				zerolog.Ctx(r.Context()).Warn().Err(err).Msg("health check failed")
				http.Error(w, "database unavailable", http.StatusServiceUnavailable)
				return
			}
		}
		_, _ = w.Write([]byte("OK"))
	})
}

// Serve handles requests on ln until ctx is cancelled, then shuts down gracefully
func Serve(ctx context.Context, ln net.Listener, h http.Handler, log zerolog.Logger) error {
	srv := &http.Server{
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		errc <- srv.Serve(ln)
	}()
	log.Info().Str("addr", ln.Addr().String()).Msg("listening")

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Run listens on addr and calls Serve
func Run(ctx context.Context, addr string, h http.Handler, log zerolog.Logger) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return Serve(ctx, ln, h, log)
}
