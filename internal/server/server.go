// Package server exposes a dataset over HTTP. Query string parameters of
// GET /hosts/{host} are the filter parameters.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/ivked85/filterman/internal/dataset"
	"github.com/ivked85/filterman/internal/filter"
	"github.com/ivked85/filterman/internal/logging"
	"github.com/ivked85/filterman/internal/metrics"
)

// RequestIDHeader carries the per-request id.
const RequestIDHeader = "X-Request-Id"

// DefaultShutdownTimeout bounds graceful shutdown.
const DefaultShutdownTimeout = 5 * time.Second

// Server serves a dataset over HTTP.
type Server struct {
	addr            string
	data            dataset.Dataset
	gatherer        prometheus.Gatherer
	logger          *slog.Logger
	shutdownTimeout time.Duration
}

// Option configures a Server.
type Option func(*Server)

// WithGatherer exposes the metrics of g on /metrics.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) { s.gatherer = g }
}

// WithLogger sets the server logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithShutdownTimeout overrides DefaultShutdownTimeout.
func WithShutdownTimeout(d time.Duration) Option {
	return func(s *Server) { s.shutdownTimeout = d }
}

// New creates a server for data listening on addr.
func New(addr string, data dataset.Dataset, opts ...Option) *Server {
	s := &Server{
		addr:            addr,
		data:            data,
		gatherer:        prometheus.DefaultGatherer,
		logger:          slog.Default(),
		shutdownTimeout: DefaultShutdownTimeout,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Handler returns the routed handler wrapped in the request id middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /hosts", s.listHosts)
	mux.HandleFunc("GET /hosts/{host}", s.applyHost)
	mux.HandleFunc("GET /hosts/{host}/explain", s.explainHost)
	mux.HandleFunc("GET /healthz", s.healthz)
	mux.Handle("GET /metrics", metrics.Handler(s.gatherer))

	return s.withRequestID(mux)
}

// Run listens on the configured address until ctx is cancelled, then shuts
// down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}

	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.logger.Info("serving", slog.String("addr", ln.Addr().String()))

		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}

		return nil
	})

	g.Go(func() error {
		<-gctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.shutdownTimeout)
		defer cancel()

		s.logger.Info("shutting down")

		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func (s *Server) withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}

		w.Header().Set(RequestIDHeader, id)

		ctx, logger := logging.With(logging.NewContext(r.Context(), s.logger), slog.String("request_id", id))
		start := time.Now()

		next.ServeHTTP(w, r.WithContext(ctx))

		logger.Debug("request served",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Duration("duration", time.Since(start)),
		)
	})
}

type hostResponse struct {
	Host    string           `json:"host"`
	Total   int              `json:"total"`
	Count   int              `json:"count"`
	Records []map[string]any `json:"records"`
}

type explainResponse struct {
	Host  string         `json:"host"`
	Steps []dataset.Step `json:"steps"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) listHosts(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{"hosts": s.data.Hosts()})
}

func (s *Server) applyHost(w http.ResponseWriter, r *http.Request) {
	host := r.PathValue("host")

	res, err := s.data.Apply(r.Context(), host, filter.URLParams(r.URL.Query()))
	if err != nil {
		s.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, hostResponse{
		Host:    res.Host,
		Total:   res.Total,
		Count:   res.Records.Len(),
		Records: res.Records.Maps(),
	})
}

func (s *Server) explainHost(w http.ResponseWriter, r *http.Request) {
	host := r.PathValue("host")

	steps, err := s.data.Explain(r.Context(), host, filter.URLParams(r.URL.Query()))
	if err != nil {
		s.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, explainResponse{Host: host, Steps: steps})
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// fail maps err to a status code. Unknown hosts are 404, store failures
// 500, and anything else is a filter error caused by the parameters.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusBadRequest

	switch {
	case errors.Is(err, dataset.ErrUnknownHost):
		status = http.StatusNotFound
	case errors.Is(err, dataset.ErrBackend):
		status = http.StatusInternalServerError
	}

	logging.FromContext(r.Context()).Warn("request failed",
		slog.String("path", r.URL.Path),
		slog.Int("status", status),
		slog.String("error", err.Error()),
	)

	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	_ = json.NewEncoder(w).Encode(v)
}
