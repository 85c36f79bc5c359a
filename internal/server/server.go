// Package server exposes the search service over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lepinkainen/novelseek/internal/aggregate"
	"github.com/lepinkainen/novelseek/internal/book"
	srcerrors "github.com/lepinkainen/novelseek/internal/errors"
	"github.com/lepinkainen/novelseek/internal/metrics"
)

// Error codes returned in ErrorResponse.Code.
const (
	CodeBadRequest      = "bad_request"
	CodeNoResults       = "no_results"
	CodeNoMorePages     = "no_more_pages"
	CodeFirstPage       = "first_page"
	CodeIndexOutOfRange = "index_out_of_range"
	CodeSessionExpired  = "session_expired"
	CodeUnknownPlatform = "unknown_platform"
	CodeBookNotFound    = "book_not_found"
	CodeUnavailable     = "platform_unavailable"
	CodeNoSources       = "sources_unavailable"
	CodeUpstream        = "upstream_error"
	CodeTimeout         = "timeout"
	CodeInternal        = "internal_error"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// DetailResponse pairs a resolved candidate with its platform details.
type DetailResponse struct {
	Item    *book.Candidate `json:"item"`
	Details *book.Details   `json:"details"`
}

// PlatformInfo describes one enabled platform.
type PlatformInfo struct {
	Name        string  `json:"name"`
	DisplayName string  `json:"display_name"`
	Priority    string  `json:"priority"`
	PageSize    int     `json:"page_size"`
	Weight      float64 `json:"weight,omitempty"`
}

// errorHandler tries to handle a service error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error) bool

// Server serves the search service.
type Server struct {
	svc           *aggregate.Service
	errorHandlers []errorHandler
}

// New creates a Server for svc.
func New(svc *aggregate.Service) *Server {
	s := &Server{svc: svc}
	s.errorHandlers = []errorHandler{
		sentinelHandler(aggregate.ErrEmptyKeyword, http.StatusBadRequest, CodeBadRequest),
		sentinelHandler(aggregate.ErrFirstPage, http.StatusNotFound, CodeFirstPage),
		typeHandler(aggregate.IsNoResults, http.StatusNotFound, CodeNoResults),
		typeHandler(aggregate.IsSourcesUnavailable, http.StatusServiceUnavailable, CodeNoSources),
		typeHandler(aggregate.IsNoMorePages, http.StatusNotFound, CodeNoMorePages),
		typeHandler(aggregate.IsIndexOutOfRange, http.StatusNotFound, CodeIndexOutOfRange),
		typeHandler(aggregate.IsSessionExpired, http.StatusGone, CodeSessionExpired),
		typeHandler(aggregate.IsUnknownPlatform, http.StatusBadRequest, CodeUnknownPlatform),
		sentinelHandler(book.ErrBookNotFound, http.StatusNotFound, CodeBookNotFound),
		sentinelHandler(book.ErrInvalidURL, http.StatusBadRequest, CodeBadRequest),
		sentinelHandler(book.ErrAPIUnavailable, http.StatusServiceUnavailable, CodeUnavailable),
		sentinelHandler(context.DeadlineExceeded, http.StatusGatewayTimeout, CodeTimeout),
		typeHandler(srcerrors.IsSourceError, http.StatusBadGateway, CodeUpstream),
	}
	return s
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	metrics.Register()

	r := chi.NewRouter()
	r.Use(jsonRecoverer)
	r.Use(chiMiddleware.RequestID)
	r.Use(requestLogger)
	r.Use(metrics.Middleware())

	r.Get("/healthz", s.health)
	r.Handle("/metrics", promhttp.Handler())

	r.Get("/platforms", s.platforms)
	r.Get("/search", s.search)
	r.Get("/next", s.next)
	r.Get("/prev", s.prev)
	r.Get("/page", s.goTo)
	r.Get("/detail", s.detail)
	r.Delete("/session/{user}", s.reset)
	return r
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      2 * time.Minute,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	slog.Info("Shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown: %w", err)
	}
	return nil
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) platforms(w http.ResponseWriter, _ *http.Request) {
	platforms := s.svc.Aggregator().Platforms()
	out := make([]PlatformInfo, len(platforms))
	for i, p := range platforms {
		out[i] = PlatformInfo{
			Name:        p.Name(),
			DisplayName: p.Source.DisplayName(),
			Priority:    p.Priority,
			PageSize:    p.Source.PageSize(),
			Weight:      p.Weight,
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	user, ok := requireUser(w, r)
	if !ok {
		return
	}
	page, ok := intParam(w, r, "page", 1)
	if !ok {
		return
	}

	var (
		res *aggregate.Result
		err error
	)
	if platform := strings.ToLower(strings.TrimSpace(q.Get("platform"))); platform != "" {
		res, err = s.svc.Browse(r.Context(), user, platform, q.Get("q"), page)
	} else {
		res, err = s.svc.Search(r.Context(), user, q.Get("q"), page)
	}
	s.respond(w, res, err)
}

func (s *Server) next(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}
	res, err := s.svc.Next(r.Context(), user)
	s.respond(w, res, err)
}

func (s *Server) prev(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}
	res, err := s.svc.Prev(r.Context(), user)
	s.respond(w, res, err)
}

func (s *Server) goTo(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}
	page, ok := intParam(w, r, "n", 0)
	if !ok {
		return
	}
	if page == 0 {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "query parameter n is required")
		return
	}
	res, err := s.svc.GoTo(r.Context(), user, page)
	s.respond(w, res, err)
}

func (s *Server) detail(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}
	n, ok := intParam(w, r, "n", 0)
	if !ok {
		return
	}

	c, err := s.svc.DetailByIndex(r.Context(), user, n)
	if err != nil {
		s.handleError(w, err)
		return
	}
	details, err := s.svc.Details(r.Context(), c)
	if err != nil {
		s.handleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, DetailResponse{Item: c, Details: details})
}

func (s *Server) reset(w http.ResponseWriter, r *http.Request) {
	s.svc.Reset(chi.URLParam(r, "user"))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) respond(w http.ResponseWriter, res *aggregate.Result, err error) {
	if err != nil {
		s.handleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleError(w http.ResponseWriter, err error) {
	for _, h := range s.errorHandlers {
		if h(w, err) {
			return
		}
	}
	slog.Error("Unhandled service error", "error", err)
	writeError(w, http.StatusInternalServerError, CodeInternal, "internal server error")
}

func sentinelHandler(target error, status int, code string) errorHandler {
	return func(w http.ResponseWriter, err error) bool {
		if !errors.Is(err, target) {
			return false
		}
		writeError(w, status, code, err.Error())
		return true
	}
}

func typeHandler(match func(error) bool, status int, code string) errorHandler {
	return func(w http.ResponseWriter, err error) bool {
		if !match(err) {
			return false
		}
		writeError(w, status, code, err.Error())
		return true
	}
}

func requireUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	user := strings.TrimSpace(r.URL.Query().Get("user"))
	if user == "" {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "query parameter user is required")
		return "", false
	}
	return user, true
}

func intParam(w http.ResponseWriter, r *http.Request, name string, fallback int) (int, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, fmt.Sprintf("query parameter %s must be an integer", name))
		return 0, false
	}
	return n, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Debug("Failed to write response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, ErrorResponse{Code: code, Message: msg})
}

// jsonRecoverer returns JSON instead of a plain text stacktrace on panic.
func jsonRecoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rvr := recover(); rvr != nil {
				slog.Error("Panic recovered",
					"panic", rvr,
					"path", r.URL.Path,
					"stack", string(debug.Stack()))
				writeError(w, http.StatusInternalServerError, CodeInternal, "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		slog.Debug("HTTP request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", chiMiddleware.GetReqID(r.Context()))
	})
}
