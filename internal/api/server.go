package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/JakeFAU/story-preview-gateway/internal/hash/sha256"
	"github.com/JakeFAU/story-preview-gateway/internal/metrics"
	"github.com/JakeFAU/story-preview-gateway/internal/middleware"
	"github.com/JakeFAU/story-preview-gateway/internal/policy/ratelimit"
	"github.com/JakeFAU/story-preview-gateway/internal/preview"
)

const (
	defaultRequestTimeout = 15 * time.Second
	readinessTimeout      = 2 * time.Second

	bodyMissingSlug   = "Missing slug"
	bodyInvalidSlug   = "Invalid slug"
	bodyNotFound      = "Story not found"
	bodyInternalError = "Internal Server Error"
)

// Resolver answers preview requests.
type Resolver interface {
	Resolve(ctx context.Context, req preview.Request) preview.Outcome
}

// Classifier decides whether a user agent is a link-preview crawler.
type Classifier interface {
	Classify(userAgent string) bool
}

// Pinger reports whether a downstream dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Options tunes the Server. Zero values fall back to defaults.
type Options struct {
	Logger         *zap.Logger
	RequestTimeout time.Duration
	// Limiter, when set, rate limits the preview routes per client IP.
	Limiter *ratelimit.Limiter
}

// Server wires HTTP handlers to the preview resolver.
type Server struct {
	router     chi.Router
	resolver   Resolver
	classifier Classifier
	ready      Pinger
	hasher     sha256.Hasher
	logger     *zap.Logger
}

// NewServer constructs a Server with middleware and routes.
func NewServer(resolver Resolver, classifier Classifier, ready Pinger, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := opts.RequestTimeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	metrics.Init()

	s := &Server{
		resolver:   resolver,
		classifier: classifier,
		ready:      ready,
		hasher:     sha256.New(),
		logger:     logger,
	}
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(logger))
	r.Use(recoverMiddleware(logger))
	r.Use(middleware.Metrics)

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Handle("/metrics", metrics.Handler())

	r.Group(func(r chi.Router) {
		r.Use(timeoutMiddleware(timeout))
		if opts.Limiter != nil {
			r.Use(middleware.RateLimit(opts.Limiter))
		}
		r.Get("/api/story", s.story)
		r.Get("/api/story-meta", s.story)
	})

	s.router = r
	return s
}

// Handler returns the Router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()
		if err := s.ready.Ping(ctx); err != nil {
			s.logger.Warn("readiness check failed", zap.Error(err))
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) story(w http.ResponseWriter, r *http.Request) {
	// The two variants of this URL differ by caller.
	w.Header().Set("Vary", "User-Agent")

	req := preview.Request{
		Slug:    r.URL.Query().Get("slug"),
		Crawler: s.classifier.Classify(r.UserAgent()),
	}
	out := s.resolver.Resolve(r.Context(), req)

	switch out.Kind {
	case preview.OutcomeRedirect:
		http.Redirect(w, r, out.Location, http.StatusFound)
	case preview.OutcomeRendered:
		etag := s.hasher.ETag(out.HTML)
		w.Header().Set("ETag", etag)
		if etagMatches(r.Header.Get("If-None-Match"), etag) {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write(out.HTML); err != nil {
			s.logger.Debug("write preview failed", zap.String("request_id", RequestIDFromContext(r.Context())), zap.Error(err))
		}
	case preview.OutcomeNotFound:
		writeText(w, http.StatusNotFound, bodyNotFound)
	case preview.OutcomeInvalidRequest:
		if errors.Is(out.Err, preview.ErrMissingSlug) {
			writeText(w, http.StatusBadRequest, bodyMissingSlug)
			return
		}
		writeText(w, http.StatusBadRequest, bodyInvalidSlug)
	default:
		s.logger.Error("preview failed",
			zap.String("request_id", RequestIDFromContext(r.Context())),
			zap.String("slug", req.Slug),
			zap.Bool("crawler", req.Crawler),
			zap.Error(out.Err),
		)
		writeText(w, http.StatusInternalServerError, bodyInternalError)
	}
}

// etagMatches implements the weak comparison If-None-Match asks for.
func etagMatches(header, etag string) bool {
	for _, candidate := range strings.Split(header, ",") {
		candidate = strings.TrimPrefix(strings.TrimSpace(candidate), "W/")
		if candidate == "*" || candidate == etag {
			return true
		}
	}
	return false
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeText(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(msg))
}
