package preview

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	maxSlugBytes            = 256
	defaultIncrementTimeout = 2 * time.Second
	tracerName              = "github.com/JakeFAU/story-preview-gateway/internal/preview"
)

// Config controls the Resolver.
//   - Site: base URL, site name, and fallbacks used for derived fields.
//   - IncrementTimeout: upper bound for the view increment (default 2s).
//   - AsyncIncrement: run the increment off the request path; Wait drains it.
//   - Topic: view-event topic; events are skipped when Topic or the Publisher is empty.
type Config struct {
	Site             SiteConfig
	IncrementTimeout time.Duration
	AsyncIncrement   bool
	Topic            string
}

// Resolver turns a slug into an Outcome.
type Resolver struct {
	cfg       Config
	store     Store
	publisher Publisher
	clock     Clock
	ids       IDGenerator
	recorder  Recorder
	logger    *zap.Logger
	tracer    trace.Tracer

	inflight sync.WaitGroup
}

// Option customises a Resolver.
type Option func(*Resolver)

// WithPublisher enables view events.
func WithPublisher(p Publisher, ids IDGenerator, clock Clock) Option {
	return func(r *Resolver) {
		r.publisher = p
		r.ids = ids
		r.clock = clock
	}
}

// WithRecorder attaches a metrics recorder.
func WithRecorder(rec Recorder) Option {
	return func(r *Resolver) {
		r.recorder = rec
	}
}

// WithLogger sets the logger used for side-channel failures.
func WithLogger(logger *zap.Logger) Option {
	return func(r *Resolver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewResolver builds a Resolver over store.
func NewResolver(store Store, cfg Config, opts ...Option) (*Resolver, error) {
	if store == nil {
		return nil, errors.New("store is required")
	}
	if strings.TrimSpace(cfg.Site.BaseURL) == "" {
		return nil, errors.New("site base url is required")
	}
	if cfg.IncrementTimeout <= 0 {
		cfg.IncrementTimeout = defaultIncrementTimeout
	}
	r := &Resolver{
		cfg:      cfg,
		store:    store,
		recorder: nopRecorder{},
		logger:   zap.NewNop(),
		tracer:   otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Resolve looks up the approved story for req.Slug, counts the view, and
// returns a redirect for humans or a rendered document for crawlers.
func (r *Resolver) Resolve(ctx context.Context, req Request) Outcome {
	ctx, span := r.tracer.Start(ctx, "preview.Resolve", trace.WithAttributes(
		attribute.String("preview.slug", req.Slug),
		attribute.Bool("preview.crawler", req.Crawler),
	))
	defer span.End()

	out := r.resolve(ctx, req)
	span.SetAttributes(attribute.String("preview.outcome", out.Kind.String()))
	if out.Kind == OutcomeInternalFailure {
		span.RecordError(out.Err)
		span.SetStatus(codes.Error, "preview failed")
	}
	r.recorder.ObserveOutcome(AudienceOf(req.Crawler), out.Kind)
	return out
}

func (r *Resolver) resolve(ctx context.Context, req Request) Outcome {
	if err := ValidateSlug(req.Slug); err != nil {
		return Outcome{Kind: OutcomeInvalidRequest, Err: err}
	}

	start := time.Now()
	story, err := r.store.FindApprovedBySlug(ctx, req.Slug)
	r.recorder.ObserveLookup(time.Since(start), ignoreNotFound(err))
	switch {
	case errors.Is(err, ErrNotFound):
		return Outcome{Kind: OutcomeNotFound}
	case err != nil:
		return Outcome{Kind: OutcomeInternalFailure, Err: fmt.Errorf("find story: %w", err)}
	}

	rc := RenderContext{
		Slug:         req.Slug,
		IsCrawler:    req.Crawler,
		Record:       &story,
		CanonicalURL: CanonicalURL(r.cfg.Site.BaseURL, req.Slug),
	}
	r.countView(ctx, rc)

	if !rc.IsCrawler {
		return Outcome{Kind: OutcomeRedirect, Location: rc.CanonicalURL}
	}
	html, err := Render(Describe(*rc.Record, r.cfg.Site, rc.Slug))
	if err != nil {
		return Outcome{Kind: OutcomeInternalFailure, Err: err}
	}
	return Outcome{Kind: OutcomeRendered, HTML: html}
}

// Wait blocks until asynchronous increments finish or ctx ends.
func (r *Resolver) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		r.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("wait for view increments: %w", ctx.Err())
	}
}

// countView issues the increment on a context detached from the caller so a
// dropped connection does not cancel it.
func (r *Resolver) countView(ctx context.Context, rc RenderContext) {
	detached := context.WithoutCancel(ctx)
	if !r.cfg.AsyncIncrement {
		r.incrementAndPublish(detached, rc)
		return
	}
	r.inflight.Add(1)
	go func() {
		defer r.inflight.Done()
		r.incrementAndPublish(detached, rc)
	}()
}

func (r *Resolver) incrementAndPublish(ctx context.Context, rc RenderContext) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.IncrementTimeout)
	defer cancel()

	id := rc.Record.ID
	err := r.store.IncrementViews(ctx, id, 1)
	r.recorder.ObserveIncrement(err)
	if err != nil {
		r.logger.Warn("view increment failed",
			zap.String("story_id", id),
			zap.String("slug", rc.Slug),
			zap.Error(err),
		)
		return
	}
	r.publishView(ctx, rc)
}

func (r *Resolver) publishView(ctx context.Context, rc RenderContext) {
	if r.publisher == nil || r.cfg.Topic == "" {
		return
	}
	evt := ViewEvent{
		StoryID:  rc.Record.ID,
		Slug:     rc.Slug,
		Audience: AudienceOf(rc.IsCrawler),
		ServedAt: time.Now().UTC(),
	}
	if r.clock != nil {
		evt.ServedAt = r.clock.Now()
	}
	if r.ids != nil {
		id, err := r.ids.NewID()
		if err != nil {
			r.logger.Warn("view event id failed", zap.Error(err))
			return
		}
		evt.ID = id
	}
	if _, err := r.publisher.Publish(ctx, r.cfg.Topic, evt); err != nil {
		r.logger.Warn("view event publish failed",
			zap.String("story_id", evt.StoryID),
			zap.String("topic", r.cfg.Topic),
			zap.Error(err),
		)
	}
}

// ValidateSlug rejects empty slugs and values that cannot be a story key.
func ValidateSlug(slug string) error {
	if strings.TrimSpace(slug) == "" {
		return ErrMissingSlug
	}
	if len(slug) > maxSlugBytes {
		return fmt.Errorf("%w: longer than %d bytes", ErrInvalidSlug, maxSlugBytes)
	}
	for _, ch := range slug {
		if ch == '/' || unicode.IsControl(ch) {
			return fmt.Errorf("%w: contains %q", ErrInvalidSlug, ch)
		}
	}
	return nil
}

func ignoreNotFound(err error) error {
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	return err
}

type nopRecorder struct{}

func (nopRecorder) ObserveOutcome(Audience, OutcomeKind) {}
func (nopRecorder) ObserveIncrement(error)               {}
func (nopRecorder) ObserveLookup(time.Duration, error)   {}
