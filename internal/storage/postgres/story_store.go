// Package postgres provides a Postgres-backed story store.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/JakeFAU/story-preview-gateway/internal/preview"
)

const defaultTable = "stories"

var (
	validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

	_ preview.Store = (*StoryStore)(nil)
)

// Config controls the Postgres connection pool used for story lookups.
type Config struct {
	DSN             string
	Table           string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

// pool is the subset of pgxpool.Pool the store needs.
type pool interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Ping(ctx context.Context) error
	Close()
}

// StoryStore reads stories from, and counts views into, a Postgres table with
// columns id, slug, status, title, excerpt, content, cover_url and views.
type StoryStore struct {
	pool   pool
	table  string
	tracer trace.Tracer
}

// NewStoryStore creates a Postgres-backed StoryStore using the provided config.
func NewStoryStore(ctx context.Context, cfg Config) (*StoryStore, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("db.dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	p, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	store, err := NewStoryStoreWithPool(p, cfg.Table)
	if err != nil {
		p.Close()
		return nil, err
	}
	return store, nil
}

// NewStoryStoreWithPool constructs a store from an existing pool (primarily for testing).
func NewStoryStoreWithPool(p pool, table string) (*StoryStore, error) {
	if p == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if table == "" {
		table = defaultTable
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	return &StoryStore{
		pool:   p,
		table:  table,
		tracer: otel.Tracer("github.com/JakeFAU/story-preview-gateway/internal/storage/postgres"),
	}, nil
}

// FindApprovedBySlug returns the approved story for slug, lowest id first when
// the slug is duplicated.
func (s *StoryStore) FindApprovedBySlug(ctx context.Context, slug string) (preview.Story, error) {
	ctx, span := s.tracer.Start(ctx, "postgres.FindApprovedBySlug",
		trace.WithAttributes(attribute.String("db.table", s.table)))
	defer span.End()

	query := fmt.Sprintf(`
SELECT
	id::text,
	slug,
	status,
	COALESCE(title, ''),
	COALESCE(excerpt, ''),
	COALESCE(content, ''),
	COALESCE(cover_url, ''),
	COALESCE(views, 0)
FROM %s
WHERE slug = $1 AND status = $2
ORDER BY id
LIMIT 1`, s.table)

	var (
		story  preview.Story
		status string
	)
	err := s.pool.QueryRow(ctx, query, slug, string(preview.StatusApproved)).Scan(
		&story.ID,
		&story.Slug,
		&status,
		&story.Title,
		&story.Excerpt,
		&story.Content,
		&story.CoverURL,
		&story.Views,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return preview.Story{}, preview.ErrNotFound
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "query failed")
		return preview.Story{}, fmt.Errorf("query story %q: %w", slug, err)
	}
	story.Status = preview.StoryStatus(status)
	return story, nil
}

// IncrementViews adds delta to the story's views column in a single statement.
func (s *StoryStore) IncrementViews(ctx context.Context, id string, delta int64) error {
	ctx, span := s.tracer.Start(ctx, "postgres.IncrementViews")
	defer span.End()

	query := fmt.Sprintf(`UPDATE %s SET views = COALESCE(views, 0) + $2 WHERE id::text = $1`, s.table)
	tag, err := s.pool.Exec(ctx, query, id, delta)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "update failed")
		return fmt.Errorf("increment views for %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("increment views for %q: %w", id, preview.ErrNotFound)
	}
	return nil
}

// Ping checks connectivity.
func (s *StoryStore) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return fmt.Errorf("ping postgres: %w", err)
	}
	return nil
}

// Close releases the underlying pool resources.
func (s *StoryStore) Close() error {
	if s == nil || s.pool == nil {
		return nil
	}
	s.pool.Close()
	return nil
}
