// Package redis provides a Redis-backed story store. Each story is a hash at
// "<prefix>:<id>"; "<prefix>:slug:<slug>" lists the ids carrying that slug in
// insertion order.
package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/JakeFAU/story-preview-gateway/internal/preview"
)

const (
	defaultPrefix     = "story"
	connectionTimeout = 5 * time.Second
)

var _ preview.Store = (*StoryStore)(nil)

// incrementScript bumps views only when the story hash exists, so a stale id
// never resurrects an empty hash.
var incrementScript = goredis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 1 then
	return redis.call("HINCRBY", KEYS[1], "views", ARGV[1])
end
return false
`)

// Config holds Redis connection configuration.
type Config struct {
	Address   string
	Password  string
	DB        int
	KeyPrefix string
}

// StoryStore reads story hashes from Redis.
type StoryStore struct {
	client goredis.UniversalClient
	prefix string
	owned  bool
}

// NewStoryStore dials Redis and verifies the connection.
func NewStoryStore(ctx context.Context, cfg Config) (*StoryStore, error) {
	if cfg.Address == "" {
		return nil, errors.New("redis address is required")
	}
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, connectionTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	s := NewStoryStoreWithClient(client, cfg.KeyPrefix)
	s.owned = true
	return s, nil
}

// NewStoryStoreWithClient wraps an existing client. The caller keeps ownership
// of the client; Close does not close it.
func NewStoryStoreWithClient(client goredis.UniversalClient, prefix string) *StoryStore {
	if prefix == "" {
		prefix = defaultPrefix
	}
	return &StoryStore{client: client, prefix: prefix}
}

func (s *StoryStore) storyKey(id string) string {
	return s.prefix + ":" + id
}

func (s *StoryStore) slugKey(slug string) string {
	return s.prefix + ":slug:" + slug
}

// Put writes a story hash and appends its id to the slug index unless it is
// already indexed there, so an update keeps the story's position.
func (s *StoryStore) Put(ctx context.Context, story preview.Story) error {
	if story.ID == "" {
		return errors.New("story id is required")
	}
	indexKey := s.slugKey(story.Slug)
	indexed := true
	if _, err := s.client.LPos(ctx, indexKey, story.ID, goredis.LPosArgs{}).Result(); err != nil {
		if !errors.Is(err, goredis.Nil) {
			return fmt.Errorf("read slug index %q: %w", story.Slug, err)
		}
		indexed = false
	}
	_, err := s.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.HSet(ctx, s.storyKey(story.ID), map[string]any{
			"id":       story.ID,
			"slug":     story.Slug,
			"status":   string(story.Status),
			"title":    story.Title,
			"excerpt":  story.Excerpt,
			"content":  story.Content,
			"coverUrl": story.CoverURL,
			"views":    story.Views,
		})
		if !indexed {
			pipe.RPush(ctx, indexKey, story.ID)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("put story %q: %w", story.ID, err)
	}
	return nil
}

// FindApprovedBySlug walks the slug index in order and returns the first
// approved story whose hash still carries the slug.
func (s *StoryStore) FindApprovedBySlug(ctx context.Context, slug string) (preview.Story, error) {
	ids, err := s.client.LRange(ctx, s.slugKey(slug), 0, -1).Result()
	if err != nil {
		return preview.Story{}, fmt.Errorf("read slug index %q: %w", slug, err)
	}
	if len(ids) == 0 {
		return preview.Story{}, preview.ErrNotFound
	}

	cmds := make([]*goredis.MapStringStringCmd, len(ids))
	_, err = s.client.Pipelined(ctx, func(pipe goredis.Pipeliner) error {
		for i, id := range ids {
			cmds[i] = pipe.HGetAll(ctx, s.storyKey(id))
		}
		return nil
	})
	if err != nil {
		return preview.Story{}, fmt.Errorf("read stories for slug %q: %w", slug, err)
	}

	for _, cmd := range cmds {
		fields := cmd.Val()
		if len(fields) == 0 || fields["slug"] != slug || fields["status"] != string(preview.StatusApproved) {
			continue
		}
		return storyFromHash(fields)
	}
	return preview.Story{}, preview.ErrNotFound
}

// IncrementViews runs HINCRBY on an existing story hash.
func (s *StoryStore) IncrementViews(ctx context.Context, id string, delta int64) error {
	err := incrementScript.Run(ctx, s.client, []string{s.storyKey(id)}, delta).Err()
	if errors.Is(err, goredis.Nil) {
		return fmt.Errorf("increment views for %q: %w", id, preview.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("increment views for %q: %w", id, err)
	}
	return nil
}

// Ping checks connectivity.
func (s *StoryStore) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}
	return nil
}

// Close closes the client when the store dialled it.
func (s *StoryStore) Close() error {
	if !s.owned {
		return nil
	}
	if err := s.client.Close(); err != nil {
		return fmt.Errorf("close redis: %w", err)
	}
	return nil
}

func storyFromHash(fields map[string]string) (preview.Story, error) {
	story := preview.Story{
		ID:       fields["id"],
		Slug:     fields["slug"],
		Status:   preview.StoryStatus(fields["status"]),
		Title:    fields["title"],
		Excerpt:  fields["excerpt"],
		Content:  fields["content"],
		CoverURL: fields["coverUrl"],
	}
	if raw := fields["views"]; raw != "" {
		views, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return preview.Story{}, fmt.Errorf("story %q has malformed views %q: %w", story.ID, raw, err)
		}
		story.Views = views
	}
	return story, nil
}
