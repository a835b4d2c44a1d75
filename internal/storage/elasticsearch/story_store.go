// Package elasticsearch provides an Elasticsearch-backed story store. The
// index is expected to map slug and status as keyword fields.
package elasticsearch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	es "github.com/elastic/go-elasticsearch/v8"

	"github.com/JakeFAU/story-preview-gateway/internal/preview"
)

const (
	defaultIndex     = "stories"
	retryOnConflicts = 3
	incrementScript  = `if (ctx._source.views == null) { ctx._source.views = params.delta } else { ctx._source.views += params.delta }`
)

var _ preview.Store = (*StoryStore)(nil)

// Config holds Elasticsearch connection configuration.
type Config struct {
	Addresses  []string
	Username   string
	Password   string
	MaxRetries int
	Index      string
}

// StoryStore searches a stories index.
type StoryStore struct {
	client *es.Client
	index  string
}

// NewStoryStore builds a client from cfg.
func NewStoryStore(cfg Config) (*StoryStore, error) {
	if len(cfg.Addresses) == 0 {
		return nil, errors.New("elasticsearch addresses are required")
	}
	client, err := es.NewClient(es.Config{
		Addresses:  cfg.Addresses,
		Username:   cfg.Username,
		Password:   cfg.Password,
		MaxRetries: cfg.MaxRetries,
	})
	if err != nil {
		return nil, fmt.Errorf("create elasticsearch client: %w", err)
	}
	return NewStoryStoreWithClient(client, cfg.Index), nil
}

// NewStoryStoreWithClient wraps an existing client.
func NewStoryStoreWithClient(client *es.Client, index string) *StoryStore {
	if index == "" {
		index = defaultIndex
	}
	return &StoryStore{client: client, index: index}
}

type searchResponse struct {
	Hits struct {
		Hits []struct {
			ID     string        `json:"_id"`
			Source preview.Story `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

// FindApprovedBySlug runs a filtered term search limited to one hit, in index
// order.
func (s *StoryStore) FindApprovedBySlug(ctx context.Context, slug string) (preview.Story, error) {
	query := map[string]any{
		"size": 1,
		"query": map[string]any{
			"bool": map[string]any{
				"filter": []map[string]any{
					{"term": map[string]any{"slug": slug}},
					{"term": map[string]any{"status": string(preview.StatusApproved)}},
				},
			},
		},
		"sort": []any{"_doc"},
	}
	body, err := json.Marshal(query)
	if err != nil {
		return preview.Story{}, fmt.Errorf("marshal query: %w", err)
	}

	res, err := s.client.Search(
		s.client.Search.WithContext(ctx),
		s.client.Search.WithIndex(s.index),
		s.client.Search.WithBody(bytes.NewReader(body)),
	)
	if err != nil {
		return preview.Story{}, fmt.Errorf("search stories: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return preview.Story{}, fmt.Errorf("search stories: %s", res.String())
	}

	var result searchResponse
	if err := json.NewDecoder(res.Body).Decode(&result); err != nil {
		return preview.Story{}, fmt.Errorf("decode search response: %w", err)
	}
	if len(result.Hits.Hits) == 0 {
		return preview.Story{}, preview.ErrNotFound
	}
	hit := result.Hits.Hits[0]
	story := hit.Source
	if story.ID == "" {
		story.ID = hit.ID
	}
	return story, nil
}

// IncrementViews applies a painless script so concurrent increments are
// serialised by the cluster.
func (s *StoryStore) IncrementViews(ctx context.Context, id string, delta int64) error {
	body, err := json.Marshal(map[string]any{
		"script": map[string]any{
			"source": incrementScript,
			"lang":   "painless",
			"params": map[string]any{"delta": delta},
		},
	})
	if err != nil {
		return fmt.Errorf("marshal update: %w", err)
	}

	res, err := s.client.Update(
		s.index,
		id,
		bytes.NewReader(body),
		s.client.Update.WithContext(ctx),
		s.client.Update.WithRetryOnConflict(retryOnConflicts),
	)
	if err != nil {
		return fmt.Errorf("increment views for %q: %w", id, err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		return fmt.Errorf("increment views for %q: %w", id, preview.ErrNotFound)
	}
	if res.IsError() {
		return fmt.Errorf("increment views for %q: %s", id, res.String())
	}
	return nil
}

// Ping checks cluster reachability.
func (s *StoryStore) Ping(ctx context.Context) error {
	res, err := s.client.Ping(s.client.Ping.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("ping elasticsearch: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("ping elasticsearch: %s", res.String())
	}
	return nil
}

// Close is a no-op; the client holds no long-lived resources beyond its
// HTTP transport.
func (s *StoryStore) Close() error { return nil }
