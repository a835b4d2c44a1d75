// Package memory provides an in-memory story store for development and tests.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/JakeFAU/story-preview-gateway/internal/preview"
)

var _ preview.Store = (*StoryStore)(nil)

// StoryStore keeps stories in insertion order. When several approved stories
// share a slug the earliest inserted one wins.
type StoryStore struct {
	mu      sync.RWMutex
	stories []preview.Story
	byID    map[string]int
}

// NewStoryStore constructs a StoryStore seeded with stories.
func NewStoryStore(stories ...preview.Story) (*StoryStore, error) {
	s := &StoryStore{byID: make(map[string]int)}
	for _, st := range stories {
		if err := s.Put(st); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Put inserts or replaces a story keyed by ID.
func (s *StoryStore) Put(story preview.Story) error {
	if story.ID == "" {
		return errors.New("story id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if idx, ok := s.byID[story.ID]; ok {
		s.stories[idx] = story
		return nil
	}
	s.byID[story.ID] = len(s.stories)
	s.stories = append(s.stories, story)
	return nil
}

// Get returns the story with the given ID regardless of status.
func (s *StoryStore) Get(id string) (preview.Story, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx, ok := s.byID[id]
	if !ok {
		return preview.Story{}, false
	}
	return s.stories[idx], true
}

// FindApprovedBySlug returns the first approved story with slug.
func (s *StoryStore) FindApprovedBySlug(_ context.Context, slug string) (preview.Story, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, st := range s.stories {
		if st.Slug == slug && st.Status == preview.StatusApproved {
			return st, nil
		}
	}
	return preview.Story{}, preview.ErrNotFound
}

// IncrementViews adds delta to the story's view counter.
func (s *StoryStore) IncrementViews(ctx context.Context, id string, delta int64) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("increment views: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	idx, ok := s.byID[id]
	if !ok {
		return fmt.Errorf("increment views for %q: %w", id, preview.ErrNotFound)
	}
	s.stories[idx].Views += delta
	return nil
}

// Ping always succeeds.
func (s *StoryStore) Ping(context.Context) error { return nil }

// Close is a no-op.
func (s *StoryStore) Close() error { return nil }
