package preview

import (
	"context"
	"time"
)

// StoryFinder looks up the approved story for a slug. Implementations return
// ErrNotFound (possibly wrapped) when nothing matches.
type StoryFinder interface {
	FindApprovedBySlug(ctx context.Context, slug string) (Story, error)
}

// ViewCounter atomically adds delta to a story's view counter.
type ViewCounter interface {
	IncrementViews(ctx context.Context, id string, delta int64) error
}

// Store is the document-store collaborator the gateway is built around.
type Store interface {
	StoryFinder
	ViewCounter
	Ping(ctx context.Context) error
	Close() error
}

// Publisher pushes view events to a topic (Pub/Sub or similar).
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// Clock returns the current time.
type Clock interface {
	Now() time.Time
}

// IDGenerator produces event IDs.
type IDGenerator interface {
	NewID() (string, error)
}

// Recorder receives resolver observations. internal/metrics provides the
// Prometheus-backed implementation.
type Recorder interface {
	ObserveOutcome(audience Audience, kind OutcomeKind)
	ObserveIncrement(err error)
	ObserveLookup(d time.Duration, err error)
}
