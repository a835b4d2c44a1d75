// Package memory keeps published view events in process. It backs local runs
// where no Pub/Sub project is configured, and tests. Local runs attach a logger
// so every event shows up in the debug log.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/JakeFAU/story-preview-gateway/internal/preview"
)

var _ preview.Publisher = (*Publisher)(nil)

// DefaultCapacity bounds how many messages are retained.
const DefaultCapacity = 1024

// Publisher stores published payloads for inspection.
type Publisher struct {
	mu       sync.RWMutex
	messages []PublishedMessage
	capacity int
	seq      int
	logger   *zap.Logger
}

// Option configures a Publisher.
type Option func(*Publisher)

// WithLogger logs every publish at Debug level.
func WithLogger(logger *zap.Logger) Option {
	return func(p *Publisher) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// PublishedMessage captures one publish call as it would appear on the wire.
type PublishedMessage struct {
	ID    string
	Topic string
	Data  []byte
}

// New returns a memory Publisher that keeps the most recent capacity
// messages. A non-positive capacity uses DefaultCapacity.
func New(capacity int, opts ...Option) *Publisher {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	p := &Publisher{capacity: capacity, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Publish records the JSON encoding of payload and returns a pseudo ID.
func (p *Publisher) Publish(_ context.Context, topic string, payload any) (string, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}
	p.mu.Lock()
	p.seq++
	id := fmt.Sprintf("memory-%d", p.seq)
	p.messages = append(p.messages, PublishedMessage{ID: id, Topic: topic, Data: data})
	if over := len(p.messages) - p.capacity; over > 0 {
		p.messages = append(p.messages[:0:0], p.messages[over:]...)
	}
	p.mu.Unlock()

	p.logger.Debug("view event published",
		zap.String("id", id),
		zap.String("topic", topic),
		zap.ByteString("data", data),
	)
	return id, nil
}

// Messages returns the recorded publishes, oldest first.
func (p *Publisher) Messages() []PublishedMessage {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]PublishedMessage, len(p.messages))
	copy(out, p.messages)
	return out
}
