// Package pubsub publishes view events to Google Cloud Pub/Sub.
package pubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"cloud.google.com/go/pubsub"
	"go.opentelemetry.io/otel"

	"github.com/JakeFAU/story-preview-gateway/internal/preview"
)

var _ preview.Publisher = (*Publisher)(nil)

// Publisher publishes JSON payloads to Pub/Sub topics, reusing one topic
// handle per name so batching settings apply across calls.
type Publisher struct {
	client *pubsub.Client

	mu     sync.Mutex
	topics map[string]*pubsub.Topic
}

// New creates a Publisher backed by client.
func New(client *pubsub.Client) *Publisher {
	return &Publisher{client: client, topics: make(map[string]*pubsub.Topic)}
}

// Publish marshals the payload to JSON and publishes it to the topic.
// Trace context travels in the message attributes.
func (p *Publisher) Publish(ctx context.Context, topic string, payload any) (string, error) {
	if p == nil || p.client == nil {
		return "", fmt.Errorf("pubsub publisher is not configured")
	}
	if topic == "" {
		return "", fmt.Errorf("pubsub topic is required")
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}

	msg := &pubsub.Message{Data: data, Attributes: make(map[string]string)}
	if ev, ok := payload.(preview.ViewEvent); ok {
		msg.Attributes["story_id"] = ev.StoryID
		msg.Attributes["audience"] = string(ev.Audience)
	}
	otel.GetTextMapPropagator().Inject(ctx, &pubsubCarrier{attrs: msg.Attributes})

	id, err := p.topic(topic).Publish(ctx, msg).Get(ctx)
	if err != nil {
		return "", fmt.Errorf("publish message: %w", err)
	}
	return id, nil
}

// Close flushes pending messages and stops every topic handle. The client is
// owned by the caller.
func (p *Publisher) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for name, t := range p.topics {
		t.Stop()
		delete(p.topics, name)
	}
}

func (p *Publisher) topic(name string) *pubsub.Topic {
	p.mu.Lock()
	defer p.mu.Unlock()
	t, ok := p.topics[name]
	if !ok {
		t = p.client.Topic(name)
		p.topics[name] = t
	}
	return t
}

// pubsubCarrier implements propagation.TextMapCarrier for Pub/Sub attributes.
type pubsubCarrier struct {
	attrs map[string]string
}

func (c *pubsubCarrier) Get(key string) string {
	return c.attrs[key]
}

func (c *pubsubCarrier) Set(key, value string) {
	c.attrs[key] = value
}

func (c *pubsubCarrier) Keys() []string {
	keys := make([]string, 0, len(c.attrs))
	for k := range c.attrs {
		keys = append(keys, k)
	}
	return keys
}
