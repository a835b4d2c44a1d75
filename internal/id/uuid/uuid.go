// Package uuid provides ID generation for view events and requests.
package uuid

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/JakeFAU/story-preview-gateway/internal/preview"
)

var _ preview.IDGenerator = Generator{}

// Generator creates time-ordered UUID v7 strings.
type Generator struct{}

// New creates a new Generator.
func New() Generator {
	return Generator{}
}

// NewID returns a UUID7 string.
func (Generator) NewID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generate uuid7: %w", err)
	}
	return id.String(), nil
}

// RequestID returns an identifier for an inbound request, falling back to a
// random UUID when the time-ordered one cannot be generated.
func RequestID() string {
	if id, err := uuid.NewV7(); err == nil {
		return id.String()
	}
	return uuid.NewString()
}
