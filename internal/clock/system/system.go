// Package system provides a real clock implementation.
package system

import (
	"time"

	"github.com/JakeFAU/story-preview-gateway/internal/preview"
)

var _ preview.Clock = Clock{}

// Clock stamps view events using time.Now.
type Clock struct{}

// New creates a new Clock.
func New() Clock {
	return Clock{}
}

// Now returns the current time in UTC.
func (Clock) Now() time.Time {
	return time.Now().UTC()
}
