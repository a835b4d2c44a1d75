package preview

import "errors"

var (
	// ErrNotFound means no approved story matches the slug.
	ErrNotFound = errors.New("story not found")
	// ErrMissingSlug means the request carried no slug.
	ErrMissingSlug = errors.New("missing slug")
	// ErrInvalidSlug means the slug cannot be a story key.
	ErrInvalidSlug = errors.New("invalid slug")
)
