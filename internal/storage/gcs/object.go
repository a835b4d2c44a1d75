// Package gcs reads configuration objects, such as story seed files, from
// Google Cloud Storage.
package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"cloud.google.com/go/storage"
)

// MaxObjectBytes caps how much of an object is read.
const MaxObjectBytes = 16 << 20

// ErrNotGCSURI is returned for locations without the gs:// scheme.
var ErrNotGCSURI = errors.New("not a gs:// uri")

// IsURI reports whether location names a GCS object.
func IsURI(location string) bool {
	return strings.HasPrefix(location, "gs://")
}

// ParseURI splits gs://bucket/path/to/object into bucket and object name.
func ParseURI(uri string) (bucket, object string, err error) {
	if !IsURI(uri) {
		return "", "", fmt.Errorf("%w: %q", ErrNotGCSURI, uri)
	}
	bucket, object, ok := strings.Cut(strings.TrimPrefix(uri, "gs://"), "/")
	if !ok || bucket == "" || object == "" {
		return "", "", fmt.Errorf("gs uri %q must name a bucket and an object", uri)
	}
	return bucket, object, nil
}

// ObjectReader fetches whole objects.
type ObjectReader struct {
	client *storage.Client
}

// New creates an ObjectReader.
func New(client *storage.Client) (*ObjectReader, error) {
	if client == nil {
		return nil, fmt.Errorf("storage client is required")
	}
	return &ObjectReader{client: client}, nil
}

// ReadObject downloads the object at uri.
func (r *ObjectReader) ReadObject(ctx context.Context, uri string) ([]byte, error) {
	bucket, object, err := ParseURI(uri)
	if err != nil {
		return nil, err
	}
	rc, err := r.client.Bucket(bucket).Object(object).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", uri, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, MaxObjectBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", uri, err)
	}
	if len(data) > MaxObjectBytes {
		return nil, fmt.Errorf("object %s exceeds %d bytes", uri, MaxObjectBytes)
	}
	return data, nil
}
