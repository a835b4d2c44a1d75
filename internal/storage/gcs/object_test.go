package gcs

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"cloud.google.com/go/storage"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
)

const seedYAML = "stories:\n  - id: s1\n    slug: hello\n    status: approved\n"

func newTestReader(t *testing.T) *ObjectReader {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet && strings.Contains(r.URL.Path, "stories.yaml") {
			w.Header().Set("Content-Type", "application/yaml")
			_, _ = w.Write([]byte(seedYAML))
			return
		}
		http.Error(w, `{"error":{"code":404,"message":"No such object"}}`, http.StatusNotFound)
	}))
	t.Cleanup(server.Close)

	client, err := storage.NewClient(context.Background(), option.WithEndpoint(server.URL), option.WithoutAuthentication())
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	reader, err := New(client)
	require.NoError(t, err)
	return reader
}

func TestReadObject(t *testing.T) {
	t.Parallel()

	reader := newTestReader(t)
	data, err := reader.ReadObject(context.Background(), "gs://test-bucket/seeds/stories.yaml")
	require.NoError(t, err)
	require.Equal(t, seedYAML, string(data))
}

func TestReadObjectMissing(t *testing.T) {
	t.Parallel()

	reader := newTestReader(t)
	_, err := reader.ReadObject(context.Background(), "gs://test-bucket/missing.yaml")
	require.Error(t, err)
}

func TestParseURI(t *testing.T) {
	t.Parallel()

	bucket, object, err := ParseURI("gs://b/path/to/o.yaml")
	require.NoError(t, err)
	require.Equal(t, "b", bucket)
	require.Equal(t, "path/to/o.yaml", object)

	for _, bad := range []string{"/local/file.yaml", "gs://", "gs://bucket", "gs://bucket/"} {
		_, _, err := ParseURI(bad)
		require.Error(t, err, bad)
	}
	_, _, err = ParseURI("s3://b/o")
	require.ErrorIs(t, err, ErrNotGCSURI)
}

func TestNewRequiresClient(t *testing.T) {
	t.Parallel()

	_, err := New(nil)
	require.Error(t, err)
}
