package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/crawlfleet/crawlfleet/internal/crawl"
)

func TestBlobStorePutGet(t *testing.T) {
	t.Parallel()

	s := NewBlobStore()
	ctx := context.Background()

	err := s.Put(ctx, "abc.html", []byte("<html/>"), "text/html", map[string]string{
		crawl.MetadataOriginalURL: "http://example.com/a",
	})
	require.NoError(t, err)

	obj, err := s.Get(ctx, "abc.html")
	require.NoError(t, err)
	require.Equal(t, []byte("<html/>"), obj.Data)
	require.Equal(t, "text/html", obj.ContentType)
	require.Equal(t, "http://example.com/a", obj.Metadata[crawl.MetadataOriginalURL])
}

func TestBlobStorePutOverwrites(t *testing.T) {
	t.Parallel()

	s := NewBlobStore()
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "k", []byte("v1"), "text/html", nil))
	require.NoError(t, s.Put(ctx, "k", []byte("v2"), "text/html", nil))

	obj, err := s.Get(ctx, "k")
	require.NoError(t, err)
	require.Equal(t, []byte("v2"), obj.Data)

	keys, err := s.List(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"k"}, keys)
}

func TestBlobStoreGetMissing(t *testing.T) {
	t.Parallel()

	s := NewBlobStore()
	_, err := s.Get(context.Background(), "nope")
	require.Error(t, err)
}
