package storage

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStorage_PutGetRoundTrip(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "index/clauses.snapshot", strings.NewReader("payload")))

	rc, err := store.Get(ctx, "index/clauses.snapshot")
	require.NoError(t, err)
	defer rc.Close()

	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data))
}

func TestLocalStorage_PutOverwrites(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "key", strings.NewReader("first")))
	require.NoError(t, store.Put(ctx, "key", strings.NewReader("second")))

	rc, err := store.Get(ctx, "key")
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "second", string(data))
}

func TestLocalStorage_GetMissing(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	_, err = store.Get(context.Background(), "missing/key")
	assert.ErrorIs(t, err, ErrNotExist)
}

func TestLocalStorage_Delete(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "key", strings.NewReader("payload")))
	require.NoError(t, store.Delete(ctx, "key"))

	_, err = store.Get(ctx, "key")
	assert.ErrorIs(t, err, ErrNotExist)

	// Deleting a missing key is not an error
	assert.NoError(t, store.Delete(ctx, "key"))
}

func TestSanitizeKey(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"documents/abc.pdf", "documents/abc.pdf"},
		{"/leading/slash", "leading/slash"},
		{"../../etc/passwd", "etc/passwd"},
		{"a//b/./c", "a/b/c"},
		{"back\\slash\\key", "back/slash/key"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, sanitizeKey(tt.in), "input %q", tt.in)
	}
}
