package storage_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/phpscreening/screener/internal/storage"
)

func TestMemoryPutGet(t *testing.T) {
	ctx := context.Background()
	m := storage.NewMemory()

	data := []byte("%PDF-1.4")
	require.NoError(t, m.Put(ctx, "k1", "application/pdf", data))
	data[0] = 'X'

	got, err := m.Get(ctx, "k1")
	require.NoError(t, err)
	require.Equal(t, "%PDF-1.4", string(got))
	require.Equal(t, 1, m.Len())
}

func TestMemoryMissingKey(t *testing.T) {
	_, err := storage.NewMemory().Get(context.Background(), "nope")
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestMemoryDelete(t *testing.T) {
	ctx := context.Background()
	m := storage.NewMemory()
	require.NoError(t, m.Put(ctx, "k1", "application/pdf", []byte("a")))

	require.NoError(t, m.Delete(ctx, "k1"))
	require.NoError(t, m.Delete(ctx, "k1"))
	require.Zero(t, m.Len())
	_, err := m.Get(ctx, "k1")
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestMemoryRejectsEmptyKey(t *testing.T) {
	require.Error(t, storage.NewMemory().Put(context.Background(), "", "", nil))
}

func TestNewMinIORequiresEndpoint(t *testing.T) {
	_, err := storage.NewMinIO(context.Background(), storage.MinIOConfig{Bucket: "b"}, nil)
	require.Error(t, err)
}
