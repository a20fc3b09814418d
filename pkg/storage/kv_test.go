package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/jadwal-sholat/pkg/errors"
)

type kv interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Keys(ctx context.Context, prefix string) ([]string, error)
}

func exerciseKV(t *testing.T, store kv) {
	ctx := context.Background()

	_, err := store.Get(ctx, "schedule_a_2025_4")
	assert.True(t, errors.Is(err, appErrors.ErrCacheMiss))

	require.NoError(t, store.Set(ctx, "schedule_a_2025_4", []byte(`{"_ts":1}`)))
	require.NoError(t, store.Set(ctx, "schedule_b_2025_4", []byte(`{"_ts":2}`)))
	require.NoError(t, store.Set(ctx, "selected_location", []byte(`{}`)))

	got, err := store.Get(ctx, "schedule_a_2025_4")
	require.NoError(t, err)
	assert.Equal(t, `{"_ts":1}`, string(got))

	keys, err := store.Keys(ctx, "schedule_")
	require.NoError(t, err)
	assert.Equal(t, []string{"schedule_a_2025_4", "schedule_b_2025_4"}, keys)

	require.NoError(t, store.Delete(ctx, "schedule_a_2025_4"))
	require.NoError(t, store.Delete(ctx, "missing"))
	_, err = store.Get(ctx, "schedule_a_2025_4")
	assert.True(t, errors.Is(err, appErrors.ErrCacheMiss))
}

func TestMemoryKV(t *testing.T) {
	exerciseKV(t, NewMemoryKV(0))
}

func TestFileKV(t *testing.T) {
	store, err := NewFileKV(t.TempDir(), 0)
	require.NoError(t, err)
	exerciseKV(t, store)
}

func TestMemoryKVQuota(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryKV(20)

	require.NoError(t, store.Set(ctx, "a", []byte("0123456789")))
	err := store.Set(ctx, "b", []byte("0123456789"))
	assert.True(t, errors.Is(err, appErrors.ErrQuotaExceeded))

	// overwriting an entry only counts the difference
	require.NoError(t, store.Set(ctx, "a", []byte("012345678901234")))
	require.NoError(t, store.Delete(ctx, "a"))
	require.NoError(t, store.Set(ctx, "b", []byte("0123456789")))
}

func TestFileKVQuota(t *testing.T) {
	ctx := context.Background()
	store, err := NewFileKV(t.TempDir(), 20)
	require.NoError(t, err)

	require.NoError(t, store.Set(ctx, "a", []byte("0123456789")))
	err = store.Set(ctx, "b", []byte("0123456789"))
	assert.True(t, errors.Is(err, appErrors.ErrQuotaExceeded))
	require.NoError(t, store.Set(ctx, "a", []byte("01234")))
	require.NoError(t, store.Set(ctx, "b", []byte("0123456")))
}

func TestLocalStorageRejectsEscape(t *testing.T) {
	s, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	_, err = s.Save("../evil.txt", []byte("x"))
	assert.ErrorIs(t, err, ErrOutsideBase)

	name, err := s.Save("2025/04/a.csv", []byte("x"))
	require.NoError(t, err)
	f, err := s.Open(name)
	require.NoError(t, err)
	require.NoError(t, f.Close())
	require.NoError(t, s.Delete(name))
}
