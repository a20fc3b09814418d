package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/jadwal-sholat/pkg/errors"
)

type payload struct {
	Name string `json:"name"`
}

func TestMemoryGetSetExpiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 4, 10, 8, 0, 0, 0, time.UTC)
	m := NewMemory()
	m.now = func() time.Time { return now }

	require.NoError(t, m.Set(ctx, "schedule:1301:2025:4", payload{Name: "KOTA BANDUNG"}, time.Hour))

	var got payload
	require.NoError(t, m.Get(ctx, "schedule:1301:2025:4", &got))
	assert.Equal(t, "KOTA BANDUNG", got.Name)

	now = now.Add(time.Hour)
	err := m.Get(ctx, "schedule:1301:2025:4", &got)
	assert.ErrorIs(t, err, appErrors.ErrCacheMiss)
	assert.Equal(t, 0, m.Len())
}

func TestMemoryDeleteByPattern(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	require.NoError(t, m.Set(ctx, "schedule:1301:2025:4", payload{}, 0))
	require.NoError(t, m.Set(ctx, "schedule:1301:2025:5", payload{}, 0))
	require.NoError(t, m.Set(ctx, "cities:bandung", payload{}, 0))

	require.NoError(t, m.DeleteByPattern(ctx, "schedule:*"))

	var got payload
	assert.ErrorIs(t, m.Get(ctx, "schedule:1301:2025:4", &got), appErrors.ErrCacheMiss)
	assert.NoError(t, m.Get(ctx, "cities:bandung", &got))
}
