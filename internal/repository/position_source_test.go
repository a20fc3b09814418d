package repository

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/jadwal-sholat/internal/models"
	appErrors "github.com/noah-isme/jadwal-sholat/pkg/errors"
)

func collect(t *testing.T, ch <-chan models.PositionUpdate) []models.PositionUpdate {
	t.Helper()
	var out []models.PositionUpdate
	timeout := time.After(2 * time.Second)
	for {
		select {
		case u, ok := <-ch:
			if !ok {
				return out
			}
			out = append(out, u)
		case <-timeout:
			t.Fatal("watch did not finish")
		}
	}
}

func TestLinePositionSourceParsesFixesAndErrors(t *testing.T) {
	input := "-6.2,106.8,850\n\ngarbage\n-6.21,106.81,60\npermission\n"
	src := NewLinePositionSource(strings.NewReader(input))

	ch, err := src.Watch(context.Background(), models.WatchOptions{HighAccuracy: true})
	require.NoError(t, err)
	updates := collect(t, ch)

	require.Len(t, updates, 3)
	assert.InDelta(t, 850, updates[0].Fix.Accuracy, 0.001)
	assert.InDelta(t, -6.21, updates[1].Fix.Lat, 0.0001)
	assert.True(t, errors.Is(updates[2].Err, appErrors.ErrPermissionDenied))
}

func TestLinePositionSourceTimeout(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()
	src := NewLinePositionSource(pr)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch, err := src.Watch(ctx, models.WatchOptions{Timeout: 20 * time.Millisecond})
	require.NoError(t, err)

	select {
	case u := <-ch:
		assert.True(t, errors.Is(u.Err, appErrors.ErrPositionFailed))
	case <-time.After(time.Second):
		t.Fatal("expected timeout update")
	}
}
