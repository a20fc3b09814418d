package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/jadwal-sholat/internal/models"
	appErrors "github.com/noah-isme/jadwal-sholat/pkg/errors"
)

type fakePositionSource struct {
	mu      sync.Mutex
	ch      chan models.PositionUpdate
	ctx     context.Context
	opts    models.WatchOptions
	openErr error
	opened  int
}

func (f *fakePositionSource) Watch(ctx context.Context, opts models.WatchOptions) (<-chan models.PositionUpdate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.opened++
	if f.openErr != nil {
		return nil, f.openErr
	}
	f.ch = make(chan models.PositionUpdate)
	f.ctx = ctx
	f.opts = opts
	return f.ch, nil
}

// send delivers u unless the watch has been stopped. It reports whether the
// update was consumed.
func (f *fakePositionSource) send(u models.PositionUpdate) bool {
	f.mu.Lock()
	ch, ctx := f.ch, f.ctx
	f.mu.Unlock()
	select {
	case ch <- u:
		return true
	case <-ctx.Done():
		return false
	case <-time.After(200 * time.Millisecond):
		return false
	}
}

type geoRecorder struct {
	mu    sync.Mutex
	snaps []models.GeoSnapshot
}

func (r *geoRecorder) record(s models.GeoSnapshot) {
	r.mu.Lock()
	r.snaps = append(r.snaps, s)
	r.mu.Unlock()
}

func (r *geoRecorder) states(state models.GeoState) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, s := range r.snaps {
		if s.State == state {
			n++
		}
	}
	return n
}

func TestGeolocationTrackerSettlesOnAccurateFix(t *testing.T) {
	src := &fakePositionSource{}
	tracker := NewGeolocationTracker(src, GeolocationOptions{Ceiling: time.Second}, nil)
	rec := &geoRecorder{}
	tracker.OnChange(rec.record)

	require.NoError(t, tracker.Start(context.Background()))
	assert.Equal(t, models.GeoDetecting, tracker.Snapshot().State)
	assert.True(t, src.opts.HighAccuracy)
	assert.Zero(t, src.opts.MaximumAge)
	assert.Equal(t, 30*time.Second, src.opts.Timeout)

	require.True(t, src.send(models.PositionUpdate{Fix: models.GeoFix{Lat: -6.2, Lng: 106.8, Accuracy: 900}}))
	assert.Eventually(t, func() bool {
		snap := tracker.Snapshot()
		return snap.Fix != nil && snap.Fix.Accuracy == 900
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, models.GeoDetecting, tracker.Snapshot().State)

	require.True(t, src.send(models.PositionUpdate{Fix: models.GeoFix{Lat: -6.21, Lng: 106.81, Accuracy: 40}}))
	tracker.Wait()

	snap := tracker.Snapshot()
	assert.Equal(t, models.GeoSettled, snap.State)
	require.NotNil(t, snap.Fix)
	assert.Equal(t, 40.0, snap.Fix.Accuracy)
	assert.Empty(t, snap.Error)
	assert.Equal(t, 1, rec.states(models.GeoSettled))
}

func TestGeolocationTrackerCeilingSettlesOnce(t *testing.T) {
	src := &fakePositionSource{}
	tracker := NewGeolocationTracker(src, GeolocationOptions{Ceiling: 20 * time.Millisecond}, nil)
	rec := &geoRecorder{}
	tracker.OnChange(rec.record)

	require.NoError(t, tracker.Start(context.Background()))
	require.True(t, src.send(models.PositionUpdate{Fix: models.GeoFix{Lat: -6.2, Lng: 106.8, Accuracy: 350}}))
	tracker.Wait()

	snap := tracker.Snapshot()
	assert.Equal(t, models.GeoSettled, snap.State)
	require.NotNil(t, snap.Fix)
	assert.Equal(t, 350.0, snap.Fix.Accuracy)

	// A late fix after the ceiling fired is neither delivered nor applied.
	assert.False(t, src.send(models.PositionUpdate{Fix: models.GeoFix{Lat: 1, Lng: 1, Accuracy: 5}}))
	assert.True(t, tracker.publish(snap.Generation, models.GeoFix{Lat: 1, Lng: 1, Accuracy: 5}))
	tracker.settle(snap.Generation, errors.New("late error"))

	after := tracker.Snapshot()
	assert.Equal(t, snap, after)
	assert.Equal(t, 1, rec.states(models.GeoSettled))
}

func TestGeolocationTrackerCeilingWithoutFix(t *testing.T) {
	src := &fakePositionSource{}
	tracker := NewGeolocationTracker(src, GeolocationOptions{Ceiling: 10 * time.Millisecond}, nil)

	require.NoError(t, tracker.Start(context.Background()))
	tracker.Wait()

	snap := tracker.Snapshot()
	assert.Equal(t, models.GeoSettled, snap.State)
	assert.Nil(t, snap.Fix)
}

func TestGeolocationTrackerClassifiesErrors(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want *appErrors.Error
	}{
		{"permission", appErrors.ErrPermissionDenied, appErrors.ErrPermissionDenied},
		{"unavailable", appErrors.ErrPositionUnavailable, appErrors.ErrPositionUnavailable},
		{"other", errors.New("boom"), appErrors.ErrPositionFailed},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			src := &fakePositionSource{}
			tracker := NewGeolocationTracker(src, GeolocationOptions{Ceiling: time.Second}, nil)
			require.NoError(t, tracker.Start(context.Background()))
			require.True(t, src.send(models.PositionUpdate{Err: tc.err}))
			tracker.Wait()

			snap := tracker.Snapshot()
			assert.Equal(t, models.GeoSettled, snap.State)
			assert.Equal(t, tc.want.Message, snap.Error)
		})
	}
}

func TestGeolocationTrackerWatchOpenFailure(t *testing.T) {
	src := &fakePositionSource{openErr: appErrors.ErrPermissionDenied}
	tracker := NewGeolocationTracker(src, GeolocationOptions{}, nil)

	err := tracker.Start(context.Background())
	assert.ErrorIs(t, err, appErrors.ErrPermissionDenied)
	assert.Equal(t, models.GeoSettled, tracker.Snapshot().State)
}

func TestGeolocationTrackerRestartAndCancel(t *testing.T) {
	src := &fakePositionSource{}
	tracker := NewGeolocationTracker(src, GeolocationOptions{Ceiling: time.Second}, nil)

	tracker.Cancel()
	assert.Equal(t, models.GeoIdle, tracker.Snapshot().State)

	require.NoError(t, tracker.Start(context.Background()))
	firstCtx := src.ctx
	require.NoError(t, tracker.Start(context.Background()))
	assert.Error(t, firstCtx.Err(), "previous watch must be stopped")
	assert.Equal(t, 2, src.opened)
	assert.Equal(t, models.GeoDetecting, tracker.Snapshot().State)

	tracker.Cancel()
	tracker.Wait()
	assert.Equal(t, models.GeoIdle, tracker.Snapshot().State)
	assert.Error(t, src.ctx.Err())
}

func TestGeolocationTrackerParentCancel(t *testing.T) {
	src := &fakePositionSource{}
	tracker := NewGeolocationTracker(src, GeolocationOptions{Ceiling: time.Second}, nil)
	ctx, cancel := context.WithCancel(context.Background())

	require.NoError(t, tracker.Start(ctx))
	cancel()
	tracker.Wait()
	assert.Equal(t, models.GeoCancelled, tracker.Snapshot().State)
}
