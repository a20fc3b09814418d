package service

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type cachedCity struct {
	Lokasi string `json:"lokasi"`
}

func TestCacheServiceRememberSharedLoadSurvivesCallerCancel(t *testing.T) {
	svc := NewCacheService(newMemoryCacheRepo(), nil, time.Hour, nil, true)

	var loads int32
	started := make(chan struct{}, 2)
	release := make(chan struct{})
	load := func(ctx context.Context) (interface{}, error) {
		atomic.AddInt32(&loads, 1)
		started <- struct{}{}
		<-release
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return cachedCity{Lokasi: "KOTA MAKASSAR"}, nil
	}

	firstCtx, cancelFirst := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		var dest cachedCity
		_, err := svc.Remember(firstCtx, "cities:makassar", 0, &dest, load)
		firstErr <- err
	}()
	<-started

	type outcome struct {
		dest cachedCity
		err  error
	}
	second := make(chan outcome, 1)
	go func() {
		var dest cachedCity
		_, err := svc.Remember(context.Background(), "cities:makassar", 0, &dest, load)
		second <- outcome{dest: dest, err: err}
	}()

	cancelFirst()
	select {
	case err := <-firstErr:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("cancelled caller did not return")
	}

	time.Sleep(20 * time.Millisecond)
	close(release)

	select {
	case got := <-second:
		require.NoError(t, got.err)
		assert.Equal(t, "KOTA MAKASSAR", got.dest.Lokasi)
	case <-time.After(time.Second):
		t.Fatal("waiting caller did not receive the shared load")
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&loads))

	var cached cachedCity
	hit, err := svc.Get(context.Background(), "cities:makassar", &cached)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, "KOTA MAKASSAR", cached.Lokasi)
}

func TestCacheServiceRememberHit(t *testing.T) {
	svc := NewCacheService(newMemoryCacheRepo(), nil, time.Hour, nil, true)
	require.NoError(t, svc.Set(context.Background(), "cities:bandung", cachedCity{Lokasi: "KOTA BANDUNG"}, 0))

	var dest cachedCity
	hit, err := svc.Remember(context.Background(), "cities:bandung", 0, &dest, func(context.Context) (interface{}, error) {
		t.Fatal("load must not run on a hit")
		return nil, nil
	})
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, "KOTA BANDUNG", dest.Lokasi)
}
