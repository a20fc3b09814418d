package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeAuthority struct {
	remote time.Time
	err    error
	zone   string
}

func (f *fakeAuthority) Now(ctx context.Context, zone string) (time.Time, error) {
	f.zone = zone
	return f.remote, f.err
}

func TestClockServiceMeasuresOffset(t *testing.T) {
	local := time.Date(2025, 4, 10, 3, 0, 0, 0, time.UTC)
	reads := []time.Time{local, local.Add(200 * time.Millisecond), local.Add(200 * time.Millisecond)}
	authority := &fakeAuthority{remote: local.Add(5 * time.Second)}

	svc := NewClockService(authority, time.Second, time.Minute, nil, nil)
	i := 0
	svc.local = func() time.Time {
		t := reads[len(reads)-1]
		if i < len(reads) {
			t = reads[i]
		}
		i++
		return t
	}

	offset := svc.Sync(context.Background())
	// remote + latency/2 - after = (local+5s) + 100ms - (local+200ms)
	assert.Equal(t, 4900*time.Millisecond, offset)
	assert.Equal(t, "Asia/Jakarta", authority.zone)
	assert.Equal(t, offset, svc.Offset())

	snap := svc.Snapshot()
	assert.Equal(t, int64(4900), snap.OffsetMs)
	assert.Equal(t, local.Add(200*time.Millisecond).Add(offset), snap.Now)
}

func TestClockServiceFallsBackToLocalClock(t *testing.T) {
	svc := NewClockService(&fakeAuthority{err: errors.New("timeout")}, time.Second, time.Minute, nil, nil)
	svc.offset = 3 * time.Second

	assert.Equal(t, time.Duration(0), svc.Sync(context.Background()))
	assert.Equal(t, time.Duration(0), svc.Offset())

	fixed := time.Date(2025, 4, 10, 3, 0, 0, 0, time.UTC)
	svc.local = func() time.Time { return fixed }
	assert.Equal(t, fixed, svc.Now())
}

func TestClockServiceWithoutAuthority(t *testing.T) {
	svc := NewClockService(nil, 0, 0, nil, nil)
	assert.Equal(t, time.Duration(0), svc.Sync(context.Background()))
}
