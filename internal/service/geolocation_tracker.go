package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/jadwal-sholat/internal/models"
	appErrors "github.com/noah-isme/jadwal-sholat/pkg/errors"
)

// PositionSource opens a continuous position watch. The channel closes when
// ctx is cancelled or the source is exhausted.
type PositionSource interface {
	Watch(ctx context.Context, opts models.WatchOptions) (<-chan models.PositionUpdate, error)
}

// GeolocationOptions tunes a detection cycle.
type GeolocationOptions struct {
	Ceiling        time.Duration
	UpdateTimeout  time.Duration
	SettleAccuracy float64
}

// GeolocationTracker runs one position detection cycle at a time:
// idle -> detecting -> settled, or cancelled when the caller's context ends.
// Cancel returns to idle. A cycle settles
// exactly once; updates from an older cycle or after settling are dropped.
type GeolocationTracker struct {
	source PositionSource
	opts   GeolocationOptions
	logger *zap.Logger

	mu           sync.Mutex
	state        models.GeoState
	generation   uint64
	fix          *models.GeoFix
	err          error
	stop         context.CancelFunc
	observers    map[int]func(models.GeoSnapshot)
	nextObserver int
	cycles       sync.WaitGroup
}

// NewGeolocationTracker builds an idle tracker.
func NewGeolocationTracker(source PositionSource, opts GeolocationOptions, logger *zap.Logger) *GeolocationTracker {
	if opts.Ceiling <= 0 {
		opts.Ceiling = 15 * time.Second
	}
	if opts.UpdateTimeout <= 0 {
		opts.UpdateTimeout = 30 * time.Second
	}
	if opts.SettleAccuracy <= 0 {
		opts.SettleAccuracy = 100
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GeolocationTracker{
		source:    source,
		opts:      opts,
		logger:    logger,
		state:     models.GeoIdle,
		observers: make(map[int]func(models.GeoSnapshot)),
	}
}

// OnChange registers fn for every published fix and state transition.
func (t *GeolocationTracker) OnChange(fn func(models.GeoSnapshot)) func() {
	t.mu.Lock()
	id := t.nextObserver
	t.nextObserver++
	t.observers[id] = fn
	t.mu.Unlock()
	return func() {
		t.mu.Lock()
		delete(t.observers, id)
		t.mu.Unlock()
	}
}

// Snapshot returns the current state.
func (t *GeolocationTracker) Snapshot() models.GeoSnapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snapshotLocked()
}

// Start begins a new detection cycle, cancelling any running one. It returns
// the classified error when the watch cannot be opened; the cycle is then
// already settled.
func (t *GeolocationTracker) Start(ctx context.Context) error {
	t.mu.Lock()
	if t.stop != nil {
		t.stop()
	}
	t.generation++
	gen := t.generation
	cycleCtx, stop := context.WithCancel(ctx)
	t.stop = stop
	t.state = models.GeoDetecting
	t.fix = nil
	t.err = nil
	snap, observers := t.snapshotLocked(), t.observersLocked()
	t.mu.Unlock()
	notifyGeo(observers, snap)

	updates, err := t.source.Watch(cycleCtx, models.WatchOptions{
		HighAccuracy: true,
		MaximumAge:   0,
		Timeout:      t.opts.UpdateTimeout,
	})
	if err != nil {
		classified := classifyPositionError(err)
		t.settle(gen, classified)
		return classified
	}

	t.cycles.Add(1)
	go func() {
		defer t.cycles.Done()
		t.watch(cycleCtx, gen, updates)
	}()
	return nil
}

// Cancel stops the running cycle, if any, and returns to idle.
func (t *GeolocationTracker) Cancel() {
	t.mu.Lock()
	if t.stop != nil {
		t.stop()
		t.stop = nil
	}
	t.generation++
	changed := t.state != models.GeoIdle
	t.state = models.GeoIdle
	snap, observers := t.snapshotLocked(), t.observersLocked()
	t.mu.Unlock()
	if changed {
		notifyGeo(observers, snap)
	}
}

// Wait blocks until the watch goroutines of past cycles have exited.
func (t *GeolocationTracker) Wait() {
	t.cycles.Wait()
}

func (t *GeolocationTracker) watch(ctx context.Context, gen uint64, updates <-chan models.PositionUpdate) {
	ceiling := time.NewTimer(t.opts.Ceiling)
	defer ceiling.Stop()

	for {
		select {
		case <-ctx.Done():
			t.abandon(gen)
			return
		case <-ceiling.C:
			t.settle(gen, nil)
			return
		case update, ok := <-updates:
			if !ok {
				t.settle(gen, nil)
				return
			}
			if update.Err != nil {
				t.settle(gen, classifyPositionError(update.Err))
				return
			}
			if t.publish(gen, update.Fix) {
				return
			}
		}
	}
}

// publish records fix for the cycle gen and reports whether the cycle is
// over, either because it settled on this fix or because it is stale.
func (t *GeolocationTracker) publish(gen uint64, fix models.GeoFix) bool {
	t.mu.Lock()
	if gen != t.generation || t.state != models.GeoDetecting {
		t.mu.Unlock()
		return true
	}
	t.fix = &fix
	done := fix.Accuracy <= t.opts.SettleAccuracy
	if done {
		t.settleLocked()
	}
	snap, observers := t.snapshotLocked(), t.observersLocked()
	t.mu.Unlock()

	notifyGeo(observers, snap)
	return done
}

func (t *GeolocationTracker) settle(gen uint64, err error) {
	t.mu.Lock()
	if gen != t.generation || t.state != models.GeoDetecting {
		t.mu.Unlock()
		return
	}
	t.err = err
	t.settleLocked()
	snap, observers := t.snapshotLocked(), t.observersLocked()
	t.mu.Unlock()

	if err != nil {
		t.logger.Debug("position detection failed", zap.Error(err))
	}
	notifyGeo(observers, snap)
}

// abandon marks a cycle whose parent context ended before it settled.
func (t *GeolocationTracker) abandon(gen uint64) {
	t.mu.Lock()
	if gen != t.generation || t.state != models.GeoDetecting {
		t.mu.Unlock()
		return
	}
	t.state = models.GeoCancelled
	t.stop = nil
	snap, observers := t.snapshotLocked(), t.observersLocked()
	t.mu.Unlock()
	notifyGeo(observers, snap)
}

func (t *GeolocationTracker) settleLocked() {
	t.state = models.GeoSettled
	if t.stop != nil {
		t.stop()
		t.stop = nil
	}
}

func (t *GeolocationTracker) snapshotLocked() models.GeoSnapshot {
	snap := models.GeoSnapshot{State: t.state, Generation: t.generation}
	if t.fix != nil {
		fix := *t.fix
		snap.Fix = &fix
	}
	if t.err != nil {
		snap.Error = appErrors.FromError(t.err).Message
	}
	return snap
}

func (t *GeolocationTracker) observersLocked() []func(models.GeoSnapshot) {
	ids := make([]int, 0, len(t.observers))
	for id := range t.observers {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	out := make([]func(models.GeoSnapshot), 0, len(ids))
	for _, id := range ids {
		out = append(out, t.observers[id])
	}
	return out
}

func notifyGeo(observers []func(models.GeoSnapshot), snap models.GeoSnapshot) {
	for _, fn := range observers {
		fn(snap)
	}
}

func classifyPositionError(err error) error {
	switch {
	case errors.Is(err, appErrors.ErrPermissionDenied),
		errors.Is(err, appErrors.ErrPositionUnavailable),
		errors.Is(err, appErrors.ErrPositionFailed):
		return err
	default:
		return appErrors.With(appErrors.ErrPositionFailed, err)
	}
}
