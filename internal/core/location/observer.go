// Package location keeps a best-effort, possibly stale, geographic fix.
package location

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"netsampler/internal/domain"
	"netsampler/internal/logger"
	"netsampler/internal/storage/snapshot"
)

var (
	// ErrUnavailable means no position can ever be obtained (no permission or no
	// positioning source). The observer stops requesting after seeing it.
	ErrUnavailable = errors.New("location: position unavailable")
	ErrNoFix       = errors.New("location: no fix")
)

type Locator interface {
	Locate(ctx context.Context) (domain.Fix, error)
}

type FixStore interface {
	Save(ctx context.Context, fix domain.Fix) error
	Last(ctx context.Context) (domain.Fix, error)
}

type Options struct {
	// Timeout bounds a single request.
	Timeout time.Duration
	// Refresh re-requests a fix once the snapshot is this old. Zero requests only
	// while the snapshot is absent.
	Refresh time.Duration
	// MinInterval is the minimum spacing between two requests.
	MinInterval time.Duration
}

type Observer struct {
	locator Locator
	store   FixStore
	opts    Options
	log     logger.Logger

	latest   snapshot.Latest[domain.Fix]
	live     atomic.Bool
	inflight atomic.Bool
	disabled atomic.Bool
	limiter  *rate.Limiter
	wg       sync.WaitGroup
	now      func() time.Time
}

func NewObserver(locator Locator, store FixStore, opts Options, log logger.Logger) *Observer {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}

	limit := rate.Inf
	if opts.MinInterval > 0 {
		limit = rate.Every(opts.MinInterval)
	}

	return &Observer{
		locator: locator,
		store:   store,
		opts:    opts,
		log:     log,
		limiter: rate.NewLimiter(limit, 1),
		now:     time.Now,
	}
}

// Restore loads the last persisted fix, keeping its original timestamp. A restored
// fix is served by Latest but stays stale: NeedsFix keeps asking until a fix from
// this process lands.
func (o *Observer) Restore(ctx context.Context) error {
	if o.store == nil {
		return nil
	}

	fix, err := o.store.Last(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrFixNotFound) {
			return nil
		}
		return err
	}

	if fix.IsSentinel() {
		return nil
	}

	o.latest.Set(fix)
	o.log.Info("location: restored cached fix", "lat", fix.Latitude, "lon", fix.Longitude, "at", fix.At)
	return nil
}

func (o *Observer) Latest() (domain.Fix, bool) {
	return o.latest.Get()
}

func (o *Observer) Available() bool {
	return !o.disabled.Load()
}

// NeedsFix reports whether the sampling loop should ask for a new position.
func (o *Observer) NeedsFix(now time.Time) bool {
	if o.disabled.Load() {
		return false
	}

	fix, ok := o.latest.Get()
	if !ok || !o.live.Load() {
		return true
	}
	return o.opts.Refresh > 0 && now.Sub(fix.At) >= o.opts.Refresh
}

// RequestFix starts an asynchronous position request and returns immediately. It
// reports false when a request is already running, the observer is disabled or the
// request was throttled.
func (o *Observer) RequestFix(ctx context.Context) bool {
	if o.disabled.Load() {
		return false
	}

	if !o.inflight.CompareAndSwap(false, true) {
		return false
	}

	if !o.limiter.Allow() {
		o.inflight.Store(false)
		return false
	}

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		defer o.inflight.Store(false)
		o.locate(ctx)
	}()

	return true
}

// Wait blocks until in-flight requests have finished.
func (o *Observer) Wait() {
	o.wg.Wait()
}

func (o *Observer) locate(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, o.opts.Timeout)
	defer cancel()

	fix, err := o.locator.Locate(ctx)
	if err != nil {
		if errors.Is(err, ErrUnavailable) {
			if !o.disabled.Swap(true) {
				o.log.Warn("location: position permanently unavailable", "reason", err)
			}
			return
		}
		o.log.Debug("location: fix request failed", "error", err)
		return
	}

	if fix.IsSentinel() {
		o.log.Debug("location: discarded (0,0) fix")
		return
	}

	if fix.At.IsZero() {
		fix.At = o.now().UTC()
	}

	o.latest.Set(fix)
	o.live.Store(true)
	o.log.Debug("location: fix updated", "lat", fix.Latitude, "lon", fix.Longitude)

	if o.store == nil {
		return
	}

	saveCtx, cancelSave := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancelSave()

	if err := o.store.Save(saveCtx, fix); err != nil {
		o.log.Error("location: failed to cache fix", "error", err)
	}
}
