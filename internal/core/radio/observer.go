package radio

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"netsampler/internal/logger"
	"netsampler/internal/storage/snapshot"
)

// Feed delivers reports until ctx is done. Watch returns ErrUnavailable (possibly
// wrapped) when readings can never be obtained.
type Feed interface {
	Watch(ctx context.Context, emit func(Report)) error
}

type Observer struct {
	feed Feed
	log  logger.Logger

	latest   snapshot.Latest[int]
	disabled atomic.Bool

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewObserver(feed Feed, log logger.Logger) *Observer {
	return &Observer{feed: feed, log: log}
}

// Start registers for feed notifications. Calling Start while already watching is a
// no-op.
func (o *Observer) Start(ctx context.Context) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.cancel != nil || o.disabled.Load() {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	o.cancel = cancel
	o.done = done

	go func() {
		defer close(done)

		err := o.feed.Watch(ctx, o.Update)
		switch {
		case errors.Is(err, ErrUnavailable):
			o.disable(err)
		case err != nil && ctx.Err() == nil:
			o.log.Error("radio: feed stopped", "error", err)
		}
	}()
}

func (o *Observer) Stop() {
	o.mu.Lock()
	cancel, done := o.cancel, o.done
	o.cancel, o.done = nil, nil
	o.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Update stores the reading carried by r. A report without any usable reading clears
// the snapshot.
func (o *Observer) Update(r Report) {
	if o.disabled.Load() {
		return
	}

	if dbm, ok := r.Dbm(); ok {
		o.latest.Set(dbm)
		return
	}
	o.latest.Clear()
}

func (o *Observer) Latest() (int, bool) {
	return o.latest.Get()
}

func (o *Observer) Available() bool {
	return !o.disabled.Load()
}

func (o *Observer) disable(err error) {
	if o.disabled.Swap(true) {
		return
	}
	o.latest.Clear()
	o.log.Warn("radio: signal strength permanently unavailable", "reason", err)
}
