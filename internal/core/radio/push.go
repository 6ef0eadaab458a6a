package radio

import (
	"context"
	"sync"
)

// PushFeed forwards reports handed to Push by an external reporter.
type PushFeed struct {
	mu   sync.RWMutex
	emit func(Report)
}

func NewPushFeed() *PushFeed {
	return &PushFeed{}
}

func (p *PushFeed) Watch(ctx context.Context, emit func(Report)) error {
	p.mu.Lock()
	p.emit = emit
	p.mu.Unlock()

	<-ctx.Done()

	p.mu.Lock()
	p.emit = nil
	p.mu.Unlock()
	return nil
}

// Push reports whether a watcher received r.
func (p *PushFeed) Push(r Report) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.emit == nil {
		return false
	}
	p.emit(r)
	return true
}

// NoopFeed is used when the device has no radio; its snapshot stays absent.
type NoopFeed struct{}

func (NoopFeed) Watch(context.Context, func(Report)) error {
	return ErrUnavailable
}
