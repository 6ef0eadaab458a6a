package pubsub

import (
	"fmt"
	"sync"
	"sync/atomic"

	"netsampler/internal/domain"
	"netsampler/internal/logger"
	"netsampler/internal/metrics"
)

// mailbox serialises deliveries to one subscriber on its own goroutine.
type mailbox struct {
	sub     Subscriber
	samples chan domain.Sample
	failure chan error
	done    chan struct{}

	// observer subscribers are not counted as clients
	observer bool

	failedRun atomic.Uint64
	stopOnce  sync.Once

	log     logger.Logger
	metrics *metrics.Metrics
}

func newMailbox(sub Subscriber, buffer int, log logger.Logger, m *metrics.Metrics) *mailbox {
	return &mailbox{
		sub:     sub,
		samples: make(chan domain.Sample, buffer),
		failure: make(chan error, 1),
		done:    make(chan struct{}),
		log:     log,
		metrics: m,
	}
}

func (mb *mailbox) offer(s domain.Sample) bool {
	select {
	case <-mb.done:
		return true
	default:
	}

	select {
	case mb.samples <- s:
		return true
	default:
		return false
	}
}

// fail queues err as the terminal error of run. Repeats for a run already failed
// are ignored. Runs are numbered from 1.
func (mb *mailbox) fail(run uint64, err error) {
	for {
		last := mb.failedRun.Load()
		if run <= last {
			return
		}
		if mb.failedRun.CompareAndSwap(last, run) {
			break
		}
	}

	select {
	case mb.failure <- err:
	default:
		mb.log.Warn("pubsub: terminal error of an earlier run still pending, dropping", "run", run, "error", err)
	}
}

func (mb *mailbox) stop() {
	mb.stopOnce.Do(func() {
		close(mb.done)
	})
}

func (mb *mailbox) run() {
	for {
		select {
		case <-mb.done:
			return
		case s := <-mb.samples:
			mb.deliver(s)
		case err := <-mb.failure:
			mb.drain()
			mb.terminate(err)
		}
	}
}

// drain delivers what was queued before the failure arrived.
func (mb *mailbox) drain() {
	for {
		select {
		case <-mb.done:
			return
		case s := <-mb.samples:
			mb.deliver(s)
		default:
			return
		}
	}
}

func (mb *mailbox) deliver(s domain.Sample) {
	defer func() {
		if r := recover(); r != nil {
			mb.metrics.DeliveryError()
			mb.log.Error("pubsub: subscriber panicked", "panic", fmt.Sprint(r))
		}
	}()

	if err := mb.sub.HandleSample(s); err != nil {
		mb.metrics.DeliveryError()
		mb.log.Warn("pubsub: subscriber failed to handle sample", "error", err)
	}
}

func (mb *mailbox) terminate(err error) {
	defer func() {
		if r := recover(); r != nil {
			mb.metrics.DeliveryError()
			mb.log.Error("pubsub: subscriber panicked on terminal error", "panic", fmt.Sprint(r))
		}
	}()

	mb.sub.HandleError(err)
}
