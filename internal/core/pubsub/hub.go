// Package pubsub fans published samples out to registered subscribers.
package pubsub

import (
	"sync"

	"netsampler/internal/domain"
	"netsampler/internal/logger"
	"netsampler/internal/metrics"
)

// Subscriber receives samples and at most one terminal error per run. Implementations are
// used as map keys and must be comparable, typically pointers.
type Subscriber interface {
	HandleSample(sample domain.Sample) error
	HandleError(err error)
}

const DefaultBuffer = 16

type Hub struct {
	mu        sync.Mutex
	mailboxes map[Subscriber]*mailbox
	observers int
	closed    bool
	wg        sync.WaitGroup

	buffer  int
	log     logger.Logger
	metrics *metrics.Metrics
}

func NewHub(buffer int, log logger.Logger, m *metrics.Metrics) *Hub {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}

	return &Hub{
		mailboxes: make(map[Subscriber]*mailbox),
		buffer:    buffer,
		log:       log,
		metrics:   m,
	}
}

// Subscribe registers s. It reports false when s was already registered or the hub
// is closed.
func (h *Hub) Subscribe(s Subscriber) bool {
	return h.register(s, false)
}

// Observe registers an in-process subscriber. It receives everything a subscriber
// does but is left out of Len and the subscribers gauge.
func (h *Hub) Observe(s Subscriber) bool {
	return h.register(s, true)
}

func (h *Hub) register(s Subscriber, observer bool) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return false
	}
	if _, ok := h.mailboxes[s]; ok {
		return false
	}

	mb := newMailbox(s, h.buffer, h.log, h.metrics)
	mb.observer = observer
	h.mailboxes[s] = mb
	if observer {
		h.observers++
	}

	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		mb.run()
	}()

	h.metrics.SetSubscribers(h.countLocked())
	h.log.Debug("pubsub: subscriber registered", "total", h.countLocked(), "observer", observer)
	return true
}

// Unsubscribe removes s. Samples still queued for s are discarded. Unknown
// subscribers are ignored. It does not wait for an in-progress delivery, so it is
// safe to call from inside a handler.
func (h *Hub) Unsubscribe(s Subscriber) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	mb, ok := h.mailboxes[s]
	if !ok {
		return false
	}

	delete(h.mailboxes, s)
	if mb.observer {
		h.observers--
	}
	mb.stop()

	h.metrics.SetSubscribers(h.countLocked())
	h.log.Debug("pubsub: subscriber removed", "total", h.countLocked())
	return true
}

// Broadcast queues sample for every subscriber registered at the time of the call.
// It never blocks on a subscriber.
func (h *Hub) Broadcast(sample domain.Sample) {
	for _, mb := range h.snapshot() {
		if !mb.offer(sample) {
			h.metrics.Dropped()
			h.log.Warn("pubsub: subscriber queue full, sample dropped", "timestamp_ms", sample.TimestampMillis)
		}
	}
}

// Fail delivers err to every current subscriber after the samples already queued
// for it. Each subscriber sees at most one terminal error per run.
func (h *Hub) Fail(run uint64, err error) {
	for _, mb := range h.snapshot() {
		mb.fail(run, err)
	}
}

// Len counts subscribers registered with Subscribe.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.countLocked()
}

func (h *Hub) countLocked() int {
	return len(h.mailboxes) - h.observers
}

// Close removes every subscriber and waits for their delivery goroutines. It must
// not be called from a handler.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	for s, mb := range h.mailboxes {
		delete(h.mailboxes, s)
		mb.stop()
	}
	h.observers = 0
	h.metrics.SetSubscribers(0)
	h.mu.Unlock()

	h.wg.Wait()
}

func (h *Hub) snapshot() []*mailbox {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := make([]*mailbox, 0, len(h.mailboxes))
	for _, mb := range h.mailboxes {
		out = append(out, mb)
	}
	return out
}
