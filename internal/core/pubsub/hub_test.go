package pubsub

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"netsampler/internal/domain"
	"netsampler/internal/logger"
	"netsampler/internal/metrics"
)

type recorder struct {
	mu      sync.Mutex
	samples []domain.Sample
	errs    []error

	onSample func(domain.Sample) error
}

func (r *recorder) HandleSample(s domain.Sample) error {
	r.mu.Lock()
	r.samples = append(r.samples, s)
	fn := r.onSample
	r.mu.Unlock()

	if fn != nil {
		return fn(s)
	}
	return nil
}

func (r *recorder) HandleError(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errs = append(r.errs, err)
}

func (r *recorder) sampleCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.samples)
}

func (r *recorder) errorCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.errs)
}

func newTestHub(buffer int) *Hub {
	return NewHub(buffer, logger.Discard(), metrics.New())
}

func sample(ts int64) domain.Sample {
	return domain.Sample{DownloadKBps: 1, UploadKBps: 0.5, TimestampMillis: ts}
}

func TestSubscribeIsIdempotent(t *testing.T) {
	h := newTestHub(4)
	defer h.Close()

	r := &recorder{}
	assert.True(t, h.Subscribe(r))
	assert.False(t, h.Subscribe(r))
	assert.Equal(t, 1, h.Len())

	h.Broadcast(sample(1))

	require.Eventually(t, func() bool { return r.sampleCount() == 1 }, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 1, r.sampleCount())
}

func TestUnsubscribeUnknownIsNoop(t *testing.T) {
	h := newTestHub(4)
	defer h.Close()

	assert.False(t, h.Unsubscribe(&recorder{}))
	assert.Equal(t, 0, h.Len())
}

func TestFailingSubscriberDoesNotAffectOthers(t *testing.T) {
	h := newTestHub(4)
	defer h.Close()

	failing := &recorder{onSample: func(domain.Sample) error { return errors.New("broken pipe") }}
	panicking := &recorder{onSample: func(domain.Sample) error { panic("boom") }}
	healthy := &recorder{}

	h.Subscribe(failing)
	h.Subscribe(panicking)
	h.Subscribe(healthy)

	h.Broadcast(sample(1))
	h.Broadcast(sample(2))

	require.Eventually(t, func() bool { return healthy.sampleCount() == 2 }, time.Second, time.Millisecond)
	require.Eventually(t, func() bool { return panicking.sampleCount() == 2 }, time.Second, time.Millisecond)
	assert.Equal(t, 3, h.Len())
}

func TestSlowSubscriberDoesNotBlockBroadcast(t *testing.T) {
	h := newTestHub(1)

	release := make(chan struct{})
	slow := &recorder{onSample: func(domain.Sample) error {
		<-release
		return nil
	}}
	fast := &recorder{}

	h.Subscribe(slow)
	h.Subscribe(fast)

	done := make(chan struct{})
	go func() {
		for i := int64(1); i <= 10; i++ {
			h.Broadcast(sample(i))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("broadcast blocked on a slow subscriber")
	}

	close(release)
	require.Eventually(t, func() bool { return fast.sampleCount() >= 1 }, time.Second, time.Millisecond)
	assert.Less(t, slow.sampleCount(), 10)
	h.Close()
}

func TestUnsubscribeDuringBroadcast(t *testing.T) {
	h := newTestHub(64)
	defer h.Close()

	var subs []*recorder
	for range 8 {
		r := &recorder{}
		subs = append(subs, r)
		h.Subscribe(r)
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := int64(0); i < 200; i++ {
			h.Broadcast(sample(i))
		}
	}()
	go func() {
		defer wg.Done()
		for _, r := range subs {
			h.Unsubscribe(r)
		}
	}()
	wg.Wait()

	assert.Equal(t, 0, h.Len())
}

func TestSubscriberCanUnsubscribeItself(t *testing.T) {
	h := newTestHub(4)
	defer h.Close()

	r := &recorder{}
	r.onSample = func(domain.Sample) error {
		h.Unsubscribe(r)
		return nil
	}
	h.Subscribe(r)
	h.Broadcast(sample(1))

	require.Eventually(t, func() bool { return h.Len() == 0 }, time.Second, time.Millisecond)
	assert.Equal(t, 1, r.sampleCount())
}

func TestFailDeliversOnceAfterQueuedSamples(t *testing.T) {
	h := newTestHub(8)
	defer h.Close()

	var order []string
	var mu sync.Mutex

	r := &orderRecorder{record: func(s string) {
		mu.Lock()
		order = append(order, s)
		mu.Unlock()
	}}
	h.Subscribe(r)

	h.Broadcast(sample(1))
	h.Broadcast(sample(2))
	h.Fail(1, errors.New("unsupported"))
	h.Fail(1, errors.New("unsupported again"))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(order) == 3
	}, time.Second, time.Millisecond)

	time.Sleep(20 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"sample", "sample", "error:unsupported"}, order)
}

func TestFailOncePerRun(t *testing.T) {
	h := newTestHub(8)
	defer h.Close()

	r := &recorder{}
	h.Subscribe(r)

	h.Fail(1, errors.New("run 1 unsupported"))
	require.Eventually(t, func() bool { return r.errorCount() == 1 }, time.Second, time.Millisecond)

	h.Broadcast(sample(1))
	h.Fail(2, errors.New("run 2 unsupported"))
	h.Fail(1, errors.New("run 1 late"))

	require.Eventually(t, func() bool { return r.errorCount() == 2 }, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)

	r.mu.Lock()
	defer r.mu.Unlock()
	require.Len(t, r.errs, 2)
	assert.EqualError(t, r.errs[0], "run 1 unsupported")
	assert.EqualError(t, r.errs[1], "run 2 unsupported")
	assert.Len(t, r.samples, 1)
}

func TestObserversAreNotCounted(t *testing.T) {
	m := metrics.New()
	h := NewHub(4, logger.Discard(), m)
	defer h.Close()

	latest := &recorder{}
	client := &recorder{}

	require.True(t, h.Observe(latest))
	assert.False(t, h.Subscribe(latest))
	assert.Equal(t, 0, h.Len())

	require.True(t, h.Subscribe(client))
	assert.Equal(t, 1, h.Len())

	h.Broadcast(sample(1))
	require.Eventually(t, func() bool {
		return latest.sampleCount() == 1 && client.sampleCount() == 1
	}, time.Second, time.Millisecond)

	require.True(t, h.Unsubscribe(latest))
	assert.Equal(t, 1, h.Len())
	require.True(t, h.Unsubscribe(client))
	assert.Equal(t, 0, h.Len())
}

func TestCloseStopsDelivery(t *testing.T) {
	h := newTestHub(4)

	r := &recorder{}
	h.Subscribe(r)
	h.Close()

	assert.Equal(t, 0, h.Len())
	assert.False(t, h.Subscribe(&recorder{}))

	h.Broadcast(sample(1))
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, 0, r.sampleCount())
	assert.Equal(t, 0, r.errorCount())
}

type orderRecorder struct {
	record func(string)
}

func (o *orderRecorder) HandleSample(domain.Sample) error {
	o.record("sample")
	return nil
}

func (o *orderRecorder) HandleError(err error) {
	o.record("error:" + err.Error())
}
