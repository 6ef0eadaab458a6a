// Package sampler runs the timer-driven loop that turns counter deltas and
// observer snapshots into published samples.
package sampler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"netsampler/internal/core/counter"
	"netsampler/internal/domain"
	"netsampler/internal/logger"
	"netsampler/internal/metrics"
	"netsampler/internal/storage/snapshot"
)

const DefaultInterval = time.Second

// Publisher fans samples out. Fail carries the run number so every run can end
// with its own terminal error.
type Publisher interface {
	Broadcast(sample domain.Sample)
	Fail(run uint64, err error)
	Len() int
}

type SignalObserver interface {
	Start(ctx context.Context)
	Stop()
	Latest() (int, bool)
}

type LocationObserver interface {
	Latest() (domain.Fix, bool)
	NeedsFix(now time.Time) bool
	RequestFix(ctx context.Context) bool
}

type Options struct {
	Interval time.Duration
	Policy   LocationPolicy
}

type Sampler struct {
	tracker  *counter.Tracker
	signal   SignalObserver
	location LocationObserver
	env      *snapshot.Store[domain.Environment]
	pub      Publisher
	metrics  *metrics.Metrics
	log      logger.Logger
	opts     Options

	running atomic.Bool
	lastErr snapshot.Store[string]

	mu     sync.Mutex
	run    uint64
	cancel context.CancelFunc
	done   chan struct{}

	now   func() time.Time
	after func(time.Duration) <-chan time.Time
}

func New(
	tracker *counter.Tracker,
	signal SignalObserver,
	location LocationObserver,
	env *snapshot.Store[domain.Environment],
	pub Publisher,
	m *metrics.Metrics,
	log logger.Logger,
	opts Options,
) *Sampler {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if env == nil {
		env = &snapshot.Store[domain.Environment]{}
	}

	return &Sampler{
		tracker:  tracker,
		signal:   signal,
		location: location,
		env:      env,
		pub:      pub,
		metrics:  m,
		log:      log,
		opts:     opts,
		now:      time.Now,
		after:    time.After,
	}
}

// Start begins sampling. Calling it while running is a no-op. The first tick of
// every run only seeds the counter baseline.
func (s *Sampler) Start(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if !s.running.CompareAndSwap(false, true) {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// a previous run may have ended on its own
	s.teardown()

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	s.tracker.Reset()
	s.lastErr.Set("")
	s.signal.Start(runCtx)

	s.run++
	s.cancel = cancel
	s.done = done

	go s.loop(runCtx, cancel, done, s.run)

	s.log.Info("sampler: started", "run", s.run, "interval", s.opts.Interval, "location_policy", s.opts.Policy)
	return nil
}

// Stop cancels the pending tick and waits for the loop to exit, so nothing is
// published after it returns. Safe to call when not running.
func (s *Sampler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.teardown() {
		s.log.Info("sampler: stopped")
	}
	s.running.Store(false)
}

func (s *Sampler) teardown() bool {
	if s.cancel == nil {
		return false
	}

	s.cancel()
	<-s.done

	s.cancel = nil
	s.done = nil
	return true
}

func (s *Sampler) Running() bool {
	return s.running.Load()
}

func (s *Sampler) Status() domain.SamplerStatus {
	return domain.SamplerStatus{
		Running:     s.running.Load(),
		Subscribers: s.pub.Len(),
		Interval:    s.opts.Interval.String(),
		LastError:   s.lastErr.Get(),
	}
}

// loop owns the signal observer for the lifetime of the run and stops it on
// every exit path.
func (s *Sampler) loop(ctx context.Context, cancel context.CancelFunc, done chan struct{}, run uint64) {
	defer close(done)
	defer s.signal.Stop()

	var (
		seeded bool
		lastTs int64
	)

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.after(s.opts.Interval):
		}

		if ctx.Err() != nil {
			return
		}

		if err := s.tick(ctx, &seeded, &lastTs); err != nil {
			cancel()
			s.fail(run, err)
			return
		}
	}
}

// tick produces at most one sample. It returns an error only when sampling must end.
func (s *Sampler) tick(ctx context.Context, seeded *bool, lastTs *int64) (fatal error) {
	defer func() {
		if r := recover(); r != nil {
			s.metrics.TickFailed()
			s.log.Error("sampler: tick panicked", "panic", fmt.Sprint(r))
			fatal = nil
		}
	}()

	s.metrics.Tick()

	delta, err := s.tracker.Read()
	if err != nil {
		if errors.Is(err, counter.ErrUnsupported) {
			return err
		}
		s.metrics.TickFailed()
		s.log.Warn("sampler: failed to read counters", "error", err)
		return nil
	}

	download, upload := delta.KBps(s.opts.Interval)
	now := s.now()

	if s.location.NeedsFix(now) && s.location.RequestFix(ctx) {
		s.metrics.LocationRequested()
	}

	if !*seeded {
		*seeded = true
		s.metrics.Skipped("seed")
		s.log.Debug("sampler: counters seeded")
		return nil
	}

	if delta.Baseline {
		s.log.Warn("sampler: counters went backwards, baseline reset")
	}

	in := ComposeInput{
		DownloadKBps: download,
		UploadKBps:   upload,
		Environment:  s.env.Get(),
		At:           now,
	}
	if dbm, ok := s.signal.Latest(); ok {
		in.SignalDbm = &dbm
	}
	if fix, ok := s.location.Latest(); ok {
		in.Fix = &fix
	}

	sample, ok := Compose(in, s.opts.Policy)
	if !ok {
		s.metrics.Skipped("location")
		s.log.Debug("sampler: no location, sample skipped")
		return nil
	}

	if sample.TimestampMillis < *lastTs {
		sample.TimestampMillis = *lastTs
	}
	*lastTs = sample.TimestampMillis

	s.metrics.ObserveRates(download, upload)
	s.pub.Broadcast(sample)
	s.metrics.Published()

	return nil
}

func (s *Sampler) fail(run uint64, err error) {
	s.lastErr.Set(err.Error())
	s.running.Store(false)
	s.log.Error("sampler: counters unsupported, stopping", "run", run, "error", err)
	s.pub.Fail(run, err)
}
