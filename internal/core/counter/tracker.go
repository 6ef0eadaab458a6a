// Package counter turns cumulative byte counters into per-tick deltas.
package counter

import (
	"errors"
	"time"
)

// ErrUnsupported is returned by a Source that cannot provide byte counters on this
// platform. It is distinct from a valid zero reading and is fatal to sampling.
var ErrUnsupported = errors.New("counter: byte counters unsupported")

type Source interface {
	Totals() (rx uint64, tx uint64, err error)
}

type Delta struct {
	RxBytes uint64
	TxBytes uint64
	// Baseline is set when the reading only (re)seeded the tracker.
	Baseline bool
}

// KBps converts the delta to kibibytes per second over interval.
func (d Delta) KBps(interval time.Duration) (download float64, upload float64) {
	secs := interval.Seconds()
	if secs <= 0 {
		return 0, 0
	}
	return float64(d.RxBytes) / 1024 / secs, float64(d.TxBytes) / 1024 / secs
}

// Tracker is not safe for concurrent use; the sampling loop owns it.
type Tracker struct {
	src         Source
	lastRxBytes uint64
	lastTxBytes uint64
	seeded      bool
}

func NewTracker(src Source) *Tracker {
	return &Tracker{src: src}
}

func (t *Tracker) Seed() error {
	rx, tx, err := t.src.Totals()
	if err != nil {
		return err
	}

	t.lastRxBytes = rx
	t.lastTxBytes = tx
	t.seeded = true
	return nil
}

func (t *Tracker) Reset() {
	t.lastRxBytes = 0
	t.lastTxBytes = 0
	t.seeded = false
}

func (t *Tracker) Read() (Delta, error) {
	rx, tx, err := t.src.Totals()
	if err != nil {
		return Delta{}, err
	}

	if !t.seeded || rx < t.lastRxBytes || tx < t.lastTxBytes {
		t.lastRxBytes = rx
		t.lastTxBytes = tx
		t.seeded = true
		return Delta{Baseline: true}, nil
	}

	d := Delta{
		RxBytes: rx - t.lastRxBytes,
		TxBytes: tx - t.lastTxBytes,
	}

	t.lastRxBytes = rx
	t.lastTxBytes = tx

	return d, nil
}
