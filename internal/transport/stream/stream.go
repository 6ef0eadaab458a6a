// Package stream writes published samples to an io.Writer as newline-delimited
// JSON, for MODE=stream and MODE=snapshot.
package stream

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"

	"netsampler/internal/core/pubsub"
	"netsampler/internal/domain"
)

type Hub interface {
	Subscribe(s pubsub.Subscriber) bool
	Unsubscribe(s pubsub.Subscriber) bool
}

type Sampler interface {
	Start(ctx context.Context) error
	Stop()
}

// Writer encodes each sample as one JSON line. The terminal error, if any, is
// written as {"error": "..."} and made available on Err.
type Writer struct {
	mu   sync.Mutex
	enc  *json.Encoder
	errs chan error
}

func NewWriter(w io.Writer) *Writer {
	return &Writer{
		enc:  json.NewEncoder(w),
		errs: make(chan error, 1),
	}
}

func (w *Writer) HandleSample(s domain.Sample) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.enc.Encode(s)
}

func (w *Writer) HandleError(err error) {
	w.mu.Lock()
	w.enc.Encode(domain.FailurePayload{Error: err.Error()})
	w.mu.Unlock()

	select {
	case w.errs <- err:
	default:
	}
}

func (w *Writer) Err() <-chan error {
	return w.errs
}

// Run streams samples until ctx is done or the sampler reports a terminal error,
// which is returned.
func Run(ctx context.Context, hub Hub, sampler Sampler, out io.Writer) error {
	w := NewWriter(out)
	hub.Subscribe(w)
	defer hub.Unsubscribe(w)

	if err := sampler.Start(ctx); err != nil {
		return err
	}
	defer sampler.Stop()

	select {
	case <-ctx.Done():
		return nil
	case err := <-w.Err():
		return err
	}
}

type firstSample struct {
	samples chan domain.Sample
	errs    chan error
}

func (f *firstSample) HandleSample(s domain.Sample) error {
	select {
	case f.samples <- s:
	default:
	}
	return nil
}

func (f *firstSample) HandleError(err error) {
	select {
	case f.errs <- err:
	default:
	}
}

// Snapshot runs the sampler until one sample is published, writes it and stops.
func Snapshot(ctx context.Context, hub Hub, sampler Sampler, out io.Writer) error {
	first := &firstSample{
		samples: make(chan domain.Sample, 1),
		errs:    make(chan error, 1),
	}
	hub.Subscribe(first)
	defer hub.Unsubscribe(first)

	if err := sampler.Start(ctx); err != nil {
		return err
	}

	var (
		sample domain.Sample
		err    error
	)
	select {
	case sample = <-first.samples:
	case err = <-first.errs:
	case <-ctx.Done():
		err = errors.Join(errors.New("stream: no sample before shutdown"), ctx.Err())
	}
	sampler.Stop()

	if err != nil {
		return err
	}
	return json.NewEncoder(out).Encode(sample)
}
