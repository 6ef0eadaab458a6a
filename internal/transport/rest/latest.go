package rest

import (
	"netsampler/internal/domain"
	"netsampler/internal/storage/snapshot"
)

// LatestSample subscribes to the hub and remembers the last published sample and
// terminal error. Nothing is persisted.
type LatestSample struct {
	sample  snapshot.Latest[domain.Sample]
	failure snapshot.Latest[string]
}

func NewLatestSample() *LatestSample {
	return &LatestSample{}
}

func (l *LatestSample) HandleSample(s domain.Sample) error {
	l.sample.Set(s)
	l.failure.Clear()
	return nil
}

func (l *LatestSample) HandleError(err error) {
	l.failure.Set(err.Error())
}

func (l *LatestSample) Get() (domain.Sample, bool) {
	return l.sample.Get()
}

func (l *LatestSample) Failure() (string, bool) {
	return l.failure.Get()
}
