package sampler

import (
	"strings"
	"time"

	"netsampler/internal/domain"
)

// LocationPolicy decides what happens to a tick that has no location.
type LocationPolicy int

const (
	// LocationOptional publishes the sample with null coordinates.
	LocationOptional LocationPolicy = iota
	// LocationRequired drops the sample.
	LocationRequired
)

func ParseLocationPolicy(s string) LocationPolicy {
	if strings.EqualFold(strings.TrimSpace(s), "required") {
		return LocationRequired
	}
	return LocationOptional
}

func (p LocationPolicy) String() string {
	if p == LocationRequired {
		return "required"
	}
	return "optional"
}

type ComposeInput struct {
	DownloadKBps float64
	UploadKBps   float64
	SignalDbm    *int
	Fix          *domain.Fix
	Environment  domain.Environment
	At           time.Time
}

// Compose builds the sample for one tick. It reports false when policy rejects
// the tick.
func Compose(in ComposeInput, policy LocationPolicy) (domain.Sample, bool) {
	if in.Fix == nil && policy == LocationRequired {
		return domain.Sample{}, false
	}

	s := domain.Sample{
		DownloadKBps:    in.DownloadKBps,
		UploadKBps:      in.UploadKBps,
		TimestampMillis: in.At.UnixMilli(),
		Region:          in.Environment.Region,
		Condition:       in.Environment.Condition,
	}

	if in.SignalDbm != nil {
		v := *in.SignalDbm
		s.SignalDbm = &v
	}

	if in.Fix != nil {
		lat, lon := in.Fix.Latitude, in.Fix.Longitude
		s.Latitude = &lat
		s.Longitude = &lon
	}

	return s, true
}
