package domain

import (
	"errors"
	"time"
)

var ErrFixNotFound = errors.New("location fix not found")

// Sample is one tick of composed telemetry. Nil pointer fields mean the source had
// no reading. A Sample is never modified after it is published.
type Sample struct {
	DownloadKBps    float64  `json:"download_kb_s"`
	UploadKBps      float64  `json:"upload_kb_s"`
	SignalDbm       *int     `json:"signal_dbm"`
	Latitude        *float64 `json:"latitude"`
	Longitude       *float64 `json:"longitude"`
	TimestampMillis int64    `json:"timestamp_ms"`
	Region          string   `json:"region,omitempty"`
	Condition       string   `json:"condition,omitempty"`
}

func (s Sample) HasLocation() bool {
	return s.Latitude != nil && s.Longitude != nil
}

type Fix struct {
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	At        time.Time `json:"at"`
}

// IsSentinel reports whether the fix is the (0,0) "no fix" marker.
func (f Fix) IsSentinel() bool {
	return f.Latitude == 0 && f.Longitude == 0
}

type Environment struct {
	Region    string `json:"region"`
	Condition string `json:"condition"`
}

type SamplerStatus struct {
	Running     bool   `json:"running"`
	Subscribers int    `json:"subscribers"`
	Interval    string `json:"interval"`
	LastError   string `json:"last_error,omitempty"`
}
