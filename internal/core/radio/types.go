// Package radio tracks the last-known radio signal strength pushed by a feed.
package radio

import (
	"errors"
	"time"
)

// ErrUnavailable means the platform will never deliver signal readings, for example
// when permission is missing or no modem tooling exists.
var ErrUnavailable = errors.New("radio: signal strength unavailable")

type Tech string

const (
	TechGSM   Tech = "gsm"
	TechLTE   Tech = "lte"
	TechWCDMA Tech = "wcdma"
	TechNR    Tech = "nr"
	TechCDMA  Tech = "cdma"
)

// precedence is the order in which technologies are consulted for a report's dBm.
var precedence = []Tech{TechGSM, TechLTE, TechWCDMA}

const (
	minDbm = -150
	maxDbm = 0
)

type Cell struct {
	Tech Tech `json:"tech" validate:"required,oneof=gsm lte wcdma nr cdma"`
	Dbm  *int `json:"dbm" validate:"omitempty,min=-150,max=0"`
}

type Report struct {
	Cells []Cell    `json:"cells" validate:"dive"`
	At    time.Time `json:"at"`
}

// Dbm returns the reading of the first technology in precedence order that carries
// a valid value.
func (r Report) Dbm() (int, bool) {
	for _, tech := range precedence {
		for _, c := range r.Cells {
			if c.Tech != tech || c.Dbm == nil {
				continue
			}
			if *c.Dbm < minDbm || *c.Dbm > maxDbm {
				continue
			}
			return *c.Dbm, true
		}
	}
	return 0, false
}
