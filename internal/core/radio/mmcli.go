package radio

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff"

	"netsampler/internal/logger"
)

// MMCLIFeed reads signal quality from ModemManager at the modem's refresh rate and
// emits a report whenever the extracted reading changes.
type MMCLIFeed struct {
	modem   string
	refresh time.Duration
	log     logger.Logger
	run     func(ctx context.Context, args ...string) ([]byte, error)
}

func NewMMCLIFeed(modem string, refresh time.Duration, log logger.Logger) *MMCLIFeed {
	if modem == "" {
		modem = "any"
	}
	if refresh <= 0 {
		refresh = 5 * time.Second
	}
	return &MMCLIFeed{modem: modem, refresh: refresh, log: log, run: runMMCLI}
}

func (f *MMCLIFeed) Watch(ctx context.Context, emit func(Report)) error {
	rate := strconv.Itoa(int(math.Max(1, f.refresh.Seconds())))
	if _, err := f.run(ctx, "-m", f.modem, "--signal-setup="+rate); err != nil {
		if unavailable(err) {
			return fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		f.log.Debug("radio: mmcli signal setup failed", "modem", f.modem, "error", err)
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = f.refresh
	b.MaxInterval = 2 * time.Minute
	b.MaxElapsedTime = 0
	b.Reset()

	timer := time.NewTimer(0)
	defer timer.Stop()

	var last *int
	first := true

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-timer.C:
		}

		out, err := f.run(ctx, "-m", f.modem, "--signal-get", "-J")
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if unavailable(err) {
				return fmt.Errorf("%w: %v", ErrUnavailable, err)
			}
			wait := b.NextBackOff()
			f.log.Warn("radio: mmcli signal read failed", "modem", f.modem, "retry_in", wait, "error", err)
			timer.Reset(wait)
			continue
		}
		b.Reset()

		report, err := parseMMCLISignal(out)
		if err != nil {
			f.log.Warn("radio: invalid mmcli output", "error", err)
			timer.Reset(f.refresh)
			continue
		}
		report.At = time.Now().UTC()

		dbm, ok := report.Dbm()
		if first || changed(last, dbm, ok) {
			emit(report)
			first = false
			if ok {
				last = &dbm
			} else {
				last = nil
			}
		}

		timer.Reset(f.refresh)
	}
}

func changed(last *int, dbm int, ok bool) bool {
	if last == nil {
		return ok
	}
	return !ok || *last != dbm
}

type mmcliSignal struct {
	Modem struct {
		Signal struct {
			GSM struct {
				RSSI string `json:"rssi"`
			} `json:"gsm"`
			LTE struct {
				RSRP string `json:"rsrp"`
				RSSI string `json:"rssi"`
			} `json:"lte"`
			UMTS struct {
				RSCP string `json:"rscp"`
				RSSI string `json:"rssi"`
			} `json:"umts"`
			NR struct {
				RSRP string `json:"rsrp"`
			} `json:"5g"`
		} `json:"signal"`
	} `json:"modem"`
}

func parseMMCLISignal(data []byte) (Report, error) {
	var raw mmcliSignal
	if err := json.Unmarshal(data, &raw); err != nil {
		return Report{}, err
	}

	sig := raw.Modem.Signal
	var report Report
	add := func(tech Tech, values ...string) {
		for _, v := range values {
			if dbm, ok := parseDbm(v); ok {
				report.Cells = append(report.Cells, Cell{Tech: tech, Dbm: &dbm})
				return
			}
		}
	}

	add(TechGSM, sig.GSM.RSSI)
	add(TechLTE, sig.LTE.RSRP, sig.LTE.RSSI)
	add(TechWCDMA, sig.UMTS.RSCP, sig.UMTS.RSSI)
	add(TechNR, sig.NR.RSRP)

	return report, nil
}

// parseDbm accepts mmcli values such as "-95.00"; "--" means no reading.
func parseDbm(v string) (int, bool) {
	v = strings.TrimSpace(v)
	if v == "" || v == "--" {
		return 0, false
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, false
	}
	return int(math.Round(f)), true
}

func unavailable(err error) bool {
	if errors.Is(err, exec.ErrNotFound) {
		return true
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		msg := strings.ToLower(string(exitErr.Stderr))
		return strings.Contains(msg, "not authorized") || strings.Contains(msg, "permission denied")
	}
	return false
}

// runMMCLI leaves Stderr unset so a failure carries it in *exec.ExitError.
func runMMCLI(ctx context.Context, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, "mmcli", args...).Output()
}
