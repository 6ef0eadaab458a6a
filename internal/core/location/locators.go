package location

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"time"

	"netsampler/internal/domain"
)

// GPSD requests a single fix from a gpsd daemon using its JSON protocol.
type GPSD struct {
	Addr   string
	dialer net.Dialer
}

func NewGPSD(addr string) *GPSD {
	return &GPSD{Addr: addr}
}

type gpsdReport struct {
	Class string   `json:"class"`
	Mode  int      `json:"mode"`
	Time  string   `json:"time"`
	Lat   *float64 `json:"lat"`
	Lon   *float64 `json:"lon"`
}

func (g *GPSD) Locate(ctx context.Context) (domain.Fix, error) {
	conn, err := g.dialer.DialContext(ctx, "tcp", g.Addr)
	if err != nil {
		return domain.Fix{}, fmt.Errorf("gpsd dial: %w", err)
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() {
		conn.SetDeadline(time.Now())
	})
	defer stop()

	if _, err := io.WriteString(conn, `?WATCH={"enable":true,"json":true};`+"\n"); err != nil {
		return domain.Fix{}, fmt.Errorf("gpsd watch: %w", err)
	}

	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		var r gpsdReport
		if err := json.Unmarshal(scanner.Bytes(), &r); err != nil {
			continue
		}

		// mode 2 is a 2D fix, 3 is 3D
		if r.Class != "TPV" || r.Mode < 2 || r.Lat == nil || r.Lon == nil {
			continue
		}

		fix := domain.Fix{Latitude: *r.Lat, Longitude: *r.Lon}
		if at, err := time.Parse(time.RFC3339Nano, r.Time); err == nil {
			fix.At = at.UTC()
		}
		return fix, nil
	}

	if err := ctx.Err(); err != nil {
		return domain.Fix{}, err
	}
	if err := scanner.Err(); err != nil {
		return domain.Fix{}, fmt.Errorf("gpsd read: %w", err)
	}
	return domain.Fix{}, ErrNoFix
}

// Static reports a fixed position, for installations that do not move.
type Static struct {
	fix domain.Fix
}

// ParseStatic parses "lat,lon".
func ParseStatic(raw string) (*Static, error) {
	latRaw, lonRaw, ok := strings.Cut(raw, ",")
	if !ok {
		return nil, fmt.Errorf("location: static position %q must be \"lat,lon\"", raw)
	}

	lat, err := strconv.ParseFloat(strings.TrimSpace(latRaw), 64)
	if err != nil || lat < -90 || lat > 90 {
		return nil, fmt.Errorf("location: invalid latitude %q", latRaw)
	}

	lon, err := strconv.ParseFloat(strings.TrimSpace(lonRaw), 64)
	if err != nil || lon < -180 || lon > 180 {
		return nil, fmt.Errorf("location: invalid longitude %q", lonRaw)
	}

	fix := domain.Fix{Latitude: lat, Longitude: lon}
	if fix.IsSentinel() {
		return nil, fmt.Errorf("location: static position %q is the (0,0) no-fix marker", raw)
	}

	return &Static{fix: fix}, nil
}

func (s *Static) Locate(context.Context) (domain.Fix, error) {
	fix := s.fix
	fix.At = time.Now().UTC()
	return fix, nil
}

// None is used when the device has no positioning source.
type None struct{}

func (None) Locate(context.Context) (domain.Fix, error) {
	return domain.Fix{}, ErrUnavailable
}
