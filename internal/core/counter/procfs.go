package counter

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
)

// ProcNetDev sums receive/transmit byte counters from a /proc/net/dev style file.
type ProcNetDev struct {
	Path string
	// Interfaces restricts the sum to the named interfaces; empty means all but lo.
	// A trailing "*" matches by prefix, so "wwan*" covers every modem interface.
	Interfaces []string
}

func NewProcNetDev(path string, interfaces []string) *ProcNetDev {
	if path == "" {
		path = "/proc/net/dev"
	}
	return &ProcNetDev{Path: path, Interfaces: interfaces}
}

func (p *ProcNetDev) Totals() (uint64, uint64, error) {
	f, err := os.Open(p.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) || errors.Is(err, fs.ErrPermission) {
			return 0, 0, fmt.Errorf("%w: %v", ErrUnsupported, err)
		}
		return 0, 0, err
	}
	defer f.Close()

	var rxTotal uint64
	var txTotal uint64

	scanner := bufio.NewScanner(f)
	// skip headers (first two lines)
	for i := 0; i < 2 && scanner.Scan(); i++ {
	}

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		name, counters, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}

		parts := strings.Fields(counters)
		if len(parts) < 16 {
			continue
		}

		iface := strings.TrimSpace(name)
		if !p.include(iface) {
			continue
		}

		rxTotal += parseUint(parts[0])
		txTotal += parseUint(parts[8])
	}

	if err := scanner.Err(); err != nil {
		return 0, 0, fmt.Errorf("read %s: %w", p.Path, err)
	}

	return rxTotal, txTotal, nil
}

func (p *ProcNetDev) include(iface string) bool {
	if len(p.Interfaces) > 0 {
		return matchAny(iface, p.Interfaces)
	}
	return iface != "lo"
}

func matchAny(iface string, patterns []string) bool {
	for _, pat := range patterns {
		if prefix, ok := strings.CutSuffix(pat, "*"); ok {
			if strings.HasPrefix(iface, prefix) {
				return true
			}
			continue
		}

		if iface == pat {
			return true
		}
	}
	return false
}

func parseUint(s string) uint64 {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0
	}
	return v
}
