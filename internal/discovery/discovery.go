// Package discovery advertises the sampler on the local network over mDNS.
package discovery

import (
	"context"
	"fmt"
	"net"
	"strconv"

	"github.com/grandcat/zeroconf"

	"netsampler/internal/logger"
)

const (
	Service = "_netsampler._tcp"
	Domain  = "local."
)

// Advertise registers instance on the HTTP port taken from addr and keeps the
// registration alive until ctx is done.
func Advertise(ctx context.Context, instance, addr string, txt []string, log logger.Logger) error {
	port, err := portOf(addr)
	if err != nil {
		return err
	}

	server, err := zeroconf.Register(instance, Service, Domain, port, txt, nil)
	if err != nil {
		return fmt.Errorf("mdns register: %w", err)
	}
	defer server.Shutdown()

	log.Info("mdns: service advertised", "instance", instance, "service", Service, "port", port)

	<-ctx.Done()
	log.Info("mdns: advertisement withdrawn", "instance", instance)
	return nil
}

func portOf(addr string) (int, error) {
	_, raw, err := net.SplitHostPort(addr)
	if err != nil {
		return 0, fmt.Errorf("mdns: invalid listen address %q: %w", addr, err)
	}

	port, err := strconv.Atoi(raw)
	if err != nil || port <= 0 || port > 65535 {
		return 0, fmt.Errorf("mdns: invalid port in %q", addr)
	}
	return port, nil
}
