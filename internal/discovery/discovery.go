// Package discovery advertises the padmap server on the local network so
// overlay pages on other machines can find the event stream.
package discovery

import (
	"net"
	"strconv"

	"github.com/libp2p/zeroconf/v2"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const (
	Service = "_padmap._tcp"
	Domain  = "local."
)

// Port extracts the TCP port from a listen address such as ":8080".
func Port(listen string) (int, error) {
	_, p, err := net.SplitHostPort(listen)
	if err != nil {
		return 0, errors.Wrapf(err, "listen address %q", listen)
	}
	port, err := strconv.Atoi(p)
	if err != nil || port <= 0 || port > 65535 {
		return 0, errors.Errorf("listen address %q has no usable port", listen)
	}
	return port, nil
}

// TXT returns the TXT records published with the service.
func TXT(source string) []string {
	return []string{"path=/ws", "ingest=/ingest", "source=" + source}
}

// Advertiser is a registered mDNS service.
type Advertiser struct {
	server *zeroconf.Server
}

// Advertise registers instance on every multicast interface.
func Advertise(instance, listen, source string) (*Advertiser, error) {
	port, err := Port(listen)
	if err != nil {
		return nil, err
	}
	server, err := zeroconf.Register(instance, Service, Domain, port, TXT(source), nil)
	if err != nil {
		return nil, errors.Wrap(err, "register mdns service")
	}
	log.Info().Str("instance", instance).Int("port", port).Msg("advertising over mdns")
	return &Advertiser{server: server}, nil
}

// Shutdown withdraws the advertisement.
func (a *Advertiser) Shutdown() {
	if a != nil && a.server != nil {
		a.server.Shutdown()
	}
}
