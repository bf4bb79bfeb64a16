// Package flags provides support for seijaku CLI args
package flags

import (
	"errors"
	"net"
	"strconv"

	"seijaku.dev/seijaku/config"
)

// ErrExcessArgs is returned when unparsed arguments remain
var ErrExcessArgs = errors.New("excess arguments provided")

// mergeAddress applies a host[:port] argument over cfg.
func mergeAddress(address string, cfg *config.Config) error {
	if address == "" {
		return nil
	}
	host, port, err := net.SplitHostPort(address)
	if err != nil {
		// No port given.
		cfg.Host = address
		return nil
	}
	if host != "" {
		cfg.Host = host
	}
	p, err := strconv.Atoi(port)
	if err != nil || p <= 0 || p > 65535 {
		return config.ErrInvalidPort
	}
	cfg.Port = p
	return nil
}
