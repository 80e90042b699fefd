package helpers

import (
	"context"
	"net"
	"strconv"
)

// EnsurePortAvailable binds and releases host:port to check it is free.
func EnsurePortAvailable(ctx context.Context, host string, port int) error {
	lc := net.ListenConfig{}
	listener, err := lc.Listen(ctx, "tcp", formatAddress(host, port))
	if err != nil {
		return &PortError{Host: host, Port: port, Cause: err}
	}
	return listener.Close()
}

func formatAddress(host string, port int) string {
	return net.JoinHostPort(host, strconv.Itoa(port))
}
