package backend

import (
	"context"
	"net"
	"net/http"
	"time"
)

// NewHTTPClient creates an HTTP client with the given timeout whose
// connections prefer IPv4.
func NewHTTPClient(timeout time.Duration) *http.Client {
	d := &net.Dialer{Timeout: 10 * time.Second, KeepAlive: 30 * time.Second}
	tr := http.DefaultTransport.(*http.Transport).Clone()
	tr.DialContext = dialIPv4First(d)
	return &http.Client{Timeout: timeout, Transport: tr}
}

// dialIPv4First dials tcp4 for plain "tcp" requests and falls back to the
// requested network when no IPv4 connection can be made.
func dialIPv4First(d *net.Dialer) func(ctx context.Context, network, addr string) (net.Conn, error) {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		if network == "tcp" {
			if conn, err := d.DialContext(ctx, "tcp4", addr); err == nil {
				return conn, nil
			}
		}
		return d.DialContext(ctx, network, addr)
	}
}
