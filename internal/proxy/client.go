package proxy

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"strconv"
	"time"

	"golang.org/x/net/proxy"
)

// checkTimeout bounds the SOCKS5 handshake done by CheckConnection.
const checkTimeout = 2 * time.Second

// DefaultProbeTarget is the host the connection check asks the proxy to
// reach. The check passes as soon as the proxy answers the request, even
// with a failure code.
const DefaultProbeTarget = "www.emythmakers.com:443"

// Client routes connections through a SOCKS5 proxy.
type Client struct {
	// address is the proxy address in "host:port" format.
	address string

	// dialer is the SOCKS5 dialer.
	dialer proxy.Dialer

	timeout     time.Duration
	probeTarget string
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithProbeTarget sets the host:port CheckConnection asks the proxy to reach.
func WithProbeTarget(hostport string) ClientOption {
	return func(c *Client) {
		if hostport != "" {
			c.probeTarget = hostport
		}
	}
}

// NewClient creates a client for the SOCKS5 proxy at address.
// The proxy is not contacted; call CheckConnection to verify it.
func NewClient(address string, timeout time.Duration, opts ...ClientOption) (*Client, error) {
	if !isValidProxyAddress(address) {
		return nil, ErrInvalidProxyAddress
	}

	// Tor's SOCKS port does not require authentication.
	dialer, err := proxy.SOCKS5("tcp", address, nil, proxy.Direct)
	if err != nil {
		return nil, fmt.Errorf("failed to create SOCKS5 dialer: %w", err)
	}

	c := &Client{
		address:     address,
		dialer:      dialer,
		timeout:     timeout,
		probeTarget: DefaultProbeTarget,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// isValidProxyAddress checks for "host:port" with a port in 1..65535.
func isValidProxyAddress(address string) bool {
	host, port, err := net.SplitHostPort(address)
	if err != nil || host == "" {
		return false
	}
	n, err := strconv.Atoi(port)
	return err == nil && n >= 1 && n <= 65535
}

// SOCKS5 protocol constants
const (
	socks5Version      = 0x05
	socks5AuthNone     = 0x00
	socks5AuthNoAccept = 0xFF
	socks5CmdConnect   = 0x01
	socks5AddrDomain   = 0x03
)

// CheckConnection performs a SOCKS5 handshake and a CONNECT request to the
// probe target. Any well formed reply counts as a working proxy.
func (c *Client) CheckConnection(ctx context.Context) Status {
	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", c.address)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return StatusTimeout
		}
		return StatusCannotConnect
	}
	defer conn.Close()

	deadline, _ := ctx.Deadline()
	if err := conn.SetDeadline(deadline); err != nil {
		return StatusCannotConnect
	}

	if _, err := conn.Write([]byte{socks5Version, 0x01, socks5AuthNone}); err != nil {
		return StatusCannotConnect
	}

	authResp := make([]byte, 2)
	if _, err := io.ReadFull(conn, authResp); err != nil {
		return readFailure(err)
	}
	if authResp[0] != socks5Version || authResp[1] == socks5AuthNoAccept || authResp[1] != socks5AuthNone {
		return StatusWrongType
	}

	req, err := connectRequest(c.probeTarget)
	if err != nil {
		return StatusWrongType
	}
	if _, err := conn.Write(req); err != nil {
		return StatusCannotConnect
	}

	// VER REP RSV ATYP; the rest of the reply is not needed.
	connectResp := make([]byte, 4)
	if _, err := io.ReadFull(conn, connectResp); err != nil {
		return readFailure(err)
	}
	if connectResp[0] != socks5Version {
		return StatusWrongType
	}
	return StatusOK
}

func readFailure(err error) Status {
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return StatusTimeout
	}
	return StatusWrongType
}

// connectRequest builds a CONNECT request for a domain name target.
func connectRequest(target string) ([]byte, error) {
	host, portStr, err := net.SplitHostPort(target)
	if err != nil {
		return nil, err
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port < 1 || port > 65535 || len(host) > 255 {
		return nil, fmt.Errorf("invalid probe target %q", target)
	}

	req := []byte{socks5Version, socks5CmdConnect, 0x00, socks5AddrDomain, byte(len(host))}
	req = append(req, host...)
	req = append(req, byte(port>>8), byte(port&0xFF))
	return req, nil
}

// DialContext connects to address through the proxy.
func (c *Client) DialContext(ctx context.Context, network, address string) (net.Conn, error) {
	if cd, ok := c.dialer.(proxy.ContextDialer); ok {
		return cd.DialContext(ctx, network, address)
	}

	type dialResult struct {
		conn net.Conn
		err  error
	}
	resultCh := make(chan dialResult, 1)
	go func() {
		conn, err := c.dialer.Dial(network, address)
		resultCh <- dialResult{conn, err}
	}()

	select {
	case result := <-resultCh:
		return result.conn, result.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Transport returns an HTTP transport that dials through the proxy.
// Certificates are verified as usual.
func (c *Client) Transport() *http.Transport {
	return &http.Transport{
		DialContext:         c.DialContext,
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 2,
		IdleConnTimeout:     30 * time.Second,
		TLSHandshakeTimeout: c.timeout,
	}
}

// Address returns the proxy address.
func (c *Client) Address() string {
	return c.address
}
