package proxy

import "errors"

var (
	// ErrNotSOCKS5 is returned when the proxy address responds but does
	// not speak SOCKS5 without authentication.
	ErrNotSOCKS5 = errors.New("proxy is not a SOCKS5 proxy")

	// ErrProxyCannotConnect is returned when no TCP connection to the proxy
	// can be established.
	ErrProxyCannotConnect = errors.New("cannot connect to proxy")

	// ErrProxyTimeout is returned when the proxy does not answer in time.
	ErrProxyTimeout = errors.New("timeout connecting to proxy")

	// ErrInvalidProxyAddress is returned when the proxy address format is invalid.
	// Expected format is "host:port".
	ErrInvalidProxyAddress = errors.New("invalid proxy address format: expected host:port")

	// ErrTorNotRunning is returned when the embedded Tor daemon is used
	// before it was started.
	ErrTorNotRunning = errors.New("embedded Tor daemon is not running")
)

// Status is the result of checking a proxy.
type Status int

const (
	// StatusOK indicates a working SOCKS5 proxy.
	StatusOK Status = iota

	// StatusWrongType indicates the peer is not a SOCKS5 proxy.
	StatusWrongType

	// StatusCannotConnect indicates no connection could be established.
	StatusCannotConnect

	// StatusTimeout indicates the check timed out.
	StatusTimeout
)

// String returns a human-readable description of the status.
func (s Status) String() string {
	switch s {
	case StatusOK:
		return "OK"
	case StatusWrongType:
		return "wrong type (not SOCKS5)"
	case StatusCannotConnect:
		return "cannot connect"
	case StatusTimeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// Err returns the error for this status, or nil if OK.
func (s Status) Err() error {
	switch s {
	case StatusOK:
		return nil
	case StatusWrongType:
		return ErrNotSOCKS5
	case StatusCannotConnect:
		return ErrProxyCannotConnect
	case StatusTimeout:
		return ErrProxyTimeout
	default:
		return errors.New("unknown proxy status")
	}
}
