// Package proxy routes the fetcher through a SOCKS5 proxy.
//
// A Client wraps a golang.org/x/net/proxy SOCKS5 dialer and hands out an
// *http.Transport for the fetcher. EmbeddedTor starts a private Tor daemon
// with tornago for users who want their requests to leave through Tor
// without running one themselves.
package proxy
