package model

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// DefaultMaxBodySize is the largest response body the fetcher accepts.
// Real district pages are well under 200 KB.
const DefaultMaxBodySize = 5 * 1024 * 1024 // 5 MB

// RawPage is the fetched HTML of one district page.
// It is produced by the fetcher and consumed by the extractor.
type RawPage struct {
	// District is the catalog entry the page was fetched for.
	District DistrictID `json:"district"`

	// URL is the full request URL.
	URL string `json:"url"`

	// StatusCode is the HTTP response status code.
	StatusCode int `json:"status_code"`

	// ContentType is the Content-Type response header, verbatim.
	ContentType string `json:"content_type,omitempty"`

	// Body is the response body. Never larger than the fetcher's limit.
	Body []byte `json:"-"`

	// Hash is the SHA-256 hash of Body, hex encoded.
	Hash string `json:"hash"`

	// FetchedAt is the instant the request was released by the pacer.
	FetchedAt time.Time `json:"fetched_at"`
}

// ComputeHash calculates and sets the SHA-256 hash of the page body.
func (p *RawPage) ComputeHash() {
	if len(p.Body) == 0 {
		p.Hash = ""
		return
	}

	hash := sha256.Sum256(p.Body)
	p.Hash = hex.EncodeToString(hash[:])
}

// IsHTML reports whether the content type indicates HTML.
// An empty content type is treated as HTML since some servers omit it.
func (p *RawPage) IsHTML() bool {
	if p.ContentType == "" {
		return true
	}
	return p.ContentType == "application/xhtml+xml" ||
		len(p.ContentType) >= 9 && p.ContentType[:9] == "text/html"
}
