package sink

import (
	"context"
	"errors"
	"net/url"
	"path/filepath"
	"strings"
)

// ErrMirrorUnavailable is returned by Checker.Available when the mirror
// location cannot be written to.
var ErrMirrorUnavailable = errors.New("mirror location unavailable")

// Sink is a destination for the encoded document.
type Sink interface {
	// Write stores data, replacing any previous content.
	Write(ctx context.Context, data []byte) error

	// Location describes where data is written, for messages and history.
	Location() string
}

// Checker is implemented by sinks that can tell ahead of a write whether
// their location is reachable.
type Checker interface {
	Available(ctx context.Context) error
}

// OpenMirror returns the sink for a mirror location. The copy keeps the
// base name of name. A location with a URL scheme (s3://bucket,
// gs://bucket, file:///dir, mem://) opens a bucket; anything else is a
// directory that must already exist.
func OpenMirror(ctx context.Context, location, name string) (Sink, error) {
	name = filepath.Base(name)
	if isBucketURL(location) {
		return OpenBucketSink(ctx, location, name)
	}
	return NewDirMirror(location, name), nil
}

func isBucketURL(location string) bool {
	if !strings.Contains(location, "://") {
		return false
	}
	u, err := url.Parse(location)
	if err != nil {
		return false
	}
	// A single letter scheme is a Windows drive, not a URL.
	return len(u.Scheme) > 1
}
