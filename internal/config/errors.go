package config

import "errors"

// Configuration validation errors.
// These errors are returned by Config.Validate() and the loaders, so
// callers can use errors.Is() to tell them apart.
var (
	// ErrEmptyCatalog is returned when the district catalog has no entries.
	// An empty catalog would produce an empty document, which is never useful.
	ErrEmptyCatalog = errors.New("district catalog is empty")

	// ErrInvalidDistrict is returned when a catalog entry cannot be appended
	// to a URL path.
	ErrInvalidDistrict = errors.New("invalid district id")

	// ErrInvalidBaseURL is returned when the base URL is not an absolute
	// http or https URL.
	ErrInvalidBaseURL = errors.New("invalid base URL: must be an absolute http(s) URL")

	// ErrInvalidMonth is returned when --month is not an English month name.
	ErrInvalidMonth = errors.New("invalid month: must be an English month name such as March")

	// ErrInvalidDelay is returned when the delay between requests is negative.
	// Use 0 for no delay.
	ErrInvalidDelay = errors.New("invalid delay: must be non-negative")

	// ErrInvalidTimeout is returned when the timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidConcurrency is returned when the number of concurrent
	// fetches is not positive.
	ErrInvalidConcurrency = errors.New("invalid concurrency: must be positive")

	// ErrInvalidMaxBodySize is returned when the max body size is negative.
	ErrInvalidMaxBodySize = errors.New("invalid max body size: must be non-negative")

	// ErrNoOutput is returned when no primary output path is configured.
	ErrNoOutput = errors.New("no output path specified")

	// ErrConflictingProxy is returned when both --proxy and --tor are set.
	ErrConflictingProxy = errors.New("conflicting proxy settings: --proxy and --tor cannot be used together")

	// ErrConfigNotFound is returned when the configuration file does not exist.
	ErrConfigNotFound = errors.New("configuration file not found")
)
