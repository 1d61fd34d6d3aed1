package model

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

// ErrEmptyDistrictID is returned when a district identifier is empty.
var ErrEmptyDistrictID = errors.New("district id must not be empty")

// DistrictID identifies one district, e.g. "dhaka".
// It is appended verbatim to the base URL and used as a key in the output
// document, so it must be safe to place in a URL path segment.
type DistrictID string

// String returns the identifier as a plain string.
func (d DistrictID) String() string {
	return string(d)
}

// Validate checks that the identifier can be appended to a URL path
// without escaping.
func (d DistrictID) Validate() error {
	if d == "" {
		return ErrEmptyDistrictID
	}
	for _, r := range string(d) {
		if unicode.IsSpace(r) || unicode.IsControl(r) {
			return fmt.Errorf("district id %q contains whitespace or control characters", string(d))
		}
	}
	if strings.ContainsAny(string(d), "/?#%") {
		return fmt.Errorf("district id %q contains reserved URL characters", string(d))
	}
	return nil
}

// DistrictIDs converts plain strings to DistrictIDs, trimming surrounding
// whitespace. Order is preserved.
func DistrictIDs(names ...string) []DistrictID {
	ids := make([]DistrictID, 0, len(names))
	for _, name := range names {
		ids = append(ids, DistrictID(strings.TrimSpace(name)))
	}
	return ids
}
