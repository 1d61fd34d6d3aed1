package fetcher

import (
	"errors"
	"fmt"

	"github.com/nao1215/prayertimes/internal/model"
)

var (
	// ErrUnexpectedStatus is wrapped by FetchError when the server answers
	// with a status outside the 2xx range.
	ErrUnexpectedStatus = errors.New("unexpected HTTP status")

	// ErrBodyTooLarge is wrapped by FetchError when the response body
	// exceeds the configured limit.
	ErrBodyTooLarge = errors.New("response body too large")
)

// FetchError describes why a district page could not be retrieved.
type FetchError struct {
	District model.DistrictID
	URL      string

	// StatusCode is zero when no response was received.
	StatusCode int

	Err error
}

// Error implements the error interface.
func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s (%s): status %d: %v", e.District, e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetch %s (%s): %v", e.District, e.URL, e.Err)
}

// Unwrap returns the underlying cause.
func (e *FetchError) Unwrap() error {
	return e.Err
}
