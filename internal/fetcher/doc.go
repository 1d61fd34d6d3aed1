// Package fetcher retrieves the raw HTML of one district page.
//
// A Fetcher issues exactly one HTTP GET per call to <base-url>/<district>
// with a browser-like User-Agent. It never retries: a connection failure,
// a timeout, a non-2xx status or an oversized body is reported as a
// *FetchError and the caller decides what to do with the district.
//
// All fetches made through the same Fetcher share one pacer, so the
// configured delay separates the starts of any two requests, including
// requests made from different goroutines.
package fetcher
