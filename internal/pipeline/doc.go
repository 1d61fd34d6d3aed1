// Package pipeline drives a scraping run.
//
// Each district goes through a small Pipeline of Steps: FetchStep retrieves
// the page and ExtractStep reads its first table. A failing step ends the
// district's pipeline and the district is skipped; it never ends the run.
//
// The Runner executes one pipeline per catalog entry, sequentially or with
// bounded concurrency via errgroup, and folds the results into an
// Aggregator in catalog order. The Publisher then writes the finished
// document once to the primary sink and, best effort, to a mirror.
//
// Run state machine:
//
//	INIT -> (FETCH -> EXTRACT -> RECORD | SKIP) x N -> FINALIZE -> DONE
package pipeline
