// Package model defines the core data structures used throughout prayertimes.
//
// This package contains the following main types:
//   - DistrictID: Identifier of one district in the catalog
//   - TableRow: One data row of a prayer-time table, keyed by header label
//   - DistrictRecord: All rows extracted from one district's table
//   - Document: The ordered district -> record mapping written to disk
//   - RunSummary: Per-district outcomes of one scraping run
//
// The models live in their own package because the fetcher, extractor,
// pipeline, report and database packages all share them.
//
// TableRow and Document keep insertion order when encoded to JSON, so the
// output document lists districts in catalog order and columns in header
// order.
package model
