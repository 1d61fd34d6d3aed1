// Package main provides the entry point for the prayertimes CLI.
//
// prayertimes scrapes the monthly prayer-time table of every Bangladeshi
// district from a public website and writes them to one ordered JSON
// document, plus a best-effort mirror copy.
//
// Usage:
//
//	prayertimes scrape
//	prayertimes scrape -o out.json -m /srv/mirror
//	prayertimes show dhaka
//
// See --help for all available options.
package main

func main() {
	Execute()
}
