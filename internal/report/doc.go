// Package report renders scraping results.
//
// EncodeDocument and DocumentWriter produce the persisted JSON document.
// The Writer implementations render a RunSummary for people: SimpleWriter
// as plain text for the terminal, MarkdownWriter as GitHub flavored
// Markdown with a pie chart, JSONWriter for tools. TableWriter draws a
// district's rows as a terminal table.
package report
