// Package extractor turns the HTML of a district page into rows.
//
// Only the first table of the page is read. Its header labels are the text
// of every <th> inside it, in document order. Every <tr> after the first is
// a data row whose <td> cells are paired with the labels by position. The
// first <tr> is always skipped, even when it holds data cells.
//
// Extraction is a pure function of the page text.
package extractor
