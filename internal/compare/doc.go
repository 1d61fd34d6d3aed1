// Package compare reports the differences between two prayer time
// documents, typically the documents of two stored runs.
package compare
