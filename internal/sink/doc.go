// Package sink provides the destinations a finished document is written to.
//
// A FileSink writes a local file atomically through a temporary file in the
// same directory. A DirMirror is a FileSink for a directory that must
// already exist, such as a mounted cloud drive. A BucketSink writes an
// object to any gocloud.dev blob bucket (s3://, gs://, file://, mem://).
package sink
