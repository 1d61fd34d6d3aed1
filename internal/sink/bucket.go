package sink

import (
	"context"
	"fmt"

	"gocloud.dev/blob"
	// Drivers for the URL schemes accepted by OpenBucketSink.
	_ "gocloud.dev/blob/fileblob"
	_ "gocloud.dev/blob/gcsblob"
	_ "gocloud.dev/blob/memblob"
	_ "gocloud.dev/blob/s3blob"
)

// BucketSink writes the document as one object of a blob bucket.
type BucketSink struct {
	bucket   *blob.Bucket
	key      string
	location string
}

// OpenBucketSink opens the bucket at bucketURL (s3://, gs://, file://, mem://)
// and returns a sink writing key.
func OpenBucketSink(ctx context.Context, bucketURL, key string) (*BucketSink, error) {
	bucket, err := blob.OpenBucket(ctx, bucketURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open bucket %s: %w", bucketURL, err)
	}
	s := NewBucketSink(bucket, key)
	s.location = fmt.Sprintf("%s (key %s)", bucketURL, key)
	return s, nil
}

// NewBucketSink wraps an already opened bucket.
func NewBucketSink(bucket *blob.Bucket, key string) *BucketSink {
	return &BucketSink{
		bucket:   bucket,
		key:      key,
		location: "bucket key " + key,
	}
}

// Location returns the bucket URL and object key.
func (s *BucketSink) Location() string {
	return s.location
}

// Available checks that the bucket can be reached.
func (s *BucketSink) Available(ctx context.Context) error {
	ok, err := s.bucket.IsAccessible(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMirrorUnavailable, err)
	}
	if !ok {
		return fmt.Errorf("%w: bucket is not accessible", ErrMirrorUnavailable)
	}
	return nil
}

// Write uploads data as a JSON object.
func (s *BucketSink) Write(ctx context.Context, data []byte) error {
	opts := &blob.WriterOptions{ContentType: "application/json; charset=utf-8"}
	if err := s.bucket.WriteAll(ctx, s.key, data, opts); err != nil {
		return fmt.Errorf("failed to write %s: %w", s.key, err)
	}
	return nil
}

// Close releases the bucket.
func (s *BucketSink) Close() error {
	return s.bucket.Close()
}
