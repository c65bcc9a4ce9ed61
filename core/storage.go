package core

import (
	"context"
	"io"
)

// Bucket names are fixed; provisioning creates exactly these.
const (
	BucketAvatars       = "avatars"
	BucketProgramImages = "program-images"
	BucketForumFiles    = "forum-files"
)

var AllBuckets = []string{BucketAvatars, BucketProgramImages, BucketForumFiles}

// FileStorage is any service that can store publicly readable objects
// in named buckets.
type FileStorage interface {
	// EnsureBucket creates the bucket with a public-read policy if it
	// does not exist yet.
	EnsureBucket(ctx context.Context, bucket string) error
	// Upload stores the object and returns its public URL.
	Upload(ctx context.Context, bucket, key, contentType string, body io.Reader) (string, error)
	Remove(ctx context.Context, bucket, key string) error
	PublicURL(bucket, key string) string
}
