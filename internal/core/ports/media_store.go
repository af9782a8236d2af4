package ports

import "context"

// MediaStore uploads a local file to durable object storage and returns its
// public URL. Fallible and possibly slow; callers treat one failure as
// terminal (no retry policy at this layer).
type MediaStore interface {
	Upload(ctx context.Context, localPath string) (string, error)
}
