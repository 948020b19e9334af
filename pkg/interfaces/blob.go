package interfaces

import "context"

// BlobStorage abstracts the object store used for post, profile and
// message images.
type BlobStorage interface {
	// Upload stores data under key and returns the public URL.
	Upload(ctx context.Context, data []byte, key, contentType string) (string, error)

	// Delete removes the object stored under key. Deleting a missing key
	// is not an error.
	Delete(ctx context.Context, key string) error
}
