package blob

import "context"

// Disabled rejects every blob operation. Used when no bucket is
// configured so the rest of the API keeps working without images.
type Disabled struct{}

func (Disabled) Upload(ctx context.Context, data []byte, key, contentType string) (string, error) {
	return "", ErrStorageDisabled
}

func (Disabled) Delete(ctx context.Context, key string) error {
	return ErrStorageDisabled
}
