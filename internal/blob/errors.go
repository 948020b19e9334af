package blob

import "errors"

var (
	ErrBucketRequired  = errors.New("bucket name is required")
	ErrInvalidImage    = errors.New("invalid image payload")
	ErrStorageDisabled = errors.New("blob storage is not configured")
)
