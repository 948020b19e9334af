package types

import "errors"

var (
	ErrInvalidUsername = errors.New("username must be 1-30 characters, alphanumeric plus underscore/dot/hyphen")
	ErrTextRequired    = errors.New("text field is required")
	ErrTextTooLong     = errors.New("text must be less than 500 characters")
)
