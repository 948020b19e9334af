package auth

import "errors"

var (
	ErrInvalidToken            = errors.New("invalid session token")
	ErrUnexpectedSigningMethod = errors.New("unexpected token signing method")
)
