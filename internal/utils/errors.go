package utils

import "errors"

// Common application errors used across services.
var (
	ErrUnauthenticated    = errors.New("UNAUTHENTICATED")
	ErrNotFound           = errors.New("NOT_FOUND")
	ErrConflict           = errors.New("CONFLICT")
	ErrBadRequest         = errors.New("BAD_REQUEST")
	ErrEmailExists        = errors.New("EMAIL_EXISTS")
	ErrInvalidCredentials = errors.New("INVALID_CREDENTIALS")
)
