package database

import "errors"

var (
	// ErrShortCodeExists is returned when an attempt is made to create
	// a new shortened URL with a short code that already exists.
	// The unique constraint on the short_code column is the source of truth;
	// callers treat this error as a retryable collision.
	ErrShortCodeExists = errors.New("short code exists")
	// ErrURLNotFound is returned when an attempt is made to retrieve
	// a URL using a short code that doesn't exist.
	ErrURLNotFound = errors.New("url not found")
	// ErrForbidden is returned when a requester tries to modify or delete
	// a URL they don't own without being privileged.
	ErrForbidden = errors.New("operation forbidden for requester")
)
