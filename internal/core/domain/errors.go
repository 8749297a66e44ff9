package domain

import "errors"

// Sentinel errors for user operations.
var (
	// ErrUserNotFound indicates the requested user does not exist.
	// HTTP Status: 404 Not Found
	ErrUserNotFound = errors.New("user not found")

	// ErrInvalidUserID indicates a path id that is not a positive integer.
	// HTTP Status: 400 Bad Request
	ErrInvalidUserID = errors.New("invalid user id")
)
