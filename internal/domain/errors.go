package domain

import "errors"

var (
	// ErrStorageRead indicates a credential or dataset file could not be parsed.
	ErrStorageRead = errors.New("storage read error")
	// ErrInvalidCredentials is returned for unknown users and wrong passwords alike.
	ErrInvalidCredentials = errors.New("invalid username or password")
	// ErrUsernameTaken is returned when registering a normalized duplicate.
	ErrUsernameTaken = errors.New("username already exists")
	// ErrMissingField is returned when a required form field is empty after trimming.
	ErrMissingField = errors.New("all fields are required")
	// ErrRemoteCall wraps failures of the remote question answering service.
	ErrRemoteCall = errors.New("remote call failed")
	// ErrConfiguration marks missing or invalid startup configuration.
	ErrConfiguration = errors.New("configuration error")
)
