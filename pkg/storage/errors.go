package storage

import "errors"

var (
	// ErrNotFound indicates the requested blob does not exist.
	ErrNotFound = errors.New("blob not found")
	// ErrEmptyKey indicates an empty storage key was provided.
	ErrEmptyKey = errors.New("storage key must not be empty")
	// ErrEmptyContainer indicates an empty target container name was provided.
	ErrEmptyContainer = errors.New("container name must not be empty")
	// ErrSigningUnavailable indicates the client holds no shared key and cannot
	// sign SAS tokens. It is an expected outcome, not a store fault.
	ErrSigningUnavailable = errors.New("client cannot generate signed URIs")
)
