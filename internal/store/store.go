// Package store holds the errors shared by the document store backends.
// Backends live in the memory, postgres and mongo subpackages.
package store

import "errors"

var (
	// ErrNotFound indicates no document matched.
	ErrNotFound = errors.New("store: not found")
	// ErrDuplicate indicates a unique key (email) is already taken.
	ErrDuplicate = errors.New("store: duplicate key")
)
