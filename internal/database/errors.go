package database

import "errors"

var (
	// ErrNotFound is returned when a record id does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrConcurrentModification signals a lost version race: another
	// session mutated the booking between read and write.
	ErrConcurrentModification = errors.New("booking was modified concurrently")
)
