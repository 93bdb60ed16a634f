package store

import "fmt"

// SerializationError means an artifact could not be encoded or decoded.
type SerializationError struct {
	Key string
	Err error
}

func (e *SerializationError) Error() string {
	return fmt.Sprintf("store: artifact %q: %v", e.Key, e.Err)
}

func (e *SerializationError) Unwrap() error { return e.Err }
