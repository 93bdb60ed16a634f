package cache

import (
	"errors"
	"fmt"
)

var ErrInvalidKey = errors.New("cache: invalid key")

// FetchError means the remote fetch behind a cache miss failed. Nothing was
// written for Key.
type FetchError struct {
	Key string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("cache: fetch %q: %v", e.Key, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// NotFoundError means a lookup succeeded but the requested entity is unknown.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.ID)
}
