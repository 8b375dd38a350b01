// Package session keeps per-browser editor state keyed by a session cookie.
package session

import "context"

type Store[T any] interface {
	Get(ctx context.Context, id string) (T, bool, error)
	Put(ctx context.Context, id string, v T) error
	// Update applies fn to the current value (zero and false if absent)
	// and stores the result atomically. An error from fn leaves the stored
	// value untouched.
	Update(ctx context.Context, id string, fn func(v T, ok bool) (T, error)) (T, error)
	Delete(ctx context.Context, id string) error
	NewID() string
}
