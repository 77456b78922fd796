// Package store holds the slot implementations backing the profile gateway.
// Every implementation stores one opaque value and reports an empty slot as
// sentinel.ErrNotFound.
package store

// DefaultKey names the slot in keyed backends.
const DefaultKey = "profile"
