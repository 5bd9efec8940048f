// Package store provides key-value settings stores used to keep login
// credentials on the device between runs.
//
// Three backends are available: [Memory] for tests and short-lived processes,
// [File] for the on-device YAML settings file, and [Redis] for deployments
// where several processes share one settings namespace.
package store

import "errors"

var (
	// ErrNotFound is returned when an option has never been set or was deleted.
	ErrNotFound = errors.New("option not found")
	// ErrUnavailable wraps backend failures (I/O, network, decoding).
	ErrUnavailable = errors.New("settings store unavailable")
	// ErrEmptyKey is returned for operations on an empty key.
	ErrEmptyKey = errors.New("empty option key")
)
