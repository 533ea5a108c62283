package domain

import "errors"

// Sentinel errors for domain operations
var (
	// ErrNotFound indicates the requested record exists neither remotely
	// nor in the local store.
	ErrNotFound = errors.New("record not found")

	// ErrNetworkUnavailable indicates an operation that requires the network
	// was invoked while offline. Only user-initiated network actions
	// (downloads) return this; read paths degrade to local data instead.
	ErrNetworkUnavailable = errors.New("network is unavailable")

	// ErrSourceOffline indicates the content provider is unreachable.
	ErrSourceOffline = errors.New("content source is unreachable")

	// ErrStorageFailure indicates the local store itself failed.
	// Never swallowed: a broken cache cannot serve as a fallback.
	ErrStorageFailure = errors.New("local storage failure")
)
