// Package config holds the tunables the reconstruction engine and its
// collaborators need, bundled into a single struct rather than scattered
// compile-time constants so callers can override individual fields.
package config

import "time"

// Tunables bundles every configurable constant the reconstruction
// engine and its collaborators need.
type Tunables struct {
	// CacheCapacity bounds the version cache's entry count (default 50).
	CacheCapacity int

	// PinDrainIterations and PinDrainInterval bound the buffer pool's
	// snapshot-get drain wait for in-flight writers (default 4 x
	// 250ms).
	PinDrainIterations int
	PinDrainInterval   time.Duration

	// StatsWrapThreshold is the counter value at which the engine's
	// hit/miss/total stats reset to zero (default 1e9).
	StatsWrapThreshold uint64

	// VerifyFileID gates the optional file-id correspondence check in
	// the add/remove undo handler: required only when this bit is set.
	VerifyFileID bool
}

// Option configures a Tunables value, letting callers override one or
// two fields without repeating every default.
type Option func(*Tunables)

// WithCacheCapacity overrides the version cache capacity.
func WithCacheCapacity(n int) Option {
	return func(t *Tunables) { t.CacheCapacity = n }
}

// WithPinDrain overrides the pin-drain retry budget.
func WithPinDrain(iterations int, interval time.Duration) Option {
	return func(t *Tunables) {
		t.PinDrainIterations = iterations
		t.PinDrainInterval = interval
	}
}

// WithVerifyFileID toggles the add/remove file-id correspondence check.
func WithVerifyFileID(verify bool) Option {
	return func(t *Tunables) { t.VerifyFileID = verify }
}

// Default returns the standard defaults, optionally overridden.
func Default(opts ...Option) Tunables {
	t := Tunables{
		CacheCapacity:      50,
		PinDrainIterations: 4,
		PinDrainInterval:   250 * time.Millisecond,
		StatsWrapThreshold: 1_000_000_000,
		VerifyFileID:       false,
	}
	for _, opt := range opts {
		opt(&t)
	}
	return t
}
