// Package config provides dynamically sourced configuration values with
// typed accessors.
package config

import (
	"context"

	"github.com/pkg/errors"
)

var (
	// ErrNoValue is returned when the underlying source has nothing set.
	ErrNoValue = errors.New("config: no value set")

	// ErrShutdown is returned by a Config used after Shutdown.
	ErrShutdown = errors.New("config: shutdown")
)

// Config is an untyped configuration source. Typed wrappers convert its raw
// values and apply defaults.
type Config interface {
	Get(ctx context.Context) (interface{}, error)

	// Shutdown releases any resources held by the source.
	Shutdown()
}

// Typed configs. Get falls back to a default when nothing usable is set, while
// GetSafe also surfaces source and conversion errors.
type (
	Bool interface {
		Get(ctx context.Context) bool
		GetSafe(ctx context.Context) (bool, error)
		Shutdown()
	}

	Float64 interface {
		Get(ctx context.Context) float64
		GetSafe(ctx context.Context) (float64, error)
		Shutdown()
	}

	Uint64 interface {
		Get(ctx context.Context) uint64
		GetSafe(ctx context.Context) (uint64, error)
		Shutdown()
	}

	String interface {
		Get(ctx context.Context) string
		GetSafe(ctx context.Context) (string, error)
		Shutdown()
	}
)
