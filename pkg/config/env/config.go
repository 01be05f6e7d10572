// Package env sources config values from environment variables.
package env

import (
	"context"
	"os"
	"strings"

	"github.com/code-payments/stake-disburser/pkg/config"
	"github.com/code-payments/stake-disburser/pkg/config/wrapper"
)

type envConfig struct {
	value []byte
}

// NewConfig returns a config backed by the environment variable named by the
// upper cased key. The variable is read once, at construction, and surrounding
// whitespace is trimmed. An unset or blank variable reads as config.ErrNoValue.
func NewConfig(key string) config.Config {
	value := strings.TrimSpace(os.Getenv(strings.ToUpper(key)))
	if len(value) == 0 {
		return &envConfig{}
	}
	return &envConfig{value: []byte(value)}
}

// Get implements config.Config.Get
func (c *envConfig) Get(_ context.Context) (interface{}, error) {
	if c.value == nil {
		return nil, config.ErrNoValue
	}
	return c.value, nil
}

// Shutdown implements config.Config.Shutdown
func (c *envConfig) Shutdown() {}

func NewBoolConfig(key string, defaultValue bool) config.Bool {
	return wrapper.NewBoolConfig(NewConfig(key), defaultValue)
}

func NewFloat64Config(key string, defaultValue float64) config.Float64 {
	return wrapper.NewFloat64Config(NewConfig(key), defaultValue)
}

func NewUint64Config(key string, defaultValue uint64) config.Uint64 {
	return wrapper.NewUint64Config(NewConfig(key), defaultValue)
}

func NewStringConfig(key string, defaultValue string) config.String {
	return wrapper.NewStringConfig(NewConfig(key), defaultValue)
}
