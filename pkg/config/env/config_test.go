package env

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/code-payments/stake-disburser/pkg/config"
)

func TestConfigDoesntExist(t *testing.T) {
	const env = "ENV_CONFIG_TEST_VAR"
	t.Setenv(env, "default")

	v, err := NewConfig(env).Get(context.Background())
	assert.Equal(t, []byte("default"), v)
	assert.Nil(t, err)

	t.Setenv(env, "")

	v, err = NewConfig(env).Get(context.Background())
	assert.Nil(t, v)
	assert.Equal(t, config.ErrNoValue, err)
}

func TestConfig_LowerCaseKeyAndWhitespace(t *testing.T) {
	t.Setenv("ENV_CONFIG_TEST_VAR", "  https://example.com \n")

	v, err := NewConfig("env_config_test_var").Get(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, []byte("https://example.com"), v)
}

func TestTypedConfigs(t *testing.T) {
	t.Setenv("ENV_CONFIG_TEST_BOOL", "true")
	t.Setenv("ENV_CONFIG_TEST_FLOAT", "2.5")
	t.Setenv("ENV_CONFIG_TEST_STRING", "value")
	t.Setenv("ENV_CONFIG_TEST_UINT64", "18446744073709551615")

	assert.True(t, NewBoolConfig("ENV_CONFIG_TEST_BOOL", false).Get(context.Background()))
	assert.Equal(t, 2.5, NewFloat64Config("ENV_CONFIG_TEST_FLOAT", 1).Get(context.Background()))
	assert.Equal(t, "value", NewStringConfig("ENV_CONFIG_TEST_STRING", "").Get(context.Background()))
	assert.Equal(t, uint64(18446744073709551615), NewUint64Config("ENV_CONFIG_TEST_UINT64", 0).Get(context.Background()))

	assert.Equal(t, "default", NewStringConfig("ENV_CONFIG_TEST_UNSET", "default").Get(context.Background()))
}
