package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, EnvDev, cfg.Environment)
	assert.Equal(t, 64, cfg.PoolSize)
	assert.Equal(t, 2, cfg.LRUKSize)
	assert.Equal(t, 4, cfg.BucketSize)
}

func TestLoad_OverrideFromEnvironment(t *testing.T) {
	t.Setenv("PAGEDB_POOL_SIZE", "128")
	t.Setenv("PAGEDB_ENVIRONMENT", "prod")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 128, cfg.PoolSize)
	assert.Equal(t, EnvProd, cfg.Environment)
}

func TestMustLoad_PanicsOnBadValue(t *testing.T) {
	t.Setenv("PAGEDB_POOL_SIZE", "not-a-number")
	defer func() {
		r := recover()
		assert.NotNil(t, r)
	}()
	MustLoad("")
}

func TestLoad_MissingEnvFileIsNotAnError(t *testing.T) {
	_, err := Load(os.DevNull + ".does-not-exist")
	require.NoError(t, err)
}
