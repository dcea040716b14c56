// Package config loads process configuration from the environment,
// following the teacher's src/app.APIEntrypoint convention (an envVars
// struct populated by a mustLoadEnv helper) with the two libraries its
// go.mod declares for the purpose: godotenv to populate the process
// environment from an optional .env file, and envconfig to decode that
// environment into a typed struct.
package config

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Environment selects the logging/runtime profile (spec.md §1 ambient
// stack: "development" gets human-readable logs, anything else gets
// JSON production logs).
type Environment string

const (
	EnvDev  Environment = "dev"
	EnvProd Environment = "prod"
)

// Config is the engine's full set of tunables, every one of them named in
// SPEC_FULL.md's component designs.
type Config struct {
	Environment Environment `envconfig:"ENVIRONMENT" default:"dev"`

	DataDir string `envconfig:"DATA_DIR" default:"./data"`

	// Buffer pool (spec.md §4.3/§4.2).
	PoolSize int `envconfig:"POOL_SIZE" default:"64"`
	LRUKSize int `envconfig:"LRUK_SIZE" default:"2"`

	// Extendible hash table (spec.md §4.1). Loaded but not passed to the
	// buffer pool, whose page table uses the fixed bucket capacity
	// bufferpool.pageTableBuckets.
	BucketSize int `envconfig:"HASH_BUCKET_SIZE" default:"4"`

	// B+ tree (spec.md §4.4).
	InternalMaxSize int `envconfig:"BTREE_INTERNAL_MAX_SIZE" default:"4"`
	LeafMaxSize     int `envconfig:"BTREE_LEAF_MAX_SIZE" default:"4"`

	// Lock manager (spec.md §4.5).
	DeadlockDetectionInterval int `envconfig:"DEADLOCK_DETECTION_INTERVAL_MS" default:"50"`
}

// MustLoad loads a .env file if present (ignoring its absence) and decodes
// the process environment into a Config, panicking on malformed values —
// mirroring the teacher's mustLoadEnv, which treats misconfiguration as a
// startup-time fatal condition rather than a recoverable error.
func MustLoad(envFile string) Config {
	cfg, err := Load(envFile)
	if err != nil {
		panic(fmt.Sprintf("config: %v", err))
	}
	return cfg
}

// Load is the non-panicking counterpart of MustLoad, used by tests and by
// callers that want to handle misconfiguration themselves.
func Load(envFile string) (Config, error) {
	if envFile != "" {
		_ = godotenv.Load(envFile) // a missing .env file is not an error
	}

	var cfg Config
	if err := envconfig.Process("pagedb", &cfg); err != nil {
		return Config{}, fmt.Errorf("config: decoding environment: %w", err)
	}
	return cfg, nil
}
