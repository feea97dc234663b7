package cache

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/rs/zerolog"

	"github.com/goliatone/go-dcache/internal/cacheinfra"
)

// Storage backends accepted by Config.Backend.
const (
	BackendFile   = "file"
	BackendBolt   = "bolt"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

// DefaultDir is the cache location used when none is configured.
const DefaultDir = ".dcache"

// Config exposes cache configuration options for consumers of the cache package.
type Config struct {
	// Dir is the directory holding persisted entries. It is created on demand.
	Dir string `env:"DCACHE_DIR"`

	// Backend selects the storage medium. Default: file
	Backend string `env:"DCACHE_BACKEND"`

	// Digest selects the key hash, sha256 or xxhash. Default: sha256
	Digest string `env:"DCACHE_DIGEST"`

	// LogLevel is used by pkg/di when it builds the logger.
	LogLevel string `env:"DCACHE_LOG_LEVEL"`

	// Memory configures the optional in-process hot layer.
	Memory MemoryConfig `envPrefix:"DCACHE_MEMORY_"`
}

// MemoryConfig mirrors the sturdyc hot layer options.
type MemoryConfig struct {
	Enabled            bool          `env:"ENABLED"`
	Capacity           int           `env:"CAPACITY"`
	NumShards          int           `env:"NUM_SHARDS"`
	TTL                time.Duration `env:"TTL"`
	EvictionPercentage int           `env:"EVICTION_PERCENTAGE"`
}

// DefaultConfig returns a Config populated with sensible defaults.
func DefaultConfig() Config {
	memo := cacheinfra.DefaultMemoConfig()
	return Config{
		Dir:      DefaultDir,
		Backend:  BackendFile,
		Digest:   DigestSHA256,
		LogLevel: "info",
		Memory: MemoryConfig{
			Capacity:           memo.Capacity,
			NumShards:          memo.NumShards,
			TTL:                memo.TTL,
			EvictionPercentage: memo.EvictionPercentage,
		},
	}
}

// ConfigFromEnv returns DefaultConfig overridden by DCACHE_* environment
// variables.
func ConfigFromEnv() (Config, error) {
	cfg := DefaultConfig()
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("cache: parse env: %w", err)
	}
	return cfg, nil
}

// Validate checks whether the configuration values are valid.
func (c Config) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Dir, validation.When(c.Backend != BackendMemory, validation.Required)),
		validation.Field(&c.Backend, validation.In(BackendFile, BackendBolt, BackendSQLite, BackendMemory)),
		validation.Field(&c.Digest, validation.In(DigestSHA256, DigestXXHash)),
		validation.Field(&c.LogLevel, validation.By(validLogLevel)),
		validation.Field(&c.Memory),
	)
}

// validLogLevel accepts any zerolog level name, in any case.
func validLogLevel(value any) error {
	level, _ := value.(string)
	if level == "" {
		return nil
	}
	if _, err := zerolog.ParseLevel(strings.ToLower(level)); err != nil {
		return errors.New("must be a zerolog level")
	}
	return nil
}

// Validate checks the hot layer options; they are only enforced when enabled.
func (m MemoryConfig) Validate() error {
	return validation.ValidateStruct(&m,
		validation.Field(&m.Capacity, validation.When(m.Enabled, validation.Required, validation.Min(1))),
		validation.Field(&m.NumShards, validation.When(m.Enabled, validation.Required, validation.Min(1))),
		validation.Field(&m.TTL, validation.When(m.Enabled, validation.Required)),
		validation.Field(&m.EvictionPercentage, validation.When(m.Enabled, validation.Required, validation.Min(1), validation.Max(100))),
	)
}

func (m MemoryConfig) toInternal() cacheinfra.MemoConfig {
	return cacheinfra.MemoConfig{
		Capacity:           m.Capacity,
		NumShards:          m.NumShards,
		TTL:                m.TTL,
		EvictionPercentage: m.EvictionPercentage,
	}
}

func (c Config) backend() string {
	if c.Backend == "" {
		return BackendFile
	}
	return c.Backend
}

func (c Config) boltPath() string {
	return filepath.Join(c.Dir, "entries.bbolt")
}

func (c Config) sqlitePath() string {
	return filepath.Join(c.Dir, "entries.sqlite")
}
