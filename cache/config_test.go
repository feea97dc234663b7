package cache

import (
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if err := cfg.Validate(); err != nil {
		t.Fatalf("DefaultConfig().Validate() error = %v", err)
	}
	if cfg.Dir != DefaultDir {
		t.Errorf("Dir = %q, want %q", cfg.Dir, DefaultDir)
	}
	if cfg.Backend != BackendFile || cfg.Digest != DigestSHA256 {
		t.Errorf("unexpected defaults %+v", cfg)
	}
	if cfg.Memory.Enabled {
		t.Error("memory layer should be disabled by default")
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "defaults", mutate: func(*Config) {}},
		{name: "bolt", mutate: func(c *Config) { c.Backend = BackendBolt }},
		{name: "empty backend means file", mutate: func(c *Config) { c.Backend = "" }},
		{name: "memory without dir", mutate: func(c *Config) { c.Backend = BackendMemory; c.Dir = "" }},
		{name: "file without dir", mutate: func(c *Config) { c.Dir = "" }, wantErr: true},
		{name: "unknown backend", mutate: func(c *Config) { c.Backend = "redis" }, wantErr: true},
		{name: "xxhash digest", mutate: func(c *Config) { c.Digest = DigestXXHash }},
		{name: "unknown digest", mutate: func(c *Config) { c.Digest = "md5" }, wantErr: true},
		{name: "unknown log level", mutate: func(c *Config) { c.LogLevel = "loud" }, wantErr: true},
		{name: "uppercase log level", mutate: func(c *Config) { c.LogLevel = "INFO" }},
		{name: "fatal log level", mutate: func(c *Config) { c.LogLevel = "fatal" }},
		{name: "panic log level", mutate: func(c *Config) { c.LogLevel = "Panic" }},
		{name: "empty log level", mutate: func(c *Config) { c.LogLevel = "" }},
		{name: "memory enabled", mutate: func(c *Config) { c.Memory.Enabled = true }},
		{
			name:    "memory enabled without capacity",
			mutate:  func(c *Config) { c.Memory.Enabled = true; c.Memory.Capacity = 0 },
			wantErr: true,
		},
		{
			name:    "memory eviction over 100",
			mutate:  func(c *Config) { c.Memory.Enabled = true; c.Memory.EvictionPercentage = 150 },
			wantErr: true,
		},
		{
			name:   "memory disabled ignores its fields",
			mutate: func(c *Config) { c.Memory = MemoryConfig{} },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("DCACHE_DIR", "/tmp/dcache-env")
	t.Setenv("DCACHE_BACKEND", "bolt")
	t.Setenv("DCACHE_MEMORY_ENABLED", "true")
	t.Setenv("DCACHE_MEMORY_TTL", "1m")

	cfg, err := ConfigFromEnv()
	if err != nil {
		t.Fatalf("ConfigFromEnv() error = %v", err)
	}

	if cfg.Dir != "/tmp/dcache-env" || cfg.Backend != BackendBolt {
		t.Errorf("env overrides not applied: %+v", cfg)
	}
	if !cfg.Memory.Enabled || cfg.Memory.TTL != time.Minute {
		t.Errorf("memory overrides not applied: %+v", cfg.Memory)
	}
	if cfg.Digest != DigestSHA256 || cfg.Memory.Capacity != DefaultConfig().Memory.Capacity {
		t.Errorf("unset variables should keep defaults: %+v", cfg)
	}
}

func TestConfigFromEnv_InvalidValue(t *testing.T) {
	t.Setenv("DCACHE_MEMORY_CAPACITY", "lots")

	if _, err := ConfigFromEnv(); err == nil {
		t.Error("expected a parse error")
	}
}
