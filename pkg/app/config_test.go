package app

import (
	"strings"
	"testing"
	"time"

	"github.com/small-frappuccino/guildkit/pkg/storage"
)

func setEnv(t *testing.T, kv map[string]string) {
	t.Helper()
	// An empty working directory keeps a developer's .env out of the test.
	t.Chdir(t.TempDir())
	t.Setenv("HOME", t.TempDir())
	for _, k := range []string{EnvToken, EnvDevGuild, EnvDataDir, EnvStore, EnvCacheSize, EnvSweepInterval, EnvTheme, EnvLogDisable, EnvLogNoFile} {
		t.Setenv(k, "")
	}
	for k, v := range kv {
		t.Setenv(k, v)
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	setEnv(t, map[string]string{EnvToken: "secret"})

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Token != "secret" {
		t.Fatalf("unexpected token %q", cfg.Token)
	}
	if cfg.StoreKind != storage.KindFile {
		t.Fatalf("expected file store by default, got %q", cfg.StoreKind)
	}
	if cfg.CacheSize != defaultCacheSize {
		t.Fatalf("expected cache size %d, got %d", defaultCacheSize, cfg.CacheSize)
	}
	if cfg.SweepInterval != defaultSweepInterval {
		t.Fatalf("expected sweep interval %v, got %v", defaultSweepInterval, cfg.SweepInterval)
	}
	if cfg.DataDir == "" {
		t.Fatalf("expected a default data dir")
	}
	if !cfg.LogToFile || cfg.LogDisabled {
		t.Fatalf("expected file logging enabled by default")
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	dir := t.TempDir()
	setEnv(t, map[string]string{
		EnvToken:         "secret",
		EnvDevGuild:      "123",
		EnvDataDir:       dir,
		EnvStore:         "SQLite",
		EnvCacheSize:     "0",
		EnvSweepInterval: "90s",
		EnvTheme:         "midnight",
		EnvLogDisable:    "true",
		EnvLogNoFile:     "1",
	})

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.DevGuild != "123" || cfg.DataDir != dir || cfg.Theme != "midnight" {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if cfg.StoreKind != storage.KindSQLite {
		t.Fatalf("expected sqlite store, got %q", cfg.StoreKind)
	}
	if cfg.CacheSize != 0 {
		t.Fatalf("expected cache disabled, got %d", cfg.CacheSize)
	}
	if cfg.SweepInterval != 90*time.Second {
		t.Fatalf("expected 90s sweep interval, got %v", cfg.SweepInterval)
	}
	if cfg.LogToFile || !cfg.LogDisabled {
		t.Fatalf("expected logging disabled, got %+v", cfg)
	}
}

func TestLoadConfigRequiresToken(t *testing.T) {
	setEnv(t, nil)

	_, err := LoadConfig()
	if err == nil || !strings.Contains(err.Error(), EnvToken) {
		t.Fatalf("expected missing token error, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	base := Config{Token: "t", StoreKind: storage.KindFile, DataDir: "/data", SweepInterval: time.Minute}

	cases := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "blank token", mutate: func(c *Config) { c.Token = "  " }, wantErr: EnvToken},
		{name: "unknown store", mutate: func(c *Config) { c.StoreKind = "redis" }, wantErr: "unknown store kind"},
		{name: "missing data dir", mutate: func(c *Config) { c.DataDir = "" }, wantErr: EnvDataDir},
		{name: "memory needs no data dir", mutate: func(c *Config) { c.DataDir = ""; c.StoreKind = storage.KindMemory }},
		{name: "zero interval", mutate: func(c *Config) { c.SweepInterval = 0 }, wantErr: EnvSweepInterval},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := base
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tc.wantErr, err)
			}
		})
	}
}
