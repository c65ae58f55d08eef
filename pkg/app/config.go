package app

import (
	"fmt"
	"strings"
	"time"

	"github.com/small-frappuccino/guildkit/pkg/storage"
	"github.com/small-frappuccino/guildkit/pkg/util"
)

// Environment variables read by LoadConfig.
const (
	EnvToken         = "GUILDKIT_TOKEN"
	EnvDevGuild      = "GUILDKIT_DEV_GUILD"
	EnvDataDir       = "GUILDKIT_DATA_DIR"
	EnvStore         = "GUILDKIT_STORE"
	EnvCacheSize     = "GUILDKIT_CACHE_SIZE"
	EnvSweepInterval = "GUILDKIT_SWEEP_INTERVAL"
	EnvTheme         = "GUILDKIT_THEME"
	EnvLogDisable    = "GUILDKIT_LOG_DISABLE"
	EnvLogNoFile     = "GUILDKIT_LOG_NO_FILE"
)

const (
	defaultCacheSize     = 256
	defaultSweepInterval = time.Minute
)

// Config is the runtime configuration of the bot.
type Config struct {
	Token string
	// DevGuild scopes command schemas to one guild. Empty publishes them globally.
	DevGuild      string
	DataDir       string
	StoreKind     string
	CacheSize     int
	SweepInterval time.Duration
	Theme         string
	LogDisabled   bool
	LogToFile     bool
}

// LoadConfig reads Config from the process environment after loading the
// local .env files.
func LoadConfig() (Config, error) {
	token, err := util.LoadEnvWithLocalBinFallback(EnvToken)
	cfg := Config{
		Token:         token,
		DevGuild:      util.EnvString(EnvDevGuild, ""),
		DataDir:       util.EnvString(EnvDataDir, util.GetDataPath()),
		StoreKind:     strings.ToLower(util.EnvString(EnvStore, storage.KindFile)),
		CacheSize:     util.EnvInt(EnvCacheSize, defaultCacheSize),
		SweepInterval: util.EnvDuration(EnvSweepInterval, defaultSweepInterval),
		Theme:         util.EnvString(EnvTheme, ""),
		LogDisabled:   util.EnvBool(EnvLogDisable),
		LogToFile:     !util.EnvBool(EnvLogNoFile),
	}
	if err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

// Validate reports the first invalid field.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Token) == "" {
		return fmt.Errorf("%s is required", EnvToken)
	}
	switch c.StoreKind {
	case storage.KindFile, storage.KindSQLite, storage.KindMemory:
	default:
		return fmt.Errorf("%s: unknown store kind %q", EnvStore, c.StoreKind)
	}
	if c.DataDir == "" && c.StoreKind != storage.KindMemory {
		return fmt.Errorf("%s is required for the %s store", EnvDataDir, c.StoreKind)
	}
	if c.SweepInterval <= 0 {
		return fmt.Errorf("%s must be positive", EnvSweepInterval)
	}
	return nil
}
