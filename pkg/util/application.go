package util

import (
	"os"
	"path/filepath"
	"strings"
)

// DefaultAppName names the per-user directories when no other name is configured.
const DefaultAppName = "guildkit"

// ConfiguredAppName overrides DefaultAppName in every path helper when set.
var ConfiguredAppName string

// SetAppName sets the application name used for data, cache and log paths.
func SetAppName(name string) {
	if strings.TrimSpace(name) == "" {
		return
	}
	ConfiguredAppName = sanitizeName(name)
}

// EffectiveAppName returns the configured application name or DefaultAppName.
func EffectiveAppName() string {
	if n := strings.TrimSpace(ConfiguredAppName); n != "" {
		return n
	}
	return DefaultAppName
}

// GetApplicationCachesPath returns the base path for cache files using the unified OS rules:
//   - Linux/Unix:  ~/.cache/<AppName>
//   - macOS:       ~/Library/Caches/<AppName>
//   - Windows:     %APPDATA%/<AppName>/Cache
func GetApplicationCachesPath() string {
	app := EffectiveAppName()
	if dir := strings.TrimSpace(platformCacheDir(app)); dir != "" {
		return dir
	}
	return filepath.Join(".", "cache", app)
}

// GetDataPath returns the default root of persisted records: <CachesBase>/data.
func GetDataPath() string {
	return filepath.Join(GetApplicationCachesPath(), "data")
}

// GetLogFilePath returns the path to the main log file using the unified OS rules:
//   - Linux/Unix:  ~/.log/<AppName>/guildkit.log
//   - macOS:       ~/Library/Logs/<AppName>/guildkit.log
//   - Windows:     %APPDATA%/<AppName>/Logs/guildkit.log
func GetLogFilePath() string {
	app := EffectiveAppName()
	base := strings.TrimSpace(platformLogDir(app))
	if base == "" {
		base = filepath.Join(".", "logs", app)
	}
	return filepath.Join(base, DefaultAppName+".log")
}

// EnsureDir creates dir and its parents. It is safe to call repeatedly.
func EnsureDir(dir string) error {
	return os.MkdirAll(dir, 0o755)
}

func sanitizeName(s string) string {
	out := strings.TrimSpace(s)
	out = strings.ReplaceAll(out, "/", "-")
	out = strings.ReplaceAll(out, string(filepath.Separator), "-")
	if out == "" {
		return DefaultAppName
	}
	return out
}
