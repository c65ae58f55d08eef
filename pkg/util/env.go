package util

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// LocalEnvFiles returns the .env files consulted by LoadEnv, in priority
// order: the working directory first, then $HOME/.local/bin/.env.
func LocalEnvFiles() []string {
	files := []string{".env"}
	if home, err := os.UserHomeDir(); err == nil && home != "" {
		files = append(files, filepath.Join(home, ".local", "bin", ".env"))
	}
	return files
}

// LoadEnv loads every existing file from LocalEnvFiles. Variables that are
// already set are never overwritten, so earlier files win over later ones.
func LoadEnv() {
	for _, path := range LocalEnvFiles() {
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			_ = godotenv.Load(path)
		}
	}
}

// LoadEnvWithLocalBinFallback loads the local env files and returns the
// value of tokenEnvName.
//
// It returns a descriptive error when the variable is still unset after the
// files were consulted.
func LoadEnvWithLocalBinFallback(tokenEnvName string) (string, error) {
	LoadEnv()
	if v := os.Getenv(tokenEnvName); v != "" {
		return v, nil
	}
	return "", fmt.Errorf("environment variable %q not set; looked in %s", tokenEnvName, strings.Join(LocalEnvFiles(), ", "))
}

// EnvString returns the trimmed value of name, or def when it is blank.
func EnvString(name, def string) string {
	if v := strings.TrimSpace(os.Getenv(name)); v != "" {
		return v
	}
	return def
}

// EnvBool reports whether name holds a truthy value (1, true, yes, on).
func EnvBool(name string) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(name))) {
	case "1", "true", "yes", "y", "on":
		return true
	default:
		return false
	}
}

// EnvInt64 parses name as an integer, returning def when unset or invalid.
func EnvInt64(name string, def int64) int64 {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return def
	}
	return n
}

// EnvInt is EnvInt64 for int values.
func EnvInt(name string, def int) int {
	return int(EnvInt64(name, int64(def)))
}

// EnvDuration parses name with time.ParseDuration. A bare integer is read as
// seconds. def is returned when the value is unset, invalid or not positive.
func EnvDuration(name string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return def
	}
	if n, err := strconv.ParseInt(v, 10, 64); err == nil {
		if n <= 0 {
			return def
		}
		return time.Duration(n) * time.Second
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return def
	}
	return d
}
