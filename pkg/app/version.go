package app

import (
	"fmt"
	"strings"
	"sync"
)

var (
	versionMu  sync.RWMutex
	appVersion string
)

// AppVersion is the version reported at startup. Empty when unset.
func AppVersion() string {
	versionMu.RLock()
	defer versionMu.RUnlock()
	return appVersion
}

// SetAppVersion sets the version reported at startup, usually from -ldflags.
func SetAppVersion(v string) {
	versionMu.Lock()
	appVersion = strings.TrimSpace(v)
	versionMu.Unlock()
}

func formatStartupMessage(appName, version string) string {
	appName = strings.TrimSpace(appName)
	version = strings.TrimSpace(version)
	if version == "" {
		return fmt.Sprintf("🚀 Starting %s...", appName)
	}
	return fmt.Sprintf("🚀 Starting %s %s...", appName, version)
}
