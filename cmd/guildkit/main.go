package main

import (
	"fmt"
	"os"

	"github.com/small-frappuccino/guildkit/pkg/app"
)

// version is set at build time with -ldflags "-X main.version=...".
var version string

// main is the entry point of the Discord bot.
func main() {
	app.SetAppVersion(version)
	if err := app.Run("guildkit"); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal: %v\n", err)
		os.Exit(1)
	}
}
