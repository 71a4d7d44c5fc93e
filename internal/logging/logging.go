// Package logging configures the process-wide slog default.
package logging

import (
	"log/slog"
	"os"
)

// Setup installs the default logger for the given server mode. Development
// modes get human-readable text at debug level; prod gets JSON at info.
func Setup(mode string) {
	var handler slog.Handler
	if mode == "prod" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	} else {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		})
	}
	slog.SetDefault(slog.New(handler))
}
