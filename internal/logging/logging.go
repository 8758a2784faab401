package logging

import (
	"io"
	"log/slog"
	"os"
)

// Init installs the default logger: text on stderr, level from LOG_LEVEL.
func Init() {
	InitTo(os.Stderr)
}

// InitTo is Init writing to w.
func InitTo(w io.Writer) {
	logger := slog.New(
		slog.NewTextHandler(w, &slog.HandlerOptions{
			Level: Level(),
		}),
	)
	slog.SetDefault(logger)
}

// Level reads LOG_LEVEL. Production only shows errors.
func Level() slog.Level {
	level := slog.LevelError

	if l, ok := os.LookupEnv("LOG_LEVEL"); ok {
		switch l {
		case "dev", "development", "debug":
			level = slog.LevelDebug
		case "info":
			level = slog.LevelInfo
		case "warn", "warning":
			level = slog.LevelWarn
		case "error", "production", "prod":
			level = slog.LevelError
		}
	}
	return level
}

// For returns the default logger tagged with component.
func For(component string) *slog.Logger {
	return slog.Default().With("component", component)
}
