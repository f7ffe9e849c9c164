package logger

import (
	"log/slog"
	"os"
	"strings"
)

var log = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))

// Init switches to JSON output in production and text output everywhere else.
func Init(environment string) {
	if strings.EqualFold(environment, "production") {
		log = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	} else {
		log = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
	slog.SetDefault(log)
}

func Debug(msg string, args ...any) {
	log.Debug(msg, attrs(args)...)
}

func Info(msg string, args ...any) {
	log.Info(msg, attrs(args)...)
}

func Warn(msg string, args ...any) {
	log.Warn(msg, attrs(args)...)
}

func Error(msg string, args ...any) {
	log.Error(msg, attrs(args)...)
}

// Fatal logs at error level and exits the process.
func Fatal(msg string, args ...any) {
	log.Error(msg, attrs(args)...)
	os.Exit(1)
}

// attrs lets callers pass a bare error or value as the first argument,
// e.g. logger.Error("failed", err), without breaking key/value pairing.
func attrs(args []any) []any {
	if len(args)%2 == 0 {
		return args
	}
	return append([]any{"detail"}, args...)
}
