package logger

import (
	"log/slog"
	"os"
)

var Logger *slog.Logger

func Init() {
	level := slog.LevelInfo
	if os.Getenv("DEBUG") == "true" {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	Logger = slog.New(slog.NewTextHandler(os.Stdout, opts))
	slog.SetDefault(Logger)
}

func ensure() *slog.Logger {
	if Logger == nil {
		Init()
	}
	return Logger
}

func Info(msg string, args ...any) {
	ensure().Info(msg, args...)
}

func Error(msg string, args ...any) {
	ensure().Error(msg, args...)
}

func Debug(msg string, args ...any) {
	ensure().Debug(msg, args...)
}

func Warn(msg string, args ...any) {
	ensure().Warn(msg, args...)
}
