package server

import (
	"log/slog"
	"os"

	"github.com/reseau-affaires/apiserver/config"
)

// NewLogger returns a slog.Logger writing text or JSON depending on cfg.LogFormat.
func NewLogger(cfg config.Config) *slog.Logger {
	level := slog.LevelInfo
	if cfg.IsDev() {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level, AddSource: cfg.LogFormat == "json"}
	if cfg.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}
