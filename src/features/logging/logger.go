package logging

import (
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/contre95/plexify/src/features/config"
)

// SetupLogger builds the slog logger backed by charmbracelet/log. The level
// follows configuration reloads.
func SetupLogger(cfg *config.Manager, w io.Writer) *slog.Logger {
	if w == nil {
		w = os.Stderr
	}
	logCfg := cfg.Get().Logger
	if !logCfg.Enabled {
		w = io.Discard
	}

	var formatter log.Formatter
	switch logCfg.Format {
	case "json":
		formatter = log.JSONFormatter
	case "logfmt":
		formatter = log.LogfmtFormatter
	default:
		formatter = log.TextFormatter
	}

	handler := log.NewWithOptions(w, log.Options{
		ReportCaller:    logCfg.Level == "debug",
		ReportTimestamp: true,
		TimeFormat:      time.DateTime,
		Prefix:          "Plexify",
		Formatter:       formatter,
		Level:           ParseLevel(logCfg.Level),
	})
	cfg.OnChange(func(c *config.Config) {
		handler.SetLevel(ParseLevel(c.Logger.Level))
	})

	logger := slog.New(handler)
	logger.Debug("Logger initialized", "level", logCfg.Level, "format", logCfg.Format)
	return logger
}

// ParseLevel maps a configured level name to a log level. Unknown names mean info.
func ParseLevel(level string) log.Level {
	switch level {
	case "debug":
		return log.DebugLevel
	case "warn":
		return log.WarnLevel
	case "error":
		return log.ErrorLevel
	default:
		return log.InfoLevel
	}
}
