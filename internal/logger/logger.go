package logger

import (
    "io"
    "os"
    "time"

    "github.com/HamedShams/jirasnow/internal/config"
    "github.com/rs/zerolog"
    "github.com/rs/zerolog/log"
)

// New builds the process logger: console output in dev, JSON elsewhere,
// leveled by LOG_LEVEL, with the service name stamped on every line.
func New(cfg config.Config) zerolog.Logger { return build(cfg, os.Stdout) }

func build(cfg config.Config, out io.Writer) zerolog.Logger {
    level, err := zerolog.ParseLevel(cfg.LogLevel)
    if err != nil || level == zerolog.NoLevel { level = zerolog.InfoLevel }

    zerolog.TimeFieldFormat = time.RFC3339
    if cfg.AppEnv == "dev" {
        out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
    }
    logger := zerolog.New(out).Level(level).With().Timestamp().Str("service", "jirasnow").Logger()
    log.Logger = logger
    return logger
}
