// Package logging sets up the global zerolog logger used by the mdtrj packages.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Init sets the global logger to a console logger that writes to stderr,
// tagged with app, and sets the global level to the one named by level
// ("debug", "info", "warn", "error"...). An empty level means info.
func Init(app, level string) (zerolog.Logger, error) {
	return InitTo(os.Stderr, app, level)
}

// InitTo is like Init, but writes to out.
func InitTo(out io.Writer, app, level string) (zerolog.Logger, error) {
	if level == "" {
		level = "info"
	}
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		return log.Logger, err
	}
	zerolog.SetGlobalLevel(lvl)
	output := zerolog.ConsoleWriter{
		Out:        out,
		TimeFormat: time.RFC3339,
		NoColor:    true,
	}
	logger := zerolog.New(output).With().Timestamp().Str("app", app).Logger()
	log.Logger = logger
	return logger, nil
}
