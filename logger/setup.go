package logger

import (
	"os"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Setup applies the log format (json|pretty) and level to the global logger.
// Unknown levels fall back to info.
func Setup(format, level string) {
	if format == "pretty" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)

	gin.SetMode(gin.ReleaseMode)
	if lvl <= zerolog.DebugLevel {
		gin.SetMode(gin.DebugMode)
	}
}
