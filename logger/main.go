package logger

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/xid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"gitlab.com/kuberbook/settlement_api/monitor"
)

const contextKey = "_log"

// Config for logger
type Config struct {
	// Logger defaults to the global zerolog logger
	Logger *zerolog.Logger
	// SkipPaths are still timed but never logged
	SkipPaths []string
}

func (cfg Config) base() zerolog.Logger {
	if cfg.Logger != nil {
		return *cfg.Logger
	}
	return log.Logger
}

func (cfg Config) quiet() func(path string) bool {
	set := make(map[string]bool, len(cfg.SkipPaths))
	for _, p := range cfg.SkipPaths {
		set[p] = true
	}
	return func(path string) bool { return set[path] }
}

// GetLogger from gin context
func GetLogger(c *gin.Context) zerolog.Logger {
	if l, ok := c.Get(contextKey); ok {
		return l.(zerolog.Logger)
	}
	return log.Logger
}

// SetLogger tags every request with an id, records its duration and logs the outcome
func SetLogger(config ...Config) gin.HandlerFunc {
	cfg := Config{}
	if len(config) > 0 {
		cfg = config[0]
	}
	base := cfg.base()
	isQuiet := cfg.quiet()

	return func(c *gin.Context) {
		began := time.Now()
		requestID := xid.New().String()
		c.Writer.Header().Set("X-Request-Id", requestID)
		reqLog := base.With().Str("request_id", requestID).Logger()
		c.Set(contextKey, reqLog)

		c.Next()

		elapsed := time.Since(began)
		status := c.Writer.Status()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		monitor.APIRequestDuration.
			WithLabelValues(route, c.Request.Method, strconv.Itoa(status)).
			Observe(elapsed.Seconds())

		if isQuiet(c.Request.URL.Path) {
			return
		}
		target := c.Request.URL.Path
		if q := c.Request.URL.RawQuery; q != "" {
			target += "?" + q
		}
		fields := reqLog.With().
			Str("method", c.Request.Method).
			Str("path", target).
			Str("ip", c.ClientIP()).
			Str("user-agent", c.Request.UserAgent()).
			Int("status", status).
			Dur("latency", elapsed)
		if val, ok := c.Get("auth_principal_id"); ok {
			fields = fields.Uint64("principal_id", val.(uint64))
		}
		out := fields.Logger()

		msg := "Request"
		if len(c.Errors) > 0 {
			msg = c.Errors.String()
		}
		switch {
		case status >= http.StatusInternalServerError:
			out.Error().Msg(msg)
		case status >= http.StatusBadRequest:
			out.Warn().Msg(msg)
		default:
			out.Debug().Msg(msg)
		}
	}
}
