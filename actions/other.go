package actions

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"gitlab.com/kuberbook/settlement_api/lib/daylock"
	"gitlab.com/kuberbook/settlement_api/logger"
	"gitlab.com/kuberbook/settlement_api/model"
	"gitlab.com/kuberbook/settlement_api/service/auth_service"
)

// RequestError is the body of every failed request
type RequestError struct {
	Error  string   `json:"error"`
	Kind   string   `json:"kind,omitempty"`
	Fields []string `json:"fields,omitempty"`
}

// Ping godoc
func Ping(c *gin.Context) {
	c.JSON(OK, "pong")
}

func abortWithError(c *gin.Context, code int, message string) {
	l := getlog(c)
	l.Debug().Int("resp_code", code).Msg(message)
	c.AbortWithStatusJSON(code, RequestError{Error: message})
}

// statusOf maps an engine error to its response code
func statusOf(err error) int {
	if errors.Is(err, daylock.ErrRunInProgress) {
		return Conflict
	}
	switch model.ErrorKindOf(err) {
	case model.ErrKindConflict:
		return Conflict
	case model.ErrKindNotFound:
		return NotFound
	case model.ErrKindValidation:
		return ValidationFailed
	}
	return ServerError
}

// abortWithModelError renders err with the status of its kind. Internal causes are logged, never returned.
func abortWithModelError(c *gin.Context, err error) {
	code := statusOf(err)
	l := getlog(c)
	if code == ServerError {
		_ = c.Error(err)
		l.Error().Err(err).Str("section", "actions").Msg("Request failed")
		c.AbortWithStatusJSON(code, RequestError{Error: "Internal server error", Kind: model.ErrKindInternal.String()})
		return
	}
	resp := RequestError{Error: err.Error(), Kind: model.ErrorKindOf(err).String()}
	var e *model.Error
	if errors.As(err, &e) {
		resp.Error = e.Message
		resp.Fields = e.Fields
	}
	if errors.Is(err, daylock.ErrRunInProgress) {
		resp.Error = err.Error()
		resp.Kind = model.ErrKindConflict.String()
	}
	l.Debug().Err(err).Int("resp_code", code).Msg("Request rejected")
	c.AbortWithStatusJSON(code, resp)
}

func getPrincipal(c *gin.Context) (auth_service.PrincipalKind, uint64, bool) {
	iKind, ok := c.Get("auth_principal_kind")
	if !ok {
		return "", 0, false
	}
	iID, ok := c.Get("auth_principal_id")
	if !ok {
		return "", 0, false
	}
	return iKind.(auth_service.PrincipalKind), iID.(uint64), true
}

func getQueryAsInt(c *gin.Context, name string, def int) int {
	val := c.Query(name)
	if val == "" {
		return def
	}
	param, err := strconv.Atoi(val)
	if err != nil {
		return def
	}
	return param
}

func getPagination(c *gin.Context) (int, int) {
	page := getQueryAsInt(c, "page", 1)
	limit := getQueryAsInt(c, "limit", 20)
	return page, limit
}

func getUintParam(c *gin.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		abortWithError(c, BadRequest, "Invalid "+name)
		return 0, false
	}
	return id, true
}

func getlog(c *gin.Context) zerolog.Logger {
	return logger.GetLogger(c)
}
