package actions

import (
	"strings"

	"github.com/gin-gonic/gin"
	"gitlab.com/kuberbook/settlement_api/logger"
	"gitlab.com/kuberbook/settlement_api/service/auth_service"
)

// Restrict the access to requests carrying a valid access token
func (actions *Actions) Restrict() gin.HandlerFunc {
	return func(c *gin.Context) {
		log := logger.GetLogger(c)
		token := strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
		if token == "" {
			log.Debug().Str("section", "restrict").Msg("Missing token")
			abortWithError(c, Unauthorized, "Unauthorized")
			return
		}
		kind, id, err := auth_service.ParsePrincipal(token, actions.jwtTokenSecret, auth_service.TokenUseAccess)
		if err != nil {
			_ = c.Error(err)
			log.Warn().Err(err).Str("section", "restrict:token").Msg("Invalid token received")
			abortWithError(c, Unauthorized, "Unauthorized")
			return
		}
		c.Set("auth_principal_kind", kind)
		c.Set("auth_principal_id", id)
		c.Next()
	}
}

// AdminOnly middleware, must run after Restrict
func (actions *Actions) AdminOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		kind, _, ok := getPrincipal(c)
		if !ok || kind != auth_service.PrincipalAdmin {
			log := logger.GetLogger(c)
			log.Debug().Str("section", "admin_only").Msg("Invalid access to restricted resource")
			abortWithError(c, AccessDenied, "Access Denied")
			return
		}
		c.Next()
	}
}
