package actions

import (
	"github.com/gin-gonic/gin"
	"gitlab.com/kuberbook/settlement_api/model"
)

// Login godoc
// swagger:route POST /api/v1/login auth login
// Verify the credentials of a party, or of a root admin with admin=true, and issue tokens
func (actions *Actions) Login(c *gin.Context) {
	credentials := model.Credentials{}
	if err := c.ShouldBindJSON(&credentials); err != nil {
		abortWithError(c, BadRequest, "Username and password are required")
		return
	}
	tokens, err := actions.service.Login(c.Request.Context(), credentials)
	if err != nil {
		abortWithModelError(c, err)
		return
	}
	c.JSON(OK, tokens)
}

// Refresh godoc
// swagger:route POST /api/v1/refresh auth refresh
func (actions *Actions) Refresh(c *gin.Context) {
	in := struct {
		RefreshToken string `json:"refresh_token" binding:"required"`
	}{}
	if err := c.ShouldBindJSON(&in); err != nil {
		abortWithError(c, BadRequest, "Refresh token is required")
		return
	}
	tokens, err := actions.service.Refresh(c.Request.Context(), in.RefreshToken)
	if err != nil {
		abortWithModelError(c, err)
		return
	}
	c.JSON(OK, tokens)
}
