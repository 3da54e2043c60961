package actions

import (
	"github.com/gin-gonic/gin"
	"gitlab.com/kuberbook/settlement_api/model"
)

type rateRequest struct {
	MarketID string `json:"market_id" binding:"required"`
	model.RateSpec
}

// SetRate godoc
// swagger:route POST /api/v1/parties/{id}/rates rates set_rate
func (actions *Actions) SetRate(c *gin.Context) {
	id, ok := getUintParam(c, "id")
	if !ok {
		return
	}
	in := rateRequest{}
	if err := c.ShouldBindJSON(&in); err != nil {
		abortWithError(c, BadRequest, "Invalid request body")
		return
	}
	rate, err := actions.service.SetRate(c.Request.Context(), id, in.MarketID, in.RateSpec)
	if err != nil {
		abortWithModelError(c, err)
		return
	}
	c.JSON(Created, rate)
}

// ListRates godoc
// swagger:route GET /api/v1/parties/{id}/rates rates list_rates
func (actions *Actions) ListRates(c *gin.Context) {
	id, ok := getUintParam(c, "id")
	if !ok || !actions.checkView(c, id) {
		return
	}
	rates, err := actions.service.ListRates(c.Request.Context(), id)
	if err != nil {
		abortWithModelError(c, err)
		return
	}
	c.JSON(OK, rates)
}

// GetRate godoc
// swagger:route GET /api/v1/parties/{id}/rates/{market} rates get_rate
func (actions *Actions) GetRate(c *gin.Context) {
	id, ok := getUintParam(c, "id")
	if !ok || !actions.checkView(c, id) {
		return
	}
	rate, err := actions.service.GetRate(c.Request.Context(), id, c.Param("market"))
	if err != nil {
		abortWithModelError(c, err)
		return
	}
	c.JSON(OK, rate)
}

// DeleteRate godoc
// swagger:route DELETE /api/v1/parties/{id}/rates/{market} rates delete_rate
func (actions *Actions) DeleteRate(c *gin.Context) {
	id, ok := getUintParam(c, "id")
	if !ok {
		return
	}
	market := c.Param("market")
	if err := actions.service.DeleteRate(c.Request.Context(), id, market); err != nil {
		abortWithModelError(c, err)
		return
	}
	c.JSON(OK, map[string]interface{}{"party_id": id, "market_id": market, "deleted": true})
}

// checkView aborts with not found when the principal may not read party id
func (actions *Actions) checkView(c *gin.Context, id uint64) bool {
	party, err := actions.service.GetPartyByID(c.Request.Context(), id)
	if err != nil {
		abortWithModelError(c, err)
		return false
	}
	if !canView(c, &party.Party) {
		abortWithError(c, NotFound, "party not found")
		return false
	}
	return true
}
