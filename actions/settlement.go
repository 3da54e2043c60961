package actions

import (
	"github.com/gin-gonic/gin"
	"gitlab.com/kuberbook/settlement_api/model"
)

type runRequest struct {
	// Day defaults to today in the settlement timezone
	Day  string         `json:"day"`
	Step model.StepName `json:"step"`
}

type backfillRequest struct {
	From string `json:"from" binding:"required"`
	To   string `json:"to" binding:"required"`
}

// RunSettlement godoc
// swagger:route POST /api/v1/settlement/run settlement run
// Re-runs the whole batch of a day, or a single step when step is given
func (actions *Actions) RunSettlement(c *gin.Context) {
	in := runRequest{}
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&in); err != nil {
			abortWithError(c, BadRequest, "Invalid request body")
			return
		}
	}
	day := actions.scheduler.Today()
	if in.Day != "" {
		var err error
		if day, err = actions.scheduler.ParseDay(in.Day); err != nil {
			abortWithModelError(c, err)
			return
		}
	}

	if in.Step != "" {
		if !in.Step.IsValid() {
			abortWithModelError(c, model.NewValidationError("unknown settlement step", "step"))
			return
		}
		outcome, err := actions.scheduler.RunStep(c.Request.Context(), in.Step, day)
		if err != nil {
			abortWithModelError(c, err)
			return
		}
		c.JSON(OK, outcome)
		return
	}

	run, err := actions.scheduler.Run(c.Request.Context(), day)
	if err != nil {
		abortWithModelError(c, err)
		return
	}
	c.JSON(OK, run)
}

// Backfill godoc
// swagger:route POST /api/v1/settlement/backfill settlement backfill
func (actions *Actions) Backfill(c *gin.Context) {
	in := backfillRequest{}
	if err := c.ShouldBindJSON(&in); err != nil {
		abortWithError(c, BadRequest, "From and to are required")
		return
	}
	from, err := actions.scheduler.ParseDay(in.From)
	if err != nil {
		abortWithModelError(c, err)
		return
	}
	to, err := actions.scheduler.ParseDay(in.To)
	if err != nil {
		abortWithModelError(c, err)
		return
	}
	runs, err := actions.scheduler.Backfill(c.Request.Context(), from, to)
	if err != nil {
		abortWithModelError(c, err)
		return
	}
	c.JSON(OK, runs)
}

// GetSettlementRun godoc
// swagger:route GET /api/v1/settlement/runs/{day} settlement get_run
func (actions *Actions) GetSettlementRun(c *gin.Context) {
	run, err := actions.scheduler.GetRun(c.Request.Context(), c.Param("day"))
	if err != nil {
		abortWithModelError(c, err)
		return
	}
	c.JSON(OK, run)
}
