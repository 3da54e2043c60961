package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"gitlab.com/kuberbook/settlement_api/actions"
	"gitlab.com/kuberbook/settlement_api/config"
	"gitlab.com/kuberbook/settlement_api/logger"
)

// NewRouter registers every route of the api on a new gin engine
func NewRouter(cfg config.Config, a *actions.Actions) *gin.Engine {
	r := gin.New()

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowCredentials = true
	if len(cfg.Server.API.CorsOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.Server.API.CorsOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowHeaders = []string{"Origin", "X-Requested-With", "Content-Length", "Content-Type", "Accept", "Authorization"}
	corsConfig.AllowMethods = []string{"GET", "PUT", "POST", "DELETE", "PATCH", "OPTIONS"}

	r.Use(cors.New(corsConfig))
	r.Use(gin.Recovery()) // Recovery middleware recovers from any panics and writes a 500 if there was one.
	r.Use(logger.SetLogger(logger.Config{SkipPaths: []string{"/ping"}}))

	r.GET("/ping", actions.Ping)

	api := r.Group("/api/v1")
	{
		api.POST("/login", a.Login)
		api.POST("/refresh", a.Refresh)
	}

	parties := api.Group("/parties", a.Restrict())
	{
		parties.POST("", a.CreateParty)
		parties.GET("", a.ListParties)
		parties.GET("/:id", a.GetParty)
		parties.PATCH("/:id", a.AdminOnly(), a.UpdateParty)
		parties.DELETE("/:id", a.AdminOnly(), a.DeleteParty)
		parties.PUT("/:id/status", a.AdminOnly(), a.SetPartyStatus)
		parties.POST("/:id/deposit", a.AdminOnly(), a.Deposit)

		parties.GET("/:id/rates", a.ListRates)
		parties.POST("/:id/rates", a.AdminOnly(), a.SetRate)
		parties.GET("/:id/rates/:market", a.GetRate)
		parties.DELETE("/:id/rates/:market", a.AdminOnly(), a.DeleteRate)
	}

	settlement := api.Group("/settlement", a.Restrict(), a.AdminOnly())
	{
		settlement.POST("/run", a.RunSettlement)
		settlement.POST("/backfill", a.Backfill)
		settlement.GET("/runs/:day", a.GetSettlementRun)
	}

	return r
}
