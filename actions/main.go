package actions

import (
	"gitlab.com/kuberbook/settlement_api/config"
	"gitlab.com/kuberbook/settlement_api/service"
	"gitlab.com/kuberbook/settlement_api/service/settlement"
)

// Actions structure
type Actions struct {
	cfg            config.Config
	service        *service.Service
	scheduler      *settlement.Scheduler
	jwtTokenSecret string
}

// NewActions constructor
func NewActions(cfg config.Config, srv *service.Service, scheduler *settlement.Scheduler) *Actions {
	return &Actions{
		cfg:            cfg,
		service:        srv,
		scheduler:      scheduler,
		jwtTokenSecret: cfg.Server.API.JWTTokenSecret,
	}
}
