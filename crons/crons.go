package crons

import (
	"context"
	"time"

	"github.com/robfig/cron"
	"github.com/rs/zerolog/log"
	"gitlab.com/kuberbook/settlement_api/config"
)

// DailySettlement is the id of the cron running the settlement batch
const DailySettlement = "daily_settlement"

// Settler is the part of the settlement scheduler triggered by the crons
type Settler interface {
	RunToday(ctx context.Context)
}

var cronService *cron.Cron

// Start Initiate the crons based on the given configuration file
func Start(crons config.Crons, loc *time.Location, settler Settler) {
	cronService = cron.NewWithLocation(loc)
	for id, schedule := range crons {
		callback := GetCronByID(id, settler)
		if callback == nil {
			log.Warn().Str("section", "crons").Str("cron", id).Msg("Unknown cron id skipped")
			continue
		}
		if err := cronService.AddFunc(schedule, callback); err != nil {
			log.Error().Err(err).Str("section", "crons").Str("cron", id).Str("schedule", schedule).Msg("Unable to schedule cron")
			continue
		}
		log.Info().Str("section", "crons").Str("cron", id).Str("schedule", schedule).Msg("Cron scheduled")
	}
	cronService.Start()
}

// GetCronByID get a function to execute based on the id
func GetCronByID(id string, settler Settler) func() {
	switch id {
	case DailySettlement:
		return func() {
			settler.RunToday(context.Background())
		}
	}
	return nil
}

// Close godoc
func Close() {
	if cronService != nil {
		cronService.Stop()
	}
}
