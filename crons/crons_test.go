package crons

import (
	"context"
	"testing"

	"github.com/robfig/cron"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"gitlab.com/kuberbook/settlement_api/config"
)

type countingSettler struct {
	runs int
}

func (s *countingSettler) RunToday(context.Context) {
	s.runs++
}

func TestGetCronByID(t *testing.T) {
	settler := &countingSettler{}

	callback := GetCronByID(DailySettlement, settler)
	assert.NotNil(t, callback)
	callback()
	assert.Equal(t, 1, settler.runs)

	assert.Nil(t, GetCronByID("update_markets_cache", settler))
}

func TestDefaultScheduleParses(t *testing.T) {
	v := viper.New()
	config.SetDefaultVariables(v)
	cfg := config.LoadConfig(v)

	schedule, ok := cfg.Crons[DailySettlement]
	assert.True(t, ok)
	_, err := cron.Parse(schedule)
	assert.NoError(t, err)
}
