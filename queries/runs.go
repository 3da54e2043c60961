package queries

import (
	"context"

	"gitlab.com/kuberbook/settlement_api/model"
	"gorm.io/gorm/clause"
)

// SaveRun inserts the run of a day or overwrites its state
func (repo *Repo) SaveRun(ctx context.Context, run *model.SettlementRun) error {
	err := repo.Conn.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "day"}},
		DoUpdates: clause.AssignmentColumns([]string{"state", "failed_steps", "outcomes", "started_at", "finished_at"}),
	}).Create(run).Error
	return mapError(err, "settlement run")
}

func (repo *Repo) GetRun(ctx context.Context, day string) (*model.SettlementRun, error) {
	run := model.SettlementRun{}
	err := repo.ConnReader.WithContext(ctx).Where("day = ?", day).First(&run).Error
	if err != nil {
		return nil, mapError(err, "settlement run")
	}
	return &run, nil
}
