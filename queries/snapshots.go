package queries

import (
	"context"

	"gitlab.com/kuberbook/settlement_api/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const snapshotBatchSize = 500

// SaveGlobalSnapshot inserts or overwrites the row of the snapshot day
func (repo *Repo) SaveGlobalSnapshot(ctx context.Context, snapshot *model.GlobalSnapshot) error {
	err := repo.Conn.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "day"}},
		DoUpdates: clause.AssignmentColumns([]string{"wallet_amount"}),
	}).Create(snapshot).Error
	return mapError(err, "global snapshot")
}

func (repo *Repo) GetGlobalSnapshot(ctx context.Context, day string) (*model.GlobalSnapshot, error) {
	snapshot := model.GlobalSnapshot{}
	err := repo.ConnReader.WithContext(ctx).Where("day = ?", day).First(&snapshot).Error
	if err != nil {
		return nil, mapError(err, "global snapshot")
	}
	return &snapshot, nil
}

// SaveAccountSnapshots upserts every row on (user_id, day) in a single transaction
func (repo *Repo) SaveAccountSnapshots(ctx context.Context, snapshots []model.AccountSnapshot) error {
	if len(snapshots) == 0 {
		return nil
	}
	err := repo.Conn.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}, {Name: "day"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"wallet_amount",
				"total_staked",
				"total_won",
				"total_debit",
				"total_credit",
				"total_withdrawal",
			}),
		}).CreateInBatches(snapshots, snapshotBatchSize).Error
	})
	return mapError(err, "account snapshot")
}

func (repo *Repo) ListAccountSnapshots(ctx context.Context, day string) ([]model.AccountSnapshot, error) {
	snapshots := []model.AccountSnapshot{}
	err := repo.ConnReader.WithContext(ctx).Where("day = ?", day).Order("user_id ASC").Find(&snapshots).Error
	if err != nil {
		return nil, mapError(err, "account snapshot")
	}
	return snapshots, nil
}
