package queries

import (
	"context"

	"gitlab.com/kuberbook/settlement_api/model"
)

func (repo *Repo) GetRate(ctx context.Context, partyID uint64, marketID string) (*model.RateContract, error) {
	rate := model.RateContract{}
	err := repo.ConnReader.WithContext(ctx).
		Where("party_id = ? AND market_id = ?", partyID, marketID).
		First(&rate).Error
	if err != nil {
		return nil, mapError(err, "rate contract")
	}
	return &rate, nil
}

// CreateRate inserts a contract, the (party_id, market_id) unique index reports duplicates as conflicts
func (repo *Repo) CreateRate(ctx context.Context, rate *model.RateContract) error {
	return mapError(repo.Conn.WithContext(ctx).Create(rate).Error, "rate contract")
}

func (repo *Repo) DeleteRate(ctx context.Context, partyID uint64, marketID string) error {
	db := repo.Conn.WithContext(ctx).
		Where("party_id = ? AND market_id = ?", partyID, marketID).
		Delete(&model.RateContract{})
	if db.Error != nil {
		return mapError(db.Error, "rate contract")
	}
	if db.RowsAffected == 0 {
		return model.NewNotFoundError("rate contract not found")
	}
	return nil
}

func (repo *Repo) ListRates(ctx context.Context, partyID uint64) ([]model.RateContract, error) {
	rates := []model.RateContract{}
	err := repo.ConnReader.WithContext(ctx).
		Where("party_id = ?", partyID).
		Order("market_id ASC").
		Find(&rates).Error
	if err != nil {
		return nil, mapError(err, "rate contract")
	}
	return rates, nil
}
