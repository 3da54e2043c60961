package queries

import (
	"context"

	"gitlab.com/kuberbook/settlement_api/model"
)

// SumTransactions partitions the transaction log of the window by user and (type, added_by, payment_for)
func (repo *Repo) SumTransactions(ctx context.Context, window model.Window) ([]model.TransactionBucket, error) {
	buckets := []model.TransactionBucket{}
	window = window.UTC()
	err := repo.Conn.WithContext(ctx).
		Table("transactions").
		Select("user_id, type, added_by, payment_for, SUM(amount) AS total").
		Where("created_at >= ? AND created_at <= ?", window.Start, window.End).
		Group("user_id, type, added_by, payment_for").
		Order("user_id ASC").
		Scan(&buckets).Error
	if err != nil {
		return nil, mapError(err, "transactions")
	}
	return buckets, nil
}

// SumWagers returns staked and won totals per user for the window
func (repo *Repo) SumWagers(ctx context.Context, window model.Window) ([]model.WagerTotals, error) {
	totals := []model.WagerTotals{}
	window = window.UTC()
	err := repo.Conn.WithContext(ctx).
		Table("wagers").
		Select("user_id, SUM(amount) AS staked, SUM(win_amount) AS won").
		Where("created_at >= ? AND created_at <= ?", window.Start, window.End).
		Group("user_id").
		Order("user_id ASC").
		Scan(&totals).Error
	if err != nil {
		return nil, mapError(err, "wagers")
	}
	return totals, nil
}
