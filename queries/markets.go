package queries

import (
	"context"

	"gitlab.com/kuberbook/settlement_api/model"
)

func (repo *Repo) ListMarkets(ctx context.Context) ([]model.Market, error) {
	markets := []model.Market{}
	err := repo.Conn.WithContext(ctx).Order("id ASC").Find(&markets).Error
	if err != nil {
		return nil, mapError(err, "markets")
	}
	return markets, nil
}

// ListTimings returns the timing template rows of a weekday (0 is Sunday)
func (repo *Repo) ListTimings(ctx context.Context, weekday int) ([]model.MarketTiming, error) {
	timings := []model.MarketTiming{}
	err := repo.Conn.WithContext(ctx).Where("weekday = ?", weekday).Order("market_id ASC").Find(&timings).Error
	if err != nil {
		return nil, mapError(err, "market timings")
	}
	return timings, nil
}

// LatestResults returns the most recent declared result of every market
func (repo *Repo) LatestResults(ctx context.Context) ([]model.MarketResult, error) {
	results := []model.MarketResult{}
	err := repo.Conn.WithContext(ctx).
		Raw(`SELECT DISTINCT ON (market_id) * FROM market_results ORDER BY market_id ASC, result_date DESC, id DESC`).
		Scan(&results).Error
	if err != nil {
		return nil, mapError(err, "market results")
	}
	return results, nil
}

// UpdateMarket writes the given columns only, without touching updated_at
func (repo *Repo) UpdateMarket(ctx context.Context, id string, fields map[string]interface{}) error {
	if len(fields) == 0 {
		return nil
	}
	db := repo.Conn.WithContext(ctx).Model(&model.Market{}).Where("id = ?", id).UpdateColumns(fields)
	if db.Error != nil {
		return mapError(db.Error, "market")
	}
	if db.RowsAffected == 0 {
		return model.NewNotFoundError("market %s not found", id)
	}
	return nil
}
