package service

import (
	"context"
	"sort"
	"time"

	"github.com/ericlagergren/decimal"
	"github.com/rs/zerolog/log"
	"gitlab.com/kuberbook/settlement_api/conv"
	"gitlab.com/kuberbook/settlement_api/model"
	"golang.org/x/sync/errgroup"
)

// accountTotals accumulates the activity of one user inside the window
type accountTotals struct {
	staked     *decimal.Big
	won        *decimal.Big
	debit      *decimal.Big
	credit     *decimal.Big
	withdrawal *decimal.Big
}

func newAccountTotals() *accountTotals {
	return &accountTotals{
		staked:     conv.NewDecimalWithPrecision(),
		won:        conv.NewDecimalWithPrecision(),
		debit:      conv.NewDecimalWithPrecision(),
		credit:     conv.NewDecimalWithPrecision(),
		withdrawal: conv.NewDecimalWithPrecision(),
	}
}

// DayKey formats day as a snapshot key in the settlement timezone
func (service *Service) DayKey(day time.Time) string {
	return day.In(service.loc).Format(model.DayFormat)
}

// ComputeAccountSnapshots settles every party, and any user seen in the logs, for the given day.
// It must run only after the logs of the day are closed for writes.
func (service *Service) ComputeAccountSnapshots(ctx context.Context, day time.Time) ([]model.AccountSnapshot, error) {
	logger := log.With().Str("section", "ledger").Str("method", "ComputeAccountSnapshots").Logger()
	window := model.DayWindow(day, service.loc)
	dayKey := window.Start.Format(model.DayFormat)

	var (
		buckets []model.TransactionBucket
		wagers  []model.WagerTotals
		wallets []model.PartyWallet
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		buckets, err = service.repo.SumTransactions(gctx, window)
		return err
	})
	g.Go(func() (err error) {
		wagers, err = service.repo.SumWagers(gctx, window)
		return err
	})
	g.Go(func() (err error) {
		wallets, err = service.repo.ListWallets(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		logger.Error().Err(err).Str("day", dayKey).Msg("Unable to load ledger")
		return nil, asInternal(err, "unable to load ledger for %s", dayKey)
	}

	activity := map[uint64]*accountTotals{}
	totalsOf := func(userID uint64) *accountTotals {
		t, ok := activity[userID]
		if !ok {
			t = newAccountTotals()
			activity[userID] = t
		}
		return t
	}
	for _, bucket := range buckets {
		t := totalsOf(bucket.UserID)
		switch bucket.Type {
		case model.TransactionTypeDebit:
			t.debit.Add(t.debit, bucket.Total.Big())
		case model.TransactionTypeCredit:
			t.credit.Add(t.credit, bucket.Total.Big())
		case model.TransactionTypeWithdraw:
			t.withdrawal.Add(t.withdrawal, bucket.Total.Big())
		default:
			logger.Warn().Str("type", string(bucket.Type)).Uint64("user_id", bucket.UserID).Msg("Unknown transaction type skipped")
		}
	}
	for _, w := range wagers {
		t := totalsOf(w.UserID)
		t.staked.Add(t.staked, w.Staked.Big())
		t.won.Add(t.won, w.Won.Big())
	}

	balances := make(map[uint64]model.Amount, len(wallets))
	users := make([]uint64, 0, len(wallets)+len(activity))
	for _, w := range wallets {
		balances[w.ID] = w.WalletAmount
		users = append(users, w.ID)
	}
	for userID := range activity {
		if _, ok := balances[userID]; !ok {
			users = append(users, userID)
		}
	}
	sort.Slice(users, func(i, j int) bool { return users[i] < users[j] })

	snapshots := make([]model.AccountSnapshot, 0, len(users))
	for _, userID := range users {
		wallet := balances[userID]
		t, active := activity[userID]
		if !active {
			snapshots = append(snapshots, model.NewEmptyAccountSnapshot(userID, dayKey, wallet))
			continue
		}
		snapshots = append(snapshots, model.AccountSnapshot{
			UserID:          userID,
			Day:             dayKey,
			WalletAmount:    model.NewAmount(wallet.Big()),
			TotalStaked:     model.NewAmount(t.staked),
			TotalWon:        model.NewAmount(t.won),
			TotalDebit:      model.NewAmount(t.debit),
			TotalCredit:     model.NewAmount(t.credit),
			TotalWithdrawal: model.NewAmount(t.withdrawal),
		})
	}

	if err := service.repo.SaveAccountSnapshots(ctx, snapshots); err != nil {
		logger.Error().Err(err).Str("day", dayKey).Msg("Unable to save account snapshots")
		return nil, asInternal(err, "unable to save account snapshots for %s", dayKey)
	}
	logger.Info().Str("day", dayKey).Int("accounts", len(snapshots)).Int("active", len(activity)).Msg("Account snapshots generated")
	return snapshots, nil
}

// ComputeGlobalSnapshot stores the sum of every non-blocked wallet under the given day
func (service *Service) ComputeGlobalSnapshot(ctx context.Context, day time.Time) (*model.GlobalSnapshot, error) {
	logger := log.With().Str("section", "ledger").Str("method", "ComputeGlobalSnapshot").Logger()
	dayKey := service.DayKey(day)

	total, err := service.repo.SumActiveWallets(ctx)
	if err != nil {
		logger.Error().Err(err).Str("day", dayKey).Msg("Unable to sum wallets")
		return nil, asInternal(err, "unable to sum wallets for %s", dayKey)
	}
	snapshot := &model.GlobalSnapshot{Day: dayKey, WalletAmount: model.NewAmount(total)}
	if err := service.repo.SaveGlobalSnapshot(ctx, snapshot); err != nil {
		logger.Error().Err(err).Str("day", dayKey).Msg("Unable to save global snapshot")
		return nil, asInternal(err, "unable to save global snapshot for %s", dayKey)
	}
	logger.Info().Str("day", dayKey).Str("wallet_amount", snapshot.WalletAmount.String()).Msg("Global snapshot generated")
	return snapshot, nil
}

// asInternal keeps internal errors as they are and wraps any other kind
func asInternal(err error, format string, args ...interface{}) error {
	if e, ok := err.(*model.Error); ok && e.Kind == model.ErrKindInternal {
		return e
	}
	return model.NewInternalError(err, format, args...)
}
