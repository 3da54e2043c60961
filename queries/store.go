package queries

import (
	"context"

	"github.com/ericlagergren/decimal"
	"gitlab.com/kuberbook/settlement_api/model"
)

// PartyStore persists admins and parties
type PartyStore interface {
	GetAdmin(ctx context.Context, id uint64) (*model.Admin, error)
	GetAdminByUsername(ctx context.Context, username string) (*model.Admin, error)
	GetParty(ctx context.Context, id uint64) (*model.Party, error)
	GetPartyWithParent(ctx context.Context, id uint64) (*model.PartyWithParent, error)
	GetPartyByUsername(ctx context.Context, username string) (*model.Party, error)
	// FindDuplicateParty returns a party other than excludeID owning username or mobile
	FindDuplicateParty(ctx context.Context, username, mobile string, excludeID uint64) (*model.Party, error)
	NextSrNo(ctx context.Context) (uint64, error)
	CreateParty(ctx context.Context, party *model.Party) error
	// UpdateParty writes fields and, when move is set, re-parents id and rewrites the uplines of id
	// and its descendants. Either everything is applied or nothing is.
	UpdateParty(ctx context.Context, id uint64, fields map[string]interface{}, move *model.PartyMove) error
	DeleteParty(ctx context.Context, id uint64) error
	ListChildren(ctx context.Context, parentIDs []uint64) ([]model.Party, error)
	SetStatus(ctx context.Context, ids []uint64, field model.StatusField, value bool) (int64, error)
	ListParties(ctx context.Context, filter model.PartyFilter, page, limit int) ([]model.PartyWithParent, int64, error)
}

// WalletStore mutates and reads party balances
type WalletStore interface {
	// IncrementWallet adds amount atomically and appends entry to the transaction log
	IncrementWallet(ctx context.Context, id uint64, amount *decimal.Big, entry *model.TransactionEntry) (*decimal.Big, error)
	ListWallets(ctx context.Context) ([]model.PartyWallet, error)
	SumActiveWallets(ctx context.Context) (*decimal.Big, error)
}

// RateStore persists rate contracts
type RateStore interface {
	GetRate(ctx context.Context, partyID uint64, marketID string) (*model.RateContract, error)
	CreateRate(ctx context.Context, rate *model.RateContract) error
	DeleteRate(ctx context.Context, partyID uint64, marketID string) error
	ListRates(ctx context.Context, partyID uint64) ([]model.RateContract, error)
}

// LedgerStore reads the append-only transaction and wager logs
type LedgerStore interface {
	SumTransactions(ctx context.Context, window model.Window) ([]model.TransactionBucket, error)
	SumWagers(ctx context.Context, window model.Window) ([]model.WagerTotals, error)
}

// SnapshotStore upserts settlement snapshots
type SnapshotStore interface {
	SaveGlobalSnapshot(ctx context.Context, snapshot *model.GlobalSnapshot) error
	GetGlobalSnapshot(ctx context.Context, day string) (*model.GlobalSnapshot, error)
	SaveAccountSnapshots(ctx context.Context, snapshots []model.AccountSnapshot) error
	ListAccountSnapshots(ctx context.Context, day string) ([]model.AccountSnapshot, error)
}

// MarketStore reads market metadata and writes back the fields owned by the batch
type MarketStore interface {
	ListMarkets(ctx context.Context) ([]model.Market, error)
	ListTimings(ctx context.Context, weekday int) ([]model.MarketTiming, error)
	LatestResults(ctx context.Context) ([]model.MarketResult, error)
	UpdateMarket(ctx context.Context, id string, fields map[string]interface{}) error
}

// RunStore keeps the settlement run records
type RunStore interface {
	SaveRun(ctx context.Context, run *model.SettlementRun) error
	GetRun(ctx context.Context, day string) (*model.SettlementRun, error)
}

// Store is everything the engine needs from storage
type Store interface {
	PartyStore
	WalletStore
	RateStore
	LedgerStore
	SnapshotStore
	MarketStore
	RunStore
}
