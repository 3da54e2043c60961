package model

import (
	"time"
)

// TransactionType of an entry in the append-only transaction log
type TransactionType string

const (
	TransactionTypeCredit   TransactionType = "CREDIT"
	TransactionTypeDebit    TransactionType = "DEBIT"
	TransactionTypeWithdraw TransactionType = "WITHDRAW"
)

// PaymentForDeposit marks credits produced by a wallet deposit
const PaymentForDeposit = "deposit"

// TransactionEntry is written by wallet deposits and by the wagering subsystem, never updated
type TransactionEntry struct {
	ID         uint64          `gorm:"primary_key" json:"id"`
	UserID     uint64          `gorm:"column:user_id;not null;index" json:"user_id"`
	Amount     Amount          `gorm:"column:amount" sql:"type:decimal(36,18)" json:"amount"`
	Type       TransactionType `gorm:"column:type;not null" json:"type"`
	AddedBy    uint64          `gorm:"column:added_by" json:"added_by"`
	PaymentFor string          `gorm:"column:payment_for" json:"payment_for"`
	CreatedAt  time.Time       `gorm:"column:created_at;index" json:"created_at"`
}

func (TransactionEntry) TableName() string {
	return "transactions"
}

// WagerEntry is produced by the wagering subsystem and only read here
type WagerEntry struct {
	ID        uint64    `gorm:"primary_key" json:"id"`
	UserID    uint64    `gorm:"column:user_id;not null;index" json:"user_id"`
	MarketID  string    `gorm:"column:market_id" json:"market_id"`
	Amount    Amount    `gorm:"column:amount" sql:"type:decimal(36,18)" json:"amount"`
	WinAmount Amount    `gorm:"column:win_amount" sql:"type:decimal(36,18)" json:"win_amount"`
	CreatedAt time.Time `gorm:"column:created_at;index" json:"created_at"`
}

func (WagerEntry) TableName() string {
	return "wagers"
}

// TransactionBucket is the sum of one (user, type, added_by, payment_for) partition
type TransactionBucket struct {
	UserID     uint64          `gorm:"column:user_id"`
	Type       TransactionType `gorm:"column:type"`
	AddedBy    uint64          `gorm:"column:added_by"`
	PaymentFor string          `gorm:"column:payment_for"`
	Total      Amount          `gorm:"column:total"`
}

// WagerTotals is the per-user sum of stakes and wins in a window
type WagerTotals struct {
	UserID uint64 `gorm:"column:user_id"`
	Staked Amount `gorm:"column:staked"`
	Won    Amount `gorm:"column:won"`
}

// PartyWallet is the current balance of one party
type PartyWallet struct {
	ID           uint64 `gorm:"column:id"`
	WalletAmount Amount `gorm:"column:wallet_amount"`
}

// Window is a closed time range, both ends inclusive
type Window struct {
	Start time.Time
	End   time.Time
}

// DayWindow returns [00:00:00.000, 23:59:59.999] of day in loc
func DayWindow(day time.Time, loc *time.Location) Window {
	d := day.In(loc)
	start := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, loc)
	end := start.AddDate(0, 0, 1).Add(-time.Millisecond)
	return Window{Start: start, End: end}
}

// UTC returns the same instants expressed in UTC
func (w Window) UTC() Window {
	return Window{Start: w.Start.UTC(), End: w.End.UTC()}
}

// Contains reports whether t falls inside the window
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && !t.After(w.End)
}
