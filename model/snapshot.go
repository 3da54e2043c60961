package model

import (
	"time"
)

// DayFormat is the layout of day keys
const DayFormat = "2006-01-02"

// GlobalSnapshot is the sum of wallet balances over all non-blocked parties for one day
type GlobalSnapshot struct {
	Day          string    `gorm:"column:day;primary_key" json:"day"`
	WalletAmount Amount    `gorm:"column:wallet_amount" sql:"type:decimal(36,18)" json:"wallet_amount"`
	CreatedAt    time.Time `json:"created_at"`
}

func (GlobalSnapshot) TableName() string {
	return "global_snapshots"
}

// AccountSnapshot is the settled position of one party for one day
type AccountSnapshot struct {
	UserID          uint64    `gorm:"column:user_id;primary_key" json:"user_id"`
	Day             string    `gorm:"column:day;primary_key" json:"day"`
	WalletAmount    Amount    `gorm:"column:wallet_amount" sql:"type:decimal(36,18)" json:"wallet_amount"`
	TotalStaked     Amount    `gorm:"column:total_staked" sql:"type:decimal(36,18)" json:"total_staked"`
	TotalWon        Amount    `gorm:"column:total_won" sql:"type:decimal(36,18)" json:"total_won"`
	TotalDebit      Amount    `gorm:"column:total_debit" sql:"type:decimal(36,18)" json:"total_debit"`
	TotalCredit     Amount    `gorm:"column:total_credit" sql:"type:decimal(36,18)" json:"total_credit"`
	TotalWithdrawal Amount    `gorm:"column:total_withdrawal" sql:"type:decimal(36,18)" json:"total_withdrawal"`
	CreatedAt       time.Time `json:"created_at"`
}

func (AccountSnapshot) TableName() string {
	return "account_snapshots"
}

// NewEmptyAccountSnapshot is the fallback for a user without activity in the window
func NewEmptyAccountSnapshot(userID uint64, day string, wallet Amount) AccountSnapshot {
	return AccountSnapshot{
		UserID:          userID,
		Day:             day,
		WalletAmount:    NewAmount(wallet.Big()),
		TotalStaked:     NewAmount(nil),
		TotalWon:        NewAmount(nil),
		TotalDebit:      NewAmount(nil),
		TotalCredit:     NewAmount(nil),
		TotalWithdrawal: NewAmount(nil),
	}
}
