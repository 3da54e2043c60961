package model

import (
	"time"
)

// RateTiers holds one percentage per hierarchy tier
type RateTiers struct {
	Admin  Amount `json:"admin"`
	Super  Amount `json:"super"`
	Master Amount `json:"master"`
	Client Amount `json:"client"`
}

// RateSpec is the input of SetRate
type RateSpec struct {
	Commission  RateTiers `json:"commission"`
	Partnership RateTiers `json:"partnership"`
}

// RateContract binds commission/partnership rates to a (party, market) pair.
// Role is copied from the party when the contract is created and never re-derived.
type RateContract struct {
	ID                uint64    `gorm:"primary_key" json:"id"`
	PartyID           uint64    `gorm:"column:party_id;not null;uniqueIndex:rate_contracts_party_market_idx" json:"party_id"`
	MarketID          string    `gorm:"column:market_id;not null;uniqueIndex:rate_contracts_party_market_idx" json:"market_id"`
	Role              PartyRole `gorm:"column:role;not null" json:"role"`
	AdminCommission   Amount    `gorm:"column:admin_commission" sql:"type:decimal(36,18)" json:"admin_commission"`
	SuperCommission   Amount    `gorm:"column:super_commission" sql:"type:decimal(36,18)" json:"super_commission"`
	MasterCommission  Amount    `gorm:"column:master_commission" sql:"type:decimal(36,18)" json:"master_commission"`
	ClientCommission  Amount    `gorm:"column:client_commission" sql:"type:decimal(36,18)" json:"client_commission"`
	AdminPartnership  Amount    `gorm:"column:admin_partnership" sql:"type:decimal(36,18)" json:"admin_partnership"`
	SuperPartnership  Amount    `gorm:"column:super_partnership" sql:"type:decimal(36,18)" json:"super_partnership"`
	MasterPartnership Amount    `gorm:"column:master_partnership" sql:"type:decimal(36,18)" json:"master_partnership"`
	ClientPartnership Amount    `gorm:"column:client_partnership" sql:"type:decimal(36,18)" json:"client_partnership"`
	CreatedAt         time.Time `json:"created_at"`
}

func (RateContract) TableName() string {
	return "rate_contracts"
}

// NewRateContract snapshots role into a new contract
func NewRateContract(partyID uint64, marketID string, role PartyRole, spec RateSpec) *RateContract {
	return &RateContract{
		PartyID:           partyID,
		MarketID:          marketID,
		Role:              role,
		AdminCommission:   NewAmount(spec.Commission.Admin.V),
		SuperCommission:   NewAmount(spec.Commission.Super.V),
		MasterCommission:  NewAmount(spec.Commission.Master.V),
		ClientCommission:  NewAmount(spec.Commission.Client.V),
		AdminPartnership:  NewAmount(spec.Partnership.Admin.V),
		SuperPartnership:  NewAmount(spec.Partnership.Super.V),
		MasterPartnership: NewAmount(spec.Partnership.Master.V),
		ClientPartnership: NewAmount(spec.Partnership.Client.V),
	}
}
