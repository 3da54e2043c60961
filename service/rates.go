package service

import (
	"context"
	"strings"

	"github.com/ericlagergren/decimal"
	"github.com/rs/zerolog/log"
	"gitlab.com/kuberbook/settlement_api/conv"
	"gitlab.com/kuberbook/settlement_api/model"
)

var hundredPercent = decimal.New(100, 0)

// SetRate creates the contract of a (party, market) pair, copying the party's current role
func (service *Service) SetRate(ctx context.Context, partyID uint64, marketID string, spec model.RateSpec) (*model.RateContract, error) {
	marketID = strings.TrimSpace(marketID)
	if marketID == "" {
		return nil, model.NewValidationError("market is required", "market_id")
	}
	if invalid := invalidPercentages(spec); len(invalid) > 0 {
		return nil, model.NewValidationError("percentages must be between 0 and 100", invalid...)
	}
	party, err := service.repo.GetParty(ctx, partyID)
	if err != nil {
		return nil, err
	}
	if _, err := service.repo.GetRate(ctx, partyID, marketID); err == nil {
		return nil, model.NewConflictError("rate contract for market %s already exists", marketID)
	} else if model.ErrorKindOf(err) != model.ErrKindNotFound {
		return nil, err
	}

	rate := model.NewRateContract(party.ID, marketID, party.Role, spec)
	if err := service.repo.CreateRate(ctx, rate); err != nil {
		return nil, err
	}
	log.Info().
		Str("section", "rates").
		Str("method", "SetRate").
		Uint64("party_id", partyID).
		Str("market_id", marketID).
		Str("role", rate.Role.String()).
		Msg("Rate contract created")
	return rate, nil
}

func (service *Service) GetRate(ctx context.Context, partyID uint64, marketID string) (*model.RateContract, error) {
	return service.repo.GetRate(ctx, partyID, marketID)
}

func (service *Service) DeleteRate(ctx context.Context, partyID uint64, marketID string) error {
	return service.repo.DeleteRate(ctx, partyID, marketID)
}

// ListRates returns every contract of an existing party
func (service *Service) ListRates(ctx context.Context, partyID uint64) ([]model.RateContract, error) {
	if _, err := service.repo.GetParty(ctx, partyID); err != nil {
		return nil, err
	}
	return service.repo.ListRates(ctx, partyID)
}

func invalidPercentages(spec model.RateSpec) []string {
	invalid := []string{}
	check := func(name string, v model.Amount) {
		b := v.Big()
		if !conv.FitsPrecision(b) || b.Sign() < 0 || b.Cmp(hundredPercent) > 0 {
			invalid = append(invalid, name)
		}
	}
	for _, group := range []struct {
		name  string
		tiers model.RateTiers
	}{
		{"commission", spec.Commission},
		{"partnership", spec.Partnership},
	} {
		check(group.name+".admin", group.tiers.Admin)
		check(group.name+".super", group.tiers.Super)
		check(group.name+".master", group.tiers.Master)
		check(group.name+".client", group.tiers.Client)
	}
	return invalid
}
