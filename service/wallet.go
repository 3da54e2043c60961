package service

import (
	"context"
	"fmt"

	"github.com/ericlagergren/decimal"
	"github.com/rs/zerolog/log"
	"gitlab.com/kuberbook/settlement_api/conv"
	"gitlab.com/kuberbook/settlement_api/model"
)

// Deposit credits a strictly positive amount to the party wallet and returns the new balance
func (service *Service) Deposit(ctx context.Context, partyID uint64, amount *decimal.Big, operatorID uint64) (*decimal.Big, error) {
	if !conv.IsPositive(amount) {
		return nil, model.NewValidationError("amount must be greater than zero", "amount")
	}
	if !conv.FitsPrecision(amount) {
		return nil, model.NewValidationError(fmt.Sprintf("amount supports at most %d decimal places", conv.AmountPrecision), "amount")
	}
	amount = conv.CloneToPrecision(amount)

	entry := &model.TransactionEntry{
		UserID:     partyID,
		Amount:     model.NewAmount(amount),
		Type:       model.TransactionTypeCredit,
		AddedBy:    operatorID,
		PaymentFor: model.PaymentForDeposit,
		CreatedAt:  service.clock().UTC(),
	}
	balance, err := service.repo.IncrementWallet(ctx, partyID, amount, entry)
	if err != nil {
		log.Error().Err(err).Str("section", "wallet").Str("method", "Deposit").Uint64("party_id", partyID).Msg("Unable to deposit")
		return nil, err
	}
	log.Info().
		Str("section", "wallet").
		Str("method", "Deposit").
		Uint64("party_id", partyID).
		Uint64("added_by", operatorID).
		Str("amount", amount.String()).
		Str("balance", balance.String()).
		Msg("Deposit applied")
	return balance, nil
}
