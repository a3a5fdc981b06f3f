// Package private drives shielded payouts through the privacy
// settlement provider.
package private

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"

	"github.com/linkclaim/settle-go/logger"
	"github.com/linkclaim/settle-go/providers"
	"github.com/linkclaim/settle-go/types"
)

// Executor computes fee-adjusted amounts and runs the shielded
// deposit+withdraw. It persists SUCCESS itself; failures leave the
// claim status untouched and are retryable.
type Executor struct {
	privacy providers.PrivacyProvider
	store   providers.ClaimStore
	log     logger.Logger
}

func NewExecutor(privacy providers.PrivacyProvider, store providers.ClaimStore, log logger.Logger) *Executor {
	if log == nil {
		log = logger.NoopLogger{}
	}
	return &Executor{
		privacy: privacy,
		store:   store,
		log:     log,
	}
}

// GrossToSend computes the amount that must enter the pool so the
// recipient nets amountUSD. With payer-paid fees the flat rent fee and
// the proportional fee (applied to the gross withdrawal) are grossed up:
//
//	gross = (amount + rentFee) / (1 - feeRate)
//
// so that gross*(1-feeRate) - rentFee == amount.
func GrossToSend(amountUSD decimal.Decimal, fees providers.PrivacyFees, recipientPaysFees bool) decimal.Decimal {
	if recipientPaysFees {
		return amountUSD
	}
	one := decimal.NewFromInt(1)
	return amountUSD.Add(fees.RentFee).Div(one.Sub(fees.FeeRate))
}

// Execute runs the private payout for a claim using the connected
// signer. Returns the pool transaction signature on success.
func (e *Executor) Execute(ctx context.Context, claim *types.Claim, signer providers.Signer) (string, error) {
	if claim.Status == types.StatusSuccess {
		return "", types.NewError(types.ErrAlreadyPaid, "claim is already paid")
	}
	if claim.RecipientAddress == "" {
		return "", types.NewError(types.ErrInvalidAddress, "claim has no recipient address")
	}
	if !claim.RequestedAmountUSD.IsPositive() {
		return "", types.NewError(types.ErrInvalidAmount, "requested amount must be positive")
	}
	if signer == nil {
		return "", types.NewError(types.ErrWalletRequired, "a connected wallet is required for private transfers")
	}
	walletAddr := signer.Address()
	if _, err := solana.PublicKeyFromBase58(walletAddr); err != nil {
		return "", types.NewError(types.ErrWalletRequired,
			fmt.Sprintf("connected wallet %q cannot sign on %s", walletAddr, types.PrivacyPoolChain))
	}

	gross := GrossToSend(claim.RequestedAmountUSD, e.privacy.Fees(), claim.RecipientPaysFees)

	result, err := e.privacy.PayPrivately(ctx, providers.PrivatePayRequest{
		WalletAddress:     walletAddr,
		AmountUSD:         gross,
		RecipientAddress:  claim.RecipientAddress,
		RecipientPaysFees: claim.RecipientPaysFees,
		Signer:            signer,
	})
	if err != nil {
		return "", types.NewError(types.ErrTransferFailed, fmt.Sprintf("private transfer: %v", err))
	}
	if !result.Success {
		e.log.Warn("private transfer failed", map[string]any{
			"claim_id": claim.ID,
			"reason":   result.Error,
		})
		return "", types.NewError(types.ErrTransferFailed, result.Error)
	}

	paidWith := &types.TokenRef{Symbol: types.PrivacyPoolToken, Chain: types.PrivacyPoolChain}
	if err := e.store.UpdateClaimStatus(ctx, claim.ID, types.StatusSuccess, providers.StatusUpdate{
		TxHash:   result.Signature,
		PaidWith: paidWith,
	}); err != nil {
		// The pool already paid out; surface the store failure but keep
		// the signature so the caller can reconcile.
		return result.Signature, types.NewError(types.ErrProviderFailure,
			fmt.Sprintf("private transfer confirmed but status write failed: %v", err))
	}

	e.log.Info("private transfer settled", map[string]any{
		"claim_id":  claim.ID,
		"gross_usd": gross.String(),
		"signature": result.Signature,
	})
	return result.Signature, nil
}
