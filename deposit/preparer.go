// Package deposit turns a selected settlement path into a concrete
// DepositIntent the payer can fund.
package deposit

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/linkclaim/settle-go/address"
	"github.com/linkclaim/settle-go/logger"
	"github.com/linkclaim/settle-go/providers"
	"github.com/linkclaim/settle-go/types"
)

// request is the validated shape of a Prepare call.
type request struct {
	ClaimID          string `validate:"required"`
	RecipientAddress string `validate:"required"`
	SourceSymbol     string `validate:"required"`
	SourceChain      string `validate:"required"`
}

// Preparer builds deposit intents against the quote and companion
// providers. Stateless apart from the injected collaborators.
type Preparer struct {
	quote      providers.QuoteProvider
	companions providers.CompanionProvider
	validate   *validator.Validate
	log        logger.Logger
}

func NewPreparer(quote providers.QuoteProvider, companions providers.CompanionProvider, log logger.Logger) *Preparer {
	if log == nil {
		log = logger.NoopLogger{}
	}
	return &Preparer{
		quote:      quote,
		companions: companions,
		validate:   validator.New(),
		log:        log,
	}
}

// Prepare builds a new DepositIntent for the claim along the selected
// path. A completed claim is never re-funded. The returned intent's
// deposit address is immutable; retrying after failure means preparing
// a fresh intent.
func (p *Preparer) Prepare(
	ctx context.Context,
	claim *types.Claim,
	path types.SettlementPath,
	source types.TokenRef,
	refundAddress string,
) (*types.DepositIntent, error) {
	if claim.Status == types.StatusSuccess {
		return nil, types.NewError(types.ErrAlreadyPaid, "claim is already paid")
	}
	if !claim.RequestedAmountUSD.IsPositive() {
		return nil, types.NewError(types.ErrInvalidAmount, "requested amount must be positive")
	}

	req := request{
		ClaimID:          claim.ID,
		RecipientAddress: claim.RecipientAddress,
		SourceSymbol:     source.Symbol,
		SourceChain:      source.Chain.String(),
	}
	if err := p.validate.Struct(req); err != nil {
		return nil, validationError(err)
	}

	switch path {
	case types.PathDirect:
		return p.prepareDirect(claim, source), nil
	case types.PathCompanionSwap:
		return p.prepareCompanionSwap(ctx, claim, source, refundAddress)
	case types.PathCrossChainIntent:
		return p.prepareCrossChain(ctx, claim, source, refundAddress)
	case types.PathPrivateTransfer:
		// Explicit private pay goes through the connected wallet and the
		// privacy provider; no deposit address is ever issued for it.
		return nil, types.NewError(types.ErrWalletRequired,
			"private transfers are settled by the connected wallet, not a deposit address")
	default:
		return nil, types.NewError(types.ErrRouteUnavailable, fmt.Sprintf("unknown settlement path %q", path))
	}
}

func (p *Preparer) prepareDirect(claim *types.Claim, source types.TokenRef) *types.DepositIntent {
	return &types.DepositIntent{
		ID:                  uuid.NewString(),
		ClaimID:             claim.ID,
		Path:                types.PathDirect,
		SourceToken:         source,
		DepositAddress:      claim.RecipientAddress,
		MinDepositFormatted: destinationAmount(claim).String(),
	}
}

func (p *Preparer) prepareCompanionSwap(
	ctx context.Context,
	claim *types.Claim,
	source types.TokenRef,
	refundAddress string,
) (*types.DepositIntent, error) {
	// The companion wallet refunds to the payer on a failed swap, so a
	// valid refund address on the source chain is mandatory.
	if !address.Validate(refundAddress, source.Chain) {
		return nil, types.NewError(types.ErrInvalidAddress,
			fmt.Sprintf("a valid refund address on %s is required", source.Chain))
	}

	comp, err := p.companions.GetOrCreate(ctx, claim.RecipientAddress)
	if err != nil {
		return nil, asProviderError(err, "companion wallet allocation")
	}

	quote, err := p.quote.Quote(ctx, providers.QuoteRequest{
		SourceAsset:      source,
		DestinationAsset: claim.DestinationToken,
		Amount:           claim.RequestedAmountUSD,
		RefundAddress:    refundAddress,
		RecipientAddress: comp.Address,
	})
	if err != nil {
		return nil, asProviderError(err, "companion swap quote")
	}

	p.log.Info("companion swap prepared", map[string]any{
		"claim_id":  claim.ID,
		"companion": comp.Address,
		"new":       comp.IsNew,
	})

	return p.intentFromQuote(claim, types.PathCompanionSwap, source, quote), nil
}

func (p *Preparer) prepareCrossChain(
	ctx context.Context,
	claim *types.Claim,
	source types.TokenRef,
	refundAddress string,
) (*types.DepositIntent, error) {
	// Cross-chain intents always need a refund path on the source chain.
	if !address.Validate(refundAddress, source.Chain) {
		return nil, types.NewError(types.ErrInvalidAddress,
			fmt.Sprintf("a valid refund address on %s is required", source.Chain))
	}

	quote, err := p.quote.Quote(ctx, providers.QuoteRequest{
		SourceAsset:      source,
		DestinationAsset: claim.DestinationToken,
		Amount:           claim.RequestedAmountUSD,
		RefundAddress:    refundAddress,
		RecipientAddress: claim.RecipientAddress,
	})
	if err != nil {
		return nil, asProviderError(err, "cross-chain quote")
	}

	p.log.Info("cross-chain intent prepared", map[string]any{
		"claim_id":     claim.ID,
		"source_chain": source.Chain.String(),
		"dest_chain":   claim.DestinationToken.Chain.String(),
		"quote_id":     quote.QuoteID,
	})

	return p.intentFromQuote(claim, types.PathCrossChainIntent, source, quote), nil
}

func (p *Preparer) intentFromQuote(
	claim *types.Claim,
	path types.SettlementPath,
	source types.TokenRef,
	quote *providers.Quote,
) *types.DepositIntent {
	return &types.DepositIntent{
		ID:                  uuid.NewString(),
		ClaimID:             claim.ID,
		Path:                path,
		SourceToken:         source,
		DepositAddress:      quote.DepositAddress,
		Memo:                quote.Memo,
		QuoteID:             quote.QuoteID,
		Deadline:            quote.Deadline,
		MinDepositFormatted: quote.MinDepositFormatted,
		TimeEstimate:        quote.TimeEstimate,
	}
}

// destinationAmount converts the claim's USD amount into destination
// token units when a price is known, else passes the USD figure through
// (stable destinations quote at parity).
func destinationAmount(claim *types.Claim) decimal.Decimal {
	price := claim.DestinationToken.PriceUSD
	if price.IsPositive() {
		return claim.RequestedAmountUSD.DivRound(price, 8)
	}
	return claim.RequestedAmountUSD
}

// validationError maps struct validation failures onto the error
// taxonomy: address fields report INVALID_ADDRESS, everything else is
// a malformed request.
func validationError(err error) *types.SettleError {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, fe := range verrs {
			if fe.Field() == "RecipientAddress" {
				return types.NewError(types.ErrInvalidAddress, "claim has no recipient address")
			}
		}
	}
	return types.NewError(types.ErrInvalidAmount, fmt.Sprintf("invalid prepare request: %v", err))
}

// asProviderError passes through typed provider rejections and wraps
// anything else as a retryable provider failure.
func asProviderError(err error, op string) error {
	if se, ok := err.(*types.SettleError); ok {
		return se
	}
	return types.NewError(types.ErrProviderFailure, fmt.Sprintf("%s: %v", op, err))
}
