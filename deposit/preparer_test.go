package deposit

import (
	"context"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/linkclaim/settle-go/providers"
	"github.com/linkclaim/settle-go/types"
)

const (
	evmRefund    = "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"
	solRecipient = "4Nd1mYvhxxQ6yVuqzCTk5p6tQkdkRBwLbfcCKXGKqVfS"
)

func newClaim(amount string, dest types.TokenRef) *types.Claim {
	return &types.Claim{
		ID:                 "claim-1",
		RequestedAmountUSD: decimal.RequireFromString(amount),
		DestinationToken:   dest,
		RecipientAddress:   solRecipient,
		Status:             types.StatusOpen,
	}
}

func newPreparer() (*Preparer, *providers.FakeQuoteProvider, *providers.FakeCompanionProvider) {
	quote := providers.NewFakeQuoteProvider()
	comps := providers.NewFakeCompanionProvider()
	return NewPreparer(quote, comps, nil), quote, comps
}

// Scenario: claim wants 10 USDC on Solana, payer pays USDC on Solana.
func TestPrepareDirect(t *testing.T) {
	p, quote, _ := newPreparer()
	claim := newClaim("10", types.TokenRef{Symbol: "USDC", Chain: types.ChainSolana})

	intent, err := p.Prepare(context.Background(), claim, types.PathDirect,
		types.TokenRef{Symbol: "USDC", Chain: types.ChainSolana}, "")
	if err != nil {
		t.Fatalf("prepare: %v", err)
	}
	if intent.DepositAddress != claim.RecipientAddress {
		t.Fatalf("direct deposit address %q, want recipient %q", intent.DepositAddress, claim.RecipientAddress)
	}
	if intent.MinDepositFormatted != "10" {
		t.Fatalf("min deposit %q, want 10", intent.MinDepositFormatted)
	}
	if quote.QuoteCalls != 0 {
		t.Fatalf("direct path must not call the quote provider")
	}
	if intent.ID == "" || intent.ClaimID != claim.ID {
		t.Fatalf("intent not linked to claim: %+v", intent)
	}
}

// Scenario: claim wants 50 USDC on Base, payer pays ETH on Base.
func TestPrepareCompanionSwap(t *testing.T) {
	p, quote, comps := newPreparer()
	claim := newClaim("50", types.TokenRef{Symbol: "USDC", Chain: types.ChainBase})
	claim.RecipientAddress = evmRefund
	source := types.TokenRef{Symbol: "ETH", Chain: types.ChainBase}

	intent, err := p.Prepare(context.Background(), claim, types.PathCompanionSwap, source, evmRefund)
	if err != nil {
		t.Fatalf("prepare: %v", err)
	}
	if intent.DepositAddress == "" || intent.DepositAddress == claim.RecipientAddress {
		t.Fatalf("companion swap must issue a fresh deposit address, got %q", intent.DepositAddress)
	}
	if quote.QuoteCalls != 1 {
		t.Fatalf("expected one quote call, got %d", quote.QuoteCalls)
	}

	// Same recipient prepares again after interruption: same companion,
	// so the already-funded address remains usable.
	comp1, _ := comps.GetOrCreate(context.Background(), claim.RecipientAddress)
	second, err := p.Prepare(context.Background(), claim, types.PathCompanionSwap, source, evmRefund)
	if err != nil {
		t.Fatalf("re-prepare: %v", err)
	}
	comp2, _ := comps.GetOrCreate(context.Background(), claim.RecipientAddress)
	if comp1.Address != comp2.Address {
		t.Fatalf("companion changed across prepares")
	}
	if second.ID == intent.ID {
		t.Fatalf("each prepare must mint a new intent id")
	}
}

func TestPrepareCompanionSwapRejectsBadRefund(t *testing.T) {
	p, _, _ := newPreparer()
	claim := newClaim("50", types.TokenRef{Symbol: "USDC", Chain: types.ChainBase})
	claim.RecipientAddress = evmRefund

	for _, refund := range []string{"", "not-an-address", solRecipient} {
		_, err := p.Prepare(context.Background(), claim, types.PathCompanionSwap,
			types.TokenRef{Symbol: "ETH", Chain: types.ChainBase}, refund)
		if types.ErrorCode(err) != types.ErrInvalidAddress {
			t.Fatalf("refund %q: expected INVALID_ADDRESS, got %v", refund, err)
		}
	}
}

// Scenario: claim wants 25 USDC on Solana, payer pays USDC on Ethereum.
func TestPrepareCrossChain(t *testing.T) {
	p, _, _ := newPreparer()
	claim := newClaim("25", types.TokenRef{Symbol: "USDC", Chain: types.ChainSolana})
	source := types.TokenRef{Symbol: "USDC", Chain: types.ChainEthereum}

	intent, err := p.Prepare(context.Background(), claim, types.PathCrossChainIntent, source, evmRefund)
	if err != nil {
		t.Fatalf("prepare: %v", err)
	}
	if intent.QuoteID == "" || intent.Deadline == nil {
		t.Fatalf("cross-chain intent missing quote metadata: %+v", intent)
	}
	if !strings.HasPrefix(intent.DepositAddress, "0x") {
		t.Fatalf("unexpected deposit address %q", intent.DepositAddress)
	}
}

func TestPrepareCrossChainRequiresRefundAddress(t *testing.T) {
	p, _, _ := newPreparer()
	claim := newClaim("25", types.TokenRef{Symbol: "USDC", Chain: types.ChainSolana})
	source := types.TokenRef{Symbol: "USDC", Chain: types.ChainEthereum}

	for _, refund := range []string{"", "garbage", solRecipient} {
		_, err := p.Prepare(context.Background(), claim, types.PathCrossChainIntent, source, refund)
		if types.ErrorCode(err) != types.ErrInvalidAddress {
			t.Fatalf("refund %q: expected INVALID_ADDRESS, got %v", refund, err)
		}
	}
}

func TestPrepareAlreadyPaid(t *testing.T) {
	p, _, _ := newPreparer()
	claim := newClaim("10", types.TokenRef{Symbol: "USDC", Chain: types.ChainSolana})
	claim.Status = types.StatusSuccess

	_, err := p.Prepare(context.Background(), claim, types.PathDirect,
		types.TokenRef{Symbol: "USDC", Chain: types.ChainSolana}, "")
	if types.ErrorCode(err) != types.ErrAlreadyPaid {
		t.Fatalf("expected ALREADY_PAID, got %v", err)
	}
}

func TestPreparePrivatePathNeedsWallet(t *testing.T) {
	p, _, _ := newPreparer()
	claim := newClaim("10", types.TokenRef{Symbol: "USDC", Chain: types.ChainSolana})

	_, err := p.Prepare(context.Background(), claim, types.PathPrivateTransfer,
		types.TokenRef{Symbol: "USDC", Chain: types.ChainSolana}, "")
	if types.ErrorCode(err) != types.ErrWalletRequired {
		t.Fatalf("expected WALLET_REQUIRED, got %v", err)
	}
}

func TestPrepareProviderRejectionMapping(t *testing.T) {
	p, quote, _ := newPreparer()
	claim := newClaim("25", types.TokenRef{Symbol: "USDC", Chain: types.ChainSolana})
	source := types.TokenRef{Symbol: "USDC", Chain: types.ChainEthereum}

	// Typed provider rejections pass through unchanged.
	quote.QuoteErr = types.NewError(types.ErrRouteUnavailable, "no route")
	_, err := p.Prepare(context.Background(), claim, types.PathCrossChainIntent, source, evmRefund)
	if types.ErrorCode(err) != types.ErrRouteUnavailable {
		t.Fatalf("expected ROUTE_UNAVAILABLE, got %v", err)
	}

	// Anything else becomes a retryable provider failure.
	quote.QuoteErr = context.DeadlineExceeded
	_, err = p.Prepare(context.Background(), claim, types.PathCrossChainIntent, source, evmRefund)
	if types.ErrorCode(err) != types.ErrProviderFailure {
		t.Fatalf("expected PROVIDER_FAILURE, got %v", err)
	}
	if !types.IsRetryable(err) {
		t.Fatalf("provider failure must stay retryable")
	}
}

func TestPrepareMissingRecipient(t *testing.T) {
	p, _, _ := newPreparer()
	claim := newClaim("10", types.TokenRef{Symbol: "USDC", Chain: types.ChainSolana})
	claim.RecipientAddress = ""

	_, err := p.Prepare(context.Background(), claim, types.PathDirect,
		types.TokenRef{Symbol: "USDC", Chain: types.ChainSolana}, "")
	if types.ErrorCode(err) != types.ErrInvalidAddress {
		t.Fatalf("expected INVALID_ADDRESS, got %v", err)
	}
}

func TestPrepareZeroAmount(t *testing.T) {
	p, _, _ := newPreparer()
	claim := newClaim("0", types.TokenRef{Symbol: "USDC", Chain: types.ChainSolana})

	_, err := p.Prepare(context.Background(), claim, types.PathDirect,
		types.TokenRef{Symbol: "USDC", Chain: types.ChainSolana}, "")
	if types.ErrorCode(err) != types.ErrInvalidAmount {
		t.Fatalf("expected INVALID_AMOUNT, got %v", err)
	}
}
