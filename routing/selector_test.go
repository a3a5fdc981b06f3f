package routing

import (
	"testing"

	"github.com/linkclaim/settle-go/types"
)

func tok(symbol string, chain types.Chain) types.TokenRef {
	return types.TokenRef{Symbol: symbol, Chain: chain}
}

func TestSelectPathDirect(t *testing.T) {
	pairs := []types.TokenRef{
		tok("USDC", types.ChainSolana),
		tok("ETH", types.ChainEthereum),
		tok("USDT", types.ChainBase),
		tok("BTC", types.ChainBitcoin),
	}
	for _, p := range pairs {
		got, err := SelectPath(p, p, false)
		if err != nil {
			t.Fatalf("SelectPath(%v, %v): %v", p, p, err)
		}
		if got != types.PathDirect {
			t.Fatalf("expected direct for identical pair %v, got %s", p, got)
		}
	}
}

func TestSelectPathCompanionSwap(t *testing.T) {
	got, err := SelectPath(tok("ETH", types.ChainBase), tok("USDC", types.ChainBase), false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != types.PathCompanionSwap {
		t.Fatalf("expected companion-swap, got %s", got)
	}
}

func TestSelectPathSameChainRejections(t *testing.T) {
	// EVM pair outside the allow-list.
	_, err := SelectPath(tok("SHIB", types.ChainEthereum), tok("USDC", types.ChainEthereum), false)
	if types.ErrorCode(err) != types.ErrUnsupportedToken {
		t.Fatalf("expected UNSUPPORTED_TOKEN, got %v", err)
	}

	// Non-EVM same-chain with different tokens.
	_, err = SelectPath(tok("BONK", types.ChainSolana), tok("USDC", types.ChainSolana), false)
	if types.ErrorCode(err) != types.ErrUnsupportedToken {
		t.Fatalf("expected UNSUPPORTED_TOKEN for non-EVM swap, got %v", err)
	}
}

func TestSelectPathCrossChain(t *testing.T) {
	cases := []struct {
		source, dest types.TokenRef
	}{
		{tok("USDC", types.ChainEthereum), tok("USDC", types.ChainSolana)},
		{tok("ETH", types.ChainBase), tok("USDT", types.ChainArbitrum)},
		{tok("BTC", types.ChainBitcoin), tok("USDC", types.ChainBase)},
	}
	for _, tc := range cases {
		got, err := SelectPath(tc.source, tc.dest, false)
		if err != nil {
			t.Fatalf("SelectPath(%v, %v): %v", tc.source, tc.dest, err)
		}
		if got != types.PathCrossChainIntent {
			t.Fatalf("expected cross-chain-intent for %v -> %v, got %s", tc.source, tc.dest, got)
		}
	}
}

func TestEventualPathPrivate(t *testing.T) {
	source := tok("USDC", types.ChainEthereum)
	dest := tok("USDC", types.ChainSolana)

	// Private claim into the shielding pool destination: eventual leg is
	// a private transfer, but the immediate path stays cross-chain.
	immediate, err := SelectPath(source, dest, true)
	if err != nil || immediate != types.PathCrossChainIntent {
		t.Fatalf("immediate path = %s, %v", immediate, err)
	}
	eventual, err := EventualPath(source, dest, true)
	if err != nil || eventual != types.PathPrivateTransfer {
		t.Fatalf("eventual path = %s, %v", eventual, err)
	}

	// Non-private claim never gets the private leg.
	eventual, err = EventualPath(source, dest, false)
	if err != nil || eventual != types.PathCrossChainIntent {
		t.Fatalf("non-private eventual path = %s, %v", eventual, err)
	}

	// Private claim with a non-pool destination keeps the intent path.
	eventual, err = EventualPath(source, tok("USDC", types.ChainBase), true)
	if err != nil || eventual != types.PathCrossChainIntent {
		t.Fatalf("non-pool eventual path = %s, %v", eventual, err)
	}
}
