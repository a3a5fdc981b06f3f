// Package routing decides how payer funds reach a claim's recipient.
package routing

import (
	"fmt"

	"github.com/linkclaim/settle-go/types"
)

// sameChainSwapTokens is the fixed allow-list of tokens the companion
// wallet can swap between on a single EVM chain.
var sameChainSwapTokens = map[string]bool{
	"ETH":  true,
	"WETH": true,
	"USDC": true,
	"USDT": true,
}

// SameChainSwapTokens returns the allow-list symbols, for rendering
// remediation hints.
func SameChainSwapTokens() []string {
	return []string{"ETH", "WETH", "USDC", "USDT"}
}

// SelectPath picks the settlement path for a (source, destination) token
// pair. Pure decision over token metadata; recomputed on every call.
//
// A private claim paying out USDC on a Solana-family chain still returns
// PathCrossChainIntent when the chains differ: the cross-chain leg lands
// in an intermediate custodial wallet first, and the lifecycle machine
// runs the private transfer once the claim reaches
// PRIVATE_TRANSFER_PENDING.
func SelectPath(source, destination types.TokenRef, isPrivate bool) (types.SettlementPath, error) {
	if source.Same(destination) {
		return types.PathDirect, nil
	}

	if source.Chain == destination.Chain {
		if !source.Chain.IsEVM() {
			// Non-EVM same-chain requires the identical token.
			return "", &types.SettleError{
				Code: types.ErrUnsupportedToken,
				Message: fmt.Sprintf("same-chain swaps are not supported on %s; pay with %s directly",
					source.Chain, destination.Symbol),
			}
		}
		if sameChainSwapTokens[source.Symbol] && sameChainSwapTokens[destination.Symbol] {
			return types.PathCompanionSwap, nil
		}
		return "", &types.SettleError{
			Code: types.ErrUnsupportedToken,
			Message: fmt.Sprintf("token pair %s/%s is not swappable on %s; use ETH, WETH, USDC, or USDT",
				source.Symbol, destination.Symbol, source.Chain),
		}
	}

	return types.PathCrossChainIntent, nil
}

// EventualPath returns the path that ultimately delivers funds to the
// recipient. It differs from SelectPath only for private claims paying
// out through the shielding pool, where the cross-chain intent is an
// intermediate leg.
func EventualPath(source, destination types.TokenRef, isPrivate bool) (types.SettlementPath, error) {
	p, err := SelectPath(source, destination, isPrivate)
	if err != nil {
		return "", err
	}
	if p == types.PathCrossChainIntent && isPrivate && isPrivacyPoolDestination(destination) {
		return types.PathPrivateTransfer, nil
	}
	return p, nil
}

func isPrivacyPoolDestination(dest types.TokenRef) bool {
	return dest.Symbol == types.PrivacyPoolToken && dest.Chain.IsSolana()
}
