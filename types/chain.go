package types

// Chain identifies a blockchain a token can live on.
type Chain string

const (
	// EVM chains
	ChainEthereum  Chain = "eth"
	ChainBase      Chain = "base"
	ChainArbitrum  Chain = "arbitrum"
	ChainOptimism  Chain = "optimism"
	ChainPolygon   Chain = "polygon"
	ChainBSC       Chain = "bsc"
	ChainAvalanche Chain = "avalanche"

	// Solana chains
	ChainSolana       Chain = "solana"
	ChainSolanaDevnet Chain = "solana-devnet"

	ChainNear    Chain = "near"
	ChainBitcoin Chain = "bitcoin"
)

// PrivacyPoolChain is where the shielding pool settles private payouts.
const PrivacyPoolChain = ChainSolana

// PrivacyPoolToken is the payout token of the shielding pool.
const PrivacyPoolToken = "USDC"

var evmChains = map[Chain]bool{
	ChainEthereum:  true,
	ChainBase:      true,
	ChainArbitrum:  true,
	ChainOptimism:  true,
	ChainPolygon:   true,
	ChainBSC:       true,
	ChainAvalanche: true,
}

// IsEVM reports whether the chain belongs to the EVM family.
func (c Chain) IsEVM() bool {
	return evmChains[c]
}

func (c Chain) IsSolana() bool {
	return c == ChainSolana || c == ChainSolanaDevnet
}

func (c Chain) IsNear() bool {
	return c == ChainNear
}

func (c Chain) IsBitcoin() bool {
	return c == ChainBitcoin
}

// IsKnown reports whether the chain maps to a known address family.
// Unknown chains are treated as EVM by the address validator.
func (c Chain) IsKnown() bool {
	return c.IsEVM() || c.IsSolana() || c.IsNear() || c.IsBitcoin()
}

func (c Chain) String() string {
	return string(c)
}
