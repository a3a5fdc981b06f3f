// Package providers declares the external collaborator contracts the
// orchestration core consumes, plus in-memory implementations used in
// tests and examples.
package providers

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/linkclaim/settle-go/types"
)

// QuoteRequest asks the quote/intents provider for a deposit address
// funding destinationAsset with sourceAsset.
type QuoteRequest struct {
	SourceAsset      types.TokenRef
	DestinationAsset types.TokenRef
	Amount           decimal.Decimal
	RefundAddress    string
	RecipientAddress string
}

// Quote is the provider's funding instruction for one deposit attempt.
type Quote struct {
	DepositAddress      string
	Memo                string
	MinDepositFormatted string
	QuoteID             string
	Deadline            *time.Time
	TimeEstimate        string
}

// QuoteProvider turns an asset pair and amount into a deposit address
// and later reports execution status for that address.
type QuoteProvider interface {
	Quote(ctx context.Context, req QuoteRequest) (*Quote, error)
	Status(ctx context.Context, depositAddress string) (*types.PollResult, error)
}

// Companion is a recipient-scoped wallet used to receive same-chain
// funds before an on-chain swap-and-forward.
type Companion struct {
	Address string
	IsNew   bool
}

// CompanionTransaction describes a swap-and-forward execution through a
// companion wallet.
type CompanionTransaction struct {
	RecipientAddress string
	To               string
	Value            decimal.Decimal
	Data             []byte
	MinRequired      decimal.Decimal
}

// CompanionResult reports how a companion transaction ended. Status is
// either "success" or "refunded"; refunded carries the provider-side
// refund reference.
type CompanionResult struct {
	Status       string
	TxHash       string
	RefundTxHash string
	RefundAmount decimal.Decimal
}

const (
	CompanionStatusSuccess  = "success"
	CompanionStatusRefunded = "refunded"
)

// CompanionProvider resolves and drives companion wallets. GetOrCreate
// must be idempotent: the same recipient always maps to the same
// companion address.
type CompanionProvider interface {
	GetOrCreate(ctx context.Context, recipientAddress string) (*Companion, error)
	Execute(ctx context.Context, tx CompanionTransaction) (*CompanionResult, error)
}

// PrivacyFees are the shielding pool's fee constants.
type PrivacyFees struct {
	// RentFee is a flat fee in USD.
	RentFee decimal.Decimal
	// FeeRate is the proportional fee applied to the gross withdrawal,
	// in [0, 1).
	FeeRate decimal.Decimal
}

// PrivatePayRequest asks the privacy provider to shield and withdraw
// funds to the recipient.
type PrivatePayRequest struct {
	WalletAddress     string
	AmountUSD         decimal.Decimal
	RecipientAddress  string
	RecipientPaysFees bool
	Signer            Signer
}

// PrivatePayResult is the outcome of a shielded deposit+withdraw.
type PrivatePayResult struct {
	Success   bool
	Signature string
	Error     string
}

// PrivacyProvider settles funds through a shielding pool for a fee.
type PrivacyProvider interface {
	Fees() PrivacyFees
	PayPrivately(ctx context.Context, req PrivatePayRequest) (*PrivatePayResult, error)
}

// Signer is the "sign and submit" capability of a connected wallet.
// Wallet connection itself is the caller's concern.
type Signer interface {
	Address() string
	SignMessage(ctx context.Context, msg []byte) ([]byte, error)
	SignAndSubmit(ctx context.Context, tx []byte) (string, error)
}

// StatusUpdate carries the optional fields of a claim status write.
type StatusUpdate struct {
	TxHash            string
	PaidWith          *types.TokenRef
	DepositReceivedAt *time.Time
	OriginAsset       *types.TokenRef
	DestinationAsset  *types.TokenRef
}

// ClaimStore reads and writes claim status and metadata.
type ClaimStore interface {
	GetClaim(ctx context.Context, id string) (*types.Claim, error)
	UpdateClaimStatus(ctx context.Context, id string, status types.ClaimStatus, update StatusUpdate) error
}
