// Package types holds the domain model shared by every settlement
// component: claims, deposit intents, settlement paths and the typed
// error vocabulary.
package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// ClaimStatus is the persisted lifecycle status of a claim. Only the
// values below are ever written to the claim store; PROCESSING and
// EXPIRED are display-level derivations (see Display and
// DepositIntent.Expired).
type ClaimStatus string

const (
	StatusOpen                   ClaimStatus = "OPEN"
	StatusPendingDeposit         ClaimStatus = "PENDING_DEPOSIT"
	StatusIncompleteDeposit      ClaimStatus = "INCOMPLETE_DEPOSIT"
	StatusInFlight               ClaimStatus = "IN_FLIGHT"
	StatusPrivateTransferPending ClaimStatus = "PRIVATE_TRANSFER_PENDING"
	StatusSuccess                ClaimStatus = "SUCCESS"
	StatusFailed                 ClaimStatus = "FAILED"
	StatusRefunded               ClaimStatus = "REFUNDED"
)

// DisplayProcessing is the UI label for the persisted IN_FLIGHT status.
const DisplayProcessing = "PROCESSING"

// DisplayExpired is the UI label for an intent past its deadline while
// the claim still awaits a deposit. It is never persisted.
const DisplayExpired = "EXPIRED"

// IsTerminal reports whether the status ends the claim lifecycle.
func (s ClaimStatus) IsTerminal() bool {
	return s == StatusSuccess || s == StatusFailed || s == StatusRefunded
}

// Display maps the persisted status to its UI vocabulary.
func (s ClaimStatus) Display() string {
	if s == StatusInFlight {
		return DisplayProcessing
	}
	return string(s)
}

// TokenRef identifies a token on a chain.
type TokenRef struct {
	Symbol   string          `json:"symbol"`
	Chain    Chain           `json:"chain"`
	Decimals int             `json:"decimals,omitempty"`
	PriceUSD decimal.Decimal `json:"priceUsd,omitempty"`
}

// Same reports whether two refs name the same token on the same chain.
func (t TokenRef) Same(o TokenRef) bool {
	return t.Symbol == o.Symbol && t.Chain == o.Chain
}

// Claim is a payment request for a fixed USD amount payable in a
// specific destination token and chain.
type Claim struct {
	ID                 string          `json:"id"`
	RequestedAmountUSD decimal.Decimal `json:"requestedAmountUsd"`
	DestinationToken   TokenRef        `json:"destinationToken"`
	RecipientAddress   string          `json:"recipientAddress"`

	// IsPrivate is set at creation and never changes.
	IsPrivate bool `json:"isPrivate"`

	// RecipientPaysFees selects who absorbs the shielding pool fees on a
	// private payout.
	RecipientPaysFees bool `json:"recipientPaysFees,omitempty"`

	Status    ClaimStatus `json:"status"`
	CreatedAt time.Time   `json:"createdAt"`
	PaidAt    *time.Time  `json:"paidAt,omitempty"`
	PaidWith  *TokenRef   `json:"paidWith,omitempty"`
}

// SettlementPath is the mechanism chosen to move payer funds to the
// recipient. Recomputed from token metadata on every call, never stored.
type SettlementPath string

const (
	PathDirect           SettlementPath = "direct"
	PathCompanionSwap    SettlementPath = "companion-swap"
	PathCrossChainIntent SettlementPath = "cross-chain-intent"
	PathPrivateTransfer  SettlementPath = "private-transfer"
)

// DepositIntent is one funding attempt for a claim. The deposit address
// is immutable once set; a new deposit means a new intent.
type DepositIntent struct {
	ID          string         `json:"id"`
	ClaimID     string         `json:"claimId"`
	Path        SettlementPath `json:"path"`
	SourceToken TokenRef       `json:"sourceToken"`

	DepositAddress      string     `json:"depositAddress"`
	Memo                string     `json:"memo,omitempty"`
	QuoteID             string     `json:"quoteId,omitempty"`
	Deadline            *time.Time `json:"deadline,omitempty"`
	MinDepositFormatted string     `json:"minDepositFormatted,omitempty"`
	TimeEstimate        string     `json:"timeEstimate,omitempty"`

	ProviderStatus    string     `json:"providerStatus,omitempty"`
	DepositReceivedAt *time.Time `json:"depositReceivedAt,omitempty"`
}

// Expired reports whether the intent's quote deadline has passed.
func (d *DepositIntent) Expired(now time.Time) bool {
	return d.Deadline != nil && now.After(*d.Deadline)
}

// ProviderDepositStatus is the quote provider's view of a deposit
// address, normalized by the provider adapter.
type ProviderDepositStatus string

const (
	DepositStatusPending    ProviderDepositStatus = "pending"
	DepositStatusPartial    ProviderDepositStatus = "partial"
	DepositStatusDetected   ProviderDepositStatus = "detected"
	DepositStatusProcessing ProviderDepositStatus = "processing"
	DepositStatusSuccess    ProviderDepositStatus = "success"
	DepositStatusFailed     ProviderDepositStatus = "failed"
	DepositStatusRefunded   ProviderDepositStatus = "refunded"
)

// PollResult is one provider status observation for a deposit address.
type PollResult struct {
	Status                   ProviderDepositStatus `json:"status"`
	OriginAsset              *TokenRef             `json:"originAsset,omitempty"`
	DestinationAsset         *TokenRef             `json:"destinationAsset,omitempty"`
	DepositedAmountFormatted string                `json:"depositedAmountFormatted,omitempty"`
	TxHash                   string                `json:"txHash,omitempty"`
	RefundTxHash             string                `json:"refundTxHash,omitempty"`
}
