package providers

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/linkclaim/settle-go/types"
)

// FakeQuoteProvider hashes the request to deterministically emulate
// deposit addresses, and replays scripted poll results per address.
type FakeQuoteProvider struct {
	mu      sync.Mutex
	scripts map[string][]types.PollResult

	// QuoteErr, when set, is returned by Quote as-is.
	QuoteErr error
	// StatusErr, when set, is returned by Status once and then cleared,
	// emulating a transient poll failure.
	StatusErr error

	QuoteCalls  int
	StatusCalls int
}

func NewFakeQuoteProvider() *FakeQuoteProvider {
	return &FakeQuoteProvider{scripts: make(map[string][]types.PollResult)}
}

func (f *FakeQuoteProvider) Quote(_ context.Context, req QuoteRequest) (*Quote, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.QuoteCalls++
	if f.QuoteErr != nil {
		return nil, f.QuoteErr
	}

	sum := sha256.Sum256([]byte(req.SourceAsset.Symbol + "|" + req.SourceAsset.Chain.String() +
		"|" + req.DestinationAsset.Symbol + "|" + req.DestinationAsset.Chain.String() + "|" + req.RecipientAddress))
	deadline := time.Now().Add(30 * time.Minute)
	return &Quote{
		DepositAddress:      "0x" + hex.EncodeToString(sum[:20]),
		MinDepositFormatted: req.Amount.String(),
		QuoteID:             hex.EncodeToString(sum[20:28]),
		Deadline:            &deadline,
		TimeEstimate:        "~2m",
	}, nil
}

// Script queues poll results for a deposit address; Status pops them in
// order and keeps returning the last one once drained.
func (f *FakeQuoteProvider) Script(depositAddress string, results ...types.PollResult) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scripts[depositAddress] = append(f.scripts[depositAddress], results...)
}

func (f *FakeQuoteProvider) Status(_ context.Context, depositAddress string) (*types.PollResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.StatusCalls++
	if f.StatusErr != nil {
		err := f.StatusErr
		f.StatusErr = nil
		return nil, err
	}

	queue := f.scripts[depositAddress]
	if len(queue) == 0 {
		return &types.PollResult{Status: types.DepositStatusPending}, nil
	}
	next := queue[0]
	if len(queue) > 1 {
		f.scripts[depositAddress] = queue[1:]
	}
	return &next, nil
}

// FakeCompanionProvider allocates deterministic companion addresses and
// lets tests choose the execution outcome.
type FakeCompanionProvider struct {
	mu         sync.Mutex
	companions map[string]string

	// Refund, when true, makes Execute report a provider-side refund
	// instead of success.
	Refund bool

	ExecuteCalls int
}

func NewFakeCompanionProvider() *FakeCompanionProvider {
	return &FakeCompanionProvider{companions: make(map[string]string)}
}

func (f *FakeCompanionProvider) GetOrCreate(_ context.Context, recipientAddress string) (*Companion, error) {
	if recipientAddress == "" {
		return nil, fmt.Errorf("missing recipient address")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if addr, ok := f.companions[recipientAddress]; ok {
		return &Companion{Address: addr, IsNew: false}, nil
	}
	sum := sha256.Sum256([]byte("companion:" + recipientAddress))
	addr := "0x" + hex.EncodeToString(sum[:20])
	f.companions[recipientAddress] = addr
	return &Companion{Address: addr, IsNew: true}, nil
}

func (f *FakeCompanionProvider) Execute(_ context.Context, tx CompanionTransaction) (*CompanionResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ExecuteCalls++
	if f.Refund {
		return &CompanionResult{
			Status:       CompanionStatusRefunded,
			RefundTxHash: fakeHash("refund:" + tx.RecipientAddress),
			RefundAmount: tx.Value,
		}, nil
	}
	return &CompanionResult{
		Status: CompanionStatusSuccess,
		TxHash: fakeHash("swap:" + tx.RecipientAddress),
	}, nil
}

// FakePrivacyProvider applies its fee constants and reports success
// unless Fail is set.
type FakePrivacyProvider struct {
	RentFee decimal.Decimal
	FeeRate decimal.Decimal

	Fail     bool
	PayCalls int

	mu       sync.Mutex
	LastPaid decimal.Decimal
}

func (f *FakePrivacyProvider) Fees() PrivacyFees {
	return PrivacyFees{RentFee: f.RentFee, FeeRate: f.FeeRate}
}

func (f *FakePrivacyProvider) PayPrivately(_ context.Context, req PrivatePayRequest) (*PrivatePayResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.PayCalls++
	if f.Fail {
		return &PrivatePayResult{Success: false, Error: "relay rejected withdrawal"}, nil
	}
	f.LastPaid = req.AmountUSD
	sum := sha256.Sum256([]byte("private:" + req.RecipientAddress + ":" + req.AmountUSD.String()))
	return &PrivatePayResult{
		Success: true,
		// base58-ish deterministic signature stand-in
		Signature: hex.EncodeToString(sum[:]),
	}, nil
}

// FakeSigner implements Signer with a fixed address.
type FakeSigner struct {
	Addr string
}

func (s *FakeSigner) Address() string { return s.Addr }

func (s *FakeSigner) SignMessage(_ context.Context, msg []byte) ([]byte, error) {
	sum := sha256.Sum256(append([]byte(s.Addr), msg...))
	return sum[:], nil
}

func (s *FakeSigner) SignAndSubmit(_ context.Context, tx []byte) (string, error) {
	sum := sha256.Sum256(append([]byte(s.Addr+":tx"), tx...))
	return hex.EncodeToString(sum[:]), nil
}

// MemoryClaimStore is an in-memory ClaimStore for tests and examples.
type MemoryClaimStore struct {
	mu     sync.RWMutex
	claims map[string]*types.Claim
	now    func() time.Time

	UpdateCalls int
	// LastUpdate captures the most recent StatusUpdate for assertions.
	LastUpdate StatusUpdate
}

func NewMemoryClaimStore() *MemoryClaimStore {
	return &MemoryClaimStore{
		claims: make(map[string]*types.Claim),
		now:    time.Now,
	}
}

// SetClock overrides the timestamp source for paidAt writes.
func (m *MemoryClaimStore) SetClock(now func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
}

func (m *MemoryClaimStore) Put(claim *types.Claim) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *claim
	m.claims[claim.ID] = &cp
}

func (m *MemoryClaimStore) GetClaim(_ context.Context, id string) (*types.Claim, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	claim, ok := m.claims[id]
	if !ok {
		return nil, fmt.Errorf("claim %s not found", id)
	}
	cp := *claim
	return &cp, nil
}

func (m *MemoryClaimStore) UpdateClaimStatus(_ context.Context, id string, status types.ClaimStatus, update StatusUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.UpdateCalls++
	m.LastUpdate = update
	claim, ok := m.claims[id]
	if !ok {
		return fmt.Errorf("claim %s not found", id)
	}
	claim.Status = status
	if update.PaidWith != nil {
		claim.PaidWith = update.PaidWith
	}
	if status == types.StatusSuccess && claim.PaidAt == nil {
		ts := m.now()
		claim.PaidAt = &ts
	}
	return nil
}

func fakeHash(input string) string {
	sum := sha256.Sum256([]byte(input))
	return "0x" + hex.EncodeToString(sum[:])
}
