// Package companion manages recipient-scoped companion wallets used to
// receive same-chain funds before a swap-and-forward.
package companion

import (
	"context"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/linkclaim/settle-go/providers"
	"github.com/linkclaim/settle-go/types"
)

// Backend executes swap-and-forward transactions through an allocated
// companion wallet.
type Backend interface {
	Execute(ctx context.Context, tx providers.CompanionTransaction) (*providers.CompanionResult, error)
}

// Wallets allocates companion addresses deterministically per recipient.
// The same recipient always resolves to the same companion, so an
// interrupted funding flow can resume against the address already shown
// to the payer.
type Wallets struct {
	mu          sync.Mutex
	byRecipient map[string]string
	backend     Backend
}

var _ providers.CompanionProvider = (*Wallets)(nil)

func New(backend Backend) *Wallets {
	return &Wallets{
		byRecipient: make(map[string]string),
		backend:     backend,
	}
}

// GetOrCreate resolves the companion wallet for a recipient. Idempotent:
// repeated calls return the same companion and never allocate a second
// address.
func (w *Wallets) GetOrCreate(_ context.Context, recipientAddress string) (*providers.Companion, error) {
	if recipientAddress == "" {
		return nil, types.NewError(types.ErrInvalidAddress, "recipient address is required")
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if addr, ok := w.byRecipient[recipientAddress]; ok {
		return &providers.Companion{Address: addr, IsNew: false}, nil
	}

	addr := deriveAddress(recipientAddress)
	w.byRecipient[recipientAddress] = addr
	return &providers.Companion{Address: addr, IsNew: true}, nil
}

// Execute runs a swap-and-forward through the backend.
func (w *Wallets) Execute(ctx context.Context, tx providers.CompanionTransaction) (*providers.CompanionResult, error) {
	if w.backend == nil {
		return nil, types.NewError(types.ErrProviderFailure, "no companion execution backend configured")
	}
	result, err := w.backend.Execute(ctx, tx)
	if err != nil {
		return nil, types.NewError(types.ErrProviderFailure, fmt.Sprintf("companion execution: %v", err))
	}
	return result, nil
}

// deriveAddress maps a recipient to a stable companion address.
func deriveAddress(recipient string) string {
	digest := crypto.Keccak256([]byte("companion/v1/" + recipient))
	return common.BytesToAddress(digest[12:]).Hex()
}
