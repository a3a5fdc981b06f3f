// Package lifecycle owns the canonical claim status: it applies
// provider poll results, persists transitions exactly once, and runs
// the per-claim polling loops.
package lifecycle

import (
	"sync"

	"github.com/linkclaim/settle-go/types"
)

// Guard is the process-local idempotency bookkeeping for claim
// lifecycles. It is rebuildable from persisted claim status (see Seed)
// and exists purely to make side-effecting writes fire exactly once
// under concurrent pollers.
type Guard struct {
	mu               sync.Mutex
	terminal         map[string]types.ClaimStatus
	fundsDetected    map[string]bool
	privateTriggered map[string]bool
	cancelled        map[string]bool
}

func NewGuard() *Guard {
	return &Guard{
		terminal:         make(map[string]types.ClaimStatus),
		fundsDetected:    make(map[string]bool),
		privateTriggered: make(map[string]bool),
		cancelled:        make(map[string]bool),
	}
}

// Seed rebuilds guard state from a claim's persisted status, typically
// on process start or first observation of a claim.
func (g *Guard) Seed(claimID string, status types.ClaimStatus) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if status.IsTerminal() {
		g.terminal[claimID] = status
	}
	switch status {
	case types.StatusInFlight, types.StatusPrivateTransferPending, types.StatusSuccess:
		g.fundsDetected[claimID] = true
	}
	if status == types.StatusSuccess {
		// A paid claim must never re-run the private transfer.
		g.privateTriggered[claimID] = true
	}
}

// CommitTerminal records a terminal status and reports whether the
// caller should persist it. First terminal wins, except a SUCCESS
// always wins over a previously recorded FAILED/REFUNDED.
func (g *Guard) CommitTerminal(claimID string, status types.ClaimStatus) bool {
	if !status.IsTerminal() {
		return false
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	current, ok := g.terminal[claimID]
	if !ok {
		g.terminal[claimID] = status
		return true
	}
	if current == types.StatusSuccess {
		return false
	}
	if status == types.StatusSuccess {
		g.terminal[claimID] = status
		return true
	}
	return false
}

// Terminal returns the recorded terminal status for a claim, if any.
func (g *Guard) Terminal(claimID string) (types.ClaimStatus, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	s, ok := g.terminal[claimID]
	return s, ok
}

// MarkFundsDetected reports true only on the first funds-detected
// observation for a claim; the depositReceivedAt write hangs off it.
func (g *Guard) MarkFundsDetected(claimID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.fundsDetected[claimID] {
		return false
	}
	g.fundsDetected[claimID] = true
	return true
}

// MarkPrivateTriggered reports true only on the first call per claim,
// gating the automatic private transfer.
func (g *Guard) MarkPrivateTriggered(claimID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.privateTriggered[claimID] {
		return false
	}
	g.privateTriggered[claimID] = true
	return true
}

// Cancel marks a claim as user-cancelled. Later poll results and
// re-hydration attempts for the claim are ignored.
func (g *Guard) Cancel(claimID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.cancelled[claimID] = true
}

func (g *Guard) Cancelled(claimID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.cancelled[claimID]
}
