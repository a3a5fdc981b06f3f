package lifecycle

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/linkclaim/settle-go/logger"
	"github.com/linkclaim/settle-go/metrics"
	"github.com/linkclaim/settle-go/providers"
	"github.com/linkclaim/settle-go/types"
)

// PrivateExecutor runs the shielded payout for a private claim.
// Satisfied by private.Executor.
type PrivateExecutor interface {
	Execute(ctx context.Context, claim *types.Claim, signer providers.Signer) (string, error)
}

// Machine applies provider observations to claims and persists status
// transitions through the claim store. All writes for one claim are
// serialized; distinct claims proceed independently.
type Machine struct {
	store providers.ClaimStore
	exec  PrivateExecutor
	guard *Guard
	log   logger.Logger
	rec   metrics.Recorder
	now   func() time.Time

	locks sync.Map // claim id -> *sync.Mutex
}

func NewMachine(store providers.ClaimStore, exec PrivateExecutor, log logger.Logger, rec metrics.Recorder) *Machine {
	if log == nil {
		log = logger.NoopLogger{}
	}
	if rec == nil {
		rec = metrics.NoopRecorder{}
	}
	return &Machine{
		store: store,
		exec:  exec,
		guard: NewGuard(),
		log:   log,
		rec:   rec,
		now:   time.Now,
	}
}

// SetClock overrides the timestamp source, for tests.
func (m *Machine) SetClock(now func() time.Time) {
	m.now = now
}

// Guard exposes the terminal guard for callers that share it (the
// orchestrator's cancel path).
func (m *Machine) Guard() *Guard {
	return m.guard
}

// Restore seeds the guard from a claim's persisted status. Call it on
// startup before applying new poll results so terminal writes and the
// private-transfer trigger cannot replay.
func (m *Machine) Restore(ctx context.Context, claimID string) (*types.Claim, error) {
	claim, err := m.store.GetClaim(ctx, claimID)
	if err != nil {
		return nil, err
	}
	m.guard.Seed(claimID, claim.Status)
	return claim, nil
}

// Reconcile merges a locally cached status with the store-confirmed
// one. The store's SUCCESS always wins; otherwise a locally recorded
// terminal is kept over a stale non-terminal read.
func (m *Machine) Reconcile(claimID string, local, stored types.ClaimStatus) types.ClaimStatus {
	// A cancelled flow never re-hydrates cached state; the store is the
	// only voice left.
	if m.guard.Cancelled(claimID) {
		return stored
	}
	if stored == types.StatusSuccess {
		m.guard.Seed(claimID, stored)
		return stored
	}
	if t, ok := m.guard.Terminal(claimID); ok {
		return t
	}
	if local.IsTerminal() {
		return local
	}
	return stored
}

// Apply folds one provider poll result into the claim's lifecycle.
// Returns the resulting persisted status. Transient provider failures
// never reach Apply; the poller retries them on the next tick.
func (m *Machine) Apply(
	ctx context.Context,
	claimID string,
	intent *types.DepositIntent,
	poll *types.PollResult,
	signer providers.Signer,
) (types.ClaimStatus, error) {
	lock := m.claimLock(claimID)
	lock.Lock()
	defer lock.Unlock()

	claim, err := m.store.GetClaim(ctx, claimID)
	if err != nil {
		return "", types.NewError(types.ErrProviderFailure, fmt.Sprintf("load claim: %v", err))
	}

	// A cancelled flow ignores late poll responses entirely; nothing may
	// resurrect it.
	if m.guard.Cancelled(claimID) {
		return claim.Status, nil
	}
	// Terminal stickiness: once the guard holds SUCCESS nothing moves.
	if t, ok := m.guard.Terminal(claimID); ok && t == types.StatusSuccess {
		return t, nil
	}

	switch poll.Status {
	case types.DepositStatusPending:
		return m.applyAwaitingDeposit(ctx, claim, intent, types.StatusPendingDeposit)

	case types.DepositStatusPartial:
		return m.applyAwaitingDeposit(ctx, claim, intent, types.StatusIncompleteDeposit)

	case types.DepositStatusDetected, types.DepositStatusProcessing:
		return m.applyFundsDetected(ctx, claim, poll)

	case types.DepositStatusSuccess:
		if claim.IsPrivate && isPrivacyDestination(claim.DestinationToken) {
			return m.applyPrivatePending(ctx, claim, signer)
		}
		return m.applyTerminal(ctx, claim, types.StatusSuccess, providers.StatusUpdate{
			TxHash:           poll.TxHash,
			PaidWith:         paidWith(claim, intent, poll),
			OriginAsset:      poll.OriginAsset,
			DestinationAsset: poll.DestinationAsset,
		})

	case types.DepositStatusFailed:
		return m.applyTerminal(ctx, claim, types.StatusFailed, providers.StatusUpdate{TxHash: poll.TxHash})

	case types.DepositStatusRefunded:
		return m.applyTerminal(ctx, claim, types.StatusRefunded, providers.StatusUpdate{TxHash: poll.RefundTxHash})

	default:
		return claim.Status, nil
	}
}

// ApplyCompanionResult folds a companion swap execution outcome into
// the lifecycle. Insufficient balance is not fatal: the provider
// refunds the payer and the claim terminates REFUNDED with the refund
// reference.
func (m *Machine) ApplyCompanionResult(
	ctx context.Context,
	claimID string,
	result *providers.CompanionResult,
) (types.ClaimStatus, error) {
	lock := m.claimLock(claimID)
	lock.Lock()
	defer lock.Unlock()

	claim, err := m.store.GetClaim(ctx, claimID)
	if err != nil {
		return "", types.NewError(types.ErrProviderFailure, fmt.Sprintf("load claim: %v", err))
	}
	if m.guard.Cancelled(claimID) {
		return claim.Status, nil
	}

	switch result.Status {
	case providers.CompanionStatusRefunded:
		return m.applyTerminal(ctx, claim, types.StatusRefunded, providers.StatusUpdate{
			TxHash: result.RefundTxHash,
		})
	case providers.CompanionStatusSuccess:
		return m.applyTerminal(ctx, claim, types.StatusSuccess, providers.StatusUpdate{
			TxHash:   result.TxHash,
			PaidWith: &claim.DestinationToken,
		})
	default:
		return claim.Status, types.NewError(types.ErrProviderFailure,
			fmt.Sprintf("unknown companion result %q", result.Status))
	}
}

// RetryPrivate re-runs the private transfer after a failed attempt. It
// bypasses the one-shot trigger guard; the executor still refuses
// already-paid claims.
func (m *Machine) RetryPrivate(ctx context.Context, claimID string, signer providers.Signer) (string, error) {
	claim, err := m.store.GetClaim(ctx, claimID)
	if err != nil {
		return "", types.NewError(types.ErrProviderFailure, fmt.Sprintf("load claim: %v", err))
	}
	sig, err := m.exec.Execute(ctx, claim, signer)
	if err != nil {
		return "", err
	}
	m.guard.Seed(claimID, types.StatusSuccess)
	return sig, nil
}

// Cancel marks the flow user-cancelled. In-flight provider calls are
// not aborted; their results are discarded when they land.
func (m *Machine) Cancel(claimID string) {
	m.guard.Cancel(claimID)
	m.log.Info("claim flow cancelled", map[string]any{"claim_id": claimID})
}

func (m *Machine) applyAwaitingDeposit(
	ctx context.Context,
	claim *types.Claim,
	intent *types.DepositIntent,
	target types.ClaimStatus,
) (types.ClaimStatus, error) {
	// No intent, no deposit to wait for.
	if intent == nil {
		return claim.Status, nil
	}
	// Funds already seen; a late pending/partial poll cannot move the
	// claim backwards.
	switch claim.Status {
	case types.StatusInFlight, types.StatusPrivateTransferPending:
		return claim.Status, nil
	}
	if claim.Status.IsTerminal() || claim.Status == target {
		return claim.Status, nil
	}
	return m.persist(ctx, claim, target, providers.StatusUpdate{})
}

func (m *Machine) applyFundsDetected(
	ctx context.Context,
	claim *types.Claim,
	poll *types.PollResult,
) (types.ClaimStatus, error) {
	if claim.Status.IsTerminal() {
		return claim.Status, nil
	}
	if !m.guard.MarkFundsDetected(claim.ID) {
		// Subsequent polls after the first detection carry no new
		// information for the store.
		return claim.Status, nil
	}
	ts := m.now()
	return m.persist(ctx, claim, types.StatusInFlight, providers.StatusUpdate{
		DepositReceivedAt: &ts,
		OriginAsset:       poll.OriginAsset,
		DestinationAsset:  poll.DestinationAsset,
	})
}

func (m *Machine) applyPrivatePending(
	ctx context.Context,
	claim *types.Claim,
	signer providers.Signer,
) (types.ClaimStatus, error) {
	// A recorded terminal is never demoted to PRIVATE_TRANSFER_PENDING;
	// only an actual completed transfer supersedes it (SUCCESS handled by
	// the sticky check in Apply).
	if t, ok := m.guard.Terminal(claim.ID); ok {
		return t, nil
	}
	if claim.Status.IsTerminal() {
		return claim.Status, nil
	}

	status := claim.Status
	if status != types.StatusPrivateTransferPending {
		persisted, err := m.persist(ctx, claim, types.StatusPrivateTransferPending, providers.StatusUpdate{})
		if err != nil {
			return status, err
		}
		status = persisted
	}

	if !m.guard.MarkPrivateTriggered(claim.ID) {
		return status, nil
	}

	sig, err := m.exec.Execute(ctx, claim, signer)
	if err != nil {
		// Stay in PRIVATE_TRANSFER_PENDING; the user can retry manually.
		m.log.Warn("automatic private transfer failed", map[string]any{
			"claim_id": claim.ID,
			"error":    err.Error(),
		})
		return status, nil
	}
	m.guard.Seed(claim.ID, types.StatusSuccess)
	m.log.Info("private transfer auto-triggered", map[string]any{
		"claim_id":  claim.ID,
		"signature": sig,
	})
	return types.StatusSuccess, nil
}

func (m *Machine) applyTerminal(
	ctx context.Context,
	claim *types.Claim,
	status types.ClaimStatus,
	update providers.StatusUpdate,
) (types.ClaimStatus, error) {
	if !m.guard.CommitTerminal(claim.ID, status) {
		current, _ := m.guard.Terminal(claim.ID)
		return current, nil
	}
	return m.persist(ctx, claim, status, update)
}

func (m *Machine) persist(
	ctx context.Context,
	claim *types.Claim,
	status types.ClaimStatus,
	update providers.StatusUpdate,
) (types.ClaimStatus, error) {
	if err := m.store.UpdateClaimStatus(ctx, claim.ID, status, update); err != nil {
		return claim.Status, types.NewError(types.ErrProviderFailure, fmt.Sprintf("persist status: %v", err))
	}
	m.log.Info("claim status transition", map[string]any{
		"claim_id": claim.ID,
		"from":     string(claim.Status),
		"to":       string(status),
	})
	m.rec.IncCounter("transition", map[string]string{
		"chain": claim.DestinationToken.Chain.String(),
	})
	return status, nil
}

func (m *Machine) claimLock(claimID string) *sync.Mutex {
	v, _ := m.locks.LoadOrStore(claimID, &sync.Mutex{})
	return v.(*sync.Mutex)
}

func isPrivacyDestination(dest types.TokenRef) bool {
	return dest.Symbol == types.PrivacyPoolToken && dest.Chain.IsSolana()
}

func paidWith(claim *types.Claim, intent *types.DepositIntent, poll *types.PollResult) *types.TokenRef {
	if poll.OriginAsset != nil {
		return poll.OriginAsset
	}
	if intent != nil {
		src := intent.SourceToken
		return &src
	}
	dest := claim.DestinationToken
	return &dest
}
