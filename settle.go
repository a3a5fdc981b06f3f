// Package settle orchestrates claim settlement across chains: it picks
// a settlement path, prepares deposit intents, tracks deposits through
// their lifecycle, and runs private payouts through the shielding pool.
package settle

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/linkclaim/settle-go/deposit"
	"github.com/linkclaim/settle-go/lifecycle"
	"github.com/linkclaim/settle-go/logger"
	"github.com/linkclaim/settle-go/metrics"
	"github.com/linkclaim/settle-go/private"
	"github.com/linkclaim/settle-go/providers"
	"github.com/linkclaim/settle-go/routing"
	"github.com/linkclaim/settle-go/types"
)

// Preparation is the outcome of PreparePayment: the selected path, the
// path that ultimately delivers funds (differs only for private claims
// settled through the pool), and the intent to fund. Intent is nil for
// PathPrivateTransfer, which needs no deposit address.
type Preparation struct {
	Path         types.SettlementPath
	EventualPath types.SettlementPath
	Intent       *types.DepositIntent
}

// Orchestrator is the facade over path selection, deposit preparation,
// the claim lifecycle machine, and private transfer execution.
type Orchestrator struct {
	store   providers.ClaimStore
	quote   providers.QuoteProvider
	privacy providers.PrivacyProvider

	preparer *deposit.Preparer
	executor *private.Executor
	machine  *lifecycle.Machine
	poller   *lifecycle.Poller

	log          logger.Logger
	rec          metrics.Recorder
	pollInterval time.Duration
	now          func() time.Time

	mu      sync.Mutex
	watches map[string]*lifecycle.Watch
}

// New wires an Orchestrator against the given collaborators. The store,
// quote provider, companion provider, and privacy provider are the
// external dependencies; everything else is internal.
func New(
	store providers.ClaimStore,
	quote providers.QuoteProvider,
	companion providers.CompanionProvider,
	privacy providers.PrivacyProvider,
	opts ...Option,
) *Orchestrator {
	o := &Orchestrator{
		store:        store,
		quote:        quote,
		privacy:      privacy,
		log:          logger.NoopLogger{},
		rec:          metrics.NoopRecorder{},
		pollInterval: lifecycle.DefaultPollInterval,
		now:          time.Now,
		watches:      make(map[string]*lifecycle.Watch),
	}
	for _, opt := range opts {
		opt(o)
	}

	o.preparer = deposit.NewPreparer(quote, companion, o.log)
	o.executor = private.NewExecutor(privacy, store, o.log)
	o.machine = lifecycle.NewMachine(store, o.executor, o.log, o.rec)
	o.machine.SetClock(o.now)
	o.poller = lifecycle.NewPoller(quote, o.machine, o.pollInterval, o.log)
	return o
}

// PreparePayment selects the settlement path for the claim given the
// payer's source token and builds the deposit intent for it. For a path
// of PathPrivateTransfer (source already matches the pool destination of
// a private claim) no intent is returned; call PayPrivately instead.
func (o *Orchestrator) PreparePayment(
	ctx context.Context,
	claimID string,
	source types.TokenRef,
	refundAddress string,
) (*Preparation, error) {
	started := o.now()

	claim, err := o.store.GetClaim(ctx, claimID)
	if err != nil {
		return nil, types.NewError(types.ErrProviderFailure, fmt.Sprintf("load claim: %v", err))
	}

	path, err := routing.SelectPath(source, claim.DestinationToken, claim.IsPrivate)
	if err != nil {
		return nil, err
	}
	eventual, err := routing.EventualPath(source, claim.DestinationToken, claim.IsPrivate)
	if err != nil {
		return nil, err
	}

	prep := &Preparation{Path: path, EventualPath: eventual}
	if path == types.PathDirect && claim.IsPrivate && source.Same(claim.DestinationToken) {
		// Source already sits on the pool side; the payer settles through
		// the connected wallet, not a deposit.
		prep.Path = types.PathPrivateTransfer
		prep.EventualPath = types.PathPrivateTransfer
		return prep, nil
	}

	intent, err := o.preparer.Prepare(ctx, claim, path, source, refundAddress)
	if err != nil {
		return nil, err
	}
	prep.Intent = intent

	o.rec.IncCounter("prepared", map[string]string{
		"chain": source.Chain.String(),
	})
	o.rec.ObserveLatency("prepare", o.now().Sub(started), map[string]string{
		"chain": source.Chain.String(),
	})
	return prep, nil
}

// PayPrivately runs the shielded payout for a private claim with the
// connected wallet. Safe to call again after a failed attempt; a paid
// claim is rejected with ALREADY_PAID.
func (o *Orchestrator) PayPrivately(ctx context.Context, claimID string, signer providers.Signer) (string, error) {
	started := o.now()
	sig, err := o.machine.RetryPrivate(ctx, claimID, signer)
	if err != nil {
		return "", err
	}
	o.rec.ObserveLatency("private_transfer", o.now().Sub(started), map[string]string{
		"chain": types.PrivacyPoolChain.String(),
	})
	return sig, nil
}

// ApplyPoll folds one provider poll result into the claim lifecycle and
// returns the resulting status. Most callers should use Watch instead
// and let the poller drive this.
func (o *Orchestrator) ApplyPoll(
	ctx context.Context,
	claimID string,
	intent *types.DepositIntent,
	poll *types.PollResult,
	signer providers.Signer,
) (types.ClaimStatus, error) {
	return o.machine.Apply(ctx, claimID, intent, poll, signer)
}

// ApplyCompanionResult folds a companion swap execution outcome into
// the claim lifecycle.
func (o *Orchestrator) ApplyCompanionResult(
	ctx context.Context,
	claimID string,
	result *providers.CompanionResult,
) (types.ClaimStatus, error) {
	return o.machine.ApplyCompanionResult(ctx, claimID, result)
}

// Watch starts (or restarts) the polling loop for a claim's deposit
// intent. A previous watch for the same claim is stopped first so at
// most one loop polls per claim.
func (o *Orchestrator) Watch(
	ctx context.Context,
	claimID string,
	intent *types.DepositIntent,
	signer providers.Signer,
) *lifecycle.Watch {
	o.mu.Lock()
	defer o.mu.Unlock()

	if prev, ok := o.watches[claimID]; ok {
		prev.Stop()
	}
	w := o.poller.Start(ctx, claimID, intent, signer)
	o.watches[claimID] = w
	return w
}

// Cancel abandons the claim flow: the poll loop stops and late provider
// results are discarded. The claim's persisted status is left as-is.
func (o *Orchestrator) Cancel(claimID string) {
	o.machine.Cancel(claimID)

	o.mu.Lock()
	defer o.mu.Unlock()
	if w, ok := o.watches[claimID]; ok {
		w.Stop()
		delete(o.watches, claimID)
	}
}

// Restore reloads a claim and seeds the lifecycle guards from its
// persisted status. Call it before watching a claim that predates this
// process.
func (o *Orchestrator) Restore(ctx context.Context, claimID string) (*types.Claim, error) {
	return o.machine.Restore(ctx, claimID)
}

// Reconcile merges a locally cached claim status with the
// store-confirmed one; the store's SUCCESS always wins.
func (o *Orchestrator) Reconcile(claimID string, local, stored types.ClaimStatus) types.ClaimStatus {
	return o.machine.Reconcile(claimID, local, stored)
}

// Display renders the user-facing status for a claim: IN_FLIGHT shows
// as PROCESSING, and a non-terminal claim whose intent deadline passed
// shows as EXPIRED.
func (o *Orchestrator) Display(claim *types.Claim, intent *types.DepositIntent) string {
	awaiting := claim.Status == types.StatusOpen ||
		claim.Status == types.StatusPendingDeposit ||
		claim.Status == types.StatusIncompleteDeposit
	if awaiting && intent != nil && intent.Expired(o.now()) {
		return types.DisplayExpired
	}
	return claim.Status.Display()
}

// GrossToSend exposes the private transfer fee math: the amount that
// must enter the pool so the recipient nets amountUSD.
var GrossToSend = private.GrossToSend
