package lifecycle

import (
	"context"
	"sync"
	"time"

	"github.com/linkclaim/settle-go/logger"
	"github.com/linkclaim/settle-go/providers"
	"github.com/linkclaim/settle-go/types"
)

// DefaultPollInterval is how often a claim's deposit address is polled
// while the claim is non-terminal.
const DefaultPollInterval = 15 * time.Second

// Poller runs per-claim status polling loops against the quote
// provider and feeds observations into the machine.
type Poller struct {
	quote    providers.QuoteProvider
	machine  *Machine
	interval time.Duration
	log      logger.Logger
}

func NewPoller(quote providers.QuoteProvider, machine *Machine, interval time.Duration, log logger.Logger) *Poller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if log == nil {
		log = logger.NoopLogger{}
	}
	return &Poller{
		quote:    quote,
		machine:  machine,
		interval: interval,
		log:      log,
	}
}

// Watch is the handle for one claim's polling loop.
type Watch struct {
	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once

	mu   sync.Mutex
	last types.ClaimStatus
}

// Stop halts the loop. Safe to call multiple times and after the loop
// already stopped on its own.
func (w *Watch) Stop() {
	w.stopOnce.Do(func() { close(w.stop) })
}

// Done is closed when the loop has exited.
func (w *Watch) Done() <-chan struct{} {
	return w.done
}

// Last returns the most recent status the loop observed.
func (w *Watch) Last() types.ClaimStatus {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.last
}

func (w *Watch) record(s types.ClaimStatus) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.last = s
}

// Start begins polling the intent's deposit address on the configured
// interval. The loop exits permanently as soon as a terminal status is
// observed, when the watch is stopped, or when ctx is cancelled.
// Transient provider errors are swallowed and retried on the next tick.
func (p *Poller) Start(
	ctx context.Context,
	claimID string,
	intent *types.DepositIntent,
	signer providers.Signer,
) *Watch {
	w := &Watch{
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}

	go func() {
		defer close(w.done)
		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-w.stop:
				return
			case <-ticker.C:
			}

			if p.tick(ctx, claimID, intent, signer, w) {
				return
			}
		}
	}()

	return w
}

// tick performs one poll and reports whether the loop should end.
func (p *Poller) tick(
	ctx context.Context,
	claimID string,
	intent *types.DepositIntent,
	signer providers.Signer,
	w *Watch,
) bool {
	poll, err := p.quote.Status(ctx, intent.DepositAddress)
	if err != nil {
		// Transient; not surfaced. The next tick retries.
		p.log.Debug("status poll failed", map[string]any{
			"claim_id": claimID,
			"error":    err.Error(),
		})
		return false
	}

	status, err := p.machine.Apply(ctx, claimID, intent, poll, signer)
	if err != nil {
		p.log.Warn("apply poll result failed", map[string]any{
			"claim_id": claimID,
			"error":    err.Error(),
		})
		return false
	}
	w.record(status)

	if status.IsTerminal() {
		p.log.Info("polling stopped on terminal status", map[string]any{
			"claim_id": claimID,
			"status":   string(status),
		})
		return true
	}
	if p.machine.Guard().Cancelled(claimID) {
		return true
	}
	return false
}
