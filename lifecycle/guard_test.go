package lifecycle

import (
	"sync"
	"testing"

	"github.com/linkclaim/settle-go/types"
)

func TestCommitTerminalFirstWins(t *testing.T) {
	g := NewGuard()

	if !g.CommitTerminal("c1", types.StatusFailed) {
		t.Fatalf("first terminal must commit")
	}
	if g.CommitTerminal("c1", types.StatusRefunded) {
		t.Fatalf("second terminal must not overwrite the first")
	}
	if got, _ := g.Terminal("c1"); got != types.StatusFailed {
		t.Fatalf("terminal = %s, want FAILED", got)
	}
}

func TestCommitTerminalSuccessOverrides(t *testing.T) {
	g := NewGuard()

	g.CommitTerminal("c1", types.StatusFailed)
	if !g.CommitTerminal("c1", types.StatusSuccess) {
		t.Fatalf("SUCCESS must override an earlier FAILED")
	}
	if g.CommitTerminal("c1", types.StatusRefunded) {
		t.Fatalf("nothing may overwrite SUCCESS")
	}
	if g.CommitTerminal("c1", types.StatusSuccess) {
		t.Fatalf("a second SUCCESS must not commit again")
	}
	if got, _ := g.Terminal("c1"); got != types.StatusSuccess {
		t.Fatalf("terminal = %s, want SUCCESS", got)
	}
}

func TestCommitTerminalRejectsNonTerminal(t *testing.T) {
	g := NewGuard()
	if g.CommitTerminal("c1", types.StatusInFlight) {
		t.Fatalf("non-terminal status must never commit")
	}
	if _, ok := g.Terminal("c1"); ok {
		t.Fatalf("no terminal should be recorded")
	}
}

func TestCommitTerminalConcurrent(t *testing.T) {
	g := NewGuard()

	var wg sync.WaitGroup
	var mu sync.Mutex
	committed := 0
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if g.CommitTerminal("c1", types.StatusFailed) {
				mu.Lock()
				committed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if committed != 1 {
		t.Fatalf("committed %d times, want exactly 1", committed)
	}
}

func TestMarkOnce(t *testing.T) {
	g := NewGuard()

	if !g.MarkFundsDetected("c1") {
		t.Fatalf("first funds detection must report true")
	}
	if g.MarkFundsDetected("c1") {
		t.Fatalf("repeat funds detection must report false")
	}

	if !g.MarkPrivateTriggered("c1") {
		t.Fatalf("first private trigger must report true")
	}
	if g.MarkPrivateTriggered("c1") {
		t.Fatalf("repeat private trigger must report false")
	}

	// Independent claims do not interfere.
	if !g.MarkFundsDetected("c2") {
		t.Fatalf("other claim must get its own first detection")
	}
}

func TestSeedRebuildsState(t *testing.T) {
	g := NewGuard()

	g.Seed("paid", types.StatusSuccess)
	if got, ok := g.Terminal("paid"); !ok || got != types.StatusSuccess {
		t.Fatalf("seeded terminal = %s, %v", got, ok)
	}
	if g.MarkFundsDetected("paid") {
		t.Fatalf("seeded SUCCESS must imply funds were detected")
	}
	if g.MarkPrivateTriggered("paid") {
		t.Fatalf("seeded SUCCESS must block the private trigger")
	}

	g.Seed("flying", types.StatusInFlight)
	if _, ok := g.Terminal("flying"); ok {
		t.Fatalf("IN_FLIGHT is not terminal")
	}
	if g.MarkFundsDetected("flying") {
		t.Fatalf("seeded IN_FLIGHT must imply funds were detected")
	}
	if !g.MarkPrivateTriggered("flying") {
		t.Fatalf("IN_FLIGHT must not block the private trigger")
	}

	g.Seed("open", types.StatusOpen)
	if !g.MarkFundsDetected("open") {
		t.Fatalf("seeded OPEN carries no guard state")
	}
}

func TestCancel(t *testing.T) {
	g := NewGuard()
	if g.Cancelled("c1") {
		t.Fatalf("fresh claim is not cancelled")
	}
	g.Cancel("c1")
	if !g.Cancelled("c1") {
		t.Fatalf("cancelled flag must stick")
	}
	if g.Cancelled("c2") {
		t.Fatalf("cancellation is per claim")
	}
}
