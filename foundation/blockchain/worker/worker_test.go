package worker_test

import (
	"bytes"
	"sync/atomic"
	"testing"
	"time"

	"github.com/argonprotocol/argon/foundation/blockchain/audit"
	"github.com/argonprotocol/argon/foundation/blockchain/genesis"
	"github.com/argonprotocol/argon/foundation/blockchain/history"
	"github.com/argonprotocol/argon/foundation/blockchain/ledger"
	"github.com/argonprotocol/argon/foundation/blockchain/notary"
	"github.com/argonprotocol/argon/foundation/blockchain/signature"
	"github.com/argonprotocol/argon/foundation/blockchain/storage/memory"
	"github.com/argonprotocol/argon/foundation/blockchain/worker"
	"github.com/stretchr/testify/require"
)

const notaryID ledger.NotaryID = 1

// clock is a wall clock the test moves forward by hand.
type clock struct {
	start time.Time
	ticks atomic.Int64
}

func (c *clock) now() time.Time {
	return c.start.Add(time.Duration(c.ticks.Load())*time.Minute + time.Second)
}

func TestWorker(t *testing.T) {
	operator, err := signature.KeyPairFromSeed(signature.Ed25519, bytes.Repeat([]byte{5}, 32))
	require.NoError(t, err)

	gen := genesis.Genesis{
		Date:                       time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		TickDuration:               genesis.Duration{Duration: time.Minute},
		ChannelHoldExpirationTicks: 10,
		Notaries: []genesis.Notary{
			{NotaryID: notaryID, Operator: ledger.AccountID(operator.AccountID())},
		},
	}

	clk := clock{start: gen.Date}
	clk.ticks.Store(5)

	hist, err := history.OpenMemory()
	require.NoError(t, err)
	defer hist.Close()

	closed := memory.New()

	auditor, err := audit.New(audit.Config{Genesis: gen, History: hist, Storage: memory.New()})
	require.NoError(t, err)

	newNotary := func() *notary.Notary {
		n, err := notary.New(notary.Config{
			NotaryID:  notaryID,
			Operator:  operator,
			Genesis:   gen,
			Transfers: hist,
			Tick:      gen.TickAt(clk.now()),
		})
		require.NoError(t, err)
		return n
	}

	n := newNotary()
	w, err := worker.Run(worker.Config{
		Genesis: gen,
		Notary:  n,
		Auditor: auditor,
		Storage: closed,
		Now:     clk.now,
	})
	require.NoError(t, err)

	for _, tick := range []int64{6, 7} {
		clk.ticks.Store(tick)
		w.SignalCloseNotebook()

		require.Eventually(t, func() bool {
			_, open := n.OpenNotebook()
			return open == ledger.Tick(tick)
		}, 5*time.Second, 10*time.Millisecond)
	}

	require.Eventually(t, func() bool {
		state, err := auditor.Status(notaryID)
		return err == nil && state.LastNotebookNumber == 2
	}, 5*time.Second, 10*time.Millisecond)

	w.Shutdown()

	state, err := auditor.Status(notaryID)
	require.NoError(t, err)
	require.Equal(t, ledger.Tick(6), state.LastTick)

	// A restarted notary continues after the closed notebooks.
	restarted := newNotary()
	w, err = worker.Run(worker.Config{
		Genesis: gen,
		Notary:  restarted,
		Auditor: auditor,
		Storage: closed,
		Now:     clk.now,
	})
	require.NoError(t, err)
	defer w.Shutdown()

	number, tick := restarted.OpenNotebook()
	require.Equal(t, ledger.NotebookNumber(3), number)
	require.Equal(t, ledger.Tick(7), tick)
}

func TestWorkerLockedNotary(t *testing.T) {
	operator, err := signature.KeyPairFromSeed(signature.Ed25519, bytes.Repeat([]byte{5}, 32))
	require.NoError(t, err)
	alice, err := signature.KeyPairFromSeed(signature.Sr25519, bytes.Repeat([]byte{1}, 32))
	require.NoError(t, err)
	aliceID := ledger.AccountID(alice.AccountID())

	gen := genesis.Genesis{
		Date:                       time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		TickDuration:               genesis.Duration{Duration: time.Minute},
		ChannelHoldExpirationTicks: 10,
		Notaries: []genesis.Notary{
			{NotaryID: notaryID, Operator: ledger.AccountID(operator.AccountID())},
		},
	}

	clk := clock{start: gen.Date}
	clk.ticks.Store(5)

	hist, err := history.OpenMemory()
	require.NoError(t, err)
	defer hist.Close()

	// The notary learns of the transfer before the auditor does, so the
	// notebook claiming it fails its audit.
	registry, err := history.OpenMemory()
	require.NoError(t, err)
	defer registry.Close()

	transfer := history.Transfer{TransferID: 7, AccountID: aliceID, Milligons: 1_000, ExpirationTick: 100}
	require.NoError(t, registry.RegisterTransfer(notaryID, transfer))

	auditor, err := audit.New(audit.Config{Genesis: gen, History: hist, Storage: memory.New()})
	require.NoError(t, err)

	n, err := notary.New(notary.Config{
		NotaryID:  notaryID,
		Operator:  operator,
		Genesis:   gen,
		Transfers: registry,
		Tick:      gen.TickAt(clk.now()),
	})
	require.NoError(t, err)

	closed := memory.New()
	w, err := worker.Run(worker.Config{
		Genesis: gen,
		Notary:  n,
		Auditor: auditor,
		Storage: closed,
		Now:     clk.now,
	})
	require.NoError(t, err)
	defer w.Shutdown()

	claim, err := ledger.BalanceChange{
		AccountID:    aliceID,
		AccountType:  ledger.Deposit,
		ChangeNumber: 1,
		Balance:      1_000,
		Notes:        []ledger.Note{ledger.NewClaimFromMainchain(1_000, 7)},
	}.Sign(alice)
	require.NoError(t, err)

	_, err = n.Notarize(ledger.Notarization{BalanceChanges: []ledger.BalanceChange{claim}})
	require.NoError(t, err)

	clk.ticks.Store(6)
	w.SignalCloseNotebook()

	require.Eventually(t, func() bool {
		state, err := auditor.Status(notaryID)
		return err == nil && state.Status == audit.Locked
	}, 5*time.Second, 10*time.Millisecond)

	state, err := auditor.Status(notaryID)
	require.NoError(t, err)
	require.Equal(t, ledger.NotebookNumber(1), state.LockedNotebookNumber)

	nb, err := closed.GetNotebook(notaryID, 1)
	require.NoError(t, err, "the failed notebook is kept for the reprocess")
	require.Len(t, nb.Notarizations, 1)

	// No notebook is closed while the notary is locked.
	clk.ticks.Store(7)
	w.SignalCloseNotebook()
	require.Never(t, func() bool {
		number, _ := n.OpenNotebook()
		return number != 2
	}, 200*time.Millisecond, 10*time.Millisecond)

	require.NoError(t, hist.RegisterTransfer(notaryID, transfer))

	unlock, err := audit.UnlockRequest{NotaryID: notaryID, NotebookNumber: 1}.Sign(operator)
	require.NoError(t, err)
	require.NoError(t, auditor.Unlock(unlock))
	w.SignalSubmit()

	require.Eventually(t, func() bool {
		state, err := auditor.Status(notaryID)
		return err == nil && state.Status == audit.Active && state.LastNotebookNumber == 1
	}, 5*time.Second, 10*time.Millisecond)

	// Closing resumes once the reprocessed notebook is accepted.
	w.SignalCloseNotebook()

	require.Eventually(t, func() bool {
		state, err := auditor.Status(notaryID)
		return err == nil && state.Status == audit.Active && state.LastNotebookNumber == 2
	}, 5*time.Second, 10*time.Millisecond)
}
