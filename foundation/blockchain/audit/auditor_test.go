package audit_test

import (
	"bytes"
	"testing"
	"time"

	"github.com/argonprotocol/argon/foundation/blockchain/audit"
	"github.com/argonprotocol/argon/foundation/blockchain/genesis"
	"github.com/argonprotocol/argon/foundation/blockchain/history"
	"github.com/argonprotocol/argon/foundation/blockchain/ledger"
	"github.com/argonprotocol/argon/foundation/blockchain/notary"
	"github.com/argonprotocol/argon/foundation/blockchain/signature"
	"github.com/argonprotocol/argon/foundation/blockchain/storage"
	"github.com/argonprotocol/argon/foundation/blockchain/storage/memory"
	"github.com/argonprotocol/argon/foundation/blockchain/verify"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

const notaryID ledger.NotaryID = 1

type auditFixture struct {
	operator signature.KeyPair
	alice    signature.KeyPair
	genesis  genesis.Genesis
	history  *history.Store
	storage  *memory.Memory
	registry *prometheus.Registry
	auditor  *audit.Auditor
	notary   *notary.Notary
}

func keyPair(t *testing.T, scheme signature.Scheme, b byte) signature.KeyPair {
	t.Helper()

	kp, err := signature.KeyPairFromSeed(scheme, bytes.Repeat([]byte{b}, 32))
	require.NoError(t, err)
	return kp
}

func newAuditFixture(t *testing.T) auditFixture {
	t.Helper()

	operator := keyPair(t, signature.Ed25519, 5)
	alice := keyPair(t, signature.Sr25519, 1)

	gen := genesis.Genesis{
		Date:                       time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		TickDuration:               genesis.Duration{Duration: time.Minute},
		ChannelHoldExpirationTicks: 10,
		DefaultVoteMinimum:         1_000,
		Notaries: []genesis.Notary{
			{NotaryID: notaryID, Operator: ledger.AccountID(operator.AccountID())},
		},
	}

	hist, err := history.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { hist.Close() })

	err = hist.RegisterTransfer(notaryID, history.Transfer{TransferID: 7, AccountID: ledger.AccountID(alice.AccountID()), Milligons: 1_000, ExpirationTick: 100})
	require.NoError(t, err)

	f := auditFixture{
		operator: operator,
		alice:    alice,
		genesis:  gen,
		history:  hist,
		storage:  memory.New(),
	}
	f.auditor = f.newAuditor(t)

	f.notary, err = notary.New(notary.Config{
		NotaryID:  notaryID,
		Operator:  operator,
		Genesis:   gen,
		Transfers: hist,
		Tick:      1,
	})
	require.NoError(t, err)

	return f
}

// newAuditor starts an auditor over the fixture's history, as a node
// restart would.
func (f *auditFixture) newAuditor(t *testing.T) *audit.Auditor {
	t.Helper()

	f.registry = prometheus.NewRegistry()

	a, err := audit.New(audit.Config{
		Genesis: f.genesis,
		History: f.history,
		Storage: f.storage,
		Metrics: audit.NewMetrics(f.registry),
	})
	require.NoError(t, err)
	return a
}

// closeNotebooks closes one notebook per tick. The first notebook funds
// alice from the mainchain, the next moves her funds to a new balance.
func (f *auditFixture) closeNotebooks(t *testing.T, count int) []ledger.Notebook {
	t.Helper()

	aliceID := ledger.AccountID(f.alice.AccountID())
	account := ledger.LocalchainAccount{AccountID: aliceID, AccountType: ledger.Deposit}

	var notebooks []ledger.Notebook
	for i := 0; i < count; i++ {
		number, tick := f.notary.OpenNotebook()

		var bc ledger.BalanceChange
		switch number {
		case 1:
			bc = ledger.BalanceChange{
				AccountID:    aliceID,
				AccountType:  ledger.Deposit,
				ChangeNumber: 1,
				Balance:      1_000,
				Notes:        []ledger.Note{ledger.NewClaimFromMainchain(1_000, 7)},
			}

		default:
			proof, err := f.notary.BalanceProof(account)
			require.NoError(t, err)

			bc = ledger.BalanceChange{
				AccountID:            aliceID,
				AccountType:          ledger.Deposit,
				ChangeNumber:         uint32(number),
				Balance:              proof.Balance - 100,
				PreviousBalanceProof: &proof,
				Notes:                []ledger.Note{ledger.NewSendToMainchain(100)},
			}
		}

		signed, err := bc.Sign(f.alice)
		require.NoError(t, err)

		_, err = f.notary.Notarize(ledger.Notarization{BalanceChanges: []ledger.BalanceChange{signed}})
		require.NoError(t, err)

		nb, err := f.notary.CloseNotebook(tick + 1)
		require.NoError(t, err)
		notebooks = append(notebooks, nb)
	}

	return notebooks
}

func (f *auditFixture) counter(t *testing.T, name string, result string) float64 {
	t.Helper()

	families, err := f.registry.Gather()
	require.NoError(t, err)

	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, l := range m.GetLabel() {
				if l.GetName() == "result" && l.GetValue() == result {
					return m.GetCounter().GetValue()
				}
			}
		}
	}

	return 0
}

func (f *auditFixture) gauge(t *testing.T, name string) float64 {
	t.Helper()

	families, err := f.registry.Gather()
	require.NoError(t, err)

	for _, mf := range families {
		if mf.GetName() == name {
			return mf.GetMetric()[0].GetGauge().GetValue()
		}
	}

	return -1
}

// =============================================================================

func TestSubmit(t *testing.T) {
	f := newAuditFixture(t)
	notebooks := f.closeNotebooks(t, 2)

	for _, nb := range notebooks {
		require.NoError(t, f.auditor.Submit(nb))
	}

	state, err := f.auditor.Status(notaryID)
	require.NoError(t, err)
	require.Equal(t, audit.Active, state.Status)
	require.Equal(t, ledger.NotebookNumber(2), state.LastNotebookNumber)
	require.Equal(t, notebooks[1].Header.Tick, state.LastTick)

	last, err := f.auditor.LastAudited(notaryID)
	require.NoError(t, err)
	require.Equal(t, ledger.NotebookNumber(2), last)

	stored, err := f.auditor.Notebook(notaryID, 2)
	require.NoError(t, err)
	require.Equal(t, notebooks[1].Hash(), stored.Hash())

	summaries, err := f.auditor.Summaries(notaryID)
	require.NoError(t, err)
	require.Len(t, summaries, 2)
	require.Equal(t, notebooks[0].Header.ChangedAccountsRoot, summaries[0].ChangedAccountsRoot)

	transfer, err := f.history.Transfer(notaryID, 7)
	require.NoError(t, err)
	require.True(t, transfer.Claimed)

	require.Equal(t, float64(2), f.counter(t, "argon_notebooks_audited_total", "accepted"))
	require.Equal(t, float64(0), f.gauge(t, "argon_notaries_locked"))

	err = f.auditor.Submit(notebooks[1])
	require.ErrorIs(t, err, audit.ErrDuplicateNotebookNumber)
	require.Equal(t, float64(1), f.counter(t, "argon_notebooks_audited_total", "rejected"))

	unknown := notebooks[0]
	unknown.Header.NotaryID = 9
	require.ErrorIs(t, f.auditor.Submit(unknown), audit.ErrUnknownNotary)

	_, err = f.auditor.LastAudited(9)
	require.ErrorIs(t, err, audit.ErrUnknownNotary)
}

func TestSubmitLockAndUnlock(t *testing.T) {
	f := newAuditFixture(t)
	notebooks := f.closeNotebooks(t, 3)
	require.NoError(t, f.auditor.Submit(notebooks[0]))

	bad := notebooks[1]
	bad.Header.Tax++
	bad, err := bad.Sign(f.operator)
	require.NoError(t, err)

	err = f.auditor.Submit(bad)
	var locked *audit.LockedError
	require.ErrorAs(t, err, &locked)
	require.Equal(t, ledger.NotebookNumber(2), locked.NotebookNumber)
	require.ErrorIs(t, err, verify.ErrInvalidNotebookTaxTotal)
	require.Equal(t, float64(1), f.gauge(t, "argon_notaries_locked"))

	_, err = f.auditor.Notebook(notaryID, 2)
	require.ErrorIs(t, err, storage.ErrNotFound, "a failed notebook is not stored")

	err = f.auditor.Submit(notebooks[2])
	require.ErrorIs(t, err, audit.ErrNotebookSubmittedForLockedNotary)

	// The lock survives a restart.
	f.auditor = f.newAuditor(t)
	state, err := f.auditor.Status(notaryID)
	require.NoError(t, err)
	require.Equal(t, audit.Locked, state.Status)
	require.Equal(t, ledger.NotebookNumber(2), state.LockedNotebookNumber)
	require.Equal(t, float64(1), f.gauge(t, "argon_notaries_locked"))

	stranger := keyPair(t, signature.Ed25519, 8)
	req, err := audit.UnlockRequest{NotaryID: notaryID, NotebookNumber: 2}.Sign(stranger)
	require.NoError(t, err)
	require.ErrorIs(t, f.auditor.Unlock(req), audit.ErrInvalidNotaryOperator)

	req, err = audit.UnlockRequest{NotaryID: notaryID, NotebookNumber: 3}.Sign(f.operator)
	require.NoError(t, err)
	require.ErrorIs(t, f.auditor.Unlock(req), audit.ErrInvalidReprocessNotebook)

	req, err = audit.UnlockRequest{NotaryID: notaryID, NotebookNumber: 2}.Sign(f.operator)
	require.NoError(t, err)
	require.NoError(t, f.auditor.Unlock(req))
	require.ErrorIs(t, f.auditor.Unlock(req), audit.ErrNotaryNotLocked)

	state, err = f.auditor.Status(notaryID)
	require.NoError(t, err)
	require.Equal(t, audit.Reactivated, state.Status)
	require.Equal(t, ledger.NotebookNumber(2), state.ReprocessNotebookNumber)

	require.ErrorIs(t, f.auditor.Submit(notebooks[2]), audit.ErrInvalidReprocessNotebook)
	require.NoError(t, f.auditor.Submit(notebooks[1]))
	require.NoError(t, f.auditor.Submit(notebooks[2]))

	state, err = f.auditor.Status(notaryID)
	require.NoError(t, err)
	require.Equal(t, audit.Active, state.Status)
	require.Equal(t, ledger.NotebookNumber(3), state.LastNotebookNumber)
	require.Equal(t, float64(0), f.gauge(t, "argon_notaries_locked"))
}

func TestSubmitCatchup(t *testing.T) {
	f := newAuditFixture(t)
	notebooks := f.closeNotebooks(t, 3)

	err := f.auditor.Submit(notebooks[2], notebooks[1])
	require.ErrorIs(t, err, audit.ErrCatchupNotebooksMissing)

	early := notebooks[1]
	early.Header.Tick = notebooks[0].Header.Tick
	early, err = early.Sign(f.operator)
	require.NoError(t, err)

	err = f.auditor.Submit(notebooks[2], notebooks[0], early)
	require.ErrorIs(t, err, audit.ErrNotebookTickAlreadyUsed)

	state, err := f.auditor.Status(notaryID)
	require.NoError(t, err)
	require.Equal(t, ledger.NotebookNumber(0), state.LastNotebookNumber, "a failed catchup saves nothing")

	summaries, err := f.auditor.Summaries(notaryID)
	require.NoError(t, err)
	require.Empty(t, summaries)

	require.NoError(t, f.auditor.Submit(notebooks[2], notebooks[0], notebooks[1]))

	state, err = f.auditor.Status(notaryID)
	require.NoError(t, err)
	require.Equal(t, ledger.NotebookNumber(3), state.LastNotebookNumber)

	for _, nb := range notebooks {
		_, err := f.auditor.Notebook(notaryID, nb.Header.NotebookNumber)
		require.NoError(t, err)
	}
}

func TestVoteMinimums(t *testing.T) {
	f := newAuditFixture(t)

	block := signature.HashBytes([]byte("block"))
	other := signature.HashBytes([]byte("other"))
	f.auditor.SetVoteMinimums(map[signature.Digest]uint64{block: 0, other: 5})

	minimums := f.auditor.VoteMinimums()
	require.Equal(t, f.genesis.DefaultVoteMinimum, minimums[block])
	require.Equal(t, uint64(5), minimums[other])

	require.Equal(t, []ledger.NotaryID{notaryID}, f.auditor.Notaries())
}
