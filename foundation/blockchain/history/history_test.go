package history_test

import (
	"path/filepath"
	"testing"

	"github.com/argonprotocol/argon/foundation/blockchain/history"
	"github.com/argonprotocol/argon/foundation/blockchain/ledger"
	"github.com/argonprotocol/argon/foundation/blockchain/signature"
	"github.com/argonprotocol/argon/foundation/blockchain/verify"
	"github.com/stretchr/testify/require"
)

const notaryID ledger.NotaryID = 1

var account = ledger.AccountID{7}

func audited(number ledger.NotebookNumber, uid uint32, transfers ...ledger.ChainTransfer) (ledger.Notebook, *verify.NotebookResult) {
	tip := ledger.BalanceTip{
		AccountID:     account,
		AccountType:   ledger.Deposit,
		ChangeNumber:  uint32(number),
		Balance:       100,
		AccountOrigin: ledger.AccountOrigin{NotebookNumber: 1, AccountUID: uid},
		Tick:          ledger.Tick(number),
	}

	nb := ledger.Notebook{
		Header: ledger.NotebookHeader{
			NotaryID:            notaryID,
			NotebookNumber:      number,
			Tick:                ledger.Tick(number),
			ChangedAccountsRoot: ledger.TipsRoot([]ledger.BalanceTip{tip}),
		},
	}

	return nb, &verify.NotebookResult{Tips: []ledger.BalanceTip{tip}, ChainTransfers: transfers, Tax: 5}
}

func TestBatchOverlay(t *testing.T) {
	store, err := history.OpenMemory()
	require.NoError(t, err)
	defer store.Close()

	origin := ledger.AccountOrigin{NotebookNumber: 1, AccountUID: 1}

	batch := store.NewBatch()
	nb, result := audited(1, 1)
	require.NoError(t, batch.Apply(nb, result))

	root, err := batch.AccountChangesRoot(notaryID, 1)
	require.NoError(t, err)
	require.Equal(t, nb.Header.ChangedAccountsRoot, root)

	last, err := batch.LastChangedNotebook(notaryID, origin)
	require.NoError(t, err)
	require.Equal(t, ledger.NotebookNumber(1), last)

	_, err = store.AccountChangesRoot(notaryID, 1)
	require.ErrorIs(t, err, history.ErrNotFound, "store must not see an uncommitted batch")

	nb, result = audited(2, 1)
	require.NoError(t, batch.Apply(nb, result))
	require.NoError(t, batch.Commit())

	last, err = store.LastChangedNotebook(notaryID, origin)
	require.NoError(t, err)
	require.Equal(t, ledger.NotebookNumber(2), last)

	records, err := store.Notebooks(notaryID)
	require.NoError(t, err)
	require.Len(t, records, 2)
	require.Equal(t, ledger.NotebookNumber(1), records[0].NotebookNumber)
	require.Equal(t, uint64(5), records[1].Tax)

	records, err = store.Notebooks(notaryID + 1)
	require.NoError(t, err)
	require.Empty(t, records)
}

func TestBatchDiscard(t *testing.T) {
	store, err := history.OpenMemory()
	require.NoError(t, err)
	defer store.Close()

	batch := store.NewBatch()
	nb, result := audited(1, 1)
	require.NoError(t, batch.Apply(nb, result))
	batch.SetNotaryState(notaryID, []byte("locked"))
	require.NotZero(t, batch.Len())

	batch.Discard()
	require.Zero(t, batch.Len())
	require.NoError(t, batch.Commit())

	_, err = store.Notebook(notaryID, 1)
	require.ErrorIs(t, err, history.ErrNotFound)

	_, err = store.NotaryState(notaryID)
	require.ErrorIs(t, err, history.ErrNotFound)
}

func TestTransfers(t *testing.T) {
	store, err := history.OpenMemory()
	require.NoError(t, err)
	defer store.Close()

	transfer := history.Transfer{TransferID: 9, AccountID: account, Milligons: 500, ExpirationTick: 20}
	require.NoError(t, store.RegisterTransfer(notaryID, transfer))
	require.Error(t, store.RegisterTransfer(notaryID, transfer), "transfer ids are unique")

	tt := []struct {
		name      string
		id        uint32
		account   ledger.AccountID
		milligons uint64
		tick      ledger.Tick
		valid     bool
	}{
		{name: "valid", id: 9, account: account, milligons: 500, tick: 20, valid: true},
		{name: "expired", id: 9, account: account, milligons: 500, tick: 21},
		{name: "other account", id: 9, account: ledger.AccountID{8}, milligons: 500, tick: 10},
		{name: "other amount", id: 9, account: account, milligons: 499, tick: 10},
		{name: "unknown", id: 10, account: account, milligons: 500, tick: 10},
	}

	for _, test := range tt {
		t.Run(test.name, func(t *testing.T) {
			valid, err := store.IsValidTransferToLocalchain(notaryID, test.id, test.account, test.milligons, test.tick)
			require.NoError(t, err)
			require.Equal(t, test.valid, valid)
		})
	}

	claim := ledger.ChainTransfer{Kind: ledger.ToLocalchain, AccountID: account, Milligons: 500, TransferID: 9}

	batch := store.NewBatch()
	nb, result := audited(1, 1, claim)
	require.NoError(t, batch.Apply(nb, result))

	valid, err := batch.IsValidTransferToLocalchain(notaryID, 9, account, 500, 10)
	require.NoError(t, err)
	require.False(t, valid, "claimed within the batch")

	valid, err = store.IsValidTransferToLocalchain(notaryID, 9, account, 500, 10)
	require.NoError(t, err)
	require.True(t, valid, "still open in the store")

	require.NoError(t, batch.Commit())

	valid, err = store.IsValidTransferToLocalchain(notaryID, 9, account, 500, 10)
	require.NoError(t, err)
	require.False(t, valid)
}

func TestReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history")

	store, err := history.Open(path)
	require.NoError(t, err)

	batch := store.NewBatch()
	nb, result := audited(1, 3)
	require.NoError(t, batch.Apply(nb, result))
	batch.SetNotaryState(notaryID, []byte(`{"status":"active"}`))
	require.NoError(t, batch.Commit())
	require.NoError(t, store.Close())

	store, err = history.Open(path)
	require.NoError(t, err)
	defer store.Close()

	root, err := store.AccountChangesRoot(notaryID, 1)
	require.NoError(t, err)
	require.NotEqual(t, signature.ZeroHash, root)

	state, err := store.NotaryState(notaryID)
	require.NoError(t, err)
	require.JSONEq(t, `{"status":"active"}`, string(state))
}
