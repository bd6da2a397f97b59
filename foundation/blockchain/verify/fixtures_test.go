package verify_test

import (
	"bytes"
	"errors"
	"testing"

	"github.com/argonprotocol/argon/foundation/blockchain/ledger"
	"github.com/argonprotocol/argon/foundation/blockchain/signature"
	"github.com/stretchr/testify/require"
)

const notaryID ledger.NotaryID = 1

func keyPair(t *testing.T, scheme signature.Scheme, b byte) signature.KeyPair {
	t.Helper()

	kp, err := signature.KeyPairFromSeed(scheme, bytes.Repeat([]byte{b}, 32))
	require.NoError(t, err)
	return kp
}

// change builds an unsigned balance change. Changes after the first start
// from a proof of the previous balance committed at tick 1.
func change(account ledger.AccountID, accountType ledger.AccountType, number uint32, previous uint64, balance uint64, notes ...ledger.Note) ledger.BalanceChange {
	bc := ledger.BalanceChange{
		AccountID:    account,
		AccountType:  accountType,
		ChangeNumber: number,
		Balance:      balance,
		Notes:        notes,
	}

	if number > 1 {
		bc.PreviousBalanceProof = &ledger.BalanceProof{
			NotaryID:       notaryID,
			NotebookNumber: 1,
			Tick:           1,
			Balance:        previous,
			AccountOrigin:  ledger.AccountOrigin{NotebookNumber: 1, AccountUID: 1},
		}
	}

	return bc
}

func sign(t *testing.T, kp signature.KeyPair, bc ledger.BalanceChange) ledger.BalanceChange {
	t.Helper()

	signed, err := bc.Sign(kp)
	require.NoError(t, err)
	return signed
}

func tick(t ledger.Tick) *ledger.Tick {
	return &t
}

// =============================================================================

// lookup is an in memory history for tests.
type lookup struct {
	roots     map[ledger.NotebookNumber]signature.Digest
	last      map[ledger.AccountOrigin]ledger.NotebookNumber
	transfers map[uint32]ledger.ChainTransfer
	err       error
}

func newLookup() *lookup {
	return &lookup{
		roots:     make(map[ledger.NotebookNumber]signature.Digest),
		last:      make(map[ledger.AccountOrigin]ledger.NotebookNumber),
		transfers: make(map[uint32]ledger.ChainTransfer),
	}
}

func (l *lookup) AccountChangesRoot(_ ledger.NotaryID, notebookNumber ledger.NotebookNumber) (signature.Digest, error) {
	if l.err != nil {
		return signature.ZeroHash, l.err
	}

	root, exists := l.roots[notebookNumber]
	if !exists {
		return signature.ZeroHash, errors.New("notebook not found")
	}
	return root, nil
}

func (l *lookup) LastChangedNotebook(_ ledger.NotaryID, origin ledger.AccountOrigin) (ledger.NotebookNumber, error) {
	if l.err != nil {
		return 0, l.err
	}

	number, exists := l.last[origin]
	if !exists {
		return 0, errors.New("origin not found")
	}
	return number, nil
}

func (l *lookup) IsValidTransferToLocalchain(_ ledger.NotaryID, transferID uint32, accountID ledger.AccountID, milligons uint64, _ ledger.Tick) (bool, error) {
	if l.err != nil {
		return false, l.err
	}

	t, exists := l.transfers[transferID]
	return exists && t.AccountID == accountID && t.Milligons == milligons, nil
}

// commit records the tips as the content of a notebook and returns a proof
// for each tip in order.
func (l *lookup) commit(number ledger.NotebookNumber, tips ...ledger.BalanceTip) []*ledger.MerkleProof {
	leaves := ledger.TipDigests(tips)
	l.roots[number] = ledger.MerkleRoot(leaves)

	proofs := make([]*ledger.MerkleProof, len(tips))
	for i, tip := range tips {
		l.last[tip.AccountOrigin] = number

		proof, err := ledger.MerkleProofAt(leaves, i)
		if err != nil {
			panic(err)
		}
		proofs[i] = &proof
	}

	return proofs
}
