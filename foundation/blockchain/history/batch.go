package history

import (
	"encoding/binary"
	"fmt"

	"github.com/argonprotocol/argon/foundation/blockchain/ledger"
	"github.com/argonprotocol/argon/foundation/blockchain/signature"
	"github.com/argonprotocol/argon/foundation/blockchain/verify"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/syndtr/goleveldb/leveldb"
)

// Batch accumulates the history of notebooks audited together. Lookups see
// the batch first and the store second, so a notebook can be verified
// against earlier notebooks of the same batch before anything is written.
// Nothing reaches the store until Commit.
type Batch struct {
	store *Store
	batch *leveldb.Batch

	roots   map[[8]byte]signature.Digest
	last    map[[12]byte]ledger.NotebookNumber
	claimed map[[8]byte]bool
}

var _ verify.NotebookHistoryLookup = (*Batch)(nil)

func newBatch(store *Store) *Batch {
	return &Batch{
		store:   store,
		batch:   new(leveldb.Batch),
		roots:   make(map[[8]byte]signature.Digest),
		last:    make(map[[12]byte]ledger.NotebookNumber),
		claimed: make(map[[8]byte]bool),
	}
}

// AccountChangesRoot implements verify.NotebookHistoryLookup.
func (b *Batch) AccountChangesRoot(notaryID ledger.NotaryID, notebookNumber ledger.NotebookNumber) (signature.Digest, error) {
	if root, exists := b.roots[pair(uint32(notaryID), uint32(notebookNumber))]; exists {
		return root, nil
	}
	return b.store.AccountChangesRoot(notaryID, notebookNumber)
}

// LastChangedNotebook implements verify.NotebookHistoryLookup.
func (b *Batch) LastChangedNotebook(notaryID ledger.NotaryID, origin ledger.AccountOrigin) (ledger.NotebookNumber, error) {
	if number, exists := b.last[originID(notaryID, origin)]; exists {
		return number, nil
	}
	return b.store.LastChangedNotebook(notaryID, origin)
}

// IsValidTransferToLocalchain implements verify.NotebookHistoryLookup.
func (b *Batch) IsValidTransferToLocalchain(notaryID ledger.NotaryID, transferID uint32, accountID ledger.AccountID, milligons uint64, tick ledger.Tick) (bool, error) {
	if b.claimed[pair(uint32(notaryID), transferID)] {
		return false, nil
	}
	return b.store.IsValidTransferToLocalchain(notaryID, transferID, accountID, milligons, tick)
}

// =============================================================================

// Apply adds an audited notebook to the batch: its record, the notebook
// each changed account now points at, and the transfers it claimed.
func (b *Batch) Apply(notebook ledger.Notebook, result *verify.NotebookResult) error {
	header := notebook.Header

	record := NotebookRecord{
		NotaryID:            header.NotaryID,
		NotebookNumber:      header.NotebookNumber,
		Tick:                header.Tick,
		ChangedAccountsRoot: header.ChangedAccountsRoot,
		BlockVotesRoot:      header.BlockVotesRoot,
		SecretHash:          header.SecretHash,
		Tax:                 result.Tax,
		BlockVotesCount:     result.BlockVotesCount,
		BlockVotingPower:    result.BlockVotingPower,
	}

	data, err := rlp.EncodeToBytes(record)
	if err != nil {
		return fmt.Errorf("encoding notebook %d: %w", header.NotebookNumber, err)
	}
	b.batch.Put(notebookKey(header.NotaryID, header.NotebookNumber), data)
	b.roots[pair(uint32(header.NotaryID), uint32(header.NotebookNumber))] = header.ChangedAccountsRoot

	for _, tip := range result.Tips {
		var number [4]byte
		binary.BigEndian.PutUint32(number[:], uint32(header.NotebookNumber))

		b.batch.Put(originKey(header.NotaryID, tip.AccountOrigin), number[:])
		b.last[originID(header.NotaryID, tip.AccountOrigin)] = header.NotebookNumber
	}

	for _, ct := range result.ChainTransfers {
		if ct.Kind != ledger.ToLocalchain {
			continue
		}

		t, err := b.store.Transfer(header.NotaryID, ct.TransferID)
		if err != nil {
			return err
		}
		t.Claimed = true

		data, err := rlp.EncodeToBytes(t)
		if err != nil {
			return fmt.Errorf("encoding transfer %d: %w", ct.TransferID, err)
		}
		b.batch.Put(transferKey(header.NotaryID, ct.TransferID), data)
		b.claimed[pair(uint32(header.NotaryID), ct.TransferID)] = true
	}

	return nil
}

// SetNotaryState saves the audit state of a notary with the batch.
func (b *Batch) SetNotaryState(notaryID ledger.NotaryID, state []byte) {
	b.batch.Put(stateKey(notaryID), state)
}

// Len returns the number of writes pending in the batch.
func (b *Batch) Len() int {
	return b.batch.Len()
}

// Commit writes the batch to the store atomically.
func (b *Batch) Commit() error {
	if err := b.store.db.Write(b.batch, nil); err != nil {
		return fmt.Errorf("committing history: %w", err)
	}

	b.store.mu.Lock()
	for k, root := range b.roots {
		b.store.roots[k] = root
	}
	b.store.mu.Unlock()

	b.Discard()
	return nil
}

// Discard drops everything pending in the batch.
func (b *Batch) Discard() {
	b.batch.Reset()
	b.roots = make(map[[8]byte]signature.Digest)
	b.last = make(map[[12]byte]ledger.NotebookNumber)
	b.claimed = make(map[[8]byte]bool)
}

func originID(notaryID ledger.NotaryID, origin ledger.AccountOrigin) [12]byte {
	var k [12]byte
	copy(k[:], originKey(notaryID, origin)[1:])
	return k
}
