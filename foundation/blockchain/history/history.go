// Package history keeps what later notebooks are verified against: the
// changed accounts root of every audited notebook, the notebook each account
// last changed in and the mainchain transfers waiting to be claimed.
package history

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"github.com/argonprotocol/argon/foundation/blockchain/ledger"
	"github.com/argonprotocol/argon/foundation/blockchain/signature"
	"github.com/argonprotocol/argon/foundation/blockchain/verify"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/storage"
	"github.com/syndtr/goleveldb/leveldb/util"
)

// ErrNotFound is returned when the history has no entry for a key.
var ErrNotFound = errors.New("history: not found")

// Key prefixes of the leveldb records.
const (
	prefixNotebook byte = 'n'
	prefixOrigin   byte = 'o'
	prefixTransfer byte = 't'
	prefixState    byte = 's'
)

// NotebookRecord is what the history keeps of an audited notebook.
type NotebookRecord struct {
	NotaryID            ledger.NotaryID
	NotebookNumber      ledger.NotebookNumber
	Tick                ledger.Tick
	ChangedAccountsRoot signature.Digest
	BlockVotesRoot      signature.Digest
	SecretHash          signature.Digest
	Tax                 uint64
	BlockVotesCount     uint32
	BlockVotingPower    uint64
}

// Transfer is a mainchain to localchain transfer registered for a notary.
// It can be claimed once, up to and including the expiration tick.
type Transfer struct {
	TransferID     uint32
	AccountID      ledger.AccountID
	Milligons      uint64
	ExpirationTick ledger.Tick
	Claimed        bool
}

// =============================================================================

// Store is the leveldb backed history. It implements the
// verify.NotebookHistoryLookup interface.
type Store struct {
	db *leveldb.DB

	mu    sync.RWMutex
	roots map[[8]byte]signature.Digest
}

var _ verify.NotebookHistoryLookup = (*Store)(nil)

// Open opens or creates the history database at the path.
func Open(path string) (*Store, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, fmt.Errorf("opening history %s: %w", path, err)
	}

	return newStore(db), nil
}

// OpenMemory opens a history held only in memory.
func OpenMemory() (*Store, error) {
	db, err := leveldb.Open(storage.NewMemStorage(), nil)
	if err != nil {
		return nil, fmt.Errorf("opening memory history: %w", err)
	}

	return newStore(db), nil
}

func newStore(db *leveldb.DB) *Store {
	return &Store{
		db:    db,
		roots: make(map[[8]byte]signature.Digest),
	}
}

// Close releases the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// NewBatch starts a batch of changes on top of the store.
func (s *Store) NewBatch() *Batch {
	return newBatch(s)
}

// =============================================================================

// AccountChangesRoot returns the changed accounts root of an audited notebook.
func (s *Store) AccountChangesRoot(notaryID ledger.NotaryID, notebookNumber ledger.NotebookNumber) (signature.Digest, error) {
	k := pair(uint32(notaryID), uint32(notebookNumber))

	s.mu.RLock()
	root, exists := s.roots[k]
	s.mu.RUnlock()
	if exists {
		return root, nil
	}

	record, err := s.Notebook(notaryID, notebookNumber)
	if err != nil {
		return signature.ZeroHash, err
	}

	s.mu.Lock()
	s.roots[k] = record.ChangedAccountsRoot
	s.mu.Unlock()

	return record.ChangedAccountsRoot, nil
}

// LastChangedNotebook returns the notebook an account last changed in.
func (s *Store) LastChangedNotebook(notaryID ledger.NotaryID, origin ledger.AccountOrigin) (ledger.NotebookNumber, error) {
	data, err := s.get(originKey(notaryID, origin))
	if err != nil {
		return 0, fmt.Errorf("account origin %s: %w", origin, err)
	}

	if len(data) != 4 {
		return 0, fmt.Errorf("account origin %s: corrupt record", origin)
	}

	return ledger.NotebookNumber(binary.BigEndian.Uint32(data)), nil
}

// IsValidTransferToLocalchain reports whether the transfer was registered for
// the account and amount, is unclaimed and has not expired at the tick.
func (s *Store) IsValidTransferToLocalchain(notaryID ledger.NotaryID, transferID uint32, accountID ledger.AccountID, milligons uint64, tick ledger.Tick) (bool, error) {
	t, err := s.Transfer(notaryID, transferID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, err
	}

	return t.valid(accountID, milligons, tick), nil
}

// =============================================================================

// Notebook returns the record of an audited notebook.
func (s *Store) Notebook(notaryID ledger.NotaryID, number ledger.NotebookNumber) (NotebookRecord, error) {
	data, err := s.get(notebookKey(notaryID, number))
	if err != nil {
		return NotebookRecord{}, fmt.Errorf("notary %d notebook %d: %w", notaryID, number, err)
	}

	var record NotebookRecord
	if err := rlp.DecodeBytes(data, &record); err != nil {
		return NotebookRecord{}, fmt.Errorf("decoding notary %d notebook %d: %w", notaryID, number, err)
	}

	return record, nil
}

// Notebooks returns the records of a notary in notebook order.
func (s *Store) Notebooks(notaryID ledger.NotaryID) ([]NotebookRecord, error) {
	prefix := make([]byte, 5)
	prefix[0] = prefixNotebook
	binary.BigEndian.PutUint32(prefix[1:], uint32(notaryID))

	iter := s.db.NewIterator(util.BytesPrefix(prefix), nil)
	defer iter.Release()

	var records []NotebookRecord
	for iter.Next() {
		var record NotebookRecord
		if err := rlp.DecodeBytes(iter.Value(), &record); err != nil {
			return nil, fmt.Errorf("decoding notary %d record: %w", notaryID, err)
		}
		records = append(records, record)
	}

	if err := iter.Error(); err != nil {
		return nil, err
	}

	return records, nil
}

// Transfer returns a registered transfer.
func (s *Store) Transfer(notaryID ledger.NotaryID, transferID uint32) (Transfer, error) {
	data, err := s.get(transferKey(notaryID, transferID))
	if err != nil {
		return Transfer{}, fmt.Errorf("transfer %d: %w", transferID, err)
	}

	var t Transfer
	if err := rlp.DecodeBytes(data, &t); err != nil {
		return Transfer{}, fmt.Errorf("decoding transfer %d: %w", transferID, err)
	}

	return t, nil
}

// RegisterTransfer records a mainchain transfer the account may claim
// through the notary. A transfer id can only be registered once.
func (s *Store) RegisterTransfer(notaryID ledger.NotaryID, t Transfer) error {
	key := transferKey(notaryID, t.TransferID)

	exists, err := s.db.Has(key, nil)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("transfer %d is already registered", t.TransferID)
	}

	t.Claimed = false
	data, err := rlp.EncodeToBytes(t)
	if err != nil {
		return err
	}

	return s.db.Put(key, data, nil)
}

// NotaryState returns the raw audit state saved for the notary.
func (s *Store) NotaryState(notaryID ledger.NotaryID) ([]byte, error) {
	data, err := s.get(stateKey(notaryID))
	if err != nil {
		return nil, fmt.Errorf("notary %d state: %w", notaryID, err)
	}
	return data, nil
}

func (s *Store) get(key []byte) ([]byte, error) {
	data, err := s.db.Get(key, nil)
	if err != nil {
		if errors.Is(err, leveldb.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return data, nil
}

func (t Transfer) valid(accountID ledger.AccountID, milligons uint64, tick ledger.Tick) bool {
	return !t.Claimed && t.AccountID == accountID && t.Milligons == milligons && tick <= t.ExpirationTick
}

// =============================================================================

func pair(a uint32, b uint32) [8]byte {
	var k [8]byte
	binary.BigEndian.PutUint32(k[:4], a)
	binary.BigEndian.PutUint32(k[4:], b)
	return k
}

func notebookKey(notaryID ledger.NotaryID, number ledger.NotebookNumber) []byte {
	k := pair(uint32(notaryID), uint32(number))
	return append([]byte{prefixNotebook}, k[:]...)
}

func originKey(notaryID ledger.NotaryID, origin ledger.AccountOrigin) []byte {
	k := make([]byte, 13)
	k[0] = prefixOrigin
	binary.BigEndian.PutUint32(k[1:], uint32(notaryID))
	binary.BigEndian.PutUint32(k[5:], uint32(origin.NotebookNumber))
	binary.BigEndian.PutUint32(k[9:], origin.AccountUID)
	return k
}

func transferKey(notaryID ledger.NotaryID, transferID uint32) []byte {
	k := pair(uint32(notaryID), transferID)
	return append([]byte{prefixTransfer}, k[:]...)
}

func stateKey(notaryID ledger.NotaryID) []byte {
	k := make([]byte, 5)
	k[0] = prefixState
	binary.BigEndian.PutUint32(k[1:], uint32(notaryID))
	return k
}
