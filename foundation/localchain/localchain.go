// Package localchain keeps the balance changes of a localchain wallet in a
// bbolt database and tracks each change until it is final on the mainchain.
package localchain

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/argonprotocol/argon/foundation/blockchain/ledger"
	bolt "go.etcd.io/bbolt"
)

// ErrNotFound is returned when a balance change is not stored.
var ErrNotFound = errors.New("balance change not found")

var (
	// balanceChanges is a bucket holding every row keyed by account, account
	// type and change number, so the changes of an account are adjacent and
	// in order.
	balanceChanges = []byte("BalanceChanges")

	// settings is a bucket holding single values of the localchain.
	settings = []byte("Settings")
)

// fieldNotaryHost is the key in the settings bucket of the notary the
// localchain syncs with.
var fieldNotaryHost = []byte("NotaryHost")

// BalanceChangeRow is a balance change of one of the localchain's accounts
// and what is known about it.
type BalanceChangeRow struct {
	AccountID      ledger.AccountID      `json:"account_id"`
	AccountType    ledger.AccountType    `json:"account_type"`
	ChangeNumber   uint32                `json:"change_number"`
	Balance        uint64                `json:"balance"`
	Status         Status                `json:"status"`
	NotaryID       ledger.NotaryID       `json:"notary_id"`
	NotebookNumber ledger.NotebookNumber `json:"notebook_number,omitempty"`
	Notes          []ledger.Note         `json:"notes"`
	TransferID     *uint32               `json:"transfer_id,omitempty"`
	Change         ledger.BalanceChange  `json:"change"`
	Proof          *ledger.BalanceProof  `json:"proof,omitempty"`
	UpdatedAt      time.Time             `json:"updated_at"`
}

// NewRow returns the row of a balance change about to be sent to a notary.
func NewRow(notaryID ledger.NotaryID, change ledger.BalanceChange) BalanceChangeRow {
	row := BalanceChangeRow{
		AccountID:    change.AccountID,
		AccountType:  change.AccountType,
		ChangeNumber: change.ChangeNumber,
		Balance:      change.Balance,
		NotaryID:     notaryID,
		Notes:        change.Notes,
		Change:       change,
	}

	for _, note := range change.Notes {
		if note.Kind == ledger.ClaimFromMainchain {
			id := note.TransferID
			row.TransferID = &id
		}
	}

	return row
}

// Account returns the ledger account of the row.
func (r BalanceChangeRow) Account() ledger.LocalchainAccount {
	return ledger.LocalchainAccount{AccountID: r.AccountID, AccountType: r.AccountType}
}

// =============================================================================

// Store is a bbolt database of balance change rows.
type Store struct {
	db  *bolt.DB
	now func() time.Time
}

// Open opens the database at path, creating it and its buckets if needed.
func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening localchain: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{balanceChanges, settings} {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db, now: time.Now}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Submit records a balance change sent to the notary.
func (s *Store) Submit(row BalanceChangeRow) error {
	status, err := NextStatus(0, Submitted)
	if err != nil {
		return err
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(balanceChanges)

		key := rowKey(row.Account(), row.ChangeNumber)
		if b.Get(key) != nil {
			return fmt.Errorf("%s change %d already submitted", row.Account(), row.ChangeNumber)
		}

		row.Status = status
		return s.put(b, row)
	})
}

// Apply moves a balance change to the status the event leads to. The
// update function, when not nil, can record what the event carried.
func (s *Store) Apply(account ledger.LocalchainAccount, changeNumber uint32, event Event, update func(row *BalanceChangeRow)) (BalanceChangeRow, error) {
	var row BalanceChangeRow

	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(balanceChanges)

		var err error
		if row, err = get(b, account, changeNumber); err != nil {
			return err
		}

		if row.Status, err = NextStatus(row.Status, event); err != nil {
			return err
		}

		if update != nil {
			update(&row)
		}

		return s.put(b, row)
	})

	return row, err
}

// Get returns one balance change of an account.
func (s *Store) Get(account ledger.LocalchainAccount, changeNumber uint32) (BalanceChangeRow, error) {
	var row BalanceChangeRow

	err := s.db.View(func(tx *bolt.Tx) error {
		var err error
		row, err = get(tx.Bucket(balanceChanges), account, changeNumber)
		return err
	})

	return row, err
}

// Latest returns the balance change of an account with the highest number.
func (s *Store) Latest(account ledger.LocalchainAccount) (BalanceChangeRow, error) {
	rows, err := s.History(account)
	if err != nil {
		return BalanceChangeRow{}, err
	}

	if len(rows) == 0 {
		return BalanceChangeRow{}, fmt.Errorf("%w: %s", ErrNotFound, account)
	}

	return rows[len(rows)-1], nil
}

// History returns every balance change of an account in change order.
func (s *Store) History(account ledger.LocalchainAccount) ([]BalanceChangeRow, error) {
	prefix := accountKey(account)

	var rows []BalanceChangeRow
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(balanceChanges).Cursor()
		for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
			var row BalanceChangeRow
			if err := json.Unmarshal(v, &row); err != nil {
				return err
			}
			rows = append(rows, row)
		}
		return nil
	})

	return rows, err
}

// WithStatus returns every balance change in the status.
func (s *Store) WithStatus(status Status) ([]BalanceChangeRow, error) {
	var rows []BalanceChangeRow

	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(balanceChanges).ForEach(func(_, v []byte) error {
			var row BalanceChangeRow
			if err := json.Unmarshal(v, &row); err != nil {
				return err
			}
			if row.Status == status {
				rows = append(rows, row)
			}
			return nil
		})
	})

	return rows, err
}

// SetNotaryHost records the notary the localchain syncs with.
func (s *Store) SetNotaryHost(host string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(settings).Put(fieldNotaryHost, []byte(host))
	})
}

// NotaryHost returns the notary the localchain syncs with.
func (s *Store) NotaryHost() (string, error) {
	var host string

	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(settings).Get(fieldNotaryHost)
		if v == nil {
			return errors.New("no notary host set")
		}
		host = string(v)
		return nil
	})

	return host, err
}

// =============================================================================

func (s *Store) put(b *bolt.Bucket, row BalanceChangeRow) error {
	row.UpdatedAt = s.now().UTC()

	data, err := json.Marshal(row)
	if err != nil {
		return err
	}

	return b.Put(rowKey(row.Account(), row.ChangeNumber), data)
}

func get(b *bolt.Bucket, account ledger.LocalchainAccount, changeNumber uint32) (BalanceChangeRow, error) {
	v := b.Get(rowKey(account, changeNumber))
	if v == nil {
		return BalanceChangeRow{}, fmt.Errorf("%w: %s change %d", ErrNotFound, account, changeNumber)
	}

	var row BalanceChangeRow
	if err := json.Unmarshal(v, &row); err != nil {
		return BalanceChangeRow{}, err
	}

	return row, nil
}

func accountKey(account ledger.LocalchainAccount) []byte {
	key := make([]byte, 0, 37)
	key = append(key, account.AccountID[:]...)
	return append(key, byte(account.AccountType))
}

func rowKey(account ledger.LocalchainAccount, changeNumber uint32) []byte {
	return binary.BigEndian.AppendUint32(accountKey(account), changeNumber)
}
