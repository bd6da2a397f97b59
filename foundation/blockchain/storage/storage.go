// Package storage defines how signed notebooks are kept once they pass an
// audit. Notebooks are stored per notary and read back in number order.
package storage

import (
	"errors"

	"github.com/argonprotocol/argon/foundation/blockchain/ledger"
)

// Set of errors returned by storage implementations.
var (
	ErrNotFound   = errors.New("notebook not found")
	ErrOutOfOrder = errors.New("notebook is out of order")
	ErrEndOfChain = errors.New("end of notebooks")
)

// Storage interface represents the behavior required to be implemented by any
// package providing support for reading and writing notebooks.
type Storage interface {
	Write(notebook ledger.Notebook) error
	GetNotebook(notaryID ledger.NotaryID, number ledger.NotebookNumber) (ledger.Notebook, error)
	ForEach(notaryID ledger.NotaryID) Iterator
	Close() error
	Reset() error
}

// Iterator interface represents the behavior required to be implemented by any
// package providing support to iterate over the notebooks of a notary.
type Iterator interface {
	Next() (ledger.Notebook, error)
	Done() bool
}

// Latest walks the notebooks of a notary and returns the last one stored.
// It returns ErrNotFound when the notary has none.
func Latest(strg Storage, notaryID ledger.NotaryID) (ledger.Notebook, error) {
	var latest ledger.Notebook
	var found bool

	iter := strg.ForEach(notaryID)
	for nb, err := iter.Next(); !iter.Done(); nb, err = iter.Next() {
		if err != nil {
			return ledger.Notebook{}, err
		}
		latest = nb
		found = true
	}

	if !found {
		return ledger.Notebook{}, ErrNotFound
	}

	return latest, nil
}
