// Package disk implements the ability to read and write notebooks to disk
// as one JSON file per notebook.
package disk

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"github.com/argonprotocol/argon/foundation/blockchain/ledger"
	"github.com/argonprotocol/argon/foundation/blockchain/storage"
)

// Disk represents the serialization implementation for reading and storing
// notebooks in their own separate files on disk, one folder per notary. This
// implements the storage.Storage interface.
type Disk struct {
	dbPath string
}

// New constructs a Disk value for use.
func New(dbPath string) (*Disk, error) {
	if err := os.MkdirAll(dbPath, 0755); err != nil {
		return nil, err
	}

	return &Disk{dbPath: dbPath}, nil
}

// Close in this implementation has nothing to do since a new file is
// written to disk for each notebook and then immediately closed.
func (d *Disk) Close() error {
	return nil
}

// Write stores the notebook in a file labeled with its number. The notary's
// previous notebook must already be stored.
func (d *Disk) Write(notebook ledger.Notebook) error {
	header := notebook.Header

	if header.NotebookNumber > 1 {
		if _, err := os.Stat(d.getPath(header.NotaryID, header.NotebookNumber-1)); err != nil {
			return fmt.Errorf("%w: notary %d notebook %d", storage.ErrOutOfOrder, header.NotaryID, header.NotebookNumber)
		}
	}

	if err := os.MkdirAll(d.notaryPath(header.NotaryID), 0755); err != nil {
		return err
	}

	// Marshal the notebook for writing to disk in a more human readable format.
	data, err := json.MarshalIndent(notebook, "", "  ")
	if err != nil {
		return err
	}

	f, err := os.OpenFile(d.getPath(header.NotaryID, header.NotebookNumber), os.O_CREATE|os.O_TRUNC|os.O_RDWR, 0600)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := f.Write(data); err != nil {
		return err
	}

	return nil
}

// GetNotebook reads the specified notebook of a notary from disk.
func (d *Disk) GetNotebook(notaryID ledger.NotaryID, number ledger.NotebookNumber) (ledger.Notebook, error) {
	f, err := os.OpenFile(d.getPath(notaryID, number), os.O_RDONLY, 0600)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ledger.Notebook{}, fmt.Errorf("%w: notary %d notebook %d", storage.ErrNotFound, notaryID, number)
		}
		return ledger.Notebook{}, err
	}
	defer f.Close()

	var notebook ledger.Notebook
	if err := json.NewDecoder(f).Decode(&notebook); err != nil {
		return ledger.Notebook{}, fmt.Errorf("decoding notary %d notebook %d: %w", notaryID, number, err)
	}

	return notebook, nil
}

// ForEach returns an iterator to walk through the notebooks of a notary
// starting with notebook number 1.
func (d *Disk) ForEach(notaryID ledger.NotaryID) storage.Iterator {
	return &diskIterator{disk: d, notaryID: notaryID}
}

// Reset will clear out every notebook on disk.
func (d *Disk) Reset() error {
	if err := os.RemoveAll(d.dbPath); err != nil {
		return err
	}

	return os.MkdirAll(d.dbPath, 0755)
}

func (d *Disk) notaryPath(notaryID ledger.NotaryID) string {
	return filepath.Join(d.dbPath, strconv.FormatUint(uint64(notaryID), 10))
}

// getPath forms the path to the specified notebook.
func (d *Disk) getPath(notaryID ledger.NotaryID, number ledger.NotebookNumber) string {
	name := strconv.FormatUint(uint64(number), 10)
	return filepath.Join(d.notaryPath(notaryID), name+".json")
}

// =============================================================================

// diskIterator represents the iteration implementation for walking
// through and reading notebooks on disk.
type diskIterator struct {
	disk     *Disk
	notaryID ledger.NotaryID
	current  ledger.NotebookNumber
	eoc      bool
}

// Next retrieves the next notebook from disk.
func (di *diskIterator) Next() (ledger.Notebook, error) {
	if di.eoc {
		return ledger.Notebook{}, storage.ErrEndOfChain
	}

	di.current++
	notebook, err := di.disk.GetNotebook(di.notaryID, di.current)
	if errors.Is(err, storage.ErrNotFound) {
		di.eoc = true
		return ledger.Notebook{}, storage.ErrEndOfChain
	}

	return notebook, err
}

// Done returns the end of chain value.
func (di *diskIterator) Done() bool {
	return di.eoc
}
