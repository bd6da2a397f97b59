// Package memory implements the ability to read and write notebooks to
// memory using a slice per notary.
package memory

import (
	"fmt"
	"sync"

	"github.com/argonprotocol/argon/foundation/blockchain/ledger"
	"github.com/argonprotocol/argon/foundation/blockchain/storage"
)

// Memory represents the serialization implementation for reading and storing
// notebooks in memory. This implements the storage.Storage interface.
type Memory struct {
	mu        sync.RWMutex
	notebooks map[ledger.NotaryID][]ledger.Notebook
}

// New constructs a Memory value for use.
func New() *Memory {
	return &Memory{
		notebooks: make(map[ledger.NotaryID][]ledger.Notebook),
	}
}

// Close in this implementation has nothing to do since everything
// is in memory.
func (m *Memory) Close() error {
	return nil
}

// Write takes the specified notebook and stores it in memory. Notebooks of
// a notary must be written in number order.
func (m *Memory) Write(notebook ledger.Notebook) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	header := notebook.Header
	stored := m.notebooks[header.NotaryID]

	switch l := ledger.NotebookNumber(len(stored)); {
	case l > 0 && header.NotebookNumber == l:
		stored[l-1] = notebook

	case header.NotebookNumber == l+1:
		m.notebooks[header.NotaryID] = append(stored, notebook)

	default:
		return fmt.Errorf("%w: notary %d notebook %d after %d", storage.ErrOutOfOrder, header.NotaryID, header.NotebookNumber, l)
	}

	return nil
}

// GetNotebook returns the specified notebook of a notary.
func (m *Memory) GetNotebook(notaryID ledger.NotaryID, number ledger.NotebookNumber) (ledger.Notebook, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stored := m.notebooks[notaryID]
	if number == 0 || int(number) > len(stored) {
		return ledger.Notebook{}, fmt.Errorf("%w: notary %d notebook %d", storage.ErrNotFound, notaryID, number)
	}

	return stored[number-1], nil
}

// ForEach returns an iterator to walk through the notebooks of a notary
// starting with notebook number 1.
func (m *Memory) ForEach(notaryID ledger.NotaryID) storage.Iterator {
	return &memoryIterator{storage: m, notaryID: notaryID}
}

// Reset will clear out every notebook.
func (m *Memory) Reset() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.notebooks = make(map[ledger.NotaryID][]ledger.Notebook)
	return nil
}

// =============================================================================

// memoryIterator represents the iteration implementation for walking
// through the notebooks of a notary.
type memoryIterator struct {
	storage  *Memory
	notaryID ledger.NotaryID
	current  ledger.NotebookNumber
	eoc      bool
}

// Next retrieves the next notebook.
func (mi *memoryIterator) Next() (ledger.Notebook, error) {
	if mi.eoc {
		return ledger.Notebook{}, storage.ErrEndOfChain
	}

	mi.current++
	notebook, err := mi.storage.GetNotebook(mi.notaryID, mi.current)
	if err != nil {
		mi.eoc = true
		return ledger.Notebook{}, storage.ErrEndOfChain
	}

	return notebook, nil
}

// Done returns the end of chain value.
func (mi *memoryIterator) Done() bool {
	return mi.eoc
}
