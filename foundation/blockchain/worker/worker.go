// Package worker closes the notary's notebook on every tick and hands the
// closed notebooks to the auditor. Closed notebooks are stored before they
// are audited and held until the auditor accepts them.
package worker

import (
	"sync"
	"time"

	"github.com/argonprotocol/argon/foundation/blockchain/audit"
	"github.com/argonprotocol/argon/foundation/blockchain/genesis"
	"github.com/argonprotocol/argon/foundation/blockchain/ledger"
	"github.com/argonprotocol/argon/foundation/blockchain/storage"
)

// EventHandler defines a function that is called when events
// occur in the processing of notebooks.
type EventHandler func(v string, args ...any)

// Notary is the behavior the worker needs from the notary.
type Notary interface {
	NotaryID() ledger.NotaryID
	OpenNotebook() (ledger.NotebookNumber, ledger.Tick)
	CloseNotebook(nextTick ledger.Tick) (ledger.Notebook, error)
	Replay(nb ledger.Notebook) error
}

// Auditor is the behavior the worker needs from the auditor.
type Auditor interface {
	Submit(notebook ledger.Notebook, catchup ...ledger.Notebook) error
	Status(notaryID ledger.NotaryID) (audit.State, error)
}

// Config represents the configuration required to start the worker. Storage
// holds the notebooks the notary closed, audited or not.
type Config struct {
	Genesis   genesis.Genesis
	Notary    Notary
	Auditor   Auditor
	Storage   storage.Storage
	Now       func() time.Time
	EvHandler EventHandler
}

// =============================================================================

// Worker manages the notebook workflows of the node.
type Worker struct {
	genesis   genesis.Genesis
	notary    Notary
	auditor   Auditor
	storage   storage.Storage
	now       func() time.Time
	wg        sync.WaitGroup
	shut      chan struct{}
	close     chan bool
	resubmit  chan bool
	submit    chan ledger.Notebook
	unaudited []ledger.Notebook
	evHandler EventHandler
}

// Run creates a worker, restores the notary from the stored notebooks, and
// starts up all the background processes.
func Run(cfg Config) (*Worker, error) {
	ev := func(v string, args ...any) {
		if cfg.EvHandler != nil {
			cfg.EvHandler(v, args...)
		}
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	w := Worker{
		genesis:   cfg.Genesis,
		notary:    cfg.Notary,
		auditor:   cfg.Auditor,
		storage:   cfg.Storage,
		now:       now,
		shut:      make(chan struct{}),
		close:     make(chan bool, 1),
		resubmit:  make(chan bool, 1),
		submit:    make(chan ledger.Notebook, maxSubmitRequests),
		evHandler: ev,
	}

	// Restore the notary and the notebooks waiting for audit before closing
	// anything new.
	if err := w.Sync(); err != nil {
		return nil, err
	}

	// Load the set of operations we need to run.
	operations := []func(){
		w.closeOperations,
		w.submitOperations,
	}

	// Set waitgroup to match the number of G's we need for the set
	// of operations we have.
	g := len(operations)
	w.wg.Add(g)

	// We don't want to return until we know all the G's are up and running.
	hasStarted := make(chan bool)

	// Start all the operational G's.
	for _, op := range operations {
		go func(op func()) {
			defer w.wg.Done()
			hasStarted <- true
			op()
		}(op)
	}

	// Wait for the G's to report they are running.
	for i := 0; i < g; i++ {
		<-hasStarted
	}

	return &w, nil
}

// =============================================================================

// Shutdown terminates the goroutines performing work.
func (w *Worker) Shutdown() {
	w.evHandler("worker: shutdown: started")
	defer w.evHandler("worker: shutdown: completed")

	w.evHandler("worker: shutdown: terminate goroutines")
	close(w.shut)
	w.wg.Wait()
}

// SignalCloseNotebook asks for the open notebook to be closed now instead of
// at the next tick. If there is already a signal pending in the channel,
// just return since a close will happen.
func (w *Worker) SignalCloseNotebook() {
	select {
	case w.close <- true:
	default:
	}
	w.evHandler("worker: SignalCloseNotebook: close signaled")
}

// SignalSubmit asks for the notebooks waiting for audit to be submitted
// again, as after the notary is unlocked. If there is already a signal
// pending in the channel, just return since a submit will happen.
func (w *Worker) SignalSubmit() {
	select {
	case w.resubmit <- true:
	default:
	}
	w.evHandler("worker: SignalSubmit: submit signaled")
}

// =============================================================================

// isShutdown is used to test if a shutdown has been signaled.
func (w *Worker) isShutdown() bool {
	select {
	case <-w.shut:
		return true
	default:
		return false
	}
}
