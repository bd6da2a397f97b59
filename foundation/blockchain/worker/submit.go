package worker

import (
	"errors"

	"github.com/argonprotocol/argon/foundation/blockchain/audit"
	"github.com/argonprotocol/argon/foundation/blockchain/ledger"
)

// maxSubmitRequests represents the max number of closed notebooks that can
// wait for audit before closing stops.
const maxSubmitRequests = 100

// submitOperations hands closed notebooks to the auditor.
func (w *Worker) submitOperations() {
	w.evHandler("worker: submitOperations: G started")
	defer w.evHandler("worker: submitOperations: G completed")

	for {
		select {
		case nb := <-w.submit:
			w.unaudited = append(w.unaudited, nb)
			if !w.isShutdown() {
				w.runSubmitOperation()
			}
		case <-w.resubmit:
			if !w.isShutdown() {
				w.runSubmitOperation()
			}
		case <-w.shut:
			w.evHandler("worker: submitOperations: received shut signal")
			return
		}
	}
}

// runSubmitOperation audits the newest closed notebook with the older ones
// still waiting as its catch-up. Notebooks stay queued until the auditor
// accepts them. A notebook that locks the notary is kept, with the ones
// after it, to be reprocessed once the notary is unlocked.
func (w *Worker) runSubmitOperation() {
	w.evHandler("worker: runSubmitOperation: started")
	defer w.evHandler("worker: runSubmitOperation: completed")

	state, err := w.auditor.Status(w.notary.NotaryID())
	if err != nil {
		w.evHandler("worker: runSubmitOperation: ERROR: %s", err)
		return
	}

	if state.Status == audit.Locked {
		w.evHandler("worker: runSubmitOperation: holding[%d]: notary locked at notebook[%d]", len(w.unaudited), state.LockedNotebookNumber)
		return
	}

	w.unaudited = after(w.unaudited, state.LastNotebookNumber)
	if len(w.unaudited) == 0 {
		return
	}

	last := len(w.unaudited) - 1
	nb := w.unaudited[last]
	catchup := w.unaudited[:last]

	err = w.auditor.Submit(nb, catchup...)

	var locked *audit.LockedError
	switch {
	case err == nil:
		w.evHandler("worker: runSubmitOperation: AUDITED: notebook[%d] catchup[%d]", nb.Header.NotebookNumber, len(catchup))
		w.unaudited = nil

	case errors.As(err, &locked):
		w.evHandler("worker: runSubmitOperation: LOCKED: %s", locked)
		w.unaudited = after(w.unaudited, locked.NotebookNumber-1)

	default:
		w.evHandler("worker: runSubmitOperation: ERROR: notebook[%d]: %s", nb.Header.NotebookNumber, err)
	}
}

// after returns the notebooks numbered after number.
func after(notebooks []ledger.Notebook, number ledger.NotebookNumber) []ledger.Notebook {
	kept := notebooks[:0]
	for _, nb := range notebooks {
		if nb.Header.NotebookNumber > number {
			kept = append(kept, nb)
		}
	}
	return kept
}
