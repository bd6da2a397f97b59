package worker

import (
	"time"

	"github.com/argonprotocol/argon/foundation/blockchain/audit"
)

// minimumWait keeps the ticker from being reset to a non positive duration.
const minimumWait = 10 * time.Millisecond

// closeOperations closes a notebook at the start of every tick, or when
// signaled.
func (w *Worker) closeOperations() {
	w.evHandler("worker: closeOperations: G started")
	defer w.evHandler("worker: closeOperations: G completed")

	ticker := time.NewTicker(w.untilNextTick())
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if !w.isShutdown() {
				w.runCloseOperation()
			}
		case <-w.close:
			if !w.isShutdown() {
				w.runCloseOperation()
			}
		case <-w.shut:
			w.evHandler("worker: closeOperations: received shut signal")
			return
		}

		// Start the next cycle on the tick boundary.
		ticker.Reset(w.untilNextTick())
	}
}

// runCloseOperation closes the open notebook when its tick has passed,
// stores it and queues it for audit. Nothing is closed while the notary is
// locked or too many closed notebooks are waiting for audit.
func (w *Worker) runCloseOperation() {
	w.evHandler("worker: runCloseOperation: started")
	defer w.evHandler("worker: runCloseOperation: completed")

	current := w.genesis.TickAt(w.now())

	number, tick := w.notary.OpenNotebook()
	if current <= tick {
		w.evHandler("worker: runCloseOperation: notebook[%d] tick[%d] still open at tick[%d]", number, tick, current)
		return
	}

	state, err := w.auditor.Status(w.notary.NotaryID())
	if err != nil {
		w.evHandler("worker: runCloseOperation: ERROR: %s", err)
		return
	}

	switch {
	case state.Status == audit.Locked:
		w.evHandler("worker: runCloseOperation: notebook[%d] kept open: notary locked at notebook[%d]", number, state.LockedNotebookNumber)
		return

	case number > state.LastNotebookNumber+maxSubmitRequests:
		w.evHandler("worker: runCloseOperation: notebook[%d] kept open: audited to notebook[%d]", number, state.LastNotebookNumber)
		return
	}

	nb, err := w.notary.CloseNotebook(current)
	if err != nil {
		w.evHandler("worker: runCloseOperation: ERROR: %s", err)
		return
	}

	w.evHandler("worker: runCloseOperation: CLOSED: %s", nb)

	if w.storage != nil {
		if err := w.storage.Write(nb); err != nil {
			w.evHandler("worker: runCloseOperation: ERROR: storing notebook[%d]: %s", nb.Header.NotebookNumber, err)
		}
	}

	select {
	case w.submit <- nb:
	case <-w.shut:
		w.evHandler("worker: runCloseOperation: shut before notebook[%d] was queued", nb.Header.NotebookNumber)
	}
}

// untilNextTick returns how long until the next tick starts.
func (w *Worker) untilNextTick() time.Duration {
	now := w.now()
	next := w.genesis.TickStart(w.genesis.TickAt(now) + 1)

	wait := next.Sub(now)
	if wait < minimumWait {
		wait = minimumWait
	}
	return wait
}
