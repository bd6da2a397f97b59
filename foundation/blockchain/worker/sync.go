package worker

// Sync replays the notebooks the notary closed before a restart, so the
// notary continues numbering and proving from where it stopped. Closed
// notebooks the auditor has not accepted are queued for audit again.
func (w *Worker) Sync() error {
	w.evHandler("worker: sync: started")
	defer w.evHandler("worker: sync: completed")

	if w.storage == nil {
		return nil
	}

	state, err := w.auditor.Status(w.notary.NotaryID())
	if err != nil {
		return err
	}

	iter := w.storage.ForEach(w.notary.NotaryID())
	for nb, err := iter.Next(); !iter.Done(); nb, err = iter.Next() {
		if err != nil {
			return err
		}

		if err := w.notary.Replay(nb); err != nil {
			return err
		}
		w.evHandler("worker: sync: replayed: %s", nb)

		if nb.Header.NotebookNumber > state.LastNotebookNumber {
			w.unaudited = append(w.unaudited, nb)
		}
	}

	if len(w.unaudited) > 0 {
		w.evHandler("worker: sync: unaudited[%d] after notebook[%d]", len(w.unaudited), state.LastNotebookNumber)
		w.SignalSubmit()
	}

	number, tick := w.notary.OpenNotebook()
	w.evHandler("worker: sync: open notebook[%d] tick[%d]", number, tick)

	return nil
}
