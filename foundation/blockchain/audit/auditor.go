// Package audit sequences the notebooks of every notary, runs the notebook
// verification and locks a notary whose notebook fails.
package audit

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/argonprotocol/argon/foundation/blockchain/genesis"
	"github.com/argonprotocol/argon/foundation/blockchain/history"
	"github.com/argonprotocol/argon/foundation/blockchain/ledger"
	"github.com/argonprotocol/argon/foundation/blockchain/signature"
	"github.com/argonprotocol/argon/foundation/blockchain/storage"
	"github.com/argonprotocol/argon/foundation/blockchain/verify"
)

// EventHandler defines a function that is called when events
// occur in the processing of notebooks.
type EventHandler func(v string, args ...any)

// Config represents the configuration required to start the auditor.
type Config struct {
	Genesis   genesis.Genesis
	History   *history.Store
	Storage   storage.Storage
	Metrics   *Metrics
	EvHandler EventHandler
}

// Auditor audits the notebooks of the notaries registered at genesis. One
// submission is processed at a time.
type Auditor struct {
	mu sync.Mutex

	genesis   genesis.Genesis
	history   *history.Store
	storage   storage.Storage
	metrics   *Metrics
	evHandler EventHandler

	states       map[ledger.NotaryID]State
	voteMinimums map[signature.Digest]uint64
}

// New constructs an auditor and restores the saved state of every notary.
func New(cfg Config) (*Auditor, error) {
	ev := func(v string, args ...any) {
		if cfg.EvHandler != nil {
			cfg.EvHandler(v, args...)
		}
	}

	metrics := cfg.Metrics
	if metrics == nil {
		metrics = NewMetrics(nil)
	}

	a := Auditor{
		genesis:      cfg.Genesis,
		history:      cfg.History,
		storage:      cfg.Storage,
		metrics:      metrics,
		evHandler:    ev,
		states:       make(map[ledger.NotaryID]State),
		voteMinimums: make(map[signature.Digest]uint64),
	}

	for _, n := range cfg.Genesis.Notaries {
		data, err := cfg.History.NotaryState(n.NotaryID)
		switch {
		case errors.Is(err, history.ErrNotFound):
			a.states[n.NotaryID] = State{}

		case err != nil:
			return nil, err

		default:
			var state State
			if err := json.Unmarshal(data, &state); err != nil {
				return nil, fmt.Errorf("decoding notary %d state: %w", n.NotaryID, err)
			}
			a.states[n.NotaryID] = state
		}

		ev("audit: restored: notary[%d] status[%s] notebook[%d]", n.NotaryID, a.states[n.NotaryID].Status, a.states[n.NotaryID].LastNotebookNumber)
	}

	a.updateLocked()

	return &a, nil
}

// =============================================================================

// Submit audits a notebook, after first auditing the catch-up notebooks that
// lead up to it. Everything is verified against the history as it will be
// once the earlier notebooks in the call are applied, and nothing is saved
// unless every notebook is in sequence. A notebook that fails its audit
// locks the notary: the lock is saved and a LockedError is returned.
func (a *Auditor) Submit(notebook ledger.Notebook, catchup ...ledger.Notebook) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	notaryID := notebook.Header.NotaryID

	notary, exists := a.genesis.Notary(notaryID)
	if !exists {
		return fmt.Errorf("%w: %d", ErrUnknownNotary, notaryID)
	}

	state := a.states[notaryID]

	if len(catchup) > 0 {
		numbers := make([]ledger.NotebookNumber, len(catchup))
		for i, nb := range catchup {
			if nb.Header.NotaryID != notaryID {
				return fmt.Errorf("%w: catchup notebook from notary %d", ErrCatchupNotebooksMissing, nb.Header.NotaryID)
			}
			numbers[i] = nb.Header.NotebookNumber
		}

		if err := CheckCatchup(state.LastNotebookNumber, numbers, notebook.Header.NotebookNumber); err != nil {
			a.metrics.audited.WithLabelValues(resultRejected).Inc()
			return err
		}
	}

	params := verify.NotebookParams{
		NotaryOperator:             notary.Operator,
		VoteMinimums:               a.voteMinimums,
		ChannelHoldExpirationTicks: a.genesis.ChannelHoldExpirationTicks,
	}

	notebooks := make([]ledger.Notebook, 0, len(catchup)+1)
	notebooks = append(notebooks, catchup...)
	notebooks = append(notebooks, notebook)

	batch := a.history.NewBatch()
	var accepted []ledger.Notebook
	var locked *LockedError

	for _, nb := range notebooks {
		a.evHandler("audit: submit: %s", nb)

		result, auditErr := verify.VerifyNotebook(batch, nb, params)

		next, effects, err := Transition(notaryID, state, Submitted{Header: nb.Header, AuditErr: auditErr})
		if err != nil {
			batch.Discard()
			a.metrics.audited.WithLabelValues(resultRejected).Inc()
			a.evHandler("audit: submit: notary[%d] notebook[%d]: REJECTED: %s", notaryID, nb.Header.NotebookNumber, err)
			return err
		}
		state = next

		for _, effect := range effects {
			switch effect := effect.(type) {
			case NotebookAccepted:
				if err := batch.Apply(nb, result); err != nil {
					batch.Discard()
					return err
				}
				accepted = append(accepted, nb)

			case NotaryLocked:
				locked = &LockedError{NotaryID: notaryID, NotebookNumber: effect.NotebookNumber, Tick: effect.Tick, Err: effect.Reason}

			case NotaryActivated:
				a.evHandler("audit: submit: notary[%d]: reactivated at notebook[%d]", notaryID, effect.NotebookNumber)
			}
		}

		if locked != nil {
			break
		}
	}

	if err := a.commit(batch, notaryID, state); err != nil {
		return err
	}

	for _, nb := range accepted {
		if err := a.storage.Write(nb); err != nil {
			return fmt.Errorf("storing %s: %w", nb, err)
		}

		a.metrics.audited.WithLabelValues(resultAccepted).Inc()
		a.metrics.tax.Add(float64(nb.Header.Tax))
		a.metrics.votingPower.Add(float64(nb.Header.BlockVotingPower))
		a.evHandler("audit: submit: notary[%d] notebook[%d] tick[%d]: ACCEPTED", notaryID, nb.Header.NotebookNumber, nb.Header.Tick)
	}

	if locked != nil {
		a.metrics.audited.WithLabelValues(resultLocked).Inc()
		a.evHandler("audit: submit: notary[%d] notebook[%d]: LOCKED: %s", notaryID, locked.NotebookNumber, locked.Err)
		return locked
	}

	return nil
}

// Unlock moves a locked notary to reactivated when its operator signed the
// request for the notebook that failed.
func (a *Auditor) Unlock(req UnlockRequest) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	notary, exists := a.genesis.Notary(req.NotaryID)
	if !exists {
		return fmt.Errorf("%w: %d", ErrUnknownNotary, req.NotaryID)
	}

	if !req.VerifySignature(notary.Operator) {
		return fmt.Errorf("%w: notary %d", ErrInvalidNotaryOperator, req.NotaryID)
	}

	state := a.states[req.NotaryID]
	if state.Status == Locked && req.NotebookNumber != state.LockedNotebookNumber {
		return &SequenceError{Kind: ErrInvalidReprocessNotebook, NotaryID: req.NotaryID, NotebookNumber: req.NotebookNumber, Expected: state.LockedNotebookNumber}
	}

	next, _, err := Transition(req.NotaryID, state, Unlocked{})
	if err != nil {
		return err
	}

	if err := a.commit(a.history.NewBatch(), req.NotaryID, next); err != nil {
		return err
	}

	a.evHandler("audit: unlock: notary[%d]: reprocess notebook[%d]", req.NotaryID, next.ReprocessNotebookNumber)
	return nil
}

// SetVoteMinimums replaces the blocks that may be voted on and the minimum
// power of a vote for each. A zero minimum uses the genesis default.
func (a *Auditor) SetVoteMinimums(minimums map[signature.Digest]uint64) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.voteMinimums = make(map[signature.Digest]uint64, len(minimums))
	for block, minimum := range minimums {
		if minimum == 0 {
			minimum = a.genesis.DefaultVoteMinimum
		}
		a.voteMinimums[block] = minimum
	}
}

// VoteMinimums returns a copy of the eligible blocks and their minimums.
func (a *Auditor) VoteMinimums() map[signature.Digest]uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()

	minimums := make(map[signature.Digest]uint64, len(a.voteMinimums))
	for block, minimum := range a.voteMinimums {
		minimums[block] = minimum
	}
	return minimums
}

// =============================================================================

// Status returns the audit state of a notary.
func (a *Auditor) Status(notaryID ledger.NotaryID) (State, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	state, exists := a.states[notaryID]
	if !exists {
		return State{}, fmt.Errorf("%w: %d", ErrUnknownNotary, notaryID)
	}
	return state, nil
}

// LastAudited returns the number of the last notebook accepted from a
// notary.
func (a *Auditor) LastAudited(notaryID ledger.NotaryID) (ledger.NotebookNumber, error) {
	state, err := a.Status(notaryID)
	if err != nil {
		return 0, err
	}
	return state.LastNotebookNumber, nil
}

// Notaries returns the ids of the audited notaries in order.
func (a *Auditor) Notaries() []ledger.NotaryID {
	a.mu.Lock()
	defer a.mu.Unlock()

	ids := make([]ledger.NotaryID, 0, len(a.states))
	for id := range a.states {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Summaries returns what was recorded of every accepted notebook of a notary.
func (a *Auditor) Summaries(notaryID ledger.NotaryID) ([]history.NotebookRecord, error) {
	if _, err := a.Status(notaryID); err != nil {
		return nil, err
	}
	return a.history.Notebooks(notaryID)
}

// Notebook returns an accepted notebook.
func (a *Auditor) Notebook(notaryID ledger.NotaryID, number ledger.NotebookNumber) (ledger.Notebook, error) {
	return a.storage.GetNotebook(notaryID, number)
}

// =============================================================================

// commit saves the notary state with the batch and makes it current.
func (a *Auditor) commit(batch *history.Batch, notaryID ledger.NotaryID, state State) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encoding notary %d state: %w", notaryID, err)
	}

	batch.SetNotaryState(notaryID, data)
	if err := batch.Commit(); err != nil {
		return err
	}

	a.states[notaryID] = state
	a.updateLocked()

	return nil
}

func (a *Auditor) updateLocked() {
	var locked int
	for _, state := range a.states {
		if state.Status == Locked {
			locked++
		}
	}
	a.metrics.locked.Set(float64(locked))
}
