package audit

import (
	"fmt"

	"github.com/argonprotocol/argon/foundation/blockchain/ledger"
	"github.com/argonprotocol/argon/foundation/blockchain/signature"
)

// Status is where a notary is in its audit lifecycle.
type Status uint8

// Set of notary statuses. A notary moves Active -> Locked when a notebook
// fails its audit, Locked -> Reactivated when its operator unlocks it, and
// Reactivated -> Active once the failed notebook is reprocessed.
const (
	Active Status = iota
	Locked
	Reactivated
)

var statusNames = map[Status]string{
	Active:      "active",
	Locked:      "locked",
	Reactivated: "reactivated",
}

// String implements the fmt.Stringer interface.
func (s Status) String() string {
	if n, exists := statusNames[s]; exists {
		return n
	}
	return "unknown"
}

// MarshalText implements the encoding.TextMarshaler interface.
func (s Status) MarshalText() ([]byte, error) {
	if _, exists := statusNames[s]; !exists {
		return nil, fmt.Errorf("unknown status %d", s)
	}
	return []byte(s.String()), nil
}

// UnmarshalText implements the encoding.TextUnmarshaler interface.
func (s *Status) UnmarshalText(text []byte) error {
	for status, name := range statusNames {
		if name == string(text) {
			*s = status
			return nil
		}
	}
	return fmt.Errorf("unknown status %q", text)
}

// =============================================================================

// State is the audit state of one notary. The zero value is an active notary
// that has not submitted a notebook yet.
type State struct {
	Status             Status                `json:"status"`
	LastNotebookNumber ledger.NotebookNumber `json:"last_notebook_number"`
	LastTick           ledger.Tick           `json:"last_tick"`
	LastSecretHash     signature.Digest      `json:"last_secret_hash"`
	LastBlockVotesRoot signature.Digest      `json:"last_block_votes_root"`

	// Set while Locked, kept while Reactivated.
	LockedNotebookNumber ledger.NotebookNumber `json:"locked_notebook_number,omitempty"`
	LockedTick           ledger.Tick           `json:"locked_tick,omitempty"`
	LockReason           string                `json:"lock_reason,omitempty"`

	// Set while Reactivated.
	ReprocessNotebookNumber ledger.NotebookNumber `json:"reprocess_notebook_number,omitempty"`
}

// =============================================================================

// Event is an input to the notary state machine.
type Event interface {
	event()
}

// Submitted is a notebook arriving for audit. AuditErr holds the result of
// verifying the notebook body, nil when it passed.
type Submitted struct {
	Header   ledger.NotebookHeader
	AuditErr error
}

// Unlocked is the notary operator asking to reprocess a failed notebook.
type Unlocked struct{}

func (Submitted) event() {}
func (Unlocked) event()  {}

// Effect is an output of the state machine the caller must carry out.
type Effect interface {
	effect()
}

// NotebookAccepted records the notebook in the history.
type NotebookAccepted struct {
	NotebookNumber ledger.NotebookNumber
	Tick           ledger.Tick
}

// NotaryLocked records the audit failure that locked the notary.
type NotaryLocked struct {
	NotebookNumber ledger.NotebookNumber
	Tick           ledger.Tick
	Reason         error
}

// NotaryReactivated records the unlock and the notebook to reprocess.
type NotaryReactivated struct {
	ReprocessNotebookNumber ledger.NotebookNumber
}

// NotaryActivated records the notary returning to normal operation.
type NotaryActivated struct {
	NotebookNumber ledger.NotebookNumber
}

func (NotebookAccepted) effect()  {}
func (NotaryLocked) effect()      {}
func (NotaryReactivated) effect() {}
func (NotaryActivated) effect()   {}

// =============================================================================

// Transition applies an event to the state of a notary. A notebook that is
// out of sequence is rejected with an error and the state is unchanged. A
// notebook in sequence that fails its audit, including its secret, locks the
// notary and is reported through the NotaryLocked effect, not an error.
func Transition(notaryID ledger.NotaryID, state State, ev Event) (State, []Effect, error) {
	switch ev := ev.(type) {
	case Submitted:
		return submitted(notaryID, state, ev)

	case Unlocked:
		if state.Status != Locked {
			return state, nil, fmt.Errorf("%w: notary %d is %s", ErrNotaryNotLocked, notaryID, state.Status)
		}

		state.Status = Reactivated
		state.ReprocessNotebookNumber = state.LockedNotebookNumber
		return state, []Effect{NotaryReactivated{ReprocessNotebookNumber: state.ReprocessNotebookNumber}}, nil
	}

	return state, nil, fmt.Errorf("unknown event %T", ev)
}

func submitted(notaryID ledger.NotaryID, state State, ev Submitted) (State, []Effect, error) {
	header := ev.Header
	expected := state.LastNotebookNumber + 1

	switch {
	case state.Status == Locked:
		return state, nil, fmt.Errorf("%w: notary %d locked at notebook %d", ErrNotebookSubmittedForLockedNotary, notaryID, state.LockedNotebookNumber)

	case state.Status == Reactivated && header.NotebookNumber != state.ReprocessNotebookNumber:
		return state, nil, &SequenceError{Kind: ErrInvalidReprocessNotebook, NotaryID: notaryID, NotebookNumber: header.NotebookNumber, Expected: state.ReprocessNotebookNumber}

	case header.NotebookNumber < expected:
		return state, nil, &SequenceError{Kind: ErrDuplicateNotebookNumber, NotaryID: notaryID, NotebookNumber: header.NotebookNumber, Expected: expected}

	case header.NotebookNumber > expected:
		return state, nil, &SequenceError{Kind: ErrMissingNotebookNumber, NotaryID: notaryID, NotebookNumber: header.NotebookNumber, Expected: expected}

	case state.LastNotebookNumber > 0 && header.Tick <= state.LastTick:
		return state, nil, fmt.Errorf("%w: notary %d notebook %d tick %d, last tick %d", ErrNotebookTickAlreadyUsed, notaryID, header.NotebookNumber, header.Tick, state.LastTick)
	}

	reason := checkSecret(state, header)
	if reason == nil {
		reason = ev.AuditErr
	}

	if reason != nil {
		state.Status = Locked
		state.LockedNotebookNumber = header.NotebookNumber
		state.LockedTick = header.Tick
		state.LockReason = reason.Error()
		state.ReprocessNotebookNumber = 0

		return state, []Effect{NotaryLocked{NotebookNumber: header.NotebookNumber, Tick: header.Tick, Reason: reason}}, nil
	}

	effects := []Effect{NotebookAccepted{NotebookNumber: header.NotebookNumber, Tick: header.Tick}}
	if state.Status == Reactivated {
		effects = append(effects, NotaryActivated{NotebookNumber: header.NotebookNumber})
	}

	return State{
		Status:             Active,
		LastNotebookNumber: header.NotebookNumber,
		LastTick:           header.Tick,
		LastSecretHash:     header.SecretHash,
		LastBlockVotesRoot: header.BlockVotesRoot,
	}, effects, nil
}

// checkSecret verifies the parent secret the notebook reveals hashes, with
// the parent's votes root and number, to the secret hash the parent
// committed to. The first notebook of a notary has no parent.
func checkSecret(state State, header ledger.NotebookHeader) error {
	if state.LastNotebookNumber == 0 {
		return nil
	}

	if header.ParentSecret == nil {
		return fmt.Errorf("%w: notebook %d has no parent secret", ErrInvalidSecretProvided, header.NotebookNumber)
	}

	if ledger.SecretHash(*header.ParentSecret, state.LastBlockVotesRoot, state.LastNotebookNumber) != state.LastSecretHash {
		return fmt.Errorf("%w: notebook %d", ErrInvalidSecretProvided, header.NotebookNumber)
	}

	return nil
}

// CheckCatchup verifies the notebooks submitted ahead of the current one
// continue the notary's history without a gap.
func CheckCatchup(lastNotebookNumber ledger.NotebookNumber, catchup []ledger.NotebookNumber, current ledger.NotebookNumber) error {
	next := lastNotebookNumber + 1

	for _, number := range catchup {
		if number != next {
			return fmt.Errorf("%w: catchup has notebook %d, expected %d", ErrCatchupNotebooksMissing, number, next)
		}
		next++
	}

	if current != next {
		return fmt.Errorf("%w: notebook %d submitted after %d", ErrCatchupNotebooksMissing, current, next-1)
	}

	return nil
}
