package audit

import (
	"errors"
	"fmt"

	"github.com/argonprotocol/argon/foundation/blockchain/ledger"
)

// Notebook sequencing failures.
var (
	ErrDuplicateNotebookNumber          = errors.New("duplicate notebook number")
	ErrMissingNotebookNumber            = errors.New("missing notebook number")
	ErrNotebookTickAlreadyUsed          = errors.New("notebook tick already used")
	ErrInvalidSecretProvided            = errors.New("invalid secret provided")
	ErrCatchupNotebooksMissing          = errors.New("catchup notebooks missing")
	ErrNotebookSubmittedForLockedNotary = errors.New("notebook submitted for locked notary")
	ErrInvalidReprocessNotebook         = errors.New("invalid reprocess notebook")
)

// Notary management failures.
var (
	ErrUnknownNotary         = errors.New("unknown notary")
	ErrNotaryNotLocked       = errors.New("notary not locked")
	ErrInvalidNotaryOperator = errors.New("invalid notary operator")
)

// =============================================================================

// SequenceError reports a notebook that arrived out of order for its notary.
type SequenceError struct {
	Kind           error
	NotaryID       ledger.NotaryID
	NotebookNumber ledger.NotebookNumber
	Expected       ledger.NotebookNumber
}

// Error implements the error interface.
func (e *SequenceError) Error() string {
	return fmt.Sprintf("%s: notary %d notebook %d, expected %d", e.Kind, e.NotaryID, e.NotebookNumber, e.Expected)
}

// Unwrap returns the error kind.
func (e *SequenceError) Unwrap() error {
	return e.Kind
}

// LockedError is returned when a notebook fails its audit and locks the
// notary. It unwraps to the audit failure.
type LockedError struct {
	NotaryID       ledger.NotaryID
	NotebookNumber ledger.NotebookNumber
	Tick           ledger.Tick
	Err            error
}

// Error implements the error interface.
func (e *LockedError) Error() string {
	return fmt.Sprintf("notary %d locked at notebook %d tick %d: %s", e.NotaryID, e.NotebookNumber, e.Tick, e.Err)
}

// Unwrap returns the audit failure.
func (e *LockedError) Unwrap() error {
	return e.Err
}
