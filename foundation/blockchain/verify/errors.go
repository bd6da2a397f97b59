package verify

import (
	"errors"
	"fmt"

	"github.com/argonprotocol/argon/foundation/blockchain/ledger"
	"github.com/argonprotocol/argon/foundation/blockchain/signature"
)

// Structural failures.
var (
	ErrMissingBalanceProof          = errors.New("missing balance proof")
	ErrBalanceChangeMismatch        = errors.New("balance change mismatch")
	ErrInvalidNoteRecipients        = errors.New("invalid note recipients")
	ErrInvalidTaxOperation          = errors.New("invalid tax operation")
	ErrDuplicateAccountChange       = errors.New("duplicate account change")
	ErrInvalidBalanceChangeNumber   = errors.New("invalid balance change number")
	ErrInsufficientBalance          = errors.New("insufficient balance")
	ErrBalanceOverflow              = errors.New("balance overflow")
	ErrInvalidPreviousBalanceProof  = errors.New("invalid previous balance proof")
	ErrMissingAccountOrigin         = errors.New("missing account origin")
	ErrInvalidDomainLeaseAllocation = errors.New("invalid domain lease allocation")
	ErrDomainNotLeased              = errors.New("domain not leased")
)

// Conservation failures.
var (
	ErrBalanceChangeNotNetZero    = errors.New("balance change not net zero")
	ErrTaxBalanceChangeNotNetZero = errors.New("tax balance change not net zero")
	ErrInsufficientTaxIncluded    = errors.New("insufficient tax included")
)

// Channel hold failures.
var (
	ErrAccountLocked               = errors.New("account locked by channel hold")
	ErrChannelHoldNotReadyForClaim = errors.New("channel hold not ready for claim")
	ErrInvalidChannelHoldClaimers  = errors.New("invalid channel hold claimers")
	ErrInvalidChannelHoldNote      = errors.New("invalid channel hold note")
	ErrChannelHoldNoteBelowMinimum = errors.New("channel hold note below minimum")
	ErrChannelHoldNotClaimed       = errors.New("channel hold settle not claimed")
)

// Signature failures.
var (
	ErrInvalidBalanceChangeSignature = errors.New("invalid balance change signature")
	ErrBlockVoteInvalidSignature     = errors.New("block vote invalid signature")
	ErrInvalidNotebookSignature      = errors.New("invalid notebook signature")
)

// Voting failures.
var (
	ErrInvalidBlockVoteTick          = errors.New("invalid block vote tick")
	ErrInvalidDefaultBlockVoteAuthor = errors.New("invalid default block vote author")
	ErrInvalidDefaultBlockVote       = errors.New("invalid default block vote")
	ErrInsufficientBlockVoteMinimum  = errors.New("insufficient block vote minimum")
	ErrInvalidBlockVoteAllocation    = errors.New("invalid block vote allocation")
	ErrInvalidBlockVoteSource        = errors.New("invalid block vote source")
)

// Notebook content failures.
var (
	ErrInvalidBalanceChangeRoot  = errors.New("invalid balance change root")
	ErrInvalidBlockVoteRoot      = errors.New("invalid block vote root")
	ErrInvalidNotebookTaxTotal   = errors.New("invalid notebook tax total")
	ErrInvalidBlockVoteTotals    = errors.New("invalid block vote totals")
	ErrInvalidChainTransfersList = errors.New("invalid chain transfers list")
)

// ErrHistoryLookup is the kind of every failure raised by a history lookup.
var ErrHistoryLookup = errors.New("history lookup")

// kinds are the sentinel errors naming why a notarization or notebook was
// rejected, most specific first.
var kinds = []error{
	ErrMissingBalanceProof, ErrBalanceChangeMismatch, ErrInvalidNoteRecipients,
	ErrInvalidTaxOperation, ErrDuplicateAccountChange, ErrInvalidBalanceChangeNumber,
	ErrInsufficientBalance, ErrBalanceOverflow, ErrInvalidPreviousBalanceProof,
	ErrMissingAccountOrigin, ErrInvalidDomainLeaseAllocation, ErrDomainNotLeased,
	ErrBalanceChangeNotNetZero, ErrTaxBalanceChangeNotNetZero, ErrInsufficientTaxIncluded,
	ErrAccountLocked, ErrChannelHoldNotReadyForClaim, ErrInvalidChannelHoldClaimers,
	ErrInvalidChannelHoldNote, ErrChannelHoldNoteBelowMinimum, ErrChannelHoldNotClaimed,
	ErrInvalidBalanceChangeSignature, ErrBlockVoteInvalidSignature, ErrInvalidNotebookSignature,
	ErrInvalidBlockVoteTick, ErrInvalidDefaultBlockVoteAuthor, ErrInvalidDefaultBlockVote,
	ErrInsufficientBlockVoteMinimum, ErrInvalidBlockVoteAllocation, ErrInvalidBlockVoteSource,
	ErrInvalidBalanceChangeRoot, ErrInvalidBlockVoteRoot, ErrInvalidNotebookTaxTotal,
	ErrInvalidBlockVoteTotals, ErrInvalidChainTransfersList,
	ErrHistoryLookup,
}

// KindOf returns the sentinel error naming why err rejected a notarization
// or notebook.
func KindOf(err error) (error, bool) {
	for _, kind := range kinds {
		if errors.Is(err, kind) {
			return kind, true
		}
	}
	return nil, false
}

// =============================================================================

// SignatureError reports the balance change whose signature failed.
type SignatureError struct {
	ChangeIndex int
}

// Error implements the error interface.
func (e *SignatureError) Error() string {
	return fmt.Sprintf("%s: change index %d", ErrInvalidBalanceChangeSignature, e.ChangeIndex)
}

// Unwrap returns the error kind.
func (e *SignatureError) Unwrap() error {
	return ErrInvalidBalanceChangeSignature
}

// BalanceMismatchError reports a balance that doesn't match its notes.
type BalanceMismatchError struct {
	ChangeIndex int
	Provided    uint64
	Calculated  uint64
}

// Error implements the error interface.
func (e *BalanceMismatchError) Error() string {
	return fmt.Sprintf("%s: change index %d: provided %d, calculated %d", ErrBalanceChangeMismatch, e.ChangeIndex, e.Provided, e.Calculated)
}

// Unwrap returns the error kind.
func (e *BalanceMismatchError) Unwrap() error {
	return ErrBalanceChangeMismatch
}

// NotNetZeroError reports a pool whose sends and claims don't match.
type NotNetZeroError struct {
	AccountType ledger.AccountType
	Sent        uint64
	Claimed     uint64
}

// Error implements the error interface.
func (e *NotNetZeroError) Error() string {
	return fmt.Sprintf("%s: sent %d, claimed %d", e.Unwrap(), e.Sent, e.Claimed)
}

// Unwrap returns the error kind for the pool.
func (e *NotNetZeroError) Unwrap() error {
	if e.AccountType == ledger.Tax {
		return ErrTaxBalanceChangeNotNetZero
	}
	return ErrBalanceChangeNotNetZero
}

// InsufficientTaxError reports an account that didn't pay enough tax.
type InsufficientTaxError struct {
	AccountID ledger.AccountID
	TaxSent   uint64
	TaxOwed   uint64
}

// Error implements the error interface.
func (e *InsufficientTaxError) Error() string {
	return fmt.Sprintf("%s: account %s sent %d, owes %d", ErrInsufficientTaxIncluded, e.AccountID, e.TaxSent, e.TaxOwed)
}

// Unwrap returns the error kind.
func (e *InsufficientTaxError) Unwrap() error {
	return ErrInsufficientTaxIncluded
}

// ChannelHoldTimingError reports a channel hold settled or claimed outside
// its window.
type ChannelHoldTimingError struct {
	Kind           error
	AccountID      ledger.AccountID
	Tick           ledger.Tick
	ExpirationTick ledger.Tick
	ClawbackTick   ledger.Tick
}

// Error implements the error interface.
func (e *ChannelHoldTimingError) Error() string {
	return fmt.Sprintf("%s: hold on %s at tick %d, expires %d, open to claimers %d", e.Kind, e.AccountID, e.Tick, e.ExpirationTick, e.ClawbackTick)
}

// Unwrap returns the error kind.
func (e *ChannelHoldTimingError) Unwrap() error {
	return e.Kind
}

// VoteTickError reports a vote for the wrong tick.
type VoteTickError struct {
	Tick         ledger.Tick
	NotebookTick ledger.Tick
}

// Error implements the error interface.
func (e *VoteTickError) Error() string {
	return fmt.Sprintf("%s: vote tick %d, notebook tick %d", ErrInvalidBlockVoteTick, e.Tick, e.NotebookTick)
}

// Unwrap returns the error kind.
func (e *VoteTickError) Unwrap() error {
	return ErrInvalidBlockVoteTick
}

// DefaultVoteAuthorError reports a default vote not cast by the operator.
type DefaultVoteAuthorError struct {
	Author   ledger.AccountID
	Expected ledger.AccountID
}

// Error implements the error interface.
func (e *DefaultVoteAuthorError) Error() string {
	return fmt.Sprintf("%s: author %s, expected %s", ErrInvalidDefaultBlockVoteAuthor, e.Author, e.Expected)
}

// Unwrap returns the error kind.
func (e *DefaultVoteAuthorError) Unwrap() error {
	return ErrInvalidDefaultBlockVoteAuthor
}

// VoteMinimumError reports a vote below the block's minimum.
type VoteMinimumError struct {
	BlockHash signature.Digest
	Power     uint64
	Minimum   uint64
}

// Error implements the error interface.
func (e *VoteMinimumError) Error() string {
	return fmt.Sprintf("%s: block %s power %d, minimum %d", ErrInsufficientBlockVoteMinimum, e.BlockHash, e.Power, e.Minimum)
}

// Unwrap returns the error kind.
func (e *VoteMinimumError) Unwrap() error {
	return ErrInsufficientBlockVoteMinimum
}

// HistoryLookupError wraps a failure raised by the history lookup.
type HistoryLookupError struct {
	Err error
}

// Error implements the error interface.
func (e *HistoryLookupError) Error() string {
	return fmt.Sprintf("%s: %s", ErrHistoryLookup, e.Err)
}

// Unwrap returns both the error kind and the lookup's own error.
func (e *HistoryLookupError) Unwrap() []error {
	return []error{ErrHistoryLookup, e.Err}
}
