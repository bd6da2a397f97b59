// Package errs provides types and support related to web v1 functionality.
package errs

import (
	"errors"
	"net/http"

	"github.com/argonprotocol/argon/foundation/blockchain/audit"
	"github.com/argonprotocol/argon/foundation/blockchain/history"
	"github.com/argonprotocol/argon/foundation/blockchain/notary"
	"github.com/argonprotocol/argon/foundation/blockchain/storage"
	"github.com/argonprotocol/argon/foundation/blockchain/verify"
	"github.com/argonprotocol/argon/foundation/localchain"
)

// Response is the form used for API responses from failures in the API.
type Response struct {
	Error  string            `json:"error"`
	Kind   string            `json:"kind,omitempty"`
	Fields map[string]string `json:"fields,omitempty"`
}

// Trusted is used to pass an error during the request through the
// application with web specific context.
type Trusted struct {
	Err    error
	Status int
}

// NewTrusted wraps a provided error with an HTTP status code. This
// function should be used when handlers encounter expected errors.
func NewTrusted(err error, status int) error {
	return &Trusted{err, status}
}

// Error implements the error interface. It uses the default message of the
// wrapped error. This is what will be shown in the services' logs.
func (re *Trusted) Error() string {
	return re.Err.Error()
}

// Unwrap returns the wrapped error.
func (re *Trusted) Unwrap() error {
	return re.Err
}

// IsTrusted checks if an error of type Trusted exists.
func IsTrusted(err error) bool {
	var re *Trusted
	return errors.As(err, &re)
}

// GetTrusted returns a copy of the Trusted pointer.
func GetTrusted(err error) *Trusted {
	var re *Trusted
	if !errors.As(err, &re) {
		return nil
	}
	return re
}

// =============================================================================

// notFound are the errors that mean the requested thing does not exist.
var notFound = []error{
	history.ErrNotFound,
	notary.ErrAccountNotFound,
	audit.ErrUnknownNotary,
	localchain.ErrNotFound,
	storage.ErrNotFound,
}

// conflict are the errors that mean the request does not fit the current
// state of a notary.
var conflict = []error{
	notary.ErrDuplicateNotarization,
	notary.ErrProofNotAudited,
	audit.ErrDuplicateNotebookNumber,
	audit.ErrMissingNotebookNumber,
	audit.ErrNotebookTickAlreadyUsed,
	audit.ErrNotebookSubmittedForLockedNotary,
	audit.ErrInvalidReprocessNotebook,
	audit.ErrCatchupNotebooksMissing,
	audit.ErrNotaryNotLocked,
}

// FromDomain classifies an error returned by the notary, the auditor or the
// verifiers into a trusted error with the matching status. Rejections of a
// notarization are client errors; anything unrecognized is returned as is.
func FromDomain(err error) error {
	var locked *audit.LockedError
	if errors.As(err, &locked) {
		return NewTrusted(err, http.StatusUnprocessableEntity)
	}

	if _, ok := verify.KindOf(err); ok {
		return NewTrusted(err, http.StatusBadRequest)
	}

	for _, target := range notFound {
		if errors.Is(err, target) {
			return NewTrusted(err, http.StatusNotFound)
		}
	}

	for _, target := range conflict {
		if errors.Is(err, target) {
			return NewTrusted(err, http.StatusConflict)
		}
	}

	if errors.Is(err, audit.ErrInvalidNotaryOperator) {
		return NewTrusted(err, http.StatusForbidden)
	}

	return err
}

// Kind returns the verification error kind carried by the error, if any.
func Kind(err error) string {
	if kind, ok := verify.KindOf(err); ok {
		return kind.Error()
	}
	return ""
}
