package localchain

import (
	"errors"
	"fmt"
)

// ErrInvalidTransition is returned when an event does not apply to the
// status of a balance change.
var ErrInvalidTransition = errors.New("invalid status transition")

// Status is where a balance change is on its way to finality.
type Status uint8

// Set of balance change statuses.
const (
	SubmittedToNotary Status = iota + 1
	SupersededInNotebook
	NotebookPublished
	MainchainFinal
	WaitingForSendClaim
	Canceled
)

var statusNames = map[Status]string{
	SubmittedToNotary:    "submitted_to_notary",
	SupersededInNotebook: "superseded_in_notebook",
	NotebookPublished:    "notebook_published",
	MainchainFinal:       "mainchain_final",
	WaitingForSendClaim:  "waiting_for_send_claim",
	Canceled:             "canceled",
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

// Event is something the localchain learned about a balance change.
type Event uint8

// Set of balance change events.
const (
	Submitted Event = iota + 1
	NotebookClosed
	Superseded
	Finalized
	SendUnclaimed
	Cancel
)

var eventNames = map[Event]string{
	Submitted:      "submitted",
	NotebookClosed: "notebook_closed",
	Superseded:     "superseded",
	Finalized:      "finalized",
	SendUnclaimed:  "send_unclaimed",
	Cancel:         "cancel",
}

// String implements the fmt.Stringer interface.
func (e Event) String() string {
	if n, exists := eventNames[e]; exists {
		return n
	}
	return "unknown"
}

// transitions lists the status each event moves a balance change to. A
// zero status is a change that was never sent.
var transitions = map[Status]map[Event]Status{
	0: {
		Submitted: SubmittedToNotary,
	},
	SubmittedToNotary: {
		NotebookClosed: NotebookPublished,
		Superseded:     SupersededInNotebook,
		Cancel:         Canceled,
	},
	SupersededInNotebook: {
		Finalized: MainchainFinal,
	},
	NotebookPublished: {
		SendUnclaimed: WaitingForSendClaim,
		Finalized:     MainchainFinal,
	},
	WaitingForSendClaim: {
		Finalized: MainchainFinal,
		Cancel:    Canceled,
	},
}

// NextStatus returns the status a balance change moves to on the event.
func NextStatus(current Status, event Event) (Status, error) {
	next, exists := transitions[current][event]
	if !exists {
		return current, fmt.Errorf("%w: %s on %s", ErrInvalidTransition, event, current)
	}
	return next, nil
}
