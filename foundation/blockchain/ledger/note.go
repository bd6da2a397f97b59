package ledger

import (
	"fmt"

	"github.com/argonprotocol/argon/foundation/blockchain/signature"
)

// NoteKind identifies what a note does to the balance of the account that
// carries it.
type NoteKind uint8

// Set of note kinds.
const (
	Send NoteKind = iota + 1
	Claim
	ClaimFromMainchain
	SendToMainchain
	TaxNote
	LeaseDomain
	SendToVote
	ChannelHold
	ChannelHoldSettle
	ChannelHoldClaim
)

var noteKindNames = map[NoteKind]string{
	Send:               "send",
	Claim:              "claim",
	ClaimFromMainchain: "claim_from_mainchain",
	SendToMainchain:    "send_to_mainchain",
	TaxNote:            "tax",
	LeaseDomain:        "lease_domain",
	SendToVote:         "send_to_vote",
	ChannelHold:        "channel_hold",
	ChannelHoldSettle:  "channel_hold_settle",
	ChannelHoldClaim:   "channel_hold_claim",
}

// String implements the fmt.Stringer interface.
func (k NoteKind) String() string {
	if n, exists := noteKindNames[k]; exists {
		return n
	}
	return "unknown"
}

// MarshalText implements the encoding.TextMarshaler interface.
func (k NoteKind) MarshalText() ([]byte, error) {
	if _, exists := noteKindNames[k]; !exists {
		return nil, fmt.Errorf("unknown note kind %d", k)
	}
	return []byte(k.String()), nil
}

// UnmarshalText implements the encoding.TextUnmarshaler interface.
func (k *NoteKind) UnmarshalText(text []byte) error {
	for kind, name := range noteKindNames {
		if name == string(text) {
			*k = kind
			return nil
		}
	}
	return fmt.Errorf("unknown note kind %q", text)
}

// Inflow reports whether the note adds to the balance of its account.
func (k NoteKind) Inflow() bool {
	switch k {
	case Claim, ClaimFromMainchain, ChannelHoldClaim:
		return true
	}
	return false
}

// Outflow reports whether the note removes from the balance of its account.
func (k NoteKind) Outflow() bool {
	switch k {
	case Send, SendToMainchain, TaxNote, LeaseDomain, SendToVote, ChannelHoldSettle:
		return true
	}
	return false
}

// =============================================================================

// Note moves milligons into or out of the account carrying it. Only the
// fields used by the note's kind are set.
//
//	Send               To optionally restricts which accounts may claim.
//	ClaimFromMainchain TransferID names the mainchain transfer.
//	ChannelHold        Recipient, DelegatedSigner and DomainHash.
type Note struct {
	Milligons       uint64            `json:"milligons"`
	Kind            NoteKind          `json:"kind"`
	To              []AccountID       `json:"to,omitempty"`
	TransferID      uint32            `json:"transfer_id,omitempty"`
	Recipient       AccountID         `json:"recipient"`
	DelegatedSigner *AccountID        `json:"delegated_signer,omitempty"`
	DomainHash      *signature.Digest `json:"domain_hash,omitempty"`
}

// NewSend constructs a send note. With no recipients any account may claim.
func NewSend(milligons uint64, to ...AccountID) Note {
	return Note{Milligons: milligons, Kind: Send, To: to}
}

// NewClaim constructs a claim note.
func NewClaim(milligons uint64) Note {
	return Note{Milligons: milligons, Kind: Claim}
}

// NewTax constructs a tax note.
func NewTax(milligons uint64) Note {
	return Note{Milligons: milligons, Kind: TaxNote}
}

// NewClaimFromMainchain constructs a note claiming a mainchain transfer.
func NewClaimFromMainchain(milligons uint64, transferID uint32) Note {
	return Note{Milligons: milligons, Kind: ClaimFromMainchain, TransferID: transferID}
}

// NewSendToMainchain constructs a note moving funds back to the mainchain.
func NewSendToMainchain(milligons uint64) Note {
	return Note{Milligons: milligons, Kind: SendToMainchain}
}

// NewSendToVote constructs a note funding block votes.
func NewSendToVote(milligons uint64) Note {
	return Note{Milligons: milligons, Kind: SendToVote}
}

// NewLeaseDomain constructs a note paying for a domain lease.
func NewLeaseDomain() Note {
	return Note{Milligons: DomainLeaseCost, Kind: LeaseDomain}
}

// NewChannelHold constructs a note holding funds for the recipient.
func NewChannelHold(milligons uint64, recipient AccountID, delegatedSigner *AccountID, domainHash *signature.Digest) Note {
	return Note{
		Milligons:       milligons,
		Kind:            ChannelHold,
		Recipient:       recipient,
		DelegatedSigner: delegatedSigner,
		DomainHash:      domainHash,
	}
}

// NewChannelHoldSettle constructs a note releasing held funds.
func NewChannelHoldSettle(milligons uint64) Note {
	return Note{Milligons: milligons, Kind: ChannelHoldSettle}
}

// NewChannelHoldClaim constructs a note claiming settled funds.
func NewChannelHoldClaim(milligons uint64) Note {
	return Note{Milligons: milligons, Kind: ChannelHoldClaim}
}

// Equal reports whether both notes hold the same values.
func (n Note) Equal(other Note) bool {
	return signature.Hash(n) == signature.Hash(other)
}

// AllowsRecipient reports whether the account may claim a send note.
func (n Note) AllowsRecipient(account AccountID) bool {
	if len(n.To) == 0 {
		return true
	}

	for _, to := range n.To {
		if to == account {
			return true
		}
	}
	return false
}

// String implements the fmt.Stringer interface.
func (n Note) String() string {
	return fmt.Sprintf("%s(%d)", n.Kind, n.Milligons)
}
