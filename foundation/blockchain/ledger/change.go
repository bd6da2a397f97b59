package ledger

import (
	"fmt"

	"github.com/argonprotocol/argon/foundation/blockchain/merkle"
	"github.com/argonprotocol/argon/foundation/blockchain/signature"
)

// MerkleProof proves a balance tip is a leaf of a notebook's changed
// accounts root.
type MerkleProof struct {
	Proof          []signature.Digest `json:"proof"`
	NumberOfLeaves uint32             `json:"number_of_leaves"`
	LeafIndex      uint32             `json:"leaf_index"`
}

// NewMerkleProof converts a tree proof into its ledger form.
func NewMerkleProof(p merkle.Proof) MerkleProof {
	mp := MerkleProof{
		Proof:          make([]signature.Digest, len(p.Hashes)),
		NumberOfLeaves: p.NumberOfLeaves,
		LeafIndex:      p.LeafIndex,
	}
	for i, h := range p.Hashes {
		copy(mp.Proof[i][:], h)
	}

	return mp
}

// Verify reports whether the leaf is proven against the root.
func (mp MerkleProof) Verify(root signature.Digest, leaf signature.Digest) bool {
	p := merkle.Proof{
		Hashes:         make([][]byte, len(mp.Proof)),
		NumberOfLeaves: mp.NumberOfLeaves,
		LeafIndex:      mp.LeafIndex,
	}
	for i := range mp.Proof {
		p.Hashes[i] = mp.Proof[i].Bytes()
	}

	return merkle.VerifyProof(nil, root.Bytes(), leaf.Bytes(), p)
}

// BalanceProof anchors a balance change to the tip committed by a previous
// notebook.
type BalanceProof struct {
	NotaryID       NotaryID       `json:"notary_id"`
	NotebookNumber NotebookNumber `json:"notebook_number"`
	Tick           Tick           `json:"tick"`
	Balance        uint64         `json:"balance"`
	AccountOrigin  AccountOrigin  `json:"account_origin"`
	NotebookProof  *MerkleProof   `json:"notebook_proof,omitempty"`
}

// =============================================================================

// BalanceChange is one account's proposed state transition.
type BalanceChange struct {
	AccountID            AccountID                `json:"account_id"`
	AccountType          AccountType              `json:"account_type"`
	ChangeNumber         uint32                   `json:"change_number"`
	Balance              uint64                   `json:"balance"`
	PreviousBalanceProof *BalanceProof            `json:"previous_balance_proof,omitempty"`
	ChannelHoldNote      *Note                    `json:"channel_hold_note,omitempty"`
	Notes                []Note                   `json:"notes"`
	Signature            signature.MultiSignature `json:"signature"`
}

// signedChange is the content covered by a balance change signature.
type signedChange struct {
	AccountID            AccountID
	AccountType          AccountType
	ChangeNumber         uint32
	Balance              uint64
	PreviousBalanceProof *BalanceProof
	ChannelHoldNote      *Note
	Notes                []Note
}

// Hash returns the digest the owner signs. The signature is excluded.
func (bc BalanceChange) Hash() signature.Digest {
	return signature.Hash(signedChange{
		AccountID:            bc.AccountID,
		AccountType:          bc.AccountType,
		ChangeNumber:         bc.ChangeNumber,
		Balance:              bc.Balance,
		PreviousBalanceProof: bc.PreviousBalanceProof,
		ChannelHoldNote:      bc.ChannelHoldNote,
		Notes:                bc.Notes,
	})
}

// Sign returns a copy of the change signed by the key pair.
func (bc BalanceChange) Sign(kp signature.KeyPair) (BalanceChange, error) {
	sig, err := kp.SignHash(bc.Hash())
	if err != nil {
		return BalanceChange{}, fmt.Errorf("signing balance change: %w", err)
	}

	bc.Signature = sig
	return bc, nil
}

// Account returns the ledger account being changed.
func (bc BalanceChange) Account() LocalchainAccount {
	return LocalchainAccount{AccountID: bc.AccountID, AccountType: bc.AccountType}
}

// HasNote reports whether any note of the kind is present.
func (bc BalanceChange) HasNote(kind NoteKind) bool {
	for _, n := range bc.Notes {
		if n.Kind == kind {
			return true
		}
	}
	return false
}

// OpensChannelHold reports whether the change creates the channel hold it
// carries rather than referencing an existing one.
func (bc BalanceChange) OpensChannelHold() bool {
	return bc.ChannelHoldNote != nil && bc.HasNote(ChannelHold)
}

// PreviousChannelHold returns the hold that was on the previous tip.
func (bc BalanceChange) PreviousChannelHold() *Note {
	if bc.ChannelHoldNote == nil || bc.OpensChannelHold() {
		return nil
	}
	return bc.ChannelHoldNote
}

// NextChannelHold returns the hold left on the tip this change produces.
func (bc BalanceChange) NextChannelHold() *Note {
	if bc.ChannelHoldNote == nil || bc.HasNote(ChannelHoldSettle) {
		return nil
	}
	return bc.ChannelHoldNote
}

// PreviousBalance returns the balance the change starts from.
func (bc BalanceChange) PreviousBalance() uint64 {
	if bc.PreviousBalanceProof == nil {
		return 0
	}
	return bc.PreviousBalanceProof.Balance
}

// String implements the fmt.Stringer interface.
func (bc BalanceChange) String() string {
	return fmt.Sprintf("%s #%d balance[%d] notes%v", bc.Account(), bc.ChangeNumber, bc.Balance, bc.Notes)
}
