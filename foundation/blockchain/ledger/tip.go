package ledger

import (
	"fmt"

	"github.com/argonprotocol/argon/foundation/blockchain/merkle"
	"github.com/argonprotocol/argon/foundation/blockchain/signature"
)

// BalanceTip is the latest committed state of an account. Tips are the
// leaves of a notebook's changed accounts root.
type BalanceTip struct {
	AccountID       AccountID     `json:"account_id"`
	AccountType     AccountType   `json:"account_type"`
	ChangeNumber    uint32        `json:"change_number"`
	Balance         uint64        `json:"balance"`
	AccountOrigin   AccountOrigin `json:"account_origin"`
	Tick            Tick          `json:"tick"`
	ChannelHoldNote *Note         `json:"channel_hold_note,omitempty"`
}

// NewTip returns the tip a balance change produces in a notebook closed at
// the tick.
func NewTip(bc BalanceChange, origin AccountOrigin, tick Tick) BalanceTip {
	return BalanceTip{
		AccountID:       bc.AccountID,
		AccountType:     bc.AccountType,
		ChangeNumber:    bc.ChangeNumber,
		Balance:         bc.Balance,
		AccountOrigin:   origin,
		Tick:            tick,
		ChannelHoldNote: bc.NextChannelHold(),
	}
}

// PreviousTip rebuilds the tip the balance change claims to start from. It
// is only meaningful for changes that carry a previous balance proof.
func PreviousTip(bc BalanceChange) BalanceTip {
	tip := BalanceTip{
		AccountID:       bc.AccountID,
		AccountType:     bc.AccountType,
		ChangeNumber:    bc.ChangeNumber - 1,
		ChannelHoldNote: bc.PreviousChannelHold(),
	}

	if bc.PreviousBalanceProof != nil {
		tip.Balance = bc.PreviousBalanceProof.Balance
		tip.AccountOrigin = bc.PreviousBalanceProof.AccountOrigin
		tip.Tick = bc.PreviousBalanceProof.Tick
	}

	return tip
}

// Digest returns the leaf hash of the tip.
func (t BalanceTip) Digest() signature.Digest {
	return signature.Hash(t)
}

// Account returns the ledger account of the tip.
func (t BalanceTip) Account() LocalchainAccount {
	return LocalchainAccount{AccountID: t.AccountID, AccountType: t.AccountType}
}

// String implements the fmt.Stringer interface.
func (t BalanceTip) String() string {
	return fmt.Sprintf("%s #%d balance[%d] origin[%s]", t.Account(), t.ChangeNumber, t.Balance, t.AccountOrigin)
}

// =============================================================================

// leaf adapts a digest to the merkle tree.
type leaf signature.Digest

func (l leaf) Hash() ([]byte, error) {
	return l[:], nil
}

func (l leaf) Equals(other leaf) bool {
	return l == other
}

// MerkleRoot returns the root over the leaves in order. An empty set of
// leaves has the zero hash as root.
func MerkleRoot(leaves []signature.Digest) signature.Digest {
	tree, err := newTree(leaves)
	if err != nil {
		return signature.ZeroHash
	}

	var root signature.Digest
	copy(root[:], tree.MerkleRoot)
	return root
}

// MerkleProofAt returns the proof for the leaf at index.
func MerkleProofAt(leaves []signature.Digest, index int) (MerkleProof, error) {
	tree, err := newTree(leaves)
	if err != nil {
		return MerkleProof{}, err
	}

	p, err := tree.ProofAt(index)
	if err != nil {
		return MerkleProof{}, err
	}

	return NewMerkleProof(p), nil
}

// TipsRoot returns the changed accounts root over the tips in order.
func TipsRoot(tips []BalanceTip) signature.Digest {
	return MerkleRoot(TipDigests(tips))
}

// TipDigests returns the leaf hashes of the tips.
func TipDigests(tips []BalanceTip) []signature.Digest {
	leaves := make([]signature.Digest, len(tips))
	for i, tip := range tips {
		leaves[i] = tip.Digest()
	}
	return leaves
}

func newTree(leaves []signature.Digest) (*merkle.Tree[leaf], error) {
	values := make([]leaf, len(leaves))
	for i, l := range leaves {
		values[i] = leaf(l)
	}

	return merkle.NewTree(values)
}
