package ledger

import (
	"fmt"

	"github.com/argonprotocol/argon/foundation/blockchain/signature"
)

// BlockVote is a vote toward a block's eligibility, funded by SendToVote
// notes. A vote with zero power is the notary's default vote.
type BlockVote struct {
	AccountID             AccountID                `json:"account_id"`
	BlockHash             signature.Digest         `json:"block_hash"`
	Index                 uint32                   `json:"index"`
	Power                 uint64                   `json:"power"`
	Tick                  Tick                     `json:"tick"`
	BlockRewardsAccountID AccountID                `json:"block_rewards_account_id"`
	Signature             signature.MultiSignature `json:"signature"`
}

type signedVote struct {
	AccountID             AccountID
	BlockHash             signature.Digest
	Index                 uint32
	Power                 uint64
	Tick                  Tick
	BlockRewardsAccountID AccountID
}

// Hash returns the digest the voter signs. The signature is excluded.
func (v BlockVote) Hash() signature.Digest {
	return signature.Hash(signedVote{
		AccountID:             v.AccountID,
		BlockHash:             v.BlockHash,
		Index:                 v.Index,
		Power:                 v.Power,
		Tick:                  v.Tick,
		BlockRewardsAccountID: v.BlockRewardsAccountID,
	})
}

// Digest returns the leaf hash of the signed vote for the votes root.
func (v BlockVote) Digest() signature.Digest {
	return signature.Hash(v)
}

// Sign returns a copy of the vote signed by the key pair.
func (v BlockVote) Sign(kp signature.KeyPair) (BlockVote, error) {
	sig, err := kp.SignHash(v.Hash())
	if err != nil {
		return BlockVote{}, fmt.Errorf("signing block vote: %w", err)
	}

	v.Signature = sig
	return v, nil
}

// VerifySignature reports whether the vote was signed by its account.
func (v BlockVote) VerifySignature() bool {
	h := v.Hash()
	return v.Signature.Verify(v.AccountID, h[:])
}

// IsDefault reports whether this is a zero power default vote.
func (v BlockVote) IsDefault() bool {
	return v.Power == 0
}

// VotesRoot returns the block votes root over the votes in order.
func VotesRoot(votes []BlockVote) signature.Digest {
	leaves := make([]signature.Digest, len(votes))
	for i, v := range votes {
		leaves[i] = v.Digest()
	}
	return MerkleRoot(leaves)
}

// VoteTotals returns the number of votes, their total power and the blocks
// voted for in order of first appearance. Default votes count toward the
// number of votes only.
func VoteTotals(votes []BlockVote) (count uint32, power uint64, blocks []signature.Digest) {
	seen := make(map[signature.Digest]bool)
	for _, v := range votes {
		count++
		if v.IsDefault() {
			continue
		}

		power += v.Power
		if !seen[v.BlockHash] {
			seen[v.BlockHash] = true
			blocks = append(blocks, v.BlockHash)
		}
	}

	return count, power, blocks
}
