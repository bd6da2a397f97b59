package verify

import (
	"fmt"

	"github.com/argonprotocol/argon/foundation/blockchain/ledger"
	"github.com/argonprotocol/argon/foundation/blockchain/signature"
)

// VerifyVotingSources checks the block votes of a notebook. Votes must be
// for the notebook tick, signed by the voter and at least the minimum for
// the block voted on. Exactly one zero power default vote may exist and only
// the notary operator may cast it.
func VerifyVotingSources(votes []ledger.BlockVote, notebookTick ledger.Tick, notaryOperator ledger.AccountID, voteMinimums map[signature.Digest]uint64) error {
	var hasDefault bool

	for i, vote := range votes {
		if vote.Tick != notebookTick {
			return &VoteTickError{Tick: vote.Tick, NotebookTick: notebookTick}
		}

		if !vote.VerifySignature() {
			return fmt.Errorf("%w: vote index %d", ErrBlockVoteInvalidSignature, i)
		}

		if vote.IsDefault() {
			if vote.AccountID != notaryOperator {
				return &DefaultVoteAuthorError{Author: vote.AccountID, Expected: notaryOperator}
			}
			if hasDefault {
				return fmt.Errorf("%w: vote index %d", ErrInvalidDefaultBlockVote, i)
			}
			hasDefault = true
			continue
		}

		minimum, exists := voteMinimums[vote.BlockHash]
		if !exists {
			return fmt.Errorf("%w: block %s is not eligible", ErrInvalidBlockVoteSource, vote.BlockHash)
		}

		if vote.Power < minimum {
			return &VoteMinimumError{BlockHash: vote.BlockHash, Power: vote.Power, Minimum: minimum}
		}
	}

	return nil
}
