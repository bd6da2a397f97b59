package verify_test

import (
	"testing"

	"github.com/argonprotocol/argon/foundation/blockchain/ledger"
	"github.com/argonprotocol/argon/foundation/blockchain/signature"
	"github.com/argonprotocol/argon/foundation/blockchain/verify"
	"github.com/stretchr/testify/require"
)

func TestVotingSources(t *testing.T) {
	voter := keyPair(t, signature.Sr25519, 4)
	operator := keyPair(t, signature.Ed25519, 5)
	operatorID := ledger.AccountID(operator.AccountID())

	block := signature.HashBytes([]byte("block 1"))
	minimums := map[signature.Digest]uint64{block: 500}

	vote := func(kp signature.KeyPair, power uint64, tick ledger.Tick, blockHash signature.Digest) ledger.BlockVote {
		id := ledger.AccountID(kp.AccountID())
		v, err := ledger.BlockVote{
			AccountID:             id,
			BlockHash:             blockHash,
			Power:                 power,
			Tick:                  tick,
			BlockRewardsAccountID: id,
		}.Sign(kp)
		require.NoError(t, err)
		return v
	}

	tampered := vote(voter, 1_000, 10, block)
	tampered.Power++

	tt := []struct {
		name  string
		votes []ledger.BlockVote
		err   error
	}{
		{name: "no votes"},
		{name: "valid vote", votes: []ledger.BlockVote{vote(voter, 1_000, 10, block)}},
		{name: "operator default", votes: []ledger.BlockVote{vote(operator, 0, 10, block)}},
		{name: "wrong tick", votes: []ledger.BlockVote{vote(voter, 1_000, 9, block)}, err: verify.ErrInvalidBlockVoteTick},
		{name: "bad signature", votes: []ledger.BlockVote{tampered}, err: verify.ErrBlockVoteInvalidSignature},
		{name: "default from voter", votes: []ledger.BlockVote{vote(voter, 0, 10, block)}, err: verify.ErrInvalidDefaultBlockVoteAuthor},
		{
			name:  "two defaults",
			votes: []ledger.BlockVote{vote(operator, 0, 10, block), vote(operator, 0, 10, block)},
			err:   verify.ErrInvalidDefaultBlockVote,
		},
		{name: "unknown block", votes: []ledger.BlockVote{vote(voter, 1_000, 10, signature.HashBytes([]byte("other")))}, err: verify.ErrInvalidBlockVoteSource},
		{name: "below minimum", votes: []ledger.BlockVote{vote(voter, 499, 10, block)}, err: verify.ErrInsufficientBlockVoteMinimum},
	}

	for _, test := range tt {
		t.Run(test.name, func(t *testing.T) {
			err := verify.VerifyVotingSources(test.votes, 10, operatorID, minimums)
			if test.err == nil {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, test.err)
		})
	}
}

func TestVoteMinimumError(t *testing.T) {
	voter := keyPair(t, signature.Sr25519, 4)
	id := ledger.AccountID(voter.AccountID())
	block := signature.HashBytes([]byte("block 1"))

	v, err := ledger.BlockVote{AccountID: id, BlockHash: block, Power: 10, Tick: 3, BlockRewardsAccountID: id}.Sign(voter)
	require.NoError(t, err)

	err = verify.VerifyVotingSources([]ledger.BlockVote{v}, 3, ledger.AccountID{}, map[signature.Digest]uint64{block: 20})

	var minimum *verify.VoteMinimumError
	require.ErrorAs(t, err, &minimum)
	require.Equal(t, block, minimum.BlockHash)
	require.Equal(t, uint64(10), minimum.Power)
	require.Equal(t, uint64(20), minimum.Minimum)
}
