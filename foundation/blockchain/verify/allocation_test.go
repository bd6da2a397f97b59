package verify_test

import (
	"testing"

	"github.com/argonprotocol/argon/foundation/blockchain/ledger"
	"github.com/argonprotocol/argon/foundation/blockchain/signature"
	"github.com/argonprotocol/argon/foundation/blockchain/verify"
	"github.com/stretchr/testify/require"
)

var (
	alice = ledger.AccountID{1}
	bob   = ledger.AccountID{2}
	carol = ledger.AccountID{3}
	dave  = ledger.AccountID{4}
)

const holdTicks ledger.Tick = 10

func allocate(changes []ledger.BalanceChange, votes []ledger.BlockVote, domains []ledger.DomainLease, at *ledger.Tick) (*verify.BalanceChangesetState, error) {
	return verify.VerifyNotarizationAllocation(changes, votes, domains, at, holdTicks)
}

func TestAllocationClaimWithoutSend(t *testing.T) {
	changes := []ledger.BalanceChange{
		change(alice, ledger.Deposit, 1, 0, 100_000, ledger.NewClaim(100_000)),
	}

	_, err := allocate(changes, nil, nil, nil)

	var nz *verify.NotNetZeroError
	require.ErrorAs(t, err, &nz)
	require.ErrorIs(t, err, verify.ErrBalanceChangeNotNetZero)
	require.Equal(t, uint64(0), nz.Sent)
	require.Equal(t, uint64(100_000), nz.Claimed)
}

func TestAllocationSendAndClaim(t *testing.T) {
	changes := []ledger.BalanceChange{
		change(bob, ledger.Deposit, 2, 200_000, 0, ledger.NewSend(200_000)),
		change(alice, ledger.Deposit, 1, 0, 200_000, ledger.NewClaim(200_000)),
	}

	state, err := allocate(changes, nil, nil, nil)
	require.NoError(t, err)
	require.Equal(t, state.SentDeposits, state.ClaimedDeposits)
	require.Equal(t, uint64(200_000), state.ClaimsPerAccount[alice])

	err = state.VerifyTaxes()
	var taxErr *verify.InsufficientTaxError
	require.ErrorAs(t, err, &taxErr)
	require.Equal(t, alice, taxErr.AccountID)
	require.Equal(t, uint64(20_000), taxErr.TaxOwed)
}

func TestAllocationTaxClaim(t *testing.T) {
	changes := []ledger.BalanceChange{
		change(bob, ledger.Deposit, 2, 1_000_000, 0, ledger.NewSend(1_000_000)),
		change(alice, ledger.Deposit, 1, 0, 800_000, ledger.NewClaim(1_000_000), ledger.NewTax(200_000)),
		change(alice, ledger.Tax, 1, 0, 200_000, ledger.NewClaim(200_000)),
	}

	state, err := allocate(changes, nil, nil, nil)
	require.NoError(t, err)
	require.Equal(t, uint64(1_000_000), state.ClaimedDeposits)
	require.Equal(t, uint64(200_000), state.SentTax)
	require.Equal(t, uint64(200_000), state.ClaimedTax)
	require.NoError(t, state.VerifyTaxes())
}

func TestAllocationTaxPoolNotNetZero(t *testing.T) {
	changes := []ledger.BalanceChange{
		change(bob, ledger.Deposit, 2, 1_000_000, 0, ledger.NewSend(1_000_000)),
		change(alice, ledger.Deposit, 1, 0, 800_000, ledger.NewClaim(1_000_000), ledger.NewTax(200_000)),
	}

	_, err := allocate(changes, nil, nil, nil)

	var nz *verify.NotNetZeroError
	require.ErrorAs(t, err, &nz)
	require.ErrorIs(t, err, verify.ErrTaxBalanceChangeNotNetZero)
	require.Equal(t, uint64(200_000), nz.Sent)
	require.Equal(t, uint64(0), nz.Claimed)
}

func TestAllocationVotes(t *testing.T) {
	voter := keyPair(t, signature.Sr25519, 4)
	voterID := ledger.AccountID(voter.AccountID())

	changes := []ledger.BalanceChange{
		change(voterID, ledger.Tax, 2, 20_000_000, 0, ledger.NewSendToVote(20_000_000)),
	}

	_, err := allocate(changes, nil, nil, nil)
	require.ErrorIs(t, err, verify.ErrInvalidBlockVoteAllocation)

	vote, err := ledger.BlockVote{
		AccountID:             voterID,
		BlockHash:             signature.HashBytes([]byte("block")),
		Power:                 20_000_000,
		Tick:                  5,
		BlockRewardsAccountID: voterID,
	}.Sign(voter)
	require.NoError(t, err)

	state, err := allocate(changes, []ledger.BlockVote{vote}, nil, nil)
	require.NoError(t, err)
	require.Equal(t, uint64(20_000_000), state.BlockVotePower)
	require.Empty(t, state.UnclaimedBlockVoteTaxPerAccount)

	vote.Power = 30_000_000
	_, err = allocate(changes, []ledger.BlockVote{vote}, nil, nil)
	require.ErrorIs(t, err, verify.ErrInvalidBlockVoteAllocation)
}

func TestAllocationStructural(t *testing.T) {
	tt := []struct {
		name    string
		changes []ledger.BalanceChange
		err     error
	}{
		{
			name: "missing proof",
			changes: []ledger.BalanceChange{
				{AccountID: alice, ChangeNumber: 2, Balance: 0},
			},
			err: verify.ErrMissingBalanceProof,
		},
		{
			name: "first change with proof",
			changes: []ledger.BalanceChange{
				{AccountID: alice, ChangeNumber: 1, PreviousBalanceProof: &ledger.BalanceProof{}},
			},
			err: verify.ErrInvalidPreviousBalanceProof,
		},
		{
			name: "change number zero",
			changes: []ledger.BalanceChange{
				{AccountID: alice, ChangeNumber: 0},
			},
			err: verify.ErrInvalidBalanceChangeNumber,
		},
		{
			name: "balance mismatch",
			changes: []ledger.BalanceChange{
				change(bob, ledger.Deposit, 2, 200_000, 1, ledger.NewSend(200_000)),
			},
			err: verify.ErrBalanceChangeMismatch,
		},
		{
			name: "overspend",
			changes: []ledger.BalanceChange{
				change(bob, ledger.Deposit, 2, 100, 0, ledger.NewSend(200)),
			},
			err: verify.ErrInsufficientBalance,
		},
		{
			name: "tax account funded from mainchain",
			changes: []ledger.BalanceChange{
				change(alice, ledger.Tax, 2, 0, 100, ledger.NewClaimFromMainchain(100, 1)),
			},
			err: verify.ErrInvalidTaxOperation,
		},
		{
			name: "deposit account votes",
			changes: []ledger.BalanceChange{
				change(alice, ledger.Deposit, 2, 100, 0, ledger.NewSendToVote(100)),
			},
			err: verify.ErrInvalidTaxOperation,
		},
		{
			name: "duplicate account",
			changes: []ledger.BalanceChange{
				change(bob, ledger.Deposit, 2, 200, 100, ledger.NewSend(100)),
				change(bob, ledger.Deposit, 2, 200, 100, ledger.NewSend(100)),
			},
			err: verify.ErrDuplicateAccountChange,
		},
		{
			name: "restricted send claimed by someone else",
			changes: []ledger.BalanceChange{
				change(bob, ledger.Deposit, 2, 200, 0, ledger.NewSend(200, carol)),
				change(alice, ledger.Deposit, 1, 0, 200, ledger.NewClaim(200)),
			},
			err: verify.ErrInvalidNoteRecipients,
		},
	}

	for _, test := range tt {
		t.Run(test.name, func(t *testing.T) {
			_, err := allocate(test.changes, nil, nil, nil)
			require.ErrorIs(t, err, test.err)
		})
	}
}

func TestAllocationBalanceMismatchDetail(t *testing.T) {
	changes := []ledger.BalanceChange{
		change(alice, ledger.Deposit, 1, 0, 0),
		change(bob, ledger.Deposit, 2, 200_000, 5, ledger.NewSend(200_000)),
	}

	_, err := allocate(changes, nil, nil, nil)

	var mismatch *verify.BalanceMismatchError
	require.ErrorAs(t, err, &mismatch)
	require.Equal(t, 1, mismatch.ChangeIndex)
	require.Equal(t, uint64(5), mismatch.Provided)
	require.Equal(t, uint64(0), mismatch.Calculated)
}

func TestAllocationRestrictedSend(t *testing.T) {
	changes := []ledger.BalanceChange{
		change(bob, ledger.Deposit, 2, 300, 0, ledger.NewSend(200, alice), ledger.NewSend(100)),
		change(alice, ledger.Deposit, 1, 0, 200, ledger.NewClaim(200)),
		change(carol, ledger.Deposit, 1, 0, 100, ledger.NewClaim(100)),
	}

	_, err := allocate(changes, nil, nil, nil)
	require.NoError(t, err)
}

func TestAllocationRestrictedSendOrder(t *testing.T) {
	bobSend := change(bob, ledger.Deposit, 2, 100, 0, ledger.NewSend(100, carol, alice))
	daveSend := change(dave, ledger.Deposit, 2, 100, 0, ledger.NewSend(100, carol))
	claims := []ledger.BalanceChange{
		change(carol, ledger.Deposit, 1, 0, 100, ledger.NewClaim(100)),
		change(alice, ledger.Deposit, 1, 0, 100, ledger.NewClaim(100)),
	}

	t.Run("wider send first", func(t *testing.T) {
		_, err := allocate(append([]ledger.BalanceChange{bobSend, daveSend}, claims...), nil, nil, nil)
		require.NoError(t, err)
	})

	t.Run("narrower send first", func(t *testing.T) {
		_, err := allocate(append([]ledger.BalanceChange{daveSend, bobSend}, claims...), nil, nil, nil)
		require.NoError(t, err)
	})

	t.Run("recipient claims too little", func(t *testing.T) {
		narrow := change(bob, ledger.Deposit, 2, 100, 0, ledger.NewSend(100, carol))
		_, err := allocate(append([]ledger.BalanceChange{narrow, daveSend}, claims...), nil, nil, nil)
		require.ErrorIs(t, err, verify.ErrInvalidNoteRecipients)
	})
}

func TestAllocationDomains(t *testing.T) {
	domain := ledger.DomainLease{DomainHash: signature.HashBytes([]byte("argon.local")), AccountID: alice}
	sendTax := func() []ledger.BalanceChange {
		return []ledger.BalanceChange{
			change(alice, ledger.Deposit, 2, 5_000, 4_000, ledger.NewLeaseDomain()),
		}
	}

	t.Run("leased", func(t *testing.T) {
		state, err := allocate(sendTax(), nil, []ledger.DomainLease{domain}, nil)
		require.NoError(t, err)
		require.Equal(t, ledger.DomainLeaseCost, state.AllocatedToDomains)
	})

	t.Run("not leased", func(t *testing.T) {
		_, err := allocate(sendTax(), nil, nil, nil)
		require.ErrorIs(t, err, verify.ErrDomainNotLeased)
	})

	t.Run("unpaid domain", func(t *testing.T) {
		other := domain
		other.AccountID = bob
		_, err := allocate(sendTax(), nil, []ledger.DomainLease{domain, other}, nil)
		require.ErrorIs(t, err, verify.ErrInvalidDomainLeaseAllocation)
	})

	t.Run("wrong cost", func(t *testing.T) {
		note := ledger.NewLeaseDomain()
		note.Milligons = 10
		changes := []ledger.BalanceChange{change(alice, ledger.Deposit, 2, 5_000, 4_990, note)}
		_, err := allocate(changes, nil, []ledger.DomainLease{domain}, nil)
		require.ErrorIs(t, err, verify.ErrInvalidDomainLeaseAllocation)
	})
}
