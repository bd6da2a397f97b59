package verify

import (
	"fmt"

	"github.com/argonprotocol/argon/foundation/blockchain/ledger"
	"github.com/argonprotocol/argon/foundation/blockchain/signature"
)

// NotarizationParams are the notary and notebook settings a notarization is
// verified under.
type NotarizationParams struct {
	NotaryID                   ledger.NotaryID
	NotebookNumber             ledger.NotebookNumber
	Tick                       ledger.Tick
	NotaryOperator             ledger.AccountID
	VoteMinimums               map[signature.Digest]uint64
	ChannelHoldExpirationTicks ledger.Tick

	// Followups are the settles earlier notarizations of the notebook left
	// unclaimed. Recipients may claim from them.
	Followups ChannelHoldFollowups
}

// VerifyNotarization runs every check one notarization must pass: capacity
// limits, signatures, previous balance proofs against the history, the
// allocation, taxes, votes and mainchain transfers.
func VerifyNotarization(lookup NotebookHistoryLookup, notarization ledger.Notarization, params NotarizationParams) (*BalanceChangesetState, error) {
	if err := notarization.CheckLimits(); err != nil {
		return nil, err
	}

	if err := VerifyChangesetSignatures(notarization.BalanceChanges); err != nil {
		return nil, err
	}

	for _, change := range notarization.BalanceChanges {
		if err := VerifyPreviousBalanceProof(lookup, params.NotaryID, params.NotebookNumber, change); err != nil {
			return nil, err
		}
	}

	tick := params.Tick
	state, err := verifyAllocation(
		notarization.BalanceChanges,
		notarization.BlockVotes,
		notarization.Domains,
		&tick,
		params.ChannelHoldExpirationTicks,
		params.Followups,
	)
	if err != nil {
		return nil, err
	}

	if err := state.VerifyTaxes(); err != nil {
		return nil, err
	}

	if err := VerifyVotingSources(notarization.BlockVotes, params.Tick, params.NotaryOperator, params.VoteMinimums); err != nil {
		return nil, err
	}

	if err := verifyTransfersToLocalchain(lookup, params, state.ChainTransfers); err != nil {
		return nil, err
	}

	return state, nil
}

// VerifyPreviousBalanceProof checks the change starts from the tip the
// account was last committed with. The proof must come from this notary, be
// the account's latest notebook and prove the previous tip against that
// notebook's changed accounts root.
func VerifyPreviousBalanceProof(lookup NotebookHistoryLookup, notaryID ledger.NotaryID, notebookNumber ledger.NotebookNumber, change ledger.BalanceChange) error {
	proof := change.PreviousBalanceProof
	if proof == nil {
		return nil
	}

	account := change.Account()

	if proof.NotaryID != notaryID {
		return fmt.Errorf("%w: %s proof from notary %d", ErrInvalidPreviousBalanceProof, account, proof.NotaryID)
	}

	if proof.NotebookNumber >= notebookNumber {
		return fmt.Errorf("%w: %s proof from notebook %d", ErrInvalidPreviousBalanceProof, account, proof.NotebookNumber)
	}

	if proof.NotebookProof == nil {
		return fmt.Errorf("%w: %s proof has no notebook proof", ErrInvalidPreviousBalanceProof, account)
	}

	last, err := lookup.LastChangedNotebook(notaryID, proof.AccountOrigin)
	if err != nil {
		return &HistoryLookupError{Err: err}
	}

	if last != proof.NotebookNumber {
		return fmt.Errorf("%w: %s last changed in notebook %d, proof is for %d", ErrInvalidPreviousBalanceProof, account, last, proof.NotebookNumber)
	}

	root, err := lookup.AccountChangesRoot(notaryID, proof.NotebookNumber)
	if err != nil {
		return &HistoryLookupError{Err: err}
	}

	if !proof.NotebookProof.Verify(root, ledger.PreviousTip(change).Digest()) {
		return fmt.Errorf("%w: %s tip not in notebook %d", ErrInvalidPreviousBalanceProof, account, proof.NotebookNumber)
	}

	return nil
}

// verifyTransfersToLocalchain checks each mainchain claim against the
// registered transfers. A transfer may only be claimed once.
func verifyTransfersToLocalchain(lookup NotebookHistoryLookup, params NotarizationParams, transfers []ledger.ChainTransfer) error {
	seen := make(map[uint32]bool)

	for _, t := range transfers {
		if t.Kind != ledger.ToLocalchain {
			continue
		}

		if seen[t.TransferID] {
			return fmt.Errorf("%w: transfer %d claimed twice", ErrInvalidChainTransfersList, t.TransferID)
		}
		seen[t.TransferID] = true

		valid, err := lookup.IsValidTransferToLocalchain(params.NotaryID, t.TransferID, t.AccountID, t.Milligons, params.Tick)
		if err != nil {
			return &HistoryLookupError{Err: err}
		}

		if !valid {
			return fmt.Errorf("%w: transfer %d to %s is not valid", ErrInvalidChainTransfersList, t.TransferID, t.AccountID)
		}
	}

	return nil
}
