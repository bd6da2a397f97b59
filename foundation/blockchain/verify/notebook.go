package verify

import (
	"fmt"

	"github.com/argonprotocol/argon/foundation/blockchain/bounded"
	"github.com/argonprotocol/argon/foundation/blockchain/ledger"
	"github.com/argonprotocol/argon/foundation/blockchain/signature"
)

// NotebookParams are the settings a notebook is audited under.
type NotebookParams struct {
	NotaryOperator             ledger.AccountID
	VoteMinimums               map[signature.Digest]uint64
	ChannelHoldExpirationTicks ledger.Tick
}

// NotebookResult is what an audited notebook adds to the history.
type NotebookResult struct {
	Tips             []ledger.BalanceTip
	ChainTransfers   []ledger.ChainTransfer
	Tax              uint64
	BlockVotesCount  uint32
	BlockVotingPower uint64
}

// ChannelHoldFollowups are settled channel hold funds that earlier
// notarizations of a notebook left for their recipients to claim.
type ChannelHoldFollowups map[ledger.AccountID]uint64

// Apply draws the follow up claims of a verified notarization and adds the
// settled funds it left unclaimed.
func (f ChannelHoldFollowups) Apply(state *BalanceChangesetState) error {
	for _, id := range sortedAccountIDs(state.FollowupClaims) {
		if claimed := state.FollowupClaims[id]; claimed > f[id] {
			return fmt.Errorf("%w: %s claims %d, %d left by earlier settles", ErrInvalidChannelHoldClaimers, id, claimed, f[id])
		}
	}

	for id, claimed := range state.FollowupClaims {
		f[id] -= claimed
		if f[id] == 0 {
			delete(f, id)
		}
	}

	var err error
	for id, unclaimed := range state.UnclaimedChannelHoldBalances {
		if f[id], err = add(f[id], unclaimed); err != nil {
			return err
		}
	}

	return nil
}

// Check fails while settled funds are still waiting for their recipient.
func (f ChannelHoldFollowups) Check() error {
	ids := sortedAccountIDs(f)
	if len(ids) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %d settled to %s", ErrChannelHoldNotClaimed, f[ids[0]], ids[0])
}

// VerifyNotebook audits a signed notebook: the operator signature, every
// notarization, and every header field recomputed from the body. The secret
// chain between notebooks is checked by the auditor, which knows the parent.
func VerifyNotebook(lookup NotebookHistoryLookup, notebook ledger.Notebook, params NotebookParams) (*NotebookResult, error) {
	header := notebook.Header

	if !notebook.VerifySignature(params.NotaryOperator) {
		return nil, fmt.Errorf("%w: notary %d notebook %d", ErrInvalidNotebookSignature, header.NotaryID, header.NotebookNumber)
	}

	if err := bounded.Check("notarizations", ledger.MaxNotarizationsPerNotebook, len(notebook.Notarizations)); err != nil {
		return nil, err
	}

	newOrigins := make(map[ledger.LocalchainAccount]uint32, len(notebook.NewAccountOrigins))
	uids := make(map[uint32]bool, len(notebook.NewAccountOrigins))
	for _, o := range notebook.NewAccountOrigins {
		account := ledger.LocalchainAccount{AccountID: o.AccountID, AccountType: o.AccountType}
		if _, exists := newOrigins[account]; exists || uids[o.AccountUID] {
			return nil, fmt.Errorf("%w: origin for %s assigned twice", ErrMissingAccountOrigin, account)
		}
		newOrigins[account] = o.AccountUID
		uids[o.AccountUID] = true
	}

	var result NotebookResult
	var origins []ledger.AccountOrigin
	var votes []ledger.BlockVote
	var domains []ledger.DomainLease
	changed := make(map[ledger.LocalchainAccount]bool)
	transfers := make(map[uint32]bool)
	followups := make(ChannelHoldFollowups)

	for i, notarization := range notebook.Notarizations {
		state, err := VerifyNotarization(lookup, notarization, NotarizationParams{
			NotaryID:                   header.NotaryID,
			NotebookNumber:             header.NotebookNumber,
			Tick:                       header.Tick,
			NotaryOperator:             params.NotaryOperator,
			VoteMinimums:               params.VoteMinimums,
			ChannelHoldExpirationTicks: params.ChannelHoldExpirationTicks,
			Followups:                  followups,
		})
		if err != nil {
			return nil, fmt.Errorf("notarization %d: %w", i, err)
		}

		if err := followups.Apply(state); err != nil {
			return nil, fmt.Errorf("notarization %d: %w", i, err)
		}

		for _, change := range notarization.BalanceChanges {
			account := change.Account()
			if changed[account] {
				return nil, fmt.Errorf("%w: %s changed twice in notebook %d", ErrDuplicateAccountChange, account, header.NotebookNumber)
			}
			changed[account] = true

			var origin ledger.AccountOrigin
			switch change.ChangeNumber {
			case 1:
				uid, exists := newOrigins[account]
				if !exists {
					return nil, fmt.Errorf("%w: %s", ErrMissingAccountOrigin, account)
				}
				origin = ledger.AccountOrigin{NotebookNumber: header.NotebookNumber, AccountUID: uid}
				delete(newOrigins, account)

			default:
				origin = change.PreviousBalanceProof.AccountOrigin
			}

			result.Tips = append(result.Tips, ledger.NewTip(change, origin, header.Tick))
			origins = append(origins, origin)
		}

		for _, t := range state.ChainTransfers {
			if t.Kind == ledger.ToLocalchain {
				if transfers[t.TransferID] {
					return nil, fmt.Errorf("%w: transfer %d claimed twice", ErrInvalidChainTransfersList, t.TransferID)
				}
				transfers[t.TransferID] = true
			}
		}

		result.Tax += state.TaxCreated()
		result.ChainTransfers = append(result.ChainTransfers, state.ChainTransfers...)
		votes = append(votes, notarization.BlockVotes...)
		domains = append(domains, notarization.Domains...)
	}

	if err := followups.Check(); err != nil {
		return nil, fmt.Errorf("notebook %d: %w", header.NotebookNumber, err)
	}

	if len(newOrigins) > 0 {
		return nil, fmt.Errorf("%w: %d origins assigned without a first change", ErrMissingAccountOrigin, len(newOrigins))
	}

	var defaults int
	for _, v := range votes {
		if v.IsDefault() {
			defaults++
		}
	}
	if defaults > 1 {
		return nil, fmt.Errorf("%w: %d default votes", ErrInvalidDefaultBlockVote, defaults)
	}

	if ledger.TipsRoot(result.Tips) != header.ChangedAccountsRoot {
		return nil, fmt.Errorf("%w: notebook %d", ErrInvalidBalanceChangeRoot, header.NotebookNumber)
	}

	if signature.Hash(origins) != signature.Hash(header.ChangedAccountOrigins) {
		return nil, fmt.Errorf("%w: changed account origins differ", ErrInvalidBalanceChangeRoot)
	}

	if ledger.VotesRoot(votes) != header.BlockVotesRoot {
		return nil, fmt.Errorf("%w: notebook %d", ErrInvalidBlockVoteRoot, header.NotebookNumber)
	}

	count, power, blocks := ledger.VoteTotals(votes)
	if count != header.BlockVotesCount || power != header.BlockVotingPower || signature.Hash(blocks) != signature.Hash(header.BlocksWithVotes) {
		return nil, fmt.Errorf("%w: count %d power %d blocks %d", ErrInvalidBlockVoteTotals, count, power, len(blocks))
	}
	result.BlockVotesCount = count
	result.BlockVotingPower = power

	if result.Tax != header.Tax {
		return nil, fmt.Errorf("%w: header %d, calculated %d", ErrInvalidNotebookTaxTotal, header.Tax, result.Tax)
	}

	if signature.Hash(result.ChainTransfers) != signature.Hash(header.ChainTransfers) {
		return nil, fmt.Errorf("%w: notebook %d", ErrInvalidChainTransfersList, header.NotebookNumber)
	}

	if signature.Hash(domains) != signature.Hash(header.Domains) {
		return nil, fmt.Errorf("%w: notebook %d domains differ", ErrInvalidDomainLeaseAllocation, header.NotebookNumber)
	}

	return &result, nil
}
