package verify

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/argonprotocol/argon/foundation/blockchain/bounded"
	"github.com/argonprotocol/argon/foundation/blockchain/ledger"
)

// ErrUnknownNoteKind is returned for a note kind this package doesn't know.
var ErrUnknownNoteKind = errors.New("unknown note kind")

// BalanceChangesetState accumulates the notes of one notarization while it
// is verified. It is built fresh for every call and never persisted.
type BalanceChangesetState struct {
	SentDeposits         uint64
	ClaimedDeposits      uint64
	SentTax              uint64
	ClaimedTax           uint64
	SentToMainchain      uint64
	ClaimedFromMainchain uint64
	AllocatedToDomains   uint64
	BlockVotePower       uint64

	ClaimsPerAccount                     map[ledger.AccountID]uint64
	SentPerAccount                       map[ledger.LocalchainAccount]uint64
	TaxCreatedPerAccount                 map[ledger.AccountID]uint64
	ClaimedChannelHoldDepositsPerAccount map[ledger.AccountID]uint64
	UnclaimedChannelHoldBalances         map[ledger.AccountID]uint64
	NeedsChannelHoldSettleFollowup       bool
	FollowupClaims                       map[ledger.AccountID]uint64
	UnclaimedBlockVoteTaxPerAccount      map[ledger.AccountID]uint64

	// ChainTransfers lists the mainchain transfers in note order.
	ChainTransfers []ledger.ChainTransfer

	accounts     map[ledger.LocalchainAccount]int
	domainLeases map[ledger.AccountID]int
	claims       []pooledAmount
	restricted   []restrictedSend
	settles      []channelHoldSettle
	holdClaims   []pooledAmount
}

type pooledAmount struct {
	account   ledger.LocalchainAccount
	milligons uint64
}

type restrictedSend struct {
	accountType ledger.AccountType
	to          []ledger.AccountID
	milligons   uint64
}

type channelHoldSettle struct {
	accountID ledger.AccountID
	hold      ledger.Note
	holdTick  ledger.Tick
	milligons uint64
	remaining uint64
}

func newBalanceChangesetState() *BalanceChangesetState {
	return &BalanceChangesetState{
		ClaimsPerAccount:                     make(map[ledger.AccountID]uint64),
		SentPerAccount:                       make(map[ledger.LocalchainAccount]uint64),
		TaxCreatedPerAccount:                 make(map[ledger.AccountID]uint64),
		ClaimedChannelHoldDepositsPerAccount: make(map[ledger.AccountID]uint64),
		UnclaimedChannelHoldBalances:         make(map[ledger.AccountID]uint64),
		FollowupClaims:                       make(map[ledger.AccountID]uint64),
		UnclaimedBlockVoteTaxPerAccount:      make(map[ledger.AccountID]uint64),
		accounts:                             make(map[ledger.LocalchainAccount]int),
		domainLeases:                         make(map[ledger.AccountID]int),
	}
}

// =============================================================================

// VerifyNotarizationAllocation checks the balance changes of one notarization
// add up. Each change is validated on its own first, then the votes, domain
// leases, restricted sends and channel hold settlements are matched across
// the batch, and finally each pool must net to zero.
//
// channelHoldExpirationTick is the tick the notarization is evaluated at. When
// nil, channel hold timing is not checked and only recipients may claim.
func VerifyNotarizationAllocation(
	changes []ledger.BalanceChange,
	votes []ledger.BlockVote,
	domains []ledger.DomainLease,
	channelHoldExpirationTick *ledger.Tick,
	channelHoldExpirationTicks ledger.Tick,
) (*BalanceChangesetState, error) {
	return verifyAllocation(changes, votes, domains, channelHoldExpirationTick, channelHoldExpirationTicks, nil)
}

func verifyAllocation(
	changes []ledger.BalanceChange,
	votes []ledger.BlockVote,
	domains []ledger.DomainLease,
	channelHoldExpirationTick *ledger.Tick,
	channelHoldExpirationTicks ledger.Tick,
	followups ChannelHoldFollowups,
) (*BalanceChangesetState, error) {
	state := newBalanceChangesetState()

	for i, change := range changes {
		if err := state.applyChange(i, change); err != nil {
			return nil, err
		}
	}

	if err := state.allocateVotes(votes); err != nil {
		return nil, err
	}

	if err := state.allocateDomains(domains); err != nil {
		return nil, err
	}

	if err := state.allocateRestrictedSends(); err != nil {
		return nil, err
	}

	if err := state.settleChannelHolds(channelHoldExpirationTick, channelHoldExpirationTicks, followups); err != nil {
		return nil, err
	}

	if state.SentDeposits != state.ClaimedDeposits {
		return nil, &NotNetZeroError{AccountType: ledger.Deposit, Sent: state.SentDeposits, Claimed: state.ClaimedDeposits}
	}

	if state.SentTax != state.ClaimedTax {
		return nil, &NotNetZeroError{AccountType: ledger.Tax, Sent: state.SentTax, Claimed: state.ClaimedTax}
	}

	return state, nil
}

// VerifyTaxes checks every account that claimed deposits or channel hold
// funds created enough tax to cover them.
func (s *BalanceChangesetState) VerifyTaxes() error {
	claimed := make(map[ledger.AccountID]uint64)
	for id, amount := range s.ClaimsPerAccount {
		claimed[id] += amount
	}
	for id, amount := range s.ClaimedChannelHoldDepositsPerAccount {
		claimed[id] += amount
	}

	for _, id := range sortedAccountIDs(claimed) {
		owed := ledger.TaxOwed(claimed[id])
		sent := s.TaxCreatedPerAccount[id]
		if sent < owed {
			return &InsufficientTaxError{AccountID: id, TaxSent: sent, TaxOwed: owed}
		}
	}

	return nil
}

// TaxCreated returns the total tax created by the notarization.
func (s *BalanceChangesetState) TaxCreated() uint64 {
	var total uint64
	for _, amount := range s.TaxCreatedPerAccount {
		total += amount
	}
	return total
}

// =============================================================================

// applyChange validates a single change and accumulates its notes.
func (s *BalanceChangesetState) applyChange(index int, change ledger.BalanceChange) error {
	account := change.Account()
	if _, exists := s.accounts[account]; exists {
		return fmt.Errorf("%w: %s at change index %d", ErrDuplicateAccountChange, account, index)
	}
	s.accounts[account] = index

	switch {
	case change.ChangeNumber == 0:
		return fmt.Errorf("%w: change index %d", ErrInvalidBalanceChangeNumber, index)

	case change.ChangeNumber == 1 && change.PreviousBalanceProof != nil:
		return fmt.Errorf("%w: first change of %s carries a proof", ErrInvalidPreviousBalanceProof, account)

	case change.ChangeNumber > 1 && change.PreviousBalanceProof == nil:
		return fmt.Errorf("%w: change index %d", ErrMissingBalanceProof, index)
	}

	if change.ChannelHoldNote != nil && change.ChannelHoldNote.Kind != ledger.ChannelHold {
		return ErrInvalidChannelHoldNote
	}

	existingHold := change.PreviousChannelHold()
	if existingHold != nil {
		if change.ChangeNumber == 1 {
			return fmt.Errorf("%w: new account %s can't hold funds", ErrInvalidChannelHoldNote, account)
		}

		for _, note := range change.Notes {
			if note.Kind != ledger.ChannelHoldSettle {
				return fmt.Errorf("%w: %s can't %s", ErrAccountLocked, account, note.Kind)
			}
		}
	}

	balance := change.PreviousBalance()
	var openedHold *ledger.Note
	var settled uint64
	var err error

	for _, note := range change.Notes {
		if err := checkNoteAccountType(account, note); err != nil {
			return err
		}

		switch note.Kind {
		case ledger.Claim:
			if balance, err = add(balance, note.Milligons); err != nil {
				return err
			}
			s.claim(account, note.Milligons)

		case ledger.ClaimFromMainchain:
			if balance, err = add(balance, note.Milligons); err != nil {
				return err
			}
			s.ClaimedFromMainchain += note.Milligons
			s.ChainTransfers = append(s.ChainTransfers, ledger.ChainTransfer{
				Kind:       ledger.ToLocalchain,
				AccountID:  account.AccountID,
				Milligons:  note.Milligons,
				TransferID: note.TransferID,
			})

		case ledger.ChannelHoldClaim:
			if balance, err = add(balance, note.Milligons); err != nil {
				return err
			}
			s.holdClaims = append(s.holdClaims, pooledAmount{account: account, milligons: note.Milligons})
			s.ClaimedChannelHoldDepositsPerAccount[account.AccountID] += note.Milligons

		case ledger.Send:
			if balance, err = sub(balance, note.Milligons, account); err != nil {
				return err
			}
			s.send(account, note)

		case ledger.TaxNote:
			if balance, err = sub(balance, note.Milligons, account); err != nil {
				return err
			}
			s.SentTax += note.Milligons
			s.TaxCreatedPerAccount[account.AccountID] += note.Milligons

		case ledger.SendToMainchain:
			if balance, err = sub(balance, note.Milligons, account); err != nil {
				return err
			}
			s.SentToMainchain += note.Milligons
			s.ChainTransfers = append(s.ChainTransfers, ledger.ChainTransfer{
				Kind:      ledger.ToMainchain,
				AccountID: account.AccountID,
				Milligons: note.Milligons,
			})

		case ledger.SendToVote:
			if balance, err = sub(balance, note.Milligons, account); err != nil {
				return err
			}
			s.UnclaimedBlockVoteTaxPerAccount[account.AccountID] += note.Milligons

		case ledger.LeaseDomain:
			if note.Milligons != ledger.DomainLeaseCost {
				return fmt.Errorf("%w: lease of %d, cost is %d", ErrInvalidDomainLeaseAllocation, note.Milligons, ledger.DomainLeaseCost)
			}
			if balance, err = sub(balance, note.Milligons, account); err != nil {
				return err
			}
			s.AllocatedToDomains += note.Milligons
			s.domainLeases[account.AccountID]++

		case ledger.ChannelHold:
			if openedHold != nil {
				return fmt.Errorf("%w: more than one hold on %s", ErrInvalidChannelHoldNote, account)
			}
			if note.Milligons < ledger.MinimumChannelHoldMilligons {
				return fmt.Errorf("%w: %d under %d", ErrChannelHoldNoteBelowMinimum, note.Milligons, ledger.MinimumChannelHoldMilligons)
			}
			if change.ChannelHoldNote == nil || !change.ChannelHoldNote.Equal(note) {
				return fmt.Errorf("%w: hold note doesn't match the change", ErrInvalidChannelHoldNote)
			}
			openedHold = &note

		case ledger.ChannelHoldSettle:
			if existingHold == nil {
				return fmt.Errorf("%w: %s has no hold to settle", ErrInvalidChannelHoldNote, account)
			}
			if balance, err = sub(balance, note.Milligons, account); err != nil {
				return err
			}
			settled += note.Milligons

		default:
			return fmt.Errorf("%w: %d", ErrUnknownNoteKind, note.Kind)
		}
	}

	if change.HasNote(ledger.ChannelHoldSettle) {
		if settled > existingHold.Milligons {
			return fmt.Errorf("%w: settled %d of a %d hold", ErrInvalidChannelHoldNote, settled, existingHold.Milligons)
		}

		s.settles = append(s.settles, channelHoldSettle{
			accountID: account.AccountID,
			hold:      *existingHold,
			holdTick:  change.PreviousBalanceProof.Tick,
			milligons: settled,
		})
	}

	if openedHold != nil && balance < openedHold.Milligons {
		return fmt.Errorf("%w: %s holds %d with a balance of %d", ErrInsufficientBalance, account, openedHold.Milligons, balance)
	}

	if balance != change.Balance {
		return &BalanceMismatchError{ChangeIndex: index, Provided: change.Balance, Calculated: balance}
	}

	return nil
}

// checkNoteAccountType enforces which notes each account type may carry. Tax
// accounts only send, claim and fund votes. Votes are only funded from tax.
func checkNoteAccountType(account ledger.LocalchainAccount, note ledger.Note) error {
	if account.AccountType == ledger.Tax {
		switch note.Kind {
		case ledger.Send, ledger.Claim, ledger.SendToVote:
			return nil
		}
		return fmt.Errorf("%w: %s on %s", ErrInvalidTaxOperation, note.Kind, account)
	}

	if note.Kind == ledger.SendToVote {
		return fmt.Errorf("%w: %s on %s", ErrInvalidTaxOperation, note.Kind, account)
	}

	return nil
}

func (s *BalanceChangesetState) send(account ledger.LocalchainAccount, note ledger.Note) {
	switch account.AccountType {
	case ledger.Deposit:
		s.SentDeposits += note.Milligons
	case ledger.Tax:
		s.SentTax += note.Milligons
	}
	s.SentPerAccount[account] += note.Milligons

	if len(note.To) > 0 {
		s.restricted = append(s.restricted, restrictedSend{
			accountType: account.AccountType,
			to:          note.To,
			milligons:   note.Milligons,
		})
	}
}

func (s *BalanceChangesetState) claim(account ledger.LocalchainAccount, milligons uint64) {
	switch account.AccountType {
	case ledger.Deposit:
		s.ClaimedDeposits += milligons
		s.ClaimsPerAccount[account.AccountID] += milligons
	case ledger.Tax:
		s.ClaimedTax += milligons
	}
	s.claims = append(s.claims, pooledAmount{account: account, milligons: milligons})
}

// =============================================================================

// allocateVotes spends the vote funding of each voter on its votes. All
// funding must be used. Default votes carry no power.
func (s *BalanceChangesetState) allocateVotes(votes []ledger.BlockVote) error {
	for i, vote := range votes {
		if vote.IsDefault() {
			continue
		}

		available := s.UnclaimedBlockVoteTaxPerAccount[vote.AccountID]
		if vote.Power > available {
			return fmt.Errorf("%w: vote %d power %d, funded %d", ErrInvalidBlockVoteAllocation, i, vote.Power, available)
		}

		s.UnclaimedBlockVoteTaxPerAccount[vote.AccountID] = available - vote.Power
		s.BlockVotePower += vote.Power
	}

	for _, id := range sortedAccountIDs(s.UnclaimedBlockVoteTaxPerAccount) {
		left := s.UnclaimedBlockVoteTaxPerAccount[id]
		if left > 0 {
			return fmt.Errorf("%w: %s has %d without votes", ErrInvalidBlockVoteAllocation, id, left)
		}
		delete(s.UnclaimedBlockVoteTaxPerAccount, id)
	}

	return nil
}

// allocateDomains matches each leased domain with a lease note from the
// same account.
func (s *BalanceChangesetState) allocateDomains(domains []ledger.DomainLease) error {
	seen := bounded.NewSet[ledger.DomainLease]("domains", ledger.MaxDomainsPerNotarization)
	unpaid := make(map[ledger.AccountID]int, len(s.domainLeases))
	for id, count := range s.domainLeases {
		unpaid[id] = count
	}

	for _, domain := range domains {
		added, err := seen.Insert(domain)
		if err != nil {
			return err
		}
		if !added {
			return fmt.Errorf("%w: domain %s listed twice", ErrInvalidDomainLeaseAllocation, domain.DomainHash)
		}

		if unpaid[domain.AccountID] == 0 {
			return fmt.Errorf("%w: domain %s has no lease from %s", ErrInvalidDomainLeaseAllocation, domain.DomainHash, domain.AccountID)
		}
		unpaid[domain.AccountID]--
	}

	ids := make([]ledger.AccountID, 0, len(unpaid))
	for id := range unpaid {
		ids = append(ids, id)
	}
	sortIDs(ids)

	for _, id := range ids {
		if unpaid[id] > 0 {
			return fmt.Errorf("%w: %s paid for %d leases without a domain", ErrDomainNotLeased, id, unpaid[id])
		}
	}

	return nil
}

// allocateRestrictedSends checks the sends limited to recipients can all be
// covered by claims from those recipients. Sends and claims are matched as a
// flow from each send to the recipients it allows, so the order of the
// changes doesn't matter. Unrestricted sends cover whatever claims remain,
// which the net zero check guarantees.
func (s *BalanceChangesetState) allocateRestrictedSends() error {
	if len(s.restricted) == 0 {
		return nil
	}

	available := make(map[ledger.LocalchainAccount]uint64)
	for _, c := range s.claims {
		available[c.account] += c.milligons
	}

	index := make(map[ledger.LocalchainAccount]int)
	var recipients []ledger.LocalchainAccount
	for _, r := range s.restricted {
		for _, to := range r.to {
			account := ledger.LocalchainAccount{AccountID: to, AccountType: r.accountType}
			if _, exists := index[account]; !exists {
				index[account] = len(recipients)
				recipients = append(recipients, account)
			}
		}
	}

	// Node 0 is the source, then one node per send, one per recipient and
	// the sink last.
	sends := len(s.restricted)
	source, sink := 0, sends+len(recipients)+1
	f := newFlow(sink + 1)

	var total uint64
	var err error
	for i, r := range s.restricted {
		if total, err = add(total, r.milligons); err != nil {
			return err
		}

		f.connect(source, 1+i, r.milligons)
		for _, to := range r.to {
			account := ledger.LocalchainAccount{AccountID: to, AccountType: r.accountType}
			f.connect(1+i, 1+sends+index[account], r.milligons)
		}
	}

	for i, account := range recipients {
		f.connect(1+sends+i, sink, available[account])
	}

	if matched := f.max(source, sink); matched < total {
		return fmt.Errorf("%w: %d of %d sent to recipients unclaimed", ErrInvalidNoteRecipients, total-matched, total)
	}

	return nil
}

// flow is a max flow network held as a capacity matrix.
type flow struct {
	capacity [][]uint64
}

func newFlow(nodes int) *flow {
	capacity := make([][]uint64, nodes)
	for i := range capacity {
		capacity[i] = make([]uint64, nodes)
	}
	return &flow{capacity: capacity}
}

func (f *flow) connect(from int, to int, capacity uint64) {
	f.capacity[from][to] = capacity
}

// max pushes flow along the shortest augmenting paths until none is left
// and returns the total pushed.
func (f *flow) max(source int, sink int) uint64 {
	n := len(f.capacity)
	parent := make([]int, n)

	var total uint64
	for {
		for i := range parent {
			parent[i] = -1
		}
		parent[source] = source

		queue := []int{source}
		for len(queue) > 0 && parent[sink] == -1 {
			u := queue[0]
			queue = queue[1:]
			for v := 0; v < n; v++ {
				if parent[v] == -1 && f.capacity[u][v] > 0 {
					parent[v] = u
					queue = append(queue, v)
				}
			}
		}

		if parent[sink] == -1 {
			return total
		}

		push := uint64(math.MaxUint64)
		for v := sink; v != source; v = parent[v] {
			push = min(push, f.capacity[parent[v]][v])
		}
		for v := sink; v != source; v = parent[v] {
			u := parent[v]
			f.capacity[u][v] -= push
			f.capacity[v][u] += push
		}
		total += push
	}
}

// settleChannelHolds matches settled channel holds with claims. Recipients
// claim first. After the clawback window anyone in the batch may claim the
// rest. A settle that is not fully claimed is recorded for follow up, and a
// recipient's claim beyond the holds of this batch draws on the follow ups
// left by earlier notarizations of the notebook.
func (s *BalanceChangesetState) settleChannelHolds(tick *ledger.Tick, expirationTicks ledger.Tick, followups ChannelHoldFollowups) error {
	claimsLeft := make(map[ledger.AccountID]uint64)
	var claimers []ledger.AccountID
	for _, c := range s.holdClaims {
		if _, exists := claimsLeft[c.account.AccountID]; !exists {
			claimers = append(claimers, c.account.AccountID)
		}
		claimsLeft[c.account.AccountID] += c.milligons
	}

	timingErr := func(kind error, st channelHoldSettle) error {
		expiration := st.holdTick + expirationTicks
		e := ChannelHoldTimingError{
			Kind:           kind,
			AccountID:      st.accountID,
			ExpirationTick: expiration,
			ClawbackTick:   expiration + ledger.ChannelHoldClawbackTicks,
		}
		if tick != nil {
			e.Tick = *tick
		}
		return &e
	}

	// Recipients claim from the holds made out to them.
	for i := range s.settles {
		st := &s.settles[i]
		expiration := st.holdTick + expirationTicks
		clawback := expiration + ledger.ChannelHoldClawbackTicks

		if st.milligons == 0 {
			if tick != nil && *tick < clawback {
				return timingErr(ErrInvalidChannelHoldClaimers, *st)
			}
			continue
		}

		recipient := st.hold.Recipient
		take := min(st.milligons, claimsLeft[recipient])
		claimsLeft[recipient] -= take
		st.remaining = st.milligons - take

		if tick != nil && *tick < expiration && st.remaining > 0 {
			return timingErr(ErrChannelHoldNotReadyForClaim, *st)
		}
	}

	// Anyone else may only claim once the clawback window has passed.
	for _, claimer := range claimers {
		left := claimsLeft[claimer]
		if open := followups[claimer]; open > 0 && left > 0 {
			take := min(left, open)
			s.FollowupClaims[claimer] += take
			left -= take
		}
		if left == 0 {
			continue
		}

		var early *channelHoldSettle
		for i := range s.settles {
			st := &s.settles[i]
			if st.remaining == 0 {
				continue
			}

			clawback := st.holdTick + expirationTicks + ledger.ChannelHoldClawbackTicks
			if tick == nil || *tick < clawback {
				early = st
				continue
			}

			take := min(left, st.remaining)
			st.remaining -= take
			left -= take
			if left == 0 {
				break
			}
		}

		if left > 0 {
			if early != nil {
				return timingErr(ErrInvalidChannelHoldClaimers, *early)
			}
			return fmt.Errorf("%w: %s claims %d without a settled hold", ErrInvalidChannelHoldClaimers, claimer, left)
		}
	}

	for _, st := range s.settles {
		if st.remaining > 0 {
			s.UnclaimedChannelHoldBalances[st.hold.Recipient] += st.remaining
			s.NeedsChannelHoldSettleFollowup = true
		}
	}

	return nil
}

// =============================================================================

func add(balance uint64, milligons uint64) (uint64, error) {
	if balance > math.MaxUint64-milligons {
		return 0, ErrBalanceOverflow
	}
	return balance + milligons, nil
}

func sub(balance uint64, milligons uint64, account ledger.LocalchainAccount) (uint64, error) {
	if milligons > balance {
		return 0, fmt.Errorf("%w: %s has %d, spends %d", ErrInsufficientBalance, account, balance, milligons)
	}
	return balance - milligons, nil
}

func sortedAccountIDs(m map[ledger.AccountID]uint64) []ledger.AccountID {
	ids := make([]ledger.AccountID, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sortIDs(ids)
	return ids
}

func sortIDs(ids []ledger.AccountID) {
	sort.Slice(ids, func(i, j int) bool {
		return bytes.Compare(ids[i][:], ids[j][:]) < 0
	})
}
