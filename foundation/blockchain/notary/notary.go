// Package notary accepts notarizations from localchains, pools them for the
// open notebook and closes a signed notebook every tick. The notary keeps
// the latest tip of every account it serves so it can hand out the balance
// proofs the next change must start from.
package notary

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"github.com/argonprotocol/argon/foundation/blockchain/genesis"
	"github.com/argonprotocol/argon/foundation/blockchain/ledger"
	"github.com/argonprotocol/argon/foundation/blockchain/signature"
	"github.com/argonprotocol/argon/foundation/blockchain/verify"
	"github.com/decred/dcrd/lru"
	"github.com/prometheus/client_golang/prometheus"
)

// Set of errors returned by the notary.
var (
	ErrDuplicateNotarization = errors.New("duplicate notarization")
	ErrAccountNotFound       = errors.New("account not found")
	ErrTickNotAdvanced       = errors.New("tick not advanced")
	ErrNotebookOutOfOrder    = errors.New("notebook out of order")
	ErrProofNotAudited       = errors.New("balance proof not audited")
)

// duplicateCacheSize is how many accepted notarization hashes are kept to
// reject a notarization submitted twice.
const duplicateCacheSize = 10_000

// EventHandler defines a function that is called when events
// occur in the processing of notarizations.
type EventHandler func(v string, args ...any)

// TransferLookup answers whether a mainchain transfer was registered for a
// localchain account. The history store implements it.
type TransferLookup interface {
	IsValidTransferToLocalchain(notaryID ledger.NotaryID, transferID uint32, accountID ledger.AccountID, milligons uint64, tick ledger.Tick) (bool, error)
}

// Audits reports the last notebook of a notary the auditor accepted. The
// auditor implements it.
type Audits interface {
	LastAudited(notaryID ledger.NotaryID) (ledger.NotebookNumber, error)
}

// Config represents the configuration required to start the notary. When
// Audits is set, balance proofs are only handed out from audited notebooks.
type Config struct {
	NotaryID   ledger.NotaryID
	Operator   signature.KeyPair
	Genesis    genesis.Genesis
	Transfers  TransferLookup
	Audits     Audits
	Tick       ledger.Tick
	Registerer prometheus.Registerer
	EvHandler  EventHandler
}

// Receipt tells a localchain where its notarization will be committed.
type Receipt struct {
	NotaryID       ledger.NotaryID       `json:"notary_id"`
	NotebookNumber ledger.NotebookNumber `json:"notebook_number"`
	Tick           ledger.Tick           `json:"tick"`
	Hash           signature.Digest      `json:"hash"`
}

// accountTip is the latest tip of an account and its proof against the
// notebook that committed it.
type accountTip struct {
	tip      ledger.BalanceTip
	notebook ledger.NotebookNumber
	proof    ledger.MerkleProof
}

// pooled is a notarization waiting for the open notebook to close.
type pooled struct {
	notarization ledger.Notarization
	state        *verify.BalanceChangesetState
}

// Notary manages the open notebook of one notary.
type Notary struct {
	mu sync.Mutex

	notaryID     ledger.NotaryID
	operator     signature.KeyPair
	genesis      genesis.Genesis
	transfers    TransferLookup
	audits       Audits
	evHandler    EventHandler
	metrics      *metrics
	voteMinimums map[signature.Digest]uint64
	seen         lru.Cache

	number ledger.NotebookNumber
	tick   ledger.Tick

	roots   map[ledger.NotebookNumber]signature.Digest
	tips    map[ledger.LocalchainAccount]accountTip
	last    map[ledger.AccountOrigin]ledger.NotebookNumber
	claimed map[uint32]bool
	nextUID uint32

	pool          []pooled
	pending       map[ledger.LocalchainAccount]bool
	pendingClaims map[uint32]bool
	followups     verify.ChannelHoldFollowups
}

// New constructs a notary with an open first notebook at the configured
// tick. Notebooks closed before a restart are restored with Replay.
func New(cfg Config) (*Notary, error) {
	if _, exists := cfg.Genesis.Notary(cfg.NotaryID); !exists {
		return nil, fmt.Errorf("notary %d is not registered at genesis", cfg.NotaryID)
	}

	ev := func(v string, args ...any) {
		if cfg.EvHandler != nil {
			cfg.EvHandler(v, args...)
		}
	}

	n := Notary{
		notaryID:      cfg.NotaryID,
		operator:      cfg.Operator,
		genesis:       cfg.Genesis,
		transfers:     cfg.Transfers,
		audits:        cfg.Audits,
		evHandler:     ev,
		metrics:       newMetrics(cfg.Registerer),
		voteMinimums:  make(map[signature.Digest]uint64),
		seen:          lru.NewCache(duplicateCacheSize),
		number:        1,
		tick:          cfg.Tick,
		roots:         make(map[ledger.NotebookNumber]signature.Digest),
		tips:          make(map[ledger.LocalchainAccount]accountTip),
		last:          make(map[ledger.AccountOrigin]ledger.NotebookNumber),
		claimed:       make(map[uint32]bool),
		nextUID:       1,
		pending:       make(map[ledger.LocalchainAccount]bool),
		pendingClaims: make(map[uint32]bool),
		followups:     make(verify.ChannelHoldFollowups),
	}

	return &n, nil
}

// =============================================================================

// Notarize verifies a notarization against the committed tips and pools it
// for the open notebook. An account may change once per notebook, so a
// second change must wait for the proof the next notebook provides.
func (n *Notary) Notarize(notarization ledger.Notarization) (Receipt, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	receipt, err := n.notarize(notarization)
	if err != nil {
		n.metrics.notarizations.WithLabelValues(resultRejected).Inc()
		n.evHandler("notary: notarize: REJECTED: %s", err)
		return Receipt{}, err
	}

	n.metrics.notarizations.WithLabelValues(resultAccepted).Inc()
	n.metrics.pooled.Set(float64(len(n.pool)))
	n.evHandler("notary: notarize: notebook[%d] hash[%s] changes[%d]: ACCEPTED", receipt.NotebookNumber, receipt.Hash, len(notarization.BalanceChanges))

	return receipt, nil
}

func (n *Notary) notarize(notarization ledger.Notarization) (Receipt, error) {
	hash := notarization.Hash()
	if n.seen.Contains(hash) {
		return Receipt{}, fmt.Errorf("%w: %s", ErrDuplicateNotarization, hash)
	}

	changed := make(map[ledger.LocalchainAccount]bool, len(notarization.BalanceChanges))
	claims := make(map[uint32]bool)

	for _, change := range notarization.BalanceChanges {
		account := change.Account()

		if n.pending[account] || changed[account] {
			return Receipt{}, fmt.Errorf("%w: %s already changed in notebook %d", verify.ErrDuplicateAccountChange, account, n.number)
		}
		changed[account] = true

		if _, exists := n.tips[account]; exists && change.ChangeNumber == 1 {
			return Receipt{}, fmt.Errorf("%w: %s already exists", verify.ErrInvalidBalanceChangeNumber, account)
		}

		for _, note := range change.Notes {
			if note.Kind != ledger.ClaimFromMainchain {
				continue
			}
			if n.pendingClaims[note.TransferID] || claims[note.TransferID] {
				return Receipt{}, fmt.Errorf("%w: transfer %d already claimed", verify.ErrInvalidChainTransfersList, note.TransferID)
			}
			claims[note.TransferID] = true
		}
	}

	state, err := verify.VerifyNotarization(lookup{n}, notarization, verify.NotarizationParams{
		NotaryID:                   n.notaryID,
		NotebookNumber:             n.number,
		Tick:                       n.tick,
		NotaryOperator:             ledger.AccountID(n.operator.AccountID()),
		VoteMinimums:               n.voteMinimums,
		ChannelHoldExpirationTicks: n.genesis.ChannelHoldExpirationTicks,
		Followups:                  n.followups,
	})
	if err != nil {
		return Receipt{}, err
	}

	if err := n.followups.Apply(state); err != nil {
		return Receipt{}, err
	}

	for account := range changed {
		n.pending[account] = true
	}
	for id := range claims {
		n.pendingClaims[id] = true
	}
	n.pool = append(n.pool, pooled{notarization: notarization, state: state})
	n.seen.Add(hash)

	return Receipt{
		NotaryID:       n.notaryID,
		NotebookNumber: n.number,
		Tick:           n.tick,
		Hash:           hash,
	}, nil
}

// CloseNotebook closes the open notebook at the current tick, signs it and
// opens the next notebook at nextTick. A notebook is closed even when no
// notarization arrived during the tick.
func (n *Notary) CloseNotebook(nextTick ledger.Tick) (ledger.Notebook, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if nextTick <= n.tick {
		return ledger.Notebook{}, fmt.Errorf("%w: next tick %d, current tick %d", ErrTickNotAdvanced, nextTick, n.tick)
	}

	n.dropUnclaimed()

	nb, err := n.assemble()
	if err != nil {
		return ledger.Notebook{}, err
	}

	if err := n.apply(nb); err != nil {
		return ledger.Notebook{}, err
	}
	n.tick = nextTick

	n.metrics.notebooks.Inc()
	n.metrics.pooled.Set(0)
	n.evHandler("notary: close: %s", nb)

	return nb, nil
}

// dropUnclaimed removes the pooled notarizations whose channel hold settles
// were never claimed, along with any later ones that claimed from them. The
// most recent unclaimed settle goes first until the pool leaves no follow
// up open.
func (n *Notary) dropUnclaimed() {
	for {
		followups := make(verify.ChannelHoldFollowups)
		kept := make([]pooled, 0, len(n.pool))
		for _, p := range n.pool {
			if err := followups.Apply(p.state); err != nil {
				n.drop(p, err)
				continue
			}
			kept = append(kept, p)
		}
		n.pool = kept

		err := followups.Check()
		if err == nil {
			return
		}

		for i := len(n.pool) - 1; i >= 0; i-- {
			if len(n.pool[i].state.UnclaimedChannelHoldBalances) > 0 {
				n.drop(n.pool[i], err)
				n.pool = append(n.pool[:i], n.pool[i+1:]...)
				break
			}
		}
	}
}

// drop forgets a pooled notarization so it may be submitted again.
func (n *Notary) drop(p pooled, err error) {
	hash := p.notarization.Hash()
	n.seen.Delete(hash)
	n.metrics.notarizations.WithLabelValues(resultDropped).Inc()
	n.evHandler("notary: close: notebook[%d] hash[%s]: DROPPED: %s", n.number, hash, err)
}

// assemble builds and signs the notebook of the pooled notarizations.
func (n *Notary) assemble() (ledger.Notebook, error) {
	header := ledger.NotebookHeader{
		Version:        ledger.NotebookVersion,
		NotebookNumber: n.number,
		Tick:           n.tick,
		NotaryID:       n.notaryID,
	}

	nb := ledger.Notebook{
		Notarizations: make([]ledger.Notarization, 0, len(n.pool)),
	}

	uid := n.nextUID
	var tips []ledger.BalanceTip
	var votes []ledger.BlockVote

	for _, p := range n.pool {
		for _, change := range p.notarization.BalanceChanges {
			origin := ledger.AccountOrigin{NotebookNumber: n.number, AccountUID: uid}
			switch {
			case change.PreviousBalanceProof != nil:
				origin = change.PreviousBalanceProof.AccountOrigin

			default:
				nb.NewAccountOrigins = append(nb.NewAccountOrigins, ledger.NewAccountOrigin{
					AccountID:   change.AccountID,
					AccountType: change.AccountType,
					AccountUID:  uid,
				})
				uid++
			}

			tips = append(tips, ledger.NewTip(change, origin, n.tick))
			header.ChangedAccountOrigins = append(header.ChangedAccountOrigins, origin)
		}

		header.Tax += p.state.TaxCreated()
		header.ChainTransfers = append(header.ChainTransfers, p.state.ChainTransfers...)
		header.Domains = append(header.Domains, p.notarization.Domains...)
		votes = append(votes, p.notarization.BlockVotes...)

		nb.Notarizations = append(nb.Notarizations, p.notarization)
	}

	header.ChangedAccountsRoot = ledger.TipsRoot(tips)
	header.BlockVotesRoot = ledger.VotesRoot(votes)
	header.BlockVotesCount, header.BlockVotingPower, header.BlocksWithVotes = ledger.VoteTotals(votes)
	header.SecretHash = ledger.SecretHash(n.secret(n.number), header.BlockVotesRoot, n.number)
	if n.number > 1 {
		parent := n.secret(n.number - 1)
		header.ParentSecret = &parent
	}

	nb.Header = header

	return nb.Sign(n.operator)
}

// secret returns the secret committed to by a notebook. It is derived from
// the operator seed so it survives a restart without being stored.
func (n *Notary) secret(number ledger.NotebookNumber) signature.Digest {
	seed := n.operator.Seed()

	var num [4]byte
	binary.LittleEndian.PutUint32(num[:], uint32(number))

	return signature.HashBytes(seed[:], []byte("notebook-secret"), num[:])
}

// =============================================================================

// Replay restores a notebook this notary closed before a restart. Notebooks
// must be replayed in order starting from the first.
func (n *Notary) Replay(nb ledger.Notebook) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if nb.Header.NotaryID != n.notaryID {
		return fmt.Errorf("%w: notebook of notary %d", ErrNotebookOutOfOrder, nb.Header.NotaryID)
	}

	if nb.Header.NotebookNumber != n.number {
		return fmt.Errorf("%w: got notebook %d, expected %d", ErrNotebookOutOfOrder, nb.Header.NotebookNumber, n.number)
	}

	if err := n.apply(nb); err != nil {
		return err
	}

	if n.tick <= nb.Header.Tick {
		n.tick = nb.Header.Tick + 1
	}

	for _, notarization := range nb.Notarizations {
		n.seen.Add(notarization.Hash())
	}

	return nil
}

// apply commits a closed notebook to the index of tips and opens the next
// notebook.
func (n *Notary) apply(nb ledger.Notebook) error {
	header := nb.Header

	uids := make(map[ledger.LocalchainAccount]uint32, len(nb.NewAccountOrigins))
	for _, o := range nb.NewAccountOrigins {
		uids[ledger.LocalchainAccount{AccountID: o.AccountID, AccountType: o.AccountType}] = o.AccountUID
		if o.AccountUID >= n.nextUID {
			n.nextUID = o.AccountUID + 1
		}
	}

	var tips []ledger.BalanceTip
	for _, change := range nb.BalanceChanges() {
		origin := ledger.AccountOrigin{NotebookNumber: header.NotebookNumber, AccountUID: uids[change.Account()]}
		if change.PreviousBalanceProof != nil {
			origin = change.PreviousBalanceProof.AccountOrigin
		}
		tips = append(tips, ledger.NewTip(change, origin, header.Tick))
	}

	leaves := ledger.TipDigests(tips)
	for i, tip := range tips {
		proof, err := ledger.MerkleProofAt(leaves, i)
		if err != nil {
			return fmt.Errorf("proving %s: %w", tip, err)
		}

		n.tips[tip.Account()] = accountTip{tip: tip, notebook: header.NotebookNumber, proof: proof}
		n.last[tip.AccountOrigin] = header.NotebookNumber
	}

	for _, t := range header.ChainTransfers {
		if t.Kind == ledger.ToLocalchain {
			n.claimed[t.TransferID] = true
		}
	}

	n.roots[header.NotebookNumber] = header.ChangedAccountsRoot
	n.number = header.NotebookNumber + 1
	n.pool = nil
	n.pending = make(map[ledger.LocalchainAccount]bool)
	n.pendingClaims = make(map[uint32]bool)
	n.followups = make(verify.ChannelHoldFollowups)

	return nil
}

// =============================================================================

// BalanceProof returns the proof of the latest committed tip of an account.
// The next change of the account must carry it. A tip from a notebook the
// auditor has not accepted yet is withheld.
func (n *Notary) BalanceProof(account ledger.LocalchainAccount) (ledger.BalanceProof, error) {
	var audited ledger.NotebookNumber
	if n.audits != nil {
		var err error
		if audited, err = n.audits.LastAudited(n.notaryID); err != nil {
			return ledger.BalanceProof{}, err
		}
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	at, exists := n.tips[account]
	if !exists {
		return ledger.BalanceProof{}, fmt.Errorf("%w: %s", ErrAccountNotFound, account)
	}

	if n.audits != nil && at.notebook > audited {
		return ledger.BalanceProof{}, fmt.Errorf("%w: %s changed in notebook %d, audited to %d", ErrProofNotAudited, account, at.notebook, audited)
	}

	proof := at.proof
	return ledger.BalanceProof{
		NotaryID:       n.notaryID,
		NotebookNumber: at.notebook,
		Tick:           at.tip.Tick,
		Balance:        at.tip.Balance,
		AccountOrigin:  at.tip.AccountOrigin,
		NotebookProof:  &proof,
	}, nil
}

// AccountTip returns the latest committed tip of an account.
func (n *Notary) AccountTip(account ledger.LocalchainAccount) (ledger.BalanceTip, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	at, exists := n.tips[account]
	if !exists {
		return ledger.BalanceTip{}, fmt.Errorf("%w: %s", ErrAccountNotFound, account)
	}
	return at.tip, nil
}

// SetVoteMinimums replaces the blocks that may be voted on. A zero minimum
// uses the genesis default.
func (n *Notary) SetVoteMinimums(minimums map[signature.Digest]uint64) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.voteMinimums = make(map[signature.Digest]uint64, len(minimums))
	for block, minimum := range minimums {
		if minimum == 0 {
			minimum = n.genesis.DefaultVoteMinimum
		}
		n.voteMinimums[block] = minimum
	}
}

// OpenNotebook returns the number and tick of the notebook accepting
// notarizations.
func (n *Notary) OpenNotebook() (ledger.NotebookNumber, ledger.Tick) {
	n.mu.Lock()
	defer n.mu.Unlock()

	return n.number, n.tick
}

// Pending returns the number of notarizations waiting in the open notebook.
func (n *Notary) Pending() int {
	n.mu.Lock()
	defer n.mu.Unlock()

	return len(n.pool)
}

// NotaryID returns the id of the notary.
func (n *Notary) NotaryID() ledger.NotaryID {
	return n.notaryID
}
