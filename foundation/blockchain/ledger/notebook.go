package ledger

import (
	"encoding/binary"
	"fmt"

	"github.com/argonprotocol/argon/foundation/blockchain/bounded"
	"github.com/argonprotocol/argon/foundation/blockchain/signature"
)

// NotebookVersion is the header version produced by this package.
const NotebookVersion uint16 = 1

// DomainLease pairs a leased domain with the account paying for it.
type DomainLease struct {
	DomainHash signature.Digest `json:"domain_hash"`
	AccountID  AccountID        `json:"account_id"`
}

// Notarization is one atomic set of balance changes, with the block votes
// and domain leases they fund.
type Notarization struct {
	BalanceChanges []BalanceChange `json:"balance_changes"`
	BlockVotes     []BlockVote     `json:"block_votes"`
	Domains        []DomainLease   `json:"domains"`
}

// Hash returns the digest of the full notarization including signatures.
func (n Notarization) Hash() signature.Digest {
	return signature.Hash(n)
}

// CheckLimits validates the notarization against the capacity limits.
func (n Notarization) CheckLimits() error {
	if err := bounded.Check("balance changes", MaxBalanceChangesPerNotarization, len(n.BalanceChanges)); err != nil {
		return err
	}

	if err := bounded.Check("block votes", MaxBlockVotesPerNotarization, len(n.BlockVotes)); err != nil {
		return err
	}

	return bounded.Check("domains", MaxDomainsPerNotarization, len(n.Domains))
}

// =============================================================================

// ChainTransferKind identifies the direction of a transfer with the
// mainchain.
type ChainTransferKind uint8

// Set of chain transfer kinds.
const (
	ToMainchain ChainTransferKind = iota + 1
	ToLocalchain
)

// ChainTransfer records funds moving between the mainchain and a
// localchain. ToLocalchain transfers are identified by TransferID.
type ChainTransfer struct {
	Kind       ChainTransferKind `json:"kind"`
	AccountID  AccountID         `json:"account_id"`
	Milligons  uint64            `json:"milligons"`
	TransferID uint32            `json:"transfer_id"`
}

// NewAccountOrigin assigns an account uid to an account's first change.
type NewAccountOrigin struct {
	AccountID   AccountID   `json:"account_id"`
	AccountType AccountType `json:"account_type"`
	AccountUID  uint32      `json:"account_uid"`
}

// NotebookHeader summarises a notebook. Auditors recompute every field from
// the notebook body.
type NotebookHeader struct {
	Version               uint16             `json:"version"`
	NotebookNumber        NotebookNumber     `json:"notebook_number"`
	Tick                  Tick               `json:"tick"`
	NotaryID              NotaryID           `json:"notary_id"`
	Tax                   uint64             `json:"tax"`
	BlockVotesCount       uint32             `json:"block_votes_count"`
	BlockVotingPower      uint64             `json:"block_voting_power"`
	BlocksWithVotes       []signature.Digest `json:"blocks_with_votes"`
	ChangedAccountsRoot   signature.Digest   `json:"changed_accounts_root"`
	ChangedAccountOrigins []AccountOrigin    `json:"changed_account_origins"`
	BlockVotesRoot        signature.Digest   `json:"block_votes_root"`
	SecretHash            signature.Digest   `json:"secret_hash"`
	ParentSecret          *signature.Digest  `json:"parent_secret,omitempty"`
	ChainTransfers        []ChainTransfer    `json:"chain_transfers"`
	Domains               []DomainLease      `json:"domains"`
}

// Hash returns the digest of the header.
func (h NotebookHeader) Hash() signature.Digest {
	return signature.Hash(h)
}

// SecretHash binds a notebook's secret to its votes root and number. The
// next notebook reveals the secret as its parent secret.
func SecretHash(secret signature.Digest, blockVotesRoot signature.Digest, number NotebookNumber) signature.Digest {
	var num [4]byte
	binary.LittleEndian.PutUint32(num[:], uint32(number))

	return signature.HashBytes(secret[:], blockVotesRoot[:], num[:])
}

// =============================================================================

// Notebook is a numbered, tick stamped batch of notarizations signed by the
// notary operator.
type Notebook struct {
	Header            NotebookHeader           `json:"header"`
	Notarizations     []Notarization           `json:"notarizations"`
	NewAccountOrigins []NewAccountOrigin       `json:"new_account_origins"`
	Signature         signature.MultiSignature `json:"signature"`
}

type signedNotebook struct {
	Header            signature.Digest
	Notarizations     []signature.Digest
	NewAccountOrigins []NewAccountOrigin
}

// Hash returns the digest the operator signs: the header hash, the
// notarization hashes and the new account origins.
func (nb Notebook) Hash() signature.Digest {
	sn := signedNotebook{
		Header:            nb.Header.Hash(),
		Notarizations:     make([]signature.Digest, len(nb.Notarizations)),
		NewAccountOrigins: nb.NewAccountOrigins,
	}
	for i, n := range nb.Notarizations {
		sn.Notarizations[i] = n.Hash()
	}

	return signature.Hash(sn)
}

// Sign returns a copy of the notebook signed by the operator key pair.
func (nb Notebook) Sign(kp signature.KeyPair) (Notebook, error) {
	sig, err := kp.SignHash(nb.Hash())
	if err != nil {
		return Notebook{}, fmt.Errorf("signing notebook: %w", err)
	}

	nb.Signature = sig
	return nb, nil
}

// VerifySignature reports whether the operator signed the notebook.
func (nb Notebook) VerifySignature(operator AccountID) bool {
	h := nb.Hash()
	return nb.Signature.Verify(operator, h[:])
}

// BalanceChanges returns every balance change in notarization order.
func (nb Notebook) BalanceChanges() []BalanceChange {
	var changes []BalanceChange
	for _, n := range nb.Notarizations {
		changes = append(changes, n.BalanceChanges...)
	}
	return changes
}

// BlockVotes returns every block vote in notarization order.
func (nb Notebook) BlockVotes() []BlockVote {
	var votes []BlockVote
	for _, n := range nb.Notarizations {
		votes = append(votes, n.BlockVotes...)
	}
	return votes
}

// String implements the fmt.Stringer interface.
func (nb Notebook) String() string {
	return fmt.Sprintf("notary[%d] notebook[%d] tick[%d] notarizations[%d]", nb.Header.NotaryID, nb.Header.NotebookNumber, nb.Header.Tick, len(nb.Notarizations))
}
