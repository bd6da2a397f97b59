// Package verify validates notarizations and notebooks. Every function is
// pure: it reads its inputs and the history lookup, and returns a result or
// the first failure found.
package verify

import (
	"github.com/argonprotocol/argon/foundation/blockchain/ledger"
	"github.com/argonprotocol/argon/foundation/blockchain/signature"
)

// NotebookHistoryLookup provides the committed history a notebook is
// verified against. The store backed implementation reads finalized
// notebooks, the batch implementation layers notebooks audited earlier in the
// same call on top.
type NotebookHistoryLookup interface {
	AccountChangesRoot(notaryID ledger.NotaryID, notebookNumber ledger.NotebookNumber) (signature.Digest, error)
	LastChangedNotebook(notaryID ledger.NotaryID, origin ledger.AccountOrigin) (ledger.NotebookNumber, error)
	IsValidTransferToLocalchain(notaryID ledger.NotaryID, transferID uint32, accountID ledger.AccountID, milligons uint64, tick ledger.Tick) (bool, error)
}
