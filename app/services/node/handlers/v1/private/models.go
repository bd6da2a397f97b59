package private

import (
	"github.com/argonprotocol/argon/foundation/blockchain/audit"
	"github.com/argonprotocol/argon/foundation/blockchain/ledger"
	"github.com/argonprotocol/argon/foundation/blockchain/signature"
)

type submitNotebooks struct {
	Notebook ledger.Notebook   `json:"notebook"`
	Catchup  []ledger.Notebook `json:"catchup"`
}

type registerTransfer struct {
	NotaryID       ledger.NotaryID  `json:"notary_id" validate:"required"`
	TransferID     uint32           `json:"transfer_id" validate:"required"`
	AccountID      ledger.AccountID `json:"account_id" validate:"required"`
	Milligons      uint64           `json:"milligons" validate:"gt=0"`
	ExpirationTick ledger.Tick      `json:"expiration_tick" validate:"required"`
}

type voteMinimums struct {
	Minimums map[signature.Digest]uint64 `json:"minimums" validate:"required"`
}

type nodeStatus struct {
	NotaryID       ledger.NotaryID                  `json:"notary_id,omitempty"`
	NotebookNumber ledger.NotebookNumber            `json:"open_notebook_number,omitempty"`
	Tick           ledger.Tick                      `json:"open_tick,omitempty"`
	Pending        int                              `json:"pending"`
	Listeners      int                              `json:"listeners"`
	Notaries       map[ledger.NotaryID]audit.Status `json:"notaries"`
}
