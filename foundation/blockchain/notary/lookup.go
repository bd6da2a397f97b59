package notary

import (
	"fmt"

	"github.com/argonprotocol/argon/foundation/blockchain/ledger"
	"github.com/argonprotocol/argon/foundation/blockchain/signature"
)

// lookup answers history questions from the notary's own index. It is only
// used while the notary lock is held.
type lookup struct {
	n *Notary
}

func (l lookup) AccountChangesRoot(notaryID ledger.NotaryID, notebookNumber ledger.NotebookNumber) (signature.Digest, error) {
	root, exists := l.n.roots[notebookNumber]
	if !exists || notaryID != l.n.notaryID {
		return signature.ZeroHash, fmt.Errorf("notebook %d of notary %d not found", notebookNumber, notaryID)
	}
	return root, nil
}

func (l lookup) LastChangedNotebook(notaryID ledger.NotaryID, origin ledger.AccountOrigin) (ledger.NotebookNumber, error) {
	number, exists := l.n.last[origin]
	if !exists || notaryID != l.n.notaryID {
		return 0, fmt.Errorf("account origin %s of notary %d not found", origin, notaryID)
	}
	return number, nil
}

func (l lookup) IsValidTransferToLocalchain(notaryID ledger.NotaryID, transferID uint32, accountID ledger.AccountID, milligons uint64, tick ledger.Tick) (bool, error) {
	if l.n.claimed[transferID] {
		return false, nil
	}

	if l.n.transfers == nil {
		return false, nil
	}

	return l.n.transfers.IsValidTransferToLocalchain(notaryID, transferID, accountID, milligons, tick)
}
