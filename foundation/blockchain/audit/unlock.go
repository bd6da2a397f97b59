package audit

import (
	"fmt"

	"github.com/argonprotocol/argon/foundation/blockchain/ledger"
	"github.com/argonprotocol/argon/foundation/blockchain/signature"
)

// UnlockRequest is signed by a notary operator to have its locked notary
// reprocess the notebook that failed.
type UnlockRequest struct {
	NotaryID       ledger.NotaryID          `json:"notary_id"`
	NotebookNumber ledger.NotebookNumber    `json:"notebook_number"`
	Signature      signature.MultiSignature `json:"signature"`
}

type unlockPayload struct {
	Action         string
	NotaryID       ledger.NotaryID
	NotebookNumber ledger.NotebookNumber
}

// Hash returns the digest the operator signs.
func (r UnlockRequest) Hash() signature.Digest {
	return signature.Hash(unlockPayload{
		Action:         "unlock",
		NotaryID:       r.NotaryID,
		NotebookNumber: r.NotebookNumber,
	})
}

// Sign returns a copy of the request signed by the key pair.
func (r UnlockRequest) Sign(kp signature.KeyPair) (UnlockRequest, error) {
	sig, err := kp.SignHash(r.Hash())
	if err != nil {
		return UnlockRequest{}, fmt.Errorf("signing unlock: %w", err)
	}

	r.Signature = sig
	return r, nil
}

// VerifySignature reports whether the operator signed the request.
func (r UnlockRequest) VerifySignature(operator ledger.AccountID) bool {
	h := r.Hash()
	return r.Signature.Verify(operator, h[:])
}
