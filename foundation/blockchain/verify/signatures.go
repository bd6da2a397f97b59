package verify

import (
	"github.com/argonprotocol/argon/foundation/blockchain/ledger"
)

// VerifyChangesetSignatures checks every balance change is signed over its
// content. A change is accepted when signed by the account owner, or by the
// delegated signer of its channel hold when the change only settles that hold.
func VerifyChangesetSignatures(changes []ledger.BalanceChange) error {
	for i, change := range changes {
		if change.ChannelHoldNote != nil && change.ChannelHoldNote.Kind != ledger.ChannelHold {
			return ErrInvalidChannelHoldNote
		}

		h := change.Hash()
		if change.Signature.Verify(change.AccountID, h[:]) {
			continue
		}

		if signer := delegatedSigner(change); signer != nil && change.Signature.Verify(*signer, h[:]) {
			continue
		}

		return &SignatureError{ChangeIndex: i}
	}

	return nil
}

// delegatedSigner returns the account allowed to sign for the owner, if any.
func delegatedSigner(change ledger.BalanceChange) *ledger.AccountID {
	hold := change.ChannelHoldNote
	if hold == nil || hold.DelegatedSigner == nil || len(change.Notes) == 0 {
		return nil
	}

	for _, note := range change.Notes {
		if note.Kind != ledger.ChannelHoldSettle {
			return nil
		}
	}

	return hold.DelegatedSigner
}
