package public

import (
	"github.com/argonprotocol/argon/foundation/blockchain/audit"
	"github.com/argonprotocol/argon/foundation/blockchain/history"
	"github.com/argonprotocol/argon/foundation/blockchain/ledger"
	"github.com/argonprotocol/argon/foundation/blockchain/signature"
)

type accountProof struct {
	Account string              `json:"account"`
	Name    string              `json:"name"`
	Tip     ledger.BalanceTip   `json:"tip"`
	Proof   ledger.BalanceProof `json:"proof"`
}

type notaryStatus struct {
	NotaryID ledger.NotaryID `json:"notary_id"`
	Operator string          `json:"operator"`
	Host     string          `json:"host,omitempty"`
	State    audit.State     `json:"state"`
}

type notebookSummary struct {
	NotebookNumber      ledger.NotebookNumber `json:"notebook_number"`
	Tick                ledger.Tick           `json:"tick"`
	ChangedAccountsRoot signature.Digest      `json:"changed_accounts_root"`
	BlockVotesRoot      signature.Digest      `json:"block_votes_root"`
	SecretHash          signature.Digest      `json:"secret_hash"`
	Tax                 uint64                `json:"tax"`
	BlockVotesCount     uint32                `json:"block_votes_count"`
	BlockVotingPower    uint64                `json:"block_voting_power"`
}

func toSummary(rec history.NotebookRecord) notebookSummary {
	return notebookSummary{
		NotebookNumber:      rec.NotebookNumber,
		Tick:                rec.Tick,
		ChangedAccountsRoot: rec.ChangedAccountsRoot,
		BlockVotesRoot:      rec.BlockVotesRoot,
		SecretHash:          rec.SecretHash,
		Tax:                 rec.Tax,
		BlockVotesCount:     rec.BlockVotesCount,
		BlockVotingPower:    rec.BlockVotingPower,
	}
}
