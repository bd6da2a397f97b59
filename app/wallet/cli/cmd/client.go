package cmd

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/argonprotocol/argon/foundation/blockchain/ledger"
	"github.com/argonprotocol/argon/foundation/blockchain/notary"
)

// errNoTip is returned when the notary has never committed a change of
// the account.
var errNoTip = errors.New("account has no committed change")

var client = http.Client{Timeout: 10 * time.Second}

type accountProof struct {
	Tip   ledger.BalanceTip   `json:"tip"`
	Proof ledger.BalanceProof `json:"proof"`
}

type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

// latest asks the notary for the committed tip of the account.
func latest(account ledger.LocalchainAccount) (accountProof, error) {
	path := fmt.Sprintf("%s/v1/accounts/%s/%s/proof", url, account.AccountID.Address(ss58Prefix), account.AccountType)

	resp, err := client.Get(path)
	if err != nil {
		return accountProof{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return accountProof{}, errNoTip
	}

	var ap accountProof
	if err := decode(resp, &ap); err != nil {
		return accountProof{}, err
	}

	return ap, nil
}

// nextChange starts the next balance change of the account from its
// committed tip.
func nextChange(account ledger.LocalchainAccount) (ledger.BalanceChange, error) {
	bc := ledger.BalanceChange{
		AccountID:    account.AccountID,
		AccountType:  account.AccountType,
		ChangeNumber: 1,
	}

	ap, err := latest(account)
	switch {
	case errors.Is(err, errNoTip):
		return bc, nil

	case err != nil:
		return ledger.BalanceChange{}, err
	}

	proof := ap.Proof
	bc.ChangeNumber = ap.Tip.ChangeNumber + 1
	bc.Balance = ap.Tip.Balance
	bc.PreviousBalanceProof = &proof

	return bc, nil
}

// notarize submits a notarization of signed balance changes.
func notarize(notarization ledger.Notarization) (notary.Receipt, error) {
	data, err := json.Marshal(notarization)
	if err != nil {
		return notary.Receipt{}, err
	}

	resp, err := client.Post(url+"/v1/notarize", "application/json", bytes.NewReader(data))
	if err != nil {
		return notary.Receipt{}, err
	}
	defer resp.Body.Close()

	var receipt notary.Receipt
	if err := decode(resp, &receipt); err != nil {
		return notary.Receipt{}, err
	}

	return receipt, nil
}

func decode(resp *http.Response, val any) error {
	if resp.StatusCode >= http.StatusBadRequest {
		var er errorResponse
		if err := json.NewDecoder(resp.Body).Decode(&er); err != nil {
			return fmt.Errorf("notary responded %s", resp.Status)
		}
		if er.Kind != "" {
			return fmt.Errorf("notary rejected [%s]: %s", er.Kind, er.Error)
		}
		return fmt.Errorf("notary responded %s: %s", resp.Status, er.Error)
	}

	return json.NewDecoder(resp.Body).Decode(val)
}
