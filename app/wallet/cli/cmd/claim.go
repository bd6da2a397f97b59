package cmd

import (
	"fmt"
	"log"

	"github.com/argonprotocol/argon/foundation/blockchain/ledger"
	"github.com/argonprotocol/argon/foundation/localchain"
	"github.com/spf13/cobra"
)

var (
	transferID  uint32
	claimAmount uint64
)

var claimCmd = &cobra.Command{
	Use:   "claim",
	Short: "Claim a mainchain transfer into the account",
	Run:   claimRun,
}

func init() {
	rootCmd.AddCommand(claimCmd)
	claimCmd.Flags().Uint32VarP(&transferID, "transfer", "t", 0, "Id of the mainchain transfer.")
	claimCmd.Flags().Uint64VarP(&claimAmount, "milligons", "m", 0, "Milligons of the transfer.")
	claimCmd.MarkFlagRequired("transfer")
	claimCmd.MarkFlagRequired("milligons")
}

func claimRun(cmd *cobra.Command, args []string) {
	kp, err := loadKey(accountName)
	if err != nil {
		log.Fatal(err)
	}

	account := ledger.LocalchainAccount{AccountID: ledger.AccountID(kp.AccountID()), AccountType: ledger.Deposit}

	bc, err := nextChange(account)
	if err != nil {
		log.Fatal(err)
	}

	bc.Balance += claimAmount
	bc.Notes = []ledger.Note{ledger.NewClaimFromMainchain(claimAmount, transferID)}

	if bc, err = bc.Sign(kp); err != nil {
		log.Fatal(err)
	}

	submit(ledger.Notarization{BalanceChanges: []ledger.BalanceChange{bc}})
}

// submit sends the notarization to the notary and records its changes.
func submit(notarization ledger.Notarization) {
	store, err := openStore()
	if err != nil {
		log.Fatal(err)
	}
	defer store.Close()

	receipt, err := notarize(notarization)
	if err != nil {
		log.Fatal(err)
	}

	for _, bc := range notarization.BalanceChanges {
		row := localchain.NewRow(receipt.NotaryID, bc)
		if err := store.Submit(row); err != nil {
			log.Fatal(err)
		}
	}

	fmt.Printf("notarization %s in notebook %d of notary %d\n", receipt.Hash, receipt.NotebookNumber, receipt.NotaryID)
}
