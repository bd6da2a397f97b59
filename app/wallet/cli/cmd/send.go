package cmd

import (
	"log"

	"github.com/argonprotocol/argon/foundation/blockchain/ledger"
	"github.com/argonprotocol/argon/foundation/blockchain/signature"
	"github.com/spf13/cobra"
)

var (
	to         string
	sendAmount uint64
)

var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Send milligons to an account of the wallet",
	Long: `Send moves milligons from the account to another account whose key
file is in the account path. The recipient claims the milligons and pays the
tax into its tax account in the same notarization.`,
	Run: sendRun,
}

func init() {
	rootCmd.AddCommand(sendCmd)
	sendCmd.Flags().StringVarP(&to, "to", "t", "", "Name of the receiving account.")
	sendCmd.Flags().Uint64VarP(&sendAmount, "milligons", "m", 0, "Milligons to send.")
	sendCmd.MarkFlagRequired("to")
	sendCmd.MarkFlagRequired("milligons")
}

func sendRun(cmd *cobra.Command, args []string) {
	from, err := loadKey(accountName)
	if err != nil {
		log.Fatal(err)
	}

	recipient, err := loadKey(to)
	if err != nil {
		log.Fatal(err)
	}

	fromID := ledger.AccountID(from.AccountID())
	toID := ledger.AccountID(recipient.AccountID())
	tax := ledger.TaxOwed(sendAmount)

	send, err := nextChange(ledger.LocalchainAccount{AccountID: fromID, AccountType: ledger.Deposit})
	if err != nil {
		log.Fatal(err)
	}
	if send.Balance < sendAmount {
		log.Fatalf("%s has %d milligons, cannot send %d", accountName, send.Balance, sendAmount)
	}
	send.Balance -= sendAmount
	send.Notes = []ledger.Note{ledger.NewSend(sendAmount, toID)}

	deposit, err := nextChange(ledger.LocalchainAccount{AccountID: toID, AccountType: ledger.Deposit})
	if err != nil {
		log.Fatal(err)
	}
	deposit.Balance += sendAmount - tax
	deposit.Notes = []ledger.Note{ledger.NewClaim(sendAmount), ledger.NewTax(tax)}

	taxAccount, err := nextChange(ledger.LocalchainAccount{AccountID: toID, AccountType: ledger.Tax})
	if err != nil {
		log.Fatal(err)
	}
	taxAccount.Balance += tax
	taxAccount.Notes = []ledger.Note{ledger.NewClaim(tax)}

	signed := []struct {
		kp signature.KeyPair
		bc ledger.BalanceChange
	}{
		{kp: from, bc: send},
		{kp: recipient, bc: deposit},
		{kp: recipient, bc: taxAccount},
	}

	var notarization ledger.Notarization
	for _, s := range signed {
		bc, err := s.bc.Sign(s.kp)
		if err != nil {
			log.Fatal(err)
		}
		notarization.BalanceChanges = append(notarization.BalanceChanges, bc)
	}

	submit(notarization)
}
