package cmd

import (
	"fmt"
	"log"
	"os"
	"text/tabwriter"

	"github.com/argonprotocol/argon/foundation/blockchain/ledger"
	"github.com/spf13/cobra"
)

var accountType string

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Print the balance changes of the account",
	Run:   historyRun,
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().StringVarP(&accountType, "type", "t", "deposit", "Account type, deposit or tax.")
}

func historyRun(cmd *cobra.Command, args []string) {
	kp, err := loadKey(accountName)
	if err != nil {
		log.Fatal(err)
	}

	typ, err := ledger.ParseAccountType(accountType)
	if err != nil {
		log.Fatal(err)
	}

	ns, err := names()
	if err != nil {
		log.Fatal(err)
	}

	store, err := openStore()
	if err != nil {
		log.Fatal(err)
	}
	defer store.Close()

	account := ledger.LocalchainAccount{AccountID: ledger.AccountID(kp.AccountID()), AccountType: typ}
	rows, err := store.History(account)
	if err != nil {
		log.Fatal(err)
	}

	fmt.Printf("%s %s\n\n", ns.Lookup(account.AccountID), typ)

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "CHANGE\tBALANCE\tSTATUS\tNOTEBOOK\tNOTES")
	for _, row := range rows {
		fmt.Fprintf(w, "%d\t%d\t%s\t%d\t%v\n", row.ChangeNumber, row.Balance, row.Status, row.NotebookNumber, row.Notes)
	}
	w.Flush()
}
