package cmd

import (
	"fmt"
	"log"

	"github.com/argonprotocol/argon/foundation/blockchain/ledger"
	"github.com/spf13/cobra"
)

var accountCmd = &cobra.Command{
	Use:   "account",
	Short: "Print the address of the account",
	Run:   accountRun,
}

func init() {
	rootCmd.AddCommand(accountCmd)
}

func accountRun(cmd *cobra.Command, args []string) {
	kp, err := loadKey(accountName)
	if err != nil {
		log.Fatal(err)
	}

	id := ledger.AccountID(kp.AccountID())
	fmt.Printf("name:    %s\n", accountName)
	fmt.Printf("scheme:  %s\n", kp.Scheme())
	fmt.Printf("address: %s\n", id.Address(ss58Prefix))
	fmt.Printf("hex:     %s\n", id.Hex())
}
