package cmd

import (
	"fmt"
	"log"
	"os"

	"github.com/argonprotocol/argon/foundation/blockchain/ledger"
	"github.com/argonprotocol/argon/foundation/blockchain/signature"
	"github.com/spf13/cobra"
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a new key pair for the account",
	Run:   generateRun,
}

func init() {
	rootCmd.AddCommand(generateCmd)
}

func generateRun(cmd *cobra.Command, args []string) {
	scheme, err := signature.ParseScheme(schemeName)
	if err != nil {
		log.Fatal(err)
	}

	path := keyPath(accountName)
	if _, err := os.Stat(path); err == nil {
		log.Fatalf("key file %s already exists", path)
	}

	kp, err := signature.GenerateKeyPair(scheme)
	if err != nil {
		log.Fatal(err)
	}

	if err := os.MkdirAll(accountPath, 0755); err != nil {
		log.Fatal(err)
	}

	if err := signature.SaveKeyPair(path, kp); err != nil {
		log.Fatal(err)
	}

	fmt.Println(ledger.AccountID(kp.AccountID()).Address(ss58Prefix))
}
