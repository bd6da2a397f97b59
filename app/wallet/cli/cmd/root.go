// Package cmd contains the localchain wallet commands.
package cmd

import (
	"os"
	"path/filepath"

	"github.com/argonprotocol/argon/foundation/blockchain/ledger"
	"github.com/argonprotocol/argon/foundation/blockchain/signature"
	"github.com/argonprotocol/argon/foundation/localchain"
	"github.com/argonprotocol/argon/foundation/nameservice"
	"github.com/spf13/cobra"
)

var (
	accountName string
	accountPath string
	schemeName  string
	dbPath      string
	url         string
	notaryID    uint32
	ss58Prefix  uint16
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&accountName, "account", "a", "alice", "Name of the key file of the account.")
	rootCmd.PersistentFlags().StringVarP(&accountPath, "account-path", "p", "zblock/accounts/", "Path to the directory with the key files.")
	rootCmd.PersistentFlags().StringVarP(&schemeName, "scheme", "s", "sr25519", "Signature scheme of the key files.")
	rootCmd.PersistentFlags().StringVarP(&dbPath, "db", "d", "zblock/localchain.db", "Path to the localchain database.")
	rootCmd.PersistentFlags().StringVarP(&url, "url", "u", "http://localhost:8080", "Url of the notary.")
	rootCmd.PersistentFlags().Uint32VarP(&notaryID, "notary", "n", 1, "Id of the notary.")
	rootCmd.PersistentFlags().Uint16Var(&ss58Prefix, "ss58-prefix", ledger.DefaultSS58Prefix, "Address prefix used to show accounts.")
}

var rootCmd = &cobra.Command{
	Use:   "localchain",
	Short: "Localchain wallet for argon notaries",
}

// Execute runs the command selected by the arguments.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func keyPath(name string) string {
	return filepath.Join(accountPath, name+"."+schemeName)
}

func loadKey(name string) (signature.KeyPair, error) {
	return signature.LoadKeyPair(keyPath(name))
}

func openStore() (*localchain.Store, error) {
	return localchain.Open(dbPath)
}

func names() (*nameservice.NameService, error) {
	return nameservice.New(accountPath, ss58Prefix)
}
