// Package nameservice reads the key files of a folder and resolves account
// ids to the names of the files, so logs and the localchain CLI can show
// alice instead of an address.
package nameservice

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/argonprotocol/argon/foundation/blockchain/ledger"
	"github.com/argonprotocol/argon/foundation/blockchain/signature"
)

// NameService maintains a map of accounts for name lookup.
type NameService struct {
	prefix   uint16
	accounts map[ledger.AccountID]string
	names    map[string]ledger.AccountID
}

// New constructs a name service with the accounts of the key files found
// under root. Addresses of unknown accounts use the SS58 prefix.
func New(root string, prefix uint16) (*NameService, error) {
	ns := NameService{
		prefix:   prefix,
		accounts: make(map[ledger.AccountID]string),
		names:    make(map[string]ledger.AccountID),
	}

	fn := func(fileName string, d fs.DirEntry, err error) error {
		if err != nil {
			return fmt.Errorf("walkdir failure: %w", err)
		}

		if d.IsDir() {
			return nil
		}

		// Files that are not key files are skipped.
		if _, err := signature.KeyFileScheme(fileName); err != nil {
			return nil
		}

		kp, err := signature.LoadKeyPair(fileName)
		if err != nil {
			return fmt.Errorf("loading %s: %w", fileName, err)
		}

		name := strings.TrimSuffix(filepath.Base(fileName), filepath.Ext(fileName))
		if _, exists := ns.names[name]; exists {
			return fmt.Errorf("name %q has more than one key file", name)
		}

		account := ledger.AccountID(kp.AccountID())
		ns.accounts[account] = name
		ns.names[name] = account

		return nil
	}

	if err := filepath.WalkDir(root, fn); err != nil {
		return nil, fmt.Errorf("walking directory: %w", err)
	}

	return &ns, nil
}

// Lookup returns the name for the specified account, or its address when
// the account has no key file.
func (ns *NameService) Lookup(account ledger.AccountID) string {
	name, exists := ns.accounts[account]
	if !exists {
		return account.Address(ns.prefix)
	}
	return name
}

// Resolve returns the account for a name. Anything that is not a known name
// is parsed as an address or hex account id.
func (ns *NameService) Resolve(nameOrAddress string) (ledger.AccountID, error) {
	if account, exists := ns.names[nameOrAddress]; exists {
		return account, nil
	}
	return ledger.ParseAccountID(nameOrAddress)
}

// Copy returns a copy of the map of names and accounts.
func (ns *NameService) Copy() map[ledger.AccountID]string {
	cpy := make(map[ledger.AccountID]string, len(ns.accounts))
	for account, name := range ns.accounts {
		cpy[account] = name
	}
	return cpy
}
