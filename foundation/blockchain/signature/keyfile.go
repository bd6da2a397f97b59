package signature

import (
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"
)

// KeyFileScheme returns the scheme encoded in a key file extension. Key files
// are named <name>.<scheme>, for example miner1.sr25519.
func KeyFileScheme(path string) (Scheme, error) {
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	return ParseScheme(ext)
}

// LoadKeyPair reads a key file holding the hex encoded 32 byte seed. Ecdsa
// key files are read with the go-ethereum loader so existing .ecdsa files
// keep working.
func LoadKeyPair(path string) (KeyPair, error) {
	scheme, err := KeyFileScheme(path)
	if err != nil {
		return KeyPair{}, err
	}

	if scheme == Ecdsa {
		key, err := crypto.LoadECDSA(path)
		if err != nil {
			return KeyPair{}, err
		}
		return KeyPairFromSeed(Ecdsa, crypto.FromECDSA(key))
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return KeyPair{}, err
	}

	seed, err := hex.DecodeString(strings.TrimSpace(string(content)))
	if err != nil {
		return KeyPair{}, fmt.Errorf("decoding key file: %w", err)
	}

	return KeyPairFromSeed(scheme, seed)
}

// SaveKeyPair writes the seed of the key pair to the specified path. The
// extension of the path must match the scheme of the key pair.
func SaveKeyPair(path string, kp KeyPair) error {
	scheme, err := KeyFileScheme(path)
	if err != nil {
		return err
	}

	if scheme != kp.Scheme() {
		return fmt.Errorf("key file extension %q does not match scheme %s", filepath.Ext(path), kp.Scheme())
	}

	if scheme == Ecdsa {
		return crypto.SaveECDSA(path, kp.ecKey)
	}

	seed := kp.Seed()
	return os.WriteFile(path, []byte(hex.EncodeToString(seed[:])), 0600)
}
