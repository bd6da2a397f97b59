// Package signature provides helper functions for handling the blockchain
// signature and hashing needs. Three signature schemes are supported and
// modeled as a closed set: sr25519, ed25519 and secp256k1 ecdsa.
package signature

import (
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"fmt"

	"github.com/ChainSafe/go-schnorrkel"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
	"golang.org/x/crypto/blake2b"
)

// signingContext is the sr25519 transcript label every signature on the
// chain is produced under.
var signingContext = []byte("substrate")

// ErrInvalidSignature is returned when a signature does not verify.
var ErrInvalidSignature = errors.New("invalid signature")

// =============================================================================

// Digest is the 32 byte blake2b output used as the chain's standard hash.
type Digest [32]byte

// ZeroHash represents a hash code of zeros.
var ZeroHash Digest

// Hash returns the blake2b-256 digest of the rlp encoding of the value. If
// the value can't be encoded the zero hash is returned.
func Hash(value any) Digest {
	data, err := rlp.EncodeToBytes(value)
	if err != nil {
		return ZeroHash
	}

	return blake2b.Sum256(data)
}

// HashBytes returns the blake2b-256 digest of the concatenated parts.
func HashBytes(parts ...[]byte) Digest {
	h, _ := blake2b.New256(nil)
	for _, p := range parts {
		h.Write(p)
	}

	var d Digest
	copy(d[:], h.Sum(nil))
	return d
}

// Bytes returns the digest as a slice.
func (d Digest) Bytes() []byte {
	return d[:]
}

// IsZero reports whether the digest is all zeros.
func (d Digest) IsZero() bool {
	return d == ZeroHash
}

// String implements the fmt.Stringer interface.
func (d Digest) String() string {
	return hexutil.Encode(d[:])
}

// MarshalText implements the encoding.TextMarshaler interface.
func (d Digest) MarshalText() ([]byte, error) {
	return []byte(hexutil.Encode(d[:])), nil
}

// UnmarshalText implements the encoding.TextUnmarshaler interface.
func (d *Digest) UnmarshalText(text []byte) error {
	b, err := hexutil.Decode(string(text))
	if err != nil {
		return err
	}

	if len(b) != len(d) {
		return fmt.Errorf("invalid digest length, got %d, exp %d", len(b), len(d))
	}

	copy(d[:], b)
	return nil
}

// =============================================================================

// Scheme identifies the signature algorithm.
type Scheme uint8

// Set of supported signature schemes.
const (
	Sr25519 Scheme = iota + 1
	Ed25519
	Ecdsa
)

var schemeNames = map[Scheme]string{
	Sr25519: "sr25519",
	Ed25519: "ed25519",
	Ecdsa:   "ecdsa",
}

// ParseScheme converts the scheme name into a Scheme.
func ParseScheme(name string) (Scheme, error) {
	for s, n := range schemeNames {
		if n == name {
			return s, nil
		}
	}

	return 0, fmt.Errorf("unknown signature scheme %q", name)
}

// String implements the fmt.Stringer interface.
func (s Scheme) String() string {
	if n, exists := schemeNames[s]; exists {
		return n
	}
	return "unknown"
}

// MarshalText implements the encoding.TextMarshaler interface. The zero
// scheme of an unsigned value marshals as an empty string.
func (s Scheme) MarshalText() ([]byte, error) {
	if s == 0 {
		return []byte{}, nil
	}
	if _, exists := schemeNames[s]; !exists {
		return nil, fmt.Errorf("unknown signature scheme %d", s)
	}
	return []byte(s.String()), nil
}

// UnmarshalText implements the encoding.TextUnmarshaler interface.
func (s *Scheme) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*s = 0
		return nil
	}

	scheme, err := ParseScheme(string(text))
	if err != nil {
		return err
	}

	*s = scheme
	return nil
}

// =============================================================================

// MultiSignature is a signature produced by one of the supported schemes.
type MultiSignature struct {
	Scheme Scheme        `json:"scheme"`
	Sig    hexutil.Bytes `json:"signature"`
}

// Verify checks the signature was produced over the message by the key
// identified by the 32 byte account id. For sr25519 and ed25519 the account
// id is the public key. For ecdsa it is the blake2b-256 hash of the
// compressed public key recovered from the signature.
func (ms MultiSignature) Verify(accountID [32]byte, message []byte) bool {
	switch ms.Scheme {
	case Sr25519:
		if len(ms.Sig) != 64 {
			return false
		}

		var pub schnorrkel.PublicKey
		if err := pub.Decode(accountID); err != nil {
			return false
		}

		var sigBytes [64]byte
		copy(sigBytes[:], ms.Sig)

		var sig schnorrkel.Signature
		if err := sig.Decode(sigBytes); err != nil {
			return false
		}

		ok, err := pub.Verify(&sig, schnorrkel.NewSigningContext(signingContext, message))
		return err == nil && ok

	case Ed25519:
		if len(ms.Sig) != ed25519.SignatureSize {
			return false
		}
		return ed25519.Verify(ed25519.PublicKey(accountID[:]), message, ms.Sig)

	case Ecdsa:
		if len(ms.Sig) != crypto.SignatureLength {
			return false
		}

		digest := blake2b.Sum256(message)
		publicKey, err := crypto.SigToPub(digest[:], ms.Sig)
		if err != nil {
			return false
		}

		return EcdsaAccountID(publicKey) == accountID
	}

	return false
}

// IsEmpty reports whether no signature has been set.
func (ms MultiSignature) IsEmpty() bool {
	return ms.Scheme == 0 && len(ms.Sig) == 0
}

// String implements the fmt.Stringer interface.
func (ms MultiSignature) String() string {
	return fmt.Sprintf("%s:%s", ms.Scheme, hexutil.Encode(ms.Sig))
}

// EcdsaAccountID converts an ecdsa public key into the 32 byte account id
// used on chain.
func EcdsaAccountID(pk *ecdsa.PublicKey) [32]byte {
	return blake2b.Sum256(crypto.CompressPubkey(pk))
}

// =============================================================================

// KeyPair holds the private key material for one of the supported schemes.
// Every key pair is derived from a 32 byte seed.
type KeyPair struct {
	scheme  Scheme
	seed    [32]byte
	edKey   ed25519.PrivateKey
	srKey   *schnorrkel.SecretKey
	srPub   *schnorrkel.PublicKey
	ecKey   *ecdsa.PrivateKey
	account [32]byte
}

// GenerateKeyPair constructs a key pair for the scheme from a random seed.
func GenerateKeyPair(scheme Scheme) (KeyPair, error) {
	for {
		var seed [32]byte
		if _, err := rand.Read(seed[:]); err != nil {
			return KeyPair{}, err
		}

		kp, err := KeyPairFromSeed(scheme, seed[:])
		if err != nil {

			// A random seed can be outside of the secp256k1 curve order.
			if scheme == Ecdsa {
				continue
			}
			return KeyPair{}, err
		}

		return kp, nil
	}
}

// KeyPairFromSeed deterministically constructs a key pair from a 32 byte seed.
func KeyPairFromSeed(scheme Scheme, seed []byte) (KeyPair, error) {
	if len(seed) != 32 {
		return KeyPair{}, fmt.Errorf("invalid seed length, got %d, exp 32", len(seed))
	}

	kp := KeyPair{scheme: scheme}
	copy(kp.seed[:], seed)

	switch scheme {
	case Sr25519:
		mini, err := schnorrkel.NewMiniSecretKeyFromRaw(kp.seed)
		if err != nil {
			return KeyPair{}, err
		}
		kp.srKey = mini.ExpandEd25519()
		kp.srPub = mini.Public()
		kp.account = kp.srPub.Encode()

	case Ed25519:
		kp.edKey = ed25519.NewKeyFromSeed(seed)
		copy(kp.account[:], kp.edKey.Public().(ed25519.PublicKey))

	case Ecdsa:
		key, err := crypto.ToECDSA(seed)
		if err != nil {
			return KeyPair{}, err
		}
		kp.ecKey = key
		kp.account = EcdsaAccountID(&key.PublicKey)

	default:
		return KeyPair{}, fmt.Errorf("unknown signature scheme %d", scheme)
	}

	return kp, nil
}

// Scheme returns the signature scheme of the key pair.
func (kp KeyPair) Scheme() Scheme {
	return kp.scheme
}

// Seed returns the seed the key pair was derived from.
func (kp KeyPair) Seed() [32]byte {
	return kp.seed
}

// AccountID returns the 32 byte account id for the key pair.
func (kp KeyPair) AccountID() [32]byte {
	return kp.account
}

// Sign uses the private key to sign the message.
func (kp KeyPair) Sign(message []byte) (MultiSignature, error) {
	switch kp.scheme {
	case Sr25519:
		sig, err := kp.srKey.Sign(schnorrkel.NewSigningContext(signingContext, message))
		if err != nil {
			return MultiSignature{}, err
		}
		enc := sig.Encode()
		return MultiSignature{Scheme: Sr25519, Sig: enc[:]}, nil

	case Ed25519:
		return MultiSignature{Scheme: Ed25519, Sig: ed25519.Sign(kp.edKey, message)}, nil

	case Ecdsa:
		digest := blake2b.Sum256(message)
		sig, err := crypto.Sign(digest[:], kp.ecKey)
		if err != nil {
			return MultiSignature{}, err
		}
		return MultiSignature{Scheme: Ecdsa, Sig: sig}, nil
	}

	return MultiSignature{}, fmt.Errorf("unknown signature scheme %d", kp.scheme)
}

// SignHash signs the digest bytes.
func (kp KeyPair) SignHash(d Digest) (MultiSignature, error) {
	return kp.Sign(d[:])
}
