package ledger

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/mr-tron/base58"
	"golang.org/x/crypto/blake2b"
)

// DefaultSS58Prefix is the address prefix used when none is configured.
const DefaultSS58Prefix uint16 = 18

// ss58Prefix is prepended to the address bytes before hashing the checksum.
var ss58Prefix = []byte("SS58PRE")

// ErrInvalidAddress is returned when an SS58 address can't be decoded.
var ErrInvalidAddress = errors.New("invalid address")

// AccountID is the 32 byte identity of an account. For sr25519 and ed25519
// keys it is the public key.
type AccountID [32]byte

// ParseAccountID accepts either an SS58 address or a 0x prefixed hex string.
func ParseAccountID(s string) (AccountID, error) {
	if len(s) > 2 && s[:2] == "0x" {
		b, err := hexutil.Decode(s)
		if err != nil {
			return AccountID{}, err
		}
		if len(b) != 32 {
			return AccountID{}, fmt.Errorf("%w: got %d bytes", ErrInvalidAddress, len(b))
		}
		var id AccountID
		copy(id[:], b)
		return id, nil
	}

	id, _, err := DecodeAddress(s)
	return id, err
}

// Address returns the SS58 form of the account for the network prefix.
func (id AccountID) Address(prefix uint16) string {
	var data []byte
	switch {
	case prefix < 64:
		data = append(data, byte(prefix))
	default:
		first := byte(((prefix & 0b1111_1100) >> 2) | 0b0100_0000)
		second := byte((prefix >> 8) | ((prefix & 0b11) << 6))
		data = append(data, first, second)
	}
	data = append(data, id[:]...)

	sum := ss58Checksum(data)
	data = append(data, sum[:2]...)

	return base58.Encode(data)
}

// DecodeAddress decodes an SS58 address into the account and its prefix.
func DecodeAddress(address string) (AccountID, uint16, error) {
	data, err := base58.Decode(address)
	if err != nil {
		return AccountID{}, 0, fmt.Errorf("%w: %s", ErrInvalidAddress, err)
	}

	if len(data) < 2 {
		return AccountID{}, 0, ErrInvalidAddress
	}

	var prefix uint16
	var prefixLen int
	switch {
	case data[0] < 64:
		prefix = uint16(data[0])
		prefixLen = 1
	case data[0] < 128:
		lower := (data[0] << 2) | (data[1] >> 6)
		upper := data[1] & 0b0011_1111
		prefix = uint16(lower) | uint16(upper)<<8
		prefixLen = 2
	default:
		return AccountID{}, 0, fmt.Errorf("%w: bad prefix", ErrInvalidAddress)
	}

	if len(data) != prefixLen+32+2 {
		return AccountID{}, 0, fmt.Errorf("%w: bad length %d", ErrInvalidAddress, len(data))
	}

	body := data[:prefixLen+32]
	sum := ss58Checksum(body)
	if !bytes.Equal(sum[:2], data[prefixLen+32:]) {
		return AccountID{}, 0, fmt.Errorf("%w: bad checksum", ErrInvalidAddress)
	}

	var id AccountID
	copy(id[:], data[prefixLen:prefixLen+32])

	return id, prefix, nil
}

// String implements the fmt.Stringer interface using the default prefix.
func (id AccountID) String() string {
	return id.Address(DefaultSS58Prefix)
}

// Hex returns the 0x prefixed hex form of the account.
func (id AccountID) Hex() string {
	return hexutil.Encode(id[:])
}

// IsZero reports whether the account is all zeros.
func (id AccountID) IsZero() bool {
	return id == AccountID{}
}

// MarshalText implements the encoding.TextMarshaler interface.
func (id AccountID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// UnmarshalText implements the encoding.TextUnmarshaler interface.
func (id *AccountID) UnmarshalText(text []byte) error {
	parsed, err := ParseAccountID(string(text))
	if err != nil {
		return err
	}

	*id = parsed
	return nil
}

func ss58Checksum(data []byte) [64]byte {
	return blake2b.Sum512(append(append([]byte{}, ss58Prefix...), data...))
}

// =============================================================================

// AccountType separates an account's spendable deposits from the tax it has
// collected. Both share an AccountID.
type AccountType uint8

// Set of account types.
const (
	Deposit AccountType = iota
	Tax
)

// String implements the fmt.Stringer interface.
func (t AccountType) String() string {
	switch t {
	case Deposit:
		return "deposit"
	case Tax:
		return "tax"
	}
	return "unknown"
}

// ParseAccountType converts the name into an AccountType.
func ParseAccountType(name string) (AccountType, error) {
	switch name {
	case "deposit":
		return Deposit, nil
	case "tax":
		return Tax, nil
	}
	return 0, fmt.Errorf("unknown account type %q", name)
}

// MarshalText implements the encoding.TextMarshaler interface.
func (t AccountType) MarshalText() ([]byte, error) {
	if t != Deposit && t != Tax {
		return nil, fmt.Errorf("unknown account type %d", t)
	}
	return []byte(t.String()), nil
}

// UnmarshalText implements the encoding.TextUnmarshaler interface.
func (t *AccountType) UnmarshalText(text []byte) error {
	parsed, err := ParseAccountType(string(text))
	if err != nil {
		return err
	}

	*t = parsed
	return nil
}

// =============================================================================

// LocalchainAccount is one ledger account: an account id and its type.
type LocalchainAccount struct {
	AccountID   AccountID   `json:"account_id"`
	AccountType AccountType `json:"account_type"`
}

// String implements the fmt.Stringer interface.
func (a LocalchainAccount) String() string {
	return fmt.Sprintf("%s/%s", a.AccountID, a.AccountType)
}

// AccountOrigin is the permanent identity of an account within a notary: the
// notebook it first changed in and the uid assigned in that notebook.
type AccountOrigin struct {
	NotebookNumber NotebookNumber `json:"notebook_number"`
	AccountUID     uint32         `json:"account_uid"`
}

// String implements the fmt.Stringer interface.
func (o AccountOrigin) String() string {
	return fmt.Sprintf("%d:%d", o.NotebookNumber, o.AccountUID)
}
