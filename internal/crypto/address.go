package crypto

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/eigerco/fraudledger/internal/crypto/ed25519"
)

var ErrInvalidAddress = errors.New("invalid address")

// Address identifies a participant, either a member bank or a customer.
type Address [AddressSize]byte

// ZeroAddress is the null address. It never identifies a valid participant.
var ZeroAddress Address

// AddressFromPublicKey derives an address from an ed25519 public key: the
// last 20 bytes of its Keccak-256 digest.
func AddressFromPublicKey(pub ed25519.PublicKey) Address {
	h := KeccakData(pub)
	var a Address
	copy(a[:], h[HashSize-AddressSize:])
	return a
}

// ParseAddress decodes a hex address with optional 0x prefix.
func ParseAddress(s string) (Address, error) {
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if len(s) != 2*AddressSize {
		return Address{}, fmt.Errorf("%w: expected %d hex characters, got %d", ErrInvalidAddress, 2*AddressSize, len(s))
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return Address{}, fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}
	return Address(b), nil
}

// MustParseAddress is ParseAddress for constants and tests.
func MustParseAddress(s string) Address {
	a, err := ParseAddress(s)
	if err != nil {
		panic(err)
	}
	return a
}

func (a Address) IsZero() bool {
	return a == ZeroAddress
}

func (a Address) String() string {
	return "0x" + hex.EncodeToString(a[:])
}

func (a Address) Compare(b Address) int {
	return bytes.Compare(a[:], b[:])
}

func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

func (a *Address) UnmarshalText(text []byte) error {
	parsed, err := ParseAddress(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}
