package crypto

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eigerco/fraudledger/internal/crypto/ed25519"
)

func TestAddressFromPublicKey(t *testing.T) {
	seed := make([]byte, ed25519.SeedSize)
	priv := ed25519.NewKeyFromSeed(seed)
	pub := priv.Public().(ed25519.PublicKey)

	a := AddressFromPublicKey(pub)
	b := AddressFromPublicKey(pub)
	assert.Equal(t, a, b)
	assert.False(t, a.IsZero())

	digest := KeccakData(pub)
	assert.Equal(t, digest[12:], a[:])

	seed[0] = 1
	other := ed25519.NewKeyFromSeed(seed).Public().(ed25519.PublicKey)
	assert.NotEqual(t, a, AddressFromPublicKey(other))
}

func TestParseAddress(t *testing.T) {
	const s = "0x70997970c51812dc3a010c7d01b50e0d17dc79c8"

	a, err := ParseAddress(s)
	require.NoError(t, err)
	assert.Equal(t, s, a.String())

	b, err := ParseAddress(s[2:])
	require.NoError(t, err)
	assert.Equal(t, a, b)

	for _, bad := range []string{"", "0x", "0x1234", "0xzz997970c51812dc3a010c7d01b50e0d17dc79c8"} {
		_, err := ParseAddress(bad)
		assert.ErrorIs(t, err, ErrInvalidAddress, bad)
	}
}

func TestAddressText(t *testing.T) {
	a := MustParseAddress("0x3c44cdddb6a900fa2b585dd299e03d12fa4293bc")
	text, err := a.MarshalText()
	require.NoError(t, err)

	var b Address
	require.NoError(t, b.UnmarshalText(text))
	assert.Equal(t, a, b)
	assert.Equal(t, -1, ZeroAddress.Compare(a))
}

func TestHashes(t *testing.T) {
	// Keccak-256 of the empty string
	empty := KeccakData(nil)
	assert.Equal(t, "c5d2460186f7233c927e7db2dcc703c0e500b653ca82273b7bfad8045d85a470", hex.EncodeToString(empty[:]))
	assert.NotEqual(t, HashData([]byte("a")), HashData([]byte("b")))
}
