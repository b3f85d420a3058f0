package cert

import (
	"crypto/x509"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eigerco/fraudledger/internal/crypto"
	"github.com/eigerco/fraudledger/internal/crypto/ed25519"
)

func newKey(t *testing.T) (ed25519.PublicKey, ed25519.PrivateKey) {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	return pub, priv
}

func TestGenerateCertificate(t *testing.T) {
	pub, priv := newKey(t)

	c, err := NewGenerator(Config{PrivateKey: priv, ValidityPeriod: 24 * time.Hour}).GenerateCertificate()
	require.NoError(t, err)
	require.NotNil(t, c.Leaf)

	require.Len(t, c.Leaf.DNSNames, 1)
	assert.Equal(t, EncodePubKeyToDNS(pub), c.Leaf.DNSNames[0])
	assert.Len(t, c.Leaf.DNSNames[0], 53)
	assert.Equal(t, byte('f'), c.Leaf.DNSNames[0][0])

	parsed, err := x509.ParseCertificate(c.Leaf.Raw)
	require.NoError(t, err)
	assert.Equal(t, c.Leaf.SerialNumber, parsed.SerialNumber)
}

func TestValidateCertificate(t *testing.T) {
	_, priv := newKey(t)
	c, err := NewGenerator(Config{PrivateKey: priv}).GenerateCertificate()
	require.NoError(t, err)

	assert.NoError(t, NewValidator().ValidateCertificate(c.Leaf))
}

func TestValidateCertificateMismatchedKey(t *testing.T) {
	_, priv := newKey(t)
	c, err := NewGenerator(Config{PrivateKey: priv}).GenerateCertificate()
	require.NoError(t, err)

	wrongPub, _ := newKey(t)
	c.Leaf.PublicKey = wrongPub

	err = NewValidator().ValidateCertificate(c.Leaf)
	assert.ErrorIs(t, err, ErrInvalidDNSName)
}

func TestValidateCertificateValidity(t *testing.T) {
	_, priv := newKey(t)

	t.Run("expired", func(t *testing.T) {
		c, err := NewGenerator(Config{PrivateKey: priv, ValidityPeriod: -time.Hour}).GenerateCertificate()
		require.NoError(t, err)
		assert.ErrorIs(t, NewValidator().ValidateCertificate(c.Leaf), ErrExpired)
	})

	t.Run("not yet valid", func(t *testing.T) {
		c, err := NewGenerator(Config{PrivateKey: priv}).GenerateCertificate()
		require.NoError(t, err)
		c.Leaf.NotBefore = time.Now().Add(time.Hour)
		assert.ErrorIs(t, NewValidator().ValidateCertificate(c.Leaf), ErrNotYetValid)
	})

	t.Run("validator clock", func(t *testing.T) {
		c, err := NewGenerator(Config{PrivateKey: priv, ValidityPeriod: time.Hour}).GenerateCertificate()
		require.NoError(t, err)
		v := NewValidator()
		v.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
		assert.ErrorIs(t, v.ValidateCertificate(c.Leaf), ErrExpired)
	})
}

func TestValidateCertificateNil(t *testing.T) {
	assert.ErrorIs(t, NewValidator().ValidateCertificate(nil), ErrNoPeerCert)
}

func TestExtractAddress(t *testing.T) {
	pub, priv := newKey(t)
	c, err := NewGenerator(Config{PrivateKey: priv}).GenerateCertificate()
	require.NoError(t, err)

	addr, err := NewValidator().ExtractAddress(c.Leaf)
	require.NoError(t, err)
	assert.Equal(t, crypto.AddressFromPublicKey(pub), addr)
	assert.False(t, addr.IsZero())
}
