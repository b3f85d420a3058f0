package cert

import (
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/base32"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/eigerco/fraudledger/internal/crypto"
	"github.com/eigerco/fraudledger/internal/crypto/ed25519"
)

// DNSNamePrefix is prepended to the encoded public key in the certificate DNS name.
const DNSNamePrefix = "f"

// DefaultValidityPeriod is used when Config.ValidityPeriod is zero.
const DefaultValidityPeriod = 365 * 24 * time.Hour

// clockSkew backdates NotBefore so peers with slightly late clocks accept the certificate.
const clockSkew = time.Minute

var (
	ErrNotEd25519       = errors.New("certificate public key is not Ed25519")
	ErrInvalidSignature = errors.New("invalid signature algorithm: expected Ed25519")
	ErrInvalidDNSName   = errors.New("invalid DNS name")
	ErrExpired          = errors.New("certificate has expired")
	ErrNotYetValid      = errors.New("certificate is not yet valid")
	ErrNoPeerCert       = errors.New("no peer certificate")
)

var base32Encoding = base32.NewEncoding("abcdefghijklmnopqrstuvwxyz234567").WithPadding(base32.NoPadding)

// Config contains the parameters needed for certificate generation.
type Config struct {
	PrivateKey     ed25519.PrivateKey
	ValidityPeriod time.Duration
}

// Generator creates self-signed node certificates. The certificate key is the
// node's signing key, so the ledger address of a peer is derivable from its
// certificate alone.
type Generator struct {
	config Config
	now    func() time.Time
}

func NewGenerator(config Config) *Generator {
	if config.ValidityPeriod == 0 {
		config.ValidityPeriod = DefaultValidityPeriod
	}
	return &Generator{config: config, now: time.Now}
}

// GenerateCertificate creates a self-signed certificate usable for both
// server and client authentication.
func (g *Generator) GenerateCertificate() (*tls.Certificate, error) {
	pub, ok := g.config.PrivateKey.Public().(ed25519.PublicKey)
	if !ok {
		return nil, ErrNotEd25519
	}
	dnsName := EncodePubKeyToDNS(pub)

	serialNumber, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		return nil, fmt.Errorf("failed to generate serial number: %w", err)
	}

	now := g.now()
	template := &x509.Certificate{
		SerialNumber: serialNumber,
		Subject: pkix.Name{
			CommonName:   dnsName,
			Organization: []string{"fraudledger"},
		},
		DNSNames:  []string{dnsName},
		NotBefore: now.Add(-clockSkew),
		NotAfter:  now.Add(g.config.ValidityPeriod),
		KeyUsage:  x509.KeyUsageDigitalSignature,
		ExtKeyUsage: []x509.ExtKeyUsage{
			x509.ExtKeyUsageServerAuth,
			x509.ExtKeyUsageClientAuth,
		},
		SignatureAlgorithm:    x509.PureEd25519,
		PublicKeyAlgorithm:    x509.Ed25519,
		BasicConstraintsValid: true,
	}

	certDER, err := x509.CreateCertificate(rand.Reader, template, template, pub, g.config.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create certificate: %w", err)
	}
	leaf, err := x509.ParseCertificate(certDER)
	if err != nil {
		return nil, fmt.Errorf("failed to parse certificate: %w", err)
	}

	return &tls.Certificate{
		Certificate: [][]byte{certDER},
		PrivateKey:  g.config.PrivateKey,
		Leaf:        leaf,
	}, nil
}

// Validator checks peer certificates and derives the peer's ledger identity.
type Validator struct {
	now func() time.Time
}

func NewValidator() *Validator {
	return &Validator{now: time.Now}
}

// ValidateCertificate requires an Ed25519 self-signed certificate whose single
// DNS name encodes its own public key, within its validity period.
func (v *Validator) ValidateCertificate(cert *x509.Certificate) error {
	if cert == nil {
		return ErrNoPeerCert
	}
	if cert.SignatureAlgorithm != x509.PureEd25519 {
		return ErrInvalidSignature
	}
	pub, err := v.ExtractPublicKey(cert)
	if err != nil {
		return err
	}

	if len(cert.DNSNames) != 1 {
		return fmt.Errorf("%w: certificate must have exactly one DNS name", ErrInvalidDNSName)
	}
	dnsName := cert.DNSNames[0]
	if !strings.HasPrefix(dnsName, DNSNamePrefix) || dnsName != EncodePubKeyToDNS(pub) {
		return fmt.Errorf("%w: %s does not match public key", ErrInvalidDNSName, dnsName)
	}

	now := v.now()
	if now.Before(cert.NotBefore) {
		return ErrNotYetValid
	}
	if now.After(cert.NotAfter) {
		return ErrExpired
	}
	return nil
}

func (v *Validator) ExtractPublicKey(cert *x509.Certificate) (ed25519.PublicKey, error) {
	pub, ok := cert.PublicKey.(ed25519.PublicKey)
	if !ok || len(pub) != ed25519.PublicKeySize {
		return nil, ErrNotEd25519
	}
	return pub, nil
}

// ExtractAddress returns the ledger address bound to the certificate key.
func (v *Validator) ExtractAddress(cert *x509.Certificate) (crypto.Address, error) {
	pub, err := v.ExtractPublicKey(cert)
	if err != nil {
		return crypto.Address{}, err
	}
	return crypto.AddressFromPublicKey(pub), nil
}

// EncodePubKeyToDNS encodes an Ed25519 public key as "f" + base32(pub).
func EncodePubKeyToDNS(pub ed25519.PublicKey) string {
	return DNSNamePrefix + base32Encoding.EncodeToString(pub)
}
