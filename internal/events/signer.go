package events

import (
	"errors"
	"fmt"

	"github.com/eigerco/fraudledger/internal/crypto"
	"github.com/eigerco/fraudledger/internal/crypto/ed25519"
)

var ErrBadSignature = errors.New("event signature verification failed")

// Signer signs encoded events with a node key.
type Signer struct {
	key ed25519.PrivateKey
}

func NewSigner(key ed25519.PrivateKey) *Signer {
	return &Signer{key: key}
}

func (s *Signer) PublicKey() ed25519.PublicKey {
	return s.key.Public().(ed25519.PublicKey)
}

// Address is the ledger address of the signing node.
func (s *Signer) Address() crypto.Address {
	return crypto.AddressFromPublicKey(s.PublicKey())
}

// Sign returns the deterministic encoding of e and a signature over it.
func (s *Signer) Sign(e Event) (body, sig []byte, err error) {
	body, err = Marshal(e)
	if err != nil {
		return nil, nil, fmt.Errorf("encode event: %w", err)
	}
	return body, ed25519.Sign(s.key, body), nil
}

// Verify checks sig over body and decodes the event.
func Verify(pub ed25519.PublicKey, body, sig []byte) (Event, error) {
	if !ed25519.Verify(pub, body, sig) {
		return Event{}, ErrBadSignature
	}
	return Unmarshal(body)
}
