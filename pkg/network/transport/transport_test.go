package transport

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/quic-go/quic-go"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eigerco/fraudledger/internal/crypto"
	"github.com/eigerco/fraudledger/internal/crypto/ed25519"
	"github.com/eigerco/fraudledger/pkg/network/cert"
)

// echoHandler answers every frame with "<peer>:<frame>".
type echoHandler struct {
	mu    sync.Mutex
	peers []crypto.Address
}

func (h *echoHandler) HandleStream(ctx context.Context, peer crypto.Address, stream quic.Stream) error {
	defer stream.Close()
	h.mu.Lock()
	h.peers = append(h.peers, peer)
	h.mu.Unlock()

	msg, err := ReadMessage(ctx, stream)
	if err != nil {
		return err
	}
	return WriteMessage(ctx, stream, append([]byte(peer.String()+":"), msg...))
}

func (h *echoHandler) seen() []crypto.Address {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]crypto.Address(nil), h.peers...)
}

func newTransport(t *testing.T, network string, handler StreamHandler) (*Transport, crypto.Address) {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	tlsCert, err := cert.NewGenerator(cert.Config{PrivateKey: priv}).GenerateCertificate()
	require.NoError(t, err)

	tr, err := NewTransport(Config{
		TLSCert:       tlsCert,
		ListenAddr:    "127.0.0.1:0",
		Protocol:      NewProtocolID(network),
		CertValidator: cert.NewValidator(),
		Handler:       handler,
		Logger:        zerolog.Nop(),
	})
	require.NoError(t, err)
	return tr, crypto.AddressFromPublicKey(pub)
}

func TestTransportRoundTrip(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	handler := &echoHandler{}
	server, serverAddr := newTransport(t, "testnet", handler)
	require.NoError(t, server.Start())
	defer server.Stop()

	client, clientAddr := newTransport(t, "testnet", nil)
	defer client.Stop()

	conn, err := client.Connect(ctx, server.Addr().String())
	require.NoError(t, err)
	assert.Equal(t, serverAddr, conn.Peer())

	for _, body := range []string{"first", "second"} {
		stream, err := conn.OpenStream(ctx)
		require.NoError(t, err)
		require.NoError(t, WriteMessage(ctx, stream, []byte(body)))
		require.NoError(t, stream.Close())

		resp, err := ReadMessage(ctx, stream)
		require.NoError(t, err)
		assert.Equal(t, clientAddr.String()+":"+body, string(resp))
	}

	assert.Equal(t, []crypto.Address{clientAddr, clientAddr}, handler.seen())
	assert.Equal(t, 1, client.Connections())

	require.NoError(t, conn.Close())
	require.NoError(t, conn.Close())
	assert.Equal(t, 0, client.Connections())
}

func TestTransportRejectsOtherNetwork(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	server, _ := newTransport(t, "mainnet", &echoHandler{})
	require.NoError(t, server.Start())
	defer server.Stop()

	client, _ := newTransport(t, "testnet", nil)
	defer client.Stop()

	_, err := client.Connect(ctx, server.Addr().String())
	assert.ErrorIs(t, err, ErrDialFailed)
}

func TestNewTransportValidation(t *testing.T) {
	_, err := NewTransport(Config{CertValidator: cert.NewValidator()})
	assert.Error(t, err)

	_, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	tlsCert, err := cert.NewGenerator(cert.Config{PrivateKey: priv, ValidityPeriod: -time.Hour}).GenerateCertificate()
	require.NoError(t, err)

	_, err = NewTransport(Config{
		TLSCert:       tlsCert,
		Protocol:      NewProtocolID("testnet"),
		CertValidator: cert.NewValidator(),
	})
	assert.ErrorIs(t, err, ErrInvalidCertificate)

	tr, _ := newTransport(t, "testnet", nil)
	assert.Error(t, tr.Start())
}
