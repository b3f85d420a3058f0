package transport

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/quic-go/quic-go"
	"github.com/rs/zerolog"

	"github.com/eigerco/fraudledger/internal/crypto"
)

// MaxIdleTimeout defines the maximum duration a connection can be idle before timing out
const MaxIdleTimeout = 5 * time.Minute

// StreamHandler serves one inbound stream. peer is the authenticated caller.
type StreamHandler interface {
	HandleStream(ctx context.Context, peer crypto.Address, stream quic.Stream) error
}

// CertValidator validates peer certificates and extracts the ledger identity.
type CertValidator interface {
	ValidateCertificate(cert *x509.Certificate) error
	ExtractAddress(cert *x509.Certificate) (crypto.Address, error)
}

// Config contains all configuration parameters for a Transport.
type Config struct {
	TLSCert       *tls.Certificate
	ListenAddr    string
	Protocol      ProtocolID
	CertValidator CertValidator
	Handler       StreamHandler // nil for dial-only transports
	Logger        zerolog.Logger
}

// Transport accepts QUIC connections, hands their streams to the handler and
// dials peers. Both sides present certificates.
type Transport struct {
	config   Config
	log      zerolog.Logger
	listener *quic.Listener

	mu    sync.Mutex
	conns map[*Conn]struct{}

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewTransport validates config. The node's own certificate must pass the
// same checks applied to peers.
func NewTransport(config Config) (*Transport, error) {
	if config.TLSCert == nil || config.TLSCert.Leaf == nil {
		return nil, fmt.Errorf("TLS certificate required")
	}
	if config.CertValidator == nil {
		return nil, fmt.Errorf("certificate validator required")
	}
	if _, err := ParseProtocolID(config.Protocol.String()); err != nil {
		return nil, err
	}
	if err := config.CertValidator.ValidateCertificate(config.TLSCert.Leaf); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCertificate, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Transport{
		config: config,
		log:    config.Logger,
		conns:  make(map[*Conn]struct{}),
		ctx:    ctx,
		cancel: cancel,
	}, nil
}

func (t *Transport) quicConfig() *quic.Config {
	return &quic.Config{
		MaxIdleTimeout:  MaxIdleTimeout,
		KeepAlivePeriod: MaxIdleTimeout / 3,
	}
}

func (t *Transport) tlsConfig() *tls.Config {
	return &tls.Config{
		Certificates:       []tls.Certificate{*t.config.TLSCert},
		NextProtos:         []string{t.config.Protocol.String()},
		ClientAuth:         tls.RequireAnyClientCert,
		MinVersion:         tls.VersionTLS13,
		InsecureSkipVerify: true,
		VerifyConnection:   t.verifyConnection,
	}
}

// verifyConnection runs on both sides of the handshake.
func (t *Transport) verifyConnection(cs tls.ConnectionState) error {
	if len(cs.PeerCertificates) == 0 {
		return fmt.Errorf("%w: no peer certificate provided", ErrInvalidCertificate)
	}
	if err := t.config.CertValidator.ValidateCertificate(cs.PeerCertificates[0]); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidCertificate, err)
	}
	if cs.NegotiatedProtocol != t.config.Protocol.String() {
		return fmt.Errorf("%w: negotiated %q", ErrInvalidProtocol, cs.NegotiatedProtocol)
	}
	return nil
}

// Start begins accepting connections on ListenAddr.
func (t *Transport) Start() error {
	if t.config.Handler == nil {
		return fmt.Errorf("stream handler required")
	}
	listener, err := quic.ListenAddr(t.config.ListenAddr, t.tlsConfig(), t.quicConfig())
	if err != nil {
		return fmt.Errorf("%w: %v", ErrListenerFailed, err)
	}
	t.listener = listener
	t.log.Info().Str("addr", listener.Addr().String()).Str("protocol", t.config.Protocol.String()).Msg("transport listening")

	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		t.acceptLoop()
	}()
	return nil
}

// Addr returns the bound listen address.
func (t *Transport) Addr() net.Addr {
	if t.listener == nil {
		return nil
	}
	return t.listener.Addr()
}

// Connect dials a remote peer.
func (t *Transport) Connect(ctx context.Context, addr string) (*Conn, error) {
	qConn, err := quic.DialAddr(ctx, addr, t.tlsConfig(), t.quicConfig())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDialFailed, err)
	}
	conn, err := t.track(qConn)
	if err != nil {
		return nil, err
	}
	t.log.Debug().Str("addr", addr).Stringer("peer", conn.Peer()).Msg("connected")
	return conn, nil
}

// Stop closes the listener and every tracked connection, then waits for the
// stream handlers to return.
func (t *Transport) Stop() error {
	t.cancel()

	var errs []error
	if t.listener != nil {
		if err := t.listener.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close listener: %w", err))
		}
	}

	t.mu.Lock()
	conns := make([]*Conn, 0, len(t.conns))
	for conn := range t.conns {
		conns = append(conns, conn)
	}
	t.mu.Unlock()
	for _, conn := range conns {
		if err := conn.Close(); err != nil {
			t.log.Debug().Err(err).Msg("failed to close connection")
		}
	}

	t.wg.Wait()
	return errors.Join(errs...)
}

func (t *Transport) acceptLoop() {
	for {
		qConn, err := t.listener.Accept(t.ctx)
		if err != nil {
			if t.ctx.Err() == nil {
				t.log.Error().Err(err).Msg("failed to accept connection")
			}
			return
		}
		conn, err := t.track(qConn)
		if err != nil {
			t.log.Warn().Err(err).Str("remote", qConn.RemoteAddr().String()).Msg("rejected connection")
			continue
		}

		t.wg.Add(1)
		go func() {
			defer t.wg.Done()
			t.serveConn(conn)
		}()
	}
}

func (t *Transport) serveConn(conn *Conn) {
	defer conn.Close()
	for {
		stream, err := conn.AcceptStream()
		if err != nil {
			return
		}
		t.wg.Add(1)
		go func() {
			defer t.wg.Done()
			if err := t.config.Handler.HandleStream(conn.Context(), conn.Peer(), stream); err != nil {
				t.log.Debug().Err(err).Stringer("peer", conn.Peer()).Msg("stream handler failed")
				stream.CancelRead(0)
				stream.CancelWrite(0)
			}
		}()
	}
}

// track extracts the peer identity and registers the connection.
func (t *Transport) track(qConn quic.Connection) (*Conn, error) {
	certs := qConn.ConnectionState().TLS.PeerCertificates
	if len(certs) == 0 {
		_ = qConn.CloseWithError(1, ErrInvalidCertificate.Error())
		return nil, ErrInvalidCertificate
	}
	peer, err := t.config.CertValidator.ExtractAddress(certs[0])
	if err != nil {
		_ = qConn.CloseWithError(1, ErrInvalidCertificate.Error())
		return nil, fmt.Errorf("%w: %v", ErrInvalidCertificate, err)
	}

	conn := newConn(t.ctx, qConn, peer)
	conn.release = func() {
		t.mu.Lock()
		delete(t.conns, conn)
		t.mu.Unlock()
	}
	t.mu.Lock()
	t.conns[conn] = struct{}{}
	t.mu.Unlock()
	return conn, nil
}

// Connections returns the number of open connections.
func (t *Transport) Connections() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.conns)
}
