package transport

import (
	"context"
	"fmt"
	"sync"

	"github.com/quic-go/quic-go"

	"github.com/eigerco/fraudledger/internal/crypto"
)

// Conn is a QUIC connection to a peer whose identity was taken from its
// certificate during the handshake.
type Conn struct {
	qConn   quic.Connection
	peer    crypto.Address
	ctx     context.Context
	cancel  context.CancelFunc
	release func()
	once    sync.Once
}

func newConn(parent context.Context, qConn quic.Connection, peer crypto.Address) *Conn {
	ctx, cancel := context.WithCancel(parent)
	return &Conn{
		qConn:  qConn,
		peer:   peer,
		ctx:    ctx,
		cancel: cancel,
	}
}

// OpenStream opens a new bidirectional stream.
func (c *Conn) OpenStream(ctx context.Context) (quic.Stream, error) {
	stream, err := c.qConn.OpenStreamSync(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to open QUIC stream: %w", err)
	}
	return stream, nil
}

// AcceptStream blocks until the peer opens a stream or the connection closes.
func (c *Conn) AcceptStream() (quic.Stream, error) {
	stream, err := c.qConn.AcceptStream(c.ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to accept QUIC stream: %w", err)
	}
	return stream, nil
}

// Peer returns the ledger address of the remote side.
func (c *Conn) Peer() crypto.Address {
	return c.peer
}

func (c *Conn) RemoteAddr() string {
	return c.qConn.RemoteAddr().String()
}

func (c *Conn) Context() context.Context {
	return c.ctx
}

// Close is safe to call more than once.
func (c *Conn) Close() error {
	var err error
	c.once.Do(func() {
		c.cancel()
		if c.release != nil {
			c.release()
		}
		err = c.qConn.CloseWithError(0, "")
	})
	return err
}
