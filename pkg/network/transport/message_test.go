package transport

import (
	"bytes"
	"context"
	"encoding/binary"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageFraming(t *testing.T) {
	ctx := context.Background()
	var buf bytes.Buffer

	require.NoError(t, WriteMessage(ctx, &buf, []byte("hello")))
	require.NoError(t, WriteMessage(ctx, &buf, nil))
	assert.Equal(t, []byte{5, 0, 0, 0}, buf.Bytes()[:4])

	msg, err := ReadMessage(ctx, &buf)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(msg))

	msg, err = ReadMessage(ctx, &buf)
	require.NoError(t, err)
	assert.Empty(t, msg)

	_, err = ReadMessage(ctx, &buf)
	assert.ErrorIs(t, err, io.EOF)
}

func TestMessageTooLarge(t *testing.T) {
	ctx := context.Background()

	err := WriteMessage(ctx, io.Discard, make([]byte, MaxMessageSize+1))
	assert.ErrorIs(t, err, ErrMessageTooLarge)

	var header [4]byte
	binary.LittleEndian.PutUint32(header[:], MaxMessageSize+1)
	_, err = ReadMessage(ctx, bytes.NewReader(header[:]))
	assert.ErrorIs(t, err, ErrMessageTooLarge)
}

func TestMessageTruncated(t *testing.T) {
	_, err := ReadMessage(context.Background(), bytes.NewReader([]byte{4, 0, 0, 0, 'a'}))
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestReadMessageCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r, w := io.Pipe()
	defer w.Close()

	_, err := ReadMessage(ctx, r)
	assert.ErrorIs(t, err, context.Canceled)
}
