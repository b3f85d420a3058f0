package transport

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
)

// MaxMessageSize bounds a single framed message body.
const MaxMessageSize = 4 << 20

// WriteMessage writes content framed as a little-endian uint32 length
// followed by the bytes themselves.
func WriteMessage(ctx context.Context, w io.Writer, content []byte) error {
	if len(content) > MaxMessageSize {
		return fmt.Errorf("%w: %d bytes", ErrMessageTooLarge, len(content))
	}
	done := make(chan error, 1)
	go func() {
		frame := make([]byte, 4+len(content))
		binary.LittleEndian.PutUint32(frame, uint32(len(content)))
		copy(frame[4:], content)
		if _, err := w.Write(frame); err != nil {
			done <- fmt.Errorf("failed to write message: %w", err)
			return
		}
		done <- nil
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ReadMessage reads one frame written by WriteMessage.
func ReadMessage(ctx context.Context, r io.Reader) ([]byte, error) {
	type result struct {
		content []byte
		err     error
	}
	done := make(chan result, 1)

	go func() {
		var size [4]byte
		if _, err := io.ReadFull(r, size[:]); err != nil {
			done <- result{err: fmt.Errorf("failed to read message size: %w", err)}
			return
		}
		n := binary.LittleEndian.Uint32(size[:])
		if n > MaxMessageSize {
			done <- result{err: fmt.Errorf("%w: %d bytes", ErrMessageTooLarge, n)}
			return
		}
		content := make([]byte, n)
		if _, err := io.ReadFull(r, content); err != nil {
			done <- result{err: fmt.Errorf("failed to read message content: %w", err)}
			return
		}
		done <- result{content: content}
	}()

	select {
	case res := <-done:
		return res.content, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
