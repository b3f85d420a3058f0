package transport

import "errors"

var (
	ErrInvalidCertificate = errors.New("invalid certificate")
	ErrInvalidProtocol    = errors.New("invalid protocol")
	ErrListenerFailed     = errors.New("failed to create QUIC listener")
	ErrDialFailed         = errors.New("failed to dial peer")
	ErrMessageTooLarge    = errors.New("message exceeds maximum size")
)
