package transport

import (
	"fmt"
	"strings"
)

const (
	protocolPrefix = "fraudledger"

	// CurrentVersion is the wire version negotiated over ALPN.
	CurrentVersion = "1"
)

// ProtocolID is the ALPN identifier, "fraudledger/<version>/<network>".
type ProtocolID struct {
	Version string
	Network string
}

func NewProtocolID(network string) ProtocolID {
	return ProtocolID{Version: CurrentVersion, Network: network}
}

func (p ProtocolID) String() string {
	return strings.Join([]string{protocolPrefix, p.Version, p.Network}, "/")
}

// ParseProtocolID parses an ALPN string. The network name must be non-empty
// lowercase alphanumerics or '-'.
func ParseProtocolID(protocol string) (ProtocolID, error) {
	parts := strings.Split(protocol, "/")
	if len(parts) != 3 {
		return ProtocolID{}, fmt.Errorf("%w: %q", ErrInvalidProtocol, protocol)
	}
	if parts[0] != protocolPrefix {
		return ProtocolID{}, fmt.Errorf("%w: prefix %q", ErrInvalidProtocol, parts[0])
	}
	if parts[1] != CurrentVersion {
		return ProtocolID{}, fmt.Errorf("%w: unsupported version %q", ErrInvalidProtocol, parts[1])
	}
	if parts[2] == "" {
		return ProtocolID{}, fmt.Errorf("%w: empty network", ErrInvalidProtocol)
	}
	for _, c := range parts[2] {
		if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'z') || c == '-') {
			return ProtocolID{}, fmt.Errorf("%w: invalid network character %q", ErrInvalidProtocol, c)
		}
	}
	return ProtocolID{Version: parts[1], Network: parts[2]}, nil
}
