// Package dispatcher defines the messages exchanged between the hopper and the
// transport layer that owns connections.
package dispatcher

import (
	"fmt"
	"net/netip"

	"github.com/go-i2p/go-hopper/lib/cryptde"
)

// InboundClientData is one chunk of raw bytes received from a peer. It carries no
// routing state; Data is expected to hold one serialized live cores package.
type InboundClientData struct {
	PeerAddr       netip.AddrPort
	ReceptionPort  uint16
	HasReception   bool
	IsClandestine  bool
	SequenceNumber uint64
	HasSequence    bool
	LastData       bool
	Data           []byte
}

// Endpoint addresses an outbound send. Routing always addresses peers by key;
// Addr is only set when the caller already knows the socket address.
type Endpoint struct {
	Key  cryptde.PublicKey
	Addr netip.AddrPort
}

// KeyEndpoint returns an Endpoint that addresses a peer by public key.
func KeyEndpoint(key cryptde.PublicKey) Endpoint {
	return Endpoint{Key: key}
}

func (e Endpoint) String() string {
	if e.Addr.IsValid() {
		return fmt.Sprintf("%s@%s", e.Key.Short(), e.Addr)
	}
	return e.Key.Short()
}

// TransmitDataMsg asks the transport to send Data to Endpoint. Sends are fire and
// forget.
type TransmitDataMsg struct {
	Endpoint       Endpoint
	LastData       bool
	SequenceNumber uint64
	HasSequence    bool
	Data           []byte
}
