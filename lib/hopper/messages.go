package hopper

import (
	"net/netip"

	"github.com/go-i2p/go-hopper/lib/cryptde"
	"github.com/go-i2p/go-hopper/lib/dispatcher"
	"github.com/go-i2p/go-hopper/lib/mailbox"
	"github.com/go-i2p/go-hopper/lib/route"
)

// Admitter decides whether inbound data from a peer may reach the routing service.
type Admitter interface {
	Admit(data dispatcher.InboundClientData) bool
}

// AdmitFunc adapts a function to an Admitter.
type AdmitFunc func(data dispatcher.InboundClientData) bool

// Admit calls f(data).
func (f AdmitFunc) Admit(data dispatcher.InboundClientData) bool {
	return f(data)
}

// PeerActors carries the recipients of every collaborator the hopper talks to.
type PeerActors struct {
	// Dispatcher receives outbound sends. Required.
	Dispatcher mailbox.Recipient[dispatcher.TransmitDataMsg]
	// Components maps each routable local component to its inbox. Packages for a
	// component missing here are dropped.
	Components map[route.Component]mailbox.Recipient[ExpiredCoresPackage]
	// Accountant receives one report per relayed package. Nil discards reports.
	Accountant mailbox.Recipient[RoutingServiceProvided]
	// Admission, if set, is consulted before any inbound data is routed.
	Admission Admitter
}

// BindMessage is delivered exactly once to connect the hopper to its collaborators.
type BindMessage struct {
	PeerActors PeerActors
}

// Subs are the recipients through which other units talk to a Hopper. They are
// valid as soon as the Hopper exists, before it is bound.
type Subs struct {
	Bind             mailbox.Recipient[BindMessage]
	FromHopperClient mailbox.Recipient[IncipientCoresPackage]
	FromDispatcher   mailbox.Recipient[dispatcher.InboundClientData]
}

// RoutingServiceProvided reports one relay to the accountant.
type RoutingServiceProvided struct {
	// Peer is the neighbor the package arrived from.
	Peer netip.AddrPort
	// NextHop is the key the package was forwarded to.
	NextHop     cryptde.PublicKey
	PayloadSize int
	ServiceRate uint64
	ByteRate    uint64
}

// Amount is the fee owed for the relay.
func (r RoutingServiceProvided) Amount() uint64 {
	return r.ServiceRate + r.ByteRate*uint64(r.PayloadSize)
}
