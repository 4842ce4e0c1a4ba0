package transport

import (
	"net/netip"
	"sync"
	"sync/atomic"

	"github.com/go-i2p/go-hopper/lib/cryptde"
	"github.com/go-i2p/go-hopper/lib/dispatcher"
	"github.com/go-i2p/go-hopper/lib/mailbox"
	"github.com/go-i2p/logger"
	"github.com/samber/oops"
)

var log = logger.GetGoI2PLogger()

// basePort is the port every synthetic node address uses.
const basePort = 5678

// Network connects attached endpoints by public key.
type Network struct {
	mu    sync.RWMutex
	nodes map[string]*Endpoint
	next  uint32
}

// NewNetwork creates an empty network.
func NewNetwork() *Network {
	return &Network{nodes: make(map[string]*Endpoint)}
}

// Attach registers key and returns the endpoint it sends through. Data addressed
// to key is delivered to inbound.
func (n *Network) Attach(key cryptde.PublicKey, inbound mailbox.Recipient[dispatcher.InboundClientData]) (*Endpoint, error) {
	if key.Len() == 0 {
		return nil, oops.Errorf("transport: cannot attach an empty key")
	}
	if inbound == nil {
		return nil, oops.Errorf("transport: cannot attach without an inbound recipient")
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	id := string(key)
	if _, ok := n.nodes[id]; ok {
		return nil, oops.Wrapf(ErrAlreadyAttached, "%s", key.Short())
	}
	n.next++
	ep := &Endpoint{
		network: n,
		key:     append(cryptde.PublicKey(nil), key...),
		addr:    syntheticAddr(n.next),
		inbound: inbound,
	}
	n.nodes[id] = ep

	log.WithFields(logger.Fields{
		"at":    "Network.Attach",
		"key":   key.Short(),
		"addr":  ep.addr.String(),
		"nodes": len(n.nodes),
	}).Debug("endpoint attached")
	return ep, nil
}

// Detach removes key from the network. Later sends to it are dropped.
func (n *Network) Detach(key cryptde.PublicKey) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if ep, ok := n.nodes[string(key)]; ok {
		ep.detached.Store(true)
		delete(n.nodes, string(key))
	}
}

// Len returns the number of attached endpoints.
func (n *Network) Len() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.nodes)
}

func (n *Network) lookup(key cryptde.PublicKey) (*Endpoint, bool) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	ep, ok := n.nodes[string(key)]
	return ep, ok
}

func syntheticAddr(i uint32) netip.AddrPort {
	return netip.AddrPortFrom(netip.AddrFrom4([4]byte{10, byte(i >> 16), byte(i >> 8), byte(i)}), basePort)
}

// Endpoint is one node's attachment to a Network.
type Endpoint struct {
	network  *Network
	key      cryptde.PublicKey
	addr     netip.AddrPort
	inbound  mailbox.Recipient[dispatcher.InboundClientData]
	detached atomic.Bool

	sent    atomic.Uint64
	dropped atomic.Uint64
}

// Key returns the key the endpoint is attached under.
func (e *Endpoint) Key() cryptde.PublicKey {
	return e.key
}

// Addr returns the synthetic address peers see this endpoint as.
func (e *Endpoint) Addr() netip.AddrPort {
	return e.addr
}

// Sent returns how many messages were handed to a destination inbox.
func (e *Endpoint) Sent() uint64 {
	return e.sent.Load()
}

// Dropped returns how many messages could not be delivered.
func (e *Endpoint) Dropped() uint64 {
	return e.dropped.Load()
}

// TrySend delivers msg to the node attached under msg.Endpoint.Key.
func (e *Endpoint) TrySend(msg dispatcher.TransmitDataMsg) error {
	if e.detached.Load() {
		e.dropped.Add(1)
		return ErrDetached
	}
	dest, ok := e.network.lookup(msg.Endpoint.Key)
	if !ok {
		e.dropped.Add(1)
		log.WithFields(logger.Fields{
			"at":     "Endpoint.TrySend",
			"from":   e.key.Short(),
			"to":     msg.Endpoint.Key.Short(),
			"reason": "unknown destination key",
		}).Debug("dropping outbound data")
		return oops.Wrapf(ErrUnknownPeer, "%s", msg.Endpoint.Key.Short())
	}

	err := dest.inbound.TrySend(dispatcher.InboundClientData{
		PeerAddr:       e.addr,
		ReceptionPort:  dest.addr.Port(),
		HasReception:   true,
		IsClandestine:  false,
		SequenceNumber: msg.SequenceNumber,
		HasSequence:    msg.HasSequence,
		LastData:       msg.LastData,
		Data:           append([]byte(nil), msg.Data...),
	})
	if err != nil {
		e.dropped.Add(1)
		log.WithError(err).WithFields(logger.Fields{
			"at":     "Endpoint.TrySend",
			"from":   e.key.Short(),
			"to":     msg.Endpoint.Key.Short(),
			"reason": "destination refused data",
		}).Warn("dropping outbound data")
		return oops.Wrapf(err, "delivering to %s", msg.Endpoint.Key.Short())
	}
	e.sent.Add(1)
	return nil
}
