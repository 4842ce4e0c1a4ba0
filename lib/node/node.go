// Package node assembles one relay node from its parts.
//
// Construction runs in dependency order: the hopper is created unbound, its
// inbound recipient is attached to the transport, the component inboxes and the
// ledger are created, and finally the hopper is bound to all of them. The
// transport endpoint needs the hopper's recipient and the hopper needs the
// endpoint, which is the one cycle the unbound state exists for.
package node

import (
	"context"
	"sync"

	"github.com/go-i2p/go-hopper/lib/accountant"
	"github.com/go-i2p/go-hopper/lib/admission"
	"github.com/go-i2p/go-hopper/lib/config"
	"github.com/go-i2p/go-hopper/lib/cryptde"
	"github.com/go-i2p/go-hopper/lib/hopper"
	"github.com/go-i2p/go-hopper/lib/mailbox"
	"github.com/go-i2p/go-hopper/lib/message"
	"github.com/go-i2p/go-hopper/lib/route"
	"github.com/go-i2p/go-hopper/lib/transport"
	"github.com/go-i2p/logger"
	"github.com/samber/oops"
)

var log = logger.GetGoI2PLogger()

// Config describes one node.
type Config struct {
	CryptDE cryptde.CryptDE
	Hopper  config.HopperDefaults
	// Admission enables per-peer rate limiting when set.
	Admission *config.AdmissionDefaults
}

// Node is a bound hopper with its transport endpoint, ledger and the inboxes of
// the local components packages can be delivered to.
type Node struct {
	cd       cryptde.CryptDE
	hopper   *hopper.Hopper
	endpoint *transport.Endpoint
	ledger   *accountant.Ledger
	limiter  *admission.SourceLimiter
	inboxes  map[route.Component]*mailbox.Mailbox[hopper.ExpiredCoresPackage]

	wg        sync.WaitGroup
	startOnce sync.Once
}

// Routable lists the components a node accepts deliveries for.
var Routable = []route.Component{route.ProxyClient, route.ProxyServer, route.Neighborhood}

// New builds and binds a node attached to network.
func New(network *transport.Network, cfg Config) (*Node, error) {
	if network == nil {
		return nil, oops.Errorf("node: no network")
	}
	h, err := hopper.New(hopper.HopperConfig{
		CryptDE:           cfg.CryptDE,
		IsBootstrapNode:   cfg.Hopper.BootstrapNode,
		PerRoutingService: cfg.Hopper.PerRoutingService,
		PerRoutingByte:    cfg.Hopper.PerRoutingByte,
		MailboxCapacity:   cfg.Hopper.MailboxCapacity,
	})
	if err != nil {
		return nil, err
	}

	ep, err := network.Attach(cfg.CryptDE.PublicKey(), h.Subs().FromDispatcher)
	if err != nil {
		return nil, err
	}

	n := &Node{
		cd:       cfg.CryptDE,
		hopper:   h,
		endpoint: ep,
		ledger:   accountant.NewLedger(cfg.Hopper.MailboxCapacity),
		inboxes:  make(map[route.Component]*mailbox.Mailbox[hopper.ExpiredCoresPackage]),
	}
	components := make(map[route.Component]mailbox.Recipient[hopper.ExpiredCoresPackage], len(Routable))
	for _, c := range Routable {
		mb := mailbox.New[hopper.ExpiredCoresPackage](c.String(), cfg.Hopper.MailboxCapacity)
		n.inboxes[c] = mb
		components[c] = mb
	}

	actors := hopper.PeerActors{
		Dispatcher: ep,
		Components: components,
		Accountant: n.ledger.Recipient(),
	}
	if cfg.Admission != nil {
		n.limiter = admission.NewSourceLimiterWithConfig(*cfg.Admission)
		actors.Admission = n.limiter
	}
	if err := h.Subs().Bind.TrySend(hopper.BindMessage{PeerActors: actors}); err != nil {
		network.Detach(cfg.CryptDE.PublicKey())
		n.stopLimiter()
		return nil, oops.Wrapf(err, "queueing bind")
	}

	log.WithFields(logger.Fields{
		"at":         "node.New",
		"public_key": cfg.CryptDE.PublicKey().Short(),
		"addr":       ep.Addr().String(),
		"bootstrap":  cfg.Hopper.BootstrapNode,
		"admission":  cfg.Admission != nil,
	}).Debug("node assembled")
	return n, nil
}

// Start runs the hopper and ledger loops until ctx is cancelled or Stop is called.
// Calls after the first are no-ops.
func (n *Node) Start(ctx context.Context) {
	n.startOnce.Do(func() {
		n.wg.Add(2)
		go func() {
			defer n.wg.Done()
			if err := n.hopper.Run(ctx); err != nil && ctx.Err() == nil {
				log.WithError(err).Error("hopper loop stopped")
			}
		}()
		go func() {
			defer n.wg.Done()
			_ = n.ledger.Run(ctx)
		}()
	})
}

// Stop closes the inboxes and waits for the loops to exit.
func (n *Node) Stop() {
	n.hopper.Close()
	n.ledger.Close()
	n.wg.Wait()
	n.stopLimiter()
	for _, mb := range n.inboxes {
		mb.Close()
	}
}

func (n *Node) stopLimiter() {
	if n.limiter != nil {
		n.limiter.Stop()
	}
}

// Send asks the hopper to route msg along r to the final hop's component.
func (n *Node) Send(r route.Route, msg message.MessageType) error {
	pkg, err := hopper.NewIncipientCoresPackage(r, msg, r.LastKey())
	if err != nil {
		return err
	}
	return n.hopper.Subs().FromHopperClient.TrySend(pkg)
}

// PublicKey returns the node's key.
func (n *Node) PublicKey() cryptde.PublicKey {
	return n.cd.PublicKey()
}

// Endpoint returns the node's transport attachment.
func (n *Node) Endpoint() *transport.Endpoint {
	return n.endpoint
}

// Ledger returns the node's relay fee ledger.
func (n *Node) Ledger() *accountant.Ledger {
	return n.ledger
}

// Inbox returns the delivery inbox of c, or nil if c is not routable here.
func (n *Node) Inbox(c route.Component) *mailbox.Mailbox[hopper.ExpiredCoresPackage] {
	return n.inboxes[c]
}
