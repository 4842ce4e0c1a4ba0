package hopper

import (
	"context"
	"fmt"

	"github.com/go-i2p/go-hopper/lib/dispatcher"
	"github.com/go-i2p/go-hopper/lib/instrument"
	"github.com/go-i2p/go-hopper/lib/mailbox"
	"github.com/go-i2p/logger"
)

var log = logger.GetGoI2PLogger()

// Hopper owns the consuming and routing services of one node and feeds them from
// a single FIFO inbox. It is unbound until a BindMessage arrives.
type Hopper struct {
	cfg   HopperConfig
	inbox *mailbox.Mailbox[any]
	subs  Subs

	consuming *ConsumingService
	routing   *RoutingService
	admission Admitter
}

// New creates an unbound Hopper.
func New(cfg HopperConfig) (*Hopper, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	h := &Hopper{
		cfg:   cfg,
		inbox: mailbox.New[any]("hopper", cfg.capacity()),
	}
	h.subs = Subs{
		Bind:             mailbox.Forward[BindMessage](h.inbox),
		FromHopperClient: mailbox.Forward[IncipientCoresPackage](h.inbox),
		FromDispatcher:   mailbox.Forward[dispatcher.InboundClientData](h.inbox),
	}

	log.WithFields(logger.Fields{
		"at":               "hopper.New",
		"public_key":       cfg.CryptDE.PublicKey().Short(),
		"bootstrap":        cfg.IsBootstrapNode,
		"per_routing":      cfg.PerRoutingService,
		"per_routing_byte": cfg.PerRoutingByte,
		"capacity":         h.inbox.Cap(),
	}).Debug("hopper created")
	return h, nil
}

// Subs returns the recipients other units use to reach this Hopper.
func (h *Hopper) Subs() Subs {
	return h.subs
}

// Bound reports whether a BindMessage has been handled.
func (h *Hopper) Bound() bool {
	return h.consuming != nil && h.routing != nil
}

// Run handles inbox messages in order until ctx is cancelled or Close is called.
func (h *Hopper) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-h.inbox.C():
			if !ok {
				return nil
			}
			h.Handle(msg)
		}
	}
}

// Close stops the inbox. Run returns once queued messages are drained.
func (h *Hopper) Close() {
	h.inbox.Close()
}

// Handle processes one message synchronously. It must only be called from one
// goroutine at a time, normally Run.
//
// An IncipientCoresPackage or InboundClientData before bind, a second
// BindMessage, or a message of any other type panics.
func (h *Hopper) Handle(msg any) {
	switch m := msg.(type) {
	case BindMessage:
		h.bind(m.PeerActors)
	case IncipientCoresPackage:
		if h.consuming == nil {
			panic("hopper unbound: no ConsumingService")
		}
		_ = h.consuming.Consume(m)
	case dispatcher.InboundClientData:
		if h.routing == nil {
			panic("hopper unbound: no RoutingService")
		}
		if h.admission != nil && !h.admission.Admit(m) {
			instrument.PackageDropped("admission")
			log.WithFields(logger.Fields{
				"at":     "Hopper.Handle",
				"peer":   m.PeerAddr.String(),
				"reason": "admission refused",
			}).Debug("dropping inbound package")
			return
		}
		_ = h.routing.Route(m)
	default:
		panic(fmt.Sprintf("hopper: unexpected message %T", msg))
	}
}

func (h *Hopper) bind(actors PeerActors) {
	if h.Bound() {
		panic("hopper already bound")
	}
	if actors.Dispatcher == nil {
		panic("hopper bind: no dispatcher recipient")
	}

	h.consuming = NewConsumingService(h.cfg.CryptDE, actors.Dispatcher, h.subs.FromDispatcher)
	h.routing = NewRoutingService(RoutingServiceConfig{
		CryptDE:           h.cfg.CryptDE,
		IsBootstrapNode:   h.cfg.IsBootstrapNode,
		Components:        actors.Components,
		Dispatcher:        actors.Dispatcher,
		Accountant:        actors.Accountant,
		PerRoutingService: h.cfg.PerRoutingService,
		PerRoutingByte:    h.cfg.PerRoutingByte,
	})
	h.admission = actors.Admission

	log.WithFields(logger.Fields{
		"at":         "Hopper.bind",
		"components": len(actors.Components),
		"admission":  actors.Admission != nil,
		"accountant": actors.Accountant != nil,
	}).Info("hopper bound")
}
