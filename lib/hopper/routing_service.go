package hopper

import (
	"errors"

	"github.com/go-i2p/go-hopper/lib/cryptde"
	"github.com/go-i2p/go-hopper/lib/dispatcher"
	"github.com/go-i2p/go-hopper/lib/instrument"
	"github.com/go-i2p/go-hopper/lib/mailbox"
	"github.com/go-i2p/go-hopper/lib/message"
	"github.com/go-i2p/go-hopper/lib/route"
	"github.com/go-i2p/logger"
	"github.com/samber/oops"
)

// RoutingService handles raw inbound data: it strips one layer and either delivers
// locally or forwards. It keeps no state between calls.
type RoutingService struct {
	cryptde         cryptde.CryptDE
	isBootstrapNode bool

	components   map[route.Component]mailbox.Recipient[ExpiredCoresPackage]
	toDispatcher mailbox.Recipient[dispatcher.TransmitDataMsg]
	toAccountant mailbox.Recipient[RoutingServiceProvided]

	perRoutingService uint64
	perRoutingByte    uint64
}

// RoutingServiceConfig groups the collaborators and rates of a RoutingService.
type RoutingServiceConfig struct {
	CryptDE           cryptde.CryptDE
	IsBootstrapNode   bool
	Components        map[route.Component]mailbox.Recipient[ExpiredCoresPackage]
	Dispatcher        mailbox.Recipient[dispatcher.TransmitDataMsg]
	Accountant        mailbox.Recipient[RoutingServiceProvided]
	PerRoutingService uint64
	PerRoutingByte    uint64
}

// NewRoutingService creates a RoutingService. A nil Accountant discards reports.
func NewRoutingService(cfg RoutingServiceConfig) *RoutingService {
	components := make(map[route.Component]mailbox.Recipient[ExpiredCoresPackage], len(cfg.Components))
	for c, r := range cfg.Components {
		if r != nil {
			components[c] = r
		}
	}
	accountant := cfg.Accountant
	if accountant == nil {
		accountant = mailbox.Discard[RoutingServiceProvided]()
	}
	return &RoutingService{
		cryptde:           cfg.CryptDE,
		isBootstrapNode:   cfg.IsBootstrapNode,
		components:        components,
		toDispatcher:      cfg.Dispatcher,
		toAccountant:      accountant,
		perRoutingService: cfg.PerRoutingService,
		perRoutingByte:    cfg.PerRoutingByte,
	}
}

// Route processes one inbound chunk. Failures are logged and counted here; the
// returned error is informational since nothing is sent back to the peer.
func (s *RoutingService) Route(data dispatcher.InboundClientData) error {
	err := s.route(data)
	if err != nil {
		reason := dropReason(err)
		instrument.PackageDropped(reason)
		entry := log.WithError(err).WithFields(logger.Fields{
			"at":     "RoutingService.Route",
			"peer":   data.PeerAddr.String(),
			"bytes":  len(data.Data),
			"reason": reason,
		})
		if errors.Is(err, ErrDecryption) || errors.Is(err, ErrMalformedPackage) {
			entry.Debug("dropping inbound package")
		} else {
			entry.Warn("dropping inbound package")
		}
	}
	return err
}

func (s *RoutingService) route(data dispatcher.InboundClientData) error {
	pkg, err := UnmarshalLiveCoresPackage(data.Data)
	if err != nil {
		return err
	}
	hop, next, err := pkg.peel(s.cryptde)
	if err != nil {
		return err
	}
	if hop.IsFinal() {
		return s.deliver(data, hop.Component, next.Payload)
	}
	return s.relay(data, hop.Next, next)
}

func (s *RoutingService) deliver(data dispatcher.InboundClientData, component route.Component, payload cryptde.CryptData) error {
	if s.isBootstrapNode && component != route.Neighborhood {
		return oops.Wrapf(ErrBootstrapRefused, "delivery to %s", component)
	}

	msg, err := message.Decode(payload)
	if err != nil {
		return oops.Wrapf(ErrMalformedPackage, "final payload: %v", err)
	}
	recipient, ok := s.components[component]
	if !ok {
		return oops.Wrapf(ErrNoRecipient, "%s", component)
	}

	expired := ExpiredCoresPackage{
		ImmediateNeighbor: data.PeerAddr,
		Component:         component,
		Payload:           msg,
		PayloadLen:        payload.Len(),
	}
	if err := recipient.TrySend(expired); err != nil {
		return oops.Wrapf(err, "delivering to %s", component)
	}

	instrument.PackageDelivered(component.String())
	log.WithFields(logger.Fields{
		"at":        "RoutingService.deliver",
		"component": component.String(),
		"kind":      msg.Kind().String(),
		"peer":      data.PeerAddr.String(),
	}).Debug("package delivered")
	return nil
}

func (s *RoutingService) relay(data dispatcher.InboundClientData, nextHop cryptde.PublicKey, next LiveCoresPackage) error {
	if s.isBootstrapNode {
		return oops.Wrapf(ErrBootstrapRefused, "relay to %s", nextHop.Short())
	}

	out, err := next.Marshal()
	if err != nil {
		return oops.Wrapf(ErrMalformedPackage, "re-encoding reduced package: %v", err)
	}
	err = s.toDispatcher.TrySend(dispatcher.TransmitDataMsg{
		Endpoint:       dispatcher.KeyEndpoint(nextHop),
		LastData:       data.LastData,
		SequenceNumber: data.SequenceNumber,
		HasSequence:    data.HasSequence,
		Data:           out,
	})
	if err != nil {
		return oops.Wrapf(err, "forwarding to %s", nextHop.Short())
	}

	report := RoutingServiceProvided{
		Peer:        data.PeerAddr,
		NextHop:     nextHop,
		PayloadSize: next.Payload.Len(),
		ServiceRate: s.perRoutingService,
		ByteRate:    s.perRoutingByte,
	}
	if err := s.toAccountant.TrySend(report); err != nil {
		log.WithError(err).WithFields(logger.Fields{
			"at":     "RoutingService.relay",
			"peer":   data.PeerAddr.String(),
			"amount": report.Amount(),
			"reason": "accountant refused report",
		}).Warn("relay fee not recorded")
	}

	instrument.PackageRelayed(report.Amount())
	log.WithFields(logger.Fields{
		"at":        "RoutingService.relay",
		"next_hop":  nextHop.Short(),
		"remaining": next.Route.Len(),
		"bytes":     len(out),
		"fee":       report.Amount(),
	}).Debug("package relayed")
	return nil
}
