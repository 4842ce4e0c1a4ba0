package hopper

import (
	"net/netip"

	"github.com/go-i2p/go-hopper/lib/cryptde"
	"github.com/go-i2p/go-hopper/lib/dispatcher"
	"github.com/go-i2p/go-hopper/lib/instrument"
	"github.com/go-i2p/go-hopper/lib/mailbox"
	"github.com/go-i2p/logger"
	"github.com/samber/oops"
)

// loopbackPeer is the neighbor address recorded on packages a node sends to itself.
var loopbackPeer = netip.AddrPortFrom(netip.IPv4Unspecified(), 0)

// ConsumingService turns incipient packages into live ones and hands them to the
// first hop.
type ConsumingService struct {
	cryptde      cryptde.CryptDE
	toDispatcher mailbox.Recipient[dispatcher.TransmitDataMsg]
	toHopper     mailbox.Recipient[dispatcher.InboundClientData]
}

// NewConsumingService creates a ConsumingService. toHopper receives packages whose
// first hop is this node itself.
func NewConsumingService(
	cd cryptde.CryptDE,
	toDispatcher mailbox.Recipient[dispatcher.TransmitDataMsg],
	toHopper mailbox.Recipient[dispatcher.InboundClientData],
) *ConsumingService {
	return &ConsumingService{
		cryptde:      cd,
		toDispatcher: toDispatcher,
		toHopper:     toHopper,
	}
}

// Consume encrypts pkg and issues exactly one send. Encryption failures wrap
// ErrRouteEncryption and are never retried.
func (s *ConsumingService) Consume(pkg IncipientCoresPackage) error {
	if pkg.Route.Len() == 0 {
		return oops.Wrapf(ErrRouteEncryption, "route has no hops")
	}
	if err := pkg.Route.CheckDestination(pkg.PayloadDestinationKey); err != nil {
		return s.fail(pkg, err)
	}

	live, err := sealPackage(pkg, s.cryptde)
	if err != nil {
		return s.fail(pkg, err)
	}
	data, err := live.Marshal()
	if err != nil {
		return s.fail(pkg, err)
	}

	first := pkg.Route.FirstKey()
	if first.Equal(s.cryptde.PublicKey()) {
		err = s.toHopper.TrySend(dispatcher.InboundClientData{
			PeerAddr: loopbackPeer,
			LastData: false,
			Data:     data,
		})
	} else {
		err = s.toDispatcher.TrySend(dispatcher.TransmitDataMsg{
			Endpoint: dispatcher.KeyEndpoint(first),
			LastData: false,
			Data:     data,
		})
	}
	if err != nil {
		instrument.PackageDropped(dropReason(err))
		log.WithError(err).WithFields(logger.Fields{
			"at":        "ConsumingService.Consume",
			"first_hop": first.Short(),
			"reason":    "send refused",
		}).Warn("outbound package dropped")
		return oops.Wrapf(err, "sending to %s", first.Short())
	}

	instrument.PackageConsumed()
	log.WithFields(logger.Fields{
		"at":        "ConsumingService.Consume",
		"first_hop": first.Short(),
		"hops":      pkg.Route.Len(),
		"bytes":     len(data),
		"kind":      pkg.Payload.Kind().String(),
	}).Debug("package sent to first hop")
	return nil
}

func (s *ConsumingService) fail(pkg IncipientCoresPackage, err error) error {
	log.WithError(err).WithFields(logger.Fields{
		"at":     "ConsumingService.Consume",
		"hops":   pkg.Route.Len(),
		"reason": "route encryption failed",
	}).Error("dropping outbound package")
	instrument.PackageDropped("route_encryption")
	return oops.Wrapf(ErrRouteEncryption, "%v", err)
}
