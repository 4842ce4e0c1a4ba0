package hopper

import (
	"errors"
	"net/netip"

	"github.com/go-i2p/go-hopper/lib/codec"
	"github.com/go-i2p/go-hopper/lib/cryptde"
	"github.com/go-i2p/go-hopper/lib/message"
	"github.com/go-i2p/go-hopper/lib/route"
	"github.com/samber/oops"
)

// IncipientCoresPackage is what a local component asks the hopper to send. It has
// not been encrypted yet.
type IncipientCoresPackage struct {
	Route                 route.Route
	Payload               message.MessageType
	PayloadDestinationKey cryptde.PublicKey
}

// NewIncipientCoresPackage checks that the route is non-empty and that the payload
// is addressed to the route's final hop.
func NewIncipientCoresPackage(r route.Route, payload message.MessageType, destination cryptde.PublicKey) (IncipientCoresPackage, error) {
	if payload == nil {
		return IncipientCoresPackage{}, oops.Errorf("hopper: incipient package without payload")
	}
	if err := r.CheckDestination(destination); err != nil {
		return IncipientCoresPackage{}, oops.Wrapf(err, "payload destination %s", destination.Short())
	}
	return IncipientCoresPackage{
		Route:                 r,
		Payload:               payload,
		PayloadDestinationKey: append(cryptde.PublicKey(nil), destination...),
	}, nil
}

// LiveCoresPackage is the only form a package ever takes on the wire. Route holds
// one sealed record per remaining hop. Payload is wrapped once per remaining hop,
// outermost layer first.
type LiveCoresPackage struct {
	Route   route.Sealed      `cbor:"1,keyasint"`
	Payload cryptde.CryptData `cbor:"2,keyasint"`
}

// Marshal serializes the package with the shared wire codec.
func (p LiveCoresPackage) Marshal() ([]byte, error) {
	return codec.Marshal(p)
}

// UnmarshalLiveCoresPackage parses wire bytes. Every failure wraps ErrMalformedPackage.
func UnmarshalLiveCoresPackage(data []byte) (LiveCoresPackage, error) {
	var p LiveCoresPackage
	if err := codec.Unmarshal(data, &p); err != nil {
		return LiveCoresPackage{}, oops.Wrapf(ErrMalformedPackage, "%v", err)
	}
	if p.Route.Len() == 0 {
		return LiveCoresPackage{}, oops.Wrapf(ErrMalformedPackage, "package has no hop records")
	}
	if p.Payload.Len() == 0 {
		return LiveCoresPackage{}, oops.Wrapf(ErrMalformedPackage, "package has no payload")
	}
	return p, nil
}

// sealPackage seals the route and wraps the serialized payload for every hop,
// innermost layer for the destination.
func sealPackage(pkg IncipientCoresPackage, cd cryptde.CryptDE) (LiveCoresPackage, error) {
	sealed, err := route.Seal(pkg.Route, cd)
	if err != nil {
		return LiveCoresPackage{}, err
	}
	plain, err := message.Encode(pkg.Payload)
	if err != nil {
		return LiveCoresPackage{}, err
	}

	hops := pkg.Route.Hops()
	layer := cryptde.PlainData(plain)
	var ct cryptde.CryptData
	for i := len(hops) - 1; i >= 0; i-- {
		key := hops[i].Key
		if i == len(hops)-1 {
			key = pkg.PayloadDestinationKey
		}
		ct, err = cd.Encode(key, layer)
		if err != nil {
			return LiveCoresPackage{}, oops.Wrapf(err, "wrapping payload for hop %d", i)
		}
		layer = cryptde.PlainData(ct)
	}
	return LiveCoresPackage{Route: sealed, Payload: ct}, nil
}

// peel removes this node's layer from both the route and the payload. At the final
// hop the returned Payload holds the serialized message in the clear.
func (p LiveCoresPackage) peel(cd cryptde.CryptDE) (route.LiveHop, LiveCoresPackage, error) {
	hop, rest, err := p.Route.Shift(cd)
	if err != nil {
		return route.LiveHop{}, LiveCoresPackage{}, classify(err, "route")
	}
	plain, err := cd.Decode(p.Payload)
	if err != nil {
		return route.LiveHop{}, LiveCoresPackage{}, classify(err, "payload")
	}
	return hop, LiveCoresPackage{Route: rest, Payload: cryptde.CryptData(plain)}, nil
}

// classify folds lower-level failures into the two inbound drop categories.
func classify(err error, what string) error {
	if errors.Is(err, cryptde.ErrDecryption) {
		return oops.Wrapf(ErrDecryption, "%s: %v", what, err)
	}
	return oops.Wrapf(ErrMalformedPackage, "%s: %v", what, err)
}

// ExpiredCoresPackage is a package that reached its final hop, as handed to the
// local component named by the route.
type ExpiredCoresPackage struct {
	ImmediateNeighbor netip.AddrPort
	Component         route.Component
	Payload           message.MessageType
	PayloadLen        int
}
