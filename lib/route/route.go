package route

import (
	"errors"

	"github.com/go-i2p/go-hopper/lib/cryptde"
	"github.com/go-i2p/logger"
	"github.com/samber/oops"
)

var log = logger.GetGoI2PLogger()

var (
	// ErrEmptySegment is returned when a segment or route would have no hops.
	ErrEmptySegment = errors.New("route: segment has no hops")

	// ErrInvalidComponent is returned when a segment terminates at an unknown component.
	ErrInvalidComponent = errors.New("route: invalid terminal component")

	// ErrSegmentMismatch is returned when a round trip's return segment does not
	// start where the outbound segment ends.
	ErrSegmentMismatch = errors.New("route: return segment does not start at outbound exit")

	// ErrDestinationMismatch is returned when a payload destination key is not the
	// key of the route's final hop.
	ErrDestinationMismatch = errors.New("route: payload destination is not the final hop")
)

// RouteSegment is an ordered list of hop keys ending at a local component.
type RouteSegment struct {
	Keys      []cryptde.PublicKey
	Recipient Component
}

// NewRouteSegment validates and copies keys into a segment.
func NewRouteSegment(keys []cryptde.PublicKey, recipient Component) (RouteSegment, error) {
	if len(keys) == 0 {
		return RouteSegment{}, ErrEmptySegment
	}
	if !recipient.Valid() {
		return RouteSegment{}, oops.Wrapf(ErrInvalidComponent, "component %d", uint8(recipient))
	}
	for i, k := range keys {
		if k.Len() == 0 {
			return RouteSegment{}, oops.Errorf("route: hop %d has an empty key", i)
		}
	}
	copied := make([]cryptde.PublicKey, len(keys))
	copy(copied, keys)
	return RouteSegment{Keys: copied, Recipient: recipient}, nil
}

// Hop is one plaintext step of a route.
type Hop struct {
	Key cryptde.PublicKey
}

// Route is a fully specified, non-empty list of hops terminating at a component.
// It is built by the component that originates a message, handed to the hopper once
// and never mutated.
type Route struct {
	hops      []Hop
	component Component
}

// OneWay builds a route that follows a single segment.
func OneWay(segment RouteSegment) (Route, error) {
	if len(segment.Keys) == 0 {
		return Route{}, ErrEmptySegment
	}
	if !segment.Recipient.Valid() {
		return Route{}, oops.Wrapf(ErrInvalidComponent, "component %d", uint8(segment.Recipient))
	}
	hops := make([]Hop, len(segment.Keys))
	for i, k := range segment.Keys {
		hops[i] = Hop{Key: k}
	}
	return Route{hops: hops, component: segment.Recipient}, nil
}

// RoundTrip joins an outbound segment and a return segment. The return segment must
// begin at the outbound segment's last key; that turnaround hop appears once. The
// joined route terminates at the return segment's component. The outbound
// component is not carried in the route, but it must still be valid.
func RoundTrip(over, back RouteSegment) (Route, error) {
	if len(over.Keys) == 0 || len(back.Keys) == 0 {
		return Route{}, ErrEmptySegment
	}
	if !over.Recipient.Valid() {
		return Route{}, oops.Wrapf(ErrInvalidComponent, "outbound component %d", uint8(over.Recipient))
	}
	if !over.Keys[len(over.Keys)-1].Equal(back.Keys[0]) {
		return Route{}, ErrSegmentMismatch
	}
	keys := make([]cryptde.PublicKey, 0, len(over.Keys)+len(back.Keys)-1)
	keys = append(keys, over.Keys...)
	keys = append(keys, back.Keys[1:]...)

	r, err := OneWay(RouteSegment{Keys: keys, Recipient: back.Recipient})
	if err != nil {
		return Route{}, err
	}
	log.WithFields(logger.Fields{
		"at":       "RoundTrip",
		"over":     len(over.Keys),
		"back":     len(back.Keys),
		"hops":     r.Len(),
		"terminal": r.component,
	}).Debug("built round trip route")
	return r, nil
}

// Len returns the number of hops.
func (r Route) Len() int {
	return len(r.hops)
}

// Hops returns a copy of the hop list.
func (r Route) Hops() []Hop {
	out := make([]Hop, len(r.hops))
	copy(out, r.hops)
	return out
}

// FirstKey returns the key of the hop the package is sent to first.
func (r Route) FirstKey() cryptde.PublicKey {
	if len(r.hops) == 0 {
		return nil
	}
	return r.hops[0].Key
}

// LastKey returns the key of the final hop.
func (r Route) LastKey() cryptde.PublicKey {
	if len(r.hops) == 0 {
		return nil
	}
	return r.hops[len(r.hops)-1].Key
}

// Component returns the terminal component.
func (r Route) Component() Component {
	return r.component
}

// CheckDestination verifies that key is the final hop's key.
func (r Route) CheckDestination(key cryptde.PublicKey) error {
	if len(r.hops) == 0 {
		return ErrEmptySegment
	}
	if !r.LastKey().Equal(key) {
		return ErrDestinationMismatch
	}
	return nil
}
