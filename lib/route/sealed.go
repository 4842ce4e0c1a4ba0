package route

import (
	"errors"

	"github.com/go-i2p/go-hopper/lib/codec"
	"github.com/go-i2p/go-hopper/lib/cryptde"
	"github.com/go-i2p/logger"
	"github.com/samber/oops"
)

// ErrMalformedHop is returned when a decrypted hop record is structurally invalid.
var ErrMalformedHop = errors.New("route: malformed hop record")

// LiveHop is the plaintext a hop recovers from its own layer of a sealed route.
// Intermediate hops learn only Next; the final hop learns only Component.
type LiveHop struct {
	Next      cryptde.PublicKey `cbor:"1,keyasint,omitempty"`
	Component Component         `cbor:"2,keyasint,omitempty"`
}

// IsFinal reports whether this hop terminates the route.
func (h LiveHop) IsFinal() bool {
	return h.Next.Len() == 0
}

func (h LiveHop) validate() error {
	switch {
	case h.IsFinal() && !h.Component.Valid():
		return oops.Wrapf(ErrMalformedHop, "final hop without a valid component")
	case !h.IsFinal() && h.Component != ComponentUnknown:
		return oops.Wrapf(ErrMalformedHop, "intermediate hop reveals a component")
	}
	return nil
}

// Sealed is the wire form of a route: one record per remaining hop, each encrypted
// to that hop's public key. The first record belongs to the node currently holding
// the package.
type Sealed struct {
	Hops []cryptde.CryptData `cbor:"1,keyasint"`
}

// Len returns the number of remaining hops.
func (s Sealed) Len() int {
	return len(s.Hops)
}

// Seal encrypts every hop record of r with cd. Records are produced from the final
// hop backwards.
func Seal(r Route, cd cryptde.CryptDE) (Sealed, error) {
	if r.Len() == 0 {
		return Sealed{}, ErrEmptySegment
	}

	records := make([]cryptde.CryptData, r.Len())
	for i := r.Len() - 1; i >= 0; i-- {
		hop := r.hops[i]
		live := LiveHop{Component: r.component}
		if i < r.Len()-1 {
			live = LiveHop{Next: r.hops[i+1].Key}
		}

		plain, err := codec.Marshal(live)
		if err != nil {
			return Sealed{}, oops.Wrapf(err, "encoding hop %d", i)
		}
		ct, err := cd.Encode(hop.Key, plain)
		if err != nil {
			log.WithError(err).WithFields(logger.Fields{
				"at":     "Seal",
				"hop":    i,
				"reason": "hop encryption failed",
			}).Debug("cannot seal route")
			return Sealed{}, oops.Wrapf(err, "sealing hop %d", i)
		}
		records[i] = ct
	}
	return Sealed{Hops: records}, nil
}

// Shift decrypts the first record with this node's key and returns it together
// with the remaining, still sealed, route.
//
// Decryption failures wrap cryptde.ErrDecryption; structural problems wrap
// ErrMalformedHop. A final hop that still has records after it, or an intermediate
// hop with nothing after it, is structural.
func (s Sealed) Shift(cd cryptde.CryptDE) (LiveHop, Sealed, error) {
	if len(s.Hops) == 0 {
		return LiveHop{}, Sealed{}, oops.Wrapf(ErrMalformedHop, "no hop records left")
	}

	plain, err := cd.Decode(s.Hops[0])
	if err != nil {
		return LiveHop{}, Sealed{}, err
	}

	var live LiveHop
	if err := codec.Unmarshal(plain, &live); err != nil {
		return LiveHop{}, Sealed{}, oops.Wrapf(ErrMalformedHop, "decoding hop record: %v", err)
	}
	if err := live.validate(); err != nil {
		return LiveHop{}, Sealed{}, err
	}

	rest := Sealed{Hops: s.Hops[1:]}
	if live.IsFinal() != (rest.Len() == 0) {
		return LiveHop{}, Sealed{}, oops.Wrapf(ErrMalformedHop,
			"hop final=%t but %d records remain", live.IsFinal(), rest.Len())
	}
	return live, rest, nil
}
