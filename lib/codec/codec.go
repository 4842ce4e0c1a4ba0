// Package codec holds the single CBOR grammar every node uses on the wire.
//
// Encoding uses the core deterministic profile (RFC 8949 section 4.2.1): the same
// value always produces the same bytes. Re-encoding a decoded value reproduces the
// input only when the input was itself canonically encoded.
// Decoding is strict: duplicate map keys, unknown fields and trailing bytes are
// rejected. Array and map sizes and nesting depth are bounded; byte string length
// is bounded only by the input length.
package codec

import (
	"github.com/fxamacker/cbor/v2"
	"github.com/samber/oops"
)

// MaxItemLength bounds the element count of arrays and the pair count of maps
// accepted from the wire.
const MaxItemLength = 1 << 20

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic(oops.Wrapf(err, "codec: building CBOR encode mode"))
	}
	decMode, err = cbor.DecOptions{
		DupMapKey:         cbor.DupMapKeyEnforcedAPF,
		ExtraReturnErrors: cbor.ExtraDecErrorUnknownField,
		MaxArrayElements:  MaxItemLength,
		MaxMapPairs:       MaxItemLength,
		MaxNestedLevels:   32,
	}.DecMode()
	if err != nil {
		panic(oops.Wrapf(err, "codec: building CBOR decode mode"))
	}
}

// Marshal encodes v deterministically.
func Marshal(v interface{}) ([]byte, error) {
	b, err := encMode.Marshal(v)
	if err != nil {
		return nil, oops.Wrapf(err, "cbor encode")
	}
	return b, nil
}

// Unmarshal decodes exactly one CBOR item from data into v. Trailing bytes are an error.
func Unmarshal(data []byte, v interface{}) error {
	if err := decMode.Unmarshal(data, v); err != nil {
		return oops.Wrapf(err, "cbor decode")
	}
	return nil
}

// RawMessage is an undecoded CBOR item, used for the bodies of tagged unions.
type RawMessage = cbor.RawMessage
