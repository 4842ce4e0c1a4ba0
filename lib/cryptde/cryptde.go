package cryptde

import (
	"bytes"
	"errors"

	"github.com/go-i2p/common/base32"
	"github.com/go-i2p/logger"
)

var log = logger.GetGoI2PLogger()

var (
	// ErrEncryption is returned when a plaintext cannot be encrypted for a target key,
	// typically because the key is malformed.
	ErrEncryption = errors.New("cryptde: encryption failed")

	// ErrDecryption is returned when a ciphertext is not addressed to this node's key
	// or has been corrupted in transit.
	ErrDecryption = errors.New("cryptde: decryption failed")
)

// PublicKey is the exchangeable half of a node's keypair. Routes embed it to
// identify hops.
type PublicKey []byte

// Bytes returns the raw key bytes.
func (k PublicKey) Bytes() []byte {
	return []byte(k)
}

// Len returns the key length in bytes.
func (k PublicKey) Len() int {
	return len(k)
}

// Equal reports whether both keys hold the same bytes.
func (k PublicKey) Equal(other PublicKey) bool {
	return bytes.Equal(k, other)
}

// String renders the key as base32, the same way router identities are printed.
func (k PublicKey) String() string {
	return base32.EncodeToString(k)
}

// Short returns a truncated rendering suitable for log fields.
func (k PublicKey) Short() string {
	s := k.String()
	if len(s) > 16 {
		return s[:16]
	}
	return s
}

// PrivateKey never leaves the node that owns it.
type PrivateKey []byte

// Bytes returns the raw key bytes.
func (k PrivateKey) Bytes() []byte {
	return []byte(k)
}

// Zero clears the key material in place.
func (k PrivateKey) Zero() {
	for i := range k {
		k[i] = 0
	}
}

// PlainData is a decrypted payload or segment.
type PlainData []byte

// CryptData is an encrypted payload or segment.
type CryptData []byte

// Len returns the ciphertext length in bytes.
func (c CryptData) Len() int {
	return len(c)
}

// CryptDE is the asymmetric encode/decode capability injected into the routing layer.
// Decode is implicitly keyed to this node's own private key.
type CryptDE interface {
	// Encode encrypts data so that only the holder of the private key matching
	// target can decode it.
	Encode(target PublicKey, data PlainData) (CryptData, error)
	// Decode decrypts data addressed to this node.
	Decode(data CryptData) (PlainData, error)
	// PublicKey returns this node's public key.
	PublicKey() PublicKey
}
