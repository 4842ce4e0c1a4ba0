package cryptde

import (
	"bytes"
	"crypto/sha256"

	"github.com/samber/oops"
)

// nullTagSize is the length of the integrity tag NullCryptDE appends.
const nullTagSize = 8

// NullCryptDE is a deterministic stand-in for a real CryptDE. It performs no
// secrecy at all: Encode prefixes the target key and appends a short digest, and
// Decode checks both. That is enough to make key mismatch and corruption fail the
// same way they would with real keys, while keeping ciphertexts predictable.
//
// Never use NullCryptDE outside of tests and simulations.
type NullCryptDE struct {
	public PublicKey
}

// NewNullCryptDE returns a NullCryptDE whose public key is key.
func NewNullCryptDE(key PublicKey) *NullCryptDE {
	return &NullCryptDE{public: append(PublicKey(nil), key...)}
}

// PublicKey returns the configured key.
func (n *NullCryptDE) PublicKey() PublicKey {
	return n.public
}

// Encode returns target || data || tag.
func (n *NullCryptDE) Encode(target PublicKey, data PlainData) (CryptData, error) {
	if len(target) == 0 {
		return nil, oops.Wrapf(ErrEncryption, "empty target key")
	}
	out := make([]byte, 0, len(target)+len(data)+nullTagSize)
	out = append(out, target...)
	out = append(out, data...)
	return append(out, nullTag(out)...), nil
}

// Decode strips the key prefix and tag, failing if either does not match.
func (n *NullCryptDE) Decode(data CryptData) (PlainData, error) {
	if len(data) < len(n.public)+nullTagSize {
		return nil, oops.Wrapf(ErrDecryption, "ciphertext too short: %d bytes", len(data))
	}
	body := data[:len(data)-nullTagSize]
	if !bytes.Equal(nullTag(body), data[len(body):]) {
		return nil, oops.Wrapf(ErrDecryption, "integrity tag mismatch")
	}
	if !bytes.HasPrefix(body, n.public) {
		return nil, oops.Wrapf(ErrDecryption, "ciphertext is not addressed to this key")
	}
	return append(PlainData(nil), body[len(n.public):]...), nil
}

func nullTag(b []byte) []byte {
	sum := sha256.Sum256(b)
	return sum[:nullTagSize]
}
