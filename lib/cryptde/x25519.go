package cryptde

import (
	"crypto/cipher"
	"crypto/sha256"
	"io"

	"github.com/go-i2p/crypto/rand"
	"github.com/go-i2p/logger"
	"github.com/samber/oops"
	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/curve25519"
	"golang.org/x/crypto/hkdf"
)

const (
	// X25519KeySize is the size of both halves of an X25519 keypair.
	X25519KeySize = curve25519.ScalarSize

	// X25519Overhead is the number of bytes Encode adds to a plaintext:
	// ephemeral public key, nonce and Poly1305 tag.
	X25519Overhead = X25519KeySize + chacha20poly1305.NonceSize + chacha20poly1305.Overhead

	hkdfInfo = "go-hopper-cryptde-v1"
)

// X25519CryptDE encrypts each plaintext to a recipient key with a fresh ephemeral
// X25519 key, HKDF-SHA256 and ChaCha20-Poly1305.
//
// Output format: ephemeral_pub(32) || nonce(12) || ciphertext || tag(16)
//
// The derived key is bound to both the ephemeral and the recipient public key, so a
// ciphertext addressed to another node never authenticates here.
type X25519CryptDE struct {
	private PrivateKey
	public  PublicKey
}

// GenerateX25519CryptDE creates a CryptDE around a freshly generated keypair.
func GenerateX25519CryptDE() (*X25519CryptDE, error) {
	priv := make([]byte, X25519KeySize)
	if _, err := rand.Read(priv); err != nil {
		return nil, oops.Wrapf(err, "failed to generate X25519 private key")
	}
	return NewX25519CryptDE(priv)
}

// NewX25519CryptDE creates a CryptDE from an existing private key.
func NewX25519CryptDE(priv PrivateKey) (*X25519CryptDE, error) {
	if len(priv) != X25519KeySize {
		return nil, oops.Errorf("invalid X25519 private key length: %d", len(priv))
	}
	priv = append(PrivateKey(nil), priv...)
	clamp(priv)
	pub, err := curve25519.X25519(priv, curve25519.Basepoint)
	if err != nil {
		return nil, oops.Wrapf(err, "failed to derive X25519 public key")
	}

	c := &X25519CryptDE{
		private: priv,
		public:  PublicKey(pub),
	}
	log.WithFields(logger.Fields{
		"at":         "NewX25519CryptDE",
		"public_key": c.public.Short(),
	}).Debug("created X25519 cryptde")
	return c, nil
}

// PublicKey returns this node's public key.
func (c *X25519CryptDE) PublicKey() PublicKey {
	return c.public
}

// PrivateKey returns a copy of this node's private key for persistence.
func (c *X25519CryptDE) PrivateKey() PrivateKey {
	return append(PrivateKey(nil), c.private...)
}

// Encode encrypts data for target.
func (c *X25519CryptDE) Encode(target PublicKey, data PlainData) (CryptData, error) {
	if len(target) != X25519KeySize {
		return nil, oops.Wrapf(ErrEncryption, "invalid target key length %d", len(target))
	}

	ephPriv := make([]byte, X25519KeySize)
	if _, err := rand.Read(ephPriv); err != nil {
		return nil, oops.Wrapf(ErrEncryption, "ephemeral key generation: %v", err)
	}
	clamp(ephPriv)
	ephPub, err := curve25519.X25519(ephPriv, curve25519.Basepoint)
	if err != nil {
		return nil, oops.Wrapf(ErrEncryption, "ephemeral public key: %v", err)
	}
	shared, err := curve25519.X25519(ephPriv, target)
	if err != nil {
		// low-order points end up here
		return nil, oops.Wrapf(ErrEncryption, "key agreement: %v", err)
	}

	aead, err := newAEAD(shared, ephPub, target)
	if err != nil {
		return nil, oops.Wrapf(ErrEncryption, "aead setup: %v", err)
	}

	out := make([]byte, X25519KeySize+chacha20poly1305.NonceSize, X25519Overhead+len(data))
	copy(out, ephPub)
	nonce := out[X25519KeySize:]
	if _, err := rand.Read(nonce); err != nil {
		return nil, oops.Wrapf(ErrEncryption, "nonce generation: %v", err)
	}
	return aead.Seal(out, nonce, data, nil), nil
}

// Decode decrypts data addressed to this node.
func (c *X25519CryptDE) Decode(data CryptData) (PlainData, error) {
	if len(data) < X25519Overhead {
		return nil, oops.Wrapf(ErrDecryption, "ciphertext too short: %d bytes", len(data))
	}
	ephPub := data[:X25519KeySize]
	nonce := data[X25519KeySize : X25519KeySize+chacha20poly1305.NonceSize]
	sealed := data[X25519KeySize+chacha20poly1305.NonceSize:]

	shared, err := curve25519.X25519(c.private, ephPub)
	if err != nil {
		return nil, oops.Wrapf(ErrDecryption, "key agreement: %v", err)
	}
	aead, err := newAEAD(shared, ephPub, c.public)
	if err != nil {
		return nil, oops.Wrapf(ErrDecryption, "aead setup: %v", err)
	}
	plain, err := aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, oops.Wrapf(ErrDecryption, "authentication failed")
	}
	return PlainData(plain), nil
}

func newAEAD(shared, ephPub, recipient []byte) (cipher.AEAD, error) {
	salt := sha256.New()
	salt.Write(ephPub)
	salt.Write(recipient)

	key := make([]byte, chacha20poly1305.KeySize)
	r := hkdf.New(sha256.New, shared, salt.Sum(nil), []byte(hkdfInfo))
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, err
	}
	return chacha20poly1305.New(key)
}

func clamp(k []byte) {
	k[0] &= 248
	k[31] &= 127
	k[31] |= 64
}
