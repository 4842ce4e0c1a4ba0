// Package keys persists a node's X25519 keypair.
//
// The key file is YAML:
//
//	version: 1
//	type: x25519
//	public_key: <base64>
//	private_key: <base64>
//
// On load the public key is rederived from the private key and must match the
// stored one, so that a truncated or hand-edited file is never silently used
// under a different identity. Files are written 0600 inside a 0700 directory.
package keys

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/go-i2p/common/base64"
	"github.com/go-i2p/go-hopper/lib/cryptde"
	"github.com/go-i2p/go-hopper/lib/util"
	"github.com/go-i2p/logger"
	"github.com/samber/oops"
	"gopkg.in/yaml.v3"
)

var log = logger.GetGoI2PLogger()

const (
	keyFileVersion = 1
	keyTypeX25519  = "x25519"
	keyFileSuffix  = ".key.yaml"
)

var (
	// ErrKeyNotFound is returned by Load when no key file exists.
	ErrKeyNotFound = errors.New("keys: key file not found")

	// ErrKeyMismatch is returned when the stored public key does not belong to
	// the stored private key.
	ErrKeyMismatch = errors.New("keys: public key does not match private key")
)

// KeyStore stores and retrieves one node identity.
type KeyStore interface {
	KeyID() string
	CryptDE() *cryptde.X25519CryptDE
	StoreKeys() error
}

type keyFile struct {
	Version    int    `yaml:"version"`
	Type       string `yaml:"type"`
	PublicKey  string `yaml:"public_key"`
	PrivateKey string `yaml:"private_key"`
}

// NodeKeystore keeps the node keypair at dir/name.key.yaml.
type NodeKeystore struct {
	dir  string
	name string
	cd   *cryptde.X25519CryptDE
}

var _ KeyStore = (*NodeKeystore)(nil)

// NewNodeKeystore wraps an existing CryptDE without touching disk.
func NewNodeKeystore(dir, name string, cd *cryptde.X25519CryptDE) *NodeKeystore {
	return &NodeKeystore{dir: dir, name: name, cd: cd}
}

// LoadOrCreate loads the key file, generating and storing a new keypair if it
// does not exist yet.
func LoadOrCreate(dir, name string) (*NodeKeystore, error) {
	ks, err := Load(dir, name)
	if err == nil {
		return ks, nil
	}
	if !errors.Is(err, ErrKeyNotFound) {
		return nil, err
	}

	cd, err := cryptde.GenerateX25519CryptDE()
	if err != nil {
		return nil, oops.Wrapf(err, "generating node key")
	}
	ks = NewNodeKeystore(dir, name, cd)
	if err := ks.StoreKeys(); err != nil {
		return nil, err
	}
	log.WithFields(logger.Fields{
		"at":         "LoadOrCreate",
		"path":       ks.Path(),
		"public_key": cd.PublicKey().Short(),
	}).Info("generated new node key")
	return ks, nil
}

// Load reads dir/name.key.yaml.
func Load(dir, name string) (*NodeKeystore, error) {
	path := keyPath(dir, name)
	if !util.CheckFileExists(path) {
		return nil, oops.Wrapf(ErrKeyNotFound, "%s", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, oops.Wrapf(err, "reading key file %s", path)
	}

	var kf keyFile
	if err := yaml.Unmarshal(data, &kf); err != nil {
		return nil, oops.Wrapf(err, "parsing key file %s", path)
	}
	if kf.Version != keyFileVersion {
		return nil, oops.Errorf("keys: unsupported key file version %d", kf.Version)
	}
	if kf.Type != keyTypeX25519 {
		return nil, oops.Errorf("keys: unsupported key type %q", kf.Type)
	}

	priv, err := base64.DecodeString(kf.PrivateKey)
	if err != nil {
		return nil, oops.Wrapf(err, "decoding private key")
	}
	pub, err := base64.DecodeString(kf.PublicKey)
	if err != nil {
		return nil, oops.Wrapf(err, "decoding public key")
	}
	cd, err := cryptde.NewX25519CryptDE(cryptde.PrivateKey(priv))
	if err != nil {
		return nil, oops.Wrapf(err, "loading private key")
	}
	if !cd.PublicKey().Equal(cryptde.PublicKey(pub)) {
		return nil, oops.Wrapf(ErrKeyMismatch, "%s", path)
	}

	log.WithFields(logger.Fields{
		"at":         "Load",
		"path":       path,
		"public_key": cd.PublicKey().Short(),
	}).Debug("loaded node key")
	return NewNodeKeystore(dir, name, cd), nil
}

// StoreKeys writes the key file, creating the directory if needed.
func (ks *NodeKeystore) StoreKeys() error {
	if err := util.EnsureDir(ks.dir, 0o700); err != nil {
		return oops.Wrapf(err, "preparing key directory")
	}
	data, err := yaml.Marshal(keyFile{
		Version:    keyFileVersion,
		Type:       keyTypeX25519,
		PublicKey:  base64.EncodeToString(ks.cd.PublicKey().Bytes()),
		PrivateKey: base64.EncodeToString(ks.cd.PrivateKey().Bytes()),
	})
	if err != nil {
		return oops.Wrapf(err, "encoding key file")
	}
	if err := os.WriteFile(ks.Path(), data, 0o600); err != nil {
		log.WithError(err).Error("Failed to write node key file")
		return oops.Wrapf(err, "writing key file %s", ks.Path())
	}
	return nil
}

// KeyID returns the configured name, or the base32 prefix of the public key.
func (ks *NodeKeystore) KeyID() string {
	if ks.name != "" {
		return ks.name
	}
	return ks.cd.PublicKey().Short()
}

// CryptDE returns the loaded keypair.
func (ks *NodeKeystore) CryptDE() *cryptde.X25519CryptDE {
	return ks.cd
}

// Path returns the key file location.
func (ks *NodeKeystore) Path() string {
	return keyPath(ks.dir, ks.name)
}

func keyPath(dir, name string) string {
	return filepath.Join(dir, name+keyFileSuffix)
}
