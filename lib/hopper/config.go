package hopper

import (
	"github.com/go-i2p/go-hopper/lib/cryptde"
	"github.com/go-i2p/go-hopper/lib/mailbox"
	"github.com/samber/oops"
)

// HopperConfig holds the per-node settings a Hopper is created with.
type HopperConfig struct {
	CryptDE cryptde.CryptDE

	// IsBootstrapNode makes the node refuse to relay. It only accepts packages
	// addressed to its Neighborhood.
	IsBootstrapNode bool

	// PerRoutingService is the flat fee charged for each relayed package.
	PerRoutingService uint64
	// PerRoutingByte is charged per byte of forwarded payload ciphertext.
	PerRoutingByte uint64

	// MailboxCapacity bounds the hopper inbox. Zero uses mailbox.DefaultCapacity.
	MailboxCapacity int
}

// Validate checks that the configuration can build a Hopper.
func (c HopperConfig) Validate() error {
	if c.CryptDE == nil {
		return oops.Errorf("hopper: config has no CryptDE")
	}
	if c.CryptDE.PublicKey().Len() == 0 {
		return oops.Errorf("hopper: CryptDE has an empty public key")
	}
	if c.MailboxCapacity < 0 {
		return oops.Errorf("hopper: negative mailbox capacity %d", c.MailboxCapacity)
	}
	return nil
}

func (c HopperConfig) capacity() int {
	if c.MailboxCapacity == 0 {
		return mailbox.DefaultCapacity
	}
	return c.MailboxCapacity
}
