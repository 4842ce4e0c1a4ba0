package hopper

import "errors"

var (
	// ErrRouteEncryption is returned when an outbound package cannot be sealed,
	// usually because a hop key is malformed.
	ErrRouteEncryption = errors.New("hopper: route encryption failed")

	// ErrDecryption marks an inbound package whose layer is not addressed to this
	// node or whose ciphertext is corrupt.
	ErrDecryption = errors.New("hopper: layer decryption failed")

	// ErrMalformedPackage marks an inbound package that cannot be parsed, or whose
	// final layer does not hold a valid payload.
	ErrMalformedPackage = errors.New("hopper: malformed package")

	// ErrBootstrapRefused marks a package a bootstrap node will not relay or deliver.
	ErrBootstrapRefused = errors.New("hopper: bootstrap node refuses package")

	// ErrNoRecipient marks a package addressed to a component with no bound recipient.
	ErrNoRecipient = errors.New("hopper: no recipient for component")
)

// dropReason maps an inbound failure to a short label for logs and metrics.
func dropReason(err error) string {
	switch {
	case errors.Is(err, ErrDecryption):
		return "decryption"
	case errors.Is(err, ErrMalformedPackage):
		return "malformed"
	case errors.Is(err, ErrBootstrapRefused):
		return "bootstrap_refused"
	case errors.Is(err, ErrNoRecipient):
		return "no_recipient"
	default:
		return "transport"
	}
}
