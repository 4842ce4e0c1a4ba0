package config

import (
	"path/filepath"
	"time"
)

// ConfigDefaults contains all default configuration values for a node.
type ConfigDefaults struct {
	Hopper    HopperDefaults
	Keys      KeysDefaults
	Admission AdmissionDefaults
	Metrics   MetricsDefaults
}

// HopperDefaults configures routing fees and the hopper inbox.
type HopperDefaults struct {
	// PerRoutingService is the flat fee charged per relayed package
	// Default: 100
	PerRoutingService uint64

	// PerRoutingByte is the fee per forwarded payload byte
	// Default: 1
	PerRoutingByte uint64

	// BootstrapNode makes the node refuse to relay
	// Default: false
	BootstrapNode bool

	// MailboxCapacity bounds every unit's inbox
	// Default: 1024
	MailboxCapacity int
}

// KeysDefaults locates the node key file.
type KeysDefaults struct {
	// Dir holds key files
	// Default: $HOME/.go-hopper/keys
	Dir string

	// Name is the key file base name
	// Default: node
	Name string
}

// AdmissionDefaults configures the per-peer inbound limiter.
type AdmissionDefaults struct {
	// MaxPackagesPerMinute is the sustained rate allowed per peer address
	// Default: 6000
	MaxPackagesPerMinute int

	// BurstSize is how many packages a peer may send at once
	// Default: 200
	BurstSize int

	// BanDuration is how long a peer is refused after repeated violations
	// Default: 5 minutes
	BanDuration time.Duration
}

// MetricsDefaults configures the Prometheus endpoint.
type MetricsDefaults struct {
	// Address to serve /metrics on; empty disables it
	// Default: ""
	Address string
}

// Defaults returns a ConfigDefaults instance with all default values set.
func Defaults() ConfigDefaults {
	return ConfigDefaults{
		Hopper: HopperDefaults{
			PerRoutingService: 100,
			PerRoutingByte:    1,
			BootstrapNode:     false,
			MailboxCapacity:   1024,
		},
		Keys: KeysDefaults{
			Dir:  filepath.Join(BuildHopperDirPath(), "keys"),
			Name: "node",
		},
		Admission: AdmissionDefaults{
			MaxPackagesPerMinute: 6000,
			BurstSize:            200,
			BanDuration:          5 * time.Minute,
		},
		Metrics: MetricsDefaults{},
	}
}

// Validate checks cfg for values no component can run with.
func Validate(cfg ConfigDefaults) error {
	switch {
	case cfg.Hopper.MailboxCapacity <= 0:
		return newValidationError("hopper.mailbox_capacity must be positive")
	case cfg.Keys.Name == "":
		return newValidationError("keys.name must not be empty")
	case cfg.Keys.Dir == "":
		return newValidationError("keys.dir must not be empty")
	case cfg.Admission.MaxPackagesPerMinute <= 0:
		return newValidationError("admission.max_packages_per_minute must be positive")
	case cfg.Admission.BurstSize <= 0:
		return newValidationError("admission.burst_size must be positive")
	case cfg.Admission.BanDuration < 0:
		return newValidationError("admission.ban_duration must not be negative")
	}
	return nil
}

type validationError struct {
	message string
}

func newValidationError(message string) error {
	return &validationError{message: message}
}

func (e *validationError) Error() string {
	return "configuration validation failed: " + e.message
}
