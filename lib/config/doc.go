// Package config provides configuration management for a go-hopper node.
//
// Settings are read through viper from $HOME/.go-hopper/config.yaml, which is
// created with defaults on first start. A different file can be named with
// the --config flag, in which case it must exist.
//
// Defaults returns the typed defaults; Current returns a snapshot of the active
// viper settings in the same shape. Components take the typed sections
// (HopperDefaults, KeysDefaults, AdmissionDefaults, MetricsDefaults) rather than
// reading viper themselves.
package config
