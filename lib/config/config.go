package config

import (
	"path/filepath"

	"github.com/go-i2p/go-hopper/lib/util"
	"github.com/go-i2p/logger"
	"github.com/samber/oops"
	"github.com/spf13/viper"
)

var (
	CfgFile string
	log     = logger.GetGoI2PLogger()
)

const GOHOPPER_BASE_DIR = ".go-hopper"

// InitConfig points viper at the config file, applies defaults and creates the
// default file if none exists yet.
func InitConfig() error {
	if CfgFile != "" {
		viper.SetConfigFile(CfgFile)
	} else {
		viper.AddConfigPath(BuildHopperDirPath())
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	setDefaults()

	return handleConfigFile()
}

func setDefaults() {
	d := Defaults()

	viper.SetDefault("hopper.per_routing_service", d.Hopper.PerRoutingService)
	viper.SetDefault("hopper.per_routing_byte", d.Hopper.PerRoutingByte)
	viper.SetDefault("hopper.bootstrap_node", d.Hopper.BootstrapNode)
	viper.SetDefault("hopper.mailbox_capacity", d.Hopper.MailboxCapacity)

	viper.SetDefault("keys.dir", d.Keys.Dir)
	viper.SetDefault("keys.name", d.Keys.Name)

	viper.SetDefault("admission.max_packages_per_minute", d.Admission.MaxPackagesPerMinute)
	viper.SetDefault("admission.burst_size", d.Admission.BurstSize)
	viper.SetDefault("admission.ban_duration", d.Admission.BanDuration)

	viper.SetDefault("metrics.address", d.Metrics.Address)
}

// Current reads the active viper settings.
func Current() ConfigDefaults {
	return ConfigDefaults{
		Hopper: HopperDefaults{
			PerRoutingService: viper.GetUint64("hopper.per_routing_service"),
			PerRoutingByte:    viper.GetUint64("hopper.per_routing_byte"),
			BootstrapNode:     viper.GetBool("hopper.bootstrap_node"),
			MailboxCapacity:   viper.GetInt("hopper.mailbox_capacity"),
		},
		Keys: KeysDefaults{
			Dir:  viper.GetString("keys.dir"),
			Name: viper.GetString("keys.name"),
		},
		Admission: AdmissionDefaults{
			MaxPackagesPerMinute: viper.GetInt("admission.max_packages_per_minute"),
			BurstSize:            viper.GetInt("admission.burst_size"),
			BanDuration:          viper.GetDuration("admission.ban_duration"),
		},
		Metrics: MetricsDefaults{
			Address: viper.GetString("metrics.address"),
		},
	}
}

func createDefaultConfig(defaultConfigDir string) error {
	defaultConfigFile := filepath.Join(defaultConfigDir, "config.yaml")
	if err := util.EnsureDir(defaultConfigDir, 0o755); err != nil {
		return oops.Wrapf(err, "could not create config directory %s", defaultConfigDir)
	}

	if err := viper.SafeWriteConfigAs(defaultConfigFile); err != nil {
		return oops.Wrapf(err, "could not write default config file %s", defaultConfigFile)
	}

	log.Debugf("Created default configuration at: %s", defaultConfigFile)
	return nil
}

func handleConfigFile() error {
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok && CfgFile == "" {
			return createDefaultConfig(BuildHopperDirPath())
		}
		return oops.Wrapf(err, "reading config file")
	}
	log.Debugf("Using config file: %s", viper.ConfigFileUsed())
	return nil
}

func BuildHopperDirPath() string {
	return filepath.Join(util.UserHome(), GOHOPPER_BASE_DIR)
}
