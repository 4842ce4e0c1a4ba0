package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-i2p/go-hopper/lib/config"
	"github.com/go-i2p/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var log = logger.GetGoI2PLogger()

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "go-hopper",
		Short: "Onion routing hopper node",
		Long: `go-hopper moves cores packages through a relay network. Each package
carries its whole route sealed inside it; every relay strips one layer with its
own key and forwards the rest, billing a relay fee to its accountant.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := config.InitConfig(); err != nil {
				return err
			}
			return config.Validate(config.Current())
		},
	}
	cmd.PersistentFlags().StringVar(&config.CfgFile, "config", "", "config file (default $HOME/.go-hopper/config.yaml)")
	cmd.PersistentFlags().String("metrics", "", "address to serve Prometheus metrics on")
	if err := viper.BindPFlag("metrics.address", cmd.PersistentFlags().Lookup("metrics")); err != nil {
		log.WithError(err).Warn("cannot bind --metrics flag")
	}

	cmd.AddCommand(newKeygenCommand(), newSimulateCommand())
	return cmd
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}
