package main

import (
	"fmt"

	"github.com/go-i2p/go-hopper/lib/config"
	"github.com/go-i2p/go-hopper/lib/keys"
	"github.com/spf13/cobra"
)

func newKeygenCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "keygen",
		Short: "Create or load the node key and print its public key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Current().Keys
			ks, err := keys.LoadOrCreate(cfg.Dir, cfg.Name)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\n%s\n", ks.CryptDE().PublicKey(), ks.Path())
			return nil
		},
	}
}
