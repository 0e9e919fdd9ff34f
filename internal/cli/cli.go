package cli

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/tcfw/cognitechain/internal/config"
)

var (
	rootCmd = &cobra.Command{
		Use:          "cognitechain",
		Short:        "reward ledger for the cognitechain game",
		SilenceUsage: true,
	}
)

func Execute() error {
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "increase verbosity")
	viper.BindPFlag(config.Cfg_verbose, rootCmd.PersistentFlags().Lookup("verbose"))

	regCommands()

	return rootCmd.Execute()
}
