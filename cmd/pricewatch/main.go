package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

// Command line flags
var (
	configPath string
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "pricewatch",
		Short:         "Cryptocurrency price alerts over Telegram",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to a YAML configuration file")

	rootCmd.AddCommand(buildRunCmd(), buildPriceCmd(), buildVersionCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func buildRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Start the bot and the reconciliation engine",
		Args:  cobra.NoArgs,
		RunE:  runBot,
	}
}

func buildPriceCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "price <asset>",
		Short:   "Print the current price of an asset",
		Example: "pricewatch price bitcoin",
		Args:    cobra.ExactArgs(1),
		RunE:    runPrice,
	}
}

func buildVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Println(version)
		},
	}
}
