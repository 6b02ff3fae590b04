package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/JDK-tech/twilio-web-dialer/config"
)

var configPath string

func main() {
	rootCmd := &cobra.Command{
		Use:   "dialer",
		Short: "Browser softphone dialer with a sequential agent ring group",
		Long: `dialer answers Twilio voice webhooks, rings a roster of agents and
escalates calls nobody picks up to the backup agent.`,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", os.Getenv("DIALER_CONFIG"), "path to YAML config file")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(rosterCmd())
	rootCmd.AddCommand(tokenCmd())
	rootCmd.AddCommand(operatorTokenCmd())
	rootCmd.AddCommand(simulateCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	return config.Load(configPath)
}
