// Package cmd implements the CLI commands for flipradar.
package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "flipradar",
	Short: "Spot resale arbitrage on Swiss marketplaces",
	Long: "flipradar scans marketplace listings, works out what each listing " +
		"actually sells (single item, quantity bundle, unresolvable lot), prices " +
		"the components against comparable offers and an LLM price oracle, and " +
		"alerts on listings worth flipping.",
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "config.yaml", "config file path")

	viper.SetEnvPrefix("FLIPRADAR")
	viper.AutomaticEnv()
	cobra.CheckErr(viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config")))

	rootCmd.AddCommand(versionCommand())
}

// configPath resolves the config file path from the flag or the
// FLIPRADAR_CONFIG environment variable.
func configPath() string {
	if p := viper.GetString("config"); p != "" {
		return p
	}
	return cfgFile
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
