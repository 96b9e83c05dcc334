package main

import (
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	apiURL    string
	authToken string
)

var rootCmd = &cobra.Command{
	Use:   "rangoctl",
	Short: "Operations CLI for the router middleware",
	Long: `rangoctl manages the router middleware: whitelist administration
against a running settler, and local settlement scenario runs.

Examples:
  rangoctl whitelist list
  rangoctl whitelist add 0x7a25...488D --note "uniswap v2 router"
  rangoctl whitelist remove 0x7a25...488D
  rangoctl settle scenario.yaml`,
	Version: "0.1.0",
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url",
		envOr("RANGOCTL_API_URL", "http://localhost:8080"), "Settler API base URL")
	rootCmd.PersistentFlags().StringVar(&authToken, "token",
		os.Getenv("RANGOCTL_TOKEN"), "Bearer token for admin endpoints")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func printError(err error) {
	color.Red("\nError: %v\n", err)
}

func printSuccess(message string) {
	color.Green("\n%s\n", message)
}

func fatal(err error) {
	printError(err)
	os.Exit(1)
}
