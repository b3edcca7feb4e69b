/*
Copyright © 2026 tfitzpatrick0
*/
package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "openclaw-droplet",
	Short: "On-demand DigitalOcean droplet provisioning service",
	Long: `openclaw-droplet provisions a DigitalOcean droplet on demand and
tracks it until it is active with a public address. It exposes a small
HTTP API (serve) plus client commands to create a droplet and check on
its convergence.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}
