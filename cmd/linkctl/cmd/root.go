package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var serverEndpoint string

var rootCmd = &cobra.Command{
	Use:   "linkctl",
	Short: "linkctl is a CLI tool to drive the gamelink pairing handshake",
	Long: `A command-line interface for the gamelink cross-device authentication
service. It can simulate a device starting a pairing handshake and polling for
its session, and complete the browser side with an email login.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverEndpoint, "server", "http://localhost:8080",
		"gamelink server endpoint")
}
