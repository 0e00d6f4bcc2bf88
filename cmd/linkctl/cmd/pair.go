package cmd

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"go.pilab.hu/gamelink/api"
	"go.pilab.hu/gamelink/cmd/linkctl/client"
)

var (
	pairDeviceID     string
	pairPollInterval time.Duration
)

var pairCmd = &cobra.Command{
	Use:   "pair",
	Short: "Simulate a device: start a handshake and poll until it completes",
	Long: `Starts a pairing handshake as a device would, prints the login URL for
the user to open in a browser, and polls the finalize endpoint until the
handshake completes or the pairing token expires.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		deviceID := pairDeviceID
		if deviceID == "" {
			deviceID = "linkctl-" + uuid.NewString()
		}

		c := client.New(serverEndpoint)
		ctx := cmd.Context()

		initResp, err := c.InitPairing(ctx, deviceID)
		if err != nil {
			return fmt.Errorf("failed to start pairing: %w", err)
		}

		fmt.Printf("Device id:     %s\n", deviceID)
		fmt.Printf("Pairing token: %s\n", initResp.Token)
		fmt.Printf("Expires at:    %s\n", initResp.ExpiresAt.Format(time.RFC3339))
		fmt.Printf("\nOpen this URL in a browser to sign in:\n\n    %s\n\n", initResp.AuthURL)
		fmt.Printf("Polling every %s...\n", pairPollInterval)

		ticker := time.NewTicker(pairPollInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
			}

			resp, err := c.Finalize(ctx, initResp.Token, deviceID)
			if err != nil {
				return fmt.Errorf("pairing failed: %w", err)
			}
			if resp.Status == api.StatusPending {
				fmt.Println("Waiting for browser login...")
				continue
			}

			fmt.Println("\nPairing complete.")
			fmt.Printf("User:          %s (ID: %s)\n", resp.Username, resp.UserID)
			fmt.Printf("Session token: %s\n", resp.SessionToken)
			if resp.ExpiresAt != nil {
				fmt.Printf("Expires at:    %s\n", resp.ExpiresAt.Format(time.RFC3339))
			}
			return nil
		}
	},
}

func init() {
	rootCmd.AddCommand(pairCmd)
	pairCmd.Flags().StringVar(&pairDeviceID, "device-id", "", "device identifier (generated when empty)")
	pairCmd.Flags().DurationVar(&pairPollInterval, "poll-interval", 2*time.Second, "how often to poll the finalize endpoint")
}
