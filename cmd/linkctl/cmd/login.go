package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"go.pilab.hu/gamelink/cmd/linkctl/client"
)

var loginWebToken string

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in with email and password, optionally linking a waiting device",
	Long: `Performs the browser side of the handshake from the terminal. Pass
--web-token with the pairing token from 'linkctl pair' to link the device to
the account you log in with.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		reader := bufio.NewReader(os.Stdin)

		fmt.Print("Enter email: ")
		email, _ := reader.ReadString('\n')
		email = strings.TrimSpace(email)

		fmt.Print("Enter password: ")
		bytePassword, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Println()
		if err != nil {
			return fmt.Errorf("failed to read password: %w", err)
		}

		c := client.New(serverEndpoint)
		resp, err := c.Login(cmd.Context(), email, string(bytePassword), loginWebToken)
		if err != nil {
			return fmt.Errorf("login failed: %w", err)
		}

		fmt.Printf("Logged in as: %s (ID: %s)\n", resp.Username, resp.UserID)
		if loginWebToken != "" {
			if resp.Linked {
				fmt.Println("Device linked. It will receive its session on the next poll.")
			} else {
				fmt.Println("Warning: the pairing token could not be linked (expired or already used).")
			}
		}
		return nil
	},
}

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Create an account with email and password, optionally linking a waiting device",
	RunE: func(cmd *cobra.Command, args []string) error {
		reader := bufio.NewReader(os.Stdin)

		fmt.Print("Enter username: ")
		username, _ := reader.ReadString('\n')
		username = strings.TrimSpace(username)

		fmt.Print("Enter email: ")
		email, _ := reader.ReadString('\n')
		email = strings.TrimSpace(email)

		fmt.Print("Enter password: ")
		bytePassword, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Println()
		if err != nil {
			return fmt.Errorf("failed to read password: %w", err)
		}

		c := client.New(serverEndpoint)
		resp, err := c.Register(cmd.Context(), username, email, string(bytePassword), loginWebToken)
		if err != nil {
			return fmt.Errorf("registration failed: %w", err)
		}

		fmt.Printf("Account created: %s (ID: %s)\n", resp.Username, resp.UserID)
		if loginWebToken != "" {
			if resp.Linked {
				fmt.Println("Device linked. It will receive its session on the next poll.")
			} else {
				fmt.Println("Warning: the pairing token could not be linked (expired or already used).")
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(registerCmd)
	loginCmd.Flags().StringVar(&loginWebToken, "web-token", "", "pairing token from 'linkctl pair' to link")
	registerCmd.Flags().StringVar(&loginWebToken, "web-token", "", "pairing token from 'linkctl pair' to link")
}
