package cli

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
)

func newLoginCmd() *cobra.Command {
	var server, token string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Store a bearer token",
		Long:  "Saves a bearer token (from 'eb token issue' or your identity provider) for CLI access. Reads the token from stdin unless --token is given.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLogin(cmd.InOrStdin(), server, token)
		},
	}

	cmd.Flags().StringVar(&server, "server", "", "server URL (default: from config or http://localhost:8080)")
	cmd.Flags().StringVar(&token, "token", "", "token to store instead of prompting")

	return cmd
}

func runLogin(in io.Reader, serverFlag, token string) error {
	if token == "" {
		fmt.Print("Paste your token: ")
		line, err := bufio.NewReader(in).ReadString('\n')
		if err != nil && err != io.EOF {
			return fmt.Errorf("reading input: %w", err)
		}
		token = line
	}

	token = strings.TrimSpace(token)
	if err := validateToken(token); err != nil {
		return err
	}

	// Load existing config to preserve other fields
	cfg, err := loadConfig()
	if err != nil {
		cfg = CLIConfig{}
	}

	cfg.Token = token
	if serverFlag != "" {
		cfg.ServerURL = serverFlag
	}

	if err := saveConfig(cfg); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}

	fmt.Println("✓ Token saved. You're logged in!")
	return nil
}

// validateToken checks that the token is non-empty and shaped like a JWT.
// The server verifies the signature.
func validateToken(token string) error {
	if token == "" {
		return fmt.Errorf("no token provided")
	}
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return fmt.Errorf("invalid token format (expected header.payload.signature)")
	}
	for _, p := range parts {
		if p == "" {
			return fmt.Errorf("invalid token format (empty segment)")
		}
	}
	return nil
}
