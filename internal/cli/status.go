package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/evcraddock/estate-bids/internal/apperr"
	"github.com/evcraddock/estate-bids/internal/client"
	"github.com/evcraddock/estate-bids/internal/reconcile"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Check connection and auth status",
		Long:  "Tests the connection to the server and checks if the stored token is valid.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(cmd.Context())
		},
	}
}

func runStatus(ctx context.Context) error {
	serverURL := getServerURL()
	token := getToken()

	fmt.Printf("Server:  %s\n", serverURL)

	if token == "" {
		fmt.Println("Token:   not configured")
		fmt.Println("\nRun 'eb login' to authenticate.")
		return nil
	}

	prefix := token
	if len(prefix) > 8 {
		prefix = prefix[:8]
	}
	fmt.Printf("Token:   %s…\n", prefix)

	// Short timeout so an unreachable server is reported promptly.
	c := client.New(serverURL, token, client.WithPolicy(reconcile.Policy{Timeout: 5 * time.Second}))

	if err := c.Health(ctx); err != nil {
		fmt.Printf("Status:  ✗ cannot reach server (%v)\n", err)
		return nil
	}

	me, err := c.Me(ctx)
	switch {
	case err == nil:
		fmt.Printf("Status:  ✓ connected as %s (%s)\n", me.Email, me.Role)
	case apperr.Is(err, apperr.KindAuth):
		fmt.Println("Status:  ✗ invalid or expired token")
		fmt.Println("\nRun 'eb login' to re-authenticate.")
	default:
		fmt.Printf("Status:  ✗ %v\n", err)
	}

	return nil
}
