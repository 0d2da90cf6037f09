// Package cli defines the cobra command tree for estate-bids.
package cli

import (
	"database/sql"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/evcraddock/estate-bids/internal/client"
	"github.com/evcraddock/estate-bids/internal/db"
)

var (
	flagFormat string
	flagDB     string
)

// NewRootCmd creates the root cobra command with global flags.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "eb",
		Short: "Bid on rental and sale listings",
		Long: "Submit, approve, reject, and withdraw bids on property listings, and transfer " +
			"property ownership. Runs the API server and notification worker, or talks to a running server.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&flagFormat, "format", "text", "output format (text|json)")
	root.PersistentFlags().StringVar(&flagDB, "db", "", "SQLite database path (default: ~/.config/eb/estate.db)")

	root.AddCommand(
		newServeCmd(),
		newWorkerCmd(),
		newProfileCmd(),
		newTokenCmd(),
		newPropertyCmd(),
		newBidCmd(),
		newNotificationsCmd(),
		newLoginCmd(),
		newLogoutCmd(),
		newStatusCmd(),
		newVersionCmd(),
	)

	return root
}

// openDB opens the SQLite database using the --db flag, EB_DB_PATH, or
// the default path.
func openDB() (*sql.DB, error) {
	path := flagDB
	if path == "" {
		path = os.Getenv("EB_DB_PATH")
	}
	if path == "" {
		var err error
		path, err = db.DefaultPath()
		if err != nil {
			return nil, err
		}
	}
	return db.Open(path)
}

// newAPIClient creates an HTTP client for the estate-bids API.
func newAPIClient() *client.Client {
	return client.New(getServerURL(), getToken(), client.WithTimeout(clientTimeout()))
}

// clientTimeout reads EB_CLIENT_TIMEOUT, falling back to 30s.
func clientTimeout() time.Duration {
	if v := os.Getenv("EB_CLIENT_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
		fmt.Fprintf(os.Stderr, "warning: ignoring invalid EB_CLIENT_TIMEOUT %q\n", v)
	}
	return 30 * time.Second
}

// isJSON returns true if the --format flag is set to json.
func isJSON() bool {
	return flagFormat == "json"
}

// closeDB closes the database, logging any error to stderr.
func closeDB(database *sql.DB) {
	if err := database.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "warning: closing database: %v\n", err)
	}
}
