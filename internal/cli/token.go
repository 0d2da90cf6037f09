package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/evcraddock/estate-bids/internal/auth"
	"github.com/evcraddock/estate-bids/internal/config"
	"github.com/evcraddock/estate-bids/internal/profile"
)

func newTokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint bearer tokens",
	}
	cmd.AddCommand(newTokenIssueCmd())
	return cmd
}

func newTokenIssueCmd() *cobra.Command {
	var ttl time.Duration

	cmd := &cobra.Command{
		Use:   "issue <profile-id>",
		Short: "Issue a bearer token for a profile",
		Long:  "Sign a token for an existing profile with EB_JWT_SECRET. Hand it to the user, who stores it with 'eb login'.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if ttl <= 0 {
				return fmt.Errorf("ttl must be positive")
			}
			if err := config.LoadDotEnv(); err != nil {
				return err
			}
			cfg, err := config.FromEnv()
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			tokens, err := auth.NewTokens(cfg.JWTSecret)
			if err != nil {
				return err
			}
			if flagDB == "" && cfg.DBPath != "" {
				flagDB = cfg.DBPath
			}

			database, err := openDB()
			if err != nil {
				return err
			}
			defer closeDB(database)

			p, err := profile.NewRepository(database).GetByID(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			raw, err := tokens.Issue(p.ID, ttl)
			if err != nil {
				return err
			}

			if isJSON() {
				return printJSON(map[string]string{"profile_id": p.ID, "token": raw})
			}
			fmt.Println(raw)
			return nil
		},
	}

	cmd.Flags().DurationVar(&ttl, "ttl", auth.DefaultTokenTTL, "token lifetime")

	return cmd
}
