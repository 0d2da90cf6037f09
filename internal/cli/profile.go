package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/evcraddock/estate-bids/internal/profile"
)

func newProfileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Manage profiles in the local database",
		Long:  "Create and list profiles directly in the SQLite database. Used to bootstrap the first admin before the API is reachable.",
	}
	cmd.AddCommand(newProfileAddCmd(), newProfileListCmd())
	return cmd
}

func newProfileAddCmd() *cobra.Command {
	var name, role string

	cmd := &cobra.Command{
		Use:   "add <email>",
		Short: "Create a profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r := profile.Role(role)
			if !r.IsValid() {
				return fmt.Errorf("invalid role %q (want one of %v)", role, profile.ValidRoles)
			}

			database, err := openDB()
			if err != nil {
				return err
			}
			defer closeDB(database)

			p, err := profile.NewRepository(database).Insert(cmd.Context(), &profile.Profile{
				Email: args[0],
				Name:  name,
				Role:  r,
			})
			if err != nil {
				return err
			}

			if isJSON() {
				return printJSON(p)
			}
			fmt.Printf("Profile %s created (%s, %s).\n", p.ID, p.Email, p.Role)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().StringVar(&role, "role", string(profile.RoleTenant), "role (tenant|buyer|owner|manager|admin|staff)")

	return cmd
}

func newProfileListCmd() *cobra.Command {
	var role string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List profiles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			database, err := openDB()
			if err != nil {
				return err
			}
			defer closeDB(database)

			profiles, err := profile.NewRepository(database).List(cmd.Context(), profile.ListOptions{Role: profile.Role(role)})
			if err != nil {
				return err
			}

			if isJSON() {
				return printJSON(profiles)
			}
			return printProfileTable(profiles)
		},
	}

	cmd.Flags().StringVar(&role, "role", "", "only list profiles with this role")

	return cmd
}
