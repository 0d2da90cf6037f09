package cli

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/evcraddock/estate-bids/internal/client"
	"github.com/evcraddock/estate-bids/internal/property"
)

func newPropertyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "property",
		Aliases: []string{"properties"},
		Short:   "Browse and manage properties",
	}
	cmd.AddCommand(
		newPropertyListCmd(),
		newPropertyShowCmd(),
		newPropertyAddCmd(),
		newPropertyUpdateCmd(),
		newPropertyTransferCmd(),
		newPropertyTransfersCmd(),
	)
	return cmd
}

func newPropertyListCmd() *cobra.Command {
	var status, owner string
	var accepting bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List properties",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := client.PropertyFilter{Status: property.Status(status), OwnerID: owner}
			if cmd.Flags().Changed("accepting") {
				f.AcceptingBids = &accepting
			}

			props, err := newAPIClient().ListProperties(cmd.Context(), f)
			if err != nil {
				return err
			}

			if isJSON() {
				return printJSON(props)
			}
			return printPropertyTable(props)
		},
	}

	cmd.Flags().StringVar(&status, "status", "", "filter by status (available|rented|maintenance|reserved)")
	cmd.Flags().StringVar(&owner, "owner", "", "filter by owner profile ID")
	cmd.Flags().BoolVar(&accepting, "accepting", false, "filter by whether the property accepts bids")

	return cmd
}

func newPropertyShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show property details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := newAPIClient().GetProperty(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			if isJSON() {
				return printJSON(p)
			}
			printPropertySummary(p)
			return nil
		},
	}
}

func newPropertyAddCmd() *cobra.Command {
	var (
		in               property.CreateInput
		status, listing  string
		minimum, maximum string
	)

	cmd := &cobra.Command{
		Use:   "add <title>",
		Short: "List a new property",
		Long:  "Create a property. Requires the manager or admin role.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in.Title = args[0]
			in.Status = property.Status(status)
			in.ListingType = property.ListingType(listing)

			var err error
			if in.MinimumBidAmount, err = parseBound("min", minimum); err != nil {
				return err
			}
			if in.MaximumBidAmount, err = parseBound("max", maximum); err != nil {
				return err
			}

			p, err := newAPIClient().CreateProperty(cmd.Context(), in)
			if err != nil {
				return err
			}

			if isJSON() {
				return printJSON(p)
			}
			fmt.Printf("Property %s created.\n", p.ID)
			printPropertySummary(p)
			return nil
		},
	}

	cmd.Flags().StringVar(&in.OwnerID, "owner", "", "owner profile ID (required)")
	cmd.Flags().StringVar(&in.ManagerID, "manager", "", "managing profile ID")
	cmd.Flags().StringVar(&in.Address, "address", "", "street address")
	cmd.Flags().StringVar(&status, "status", "", "initial status (default available)")
	cmd.Flags().StringVar(&listing, "listing-type", "", "rent, sale, or both (default both)")
	cmd.Flags().BoolVar(&in.IsAcceptingBids, "accepting", false, "open the property for bids")
	cmd.Flags().StringVar(&minimum, "min", "", "minimum bid amount")
	cmd.Flags().StringVar(&maximum, "max", "", "maximum bid amount")
	_ = cmd.MarkFlagRequired("owner")

	return cmd
}

func newPropertyUpdateCmd() *cobra.Command {
	var (
		status, listing, manager string
		minimum, maximum         string
		accepting                bool
		clearMin, clearMax       bool
	)

	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Change a property's listing",
		Long:  "Update status, bid acceptance, listing type, manager, or bid bounds. Only the flags given are changed.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var u property.ListingUpdate
			flags := cmd.Flags()
			if flags.Changed("status") {
				s := property.Status(status)
				u.Status = &s
			}
			if flags.Changed("listing-type") {
				lt := property.ListingType(listing)
				u.ListingType = &lt
			}
			if flags.Changed("manager") {
				u.ManagerID = &manager
			}
			if flags.Changed("accepting") {
				u.IsAcceptingBids = &accepting
			}
			if flags.Changed("min") {
				b, err := parseBound("min", minimum)
				if err != nil {
					return err
				}
				u.MinimumBidAmount = &b
			}
			if flags.Changed("max") {
				b, err := parseBound("max", maximum)
				if err != nil {
					return err
				}
				u.MaximumBidAmount = &b
			}
			u.ClearMinimum = clearMin
			u.ClearMaximum = clearMax

			p, err := newAPIClient().UpdateListing(cmd.Context(), args[0], u)
			if err != nil {
				return err
			}

			if isJSON() {
				return printJSON(p)
			}
			printPropertySummary(p)
			return nil
		},
	}

	cmd.Flags().StringVar(&status, "status", "", "available|rented|maintenance|reserved")
	cmd.Flags().StringVar(&listing, "listing-type", "", "rent|sale|both")
	cmd.Flags().StringVar(&manager, "manager", "", "managing profile ID")
	cmd.Flags().BoolVar(&accepting, "accepting", false, "whether the property accepts bids")
	cmd.Flags().StringVar(&minimum, "min", "", "minimum bid amount")
	cmd.Flags().StringVar(&maximum, "max", "", "maximum bid amount")
	cmd.Flags().BoolVar(&clearMin, "clear-min", false, "remove the minimum bid amount")
	cmd.Flags().BoolVar(&clearMax, "clear-max", false, "remove the maximum bid amount")
	cmd.MarkFlagsMutuallyExclusive("min", "clear-min")
	cmd.MarkFlagsMutuallyExclusive("max", "clear-max")

	return cmd
}

func newPropertyTransferCmd() *cobra.Command {
	var expected string

	cmd := &cobra.Command{
		Use:   "transfer <property-id> <new-owner-id>",
		Short: "Transfer ownership of a property",
		Long: `Reassign a property to a new owner. Requires the manager or admin role.

Pass --expect with the owner you last saw; the transfer fails with
PRECONDITION_FAILED if someone else changed the owner in the meantime.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := newAPIClient().TransferOwnership(cmd.Context(), args[0], args[1], expected)
			if err != nil {
				return err
			}

			if isJSON() {
				return printJSON(p)
			}
			fmt.Printf("Property %s is now owned by %s.\n", p.ID, p.OwnerID)
			return nil
		},
	}

	cmd.Flags().StringVar(&expected, "expect", "", "current owner ID the transfer is conditioned on")

	return cmd
}

func newPropertyTransfersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "transfers <property-id>",
		Short: "Show the ownership history of a property",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			transfers, err := newAPIClient().ListTransfers(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			if isJSON() {
				return printJSON(transfers)
			}
			return printTransferTable(transfers)
		},
	}
}

// parseBound reads an optional money flag. Empty means no bound.
func parseBound(name, v string) (decimal.NullDecimal, error) {
	if v == "" {
		return decimal.NullDecimal{}, nil
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		return decimal.NullDecimal{}, fmt.Errorf("invalid --%s amount %q", name, v)
	}
	return decimal.NewNullDecimal(d), nil
}
