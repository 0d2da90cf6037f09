package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/evcraddock/estate-bids/internal/bid"
	"github.com/evcraddock/estate-bids/internal/client"
)

func newBidCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "bid",
		Aliases: []string{"bids"},
		Short:   "Submit and decide bids",
	}
	cmd.AddCommand(
		newBidSubmitCmd(),
		newBidListCmd(),
		newBidShowCmd(),
		newBidActionCmd("approve", "Approve a pending bid as manager", "Moves a pending bid to manager_approved. Requires the manager or admin role.",
			func(ctx context.Context, c *client.Client, id string) (*bid.Bid, error) {
				return c.ApproveByManager(ctx, id)
			}),
		newBidActionCmd("accept", "Accept a manager-approved bid as owner", "Moves a manager_approved bid to owner_approved. Only the current owner of the property may accept.",
			func(ctx context.Context, c *client.Client, id string) (*bid.Bid, error) {
				return c.ApproveByOwner(ctx, id)
			}),
		newBidRejectCmd(),
		newBidActionCmd("withdraw", "Withdraw your own bid", "Retracts a pending or manager_approved bid. Withdrawing an already withdrawn bid is a no-op.",
			func(ctx context.Context, c *client.Client, id string) (*bid.Bid, error) { return c.Withdraw(ctx, id) }),
	)
	return cmd
}

func newBidSubmitCmd() *cobra.Command {
	var (
		bidType, amount, deposit, moveIn, message string
		months                                    int
		utilities                                 bool
	)

	cmd := &cobra.Command{
		Use:   "submit <property-id>",
		Short: "Place a bid on a property",
		Long: `Place a purchase or rental bid. The bid stays open for 72 hours unless it
is decided or withdrawn first.

Rental bids need --months and --deposit; --move-in is an optional
YYYY-MM-DD date that must not be in the past.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := bid.SubmitInput{BidType: bid.Type(bidType), Message: message}

			amt, err := decimal.NewFromString(amount)
			if err != nil {
				return fmt.Errorf("invalid --amount %q", amount)
			}
			in.Amount = amt

			if in.BidType == bid.TypeRental {
				r, err := rentalInput(months, deposit, moveIn, utilities)
				if err != nil {
					return err
				}
				in.Rental = r
			}

			b, err := newAPIClient().SubmitBid(cmd.Context(), args[0], in)
			if err != nil {
				return err
			}

			if isJSON() {
				return printJSON(b)
			}
			fmt.Printf("Bid %s submitted, open until %s.\n", b.ID, b.ExpiresAt.Local().Format("2006-01-02 15:04"))
			return nil
		},
	}

	cmd.Flags().StringVar(&bidType, "type", string(bid.TypePurchase), "purchase or rental")
	cmd.Flags().StringVar(&amount, "amount", "", "bid amount (required)")
	cmd.Flags().IntVar(&months, "months", 0, "rental duration in months")
	cmd.Flags().StringVar(&deposit, "deposit", "0", "security deposit")
	cmd.Flags().BoolVar(&utilities, "utilities", false, "utilities included in the rent")
	cmd.Flags().StringVar(&moveIn, "move-in", "", "move-in date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&message, "message", "", "note for the manager and owner")
	_ = cmd.MarkFlagRequired("amount")

	return cmd
}

// rentalInput builds the rental terms from flag values.
func rentalInput(months int, deposit, moveIn string, utilities bool) (*bid.RentalInput, error) {
	dep, err := decimal.NewFromString(deposit)
	if err != nil {
		return nil, fmt.Errorf("invalid --deposit %q", deposit)
	}
	r := &bid.RentalInput{
		DurationMonths:    months,
		SecurityDeposit:   dep,
		UtilitiesIncluded: utilities,
	}
	if moveIn != "" {
		d, err := time.Parse("2006-01-02", moveIn)
		if err != nil {
			return nil, fmt.Errorf("invalid --move-in date %q (want YYYY-MM-DD)", moveIn)
		}
		r.MoveInDate = &d
	}
	return r, nil
}

func newBidListCmd() *cobra.Command {
	var propertyID string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List bids",
		Long:  "List your own bids, or the bids on one property with --property.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c := newAPIClient()

			var bids []*bid.Bid
			var err error
			if propertyID != "" {
				bids, err = c.ListPropertyBids(cmd.Context(), propertyID)
			} else {
				bids, err = c.ListMyBids(cmd.Context())
			}
			if err != nil {
				return err
			}

			if isJSON() {
				return printJSON(bids)
			}
			return printBidTable(bids, time.Now())
		},
	}

	cmd.Flags().StringVar(&propertyID, "property", "", "list bids on this property")

	return cmd
}

func newBidShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show bid details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := newAPIClient().GetBid(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			if isJSON() {
				return printJSON(b)
			}
			printBidSummary(b, time.Now())
			return nil
		},
	}
}

type bidAction func(ctx context.Context, c *client.Client, id string) (*bid.Bid, error)

func newBidActionCmd(use, short, long string, action bidAction) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <id>",
		Short: short,
		Long:  long,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := action(cmd.Context(), newAPIClient(), args[0])
			if err != nil {
				return err
			}
			return printBidResult(b)
		},
	}
}

func newBidRejectCmd() *cobra.Command {
	var reason string

	cmd := &cobra.Command{
		Use:   "reject <id>",
		Short: "Reject a bid",
		Long:  "Reject a live bid. Managers may reject at any stage; the owner may reject once a manager has approved.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := newAPIClient().Reject(cmd.Context(), args[0], reason)
			if err != nil {
				return err
			}
			return printBidResult(b)
		},
	}

	cmd.Flags().StringVar(&reason, "reason", "", "reason shown to the bidder")

	return cmd
}

func printBidResult(b *bid.Bid) error {
	if isJSON() {
		return printJSON(b)
	}
	fmt.Printf("Bid %s is now %s.\n", b.ID, b.Status)
	return nil
}
