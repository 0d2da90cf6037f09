package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/shopspring/decimal"

	"github.com/evcraddock/estate-bids/internal/bid"
	"github.com/evcraddock/estate-bids/internal/notify"
	"github.com/evcraddock/estate-bids/internal/profile"
	"github.com/evcraddock/estate-bids/internal/property"
)

// printJSON marshals v as indented JSON and writes it to stdout.
func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printPropertySummary prints a single property in text format.
func printPropertySummary(p *property.Property) {
	fmt.Printf("Property %s\n", p.ID)
	fmt.Printf("  Title:    %s\n", p.Title)
	if p.Address != "" {
		fmt.Printf("  Address:  %s\n", p.Address)
	}
	fmt.Printf("  Status:   %s\n", p.Status)
	fmt.Printf("  Listing:  %s\n", p.ListingType)
	fmt.Printf("  Bids:     %s\n", openLabel(p))
	fmt.Printf("  Range:    %s\n", formatRange(p.MinimumBidAmount, p.MaximumBidAmount))
	fmt.Printf("  Owner:    %s\n", p.OwnerID)
	if p.ManagerID != "" {
		fmt.Printf("  Manager:  %s\n", p.ManagerID)
	}
}

// printPropertyTable prints a list of properties as a formatted table.
func printPropertyTable(props []*property.Property) error {
	if len(props) == 0 {
		fmt.Println("No properties found.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	if _, err := fmt.Fprintln(w, "ID\tTITLE\tSTATUS\tLISTING\tBIDS\tRANGE"); err != nil {
		return fmt.Errorf("writing table header: %w", err)
	}
	if _, err := fmt.Fprintln(w, "--\t-----\t------\t-------\t----\t-----"); err != nil {
		return fmt.Errorf("writing table separator: %w", err)
	}

	for _, p := range props {
		if _, err := fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			p.ID, truncate(p.Title, 40), p.Status, p.ListingType, openLabel(p),
			formatRange(p.MinimumBidAmount, p.MaximumBidAmount)); err != nil {
			return fmt.Errorf("writing table row: %w", err)
		}
	}

	if err := w.Flush(); err != nil {
		return fmt.Errorf("flushing table: %w", err)
	}

	fmt.Printf("\nTotal: %d properties\n", len(props))
	return nil
}

// printTransferTable prints a property's ownership history, oldest first.
func printTransferTable(transfers []*property.OwnershipTransfer) error {
	if len(transfers) == 0 {
		fmt.Println("No ownership transfers.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	if _, err := fmt.Fprintln(w, "WHEN\tFROM\tTO\tBY"); err != nil {
		return fmt.Errorf("writing table header: %w", err)
	}
	for _, t := range transfers {
		if _, err := fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			t.Timestamp.Local().Format("2006-01-02 15:04"), t.PreviousOwnerID, t.NewOwnerID, t.PerformedBy); err != nil {
			return fmt.Errorf("writing table row: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("flushing table: %w", err)
	}
	return nil
}

// printBidSummary prints a single bid in text format.
func printBidSummary(b *bid.Bid, now time.Time) {
	fmt.Printf("Bid %s\n", b.ID)
	fmt.Printf("  Property: %s\n", b.PropertyID)
	fmt.Printf("  Bidder:   %s\n", b.BidderID)
	fmt.Printf("  Type:     %s\n", b.BidType)
	fmt.Printf("  Amount:   $%s\n", formatMoney(b.Amount))
	fmt.Printf("  Status:   %s\n", b.Status)
	if b.Status.IsLive() {
		fmt.Printf("  Expires:  %s (%s)\n", b.ExpiresAt.Local().Format("2006-01-02 15:04"), timeLeft(b.ExpiresAt, now))
	}
	if r := b.Rental; r != nil {
		fmt.Printf("  Duration: %d months\n", r.DurationMonths)
		fmt.Printf("  Deposit:  $%s\n", formatMoney(r.SecurityDeposit))
		fmt.Printf("  Utilities included: %t\n", r.UtilitiesIncluded)
		if r.MoveInDate != nil {
			fmt.Printf("  Move in:  %s\n", r.MoveInDate.Format("2006-01-02"))
		}
	}
	if b.Message != "" {
		fmt.Printf("  Message:  %s\n", b.Message)
	}
	if b.RejectionReason != "" {
		fmt.Printf("  Reason:   %s\n", b.RejectionReason)
	}
	if b.DecidedBy != "" {
		fmt.Printf("  Decided:  %s\n", b.DecidedBy)
	}
}

// printBidTable prints a list of bids as a formatted table.
func printBidTable(bids []*bid.Bid, now time.Time) error {
	if len(bids) == 0 {
		fmt.Println("No bids found.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	if _, err := fmt.Fprintln(w, "ID\tPROPERTY\tTYPE\tAMOUNT\tSTATUS\tEXPIRES"); err != nil {
		return fmt.Errorf("writing table header: %w", err)
	}
	if _, err := fmt.Fprintln(w, "--\t--------\t----\t------\t------\t-------"); err != nil {
		return fmt.Errorf("writing table separator: %w", err)
	}

	for _, b := range bids {
		expires := "-"
		if b.Status.IsLive() {
			expires = timeLeft(b.ExpiresAt, now)
		}
		if _, err := fmt.Fprintf(w, "%s\t%s\t%s\t$%s\t%s\t%s\n",
			b.ID, b.PropertyID, b.BidType, formatMoney(b.Amount), b.Status, expires); err != nil {
			return fmt.Errorf("writing table row: %w", err)
		}
	}

	if err := w.Flush(); err != nil {
		return fmt.Errorf("flushing table: %w", err)
	}

	fmt.Printf("\nTotal: %d bids\n", len(bids))
	return nil
}

// printProfileTable prints profiles as a formatted table.
func printProfileTable(profiles []*profile.Profile) error {
	if len(profiles) == 0 {
		fmt.Println("No profiles found.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	if _, err := fmt.Fprintln(w, "ID\tEMAIL\tNAME\tROLE"); err != nil {
		return fmt.Errorf("writing table header: %w", err)
	}
	for _, p := range profiles {
		if _, err := fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", p.ID, p.Email, p.Name, p.Role); err != nil {
			return fmt.Errorf("writing table row: %w", err)
		}
	}
	return w.Flush()
}

// printNotifications prints an inbox, newest first.
func printNotifications(notes []*notify.Notification) {
	if len(notes) == 0 {
		fmt.Println("No notifications.")
		return
	}

	for _, n := range notes {
		marker := "*"
		if n.ReadAt != nil {
			marker = " "
		}
		fmt.Printf("%s [%s] %s (%s)\n  %s\n\n",
			marker, n.CreatedAt.Local().Format("2006-01-02 15:04"), n.Kind, n.ID, n.Message)
	}
}

// formatMoney formats an amount with thousands separators and cents only
// when they are non-zero.
func formatMoney(d decimal.Decimal) string {
	neg := d.IsNegative()
	s := d.Abs().StringFixed(2)
	whole, frac, _ := strings.Cut(s, ".")

	var parts []string
	for len(whole) > 3 {
		parts = append([]string{whole[len(whole)-3:]}, parts...)
		whole = whole[:len(whole)-3]
	}
	parts = append([]string{whole}, parts...)

	out := strings.Join(parts, ",")
	if frac != "00" {
		out += "." + frac
	}
	if neg {
		out = "-" + out
	}
	return out
}

// formatRange renders a property's bid bounds.
func formatRange(lo, hi decimal.NullDecimal) string {
	switch {
	case lo.Valid && hi.Valid:
		return "$" + formatMoney(lo.Decimal) + " - $" + formatMoney(hi.Decimal)
	case lo.Valid:
		return "from $" + formatMoney(lo.Decimal)
	case hi.Valid:
		return "up to $" + formatMoney(hi.Decimal)
	}
	return "any"
}

func openLabel(p *property.Property) string {
	if p.OpenForBids() {
		return "open"
	}
	return "closed"
}

// timeLeft describes how long until t, rounded to the minute.
func timeLeft(t, now time.Time) string {
	d := t.Sub(now)
	if d <= 0 {
		return "expired"
	}
	d = d.Round(time.Minute)
	if d < time.Minute {
		return "<1m left"
	}
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	if h == 0 {
		return fmt.Sprintf("%dm left", m)
	}
	return fmt.Sprintf("%dh%02dm left", h, m)
}

// truncate shortens a string to maxLen, adding "..." if truncated.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
