package cli

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestFormatMoney(t *testing.T) {
	tests := []struct {
		name     string
		amount   string
		expected string
	}{
		{"zero", "0", "0"},
		{"small", "999", "999"},
		{"thousands", "250000", "250,000"},
		{"millions", "1000000", "1,000,000"},
		{"cents", "1500.5", "1,500.50"},
		{"negative", "-2500", "-2,500"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := formatMoney(decimal.RequireFromString(tt.amount))
			if result != tt.expected {
				t.Errorf("formatMoney(%s) = %q, want %q", tt.amount, result, tt.expected)
			}
		})
	}
}

func TestFormatRange(t *testing.T) {
	lo := decimal.NewNullDecimal(decimal.NewFromInt(450000))
	hi := decimal.NewNullDecimal(decimal.NewFromInt(600000))
	none := decimal.NullDecimal{}

	tests := []struct {
		name     string
		lo, hi   decimal.NullDecimal
		expected string
	}{
		{"both", lo, hi, "$450,000 - $600,000"},
		{"min only", lo, none, "from $450,000"},
		{"max only", none, hi, "up to $600,000"},
		{"neither", none, none, "any"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := formatRange(tt.lo, tt.hi); got != tt.expected {
				t.Errorf("formatRange = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestTimeLeft(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		expires  time.Time
		expected string
	}{
		{"full window", now.Add(72 * time.Hour), "72h00m left"},
		{"minutes", now.Add(45 * time.Minute), "45m left"},
		{"seconds", now.Add(10 * time.Second), "<1m left"},
		{"exactly now", now, "expired"},
		{"past", now.Add(-time.Hour), "expired"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := timeLeft(tt.expires, now); got != tt.expected {
				t.Errorf("timeLeft = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestParseBound(t *testing.T) {
	b, err := parseBound("min", "")
	if err != nil || b.Valid {
		t.Errorf("empty bound = %v, %v; want invalid, nil", b, err)
	}

	b, err = parseBound("min", "450000.00")
	if err != nil || !b.Valid || !b.Decimal.Equal(decimal.NewFromInt(450000)) {
		t.Errorf("parsed bound = %v, %v", b, err)
	}

	if _, err := parseBound("max", "lots"); err == nil {
		t.Error("expected error for non-numeric bound")
	}
}

func TestRentalInput(t *testing.T) {
	r, err := rentalInput(12, "3000", "2026-04-01", true)
	if err != nil {
		t.Fatalf("rentalInput: %v", err)
	}
	if r.DurationMonths != 12 || !r.UtilitiesIncluded {
		t.Errorf("terms = %+v", r)
	}
	if r.MoveInDate == nil || r.MoveInDate.Format("2006-01-02") != "2026-04-01" {
		t.Errorf("move in = %v", r.MoveInDate)
	}

	r, err = rentalInput(6, "0", "", false)
	if err != nil {
		t.Fatalf("rentalInput without move-in: %v", err)
	}
	if r.MoveInDate != nil {
		t.Errorf("move in = %v, want nil", r.MoveInDate)
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		max      int
		expected string
	}{
		{"short", "hello", 10, "hello"},
		{"exact", "hello", 5, "hello"},
		{"long", "hello world!", 8, "hello..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := truncate(tt.input, tt.max)
			if result != tt.expected {
				t.Errorf("truncate(%q, %d) = %q, want %q", tt.input, tt.max, result, tt.expected)
			}
		})
	}
}
