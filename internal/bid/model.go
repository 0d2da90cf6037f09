// Package bid implements the bid lifecycle: submission, manager and owner
// approval, rejection, withdrawal and lazy expiry.
package bid

import (
	"database/sql"
	"time"

	"github.com/shopspring/decimal"
)

// Status is the lifecycle state of a bid.
type Status string

const (
	StatusPending         Status = "pending"
	StatusManagerApproved Status = "manager_approved"
	StatusOwnerApproved   Status = "owner_approved"
	StatusRejected        Status = "rejected"
	StatusWithdrawn       Status = "withdrawn"
	StatusExpired         Status = "expired"
)

// IsTerminal reports whether no further transition is possible from s.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusOwnerApproved, StatusRejected, StatusWithdrawn, StatusExpired:
		return true
	}
	return false
}

// IsLive reports whether s still counts against the one-live-bid rule.
func (s Status) IsLive() bool {
	return s == StatusPending || s == StatusManagerApproved
}

// Type is what the bidder is offering for.
type Type string

const (
	TypePurchase Type = "purchase"
	TypeRental   Type = "rental"
)

// TTL is how long a bid stays open after submission.
const TTL = 72 * time.Hour

// transitions lists every explicit move a caller may request. Expiry is not
// here; it is derived from the clock.
var transitions = map[Status][]Status{
	StatusPending:         {StatusManagerApproved, StatusRejected, StatusWithdrawn},
	StatusManagerApproved: {StatusOwnerApproved, StatusRejected, StatusWithdrawn},
}

// CanTransition reports whether from -> to is allowed.
func CanTransition(from, to Status) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// RentalTerms are the extra terms of a rental bid.
type RentalTerms struct {
	DurationMonths    int             `json:"duration_months"`
	SecurityDeposit   decimal.Decimal `json:"security_deposit"`
	UtilitiesIncluded bool            `json:"utilities_included"`
	MoveInDate        *time.Time      `json:"move_in_date,omitempty"`
}

// Bid is an offer on a property.
type Bid struct {
	ID              string          `json:"id"`
	PropertyID      string          `json:"property_id"`
	BidderID        string          `json:"bidder_id"`
	BidType         Type            `json:"bid_type"`
	Amount          decimal.Decimal `json:"amount"`
	Status          Status          `json:"status"`
	Rental          *RentalTerms    `json:"rental,omitempty"`
	Message         string          `json:"message,omitempty"`
	RejectionReason string          `json:"rejection_reason,omitempty"`
	DecidedBy       string          `json:"decided_by,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	ExpiresAt       time.Time       `json:"expires_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// EffectiveStatus is the status of b as of now. A live bid whose window has
// closed (now >= ExpiresAt) is expired regardless of what is stored.
func EffectiveStatus(b *Bid, now time.Time) Status {
	if b.Status.IsLive() && !now.Before(b.ExpiresAt) {
		return StatusExpired
	}
	return b.Status
}

func scanBid(row interface{ Scan(...interface{}) error }) (*Bid, error) {
	var b Bid
	var months sql.NullInt64
	var deposit decimal.NullDecimal
	var utilities bool
	var moveIn sql.NullTime

	err := row.Scan(
		&b.ID, &b.PropertyID, &b.BidderID, &b.BidType, &b.Amount, &b.Status,
		&months, &deposit, &utilities, &moveIn,
		&b.Message, &b.RejectionReason, &b.DecidedBy,
		&b.CreatedAt, &b.ExpiresAt, &b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if b.BidType == TypeRental {
		b.Rental = &RentalTerms{
			DurationMonths:    int(months.Int64),
			SecurityDeposit:   deposit.Decimal,
			UtilitiesIncluded: utilities,
		}
		if moveIn.Valid {
			t := moveIn.Time.UTC()
			b.Rental.MoveInDate = &t
		}
	}
	return &b, nil
}
