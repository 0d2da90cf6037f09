// Package property provides the property domain model, data access, and the
// ownership transfer workflow.
package property

import (
	"database/sql"
	"time"

	"github.com/shopspring/decimal"
)

// Status is the occupancy state of a property.
type Status string

const (
	StatusAvailable   Status = "available"
	StatusRented      Status = "rented"
	StatusMaintenance Status = "maintenance"
	StatusReserved    Status = "reserved"
)

// ValidStatus returns true if s is a known property status.
func ValidStatus(s Status) bool {
	switch s {
	case StatusAvailable, StatusRented, StatusMaintenance, StatusReserved:
		return true
	}
	return false
}

// ListingType says which kinds of bids a property takes.
type ListingType string

const (
	ListingRent ListingType = "rent"
	ListingSale ListingType = "sale"
	ListingBoth ListingType = "both"
)

// ValidListingType returns true if t is a known listing type.
func ValidListingType(t ListingType) bool {
	switch t {
	case ListingRent, ListingSale, ListingBoth:
		return true
	}
	return false
}

// AllowsRent reports whether rental bids may be placed.
func (t ListingType) AllowsRent() bool { return t == ListingRent || t == ListingBoth }

// AllowsSale reports whether purchase bids may be placed.
func (t ListingType) AllowsSale() bool { return t == ListingSale || t == ListingBoth }

// Property is a listing that can receive bids.
type Property struct {
	ID               string              `json:"id"`
	OwnerID          string              `json:"owner_id"`
	ManagerID        string              `json:"manager_id,omitempty"`
	Title            string              `json:"title"`
	Address          string              `json:"address"`
	Status           Status              `json:"status"`
	IsAcceptingBids  bool                `json:"is_accepting_bids"`
	MinimumBidAmount decimal.NullDecimal `json:"minimum_bid_amount"`
	MaximumBidAmount decimal.NullDecimal `json:"maximum_bid_amount"`
	ListingType      ListingType         `json:"listing_type"`
	CreatedAt        time.Time           `json:"created_at"`
	UpdatedAt        time.Time           `json:"updated_at"`
}

// OpenForBids reports whether new bids may be created right now.
func (p *Property) OpenForBids() bool {
	return p.IsAcceptingBids && p.Status == StatusAvailable
}

// OwnershipTransfer is one append-only audit record of an owner change.
type OwnershipTransfer struct {
	ID              int64     `json:"id"`
	PropertyID      string    `json:"property_id"`
	PreviousOwnerID string    `json:"previous_owner_id"`
	NewOwnerID      string    `json:"new_owner_id"`
	PerformedBy     string    `json:"performed_by"`
	Timestamp       time.Time `json:"timestamp"`
}

// scanProperty scans a property from a database row.
func scanProperty(row interface{ Scan(...interface{}) error }) (*Property, error) {
	var p Property
	var managerID sql.NullString

	err := row.Scan(
		&p.ID, &p.OwnerID, &managerID, &p.Title, &p.Address,
		&p.Status, &p.IsAcceptingBids, &p.MinimumBidAmount, &p.MaximumBidAmount,
		&p.ListingType, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if managerID.Valid {
		p.ManagerID = managerID.String
	}
	return &p, nil
}
