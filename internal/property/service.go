package property

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/evcraddock/estate-bids/internal/apperr"
	"github.com/evcraddock/estate-bids/internal/auth"
	"github.com/evcraddock/estate-bids/internal/notify"
	"github.com/evcraddock/estate-bids/internal/profile"
)

// Profiles is the profile lookup the service needs.
type Profiles interface {
	GetByID(ctx context.Context, id string) (*profile.Profile, error)
	List(ctx context.Context, opts profile.ListOptions) ([]*profile.Profile, error)
}

// Service provides property business logic and ownership transfer.
type Service struct {
	repo     *Repository
	profiles Profiles
	notifier notify.Dispatcher
	now      func() time.Time
}

// NewService creates a property service.
func NewService(repo *Repository, profiles Profiles, notifier notify.Dispatcher) *Service {
	return &Service{
		repo:     repo,
		profiles: profiles,
		notifier: notifier,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// SetClock replaces the time source. Used by tests.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// CreateInput holds the fields for a new property.
type CreateInput struct {
	OwnerID          string              `json:"owner_id"`
	ManagerID        string              `json:"manager_id,omitempty"`
	Title            string              `json:"title"`
	Address          string              `json:"address"`
	Status           Status              `json:"status,omitempty"`
	IsAcceptingBids  bool                `json:"is_accepting_bids"`
	MinimumBidAmount decimal.NullDecimal `json:"minimum_bid_amount"`
	MaximumBidAmount decimal.NullDecimal `json:"maximum_bid_amount"`
	ListingType      ListingType         `json:"listing_type,omitempty"`
}

// Create stores a new property. Only managers and admins may list properties.
func (s *Service) Create(ctx context.Context, in CreateInput, actor auth.Identity) (*Property, error) {
	if !actor.CanManage() {
		return nil, apperr.PermissionDenied("only managers can create properties")
	}

	if in.Status == "" {
		in.Status = StatusAvailable
	}
	if in.ListingType == "" {
		in.ListingType = ListingBoth
	}

	var violations []apperr.Violation
	if strings.TrimSpace(in.Title) == "" {
		violations = append(violations, apperr.Violation{Field: "title", Message: "title is required"})
	}
	if strings.TrimSpace(in.Address) == "" {
		violations = append(violations, apperr.Violation{Field: "address", Message: "address is required"})
	}
	if in.OwnerID == "" {
		violations = append(violations, apperr.Violation{Field: "owner_id", Message: "owner_id is required"})
	}
	violations = append(violations, checkListing(in.Status, in.ListingType, in.MinimumBidAmount, in.MaximumBidAmount)...)
	if len(violations) > 0 {
		return nil, apperr.Validation(violations...)
	}

	if err := s.requireRole(ctx, "owner_id", in.OwnerID, profile.RoleOwner); err != nil {
		return nil, err
	}
	if in.ManagerID != "" {
		if err := s.requireManager(ctx, in.ManagerID); err != nil {
			return nil, err
		}
	}

	now := s.now()
	p := &Property{
		ID:               uuid.NewString(),
		OwnerID:          in.OwnerID,
		ManagerID:        in.ManagerID,
		Title:            strings.TrimSpace(in.Title),
		Address:          strings.TrimSpace(in.Address),
		Status:           in.Status,
		IsAcceptingBids:  in.IsAcceptingBids,
		MinimumBidAmount: in.MinimumBidAmount,
		MaximumBidAmount: in.MaximumBidAmount,
		ListingType:      in.ListingType,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	saved, err := s.repo.Insert(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("saving property: %w", err)
	}

	slog.Info("property created", "property_id", saved.ID, "owner", saved.OwnerID, "actor", actor.UserID)
	return saved, nil
}

// GetByID returns a property.
func (s *Service) GetByID(ctx context.Context, id string) (*Property, error) {
	return s.repo.GetByID(ctx, id)
}

// List returns properties matching opts.
func (s *Service) List(ctx context.Context, opts ListOptions) ([]*Property, error) {
	return s.repo.List(ctx, opts)
}

// ListingUpdate is a partial update of the listing fields. Nil fields are
// left alone.
type ListingUpdate struct {
	Status           *Status              `json:"status,omitempty"`
	IsAcceptingBids  *bool                `json:"is_accepting_bids,omitempty"`
	ListingType      *ListingType         `json:"listing_type,omitempty"`
	ManagerID        *string              `json:"manager_id,omitempty"`
	MinimumBidAmount *decimal.NullDecimal `json:"minimum_bid_amount,omitempty"`
	MaximumBidAmount *decimal.NullDecimal `json:"maximum_bid_amount,omitempty"`
	// ClearMinimum and ClearMaximum remove a bound.
	ClearMinimum bool `json:"clear_minimum,omitempty"`
	ClearMaximum bool `json:"clear_maximum,omitempty"`
}

// UpdateListing applies u to a property. Live bids are not touched when a
// property stops accepting bids; they can still be decided.
func (s *Service) UpdateListing(ctx context.Context, id string, u ListingUpdate, actor auth.Identity) (*Property, error) {
	if !actor.CanManage() {
		return nil, apperr.PermissionDenied("only managers can update listings")
	}

	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if u.Status != nil {
		p.Status = *u.Status
	}
	if u.IsAcceptingBids != nil {
		p.IsAcceptingBids = *u.IsAcceptingBids
	}
	if u.ListingType != nil {
		p.ListingType = *u.ListingType
	}
	if u.MinimumBidAmount != nil {
		p.MinimumBidAmount = *u.MinimumBidAmount
	}
	if u.MaximumBidAmount != nil {
		p.MaximumBidAmount = *u.MaximumBidAmount
	}
	if u.ClearMinimum {
		p.MinimumBidAmount = decimal.NullDecimal{}
	}
	if u.ClearMaximum {
		p.MaximumBidAmount = decimal.NullDecimal{}
	}
	if u.ManagerID != nil {
		if *u.ManagerID != "" {
			if err := s.requireManager(ctx, *u.ManagerID); err != nil {
				return nil, err
			}
		}
		p.ManagerID = *u.ManagerID
	}

	if violations := checkListing(p.Status, p.ListingType, p.MinimumBidAmount, p.MaximumBidAmount); len(violations) > 0 {
		return nil, apperr.Validation(violations...)
	}

	p.UpdatedAt = s.now()
	if err := s.repo.UpdateListing(ctx, p); err != nil {
		return nil, err
	}

	slog.Info("listing updated", "property_id", p.ID, "status", p.Status, "accepting_bids", p.IsAcceptingBids, "actor", actor.UserID)
	return s.repo.GetByID(ctx, id)
}

// TransferInput requests an ownership change. ExpectedOwnerID is the owner
// the caller last saw; when set the transfer only succeeds if it is still
// the owner at write time.
type TransferInput struct {
	PropertyID      string `json:"property_id"`
	NewOwnerID      string `json:"new_owner_id"`
	ExpectedOwnerID string `json:"expected_owner_id,omitempty"`
}

// TransferOwnership reassigns the owner of a property and appends one audit
// record. The owner update and the audit insert commit together or not at
// all. Existing bids are left as they are.
func (s *Service) TransferOwnership(ctx context.Context, in TransferInput, actor auth.Identity) (*Property, error) {
	if !actor.CanManage() {
		return nil, apperr.PermissionDenied("only managers can transfer ownership")
	}
	if in.NewOwnerID == "" {
		return nil, apperr.Validation(apperr.Violation{Field: "new_owner_id", Message: "new_owner_id is required"})
	}

	p, err := s.repo.GetByID(ctx, in.PropertyID)
	if err != nil {
		return nil, err
	}
	if err := s.requireRole(ctx, "new_owner_id", in.NewOwnerID, profile.RoleOwner); err != nil {
		return nil, err
	}
	if in.NewOwnerID == p.OwnerID {
		return nil, apperr.NoChange("%s already owns property %s", in.NewOwnerID, p.ID)
	}

	expected := p.OwnerID
	if in.ExpectedOwnerID != "" {
		if in.ExpectedOwnerID != p.OwnerID {
			return nil, apperr.PreconditionFailed(p.OwnerID, "owner of property %s changed to %s", p.ID, p.OwnerID)
		}
		expected = in.ExpectedOwnerID
	}

	transfer, err := s.repo.SwapOwner(ctx, p.ID, expected, in.NewOwnerID, actor.UserID, s.now())
	if errors.Is(err, ErrOwnerChanged) {
		current, readErr := s.repo.GetByID(ctx, p.ID)
		if readErr != nil {
			return nil, fmt.Errorf("re-reading property after lost transfer: %w", readErr)
		}
		return nil, apperr.PreconditionFailed(current.OwnerID, "owner of property %s changed to %s", p.ID, current.OwnerID)
	}
	if err != nil {
		return nil, err
	}

	slog.Info("ownership transferred",
		"property_id", p.ID,
		"from", transfer.PreviousOwnerID,
		"to", transfer.NewOwnerID,
		"actor", actor.UserID,
	)

	notify.Send(ctx, s.notifier, notify.New(
		transfer.NewOwnerID, notify.OwnershipTransferred, p.ID, "",
		fmt.Sprintf("You are now the owner of %s", p.Title),
	))

	return s.repo.GetByID(context.WithoutCancel(ctx), p.ID)
}

// ListTransfers returns the ownership audit log of a property.
func (s *Service) ListTransfers(ctx context.Context, propertyID string) ([]*OwnershipTransfer, error) {
	if _, err := s.repo.GetByID(ctx, propertyID); err != nil {
		return nil, err
	}
	return s.repo.ListTransfers(ctx, propertyID)
}

// ManagerChain returns the profile IDs that handle bids on p: its manager
// when one is assigned, otherwise every manager.
func (s *Service) ManagerChain(ctx context.Context, p *Property) ([]string, error) {
	if p.ManagerID != "" {
		return []string{p.ManagerID}, nil
	}

	managers, err := s.profiles.List(ctx, profile.ListOptions{Role: profile.RoleManager})
	if err != nil {
		return nil, fmt.Errorf("listing managers: %w", err)
	}
	ids := make([]string, 0, len(managers))
	for _, m := range managers {
		ids = append(ids, m.ID)
	}
	return ids, nil
}

func (s *Service) requireRole(ctx context.Context, field, id string, role profile.Role) error {
	pr, err := s.profiles.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if pr.Role != role {
		return apperr.Validation(apperr.Violation{
			Field:   field,
			Message: fmt.Sprintf("profile %s has role %s, want %s", id, pr.Role, role),
		})
	}
	return nil
}

func (s *Service) requireManager(ctx context.Context, id string) error {
	pr, err := s.profiles.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !pr.Role.CanManage() {
		return apperr.Validation(apperr.Violation{
			Field:   "manager_id",
			Message: fmt.Sprintf("profile %s cannot manage properties", id),
		})
	}
	return nil
}

func checkListing(status Status, lt ListingType, lo, hi decimal.NullDecimal) []apperr.Violation {
	var violations []apperr.Violation
	if !ValidStatus(status) {
		violations = append(violations, apperr.Violation{Field: "status", Message: fmt.Sprintf("unknown status %q", status)})
	}
	if !ValidListingType(lt) {
		violations = append(violations, apperr.Violation{Field: "listing_type", Message: fmt.Sprintf("unknown listing type %q", lt)})
	}
	if lo.Valid && lo.Decimal.IsNegative() {
		violations = append(violations, apperr.Violation{Field: "minimum_bid_amount", Message: "minimum_bid_amount cannot be negative"})
	}
	if hi.Valid && !hi.Decimal.IsPositive() {
		violations = append(violations, apperr.Violation{Field: "maximum_bid_amount", Message: "maximum_bid_amount must be positive"})
	}
	if lo.Valid && hi.Valid && lo.Decimal.GreaterThan(hi.Decimal) {
		violations = append(violations, apperr.Violation{Field: "maximum_bid_amount", Message: "maximum_bid_amount is below minimum_bid_amount"})
	}
	return violations
}
