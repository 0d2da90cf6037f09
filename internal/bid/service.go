package bid

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/evcraddock/estate-bids/internal/apperr"
	"github.com/evcraddock/estate-bids/internal/auth"
	"github.com/evcraddock/estate-bids/internal/notify"
	"github.com/evcraddock/estate-bids/internal/property"
)

// Properties is the property lookup the bid workflow needs.
type Properties interface {
	GetByID(ctx context.Context, id string) (*property.Property, error)
	ManagerChain(ctx context.Context, p *property.Property) ([]string, error)
}

// Service runs the bid state machine. All state lives in the store; every
// status change is a conditional write against the status the service read.
type Service struct {
	repo       *Repository
	properties Properties
	notifier   notify.Dispatcher
	validate   *validator.Validate
	now        func() time.Time
	ttl        time.Duration
}

// NewService creates a bid service.
func NewService(repo *Repository, properties Properties, notifier notify.Dispatcher) *Service {
	return &Service{
		repo:       repo,
		properties: properties,
		notifier:   notifier,
		validate:   newValidator(),
		now:        func() time.Time { return time.Now().UTC() },
		ttl:        TTL,
	}
}

// SetClock replaces the time source. Used by tests.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// SetTTL overrides the bid validity window.
func (s *Service) SetTTL(ttl time.Duration) {
	if ttl > 0 {
		s.ttl = ttl
	}
}

// SubmitInput holds a new bid as entered by the bidder.
type SubmitInput struct {
	PropertyID string          `json:"property_id" validate:"required"`
	BidType    Type            `json:"bid_type" validate:"required,oneof=purchase rental"`
	Amount     decimal.Decimal `json:"amount"`
	Rental     *RentalInput    `json:"rental,omitempty"`
	Message    string          `json:"message,omitempty" validate:"max=2000"`
}

// RentalInput holds the rental terms of a submission.
type RentalInput struct {
	DurationMonths    int             `json:"duration_months" validate:"min=1"`
	SecurityDeposit   decimal.Decimal `json:"security_deposit"`
	UtilitiesIncluded bool            `json:"utilities_included"`
	MoveInDate        *time.Time      `json:"move_in_date,omitempty"`
}

// Submit creates a pending bid. Every failed precondition is reported in a
// single VALIDATION_ERROR.
func (s *Service) Submit(ctx context.Context, in SubmitInput, actor auth.Identity) (*Bid, error) {
	if in.BidType == TypePurchase {
		in.Rental = nil
	}
	violations := s.structViolations(in)

	var p *property.Property
	if in.PropertyID != "" {
		var err error
		p, err = s.properties.GetByID(ctx, in.PropertyID)
		if err != nil {
			return nil, err
		}
	}

	now := s.now()
	if p != nil {
		violations = append(violations, checkAgainstProperty(in, p, actor)...)
	}
	violations = append(violations, checkTerms(in, now)...)
	if len(violations) > 0 {
		return nil, apperr.Validation(violations...)
	}

	if err := s.checkNoLiveBid(ctx, p.ID, actor.UserID, now); err != nil {
		return nil, err
	}

	b := &Bid{
		ID:         uuid.NewString(),
		PropertyID: p.ID,
		BidderID:   actor.UserID,
		BidType:    in.BidType,
		Amount:     in.Amount,
		Status:     StatusPending,
		Message:    in.Message,
		CreatedAt:  now,
		ExpiresAt:  now.Add(s.ttl),
		UpdatedAt:  now,
	}
	if in.BidType == TypeRental {
		b.Rental = &RentalTerms{
			DurationMonths:    in.Rental.DurationMonths,
			SecurityDeposit:   in.Rental.SecurityDeposit,
			UtilitiesIncluded: in.Rental.UtilitiesIncluded,
		}
		if in.Rental.MoveInDate != nil {
			d := in.Rental.MoveInDate.UTC()
			b.Rental.MoveInDate = &d
		}
	}

	if err := s.repo.Insert(ctx, b); err != nil {
		return nil, err
	}

	slog.Info("bid submitted",
		"bid_id", b.ID,
		"property_id", b.PropertyID,
		"bidder", b.BidderID,
		"amount", b.Amount.String(),
	)

	s.notifyManagers(ctx, p, b, notify.BidSubmitted,
		fmt.Sprintf("New %s bid of %s on %s", b.BidType, b.Amount.String(), p.Title))

	return b, nil
}

// ApproveByManager moves a pending bid to manager_approved.
func (s *Service) ApproveByManager(ctx context.Context, id string, actor auth.Identity) (*Bid, error) {
	b, p, err := s.transition(ctx, id, StatusManagerApproved, actor, "", func(b *Bid, p *property.Property) error {
		if !actor.CanManage() {
			return apperr.PermissionDenied("only managers can approve bids")
		}
		return nil
	})
	if err != nil || p == nil {
		return b, err
	}

	notify.Send(ctx, s.notifier, notify.New(p.OwnerID, notify.BidManagerApproved, p.ID, b.ID,
		fmt.Sprintf("A bid of %s on %s is awaiting your approval", b.Amount.String(), p.Title)))
	return b, nil
}

// ApproveByOwner accepts a manager-approved bid. Only the property's current
// owner may do this. Acceptance is the hook for contract creation and is
// announced as bid_accepted.
func (s *Service) ApproveByOwner(ctx context.Context, id string, actor auth.Identity) (*Bid, error) {
	b, p, err := s.transition(ctx, id, StatusOwnerApproved, actor, "", func(b *Bid, p *property.Property) error {
		if actor.UserID != p.OwnerID {
			return apperr.PermissionDenied("only the owner of property %s can accept bids", p.ID)
		}
		return nil
	})
	if err != nil || p == nil {
		return b, err
	}

	msg := fmt.Sprintf("Bid of %s on %s was accepted", b.Amount.String(), p.Title)
	notify.Send(ctx, s.notifier,
		notify.New(b.BidderID, notify.BidAccepted, p.ID, b.ID, msg),
		notify.New(p.OwnerID, notify.BidAccepted, p.ID, b.ID, msg),
	)
	return b, nil
}

// Reject declines a live bid. Managers may reject at either stage; the
// current owner may reject once a manager has approved.
func (s *Service) Reject(ctx context.Context, id string, reason string, actor auth.Identity) (*Bid, error) {
	reason = strings.TrimSpace(reason)
	b, p, err := s.transition(ctx, id, StatusRejected, actor, reason, func(b *Bid, p *property.Property) error {
		if actor.CanManage() {
			return nil
		}
		if actor.UserID == p.OwnerID && b.Status != StatusPending {
			return nil
		}
		return apperr.PermissionDenied("not allowed to reject bid %s", b.ID)
	})
	if err != nil || p == nil {
		return b, err
	}

	msg := fmt.Sprintf("Your bid on %s was rejected", p.Title)
	if reason != "" {
		msg += ": " + reason
	}
	notify.Send(ctx, s.notifier, notify.New(b.BidderID, notify.BidRejected, p.ID, b.ID, msg))
	return b, nil
}

// Withdraw lets the bidder retract a live bid before it expires.
func (s *Service) Withdraw(ctx context.Context, id string, actor auth.Identity) (*Bid, error) {
	b, p, err := s.transition(ctx, id, StatusWithdrawn, actor, "", func(b *Bid, p *property.Property) error {
		if actor.UserID != b.BidderID {
			return apperr.PermissionDenied("only the bidder can withdraw bid %s", b.ID)
		}
		return nil
	})
	if err != nil || p == nil {
		return b, err
	}

	s.notifyManagers(ctx, p, b, notify.BidWithdrawn,
		fmt.Sprintf("A bid of %s on %s was withdrawn", b.Amount.String(), p.Title))
	return b, nil
}

// Get returns a bid with its effective status.
func (s *Service) Get(ctx context.Context, id string) (*Bid, error) {
	b, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.settle(ctx, b, s.now()), nil
}

// ListForProperty returns the bids on a property. Managers and the current
// owner see every bid; anyone else sees only their own.
func (s *Service) ListForProperty(ctx context.Context, propertyID string, actor auth.Identity) ([]*Bid, error) {
	p, err := s.properties.GetByID(ctx, propertyID)
	if err != nil {
		return nil, err
	}

	opts := ListOptions{PropertyID: p.ID}
	if !actor.CanManage() && actor.UserID != p.OwnerID {
		opts.BidderID = actor.UserID
	}
	return s.list(ctx, opts)
}

// ListForBidder returns every bid placed by bidderID.
func (s *Service) ListForBidder(ctx context.Context, bidderID string) ([]*Bid, error) {
	return s.list(ctx, ListOptions{BidderID: bidderID})
}

func (s *Service) list(ctx context.Context, opts ListOptions) ([]*Bid, error) {
	bids, err := s.repo.List(ctx, opts)
	if err != nil {
		return nil, err
	}
	now := s.now()
	for i, b := range bids {
		bids[i] = s.settle(ctx, b, now)
	}
	return bids, nil
}

type permitFunc func(b *Bid, p *property.Property) error

// transition runs one requested move. It returns a nil property when the
// bid was already in the target state, so callers skip notifications.
func (s *Service) transition(ctx context.Context, id string, to Status, actor auth.Identity, reason string, permit permitFunc) (*Bid, *property.Property, error) {
	b, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	p, err := s.properties.GetByID(ctx, b.PropertyID)
	if err != nil {
		return nil, nil, fmt.Errorf("loading property of bid %s: %w", b.ID, err)
	}

	now := s.now()
	from := EffectiveStatus(b, now)

	if err := permit(b, p); err != nil {
		return nil, nil, err
	}
	if from == to {
		return b, nil, nil
	}
	if from == StatusExpired {
		s.settle(ctx, b, now)
		return nil, nil, apperr.Expired("bid %s expired at %s", b.ID, b.ExpiresAt.Format(time.RFC3339))
	}
	if !CanTransition(from, to) {
		return nil, nil, apperr.InvalidTransition(string(from), string(to))
	}

	change := Change{From: from, To: to, DecidedBy: actor.UserID, RejectionReason: reason, At: now}
	if to != StatusRejected {
		change.RejectionReason = b.RejectionReason
	}

	err = s.repo.Transition(ctx, b.ID, change)
	if errors.Is(err, ErrStatusChanged) {
		current, readErr := s.repo.GetByID(ctx, b.ID)
		if readErr != nil {
			return nil, nil, fmt.Errorf("re-reading bid after lost update: %w", readErr)
		}
		got := EffectiveStatus(current, s.now())
		return nil, nil, apperr.PreconditionFailed(string(got), "bid %s moved to %s before it could become %s", b.ID, got, to)
	}
	if err != nil {
		return nil, nil, err
	}

	b.Status = to
	b.DecidedBy = change.DecidedBy
	b.RejectionReason = change.RejectionReason
	b.UpdatedAt = now

	slog.Info("bid transition",
		"bid_id", b.ID,
		"from", from,
		"to", to,
		"actor", actor.UserID,
	)
	return b, p, nil
}

// settle persists a lazy expiry when the stored status is stale. The
// returned bid always carries the effective status, even if the write lost
// a race or failed.
func (s *Service) settle(ctx context.Context, b *Bid, now time.Time) *Bid {
	eff := EffectiveStatus(b, now)
	if eff == b.Status {
		return b
	}

	err := s.repo.Expire(ctx, b.ID, b.Status, now)
	switch {
	case err == nil:
		slog.Info("bid transition", "bid_id", b.ID, "from", b.Status, "to", eff, "actor", "")
		b.UpdatedAt = now
	case errors.Is(err, ErrStatusChanged):
	default:
		slog.Warn("failed to record bid expiry", "bid_id", b.ID, "error", err)
	}

	b.Status = eff
	return b
}

// checkNoLiveBid expires stale live bids for the pair, then fails with
// CONFLICT if one is still live.
func (s *Service) checkNoLiveBid(ctx context.Context, propertyID, bidderID string, now time.Time) error {
	live, err := s.repo.List(ctx, ListOptions{PropertyID: propertyID, BidderID: bidderID, LiveOnly: true})
	if err != nil {
		return err
	}
	for _, b := range live {
		if s.settle(ctx, b, now).Status.IsLive() {
			return apperr.Conflict("bidder %s already has a live bid %s on property %s", bidderID, b.ID, propertyID)
		}
	}
	return nil
}

func (s *Service) notifyManagers(ctx context.Context, p *property.Property, b *Bid, kind notify.Kind, msg string) {
	ids, err := s.properties.ManagerChain(context.WithoutCancel(ctx), p)
	if err != nil {
		slog.Warn("failed to resolve manager chain", "property_id", p.ID, "error", err)
		return
	}
	notes := make([]notify.Notification, 0, len(ids))
	for _, id := range ids {
		notes = append(notes, notify.New(id, kind, p.ID, b.ID, msg))
	}
	notify.Send(ctx, s.notifier, notes...)
}

func checkAgainstProperty(in SubmitInput, p *property.Property, actor auth.Identity) []apperr.Violation {
	var v []apperr.Violation
	add := func(field, format string, args ...any) {
		v = append(v, apperr.Violation{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	if !p.IsAcceptingBids {
		add("property_id", "property %s is not accepting bids", p.ID)
	}
	if p.Status != property.StatusAvailable {
		add("property_id", "property %s is %s, not available", p.ID, p.Status)
	}
	if actor.UserID == p.OwnerID {
		add("bidder_id", "owners cannot bid on their own property")
	}
	switch in.BidType {
	case TypeRental:
		if !p.ListingType.AllowsRent() {
			add("bid_type", "property %s is not listed for rent", p.ID)
		}
	case TypePurchase:
		if !p.ListingType.AllowsSale() {
			add("bid_type", "property %s is not listed for sale", p.ID)
		}
	}
	if p.MinimumBidAmount.Valid && in.Amount.LessThan(p.MinimumBidAmount.Decimal) {
		add("amount", "amount must be at least %s", p.MinimumBidAmount.Decimal.String())
	}
	if p.MaximumBidAmount.Valid && in.Amount.GreaterThan(p.MaximumBidAmount.Decimal) {
		add("amount", "amount must be at most %s", p.MaximumBidAmount.Decimal.String())
	}
	return v
}

func checkTerms(in SubmitInput, now time.Time) []apperr.Violation {
	var v []apperr.Violation
	if !in.Amount.IsPositive() {
		v = append(v, apperr.Violation{Field: "amount", Message: "amount must be positive"})
	}
	if in.BidType != TypeRental {
		return v
	}
	if in.Rental == nil {
		return append(v, apperr.Violation{Field: "rental", Message: "rental terms are required for rental bids"})
	}
	if in.Rental.SecurityDeposit.IsNegative() {
		v = append(v, apperr.Violation{Field: "rental.security_deposit", Message: "security_deposit cannot be negative"})
	}
	if in.Rental.MoveInDate != nil && day(*in.Rental.MoveInDate).Before(day(now)) {
		v = append(v, apperr.Violation{Field: "rental.move_in_date", Message: "move_in_date cannot be in the past"})
	}
	return v
}

func day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func (s *Service) structViolations(in SubmitInput) []apperr.Violation {
	err := s.validate.Struct(in)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []apperr.Violation{{Field: "", Message: err.Error()}}
	}

	violations := make([]apperr.Violation, 0, len(verrs))
	for _, fe := range verrs {
		field := fe.Namespace()
		if _, rest, ok := strings.Cut(field, "."); ok {
			field = rest
		}
		violations = append(violations, apperr.Violation{Field: field, Message: describe(fe)})
	}
	return violations
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", fe.Field(), fe.Param())
	case "min":
		return fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param())
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param())
		}
		return fmt.Sprintf("%s must be at most %s", fe.Field(), fe.Param())
	}
	return fmt.Sprintf("%s failed %s check", fe.Field(), fe.Tag())
}
