package bid

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/evcraddock/estate-bids/internal/apperr"
)

// ErrStatusChanged is returned by conditional writes when the stored status
// no longer matches the expected one.
var ErrStatusChanged = errors.New("bid status changed concurrently")

// Repository provides data access for bids.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a bid repository.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const selectColumns = `id, property_id, bidder_id, bid_type, amount, status,
	rental_months, security_deposit, utilities_included, move_in_date,
	message, rejection_reason, decided_by, created_at, expires_at, updated_at`

// Insert stores a new bid. A second live bid for the same property and
// bidder is rejected by the store with a CONFLICT error.
func (r *Repository) Insert(ctx context.Context, b *Bid) error {
	var months sql.NullInt64
	var deposit decimal.NullDecimal
	var utilities bool
	var moveIn sql.NullTime
	if b.Rental != nil {
		months = sql.NullInt64{Int64: int64(b.Rental.DurationMonths), Valid: true}
		deposit = decimal.NewNullDecimal(b.Rental.SecurityDeposit)
		utilities = b.Rental.UtilitiesIncluded
		if b.Rental.MoveInDate != nil {
			moveIn = sql.NullTime{Time: b.Rental.MoveInDate.UTC(), Valid: true}
		}
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO bids (id, property_id, bidder_id, bid_type, amount, status,
			rental_months, security_deposit, utilities_included, move_in_date,
			message, rejection_reason, decided_by, created_at, expires_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.ID, b.PropertyID, b.BidderID, string(b.BidType), b.Amount, string(b.Status),
		months, deposit, utilities, moveIn,
		b.Message, b.RejectionReason, b.DecidedBy, b.CreatedAt, b.ExpiresAt, b.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperr.Conflict("bidder %s already has a live bid on property %s", b.BidderID, b.PropertyID)
		}
		return fmt.Errorf("inserting bid: %w", err)
	}
	return nil
}

// GetByID returns the stored bid. The status is not adjusted for expiry.
func (r *Repository) GetByID(ctx context.Context, id string) (*Bid, error) {
	query := fmt.Sprintf("SELECT %s FROM bids WHERE id = ?", selectColumns)
	b, err := scanBid(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("bid %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("querying bid %s: %w", id, err)
	}
	return b, nil
}

// ListOptions controls filtering for List.
type ListOptions struct {
	PropertyID string
	BidderID   string
	LiveOnly   bool
}

// List returns bids matching opts, newest first.
func (r *Repository) List(ctx context.Context, opts ListOptions) (bids []*Bid, err error) {
	query := fmt.Sprintf("SELECT %s FROM bids", selectColumns)
	var args []interface{}
	var conditions []string

	if opts.PropertyID != "" {
		conditions = append(conditions, "property_id = ?")
		args = append(args, opts.PropertyID)
	}
	if opts.BidderID != "" {
		conditions = append(conditions, "bidder_id = ?")
		args = append(args, opts.BidderID)
	}
	if opts.LiveOnly {
		conditions = append(conditions, "status IN ('pending', 'manager_approved')")
	}

	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY created_at DESC, id"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing bids: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("closing rows: %w", closeErr)
		}
	}()

	for rows.Next() {
		b, err := scanBid(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning bid: %w", err)
		}
		bids = append(bids, b)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating bids: %w", err)
	}

	return bids, nil
}

// Change is one conditional status write.
type Change struct {
	From            Status
	To              Status
	DecidedBy       string
	RejectionReason string
	At              time.Time
}

// Transition moves a bid from c.From to c.To only if its stored status is
// still c.From. It returns ErrStatusChanged when the compare fails.
func (r *Repository) Transition(ctx context.Context, id string, c Change) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE bids SET status = ?, decided_by = ?, rejection_reason = ?, updated_at = ?
		 WHERE id = ? AND status = ?`,
		string(c.To), c.DecidedBy, c.RejectionReason, c.At, id, string(c.From),
	)
	if err != nil {
		return fmt.Errorf("updating bid status: %w", err)
	}
	return requireOneRow(result)
}

// Expire records that a live bid has run out its window.
func (r *Repository) Expire(ctx context.Context, id string, from Status, at time.Time) error {
	result, err := r.db.ExecContext(ctx,
		"UPDATE bids SET status = ?, updated_at = ? WHERE id = ? AND status = ?",
		string(StatusExpired), at, id, string(from),
	)
	if err != nil {
		return fmt.Errorf("expiring bid: %w", err)
	}
	return requireOneRow(result)
}

func requireOneRow(result sql.Result) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rows == 0 {
		return ErrStatusChanged
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var se sqlite3.Error
	if errors.As(err, &se) {
		return se.ExtendedCode == sqlite3.ErrConstraintUnique || se.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}
