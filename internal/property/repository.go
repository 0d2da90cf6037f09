package property

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/evcraddock/estate-bids/internal/apperr"
)

// ErrOwnerChanged is returned by SwapOwner when the stored owner no longer
// matches the expected one.
var ErrOwnerChanged = errors.New("owner changed concurrently")

// Repository provides data access for properties and their ownership log.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a property repository.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const insertSQL = `INSERT INTO properties
	(id, owner_id, manager_id, title, address, status, is_accepting_bids,
	 minimum_bid_amount, maximum_bid_amount, listing_type, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

const selectColumns = `id, owner_id, manager_id, title, address, status, is_accepting_bids,
	minimum_bid_amount, maximum_bid_amount, listing_type, created_at, updated_at`

// Insert adds a new property and returns it as stored.
func (r *Repository) Insert(ctx context.Context, p *Property) (*Property, error) {
	_, err := r.db.ExecContext(ctx, insertSQL,
		p.ID, p.OwnerID, nullString(p.ManagerID), p.Title, p.Address,
		string(p.Status), p.IsAcceptingBids,
		p.MinimumBidAmount, p.MaximumBidAmount,
		string(p.ListingType), p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("inserting property: %w", err)
	}

	return r.GetByID(ctx, p.ID)
}

// GetByID returns a property by its ID.
func (r *Repository) GetByID(ctx context.Context, id string) (*Property, error) {
	query := fmt.Sprintf("SELECT %s FROM properties WHERE id = ?", selectColumns)
	row := r.db.QueryRowContext(ctx, query, id)

	p, err := scanProperty(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("property %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("querying property %s: %w", id, err)
	}

	return p, nil
}

// ListOptions controls filtering for List.
type ListOptions struct {
	Status        Status // empty = all
	OwnerID       string // empty = all
	AcceptingBids *bool
}

// List returns properties, newest first, optionally filtered.
func (r *Repository) List(ctx context.Context, opts ListOptions) (properties []*Property, err error) {
	query := fmt.Sprintf("SELECT %s FROM properties", selectColumns)
	var args []interface{}
	var conditions []string

	if opts.Status != "" {
		conditions = append(conditions, "status = ?")
		args = append(args, string(opts.Status))
	}
	if opts.OwnerID != "" {
		conditions = append(conditions, "owner_id = ?")
		args = append(args, opts.OwnerID)
	}
	if opts.AcceptingBids != nil {
		conditions = append(conditions, "is_accepting_bids = ?")
		args = append(args, *opts.AcceptingBids)
	}

	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY created_at DESC, id"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing properties: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("closing rows: %w", closeErr)
		}
	}()

	for rows.Next() {
		p, err := scanProperty(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning property: %w", err)
		}
		properties = append(properties, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating properties: %w", err)
	}

	return properties, nil
}

// UpdateListing writes the listing fields of p. Ownership is never changed
// here; see SwapOwner.
func (r *Repository) UpdateListing(ctx context.Context, p *Property) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE properties SET status = ?, is_accepting_bids = ?, minimum_bid_amount = ?,
		 maximum_bid_amount = ?, listing_type = ?, manager_id = ?, updated_at = ? WHERE id = ?`,
		string(p.Status), p.IsAcceptingBids, p.MinimumBidAmount, p.MaximumBidAmount,
		string(p.ListingType), nullString(p.ManagerID), p.UpdatedAt, p.ID,
	)
	if err != nil {
		return fmt.Errorf("updating property: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rows == 0 {
		return apperr.NotFound("property %s not found", p.ID)
	}

	return nil
}

// SwapOwner replaces the owner of a property only if it is still
// expectedOwnerID, and appends the audit record in the same transaction.
// It returns ErrOwnerChanged when the compare fails.
func (r *Repository) SwapOwner(ctx context.Context, propertyID, expectedOwnerID, newOwnerID, performedBy string, at time.Time) (transfer *OwnershipTransfer, err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transfer: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				err = fmt.Errorf("%w (also failed to roll back: %v)", err, rbErr)
			}
		}
	}()

	result, err := tx.ExecContext(ctx,
		"UPDATE properties SET owner_id = ?, updated_at = ? WHERE id = ? AND owner_id = ?",
		newOwnerID, at, propertyID, expectedOwnerID,
	)
	if err != nil {
		return nil, fmt.Errorf("updating owner: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("checking rows affected: %w", err)
	}
	if rows == 0 {
		return nil, ErrOwnerChanged
	}

	result, err = tx.ExecContext(ctx,
		`INSERT INTO ownership_transfers (property_id, previous_owner_id, new_owner_id, performed_by, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		propertyID, expectedOwnerID, newOwnerID, performedBy, at,
	)
	if err != nil {
		return nil, fmt.Errorf("recording transfer: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting transfer id: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing transfer: %w", err)
	}

	return &OwnershipTransfer{
		ID:              id,
		PropertyID:      propertyID,
		PreviousOwnerID: expectedOwnerID,
		NewOwnerID:      newOwnerID,
		PerformedBy:     performedBy,
		Timestamp:       at,
	}, nil
}

// ListTransfers returns the ownership history of a property, oldest first.
func (r *Repository) ListTransfers(ctx context.Context, propertyID string) (transfers []*OwnershipTransfer, err error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, property_id, previous_owner_id, new_owner_id, performed_by, created_at
		 FROM ownership_transfers WHERE property_id = ? ORDER BY id`,
		propertyID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing transfers: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("closing rows: %w", closeErr)
		}
	}()

	for rows.Next() {
		var t OwnershipTransfer
		if err := rows.Scan(&t.ID, &t.PropertyID, &t.PreviousOwnerID, &t.NewOwnerID, &t.PerformedBy, &t.Timestamp); err != nil {
			return nil, fmt.Errorf("scanning transfer: %w", err)
		}
		transfers = append(transfers, &t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating transfers: %w", err)
	}

	return transfers, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
