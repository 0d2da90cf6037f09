package profile

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/evcraddock/estate-bids/internal/apperr"
)

// Repository provides access to profiles.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a profile repository.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const selectColumns = `id, email, name, role, created_at`

// Insert creates a profile. A new ID is generated when p.ID is empty.
func (r *Repository) Insert(ctx context.Context, p *Profile) (*Profile, error) {
	email := strings.ToLower(strings.TrimSpace(p.Email))
	var violations []apperr.Violation
	if email == "" {
		violations = append(violations, apperr.Violation{Field: "email", Message: "email is required"})
	}
	if !p.Role.IsValid() {
		violations = append(violations, apperr.Violation{Field: "role", Message: fmt.Sprintf("unknown role %q", p.Role)})
	}
	if len(violations) > 0 {
		return nil, apperr.Validation(violations...)
	}

	id := p.ID
	if id == "" {
		id = uuid.NewString()
	}

	_, err := r.db.ExecContext(ctx,
		"INSERT INTO profiles (id, email, name, role, created_at) VALUES (?, ?, ?, ?, ?)",
		id, email, strings.TrimSpace(p.Name), string(p.Role), time.Now().UTC(),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE") {
			return nil, apperr.Conflict("profile already exists: %s", email)
		}
		return nil, fmt.Errorf("inserting profile: %w", err)
	}

	return r.GetByID(ctx, id)
}

// GetByID returns a profile by ID.
func (r *Repository) GetByID(ctx context.Context, id string) (*Profile, error) {
	query := fmt.Sprintf("SELECT %s FROM profiles WHERE id = ?", selectColumns)

	var p Profile
	err := r.db.QueryRowContext(ctx, query, id).Scan(&p.ID, &p.Email, &p.Name, &p.Role, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("profile %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("querying profile %s: %w", id, err)
	}
	return &p, nil
}

// ListOptions controls filtering for List.
type ListOptions struct {
	Role Role // empty = all
}

// List returns profiles ordered by email.
func (r *Repository) List(ctx context.Context, opts ListOptions) (profiles []*Profile, err error) {
	query := fmt.Sprintf("SELECT %s FROM profiles", selectColumns)
	var args []interface{}
	if opts.Role != "" {
		query += " WHERE role = ?"
		args = append(args, string(opts.Role))
	}
	query += " ORDER BY email"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing profiles: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("closing rows: %w", closeErr)
		}
	}()

	for rows.Next() {
		var p Profile
		if err := rows.Scan(&p.ID, &p.Email, &p.Name, &p.Role, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning profile: %w", err)
		}
		profiles = append(profiles, &p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating profiles: %w", err)
	}

	return profiles, nil
}
