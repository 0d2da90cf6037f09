package db

import (
	"database/sql"
	"fmt"
)

// migrations is an ordered list of SQL statements to run.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS profiles (
		id         TEXT     PRIMARY KEY,
		email      TEXT     NOT NULL UNIQUE,
		name       TEXT     NOT NULL DEFAULT '',
		role       TEXT     NOT NULL CHECK (role IN ('tenant', 'owner', 'manager', 'admin', 'staff', 'buyer')),
		created_at DATETIME NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS properties (
		id                 TEXT     PRIMARY KEY,
		owner_id           TEXT     NOT NULL REFERENCES profiles(id),
		manager_id         TEXT     REFERENCES profiles(id),
		title              TEXT     NOT NULL,
		address            TEXT     NOT NULL DEFAULT '',
		status             TEXT     NOT NULL CHECK (status IN ('available', 'rented', 'maintenance', 'reserved')),
		is_accepting_bids  INTEGER  NOT NULL DEFAULT 0,
		minimum_bid_amount TEXT,
		maximum_bid_amount TEXT,
		listing_type       TEXT     NOT NULL CHECK (listing_type IN ('rent', 'sale', 'both')),
		created_at         DATETIME NOT NULL,
		updated_at         DATETIME NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS bids (
		id                 TEXT     PRIMARY KEY,
		property_id        TEXT     NOT NULL REFERENCES properties(id),
		bidder_id          TEXT     NOT NULL REFERENCES profiles(id),
		bid_type           TEXT     NOT NULL CHECK (bid_type IN ('purchase', 'rental')),
		amount             TEXT     NOT NULL,
		status             TEXT     NOT NULL CHECK (status IN ('pending', 'manager_approved', 'owner_approved', 'rejected', 'withdrawn', 'expired')),
		rental_months      INTEGER,
		security_deposit   TEXT,
		utilities_included INTEGER  NOT NULL DEFAULT 0,
		move_in_date       DATETIME,
		message            TEXT     NOT NULL DEFAULT '',
		rejection_reason   TEXT     NOT NULL DEFAULT '',
		created_at         DATETIME NOT NULL,
		expires_at         DATETIME NOT NULL,
		updated_at         DATETIME NOT NULL
	)`,
	// At most one live bid per (property, bidder). Backs the service-level
	// check against concurrent submissions.
	`CREATE UNIQUE INDEX IF NOT EXISTS bids_one_live_per_bidder
		ON bids (property_id, bidder_id)
		WHERE status IN ('pending', 'manager_approved')`,
	`CREATE INDEX IF NOT EXISTS bids_by_bidder ON bids (bidder_id, created_at)`,
	`CREATE TABLE IF NOT EXISTS ownership_transfers (
		id                INTEGER  PRIMARY KEY AUTOINCREMENT,
		property_id       TEXT     NOT NULL REFERENCES properties(id),
		previous_owner_id TEXT     NOT NULL,
		new_owner_id      TEXT     NOT NULL,
		performed_by      TEXT     NOT NULL,
		created_at        DATETIME NOT NULL
	)`,
	`CREATE TRIGGER IF NOT EXISTS ownership_transfers_no_update
		BEFORE UPDATE ON ownership_transfers
		BEGIN SELECT RAISE(ABORT, 'ownership_transfers is append-only'); END`,
	`CREATE TRIGGER IF NOT EXISTS ownership_transfers_no_delete
		BEFORE DELETE ON ownership_transfers
		BEGIN SELECT RAISE(ABORT, 'ownership_transfers is append-only'); END`,
	`CREATE TABLE IF NOT EXISTS notifications (
		id          TEXT     PRIMARY KEY,
		user_id     TEXT     NOT NULL,
		kind        TEXT     NOT NULL,
		property_id TEXT     NOT NULL DEFAULT '',
		bid_id      TEXT     NOT NULL DEFAULT '',
		message     TEXT     NOT NULL DEFAULT '',
		created_at  DATETIME NOT NULL,
		read_at     DATETIME
	)`,
	`CREATE INDEX IF NOT EXISTS notifications_by_user ON notifications (user_id, created_at)`,
}

// migrate runs all migrations in order.
func migrate(db *sql.DB) error {
	for i, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}

	// Column additions (idempotent, checks if column exists first)
	columnMigrations := []struct {
		table, column, definition string
	}{
		{"bids", "decided_by", "TEXT NOT NULL DEFAULT ''"},
	}

	for _, cm := range columnMigrations {
		if err := addColumnIfNotExists(db, cm.table, cm.column, cm.definition); err != nil {
			return fmt.Errorf("adding %s.%s: %w", cm.table, cm.column, err)
		}
	}

	return nil
}

// addColumnIfNotExists adds a column to a table if it doesn't already exist.
func addColumnIfNotExists(db *sql.DB, table, column, definition string) error {
	exists, err := columnExists(db, table, column)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	_, err = db.Exec(fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", table, column, definition))
	return err
}

func columnExists(db *sql.DB, table, column string) (found bool, err error) {
	rows, err := db.Query(fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return false, fmt.Errorf("checking table info: %w", err)
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("closing rows: %w", cerr)
		}
	}()

	for rows.Next() {
		var cid int
		var name, colType string
		var notNull, pk int
		var dfltValue interface{}
		if err := rows.Scan(&cid, &name, &colType, &notNull, &dfltValue, &pk); err != nil {
			return false, fmt.Errorf("scanning column info: %w", err)
		}
		if name == column {
			return true, nil
		}
	}
	if err := rows.Err(); err != nil {
		return false, fmt.Errorf("iterating columns: %w", err)
	}
	return false, nil
}
