package storage

import (
	"database/sql"
	"fmt"
	"time"
)

// Donation is one row of the local donation ledger.
type Donation struct {
	Token       string
	ProductID   string
	PurchasedAt time.Time
	ConsumedAt  sql.NullTime
}

// InsertDonation records a purchase that has not been consumed yet.
func (db *DB) InsertDonation(token, productID string, at time.Time) error {
	_, err := db.conn.Exec(`
		INSERT INTO donations (token, product_id, purchased_at)
		VALUES (?, ?, ?)
	`, token, productID, at.Unix())
	if err != nil {
		return fmt.Errorf("failed to insert donation %s: %w", token, err)
	}
	return nil
}

// ConsumeDonation marks a purchase consumed. It returns ErrNotFound when the
// token is unknown or was already consumed.
func (db *DB) ConsumeDonation(token string, at time.Time) error {
	res, err := db.conn.Exec(`
		UPDATE donations SET consumed_at = ?
		WHERE token = ? AND consumed_at IS NULL
	`, at.Unix(), token)
	if err != nil {
		return fmt.Errorf("failed to consume donation %s: %w", token, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to consume donation %s: %w", token, err)
	}
	if n == 0 {
		return fmt.Errorf("donation %s: %w", token, ErrNotFound)
	}
	return nil
}

// Donations lists the ledger, newest first.
func (db *DB) Donations() ([]Donation, error) {
	rows, err := db.conn.Query(`
		SELECT token, product_id, purchased_at, consumed_at
		FROM donations ORDER BY purchased_at DESC, token
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query donations: %w", err)
	}
	defer rows.Close()

	var out []Donation
	for rows.Next() {
		var (
			d         Donation
			purchased int64
			consumed  sql.NullInt64
		)
		if err := rows.Scan(&d.Token, &d.ProductID, &purchased, &consumed); err != nil {
			return nil, fmt.Errorf("failed to scan donation: %w", err)
		}
		d.PurchasedAt = time.Unix(purchased, 0)
		if consumed.Valid {
			d.ConsumedAt = sql.NullTime{Time: time.Unix(consumed.Int64, 0), Valid: true}
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read donations: %w", err)
	}
	return out, nil
}
