package storage

import (
	"database/sql"
	"fmt"
	"time"
)

// LoadFavorites returns the favorite verse ids, oldest first.
func (db *DB) LoadFavorites() ([]string, error) {
	rows, err := db.conn.Query(`SELECT verse_id FROM favorites ORDER BY added_at, verse_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query favorites: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan favorite: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read favorites: %w", err)
	}
	return ids, nil
}

// SaveFavorites replaces the stored set with ids. Ids already stored keep
// their original added_at.
func (db *DB) SaveFavorites(ids []string) error {
	keep := make(map[string]bool, len(ids))
	for _, id := range ids {
		keep[id] = true
	}

	existing, err := db.LoadFavorites()
	if err != nil {
		return err
	}

	now := time.Now().Unix()
	return db.withTx(func(tx *sql.Tx) error {
		for _, id := range existing {
			if keep[id] {
				continue
			}
			if _, err := tx.Exec(`DELETE FROM favorites WHERE verse_id = ?`, id); err != nil {
				return fmt.Errorf("failed to delete favorite %s: %w", id, err)
			}
		}
		for _, id := range ids {
			if _, err := tx.Exec(`
				INSERT OR IGNORE INTO favorites (verse_id, added_at) VALUES (?, ?)
			`, id, now); err != nil {
				return fmt.Errorf("failed to insert favorite %s: %w", id, err)
			}
		}
		return nil
	})
}
