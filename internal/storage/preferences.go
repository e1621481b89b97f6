package storage

import (
	"database/sql"
	"fmt"
	"strconv"

	"github.com/go-playground/validator/v10"
)

const (
	ThemeLight = "light"
	ThemeDark  = "dark"
)

const (
	keyTheme                = "theme"
	keyAffirmationsEnabled  = "affirmations_enabled"
	keyNotificationsEnabled = "notifications_enabled"
	keyNotificationHour     = "notification_hour"
	keyNotificationMinute   = "notification_minute"
)

// Preferences are the user settings persisted between runs.
type Preferences struct {
	Theme                string `json:"theme" yaml:"theme" validate:"oneof=light dark"`
	AffirmationsEnabled  bool   `json:"affirmations_enabled" yaml:"affirmations_enabled"`
	NotificationsEnabled bool   `json:"notifications_enabled" yaml:"notifications_enabled"`
	NotificationHour     int    `json:"notification_hour" yaml:"notification_hour" validate:"min=0,max=23"`
	NotificationMinute   int    `json:"notification_minute" yaml:"notification_minute" validate:"min=0,max=59"`
}

// DefaultPreferences returns the settings used before anything is saved.
func DefaultPreferences() Preferences {
	return Preferences{
		Theme:               ThemeLight,
		AffirmationsEnabled: true,
		NotificationHour:    8,
	}
}

var validate = validator.New()

// Validate checks the preference ranges.
func (p Preferences) Validate() error {
	if err := validate.Struct(p); err != nil {
		return fmt.Errorf("invalid preferences: %w", err)
	}
	return nil
}

// Preferences loads the stored settings. Missing or unparsable keys keep
// their default value.
func (db *DB) Preferences() (Preferences, error) {
	p := DefaultPreferences()

	rows, err := db.conn.Query(`SELECT key, value FROM preferences`)
	if err != nil {
		return p, fmt.Errorf("failed to query preferences: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return p, fmt.Errorf("failed to scan preference: %w", err)
		}
		switch key {
		case keyTheme:
			if value == ThemeLight || value == ThemeDark {
				p.Theme = value
			}
		case keyAffirmationsEnabled:
			if b, err := strconv.ParseBool(value); err == nil {
				p.AffirmationsEnabled = b
			}
		case keyNotificationsEnabled:
			if b, err := strconv.ParseBool(value); err == nil {
				p.NotificationsEnabled = b
			}
		case keyNotificationHour:
			if n, err := strconv.Atoi(value); err == nil && n >= 0 && n <= 23 {
				p.NotificationHour = n
			}
		case keyNotificationMinute:
			if n, err := strconv.Atoi(value); err == nil && n >= 0 && n <= 59 {
				p.NotificationMinute = n
			}
		}
	}
	if err := rows.Err(); err != nil {
		return p, fmt.Errorf("failed to read preferences: %w", err)
	}
	return p, nil
}

// SavePreferences validates p and writes every key in one transaction.
func (db *DB) SavePreferences(p Preferences) error {
	if err := p.Validate(); err != nil {
		return err
	}

	values := map[string]string{
		keyTheme:                p.Theme,
		keyAffirmationsEnabled:  strconv.FormatBool(p.AffirmationsEnabled),
		keyNotificationsEnabled: strconv.FormatBool(p.NotificationsEnabled),
		keyNotificationHour:     strconv.Itoa(p.NotificationHour),
		keyNotificationMinute:   strconv.Itoa(p.NotificationMinute),
	}

	return db.withTx(func(tx *sql.Tx) error {
		for key, value := range values {
			if _, err := tx.Exec(`
				INSERT INTO preferences (key, value) VALUES (?, ?)
				ON CONFLICT(key) DO UPDATE SET value = excluded.value
			`, key, value); err != nil {
				return fmt.Errorf("failed to save preference %s: %w", key, err)
			}
		}
		return nil
	})
}

// UpdatePreferences loads the current settings, applies fn and saves them.
func (db *DB) UpdatePreferences(fn func(*Preferences)) (Preferences, error) {
	p, err := db.Preferences()
	if err != nil {
		return p, err
	}
	fn(&p)
	if err := db.SavePreferences(p); err != nil {
		return p, err
	}
	return p, nil
}

func (db *DB) withTx(fn func(*sql.Tx) error) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
