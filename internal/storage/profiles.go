package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ledgerlens/ledgerlens/internal/model"
)

// GetProfile returns the stored profile for a user, or nil when the user
// has never been seen.
func (s *SQLiteStorage) GetProfile(ctx context.Context, userID string) (*model.UserProfile, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(userID, "userID"); err != nil {
		return nil, err
	}

	query := `
		SELECT user_id, home_currency, locale, confidence_threshold
		FROM profiles
		WHERE user_id = ?`

	var profile model.UserProfile
	err := s.db.QueryRowContext(ctx, query, userID).Scan(
		&profile.UserID, &profile.HomeCurrency, &profile.Locale, &profile.ConfidenceThreshold,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query profile: %w", err)
	}
	return &profile, nil
}

// SaveProfile inserts or replaces a user profile.
func (s *SQLiteStorage) SaveProfile(ctx context.Context, profile *model.UserProfile) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateProfile(profile); err != nil {
		return err
	}

	query := `
		INSERT INTO profiles (user_id, home_currency, locale, confidence_threshold, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			home_currency = excluded.home_currency,
			locale = excluded.locale,
			confidence_threshold = excluded.confidence_threshold,
			updated_at = excluded.updated_at`

	_, err := s.db.ExecContext(ctx, query,
		profile.UserID, profile.HomeCurrency, profile.Locale,
		profile.ConfidenceThreshold, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to save profile: %w", err)
	}

	slog.Debug("saved profile", "user_id", profile.UserID, "home_currency", profile.HomeCurrency)
	return nil
}
