package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// ExpectedSchemaVersion is the latest schema version the application expects.
const ExpectedSchemaVersion = 3

// Migration represents a database schema migration.
type Migration struct {
	Up          func(*sql.Tx) error
	Description string
	Version     int
}

// seedCategories is the default taxonomy installed on a fresh database.
// Anchors are keywords the categorizer matches extraction guesses against.
var seedCategories = []struct {
	name    string
	anchors []string
}{
	{"Food & Dining", []string{"food", "meal", "restaurant", "cafe", "lunch", "dinner", "coffee", "takeout"}},
	{"Groceries", []string{"grocery", "supermarket", "market", "produce"}},
	{"Transportation", []string{"taxi", "uber", "fuel", "gas", "parking", "transit", "train", "bus"}},
	{"Shopping", []string{"clothing", "electronics", "amazon", "store"}},
	{"Entertainment", []string{"movie", "concert", "streaming", "games", "tickets"}},
	{"Bills & Utilities", []string{"electricity", "water", "internet", "phone", "rent", "subscription"}},
	{"Health", []string{"pharmacy", "doctor", "dentist", "gym", "medicine"}},
	{"Travel", []string{"hotel", "flight", "airline", "airbnb", "visa"}},
	{"Education", []string{"tuition", "course", "books", "training"}},
	{"Other", nil},
	{"Uncategorized", nil},
}

var migrations = []Migration{
	{
		Version:     1,
		Description: "Initial schema",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS categories (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					name TEXT UNIQUE NOT NULL,
					parent TEXT NOT NULL DEFAULT '',
					anchors TEXT NOT NULL DEFAULT '[]',
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					is_active BOOLEAN DEFAULT 1
				)`,
				`CREATE INDEX idx_categories_active ON categories(is_active)`,

				`CREATE TABLE IF NOT EXISTS expenses (
					id TEXT PRIMARY KEY,
					user_id TEXT NOT NULL,
					occurred_at DATETIME NOT NULL,
					amount TEXT NOT NULL,
					currency TEXT NOT NULL,
					description TEXT NOT NULL,
					merchant TEXT NOT NULL DEFAULT '',
					category TEXT NOT NULL,
					source TEXT NOT NULL DEFAULT '',
					low_confidence TEXT NOT NULL DEFAULT '[]',
					line_items TEXT NOT NULL DEFAULT '[]',
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
				`CREATE INDEX idx_expenses_user_date ON expenses(user_id, occurred_at)`,
				`CREATE INDEX idx_expenses_category ON expenses(category)`,

				`CREATE TABLE IF NOT EXISTS profiles (
					user_id TEXT PRIMARY KEY,
					home_currency TEXT NOT NULL,
					locale TEXT NOT NULL DEFAULT '',
					confidence_threshold REAL NOT NULL DEFAULT 0.6,
					updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query: %w", err)
				}
			}
			return nil
		},
	},
	{
		Version:     2,
		Description: "Seed default category taxonomy",
		Up: func(tx *sql.Tx) error {
			stmt, err := tx.Prepare(`
				INSERT INTO categories (name, anchors, is_active)
				VALUES (?, ?, 1)
				ON CONFLICT(name) DO NOTHING`)
			if err != nil {
				return fmt.Errorf("failed to prepare seed statement: %w", err)
			}
			defer stmt.Close()

			for _, seed := range seedCategories {
				anchors, err := encodeStrings(seed.anchors)
				if err != nil {
					return fmt.Errorf("failed to encode anchors for %s: %w", seed.name, err)
				}
				if _, err := stmt.Exec(seed.name, anchors); err != nil {
					return fmt.Errorf("failed to seed category %s: %w", seed.name, err)
				}
			}
			return nil
		},
	},
	{
		Version:     3,
		Description: "Index expenses by description for history lookups",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`CREATE INDEX IF NOT EXISTS idx_expenses_user_created ON expenses(user_id, created_at)`)
			return err
		},
	},
}

// Migrate applies any pending schema migrations.
func (s *SQLiteStorage) Migrate(ctx context.Context) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	var currentVersion int
	err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&currentVersion)
	if err != nil {
		return fmt.Errorf("failed to get schema version: %w", err)
	}

	for _, migration := range migrations {
		if migration.Version <= currentVersion {
			continue
		}

		tx, txErr := s.db.BeginTx(ctx, nil)
		if txErr != nil {
			return fmt.Errorf("failed to begin transaction: %w", txErr)
		}

		if upErr := migration.Up(tx); upErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d failed: %w", migration.Version, upErr)
		}

		if _, execErr := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", migration.Version)); execErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to update schema version: %w", execErr)
		}

		if commitErr := tx.Commit(); commitErr != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, commitErr)
		}

		slog.Info("Applied migration",
			"version", migration.Version,
			"description", migration.Description)
	}

	return nil
}
