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

// GetCategories returns all active categories ordered by name.
func (s *SQLiteStorage) GetCategories(ctx context.Context) ([]model.Category, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	query := `
		SELECT id, name, parent, anchors, created_at, is_active
		FROM categories
		WHERE is_active = 1
		ORDER BY name`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}
	defer rows.Close()

	var categories []model.Category
	for rows.Next() {
		cat, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		categories = append(categories, cat)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating categories: %w", err)
	}

	slog.Debug("retrieved categories", "count", len(categories))
	return categories, nil
}

// GetCategoryByName returns an active category by its name, or nil when
// no such category exists.
func (s *SQLiteStorage) GetCategoryByName(ctx context.Context, name string) (*model.Category, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(name, "name"); err != nil {
		return nil, err
	}

	query := `
		SELECT id, name, parent, anchors, created_at, is_active
		FROM categories
		WHERE name = ? AND is_active = 1`

	row := s.db.QueryRowContext(ctx, query, name)
	cat, err := scanCategory(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &cat, nil
}

// CreateCategory creates a new category, or reactivates an archived one
// with the same name.
func (s *SQLiteStorage) CreateCategory(ctx context.Context, category *model.Category) (*model.Category, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if category == nil {
		return nil, fmt.Errorf("%w: category", ErrNilParameter)
	}
	if err := validateString(category.Name, "name"); err != nil {
		return nil, err
	}

	existingQuery := `
		SELECT id, name, parent, anchors, created_at, is_active
		FROM categories
		WHERE name = ?`

	existing, err := scanCategory(s.db.QueryRowContext(ctx, existingQuery, category.Name))
	if err == nil {
		if !existing.IsActive {
			updateQuery := `UPDATE categories SET is_active = 1 WHERE id = ?`
			if _, err := s.db.ExecContext(ctx, updateQuery, existing.ID); err != nil {
				return nil, fmt.Errorf("failed to reactivate category: %w", err)
			}
			existing.IsActive = true
			slog.Info("reactivated existing category", "name", existing.Name)
		}
		return &existing, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to check existing category: %w", err)
	}

	anchors, err := encodeStrings(category.Anchors)
	if err != nil {
		return nil, err
	}

	insertQuery := `
		INSERT INTO categories (name, parent, anchors, created_at, is_active)
		VALUES (?, ?, ?, ?, 1)`

	now := time.Now().UTC()
	result, err := s.db.ExecContext(ctx, insertQuery, category.Name, category.Parent, anchors, now)
	if err != nil {
		return nil, fmt.Errorf("failed to create category: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get category ID: %w", err)
	}

	created := &model.Category{
		ID:        int(id),
		Name:      category.Name,
		Parent:    category.Parent,
		Anchors:   category.Anchors,
		CreatedAt: now,
		IsActive:  true,
	}

	slog.Info("created new category", "name", created.Name, "id", id)
	return created, nil
}

// ArchiveCategory deactivates a category without deleting its history.
// The reserved Uncategorized entry can never be archived.
func (s *SQLiteStorage) ArchiveCategory(ctx context.Context, name string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(name, "name"); err != nil {
		return err
	}
	if name == model.UncategorizedName {
		return fmt.Errorf("%w: %s", ErrReservedName, name)
	}

	result, err := s.db.ExecContext(ctx, `UPDATE categories SET is_active = 0 WHERE name = ? AND is_active = 1`, name)
	if err != nil {
		return fmt.Errorf("failed to archive category: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check archive result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("category %q not found or already archived", name)
	}

	slog.Info("archived category", "name", name)
	return nil
}

// scanner abstracts sql.Row and sql.Rows for shared scan code.
type scanner interface {
	Scan(dest ...any) error
}

func scanCategory(row scanner) (model.Category, error) {
	var cat model.Category
	var anchors string
	if err := row.Scan(&cat.ID, &cat.Name, &cat.Parent, &anchors, &cat.CreatedAt, &cat.IsActive); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return cat, err
		}
		return cat, fmt.Errorf("failed to scan category: %w", err)
	}

	decoded, err := decodeStrings(anchors)
	if err != nil {
		return cat, err
	}
	cat.Anchors = decoded
	return cat, nil
}
