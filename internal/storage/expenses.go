package storage

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/ledgerlens/ledgerlens/internal/model"
	"github.com/ledgerlens/ledgerlens/internal/service"
)

// SaveExpense persists an accepted expense. Amounts are stored as exact
// decimal strings, never floats.
func (s *SQLiteStorage) SaveExpense(ctx context.Context, userID string, expense *model.ResolvedExpense) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(userID, "userID"); err != nil {
		return err
	}
	if err := validateExpense(expense); err != nil {
		return err
	}

	lowConfidence, err := encodeStrings(expense.LowConfidence)
	if err != nil {
		return err
	}
	lineItems, err := encodeLineItems(expense.LineItems)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO expenses (id, user_id, occurred_at, amount, currency, description,
			merchant, category, source, low_confidence, line_items)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = s.db.ExecContext(ctx, query,
		expense.ID, userID, expense.OccurredAt.UTC(), expense.Amount.String(),
		expense.Currency, expense.Description, expense.Merchant,
		expense.Category, string(expense.Source), lowConfidence, lineItems)
	if err != nil {
		return fmt.Errorf("failed to save expense: %w", err)
	}

	slog.Debug("saved expense", "id", expense.ID, "category", expense.Category)
	return nil
}

// GetExpenses returns a user's expenses, newest first, narrowed by the filter.
func (s *SQLiteStorage) GetExpenses(ctx context.Context, userID string, filter service.ExpenseFilter) ([]model.ResolvedExpense, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(userID, "userID"); err != nil {
		return nil, err
	}

	var conditions []string
	args := []any{userID}
	conditions = append(conditions, "user_id = ?")

	if filter.StartDate != nil {
		conditions = append(conditions, "occurred_at >= ?")
		args = append(args, filter.StartDate.UTC())
	}
	if filter.EndDate != nil {
		conditions = append(conditions, "occurred_at <= ?")
		args = append(args, filter.EndDate.UTC())
	}
	if filter.Category != "" {
		conditions = append(conditions, "category = ?")
		args = append(args, filter.Category)
	}

	query := fmt.Sprintf(`
		SELECT id, occurred_at, amount, currency, description, merchant,
			category, source, low_confidence, line_items
		FROM expenses
		WHERE %s
		ORDER BY occurred_at DESC`, strings.Join(conditions, " AND "))

	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query expenses: %w", err)
	}
	defer rows.Close()

	var expenses []model.ResolvedExpense
	for rows.Next() {
		var exp model.ResolvedExpense
		var amount, source, lowConfidence, lineItems string
		if err := rows.Scan(&exp.ID, &exp.OccurredAt, &amount, &exp.Currency,
			&exp.Description, &exp.Merchant, &exp.Category, &source,
			&lowConfidence, &lineItems); err != nil {
			return nil, fmt.Errorf("failed to scan expense: %w", err)
		}

		exp.Amount, err = decimal.NewFromString(amount)
		if err != nil {
			return nil, fmt.Errorf("failed to parse stored amount %q: %w", amount, err)
		}
		exp.Source = model.Modality(source)
		if exp.LowConfidence, err = decodeStrings(lowConfidence); err != nil {
			return nil, err
		}
		if exp.LineItems, err = decodeLineItems(lineItems); err != nil {
			return nil, err
		}

		expenses = append(expenses, exp)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating expenses: %w", err)
	}
	return expenses, nil
}

// GetExpenseHistory returns recent (description, category) pairs for the
// categorizer's lexical fallback.
func (s *SQLiteStorage) GetExpenseHistory(ctx context.Context, userID string, limit int) ([]model.ExpenseRecord, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(userID, "userID"); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 100
	}

	query := `
		SELECT description, category
		FROM expenses
		WHERE user_id = ?
		ORDER BY created_at DESC
		LIMIT ?`

	rows, err := s.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query expense history: %w", err)
	}
	defer rows.Close()

	var records []model.ExpenseRecord
	for rows.Next() {
		var rec model.ExpenseRecord
		if err := rows.Scan(&rec.Description, &rec.Category); err != nil {
			return nil, fmt.Errorf("failed to scan history record: %w", err)
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating expense history: %w", err)
	}
	return records, nil
}
