// Package storage provides the SQLite persistence layer.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ledgerlens/ledgerlens/internal/model"
)

// Validation errors.
var (
	ErrNilContext     = errors.New("context cannot be nil")
	ErrEmptyString    = errors.New("string parameter cannot be empty")
	ErrNilParameter   = errors.New("parameter cannot be nil")
	ErrInvalidExpense = errors.New("invalid expense")
	ErrInvalidProfile = errors.New("invalid profile")
	ErrReservedName   = errors.New("category name is reserved")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

// validateExpense checks the invariants a resolved expense must carry
// before it is persisted.
func validateExpense(expense *model.ResolvedExpense) error {
	if expense == nil {
		return fmt.Errorf("%w: expense", ErrNilParameter)
	}
	if expense.ID == "" {
		return fmt.Errorf("%w: missing ID", ErrInvalidExpense)
	}
	if !expense.Amount.IsPositive() {
		return fmt.Errorf("%w: amount must be positive", ErrInvalidExpense)
	}
	if len(expense.Currency) != 3 {
		return fmt.Errorf("%w: currency must be a 3-letter code", ErrInvalidExpense)
	}
	if strings.TrimSpace(expense.Description) == "" {
		return fmt.Errorf("%w: missing description", ErrInvalidExpense)
	}
	if strings.TrimSpace(expense.Category) == "" {
		return fmt.Errorf("%w: missing category", ErrInvalidExpense)
	}
	if expense.OccurredAt.IsZero() {
		return fmt.Errorf("%w: missing date", ErrInvalidExpense)
	}
	return nil
}

// validateProfile checks a user profile before it is persisted.
func validateProfile(profile *model.UserProfile) error {
	if profile == nil {
		return fmt.Errorf("%w: profile", ErrNilParameter)
	}
	if strings.TrimSpace(profile.UserID) == "" {
		return fmt.Errorf("%w: missing user ID", ErrInvalidProfile)
	}
	if len(profile.HomeCurrency) != 3 {
		return fmt.Errorf("%w: home currency must be a 3-letter code", ErrInvalidProfile)
	}
	if profile.ConfidenceThreshold < 0 || profile.ConfidenceThreshold > 1 {
		return fmt.Errorf("%w: confidence threshold must be between 0 and 1", ErrInvalidProfile)
	}
	return nil
}
