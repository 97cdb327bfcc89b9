// Package service defines the interfaces for all application services.
package service

import (
	"context"
	"time"

	"github.com/ledgerlens/ledgerlens/internal/model"
)

// Transcriber converts speech audio into text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error)
}

// VisionReader extracts raw line-item text fragments from an image.
// No numeric parsing happens here; that is the extraction engine's job.
type VisionReader interface {
	ExtractLineItems(ctx context.Context, image []byte, mimeType string) (model.NormalizedContent, error)
}

// TaxonomyStore provides read access to the category taxonomy.
type TaxonomyStore interface {
	GetCategories(ctx context.Context) ([]model.Category, error)
	GetCategoryByName(ctx context.Context, name string) (*model.Category, error)
}

// ProfileStore provides read access to per-user settings.
type ProfileStore interface {
	GetProfile(ctx context.Context, userID string) (*model.UserProfile, error)
}

// HistoryStore provides a read-only snapshot of a user's past expenses
// for the categorizer's lexical fallback.
type HistoryStore interface {
	GetExpenseHistory(ctx context.Context, userID string, limit int) ([]model.ExpenseRecord, error)
}

// ExpenseFilter defines filtering options for expense queries.
type ExpenseFilter struct {
	StartDate *time.Time
	EndDate   *time.Time
	Category  string
	Limit     int
}

// Storage defines the contract for our persistence layer.
type Storage interface {
	TaxonomyStore
	ProfileStore
	HistoryStore

	// Expense operations
	SaveExpense(ctx context.Context, userID string, expense *model.ResolvedExpense) error
	GetExpenses(ctx context.Context, userID string, filter ExpenseFilter) ([]model.ResolvedExpense, error)

	// Taxonomy write operations (user-initiated only)
	CreateCategory(ctx context.Context, category *model.Category) (*model.Category, error)
	ArchiveCategory(ctx context.Context, name string) error

	// Profile write operations
	SaveProfile(ctx context.Context, profile *model.UserProfile) error

	// Database management
	Migrate(ctx context.Context) error
	Close() error
}
