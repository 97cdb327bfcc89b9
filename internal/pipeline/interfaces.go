package pipeline

import (
	"context"
	"time"

	"github.com/ledgerlens/ledgerlens/internal/categorize"
	"github.com/ledgerlens/ledgerlens/internal/model"
	"github.com/ledgerlens/ledgerlens/internal/resolve"
)

// Normalizer converts raw input into extractor-ready content.
type Normalizer interface {
	Normalize(ctx context.Context, input model.RawInput) (model.NormalizedContent, error)
}

// Extractor produces a candidate expense from normalized content.
type Extractor interface {
	Extract(ctx context.Context, content model.NormalizedContent, profile model.UserProfile) (model.CandidateExpense, error)
}

// Resolver validates a candidate against domain invariants.
type Resolver interface {
	Resolve(candidate model.CandidateExpense, profile model.UserProfile, capturedAt time.Time) resolve.Resolution
}

// Categorizer assigns a taxonomy category to a candidate.
type Categorizer interface {
	Categorize(candidate model.CandidateExpense, taxonomy []model.Category, history []model.ExpenseRecord) categorize.Assignment
}

// Snapshotter loads the read-only taxonomy and history snapshots taken at
// invocation start.
type Snapshotter interface {
	GetCategories(ctx context.Context) ([]model.Category, error)
	GetExpenseHistory(ctx context.Context, userID string, limit int) ([]model.ExpenseRecord, error)
}
