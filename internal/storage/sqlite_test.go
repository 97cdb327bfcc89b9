package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerlens/ledgerlens/internal/model"
	"github.com/ledgerlens/ledgerlens/internal/service"
)

func setupTestStorage(t *testing.T) *SQLiteStorage {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	store, err := NewSQLiteStorage(dbPath)
	require.NoError(t, err)
	require.NoError(t, store.Migrate(context.Background()))

	t.Cleanup(func() {
		require.NoError(t, store.Close())
	})
	return store
}

func TestMigrateSeedsTaxonomy(t *testing.T) {
	store := setupTestStorage(t)
	ctx := context.Background()

	categories, err := store.GetCategories(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, categories)

	names := make(map[string]model.Category, len(categories))
	for _, cat := range categories {
		names[cat.Name] = cat
	}

	require.Contains(t, names, "Food & Dining")
	require.Contains(t, names, model.UncategorizedName)
	assert.Contains(t, names["Food & Dining"].Anchors, "restaurant")
	assert.True(t, names[model.UncategorizedName].IsActive)

	// A bare "Food" guess from the extractor must land on the seeded entry.
	assert.True(t, names["Food & Dining"].Matches("Food"))
	assert.True(t, names["Food & Dining"].Matches("meal"))
}

func TestMigrateIsIdempotent(t *testing.T) {
	store := setupTestStorage(t)
	ctx := context.Background()

	require.NoError(t, store.Migrate(ctx))

	categories, err := store.GetCategories(ctx)
	require.NoError(t, err)

	seen := make(map[string]int)
	for _, cat := range categories {
		seen[cat.Name]++
	}
	for name, count := range seen {
		assert.Equal(t, 1, count, "category %s duplicated", name)
	}
}

func TestCreateAndArchiveCategory(t *testing.T) {
	store := setupTestStorage(t)
	ctx := context.Background()

	created, err := store.CreateCategory(ctx, &model.Category{
		Name:    "Pets",
		Anchors: []string{"vet", "pet food"},
	})
	require.NoError(t, err)
	require.NotNil(t, created)
	assert.NotZero(t, created.ID)
	assert.True(t, created.IsActive)

	fetched, err := store.GetCategoryByName(ctx, "Pets")
	require.NoError(t, err)
	require.NotNil(t, fetched)
	assert.Equal(t, []string{"vet", "pet food"}, fetched.Anchors)

	require.NoError(t, store.ArchiveCategory(ctx, "Pets"))

	gone, err := store.GetCategoryByName(ctx, "Pets")
	require.NoError(t, err)
	assert.Nil(t, gone)

	// Re-creating an archived category reactivates it instead of duplicating.
	revived, err := store.CreateCategory(ctx, &model.Category{Name: "Pets"})
	require.NoError(t, err)
	assert.Equal(t, created.ID, revived.ID)
	assert.True(t, revived.IsActive)
}

func TestArchiveCategoryReservedName(t *testing.T) {
	store := setupTestStorage(t)

	err := store.ArchiveCategory(context.Background(), model.UncategorizedName)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrReservedName)
}

func TestArchiveCategoryNotFound(t *testing.T) {
	store := setupTestStorage(t)

	err := store.ArchiveCategory(context.Background(), "No Such Category")
	assert.Error(t, err)
}

func testExpense(id string, occurredAt time.Time) *model.ResolvedExpense {
	return &model.ResolvedExpense{
		ID:          id,
		OccurredAt:  occurredAt,
		Amount:      decimal.NewFromFloat(25.50),
		Currency:    "USD",
		Description: "lunch at the corner deli",
		Merchant:    "Corner Deli",
		Category:    "Food & Dining",
		Source:      model.ModalityText,
		LineItems: []model.LineItem{
			{Name: "sandwich", Quantity: decimal.NewFromInt(1), UnitPrice: decimal.NewFromFloat(9.50), TotalPrice: decimal.NewFromFloat(9.50)},
		},
		LowConfidence: []string{model.FieldCurrency},
	}
}

func TestSaveAndGetExpenses(t *testing.T) {
	store := setupTestStorage(t)
	ctx := context.Background()

	occurred := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)
	require.NoError(t, store.SaveExpense(ctx, "user-1", testExpense("exp-1", occurred)))

	expenses, err := store.GetExpenses(ctx, "user-1", service.ExpenseFilter{})
	require.NoError(t, err)
	require.Len(t, expenses, 1)

	got := expenses[0]
	assert.Equal(t, "exp-1", got.ID)
	assert.True(t, decimal.NewFromFloat(25.50).Equal(got.Amount))
	assert.Equal(t, "USD", got.Currency)
	assert.Equal(t, "Corner Deli", got.Merchant)
	assert.Equal(t, model.ModalityText, got.Source)
	assert.Equal(t, []string{model.FieldCurrency}, got.LowConfidence)
	require.Len(t, got.LineItems, 1)
	assert.Equal(t, "sandwich", got.LineItems[0].Name)
	assert.True(t, decimal.NewFromFloat(9.50).Equal(got.LineItems[0].TotalPrice))
}

func TestGetExpensesFilter(t *testing.T) {
	store := setupTestStorage(t)
	ctx := context.Background()

	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	for i, cat := range []string{"Food & Dining", "Travel", "Food & Dining"} {
		exp := testExpense("exp-"+cat+string(rune('a'+i)), base.AddDate(0, 0, i))
		exp.Category = cat
		require.NoError(t, store.SaveExpense(ctx, "user-1", exp))
	}

	byCategory, err := store.GetExpenses(ctx, "user-1", service.ExpenseFilter{Category: "Food & Dining"})
	require.NoError(t, err)
	assert.Len(t, byCategory, 2)

	start := base.AddDate(0, 0, 1)
	byDate, err := store.GetExpenses(ctx, "user-1", service.ExpenseFilter{StartDate: &start})
	require.NoError(t, err)
	assert.Len(t, byDate, 2)

	limited, err := store.GetExpenses(ctx, "user-1", service.ExpenseFilter{Limit: 1})
	require.NoError(t, err)
	require.Len(t, limited, 1)
	// Newest first.
	assert.True(t, limited[0].OccurredAt.Equal(base.AddDate(0, 0, 2)))

	other, err := store.GetExpenses(ctx, "user-2", service.ExpenseFilter{})
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestSaveExpenseRejectsInvalid(t *testing.T) {
	store := setupTestStorage(t)
	ctx := context.Background()
	occurred := time.Now().UTC()

	negative := testExpense("exp-neg", occurred)
	negative.Amount = decimal.NewFromFloat(-5)
	assert.ErrorIs(t, store.SaveExpense(ctx, "user-1", negative), ErrInvalidExpense)

	badCurrency := testExpense("exp-cur", occurred)
	badCurrency.Currency = "DOLLARS"
	assert.ErrorIs(t, store.SaveExpense(ctx, "user-1", badCurrency), ErrInvalidExpense)

	assert.ErrorIs(t, store.SaveExpense(ctx, "user-1", nil), ErrNilParameter)
}

func TestGetExpenseHistory(t *testing.T) {
	store := setupTestStorage(t)
	ctx := context.Background()

	occurred := time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC)
	require.NoError(t, store.SaveExpense(ctx, "user-1", testExpense("exp-1", occurred)))

	history, err := store.GetExpenseHistory(ctx, "user-1", 10)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "lunch at the corner deli", history[0].Description)
	assert.Equal(t, "Food & Dining", history[0].Category)
}

func TestProfileRoundTrip(t *testing.T) {
	store := setupTestStorage(t)
	ctx := context.Background()

	missing, err := store.GetProfile(ctx, "user-1")
	require.NoError(t, err)
	assert.Nil(t, missing)

	profile := &model.UserProfile{
		UserID:              "user-1",
		HomeCurrency:        "EUR",
		Locale:              "de-DE",
		ConfidenceThreshold: 0.7,
	}
	require.NoError(t, store.SaveProfile(ctx, profile))

	got, err := store.GetProfile(ctx, "user-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "EUR", got.HomeCurrency)
	assert.Equal(t, "de-DE", got.Locale)
	assert.InDelta(t, 0.7, got.ConfidenceThreshold, 0.0001)

	profile.HomeCurrency = "USD"
	require.NoError(t, store.SaveProfile(ctx, profile))

	updated, err := store.GetProfile(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, "USD", updated.HomeCurrency)
}

func TestSaveProfileRejectsInvalid(t *testing.T) {
	store := setupTestStorage(t)
	ctx := context.Background()

	badThreshold := &model.UserProfile{UserID: "u", HomeCurrency: "USD", ConfidenceThreshold: 1.5}
	assert.ErrorIs(t, store.SaveProfile(ctx, badThreshold), ErrInvalidProfile)

	badCurrency := &model.UserProfile{UserID: "u", HomeCurrency: "US", ConfidenceThreshold: 0.5}
	assert.ErrorIs(t, store.SaveProfile(ctx, badCurrency), ErrInvalidProfile)
}
