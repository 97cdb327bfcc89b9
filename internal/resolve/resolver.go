// Package resolve applies deterministic validation rules to candidate
// expenses. No model calls happen here: this boundary bounds how much an
// unreliable extractor can mutate financial records without confirmation.
package resolve

import (
	"strings"
	"time"

	"golang.org/x/text/currency"

	"github.com/ledgerlens/ledgerlens/internal/model"
)

// DefaultConfidenceThreshold gates auto-acceptance when the extractor's
// per-field confidence is low.
const DefaultConfidenceThreshold = 0.6

// Resolution is the outcome of resolving a candidate. When AmbiguousFields
// is empty, Resolved is populated and ready for categorization; otherwise
// the caller must confirm the named fields.
type Resolution struct {
	Resolved        *model.ResolvedExpense
	AmbiguousFields []string
}

// NeedsConfirmation reports whether any field requires user confirmation.
func (r Resolution) NeedsConfirmation() bool {
	return len(r.AmbiguousFields) > 0
}

// Resolver checks candidates against domain invariants and fills defaults.
type Resolver struct {
	defaultThreshold float64
}

// New creates a resolver. A zero threshold selects the default.
func New(threshold float64) *Resolver {
	if threshold <= 0 {
		threshold = DefaultConfidenceThreshold
	}
	return &Resolver{defaultThreshold: threshold}
}

// Resolve applies the validation rules in order: amount positivity,
// currency recognition (defaulting, never blocking), date defaulting and
// future rejection, then the confidence gate. The same candidate always
// yields the same resolution.
func (r *Resolver) Resolve(candidate model.CandidateExpense, profile model.UserProfile, capturedAt time.Time) Resolution {
	var ambiguous []string
	var lowConfidence []string

	threshold := r.defaultThreshold
	if profile.ConfidenceThreshold > 0 {
		threshold = profile.ConfidenceThreshold
	}

	// Rule 1: amount must be a positive decimal.
	if !candidate.Amount.IsPositive() {
		ambiguous = append(ambiguous, model.FieldAmount)
	} else if candidate.FieldConfidence(model.FieldAmount) < threshold {
		// Rule 4 for amount: syntactically valid but not trusted.
		ambiguous = append(ambiguous, model.FieldAmount)
	}

	// Rule 2: currency must be a recognized ISO-4217 code. Unrecognized
	// codes fall back to the home currency and are flagged, not blocked.
	code := strings.ToUpper(strings.TrimSpace(candidate.Currency))
	if !validCurrency(code) {
		code = strings.ToUpper(strings.TrimSpace(profile.HomeCurrency))
		if !validCurrency(code) {
			code = "USD"
		}
		lowConfidence = append(lowConfidence, model.FieldCurrency)
	} else if candidate.FieldConfidence(model.FieldCurrency) < threshold {
		lowConfidence = append(lowConfidence, model.FieldCurrency)
	}

	// Rule 3: absent date defaults to the capture timestamp; a future
	// date is ambiguous.
	occurredAt := capturedAt
	if candidate.OccurredAt != nil {
		occurredAt = *candidate.OccurredAt
		if occurredAt.After(time.Now()) {
			ambiguous = append(ambiguous, model.FieldDate)
		} else if candidate.FieldConfidence(model.FieldDate) < threshold {
			ambiguous = append(ambiguous, model.FieldDate)
		}
	}

	// Rule 4: remaining required fields below the confidence threshold
	// route to confirmation even when syntactically valid.
	if candidate.Description == "" || candidate.FieldConfidence(model.FieldDescription) < threshold {
		ambiguous = append(ambiguous, model.FieldDescription)
	}

	if len(ambiguous) > 0 {
		return Resolution{AmbiguousFields: ambiguous}
	}

	return Resolution{
		Resolved: &model.ResolvedExpense{
			Amount:        candidate.Amount,
			Currency:      code,
			OccurredAt:    occurredAt,
			Description:   candidate.Description,
			Merchant:      candidate.Merchant,
			LineItems:     candidate.LineItems,
			Source:        candidate.Source,
			LowConfidence: lowConfidence,
		},
	}
}

// validCurrency reports whether code is a recognized 3-letter ISO-4217 unit.
func validCurrency(code string) bool {
	if len(code) != 3 {
		return false
	}
	_, err := currency.ParseISO(code)
	return err == nil
}
