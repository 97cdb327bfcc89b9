package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Modality identifies the kind of raw input a user submitted.
type Modality string

// Supported input modalities.
const (
	ModalityText  Modality = "text"
	ModalityVoice Modality = "voice"
	ModalityPhoto Modality = "photo"
	ModalityVideo Modality = "video"
)

// Field names used in confidence maps and ambiguity reports.
const (
	FieldAmount      = "amount"
	FieldCurrency    = "currency"
	FieldDate        = "date"
	FieldDescription = "description"
	FieldCategory    = "category"
)

// RawInput is a single user submission before any processing.
// It is immutable once received.
type RawInput struct {
	CapturedAt time.Time
	ID         string
	Text       string // populated for text inputs
	MimeType   string // media MIME type, e.g. audio/ogg, image/jpeg
	Modality   Modality
	Data       []byte // raw media bytes for voice/photo/video
}

// LineItem is a single purchased item detected on a receipt.
type LineItem struct {
	Name       string
	Quantity   decimal.Decimal
	UnitPrice  decimal.Decimal
	TotalPrice decimal.Decimal
}

// NormalizedContent is the modality-independent representation consumed
// by the extraction engine. It is owned by a single pipeline invocation
// and discarded after extraction.
type NormalizedContent struct {
	Transcript   string
	MerchantHint string
	DateHint     string // YYYY-MM-DD if a receipt date was detected
	Source       Modality
	LineItems    []LineItem
	TotalHint    decimal.Decimal
	HasTotalHint bool
	// Degraded is set when transcription timed out but visual hints
	// are still available, so extraction may proceed on those.
	Degraded bool
}

// Empty reports whether the content carries nothing for the extractor to work with.
func (n NormalizedContent) Empty() bool {
	return n.Transcript == "" && len(n.LineItems) == 0 && n.MerchantHint == "" && !n.HasTotalHint
}

// CandidateExpense is the unvalidated extraction result. It is produced by
// the extraction engine and mutated only by the resolver and categorizer
// within the same pipeline run.
type CandidateExpense struct {
	OccurredAt    *time.Time // nil means "unknown, assume capture time"
	Confidence    map[string]float64
	Currency      string
	Description   string
	Merchant      string
	CategoryGuess string
	RawInput      string
	LineItems     []LineItem
	Amount        decimal.Decimal
	Source        Modality
}

// FieldConfidence returns the reported confidence for a field, or zero
// if the extractor reported nothing for it.
func (c CandidateExpense) FieldConfidence(field string) float64 {
	if c.Confidence == nil {
		return 0
	}
	return c.Confidence[field]
}

// ResolvedExpense is a validated, persistence-ready expense record.
// Invariants: Amount > 0, Currency is a recognized ISO-4217 code,
// Category is a member of the active taxonomy, OccurredAt <= now.
type ResolvedExpense struct {
	OccurredAt  time.Time
	ID          string
	Currency    string
	Description string
	Merchant    string
	Category    string
	// LowConfidence lists fields that were auto-accepted despite reduced
	// confidence (for example a defaulted currency) so callers can offer
	// later correction.
	LowConfidence []string
	LineItems     []LineItem
	Amount        decimal.Decimal
	Source        Modality
}
