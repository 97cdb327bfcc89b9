// Package pipeline sequences normalization, extraction, resolution, and
// categorization into a single invocation with a terminal outcome.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ledgerlens/ledgerlens/internal/categorize"
	"github.com/ledgerlens/ledgerlens/internal/common"
	"github.com/ledgerlens/ledgerlens/internal/model"
)

// stage names an orchestrator state, used for logging transitions.
type stage string

const (
	stageReceived     stage = "received"
	stageNormalizing  stage = "normalizing"
	stageExtracting   stage = "extracting"
	stageResolving    stage = "resolving"
	stageCategorizing stage = "categorizing"
)

// historySnapshotLimit caps how much per-user history feeds the
// categorizer fallback.
const historySnapshotLimit = 200

// Pipeline orchestrates one expense extraction invocation. Invocations
// are independent: shared state enters only as read-only snapshots taken
// at invocation start.
type Pipeline struct {
	normalizer  Normalizer
	extractor   Extractor
	resolver    Resolver
	categorizer Categorizer
	snapshots   Snapshotter
	logger      *slog.Logger
}

// New creates a pipeline over its stage implementations.
func New(normalizer Normalizer, extractor Extractor, resolver Resolver, categorizer Categorizer, snapshots Snapshotter, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		normalizer:  normalizer,
		extractor:   extractor,
		resolver:    resolver,
		categorizer: categorizer,
		snapshots:   snapshots,
		logger:      logger,
	}
}

// Process runs one invocation end to end and always returns a terminal
// outcome; errors never cross the pipeline boundary raw.
func (p *Pipeline) Process(ctx context.Context, input model.RawInput, profile model.UserProfile) model.PipelineOutcome {
	invocationID := uuid.NewString()
	logger := p.logger.With("invocation_id", invocationID, "modality", input.Modality, "user_id", profile.UserID)
	logger.Info("invocation received", "stage", stageReceived)

	taxonomy, history, err := p.snapshot(ctx, profile.UserID)
	if err != nil {
		return rejected(invocationID, model.RejectCanceled, fmt.Sprintf("could not load taxonomy snapshot: %v", err))
	}

	if ctx.Err() != nil {
		return rejected(invocationID, model.RejectCanceled, "invocation canceled")
	}

	logger.Debug("stage transition", "stage", stageNormalizing)
	content, err := p.normalizer.Normalize(ctx, input)
	if err != nil {
		return p.rejectFor(logger, invocationID, err)
	}

	if ctx.Err() != nil {
		return rejected(invocationID, model.RejectCanceled, "invocation canceled")
	}

	logger.Debug("stage transition", "stage", stageExtracting, "degraded", content.Degraded)
	candidate, err := p.extractor.Extract(ctx, content, profile)
	if err != nil {
		return p.rejectFor(logger, invocationID, err)
	}

	return p.finish(ctx, logger, invocationID, candidate, profile, input.CapturedAt, taxonomy, history)
}

// ProcessCorrection re-enters the pipeline with a prior candidate and
// user-supplied field corrections. This is a fresh invocation seeded with
// prior state, not resumption of in-flight state.
func (p *Pipeline) ProcessCorrection(ctx context.Context, prior model.CandidateExpense, corrections map[string]string, profile model.UserProfile, capturedAt time.Time) model.PipelineOutcome {
	invocationID := uuid.NewString()
	logger := p.logger.With("invocation_id", invocationID, "user_id", profile.UserID)
	logger.Info("correction invocation received", "fields", fieldNames(corrections))

	taxonomy, history, err := p.snapshot(ctx, profile.UserID)
	if err != nil {
		return rejected(invocationID, model.RejectCanceled, fmt.Sprintf("could not load taxonomy snapshot: %v", err))
	}

	// Seed from the prior candidate without sharing its confidence map,
	// so corrections never mutate the caller's copy.
	candidate := prior
	candidate.Confidence = make(map[string]float64, len(prior.Confidence)+len(corrections))
	for field, confidence := range prior.Confidence {
		candidate.Confidence[field] = confidence
	}

	for field, value := range corrections {
		if err := applyCorrection(&candidate, field, value); err != nil {
			logger.Warn("correction did not parse", "field", field, "error", err)
			return model.PipelineOutcome{
				InvocationID:    invocationID,
				Status:          model.OutcomeNeedsConfirmation,
				Candidate:       &candidate,
				AmbiguousFields: []string{field},
				Message:         fmt.Sprintf("could not apply correction for %s: %v", field, err),
			}
		}
		// A user-confirmed value is fully trusted.
		candidate.Confidence[field] = 1.0
	}

	return p.finish(ctx, logger, invocationID, candidate, profile, capturedAt, taxonomy, history)
}

// finish runs the deterministic tail of the pipeline: resolve, then
// categorize, then build the terminal outcome.
func (p *Pipeline) finish(ctx context.Context, logger *slog.Logger, invocationID string, candidate model.CandidateExpense, profile model.UserProfile, capturedAt time.Time, taxonomy []model.Category, history []model.ExpenseRecord) model.PipelineOutcome {
	if ctx.Err() != nil {
		return rejected(invocationID, model.RejectCanceled, "invocation canceled")
	}

	logger.Debug("stage transition", "stage", stageResolving)
	resolution := p.resolver.Resolve(candidate, profile, capturedAt)
	if resolution.NeedsConfirmation() {
		logger.Info("invocation needs confirmation", "fields", resolution.AmbiguousFields)
		return model.PipelineOutcome{
			InvocationID:    invocationID,
			Status:          model.OutcomeNeedsConfirmation,
			Candidate:       &candidate,
			AmbiguousFields: resolution.AmbiguousFields,
		}
	}

	logger.Debug("stage transition", "stage", stageCategorizing)
	assignment := p.categorizer.Categorize(candidate, taxonomy, history)

	resolved := resolution.Resolved
	resolved.ID = invocationID
	resolved.Category = assignment.Category
	if assignment.Method != categorize.MethodGuess {
		resolved.LowConfidence = append(resolved.LowConfidence, model.FieldCategory)
	}

	logger.Info("invocation accepted",
		"amount", resolved.Amount,
		"currency", resolved.Currency,
		"category", resolved.Category,
		"category_method", assignment.Method,
		"low_confidence", resolved.LowConfidence)

	return model.PipelineOutcome{
		InvocationID: invocationID,
		Status:       model.OutcomeAccepted,
		Resolved:     resolved,
	}
}

func (p *Pipeline) snapshot(ctx context.Context, userID string) ([]model.Category, []model.ExpenseRecord, error) {
	taxonomy, err := p.snapshots.GetCategories(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("loading taxonomy: %w", err)
	}
	history, err := p.snapshots.GetExpenseHistory(ctx, userID, historySnapshotLimit)
	if err != nil {
		return nil, nil, fmt.Errorf("loading history: %w", err)
	}
	return taxonomy, history, nil
}

// rejectFor maps a stage error onto a reason code. Unknown errors are
// reported as extraction unavailability rather than leaking internals.
func (p *Pipeline) rejectFor(logger *slog.Logger, invocationID string, err error) model.PipelineOutcome {
	logger.Warn("invocation rejected", "error", err)

	switch {
	case errors.Is(err, common.ErrUnsupportedModality):
		return rejected(invocationID, model.RejectUnsupportedModality, "this input type is not supported")
	case errors.Is(err, common.ErrTranscriptionFailure):
		return rejected(invocationID, model.RejectTranscriptionFailure, "could not read the audio or image")
	case errors.Is(err, common.ErrNoExpenseFound):
		return rejected(invocationID, model.RejectNoExpenseFound, "no expense information was found in the input")
	case errors.Is(err, context.Canceled):
		return rejected(invocationID, model.RejectCanceled, "invocation canceled")
	default:
		return rejected(invocationID, model.RejectExtractionUnavailable, "expense extraction is temporarily unavailable")
	}
}

func rejected(invocationID string, reason model.RejectReason, message string) model.PipelineOutcome {
	return model.PipelineOutcome{
		InvocationID: invocationID,
		Status:       model.OutcomeRejected,
		Reason:       reason,
		Message:      message,
	}
}

// applyCorrection writes a user-supplied value into the candidate field.
func applyCorrection(candidate *model.CandidateExpense, field, value string) error {
	value = strings.TrimSpace(value)
	switch field {
	case model.FieldAmount:
		amount, err := decimal.NewFromString(value)
		if err != nil {
			return fmt.Errorf("not a decimal amount: %q", value)
		}
		candidate.Amount = amount
	case model.FieldCurrency:
		if len(value) != 3 {
			return fmt.Errorf("not a 3-letter currency code: %q", value)
		}
		candidate.Currency = strings.ToUpper(value)
	case model.FieldDate:
		occurredAt, err := time.Parse("2006-01-02", value)
		if err != nil {
			return fmt.Errorf("not a YYYY-MM-DD date: %q", value)
		}
		candidate.OccurredAt = &occurredAt
	case model.FieldDescription:
		if value == "" {
			return fmt.Errorf("description cannot be empty")
		}
		candidate.Description = value
	case model.FieldCategory:
		candidate.CategoryGuess = value
	default:
		return fmt.Errorf("unknown field %q", field)
	}
	return nil
}

func fieldNames(corrections map[string]string) []string {
	names := make([]string, 0, len(corrections))
	for field := range corrections {
		names = append(names, field)
	}
	return names
}
