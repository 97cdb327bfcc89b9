package cli

import (
	"fmt"
	"strings"

	"github.com/ledgerlens/ledgerlens/internal/model"
)

// RenderOutcome formats a pipeline outcome for terminal display.
func RenderOutcome(outcome model.PipelineOutcome) string {
	switch outcome.Status {
	case model.OutcomeAccepted:
		return renderAccepted(outcome)
	case model.OutcomeNeedsConfirmation:
		return renderNeedsConfirmation(outcome)
	default:
		return renderRejected(outcome)
	}
}

func renderAccepted(outcome model.PipelineOutcome) string {
	exp := outcome.Resolved

	var b strings.Builder
	b.WriteString(fmt.Sprintf("%s %s\n", exp.Amount.StringFixed(2), exp.Currency))
	b.WriteString(exp.Description + "\n")
	if exp.Merchant != "" {
		b.WriteString(SubtleStyle.Render(exp.Merchant) + "\n")
	}
	b.WriteString(fmt.Sprintf("%s · %s", exp.Category, exp.OccurredAt.Format("2006-01-02")))

	for _, item := range exp.LineItems {
		b.WriteString(SubtleStyle.Render(fmt.Sprintf("\n  %s x%s  %s",
			item.Name, item.Quantity.String(), item.TotalPrice.StringFixed(2))))
	}

	out := SuccessStyle.Render("✓ Expense recorded") + "\n" + BoxStyle.Render(b.String())

	if len(exp.LowConfidence) > 0 {
		out += "\n" + WarningStyle.Render(
			fmt.Sprintf("⚠ Auto-accepted with low confidence: %s. Use corrections if wrong.",
				strings.Join(exp.LowConfidence, ", ")))
	}
	return out
}

func renderNeedsConfirmation(outcome model.PipelineOutcome) string {
	var b strings.Builder
	b.WriteString(WarningStyle.Render("? Needs confirmation") + "\n")
	b.WriteString("Please confirm or correct the following fields:\n")
	for _, field := range outcome.AmbiguousFields {
		b.WriteString(fmt.Sprintf("  - %s (currently %s)\n", field, candidateValue(outcome.Candidate, field)))
	}
	if outcome.Message != "" {
		b.WriteString(SubtleStyle.Render(outcome.Message) + "\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func renderRejected(outcome model.PipelineOutcome) string {
	return ErrorStyle.Render("✗ "+outcome.Message) +
		"\n" + SubtleStyle.Render(fmt.Sprintf("reason: %s", outcome.Reason))
}

// candidateValue shows the extractor's best guess for an ambiguous field.
func candidateValue(candidate *model.CandidateExpense, field string) string {
	if candidate == nil {
		return "unknown"
	}
	switch field {
	case model.FieldAmount:
		return candidate.Amount.String()
	case model.FieldCurrency:
		return orUnknown(candidate.Currency)
	case model.FieldDate:
		if candidate.OccurredAt == nil {
			return "unknown"
		}
		return candidate.OccurredAt.Format("2006-01-02")
	case model.FieldDescription:
		return orUnknown(candidate.Description)
	case model.FieldCategory:
		return orUnknown(candidate.CategoryGuess)
	default:
		return "unknown"
	}
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}
