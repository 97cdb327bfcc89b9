package llm

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ledgerlens/ledgerlens/internal/common"
	"github.com/ledgerlens/ledgerlens/internal/model"
)

// expenseSchema is the fixed output contract every provider is prompted to
// produce. Anything that does not unmarshal into it is a schema violation.
type expenseSchema struct {
	Error       string             `json:"error,omitempty"`
	Amount      json.Number        `json:"amount"`
	Currency    string             `json:"currency"`
	Date        string             `json:"date"`
	Description string             `json:"description"`
	Merchant    string             `json:"merchant,omitempty"`
	Category    string             `json:"category,omitempty"`
	Confidence  map[string]float64 `json:"confidence"`
	LineItems   []lineItemSchema   `json:"line_items,omitempty"`
}

type lineItemSchema struct {
	Name       string      `json:"name"`
	Quantity   json.Number `json:"quantity"`
	UnitPrice  json.Number `json:"unit_price"`
	TotalPrice json.Number `json:"total_price"`
}

// StripMarkdownFences removes a ```json ... ``` wrapper that models often
// add despite instructions.
func StripMarkdownFences(content string) string {
	content = strings.TrimSpace(content)
	if !strings.HasPrefix(content, "```") {
		return content
	}
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	if idx := strings.LastIndex(content, "```"); idx >= 0 {
		content = content[:idx]
	}
	return strings.TrimSpace(content)
}

// parseCandidate turns raw model output into a CandidateExpense.
// A schema that does not parse yields ErrSchemaViolation so the extractor
// can retry once with a stricter reformat instruction.
func parseCandidate(content string, source model.Modality, rawInput string) (model.CandidateExpense, error) {
	content = StripMarkdownFences(content)

	var schema expenseSchema
	if err := json.Unmarshal([]byte(content), &schema); err != nil {
		return model.CandidateExpense{}, fmt.Errorf("%w: %v", common.ErrSchemaViolation, err)
	}

	if schema.Error != "" {
		return model.CandidateExpense{}, fmt.Errorf("%w: %s", common.ErrNoExpenseFound, schema.Error)
	}

	if schema.Amount == "" && schema.Description == "" {
		return model.CandidateExpense{}, fmt.Errorf("%w: response carries neither amount nor description", common.ErrSchemaViolation)
	}

	candidate := model.CandidateExpense{
		Currency:      strings.ToUpper(strings.TrimSpace(schema.Currency)),
		Description:   strings.TrimSpace(schema.Description),
		Merchant:      strings.TrimSpace(schema.Merchant),
		CategoryGuess: strings.TrimSpace(schema.Category),
		Confidence:    schema.Confidence,
		RawInput:      rawInput,
		Source:        source,
	}
	if candidate.Confidence == nil {
		candidate.Confidence = map[string]float64{}
	}

	if schema.Amount != "" {
		amount, err := decimal.NewFromString(schema.Amount.String())
		if err != nil {
			return model.CandidateExpense{}, fmt.Errorf("%w: bad amount %q", common.ErrSchemaViolation, schema.Amount)
		}
		candidate.Amount = amount
	}

	if schema.Date != "" {
		occurredAt, err := time.Parse("2006-01-02", schema.Date)
		if err == nil {
			candidate.OccurredAt = &occurredAt
		}
		// A malformed date is not fatal; the resolver defaults it.
	}

	for _, item := range schema.LineItems {
		parsed, ok := parseLineItem(item)
		if !ok {
			continue
		}
		candidate.LineItems = append(candidate.LineItems, parsed)
	}

	// Clamp reported confidences into [0,1].
	for field, score := range candidate.Confidence {
		if score < 0 {
			candidate.Confidence[field] = 0
		} else if score > 1 {
			candidate.Confidence[field] = 1
		}
	}

	return candidate, nil
}

func parseLineItem(item lineItemSchema) (model.LineItem, bool) {
	if item.Name == "" {
		return model.LineItem{}, false
	}

	quantity := decimal.NewFromInt(1)
	if item.Quantity != "" {
		if q, err := decimal.NewFromString(item.Quantity.String()); err == nil && q.IsPositive() {
			quantity = q
		}
	}

	unitPrice := decimal.Zero
	if item.UnitPrice != "" {
		if p, err := decimal.NewFromString(item.UnitPrice.String()); err == nil {
			unitPrice = p
		}
	}

	totalPrice := decimal.Zero
	if item.TotalPrice != "" {
		if p, err := decimal.NewFromString(item.TotalPrice.String()); err == nil {
			totalPrice = p
		}
	}
	if totalPrice.IsZero() {
		totalPrice = unitPrice.Mul(quantity)
	}

	return model.LineItem{
		Name:       item.Name,
		Quantity:   quantity,
		UnitPrice:  unitPrice,
		TotalPrice: totalPrice,
	}, true
}
