package media

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/ledgerlens/ledgerlens/internal/llm"
	"github.com/ledgerlens/ledgerlens/internal/model"
)

const visionSystemPrompt = "You are a receipt reading assistant. You MUST respond with ONLY a valid JSON object. " +
	"Start your response directly with { and end with }."

const visionPrompt = `Read this image of a receipt or purchase document and transcribe what is visible.

Return a JSON object with:
- line_items: array of items shown, each with:
  - name: string - item text as printed
  - quantity: number - quantity purchased (default 1)
  - unit_price: number - price per unit
  - total_price: number - total for this item
- merchant: string (optional) - store or merchant name if printed
- date: string (optional) - receipt date in YYYY-MM-DD format if printed
- total: number (optional) - the printed total amount
- text: string (optional) - any other expense-relevant text visible

Transcribe faithfully; do not infer amounts that are not visible.
If the image contains no purchase information, return: {"error": "No purchase information found"}

Return ONLY the JSON object, no other text.`

// VisionReader implements service.VisionReader by asking a vision-capable
// provider to transcribe receipt contents. It deliberately does no numeric
// interpretation beyond echoing printed values; extraction owns parsing.
type VisionReader struct {
	client llm.Client
}

// NewVisionReader creates a vision reader over a vision-capable provider client.
func NewVisionReader(client llm.Client) *VisionReader {
	return &VisionReader{client: client}
}

// ExtractLineItems pulls printed line items and hints out of an image.
func (v *VisionReader) ExtractLineItems(ctx context.Context, image []byte, mimeType string) (model.NormalizedContent, error) {
	raw, err := v.client.GenerateStructured(ctx, llm.Request{
		Prompt:    visionPrompt,
		System:    visionSystemPrompt,
		Image:     image,
		ImageMime: mimeType,
		MaxTokens: 2000,
	})
	if err != nil {
		return model.NormalizedContent{}, fmt.Errorf("vision call failed: %w", err)
	}

	return parseVisionResponse(raw)
}

type visionSchema struct {
	Error     string `json:"error,omitempty"`
	Merchant  string `json:"merchant,omitempty"`
	Date      string `json:"date,omitempty"`
	Text      string `json:"text,omitempty"`
	LineItems []struct {
		Name       string      `json:"name"`
		Quantity   json.Number `json:"quantity"`
		UnitPrice  json.Number `json:"unit_price"`
		TotalPrice json.Number `json:"total_price"`
	} `json:"line_items"`
	Total json.Number `json:"total,omitempty"`
}

func parseVisionResponse(raw string) (model.NormalizedContent, error) {
	raw = llm.StripMarkdownFences(raw)

	var schema visionSchema
	if err := json.Unmarshal([]byte(raw), &schema); err != nil {
		return model.NormalizedContent{}, fmt.Errorf("vision response did not parse: %w", err)
	}
	if schema.Error != "" {
		// Not an error at this layer: an empty normalization lets the
		// extractor report no-expense-found with full context.
		return model.NormalizedContent{}, nil
	}

	content := model.NormalizedContent{
		Transcript:   strings.TrimSpace(schema.Text),
		MerchantHint: strings.TrimSpace(schema.Merchant),
		DateHint:     strings.TrimSpace(schema.Date),
	}

	if schema.Total != "" {
		if total, err := decimal.NewFromString(schema.Total.String()); err == nil {
			content.TotalHint = total
			content.HasTotalHint = true
		}
	}

	for _, item := range schema.LineItems {
		if item.Name == "" {
			continue
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
		content.LineItems = append(content.LineItems, model.LineItem{
			Name:       item.Name,
			Quantity:   quantity,
			UnitPrice:  unitPrice,
			TotalPrice: totalPrice,
		})
	}

	return content, nil
}
