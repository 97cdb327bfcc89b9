package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ledgerlens/ledgerlens/internal/common"
	"github.com/ledgerlens/ledgerlens/internal/model"
)

const extractionSystemPrompt = "You are an expense extraction assistant. You MUST respond with ONLY a valid JSON object. " +
	"Do not include any explanatory text, markdown formatting, or commentary before or after the JSON. " +
	"Start your response directly with { and end with }."

const strictReformatInstruction = "\n\nIMPORTANT: your previous answer did not parse. " +
	"Respond again with NOTHING but the JSON object described above. " +
	"No prose, no markdown fences, no trailing commentary."

// Extractor turns normalized content into a candidate expense by calling a
// prioritized chain of provider clients. Fallback is sequential: a provider
// is retried up to its attempt budget for transient failures, then the next
// provider in the list is tried.
type Extractor struct {
	rateLimiter *rateLimiter
	logger      *slog.Logger
	providers   []Client
	retryOpts   common.RetryOptions
	callTimeout time.Duration
}

// ExtractorConfig holds configuration for the extraction engine.
type ExtractorConfig struct {
	MaxAttempts int           // transient-failure budget per provider
	RetryDelay  time.Duration // initial backoff between attempts
	CallTimeout time.Duration // deadline applied to each provider call
	RateLimit   int           // requests per minute across all providers
}

// NewExtractor creates an extraction engine over the given provider chain.
func NewExtractor(providers []Client, cfg ExtractorConfig, logger *slog.Logger) (*Extractor, error) {
	if len(providers) == 0 {
		return nil, fmt.Errorf("at least one provider is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	retryOpts := common.RetryOptions{
		MaxAttempts:  cfg.MaxAttempts,
		InitialDelay: cfg.RetryDelay,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
	}
	if retryOpts.MaxAttempts == 0 {
		retryOpts.MaxAttempts = 2
	}
	if retryOpts.InitialDelay == 0 {
		retryOpts.InitialDelay = time.Second
	}

	callTimeout := cfg.CallTimeout
	if callTimeout == 0 {
		callTimeout = 45 * time.Second
	}

	return &Extractor{
		providers:   providers,
		retryOpts:   retryOpts,
		callTimeout: callTimeout,
		rateLimiter: newRateLimiter(cfg.RateLimit),
		logger:      logger,
	}, nil
}

// Extract produces a candidate expense from normalized content.
// Exhausting every provider yields ErrExtractionUnavailable; a model that
// affirmatively reports "no expense here" yields ErrNoExpenseFound without
// trying further providers.
func (e *Extractor) Extract(ctx context.Context, content model.NormalizedContent, profile model.UserProfile) (model.CandidateExpense, error) {
	if content.Empty() {
		return model.CandidateExpense{}, fmt.Errorf("%w: nothing to extract from", common.ErrNoExpenseFound)
	}

	prompt := buildExtractionPrompt(content, profile, time.Now().UTC())

	var lastErr error
	for _, provider := range e.providers {
		candidate, err := e.extractWithProvider(ctx, provider, prompt, content)
		if err == nil {
			e.applyDefaults(&candidate, profile)
			e.logger.Info("expense extracted",
				"provider", provider.Name(),
				"amount", candidate.Amount,
				"currency", candidate.Currency,
				"source", content.Source)
			return candidate, nil
		}

		if errors.Is(err, common.ErrNoExpenseFound) {
			return model.CandidateExpense{}, err
		}
		if ctx.Err() != nil {
			return model.CandidateExpense{}, ctx.Err()
		}

		e.logger.Warn("provider exhausted, falling over",
			"provider", provider.Name(),
			"error", err)
		lastErr = err
	}

	return model.CandidateExpense{}, fmt.Errorf("%w: %v", common.ErrExtractionUnavailable, lastErr)
}

// extractWithProvider runs the per-provider retry loop. A schema violation
// gets exactly one immediate retry with a stricter reformat instruction;
// if that also fails the provider is abandoned.
func (e *Extractor) extractWithProvider(ctx context.Context, provider Client, prompt string, content model.NormalizedContent) (model.CandidateExpense, error) {
	var candidate model.CandidateExpense

	err := common.WithRetry(ctx, func() error {
		if err := e.rateLimiter.wait(ctx); err != nil {
			return &common.RetryableError{Err: err, Retryable: false}
		}

		raw, err := e.call(ctx, provider, prompt)
		if err != nil {
			return err
		}

		parsed, perr := parseCandidate(raw, content.Source, content.Transcript)
		if perr == nil {
			candidate = parsed
			return nil
		}
		if errors.Is(perr, common.ErrNoExpenseFound) {
			return &common.RetryableError{Err: perr, Retryable: false}
		}
		if !errors.Is(perr, common.ErrSchemaViolation) {
			return perr
		}

		e.logger.Debug("schema violation, retrying with strict reformat",
			"provider", provider.Name())

		raw, err = e.call(ctx, provider, prompt+strictReformatInstruction)
		if err != nil {
			return err
		}
		parsed, perr = parseCandidate(raw, content.Source, content.Transcript)
		if perr != nil {
			return &common.RetryableError{Err: perr, Retryable: false}
		}
		candidate = parsed
		return nil
	}, e.retryOpts)

	return candidate, err
}

func (e *Extractor) call(ctx context.Context, provider Client, prompt string) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, e.callTimeout)
	defer cancel()

	return provider.GenerateStructured(callCtx, Request{
		Prompt: prompt,
		System: extractionSystemPrompt,
	})
}

// applyDefaults fills the gaps the schema allows: a missing currency falls
// back to the home currency at reduced confidence, and an absent confidence
// map is synthesized from field presence so the resolver has something to gate on.
func (e *Extractor) applyDefaults(candidate *model.CandidateExpense, profile model.UserProfile) {
	if candidate.Confidence == nil {
		candidate.Confidence = map[string]float64{}
	}

	if len(candidate.Confidence) == 0 {
		if !candidate.Amount.IsZero() {
			candidate.Confidence[model.FieldAmount] = 0.8
		}
		if candidate.Currency != "" {
			candidate.Confidence[model.FieldCurrency] = 0.8
		}
		if candidate.Description != "" {
			candidate.Confidence[model.FieldDescription] = 0.8
		}
		if candidate.OccurredAt != nil {
			candidate.Confidence[model.FieldDate] = 0.8
		}
		if candidate.CategoryGuess != "" {
			candidate.Confidence[model.FieldCategory] = 0.7
		}
	}

	if candidate.Currency == "" {
		home := profile.HomeCurrency
		if home == "" {
			home = "USD"
		}
		candidate.Currency = home
		candidate.Confidence[model.FieldCurrency] = 0.3
	}
}

// buildExtractionPrompt creates the extraction prompt from normalized content.
func buildExtractionPrompt(content model.NormalizedContent, profile model.UserProfile, now time.Time) string {
	today := now.Format("2006-01-02")
	yesterday := now.AddDate(0, 0, -1).Format("2006-01-02")

	home := profile.HomeCurrency
	if home == "" {
		home = "USD"
	}

	var details strings.Builder
	if content.Transcript != "" {
		fmt.Fprintf(&details, "Message: %s\n", content.Transcript)
	}
	if content.MerchantHint != "" {
		fmt.Fprintf(&details, "Merchant: %s\n", content.MerchantHint)
	}
	if content.DateHint != "" {
		fmt.Fprintf(&details, "Receipt date: %s\n", content.DateHint)
	}
	if content.HasTotalHint {
		fmt.Fprintf(&details, "Receipt total: %s\n", content.TotalHint.String())
	}
	if len(content.LineItems) > 0 {
		details.WriteString("Receipt line items:\n")
		for _, item := range content.LineItems {
			fmt.Fprintf(&details, "- %s x%s @ %s = %s\n",
				item.Name, item.Quantity.String(), item.UnitPrice.String(), item.TotalPrice.String())
		}
	}

	locale := profile.Locale
	if locale == "" {
		locale = "en-US"
	}

	return fmt.Sprintf(`Extract expense information from the user's input.

Return a JSON object with these fields:
- amount: number (required) - the expense amount as a decimal number
- currency: string - three-letter currency code like USD, EUR, GBP. Omit if no currency is mentioned or shown
- description: string (required) - brief description of the expense
- merchant: string (optional) - merchant or store name if identifiable
- category: string (optional) - a short category guess such as: Food & Dining, Transportation, Shopping, Entertainment, Bills & Utilities, Health, Travel, Education, Groceries, Other
- date: string (optional) - the expense date in YYYY-MM-DD format. Convert relative terms: "yesterday" is %s. Today is %s
- confidence: object mapping each returned field name to a confidence score from 0.0 to 1.0
- line_items: array (optional, receipts only) of {name, quantity, unit_price, total_price}

The user's locale is %s and their home currency is %s.

If the input contains no expense information, return: {"error": "No expense found"}

Input:
%s
Return ONLY the JSON object, no other text.`,
		yesterday, today, locale, home, details.String())
}

// Close stops background goroutines and cleans up resources.
func (e *Extractor) Close() error {
	if e.rateLimiter != nil {
		e.rateLimiter.Close()
	}
	for _, provider := range e.providers {
		if closer, ok := provider.(interface{ Close() error }); ok {
			_ = closer.Close()
		}
	}
	return nil
}
