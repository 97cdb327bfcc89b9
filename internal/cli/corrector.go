package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/ledgerlens/ledgerlens/internal/model"
)

// Corrector collects field corrections for an expense that needs
// confirmation. An empty answer keeps the extractor's guess.
type Corrector struct {
	reader *LineReader
	writer io.Writer
}

// NewCorrector creates a corrector reading answers from in and writing
// prompts to out.
func NewCorrector(in io.Reader, out io.Writer) *Corrector {
	return &Corrector{
		reader: NewLineReader(in),
		writer: out,
	}
}

// Collect prompts for each ambiguous field in turn and returns the
// corrections the user actually typed. Fields left blank are confirmed
// as-is and returned with the candidate's current value.
func (c *Corrector) Collect(ctx context.Context, outcome model.PipelineOutcome) (map[string]string, error) {
	corrections := make(map[string]string, len(outcome.AmbiguousFields))

	for _, field := range outcome.AmbiguousFields {
		current := candidateValue(outcome.Candidate, field)
		prompt := fmt.Sprintf("%s [%s]: ", field, current)
		if _, err := fmt.Fprint(c.writer, PromptStyle.Render(prompt)); err != nil {
			return nil, err
		}

		answer, err := c.reader.ReadLine(ctx)
		if err != nil {
			return nil, err
		}
		if answer == "" {
			if current == "unknown" {
				return nil, fmt.Errorf("a value for %s is required", field)
			}
			answer = current
		}
		corrections[field] = answer
	}

	return corrections, nil
}
