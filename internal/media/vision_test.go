package media

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerlens/ledgerlens/internal/llm"
)

type stubClient struct {
	response string
	err      error
	gotReq   llm.Request
}

func (s *stubClient) Name() string { return "stub" }

func (s *stubClient) GenerateStructured(_ context.Context, req llm.Request) (string, error) {
	s.gotReq = req
	return s.response, s.err
}

func TestExtractLineItems(t *testing.T) {
	client := &stubClient{response: `{
		"merchant": "Corner Deli",
		"date": "2026-08-20",
		"total": 19.00,
		"line_items": [
			{"name": "sandwich", "quantity": 2, "unit_price": 4.75, "total_price": 9.50},
			{"name": "soda", "unit_price": 2.00}
		]
	}`}
	reader := NewVisionReader(client)

	content, err := reader.ExtractLineItems(context.Background(), []byte{0xFF, 0xD8}, "image/jpeg")
	require.NoError(t, err)

	assert.Equal(t, "Corner Deli", content.MerchantHint)
	assert.Equal(t, "2026-08-20", content.DateHint)
	assert.True(t, content.HasTotalHint)
	assert.True(t, decimal.NewFromFloat(19.00).Equal(content.TotalHint))
	require.Len(t, content.LineItems, 2)
	assert.True(t, decimal.NewFromInt(2).Equal(content.LineItems[0].Quantity))

	// Missing total derives from unit price and default quantity.
	assert.True(t, decimal.NewFromFloat(2.00).Equal(content.LineItems[1].TotalPrice))

	assert.Equal(t, "image/jpeg", client.gotReq.ImageMime)
	assert.NotEmpty(t, client.gotReq.Image)
}

func TestParseVisionResponse(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantErr bool
		check   func(t *testing.T, got string)
	}{
		{
			name: "fenced response",
			raw:  "```json\n{\"merchant\": \"Deli\", \"line_items\": []}\n```",
		},
		{
			name: "no purchase info yields empty content",
			raw:  `{"error": "No purchase information found"}`,
		},
		{
			name:    "prose response fails",
			raw:     "This appears to be a receipt from a deli.",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			content, err := parseVisionResponse(tt.raw)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			if tt.name == "no purchase info yields empty content" {
				assert.True(t, content.Empty())
			}
		})
	}
}

func TestParseVisionResponseSkipsNamelessItems(t *testing.T) {
	content, err := parseVisionResponse(`{"line_items": [{"name": "", "total_price": 4.00}, {"name": "tea", "total_price": 2.00}]}`)
	require.NoError(t, err)
	require.Len(t, content.LineItems, 1)
	assert.Equal(t, "tea", content.LineItems[0].Name)
}
