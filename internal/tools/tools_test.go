package tools

import (
	"context"
	"encoding/json"
	"regexp"
	"testing"

	"github.com/openai/openai-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cryptoanalyst-api/internal/svc/svctest"
	"cryptoanalyst-api/internal/types"
)

func TestCatalogue(t *testing.T) {
	catalogue := Catalogue()
	require.Len(t, catalogue, 18)

	valid := regexp.MustCompile(`^[a-z_]+$`)
	seen := map[string]bool{}
	for _, tool := range catalogue {
		assert.Regexp(t, valid, tool.Name)
		assert.False(t, seen[tool.Name], "duplicate %s", tool.Name)
		seen[tool.Name] = true
		assert.NotEmpty(t, tool.Description)
		assert.Equal(t, "object", tool.Parameters["type"])
		assert.NotNil(t, tool.call)
	}

	defs := Definitions()
	require.Len(t, defs, len(catalogue))
	raw, err := json.Marshal(defs[0])
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"type":"function"`)
	assert.Contains(t, string(raw), `"name":"advanced_compare"`)

	_, err = Lookup("market_pulse")
	require.NoError(t, err)
	_, err = Lookup("nope")
	require.Error(t, err)
}

func TestDispatchQuotes(t *testing.T) {
	f := svctest.New(t)
	d := NewDispatcher(f.Svc)

	out := d.Dispatch(context.Background(), "get_price_quotes", `{"assets":["btc","eth"]}`)
	resp, ok := out.(*types.QuotesResponse)
	require.True(t, ok, "got %T", out)
	assert.Equal(t, "usd", resp.Currency)
	assert.Len(t, resp.Quotes, 2)
}

func TestDispatchErrors(t *testing.T) {
	f := svctest.New(t)
	d := NewDispatcher(f.Svc)
	ctx := context.Background()

	tests := []struct {
		name string
		tool string
		args string
		want string
	}{
		{"unknown tool", "place_order", `{}`, "unknown tool: place_order"},
		{"malformed arguments", "asset_overview", `{"asset":`, "malformed arguments"},
		{"validation", "compare_assets", `{"base":"btc","targets":[]}`, "target"},
		{"bad user", "watchlist_status", `{"user_id":"x"}`, "user_id"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := d.Dispatch(ctx, tt.tool, tt.args)
			errOut, ok := out.(ErrorResult)
			require.True(t, ok, "got %T", out)
			assert.Contains(t, errOut.Error, tt.want)
		})
	}
}

func TestDispatchUserTools(t *testing.T) {
	f := svctest.New(t)
	d := NewDispatcher(f.Svc)
	ctx := context.Background()

	out := d.Dispatch(ctx, "watchlist_add", `{"user_id":"alice","asset":"sol"}`)
	watch, ok := out.(*types.WatchlistResponse)
	require.True(t, ok, "got %T", out)
	assert.Len(t, watch.Watchlist, 1)

	out = d.Dispatch(ctx, "alert_add", `{"user_id":"alice","description":"sol pump","condition":{"type":"price_move","asset":"sol","direction":"rise","percentage":3}}`)
	_, isErr := out.(ErrorResult)
	require.False(t, isErr, "got %v", out)

	out = d.Dispatch(ctx, "alert_status", `{"user_id":"alice"}`)
	status, ok := out.(*types.AlertsResponse)
	require.True(t, ok, "got %T", out)
	assert.Len(t, status.Alerts, 1)
}

func TestHandleToolCall(t *testing.T) {
	f := svctest.New(t)
	d := NewDispatcher(f.Svc)

	msg := d.HandleToolCall(context.Background(), openai.ChatCompletionMessageToolCall{
		ID:       "call_1",
		Function: openai.ChatCompletionMessageToolCallFunction{Name: "resolve_symbol", Arguments: `{"asset":"ETH"}`},
	})
	require.NotNil(t, msg.OfTool)
	assert.Equal(t, "call_1", msg.OfTool.ToolCallID)
	assert.JSONEq(t, `{"asset":"ETH","id":"ethereum"}`, msg.OfTool.Content.OfString.Value)
}
