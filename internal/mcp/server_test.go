package mcp

import (
	"context"
	"testing"
	"time"

	"github.com/0x5457/pagesearch/internal/models"
	"github.com/0x5457/pagesearch/internal/search"
	"github.com/0x5457/pagesearch/internal/search/searchtest"
	"github.com/0x5457/pagesearch/internal/transform"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	searcher := searchtest.New(
		searchtest.Doc{
			ID:      "go",
			Data:    models.MatchData{URL: "/go/", Title: "Go tour", Excerpt: "learn <mark>go</mark>"},
			Filters: models.Filters{"lang": {"go"}},
		},
		searchtest.Doc{
			ID:      "rust",
			Data:    models.MatchData{URL: "/rust/", Title: "Rust tour", Excerpt: "learn rust"},
			Filters: models.Filters{"lang": {"rust"}},
		},
	)
	srv := New(&search.Service{
		Searcher:    searcher,
		Transformer: transform.New(transform.Options{}),
		Debounce:    10 * time.Millisecond,
	}, nil)
	t.Cleanup(func() { _ = srv.Close() })
	return srv
}

func callTool(name string, args map[string]any) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}
}

func TestNew(t *testing.T) {
	server := New(nil, nil)
	assert.NotNil(t, server.MCPServer())
	require.NoError(t, server.Close())
}

func TestToolDefinitions(t *testing.T) {
	tests := []struct {
		name     string
		toolFunc func() mcp.Tool
		toolName string
	}{
		{"trigger_search", newTriggerSearchTool, "trigger_search"},
		{"trigger_filters", newTriggerFiltersTool, "trigger_filters"},
		{"toggle_filter", newToggleFilterTool, "toggle_filter"},
		{"show_more", newShowMoreTool, "show_more"},
		{"select", newSelectTool, "select"},
		{"filters", newFiltersTool, "filters"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tool := tt.toolFunc()
			assert.Equal(t, tt.toolName, tool.Name)
			assert.NotEmpty(t, tool.Description)
			assert.Contains(t, tool.InputSchema.Properties, "session")
		})
	}
}

func TestTriggerSearchTool(t *testing.T) {
	tool := newTriggerSearchTool()
	assert.Contains(t, tool.InputSchema.Required, "query")
	queryProp := tool.InputSchema.Properties["query"].(map[string]any)
	assert.Equal(t, "string", queryProp["type"])
}

func TestHandleMissingArguments(t *testing.T) {
	srv := newTestServer(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		handler func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error)
	}{
		{"trigger_search", srv.handleTriggerSearch},
		{"trigger_filters", srv.handleTriggerFilters},
		{"toggle_filter", srv.handleToggleFilter},
		{"select", srv.handleSelect},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := tt.handler(ctx, callTool(tt.name, map[string]any{}))
			require.NoError(t, err)
			assert.True(t, result.IsError)
			assert.NotEmpty(t, result.Content)
		})
	}
}

func TestHandleWithoutService(t *testing.T) {
	srv := New(nil, nil)
	t.Cleanup(func() { _ = srv.Close() })

	result, err := srv.handleTriggerSearch(context.Background(),
		callTool("trigger_search", map[string]any{"query": "go"}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestHandleTriggerSearch(t *testing.T) {
	srv := newTestServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	result, err := srv.handleTriggerSearch(ctx,
		callTool("trigger_search", map[string]any{"query": "tour"}))
	require.NoError(t, err)
	require.False(t, result.IsError)

	view := result.StructuredContent.(search.View)
	assert.Equal(t, "tour", view.Query)
	assert.Equal(t, 2, view.Total)
	assert.Len(t, view.Results, 2)
	assert.False(t, view.Loading)
}

func TestHandleTriggerFilters(t *testing.T) {
	srv := newTestServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := srv.handleTriggerSearch(ctx,
		callTool("trigger_search", map[string]any{"query": "tour"}))
	require.NoError(t, err)

	result, err := srv.handleTriggerFilters(ctx, callTool("trigger_filters", map[string]any{
		"filters": map[string]any{"lang": []any{"rust"}},
	}))
	require.NoError(t, err)
	require.False(t, result.IsError)

	view := result.StructuredContent.(search.View)
	assert.Equal(t, models.Filters{"lang": {"rust"}}, view.Filters)
	require.Len(t, view.Results, 1)
	assert.Equal(t, "/rust/", view.Results[0].Href)
	assert.Equal(t, 2, view.UnfilteredTotal)
}

func TestHandleSelect(t *testing.T) {
	srv := newTestServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := srv.handleTriggerSearch(ctx,
		callTool("trigger_search", map[string]any{"query": "go"}))
	require.NoError(t, err)

	result, err := srv.handleSelect(ctx, callTool("select", map[string]any{"key": "ArrowDown"}))
	require.NoError(t, err)
	require.False(t, result.IsError)
	res := result.StructuredContent.(selectResult)
	assert.Equal(t, "go", res.View.ActiveDescendant)

	result, err = srv.handleSelect(ctx, callTool("select", map[string]any{"key": "Enter"}))
	require.NoError(t, err)
	res = result.StructuredContent.(selectResult)
	assert.Equal(t, "/go/", res.Href)

	result, err = srv.handleSelect(ctx, callTool("select", map[string]any{"key": "Escape"}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestHandleFilters(t *testing.T) {
	srv := newTestServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := srv.handleTriggerSearch(ctx,
		callTool("trigger_search", map[string]any{"query": "tour"}))
	require.NoError(t, err)

	result, err := srv.handleFilters(ctx, callTool("filters", map[string]any{}))
	require.NoError(t, err)
	require.False(t, result.IsError)

	content := result.StructuredContent.(map[string]any)
	assert.Contains(t, content, "groups")
	assert.Contains(t, content, "selected")
	assert.Equal(t, true, content["ready"])
}

func TestSessionsAreIndependent(t *testing.T) {
	srv := newTestServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := srv.handleTriggerSearch(ctx,
		callTool("trigger_search", map[string]any{"query": "go", "session": "a"}))
	require.NoError(t, err)
	result, err := srv.handleTriggerSearch(ctx,
		callTool("trigger_search", map[string]any{"query": "rust", "session": "b"}))
	require.NoError(t, err)
	assert.Equal(t, "rust", result.StructuredContent.(search.View).Query)

	result, err = srv.handleFilters(ctx, callTool("filters", map[string]any{"session": "a"}))
	require.NoError(t, err)
	assert.False(t, result.IsError)
}

func TestParseFilters(t *testing.T) {
	tests := []struct {
		name    string
		raw     any
		want    models.Filters
		wantErr bool
	}{
		{"list", map[string]any{"lang": []any{"rust", "go", "go"}}, models.Filters{"lang": {"go", "rust"}}, false},
		{"single", map[string]any{"lang": "go"}, models.Filters{"lang": {"go"}}, false},
		{"empty list", map[string]any{"lang": []any{}}, models.Filters{}, false},
		{"not object", "lang", nil, true},
		{"not string", map[string]any{"lang": []any{1}}, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseFilters(tt.raw)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
