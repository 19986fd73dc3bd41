package mcp

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/0x5457/pagesearch/internal/models"
	"github.com/0x5457/pagesearch/internal/search"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"
)

// DefaultSession is used by tool calls that name no session.
const DefaultSession = "default"

var errNoService = errors.New("search service not available")

// Server exposes search sessions as MCP tools. Every tool call names a
// session; sessions are started on first use and live until Close.
type Server struct {
	service *search.Service
	logger  *zap.Logger
	server  *server.MCPServer

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu       sync.Mutex
	sessions map[string]*search.Orchestrator
}

// New returns a Server backed by service. A nil service still lists the
// tools; calling them reports an error.
func New(service *search.Service, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	srv := &Server{
		service: service,
		logger:  logger,
		server: server.NewMCPServer(
			"pagesearch/mcp",
			"0.1.0",
			server.WithToolCapabilities(true),
		),
		ctx:      ctx,
		cancel:   cancel,
		sessions: map[string]*search.Orchestrator{},
	}

	srv.server.AddTool(newTriggerSearchTool(), srv.handleTriggerSearch)
	srv.server.AddTool(newTriggerFiltersTool(), srv.handleTriggerFilters)
	srv.server.AddTool(newToggleFilterTool(), srv.handleToggleFilter)
	srv.server.AddTool(newShowMoreTool(), srv.handleShowMore)
	srv.server.AddTool(newSelectTool(), srv.handleSelect)
	srv.server.AddTool(newFiltersTool(), srv.handleFilters)
	return srv
}

// MCPServer returns the underlying server for a transport to serve.
func (srv *Server) MCPServer() *server.MCPServer {
	return srv.server
}

// Close stops every session and waits for them to finish.
func (srv *Server) Close() error {
	srv.cancel()
	srv.wg.Wait()
	return nil
}

func (srv *Server) session(id string) (*search.Orchestrator, error) {
	if srv.service == nil {
		return nil, errNoService
	}
	srv.mu.Lock()
	defer srv.mu.Unlock()
	if err := srv.ctx.Err(); err != nil {
		return nil, fmt.Errorf("server closed: %w", err)
	}
	if o, ok := srv.sessions[id]; ok {
		return o, nil
	}
	o, _ := srv.service.NewSession(id)
	srv.sessions[id] = o
	srv.wg.Add(1)
	go func() {
		defer srv.wg.Done()
		if err := o.Run(srv.ctx); err != nil {
			srv.logger.Error("session ended", zap.String("session", id), zap.Error(err))
		}
		srv.mu.Lock()
		defer srv.mu.Unlock()
		if srv.sessions[id] == o {
			delete(srv.sessions, id)
		}
	}()
	return o, nil
}

// Tool definitions
func newTriggerSearchTool() mcp.Tool {
	return mcp.NewTool(
		"trigger_search",
		mcp.WithDescription("Search the site index as if the text had been typed into the search box"),
		mcp.WithString("query", mcp.Description("Search text; empty clears the results"), mcp.Required()),
		mcp.WithString("session", mcp.Description("Session id"), mcp.DefaultString(DefaultSession)),
		mcp.WithBoolean(
			"wait",
			mcp.Description("Wait for the results instead of returning after scheduling"),
			mcp.DefaultBool(true),
		),
	)
}

func newTriggerFiltersTool() mcp.Tool {
	return mcp.NewTool(
		"trigger_filters",
		mcp.WithDescription("Replace the selected filters and search again"),
		mcp.WithObject(
			"filters",
			mcp.Description(`Filter name to selected values, e.g. {"lang": ["go", "rust"]}`),
			mcp.Required(),
		),
		mcp.WithString("session", mcp.Description("Session id"), mcp.DefaultString(DefaultSession)),
	)
}

func newToggleFilterTool() mcp.Tool {
	return mcp.NewTool(
		"toggle_filter",
		mcp.WithDescription("Select or unselect one filter value"),
		mcp.WithString("name", mcp.Description("Filter name"), mcp.Required()),
		mcp.WithString("value", mcp.Description("Filter value"), mcp.Required()),
		mcp.WithString("session", mcp.Description("Session id"), mcp.DefaultString(DefaultSession)),
	)
}

func newShowMoreTool() mcp.Tool {
	return mcp.NewTool(
		"show_more",
		mcp.WithDescription("Load the next page of results"),
		mcp.WithString("session", mcp.Description("Session id"), mcp.DefaultString(DefaultSession)),
	)
}

func newSelectTool() mcp.Tool {
	return mcp.NewTool(
		"select",
		mcp.WithDescription("Move through the results with a key or select a result by id"),
		mcp.WithString(
			"key",
			mcp.Description("Navigation key"),
			mcp.Enum(string(search.KeyDown), string(search.KeyUp), string(search.KeyEnter)),
		),
		mcp.WithNumber("count", mcp.Description("How many times to press key"), mcp.DefaultNumber(1)),
		mcp.WithString("id", mcp.Description("Result id to select")),
		mcp.WithString("session", mcp.Description("Session id"), mcp.DefaultString(DefaultSession)),
	)
}

func newFiltersTool() mcp.Tool {
	return mcp.NewTool(
		"filters",
		mcp.WithDescription("List filter groups with their values and counts"),
		mcp.WithString("session", mcp.Description("Session id"), mcp.DefaultString(DefaultSession)),
	)
}

// Handlers
func (srv *Server) handleTriggerSearch(
	ctx context.Context,
	req mcp.CallToolRequest,
) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	o, err := srv.session(req.GetString("session", DefaultSession))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	view, err := o.TriggerSearch(ctx, query)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if req.GetBool("wait", true) {
		if view, err = o.Settled(ctx); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
	}
	return mcp.NewToolResultStructuredOnly(view), nil
}

func (srv *Server) handleTriggerFilters(
	ctx context.Context,
	req mcp.CallToolRequest,
) (*mcp.CallToolResult, error) {
	filters, err := parseFilters(req.GetArguments()["filters"])
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	o, err := srv.session(req.GetString("session", DefaultSession))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if _, err := o.TriggerFilters(ctx, filters); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	view, err := o.Settled(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultStructuredOnly(view), nil
}

func (srv *Server) handleToggleFilter(
	ctx context.Context,
	req mcp.CallToolRequest,
) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	value, err := req.RequireString("value")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	o, err := srv.session(req.GetString("session", DefaultSession))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if _, err := o.ToggleFilter(ctx, name, value); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	view, err := o.Settled(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultStructuredOnly(view), nil
}

func (srv *Server) handleShowMore(
	ctx context.Context,
	req mcp.CallToolRequest,
) (*mcp.CallToolResult, error) {
	o, err := srv.session(req.GetString("session", DefaultSession))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if _, err := o.ShowMore(ctx); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	view, err := o.Settled(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultStructuredOnly(view), nil
}

type selectResult struct {
	View search.View `json:"view"`
	Href string      `json:"href,omitempty"`
}

func (srv *Server) handleSelect(
	ctx context.Context,
	req mcp.CallToolRequest,
) (*mcp.CallToolResult, error) {
	key := search.Key(req.GetString("key", ""))
	id := req.GetString("id", "")
	switch {
	case key == "" && id == "":
		return mcp.NewToolResultError("either key or id must be specified"), nil
	case key != "" && key != search.KeyDown && key != search.KeyUp && key != search.KeyEnter:
		return mcp.NewToolResultError(fmt.Sprintf("unsupported key: %s", key)), nil
	}
	o, err := srv.session(req.GetString("session", DefaultSession))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var res selectResult
	if id != "" {
		if res.View, err = o.Select(ctx, id); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
	}
	if key != "" {
		count := max(1, req.GetInt("count", 1))
		if key == search.KeyEnter {
			count = 1
		}
		for range count {
			if res.View, res.Href, err = o.Key(ctx, key); err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
		}
	}
	return mcp.NewToolResultStructuredOnly(res), nil
}

func (srv *Server) handleFilters(
	ctx context.Context,
	req mcp.CallToolRequest,
) (*mcp.CallToolResult, error) {
	o, err := srv.session(req.GetString("session", DefaultSession))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	view, err := o.View(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	resp := map[string]any{
		"ready":    view.Ready,
		"selected": view.Filters,
		"groups":   view.Facets,
	}
	return mcp.NewToolResultStructuredOnly(resp), nil
}

// parseFilters accepts an object of filter name to a value or a list of
// values.
func parseFilters(raw any) (models.Filters, error) {
	obj, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("filters must be an object of filter name to values")
	}
	filters := models.Filters{}
	for name, v := range obj {
		switch v := v.(type) {
		case string:
			filters[name] = []string{v}
		case []any:
			for _, item := range v {
				s, ok := item.(string)
				if !ok {
					return nil, fmt.Errorf("filter %s: values must be strings", name)
				}
				filters[name] = append(filters[name], s)
			}
		case []string:
			filters[name] = append(filters[name], v...)
		case nil:
		default:
			return nil, fmt.Errorf("filter %s: values must be strings", name)
		}
	}
	return filters.Clone(), nil
}
