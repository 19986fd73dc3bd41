package cmdsfx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/0x5457/pagesearch/internal/config/configfx"
	"github.com/0x5457/pagesearch/internal/engine/bleveengine"
	"github.com/0x5457/pagesearch/internal/indexer/indexerfx"
	appmcp "github.com/0x5457/pagesearch/internal/mcp"
	"github.com/0x5457/pagesearch/internal/models"
	"github.com/0x5457/pagesearch/internal/render"
	"github.com/0x5457/pagesearch/internal/search"
	"github.com/0x5457/pagesearch/internal/storage"
	"github.com/0x5457/pagesearch/internal/web"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// CommandRunner provides methods to run different application commands
type CommandRunner struct {
	config        *configfx.Config
	logger        *zap.Logger
	searchService *search.Service
	indexers      *indexerfx.Factory
	mcpServer     *appmcp.Server
	webServer     *web.Server
	sessions      storage.SessionStore
}

// Params represents dependencies for command runner
type Params struct {
	fx.In

	Config        *configfx.Config
	Logger        *zap.Logger
	SearchService *search.Service      `optional:"true"`
	Indexers      *indexerfx.Factory   `optional:"true"`
	MCPServer     *appmcp.Server       `optional:"true"`
	WebServer     *web.Server          `optional:"true"`
	Sessions      storage.SessionStore `optional:"true"`
}

// NewCommandRunner creates a new command runner
func NewCommandRunner(params Params) *CommandRunner {
	return &CommandRunner{
		config:        params.Config,
		logger:        params.Logger,
		searchService: params.SearchService,
		indexers:      params.Indexers,
		mcpServer:     params.MCPServer,
		webServer:     params.WebServer,
		sessions:      params.Sessions,
	}
}

// RunIndex indexes the rendered site below root into the configured index
func (r *CommandRunner) RunIndex(ctx context.Context, root string, out io.Writer) error {
	if r.indexers == nil {
		return fmt.Errorf("indexer not available")
	}

	w, err := bleveengine.Create(r.config.IndexPath)
	if err != nil {
		return err
	}
	defer w.Close() //nolint:errcheck

	// Run indexing with progress
	progCh, errCh := r.indexers.New(w).IndexSiteProgress(ctx, root)
	for progCh != nil || errCh != nil {
		select {
		case p, ok := <-progCh:
			if !ok {
				progCh = nil
				continue
			}
			fmt.Fprintf(out, "\r[%3.0f%%] stage=%s files:%d/%d pages:%d %-40s",
				p.Percent*100,
				p.Stage,
				p.ParsedFiles, p.TotalFiles,
				p.WrittenPages,
				p.CurrentFile,
			)
		case err, ok := <-errCh:
			if !ok {
				errCh = nil
				continue
			}
			if err != nil {
				fmt.Fprintln(out)
				return err
			}
		case <-ctx.Done():
			fmt.Fprintln(out)
			return ctx.Err()
		}
	}
	fmt.Fprintln(out)
	fmt.Fprintf(out, "index written to %s\n", r.config.IndexPath)
	return nil
}

// SearchRequest describes a scripted session: the filters and text are
// applied, then pages are loaded and the selection moved.
type SearchRequest struct {
	Session string
	Query   string
	Filters models.Filters
	More    int
	Down    int
	Open    bool
	Facets  bool
	JSON    bool
}

// RunSearch runs one session to completion and prints its final view
func (r *CommandRunner) RunSearch(ctx context.Context, req SearchRequest, out io.Writer) error {
	if r.searchService == nil {
		return fmt.Errorf("search service not available")
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	orch := r.searchService.NewOneShot()
	if req.Session != "" {
		orch, _ = r.searchService.NewSession(req.Session)
	}
	done := make(chan error, 1)
	go func() { done <- orch.Run(ctx) }()

	view, href, err := r.script(ctx, orch, req)
	cancel()
	if runErr := <-done; runErr != nil {
		return runErr
	}
	if err != nil {
		return err
	}

	if req.JSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			search.View
			Href string `json:"href,omitempty"`
		}{view, href})
	}
	fmt.Fprint(out, render.View(view, req.Facets))
	if href != "" {
		fmt.Fprintf(out, "open: %s\n", href)
	}
	return nil
}

func (r *CommandRunner) script(
	ctx context.Context,
	orch *search.Orchestrator,
	req SearchRequest,
) (search.View, string, error) {
	if len(req.Filters) > 0 {
		if _, err := orch.OnFiltersChange(ctx, req.Filters); err != nil {
			return search.View{}, "", err
		}
	}
	if _, err := orch.TriggerSearch(ctx, req.Query); err != nil {
		return search.View{}, "", err
	}
	view, err := orch.Settled(ctx)
	if err != nil {
		return search.View{}, "", err
	}
	for i := 0; i < req.More && view.HasMore; i++ {
		if _, err := orch.ShowMore(ctx); err != nil {
			return search.View{}, "", err
		}
		if view, err = orch.Settled(ctx); err != nil {
			return search.View{}, "", err
		}
	}
	for range req.Down {
		if view, _, err = orch.Key(ctx, search.KeyDown); err != nil {
			return search.View{}, "", err
		}
	}
	var href string
	if req.Open {
		if view, href, err = orch.Key(ctx, search.KeyEnter); err != nil {
			return search.View{}, "", err
		}
	}
	return view, href, nil
}

// RunServe serves the search page until ctx is cancelled
func (r *CommandRunner) RunServe(ctx context.Context) error {
	if r.webServer == nil {
		return fmt.Errorf("web server not available")
	}

	srv := &http.Server{
		Addr:              r.config.Address,
		Handler:           r.webServer.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		r.logger.Info("serving search page", zap.String("address", r.config.Address))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// RunMCPServer executes the MCP server
func (r *CommandRunner) RunMCPServer(transport, address string) error {
	if r.mcpServer == nil {
		return fmt.Errorf("MCP server not available")
	}
	s := r.mcpServer.MCPServer()
	if address == "" {
		address = r.config.Address
	}

	switch transport {
	case "stdio":
		return server.ServeStdio(s)
	case "http":
		httpSrv := server.NewStreamableHTTPServer(s)
		return httpSrv.Start(address)
	case "sse":
		// SSE server exposes two endpoints; default base path "/mcp"
		sseSrv := server.NewSSEServer(s,
			server.WithBaseURL(""),
			server.WithStaticBasePath("/mcp"),
		)
		return sseSrv.Start(address)
	default:
		return fmt.Errorf(
			"unsupported transport: %s (supported: stdio, http, sse)",
			transport,
		)
	}
}

type sessionPruner interface {
	PruneSessions(ctx context.Context, before time.Time) (int64, error)
}

// RunPruneSessions deletes persisted sessions idle for longer than olderThan
func (r *CommandRunner) RunPruneSessions(ctx context.Context, olderThan time.Duration, out io.Writer) error {
	pruner, ok := r.sessions.(sessionPruner)
	if !ok {
		return fmt.Errorf("session store does not persist sessions, set session_db")
	}
	n, err := pruner.PruneSessions(ctx, time.Now().Add(-olderThan))
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "pruned %d sessions\n", n)
	return nil
}

// Module provides command runner
var Module = fx.Module("commands",
	fx.Provide(NewCommandRunner),
)
