// Package web serves the search box over HTTP. Each websocket connection
// runs its own search session; the browser forwards input and keys and
// renders the views it is sent.
package web

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"strings"
	"time"

	"github.com/0x5457/pagesearch/internal/combobox"
	"github.com/0x5457/pagesearch/internal/models"
	"github.com/0x5457/pagesearch/internal/search"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

//go:embed static/*
var staticFS embed.FS

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
	outBuffer  = 16
)

// Server routes:
//
//	GET /            the search page
//	GET /ws          a websocket running one session; ?session=id resumes it
//	GET /api/search  a one-shot search: ?q=text&filter=name:value
type Server struct {
	service  *search.Service
	logger   *zap.Logger
	upgrader websocket.Upgrader
	mux      *http.ServeMux
}

func New(service *search.Service, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		service: service,
		logger:  logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
		},
		mux: http.NewServeMux(),
	}
	static, _ := fs.Sub(staticFS, "static")
	s.mux.Handle("GET /", http.FileServerFS(static))
	s.mux.HandleFunc("GET /ws", s.handleWS)
	s.mux.HandleFunc("GET /api/search", s.handleSearch)
	return s
}

func (s *Server) Handler() http.Handler {
	return s.mux
}

// clientMessage is sent by the browser. Type selects which fields are read.
type clientMessage struct {
	Type string `json:"type"`

	Text    string         `json:"text,omitempty"`
	Filters models.Filters `json:"filters,omitempty"`
	Name    string         `json:"name,omitempty"`
	Value   string         `json:"value,omitempty"`
	Open    bool           `json:"open,omitempty"`
	Group   string         `json:"group,omitempty"`
	Index   int            `json:"index,omitempty"`
	Key     search.Key     `json:"key,omitempty"`
	ID      string         `json:"id,omitempty"`

	Item          combobox.Rect `json:"item"`
	Container     combobox.Rect `json:"container"`
	ReducedMotion bool          `json:"reduced_motion,omitempty"`
}

// serverMessage is sent to the browser.
type serverMessage struct {
	Type    string                  `json:"type"`
	Session string                  `json:"session,omitempty"`
	View    *search.View            `json:"view,omitempty"`
	Href    string                  `json:"href,omitempty"`
	Scroll  *combobox.ScrollRequest `json:"scroll,omitempty"`
	Error   string                  `json:"error,omitempty"`
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close() //nolint:errcheck

	orch, id := s.service.NewSession(r.URL.Query().Get("session"))
	logger := s.logger.With(zap.String("session", id))
	logger.Debug("session connected", zap.String("remote", r.RemoteAddr))

	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(serverMessage{Type: "init", Session: id}); err != nil {
		logger.Debug("write init failed", zap.Error(err))
		return
	}
	views, stop := orch.Subscribe()
	defer stop()
	out := make(chan serverMessage, outBuffer)

	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		return orch.Run(ctx)
	})
	g.Go(func() error {
		return s.writeLoop(ctx, conn, views, out)
	})
	g.Go(func() error {
		return s.readLoop(ctx, conn, orch, out)
	})
	g.Go(func() error {
		<-ctx.Done()
		return conn.Close()
	})

	err = g.Wait()
	switch {
	case err == nil,
		errors.Is(err, context.Canceled),
		websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway):
		logger.Debug("session disconnected")
	default:
		logger.Warn("session ended", zap.Error(err))
	}
}

func (s *Server) writeLoop(
	ctx context.Context,
	conn *websocket.Conn,
	views <-chan search.View,
	out <-chan serverMessage,
) error {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		var msg serverMessage
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait))
			return ctx.Err()
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return err
			}
			continue
		case msg = <-out:
		case v, ok := <-views:
			if !ok {
				return nil
			}
			msg = serverMessage{Type: "view", View: &v}
		}
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(msg); err != nil {
			return err
		}
	}
}

func (s *Server) readLoop(
	ctx context.Context,
	conn *websocket.Conn,
	orch *search.Orchestrator,
	out chan<- serverMessage,
) error {
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		var msg clientMessage
		if err := conn.ReadJSON(&msg); err != nil {
			var (
				syntaxErr *json.SyntaxError
				typeErr   *json.UnmarshalTypeError
			)
			if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) ||
				errors.Is(err, io.ErrUnexpectedEOF) {
				if err := send(ctx, out, errorMessage(err)); err != nil {
					return err
				}
				continue
			}
			return err
		}
		reply, err := s.apply(ctx, orch, msg)
		if err != nil {
			return err
		}
		if reply != nil {
			if err := send(ctx, out, *reply); err != nil {
				return err
			}
		}
	}
}

// apply forwards one browser message to the session. Views reach the
// browser through the subscription; the returned message is anything else
// the browser has to act on.
func (s *Server) apply(
	ctx context.Context,
	orch *search.Orchestrator,
	msg clientMessage,
) (*serverMessage, error) {
	var err error
	switch msg.Type {
	case "query":
		_, err = orch.OnQueryChange(ctx, msg.Text)
	case "filters":
		_, err = orch.OnFiltersChange(ctx, msg.Filters)
	case "toggle":
		_, err = orch.ToggleFilter(ctx, msg.Name, msg.Value)
	case "group":
		_, err = orch.SetGroupOpen(ctx, msg.Name, msg.Open)
	case "focus":
		_, err = orch.FocusFilter(ctx, msg.Group, msg.Index)
	case "more":
		_, err = orch.ShowMore(ctx)
	case "select":
		_, err = orch.Select(ctx, msg.ID)
	case "key":
		var href string
		_, href, err = orch.Key(ctx, msg.Key)
		if err == nil && href != "" {
			return &serverMessage{Type: "navigate", Href: href}, nil
		}
	case "scroll":
		req := combobox.ScrollIntoView(msg.Item, msg.Container, msg.ReducedMotion)
		if !req.Needed {
			return nil, nil
		}
		return &serverMessage{Type: "scroll", Scroll: &req}, nil
	default:
		m := errorMessage(fmt.Errorf("unknown message type %q", msg.Type))
		return &m, nil
	}
	return nil, err
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filters := models.Filters{}
	for _, f := range query["filter"] {
		name, value, ok := strings.Cut(f, ":")
		if !ok || name == "" || value == "" {
			http.Error(w, fmt.Sprintf("invalid filter %q, want name:value", f), http.StatusBadRequest)
			return
		}
		filters[name] = append(filters[name], value)
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	orch := s.service.NewOneShot()
	done := make(chan error, 1)
	go func() { done <- orch.Run(ctx) }()

	view, err := s.oneShot(ctx, orch, query.Get("q"), filters)
	cancel()
	if runErr := <-done; err == nil {
		err = runErr
	}
	if err != nil {
		s.logger.Warn("search failed", zap.String("query", query.Get("q")), zap.Error(err))
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(view); err != nil {
		s.logger.Debug("write response failed", zap.Error(err))
	}
}

func (s *Server) oneShot(
	ctx context.Context,
	orch *search.Orchestrator,
	text string,
	filters models.Filters,
) (search.View, error) {
	if len(filters) > 0 {
		if _, err := orch.OnFiltersChange(ctx, filters); err != nil {
			return search.View{}, err
		}
	}
	if _, err := orch.TriggerSearch(ctx, text); err != nil {
		return search.View{}, err
	}
	return orch.Settled(ctx)
}

func send(ctx context.Context, out chan<- serverMessage, msg serverMessage) error {
	select {
	case out <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func errorMessage(err error) serverMessage {
	return serverMessage{Type: "error", Error: err.Error()}
}
