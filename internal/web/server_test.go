package web

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/0x5457/pagesearch/internal/combobox"
	"github.com/0x5457/pagesearch/internal/models"
	"github.com/0x5457/pagesearch/internal/search"
	"github.com/0x5457/pagesearch/internal/search/searchtest"
	"github.com/0x5457/pagesearch/internal/storage"
	"github.com/0x5457/pagesearch/internal/storage/memory"
	"github.com/0x5457/pagesearch/internal/transform"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) (*httptest.Server, *memory.SessionStore) {
	t.Helper()
	store := memory.NewSessionStore()
	return newServerWithStore(t, store), store
}

func newServerWithStore(t *testing.T, store storage.SessionStore) *httptest.Server {
	t.Helper()
	searcher := searchtest.New(
		searchtest.Doc{
			ID:      "go",
			Data:    models.MatchData{URL: "/go/", Title: "Go tour"},
			Filters: models.Filters{"lang": {"go"}},
		},
		searchtest.Doc{
			ID:      "rust",
			Data:    models.MatchData{URL: "/rust/", Title: "Rust tour"},
			Filters: models.Filters{"lang": {"rust"}},
		},
	)
	srv := New(&search.Service{
		Searcher:    searcher,
		Transformer: transform.New(transform.Options{}),
		Sessions:    store,
		Debounce:    10 * time.Millisecond,
	}, nil)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

// countingStore counts saved sessions.
type countingStore struct {
	*memory.SessionStore
	saves atomic.Int32
}

func (s *countingStore) SaveSession(ctx context.Context, sess storage.Session) error {
	s.saves.Add(1)
	return s.SessionStore.SaveSession(ctx, sess)
}

func wsDial(t *testing.T, ts *httptest.Server, rawQuery string) (*websocket.Conn, serverMessage) {
	t.Helper()
	u, _ := url.Parse(ts.URL)
	u.Scheme = "ws"
	u.Path = "/ws"
	u.RawQuery = rawQuery

	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	var init serverMessage
	require.NoError(t, conn.ReadJSON(&init))
	require.Equal(t, "init", init.Type)
	return conn, init
}

// readUntil reads messages until match accepts one.
func readUntil(t *testing.T, conn *websocket.Conn, match func(serverMessage) bool) serverMessage {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for {
		require.NoError(t, conn.SetReadDeadline(deadline))
		var msg serverMessage
		require.NoError(t, conn.ReadJSON(&msg))
		if match(msg) {
			return msg
		}
	}
}

func settledView(query string, total int) func(serverMessage) bool {
	return func(m serverMessage) bool {
		return m.Type == "view" && m.View.Query == query && !m.View.Loading && m.View.Total == total
	}
}

func TestIndexPage(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close() //nolint:errcheck

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `role="combobox"`)
}

func TestWebSocketSearch(t *testing.T) {
	ts, _ := newTestServer(t)
	conn, init := wsDial(t, ts, "")
	assert.NotEmpty(t, init.Session)

	require.NoError(t, conn.WriteJSON(clientMessage{Type: "query", Text: "tour"}))
	msg := readUntil(t, conn, settledView("tour", 2))
	require.Len(t, msg.View.Results, 2)

	require.NoError(t, conn.WriteJSON(clientMessage{Type: "toggle", Name: "lang", Value: "go"}))
	msg = readUntil(t, conn, settledView("tour", 1))
	assert.Equal(t, "/go/", msg.View.Results[0].Href)
	assert.Equal(t, models.Filters{"lang": {"go"}}, msg.View.Filters)

	require.NoError(t, conn.WriteJSON(clientMessage{Type: "key", Key: search.KeyDown}))
	readUntil(t, conn, func(m serverMessage) bool {
		return m.Type == "view" && m.View.ActiveDescendant == "go"
	})

	require.NoError(t, conn.WriteJSON(clientMessage{Type: "key", Key: search.KeyEnter}))
	msg = readUntil(t, conn, func(m serverMessage) bool { return m.Type == "navigate" })
	assert.Equal(t, "/go/", msg.Href)
}

func TestWebSocketScroll(t *testing.T) {
	ts, _ := newTestServer(t)
	conn, _ := wsDial(t, ts, "")

	require.NoError(t, conn.WriteJSON(clientMessage{
		Type:          "scroll",
		Item:          combobox.Rect{Top: 380, Bottom: 420},
		Container:     combobox.Rect{Top: 0, Bottom: 400},
		ReducedMotion: true,
	}))
	msg := readUntil(t, conn, func(m serverMessage) bool { return m.Type == "scroll" })
	require.NotNil(t, msg.Scroll)
	assert.True(t, msg.Scroll.Needed)
	assert.Equal(t, "end", msg.Scroll.Block)
	assert.Equal(t, combobox.ScrollInstant, msg.Scroll.Behavior)
}

func TestWebSocketBadMessage(t *testing.T) {
	ts, _ := newTestServer(t)
	conn, _ := wsDial(t, ts, "")

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type" 1}`)))
	require.NoError(t, conn.WriteJSON(clientMessage{Type: "dance"}))
	msg := readUntil(t, conn, func(m serverMessage) bool { return m.Type == "error" })
	assert.NotEmpty(t, msg.Error)
}

func TestWebSocketResumesSession(t *testing.T) {
	ts, store := newTestServer(t)
	conn, init := wsDial(t, ts, "")

	require.NoError(t, conn.WriteJSON(clientMessage{Type: "query", Text: "rust"}))
	readUntil(t, conn, settledView("rust", 1))
	require.NoError(t, conn.Close())

	require.Eventually(t, func() bool {
		sess, err := store.LoadSession(context.Background(), init.Session)
		return err == nil && sess.Query == "rust"
	}, 5*time.Second, 10*time.Millisecond)

	conn, resumed := wsDial(t, ts, "session="+url.QueryEscape(init.Session))
	assert.Equal(t, init.Session, resumed.Session)
	readUntil(t, conn, settledView("rust", 1))
}

func TestSearchEndpoint(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/api/search?q=tour&filter=lang:rust")
	require.NoError(t, err)
	defer resp.Body.Close() //nolint:errcheck
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var view search.View
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&view))
	assert.Equal(t, "tour", view.Query)
	require.Len(t, view.Results, 1)
	assert.Equal(t, "/rust/", view.Results[0].Href)
	assert.Equal(t, 2, view.UnfilteredTotal)
}

func TestSearchEndpointDoesNotPersist(t *testing.T) {
	store := &countingStore{SessionStore: memory.NewSessionStore()}
	ts := newServerWithStore(t, store)

	for range 3 {
		resp, err := http.Get(ts.URL + "/api/search?q=tour")
		require.NoError(t, err)
		_ = resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)
	}
	assert.Zero(t, store.saves.Load())
}

func TestSearchEndpointBadFilter(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/api/search?q=tour&filter=lang")
	require.NoError(t, err)
	defer resp.Body.Close() //nolint:errcheck
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
