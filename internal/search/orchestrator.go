package search

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/0x5457/pagesearch/internal/combobox"
	"github.com/0x5457/pagesearch/internal/engine"
	"github.com/0x5457/pagesearch/internal/facets"
	"github.com/0x5457/pagesearch/internal/models"
	"github.com/0x5457/pagesearch/internal/storage"
	"github.com/0x5457/pagesearch/internal/transform"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const DefaultDebounce = 300 * time.Millisecond

var (
	// ErrSuperseded marks work whose result was replaced by newer input.
	ErrSuperseded = errors.New("search superseded")
	ErrStopped    = errors.New("search session stopped")
)

// Searcher is the index side of a session. *gateway.Gateway implements it.
type Searcher interface {
	Load(ctx context.Context)
	InitialFacets() models.FacetCounts
	Search(ctx context.Context, q models.SearchQuery) (*engine.SearchResponse, error)
	Preload(ctx context.Context, q models.SearchQuery) error
}

type Options struct {
	Logger      *zap.Logger
	Searcher    Searcher
	Transformer *transform.Transformer

	Debounce         time.Duration
	PageSize         int
	ShowEmptyFilters bool
	// PreloadLimiter drops preloads above its rate. Nil means unlimited.
	PreloadLimiter *rate.Limiter

	// Sessions persists the query, filters and open groups under SessionID
	// and restores them when the session starts.
	Sessions  storage.SessionStore
	SessionID string
}

// Orchestrator runs one search session. All state is owned by the goroutine
// in Run; the exported methods post events to it and wait for the answer.
type Orchestrator struct {
	logger      *zap.Logger
	searcher    Searcher
	transformer *transform.Transformer
	debounce    time.Duration
	pageSize    int
	limiter     *rate.Limiter
	sessions    storage.SessionStore
	sessionID   string

	inbox   chan message
	done    chan struct{}
	started atomic.Bool

	subMu  sync.Mutex
	subs   map[int]chan View
	nextID int

	persistCh chan storage.Session

	// Loop-owned state below.
	runCtx context.Context
	tokens tokens

	query  models.SearchQuery
	issued *models.SearchQuery
	facets *facets.State
	list   *combobox.List

	matches    []models.RawMatch
	results    []models.DisplayResult
	shown      int
	unfiltered int

	timer        *time.Timer
	timerGen     uint64
	timerPending bool
	searching    bool
	paging       bool
	loaded       bool

	waiters []chan result
	stats   Stats
}

func New(opts Options) *Orchestrator {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Transformer == nil {
		opts.Transformer = transform.New(transform.Options{})
	}
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.PageSize <= 0 {
		opts.PageSize = transform.DefaultPageSize
	}
	return &Orchestrator{
		logger:      opts.Logger.With(zap.String("session", opts.SessionID)),
		searcher:    opts.Searcher,
		transformer: opts.Transformer,
		debounce:    opts.Debounce,
		pageSize:    opts.PageSize,
		limiter:     opts.PreloadLimiter,
		sessions:    opts.Sessions,
		sessionID:   opts.SessionID,
		inbox:       make(chan message),
		done:        make(chan struct{}),
		subs:        map[int]chan View{},
		persistCh:   make(chan storage.Session, 1),
		query:       models.NewSearchQuery("", nil),
		facets:      facets.New(facets.Options{ShowEmpty: opts.ShowEmptyFilters}),
		list:        combobox.New(),
	}
}

// Run processes events until ctx is cancelled or an unexpected failure
// occurs. Failures of the search engine or of loading result data end the
// session and are returned.
func (o *Orchestrator) Run(ctx context.Context) error {
	if !o.started.CompareAndSwap(false, true) {
		return errors.New("search session already running")
	}
	defer close(o.done)

	o.runCtx = ctx
	o.tokens = tokens{parent: ctx}
	defer o.tokens.invalidate()
	defer o.stopTimer()

	go func() {
		o.searcher.Load(ctx)
		o.post(indexLoaded{facets: o.searcher.InitialFacets()})
	}()
	if o.sessions != nil {
		stop, flushed := make(chan struct{}), make(chan struct{})
		go o.persistLoop(ctx, stop, flushed)
		defer func() {
			close(stop)
			<-flushed
		}()
		o.restore(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			o.releaseWaiters()
			return nil
		case msg := <-o.inbox:
			res, deferred, err := o.handle(msg.event)
			if msg.reply != nil {
				if deferred {
					o.waiters = append(o.waiters, msg.reply)
				} else {
					msg.reply <- res
				}
			}
			if err != nil {
				o.logger.Error("search session failed", zap.Error(err))
				o.releaseWaiters()
				return err
			}
			o.settle()
			o.publish()
		}
	}
}

func (o *Orchestrator) handle(ev any) (result, bool, error) {
	switch ev := ev.(type) {
	case queryChanged:
		o.onQueryChange(ev.text)
	case filtersChanged:
		o.onFiltersChange(ev.filters)
	case filterToggled:
		o.onFiltersChange(o.facets.Toggle(ev.name, ev.value))
	case groupToggled:
		o.facets.SetGroupOpen(ev.name, ev.open)
		o.persist()
	case filterFocused:
		if ev.index < 0 {
			o.facets.ClearFocus()
		} else {
			o.facets.SetFocus(ev.group, ev.index)
		}
	case moreRequested:
		o.showMore()
	case keyPressed:
		return o.onKey(ev.key), false, nil
	case optionSelected:
		o.list.Select(ev.id)
	case viewRequested:
	case settleWanted:
		if o.pending() {
			return result{}, true, nil
		}
	case debounceFired:
		if ev.gen == o.timerGen && o.timerPending {
			o.timerPending = false
			o.search(o.query)
		}
	case indexLoaded:
		o.loaded = true
		o.facets.SetInitial(ev.facets)
	case searchDone:
		return result{}, false, o.onSearchDone(ev)
	case pageDone:
		return result{}, false, o.onPageDone(ev)
	default:
		panic(fmt.Sprintf("search: unknown event %T", ev))
	}
	return result{view: o.view()}, false, nil
}

func (o *Orchestrator) onQueryChange(text string) {
	o.query = models.NewSearchQuery(text, o.query.Filters)
	o.persist()
	if strings.TrimSpace(text) == "" {
		o.clear()
		return
	}
	o.preload(o.query)
	o.armTimer()
}

// onFiltersChange searches immediately; a pending debounced search for the
// same text is folded into this one.
func (o *Orchestrator) onFiltersChange(filters models.Filters) {
	o.facets.ApplyFilters(filters)
	o.query = models.NewSearchQuery(o.query.Text, filters)
	o.persist()
	if strings.TrimSpace(o.query.Text) == "" {
		return
	}
	o.stopTimer()
	o.search(o.query)
}

// clear drops every result synchronously and orphans in-flight work.
func (o *Orchestrator) clear() {
	o.stopTimer()
	o.tokens.invalidate()
	o.issued = nil
	o.matches = nil
	o.results = nil
	o.shown = 0
	o.unfiltered = 0
	o.searching = false
	o.paging = false
	o.list.Clear()
	o.facets.Reset()
}

func (o *Orchestrator) search(q models.SearchQuery) {
	if o.issued != nil && o.tokens.cur != nil && o.issued.Equal(q) {
		o.logger.Debug("identical search skipped", zap.String("query", q.Text))
		return
	}
	tok := o.tokens.next()
	o.issued = &q
	o.searching = true
	o.paging = false
	o.stats.Searches++
	searchesIssued.Add(tok.ctx, 1)
	o.logger.Debug("search issued", zap.String("query", q.Text), zap.Uint64("generation", tok.gen))

	go func() {
		resp, err := o.searcher.Search(tok.ctx, q)
		o.post(searchDone{tok: tok, query: q, resp: resp, err: tok.result(err)})
	}()
}

func (o *Orchestrator) onSearchDone(ev searchDone) error {
	if !o.tokens.current(ev.tok) || errors.Is(ev.err, ErrSuperseded) {
		o.stats.Superseded++
		searchesSuperseded.Add(o.runCtx, 1)
		return nil
	}
	o.searching = false
	if ev.err != nil {
		return fmt.Errorf("search %q: %w", ev.query.Text, ev.err)
	}

	o.matches = ev.resp.Results
	o.unfiltered = ev.resp.UnfilteredCount
	o.facets.OnSearchCompleted(ev.resp.Filters)
	if len(o.matches) == 0 {
		return o.onPageDone(pageDone{tok: ev.tok, first: true})
	}
	o.loadPage(ev.tok, 0, true)
	return nil
}

func (o *Orchestrator) loadPage(tok *token, from int, first bool) {
	o.paging = true
	matches := o.matches
	go func() {
		results, err := o.transformer.TransformNextPage(tok.ctx, matches, from, o.pageSize)
		o.post(pageDone{tok: tok, first: first, results: results, err: tok.result(err)})
	}()
}

func (o *Orchestrator) onPageDone(ev pageDone) error {
	if !o.tokens.current(ev.tok) || errors.Is(ev.err, ErrSuperseded) {
		return nil
	}
	o.paging = false
	if ev.err != nil {
		return fmt.Errorf("load results for %q: %w", o.query.Text, ev.err)
	}
	if ev.first {
		o.results = ev.results
		o.shown = len(ev.results)
		o.list.Replace(ev.results)
		return nil
	}
	o.results = append(o.results, ev.results...)
	o.shown += len(ev.results)
	o.list.Append(ev.results)
	return nil
}

// showMore appends the next page. Requests made while a page is loading,
// or when everything is shown, are ignored.
func (o *Orchestrator) showMore() {
	if o.tokens.cur == nil || o.searching || o.paging || o.shown >= len(o.matches) {
		return
	}
	o.loadPage(o.tokens.cur, o.shown, false)
}

func (o *Orchestrator) onKey(key Key) result {
	var href string
	switch key {
	case KeyDown:
		o.list.Next()
	case KeyUp:
		o.list.Prev()
	case KeyEnter:
		href, _ = o.list.Accept()
	}
	return result{view: o.view(), href: href}
}

func (o *Orchestrator) preload(q models.SearchQuery) {
	if o.limiter != nil && !o.limiter.Allow() {
		o.stats.PreloadsDropped++
		preloadsDropped.Add(o.runCtx, 1)
		return
	}
	o.stats.Preloads++
	preloads.Add(o.runCtx, 1)
	ctx := o.runCtx
	go func() {
		if err := o.searcher.Preload(ctx, q); err != nil && ctx.Err() == nil {
			o.logger.Debug("preload failed", zap.String("query", q.Text), zap.Error(err))
		}
	}()
}

func (o *Orchestrator) armTimer() {
	o.stopTimer()
	o.timerGen++
	gen := o.timerGen
	o.timerPending = true
	o.timer = time.AfterFunc(o.debounce, func() {
		o.post(debounceFired{gen: gen})
	})
}

func (o *Orchestrator) stopTimer() {
	if o.timer != nil {
		o.timer.Stop()
		o.timer = nil
	}
	o.timerPending = false
}

func (o *Orchestrator) pending() bool {
	return !o.loaded || o.timerPending || o.searching || o.paging
}

func (o *Orchestrator) settle() {
	if o.pending() || len(o.waiters) == 0 {
		return
	}
	v := o.view()
	for _, w := range o.waiters {
		w <- result{view: v}
	}
	o.waiters = nil
}

func (o *Orchestrator) releaseWaiters() {
	for _, w := range o.waiters {
		close(w)
	}
	o.waiters = nil
}

// post delivers a completion to the loop. It is dropped once the loop ended.
func (o *Orchestrator) post(ev any) {
	select {
	case o.inbox <- message{event: ev}:
	case <-o.done:
	}
}

func (o *Orchestrator) call(ctx context.Context, ev any) (result, error) {
	reply := make(chan result, 1)
	select {
	case o.inbox <- message{event: ev, reply: reply}:
	case <-o.done:
		return result{}, ErrStopped
	case <-ctx.Done():
		return result{}, ctx.Err()
	}
	select {
	case res, ok := <-reply:
		if !ok {
			return result{}, ErrStopped
		}
		return res, nil
	case <-o.done:
		select {
		case res, ok := <-reply:
			if ok {
				return res, nil
			}
		default:
		}
		return result{}, ErrStopped
	case <-ctx.Done():
		return result{}, ctx.Err()
	}
}

func (o *Orchestrator) persist() {
	if o.sessions == nil {
		return
	}
	sess := storage.Session{
		ID:         o.sessionID,
		Query:      o.query.Text,
		Filters:    o.query.Filters.Clone(),
		OpenGroups: o.facets.OpenGroups(),
	}
	select {
	case <-o.persistCh:
	default:
	}
	o.persistCh <- sess
}

// persistLoop saves sessions until stop is closed, then flushes the one still
// pending. Saves outlive ctx so the last state survives shutdown.
func (o *Orchestrator) persistLoop(ctx context.Context, stop <-chan struct{}, flushed chan<- struct{}) {
	defer close(flushed)
	ctx = context.WithoutCancel(ctx)
	for {
		select {
		case <-stop:
			select {
			case sess := <-o.persistCh:
				o.save(ctx, sess)
			default:
			}
			return
		case sess := <-o.persistCh:
			o.save(ctx, sess)
		}
	}
}

func (o *Orchestrator) save(ctx context.Context, sess storage.Session) {
	if err := o.sessions.SaveSession(ctx, sess); err != nil {
		o.logger.Warn("failed to save session", zap.String("session", sess.ID), zap.Error(err))
	}
}

// restore recovers a persisted session. A restored query is searched right
// away, without debounce or preload.
func (o *Orchestrator) restore(ctx context.Context) {
	sess, err := o.sessions.LoadSession(ctx, o.sessionID)
	if err != nil {
		if !errors.Is(err, storage.ErrSessionNotFound) {
			o.logger.Warn("failed to restore session", zap.Error(err))
		}
		return
	}
	o.facets.ApplyFilters(sess.Filters)
	o.facets.RestoreOpenGroups(sess.OpenGroups)
	o.query = models.NewSearchQuery(sess.Query, sess.Filters)
	o.logger.Debug("session restored", zap.String("query", sess.Query))
	if strings.TrimSpace(sess.Query) != "" {
		o.search(o.query)
	}
}

// Subscribe streams a view after every change. Slow subscribers only see
// the latest view. The returned func stops the stream.
func (o *Orchestrator) Subscribe() (<-chan View, func()) {
	o.subMu.Lock()
	defer o.subMu.Unlock()
	id := o.nextID
	o.nextID++
	ch := make(chan View, 1)
	o.subs[id] = ch
	return ch, func() {
		o.subMu.Lock()
		defer o.subMu.Unlock()
		if _, ok := o.subs[id]; ok {
			delete(o.subs, id)
			close(ch)
		}
	}
}

func (o *Orchestrator) publish() {
	o.subMu.Lock()
	defer o.subMu.Unlock()
	if len(o.subs) == 0 {
		return
	}
	v := o.view()
	for _, ch := range o.subs {
		select {
		case <-ch:
		default:
		}
		ch <- v
	}
}

// OnQueryChange records new input text. A blank text clears the results
// before returning; anything else preloads and schedules a debounced search.
func (o *Orchestrator) OnQueryChange(ctx context.Context, text string) (View, error) {
	res, err := o.call(ctx, queryChanged{text: text})
	return res.view, err
}

// OnFiltersChange replaces the selected filters and searches immediately.
func (o *Orchestrator) OnFiltersChange(ctx context.Context, filters models.Filters) (View, error) {
	res, err := o.call(ctx, filtersChanged{filters: filters.Clone()})
	return res.view, err
}

// TriggerSearch runs a search as if text had been typed.
func (o *Orchestrator) TriggerSearch(ctx context.Context, text string) (View, error) {
	return o.OnQueryChange(ctx, text)
}

// TriggerFilters replaces the selected filters as if chosen by the user.
func (o *Orchestrator) TriggerFilters(ctx context.Context, filters models.Filters) (View, error) {
	return o.OnFiltersChange(ctx, filters)
}

func (o *Orchestrator) ToggleFilter(ctx context.Context, name, value string) (View, error) {
	res, err := o.call(ctx, filterToggled{name: name, value: value})
	return res.view, err
}

func (o *Orchestrator) SetGroupOpen(ctx context.Context, name string, open bool) (View, error) {
	res, err := o.call(ctx, groupToggled{name: name, open: open})
	return res.view, err
}

// FocusFilter records keyboard focus on a filter value by position. A
// negative index clears it.
func (o *Orchestrator) FocusFilter(ctx context.Context, group string, index int) (View, error) {
	res, err := o.call(ctx, filterFocused{group: group, index: index})
	return res.view, err
}

func (o *Orchestrator) ShowMore(ctx context.Context) (View, error) {
	res, err := o.call(ctx, moreRequested{})
	return res.view, err
}

// Key applies a navigation key. For KeyEnter on a selected option the
// returned href is the link to open.
func (o *Orchestrator) Key(ctx context.Context, key Key) (View, string, error) {
	res, err := o.call(ctx, keyPressed{key: key})
	return res.view, res.href, err
}

func (o *Orchestrator) Select(ctx context.Context, id string) (View, error) {
	res, err := o.call(ctx, optionSelected{id: id})
	return res.view, err
}

func (o *Orchestrator) View(ctx context.Context) (View, error) {
	res, err := o.call(ctx, viewRequested{})
	return res.view, err
}

// Settled waits until no debounce, search or page load is outstanding and
// returns the view at that moment.
func (o *Orchestrator) Settled(ctx context.Context) (View, error) {
	res, err := o.call(ctx, settleWanted{})
	return res.view, err
}
