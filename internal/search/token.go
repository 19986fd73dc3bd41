package search

import "context"

// token identifies one issued search and everything loaded for it. Only the
// most recently issued token is current; continuations holding any other
// token must not touch session state.
type token struct {
	gen    uint64
	ctx    context.Context
	cancel context.CancelFunc
}

// tokens is owned by the event loop and needs no locking.
type tokens struct {
	parent context.Context
	gen    uint64
	cur    *token
}

// next invalidates the current token and issues a fresh one.
func (s *tokens) next() *token {
	s.invalidate()
	s.gen++
	ctx, cancel := context.WithCancel(s.parent)
	s.cur = &token{gen: s.gen, ctx: ctx, cancel: cancel}
	return s.cur
}

// invalidate cancels the current token without issuing a new one.
func (s *tokens) invalidate() {
	if s.cur != nil {
		s.cur.cancel()
		s.cur = nil
	}
}

func (s *tokens) current(t *token) bool {
	return t != nil && s.cur == t
}

// result maps any failure after the token was cancelled to ErrSuperseded.
func (t *token) result(err error) error {
	if t.ctx.Err() != nil {
		return ErrSuperseded
	}
	return err
}
