package storage

import (
	"context"
	"errors"
	"time"

	"github.com/0x5457/pagesearch/internal/models"
)

var ErrSessionNotFound = errors.New("session not found")

// Session is the recoverable part of a search session.
type Session struct {
	ID         string
	Query      string
	Filters    models.Filters
	OpenGroups []string
	UpdatedAt  time.Time
}

type SessionStore interface {
	LoadSession(ctx context.Context, id string) (*Session, error)
	SaveSession(ctx context.Context, s Session) error
	DeleteSession(ctx context.Context, id string) error
	Close() error
}
