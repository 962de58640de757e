package session

import (
	"context"
	"errors"
)

// ErrNotFound is returned when no session exists under (app, userID, id).
var ErrNotFound = errors.New("session not found")

// Store abstracts session persistence.
type Store interface {
	Create(ctx context.Context, app, userID, id string) (*Session, error)
	Get(ctx context.Context, app, userID, id string) (*Session, error)
	Save(ctx context.Context, session *Session) error
	Delete(ctx context.Context, app, userID, id string) error
}
