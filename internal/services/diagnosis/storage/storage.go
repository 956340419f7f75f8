// Package storage declares persistence for in-progress wizard sessions.
//
// Sessions live only as long as SessionTTL allows; nothing here outlives a
// diagnosis run or is shared between browsers.
package storage

import (
	"context"
	"time"

	"github.com/louisbranch/diagnosis/internal/services/diagnosis/domain/wizard"
)

// Session is one browser's diagnosis run.
type Session struct {
	ID        string
	Wizard    wizard.State
	Submitted bool
	CreatedAt time.Time
	UpdatedAt time.Time
	ExpiresAt time.Time
}

// Expired reports whether the session is past its expiry at now.
func (s Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

// Store persists sessions by ID.
type Store interface {
	GetSession(ctx context.Context, id string) (Session, bool, error)
	PutSession(ctx context.Context, session Session) error
	DeleteSession(ctx context.Context, id string) error
	// DeleteExpired removes sessions expired at now and returns the count.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
	Close() error
}
