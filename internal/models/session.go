package models

import (
	"context"
	"time"
)

// Session is a caller-owned conversation. The pipeline never holds one
// across turns; stores hand out copies.
type Session struct {
	ID           string     `json:"id" db:"id"`
	Transcript   Transcript `json:"transcript" db:"transcript"`
	CreatedAt    time.Time  `json:"createdAt" db:"created_at"`
	ExpiresAt    time.Time  `json:"expiresAt,omitempty" db:"expires_at"`
	LastActivity time.Time  `json:"lastActivity" db:"last_activity"`
}

func NewSession(id string, ttl time.Duration) *Session {
	now := time.Now().UTC()
	s := &Session{ID: id, CreatedAt: now, LastActivity: now}
	if ttl > 0 {
		s.ExpiresAt = now.Add(ttl)
	}
	return s
}

// IsExpired reports whether the session outlived its TTL. Sessions without
// an expiry never expire.
func (s *Session) IsExpired() bool {
	return !s.ExpiresAt.IsZero() && time.Now().After(s.ExpiresAt)
}

// UpdateActivity bumps the activity timestamp and slides the expiry window.
func (s *Session) UpdateActivity(ttl time.Duration) {
	s.LastActivity = time.Now().UTC()
	if ttl > 0 {
		s.ExpiresAt = s.LastActivity.Add(ttl)
	}
}

// SessionRepository is implemented by the memory and redis session stores.
type SessionRepository interface {
	Load(ctx context.Context, id string) (*Session, error)
	Save(ctx context.Context, session *Session) error
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context) (int, error)
}
