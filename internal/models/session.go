package models

import "time"

type Session struct {
	ID        string    `json:"id"`
	AccountID string    `json:"account_id"`
	Token     string    `json:"token"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
	Active    bool      `json:"active"`
}

// ValidAt reports whether the session is a live grant at now:
// active and not yet expired.
func (s *Session) ValidAt(now time.Time) bool {
	return s.Active && now.Before(s.ExpiresAt)
}
