package metadata

import "time"

// Session is the caller identity forwarded to the web service on
// authenticated calls.
type Session struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id,omitempty"`
	BearerToken string    `json:"-"`
	ExpiresAt   time.Time `json:"expires_at,omitempty"`
}

// Token returns the bearer token, or "" for a nil or anonymous session.
func (s *Session) Token() string {
	if s == nil {
		return ""
	}
	return s.BearerToken
}

// Authenticated reports whether the session carries a usable token.
func (s *Session) Authenticated() bool {
	if s == nil || s.BearerToken == "" {
		return false
	}
	return s.ExpiresAt.IsZero() || time.Now().Before(s.ExpiresAt)
}
