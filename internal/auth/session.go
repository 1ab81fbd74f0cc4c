package auth

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"

	"bookbrainz-site/internal/metadata"
)

const (
	keyToken     = "access_token"
	keyUserID    = "user_id"
	keyExpires   = "expires_at"
	keySelection = "merge_entities"
)

// Sessions wraps the fiber session store.
type Sessions struct {
	store *session.Store
	ttl   time.Duration
}

func NewSessions(cookieName string, ttl time.Duration) *Sessions {
	return &Sessions{
		store: session.New(session.Config{
			Expiration:     ttl,
			KeyLookup:      "cookie:" + cookieName,
			CookieHTTPOnly: true,
			CookieSameSite: "Lax",
		}),
		ttl: ttl,
	}
}

// Load returns the signed-in session, or nil for an anonymous visitor.
func (s *Sessions) Load(c *fiber.Ctx) (*metadata.Session, error) {
	sess, err := s.store.Get(c)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	token, _ := sess.Get(keyToken).(string)
	if token == "" {
		return nil, nil
	}
	userID, _ := sess.Get(keyUserID).(string)
	out := &metadata.Session{ID: sess.ID(), UserID: userID, BearerToken: token}
	if exp, ok := sess.Get(keyExpires).(int64); ok && exp > 0 {
		out.ExpiresAt = time.Unix(exp, 0)
	}
	return out, nil
}

// Start stores a freshly issued token, replacing any previous session.
func (s *Sessions) Start(c *fiber.Ctx, token, userID string) (*metadata.Session, error) {
	sess, err := s.store.Get(c)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if err := sess.Regenerate(); err != nil {
		return nil, fmt.Errorf("regenerate session: %w", err)
	}

	expires := time.Now().Add(s.ttl).Truncate(time.Second)
	sess.Set(keyToken, token)
	sess.Set(keyUserID, userID)
	sess.Set(keyExpires, expires.Unix())
	if err := sess.Save(); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	return &metadata.Session{ID: sess.ID(), UserID: userID, BearerToken: token, ExpiresAt: expires}, nil
}

// Destroy ends the session.
func (s *Sessions) Destroy(c *fiber.Ctx) error {
	sess, err := s.store.Get(c)
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}
	return sess.Destroy()
}

// Selection returns the entities selected for a merge.
func (s *Sessions) Selection(c *fiber.Ctx) ([]string, error) {
	sess, err := s.store.Get(c)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	sel, _ := sess.Get(keySelection).([]string)
	return sel, nil
}

// SetSelection replaces the merge selection; nil clears it.
func (s *Sessions) SetSelection(c *fiber.Ctx, selection []string) error {
	sess, err := s.store.Get(c)
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}
	if len(selection) == 0 {
		sess.Delete(keySelection)
	} else {
		sess.Set(keySelection, selection)
	}
	return sess.Save()
}
