package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/hongminglow/papertrade/internal/models"
	"github.com/hongminglow/papertrade/internal/storage"
)

// CookieName is the name of the session cookie.
const CookieName = "session"

// ErrNoSession indicates the request carries no live session.
var ErrNoSession = errors.New("no active session")

// Sessions issues and resolves server-side sessions referenced by a signed cookie.
type Sessions struct {
	store  storage.SessionStore
	tokens *TokenManager
	ttl    time.Duration
	secure bool
	now    func() time.Time
}

// NewSessions creates a session manager.
func NewSessions(store storage.SessionStore, tokens *TokenManager, ttl time.Duration, secure bool) *Sessions {
	return &Sessions{store: store, tokens: tokens, ttl: ttl, secure: secure, now: time.Now}
}

// Start persists a new session for userID and sets the cookie.
func (m *Sessions) Start(ctx context.Context, w http.ResponseWriter, userID int64) (models.Session, error) {
	now := m.now().UTC()
	session := models.Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: now.Add(m.ttl),
	}
	if err := m.store.CreateSession(ctx, session); err != nil {
		return models.Session{}, fmt.Errorf("create session: %w", err)
	}
	token, err := m.tokens.Generate(session)
	if err != nil {
		return models.Session{}, fmt.Errorf("sign session: %w", err)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		Expires:  session.ExpiresAt,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return session, nil
}

// Resolve returns the live session referenced by the request cookie.
func (m *Sessions) Resolve(r *http.Request) (models.Session, error) {
	cookie, err := r.Cookie(CookieName)
	if err != nil || cookie.Value == "" {
		return models.Session{}, ErrNoSession
	}
	now := m.now().UTC()
	sid, userID, err := m.tokens.Parse(cookie.Value, now)
	if err != nil {
		return models.Session{}, ErrNoSession
	}
	session, err := m.store.FindSession(r.Context(), sid, now)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return models.Session{}, ErrNoSession
		}
		return models.Session{}, err
	}
	if session.UserID != userID {
		return models.Session{}, ErrNoSession
	}
	return session, nil
}

// Forget deletes the server-side session referenced by the request, if any.
// Expired sessions are deleted too.
func (m *Sessions) Forget(r *http.Request) error {
	cookie, err := r.Cookie(CookieName)
	if err != nil || cookie.Value == "" {
		return nil
	}
	sid, err := m.tokens.SessionID(cookie.Value)
	if err != nil {
		return nil
	}
	return m.store.DeleteSession(r.Context(), sid)
}

// End forgets any session on the request and clears the cookie.
func (m *Sessions) End(w http.ResponseWriter, r *http.Request) error {
	err := m.Forget(r)
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return err
}

// Sweep deletes expired sessions.
func (m *Sessions) Sweep(ctx context.Context) (int64, error) {
	return m.store.DeleteExpiredSessions(ctx, m.now().UTC())
}
