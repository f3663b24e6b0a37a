package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/hongminglow/papertrade/internal/auth"
	"github.com/hongminglow/papertrade/internal/logging"
	"github.com/hongminglow/papertrade/internal/models"
	"github.com/hongminglow/papertrade/internal/view"
)

type contextKey string

const userIDKey = contextKey("user_id")

// SessionResolver finds the session attached to a request.
type SessionResolver interface {
	Resolve(r *http.Request) (models.Session, error)
}

// WithUserID stores the authenticated user id in ctx.
func WithUserID(ctx context.Context, userID int64) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// UserID returns the authenticated user id, if any.
func UserID(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(userIDKey).(int64)
	return id, ok
}

// RequireLogin redirects anonymous requests to /login. Any other failure to
// resolve the session is answered with a 500 apology.
func RequireLogin(sessions SessionResolver, renderer *view.Renderer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session, err := sessions.Resolve(r)
			switch {
			case errors.Is(err, auth.ErrNoSession):
				logging.FromContext(r.Context()).Debug("login required")
				http.Redirect(w, r, "/login", http.StatusSeeOther)
				return
			case err != nil:
				logging.FromContext(r.Context()).WithError(err).Error("resolve session")
				renderer.Apology(w, false, http.StatusInternalServerError, "something went wrong")
				return
			}
			ctx := WithUserID(r.Context(), session.UserID)
			ctx = logging.WithLogger(ctx, logging.FromContext(ctx).WithField("user_id", session.UserID))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
