package handlers

import (
	"errors"
	"net/http"

	"github.com/hongminglow/papertrade/internal/auth"
	"github.com/hongminglow/papertrade/internal/logging"
	"github.com/hongminglow/papertrade/internal/quote"
	"github.com/hongminglow/papertrade/internal/storage"
	"github.com/hongminglow/papertrade/internal/trading"
	"github.com/hongminglow/papertrade/internal/view"
)

// userError pairs a domain error with what the user is shown.
type userError struct {
	err     error
	status  int
	message string
}

var tradeErrors = []userError{
	{trading.ErrSymbolRequired, http.StatusBadRequest, "symbol required"},
	{trading.ErrInvalidShares, http.StatusBadRequest, "shares must be a positive whole number"},
	{trading.ErrNotOwned, http.StatusBadRequest, "you do not own that symbol"},
	{storage.ErrInsufficientFunds, http.StatusBadRequest, "insufficient funds"},
	{storage.ErrInsufficientShares, http.StatusBadRequest, "too many shares"},
	{quote.ErrSymbolNotFound, http.StatusBadRequest, "symbol not found"},
	{quote.ErrMalformedResponse, http.StatusBadRequest, "symbol not found"},
	{quote.ErrUnavailable, http.StatusServiceUnavailable, "quote service unavailable, try again later"},
}

var registerErrors = []userError{
	{auth.ErrUsernameRequired, http.StatusBadRequest, "must provide username"},
	{auth.ErrPasswordRequired, http.StatusBadRequest, "must provide password"},
	{auth.ErrPasswordMismatch, http.StatusBadRequest, "passwords do not match"},
	{auth.ErrPasswordTooLong, http.StatusBadRequest, "password must be at most 72 bytes"},
	{auth.ErrUsernameTaken, http.StatusBadRequest, "username already taken"},
}

var loginErrors = []userError{
	{auth.ErrUsernameRequired, http.StatusForbidden, "must provide username"},
	{auth.ErrPasswordRequired, http.StatusForbidden, "must provide password"},
	{auth.ErrInvalidCredentials, http.StatusForbidden, "invalid username and/or password"},
}

// apologize renders the apology page for err. Errors outside known are logged
// and shown as a generic 500.
func apologize(w http.ResponseWriter, r *http.Request, renderer *view.Renderer, loggedIn bool, known []userError, err error) {
	for _, ue := range known {
		if errors.Is(err, ue.err) {
			renderer.Apology(w, loggedIn, ue.status, ue.message)
			return
		}
	}
	logging.FromContext(r.Context()).WithError(err).Error("request failed")
	renderer.Apology(w, loggedIn, http.StatusInternalServerError, "something went wrong")
}
