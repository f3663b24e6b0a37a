package dto

import (
	"net/http"
	"strings"
)

// RegisterForm is the submitted registration form.
type RegisterForm struct {
	Username     string
	Password     string
	Confirmation string
}

// LoginForm is the submitted login form.
type LoginForm struct {
	Username string
	Password string
}

// TradeForm carries the raw symbol and share count of a buy or sell.
type TradeForm struct {
	Symbol string
	Shares string
}

// ClearHistoryForm is the history clearing confirmation.
type ClearHistoryForm struct {
	Confirm string
}

// ParseRegisterForm reads the registration fields from a submitted form.
func ParseRegisterForm(r *http.Request) RegisterForm {
	return RegisterForm{
		Username:     strings.TrimSpace(r.PostFormValue("username")),
		Password:     r.PostFormValue("password"),
		Confirmation: r.PostFormValue("confirmation"),
	}
}

// ParseLoginForm reads the login fields from a submitted form.
func ParseLoginForm(r *http.Request) LoginForm {
	return LoginForm{
		Username: strings.TrimSpace(r.PostFormValue("username")),
		Password: r.PostFormValue("password"),
	}
}

// ParseTradeForm reads the symbol and shares fields; validation happens in trading.
func ParseTradeForm(r *http.Request) TradeForm {
	return TradeForm{
		Symbol: r.PostFormValue("symbol"),
		Shares: r.PostFormValue("shares"),
	}
}

// ParseClearHistoryForm reads the confirm field.
func ParseClearHistoryForm(r *http.Request) ClearHistoryForm {
	return ClearHistoryForm{Confirm: strings.TrimSpace(r.PostFormValue("confirm"))}
}

// Confirmed reports whether the user explicitly acknowledged the deletion.
func (f ClearHistoryForm) Confirmed() bool {
	return strings.EqualFold(f.Confirm, "yes")
}
